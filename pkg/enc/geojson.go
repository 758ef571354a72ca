package enc

import (
	"github.com/paulmach/orb/geojson"
)

// GeoJSON converts features into a FeatureCollection. Coordinates stay in
// EUREF89 UTM zone 33.
func GeoJSON(feats []*Feature) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, f := range feats {
		gf := geojson.NewFeature(f.Geometry())
		gf.Properties["name"] = f.Name()
		gf.Properties["category"] = f.Category()
		gf.Properties["kind"] = f.Kind().String()
		gf.Properties["area"] = f.Area()
		if d, ok := f.Depth(); ok {
			gf.Properties["depth"] = d
		}
		fc.Append(gf)
	}
	return fc
}
