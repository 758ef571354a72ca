// Package enc loads Norwegian electronic navigational chart data into memory.
//
// Kartverket distributes depth data per county as zipped FileGDB archives.
// New unpacks the archives found under <DataDir>/external, converts the
// requested layers into shapefiles clipped to a window, and loads them as
// read-only feature collections:
//
//	chart, err := enc.New(enc.Options{
//	    Regions: []string{"Møre og Romsdal"},
//	    Size:    [2]float64{20000, 16000},
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, f := range chart.Ocean.Seabed() {
//	    d, _ := f.Depth()
//	    fmt.Printf("%s: %.0f m², deeper than %gm\n", f.Name(), f.Area(), d)
//	}
//
// All coordinates are EUREF89 UTM zone 33 (EPSG:25833). Converted shapefiles
// are cached under <DataDir>/shapefiles keyed by regions, window, categories
// and depth bins; set Options.NewData to extract and convert again.
//
// Reading FileGDB containers requires the GDAL command line tools (ogrinfo
// and ogr2ogr) unless Options.Opener supplies another Source.
package enc
