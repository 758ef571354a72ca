// Package features defines the chart feature categories the pipeline knows
// how to extract, the Kartverket layers they come from, and the depth bins
// used to partition seabed polygons.
package features

import (
	"sort"
	"strings"
)

// Kind is the geometric shape of a category.
type Kind int

const (
	// KindPolygon categories are areas (land, seabed).
	KindPolygon Kind = iota
	// KindPoint categories are point sets (rocks, shallows).
	KindPoint
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindPolygon:
		return "Polygon"
	case KindPoint:
		return "Point"
	default:
		return "Unknown"
	}
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, bool) {
	switch strings.ToLower(s) {
	case "polygon":
		return KindPolygon, true
	case "point":
		return KindPoint, true
	}
	return 0, false
}

// Themes, in display order.
const (
	ThemeOcean   = "ocean"
	ThemeSurface = "surface"
	ThemeDetails = "details"
)

// Category describes one extractable feature category.
type Category struct {
	Name       string // category tag, e.g. "seabed"
	Theme      string // collection the category belongs to
	Layer      string // layer name inside the FileGDB container
	Kind       Kind
	DepthField string // attribute holding the minimum depth; empty if not binned
}

// Binned reports whether polygons of this category are partitioned by depth.
func (c Category) Binned() bool {
	return c.DepthField != ""
}

// catalogue lists categories in theme order. Layer and field names follow
// Kartverket's "Dybdedata" FileGDB product.
var catalogue = []Category{
	{Name: "seabed", Theme: ThemeOcean, Layer: "Dybdeareal", Kind: KindPolygon, DepthField: "minimumsdybde"},
	{Name: "land", Theme: ThemeSurface, Layer: "Landareal", Kind: KindPolygon},
	{Name: "shore", Theme: ThemeSurface, Layer: "Torrfall", Kind: KindPolygon},
	{Name: "shallows", Theme: ThemeDetails, Layer: "Grunne", Kind: KindPoint},
	{Name: "rocks", Theme: ThemeDetails, Layer: "Skjaer", Kind: KindPoint},
}

// All returns every supported category in theme order.
func All() []Category {
	return append([]Category(nil), catalogue...)
}

// Names returns the names of every supported category.
func Names() []string {
	names := make([]string, len(catalogue))
	for i, c := range catalogue {
		names[i] = c.Name
	}
	return names
}

// Lookup finds a category by name, case-insensitively.
func Lookup(name string) (Category, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, c := range catalogue {
		if c.Name == name {
			return c, true
		}
	}
	return Category{}, false
}

// Themes returns the theme names in display order.
func Themes() []string {
	return []string{ThemeOcean, ThemeSurface, ThemeDetails}
}

// ByTheme returns the categories of one theme.
func ByTheme(theme string) []Category {
	var out []Category
	for _, c := range catalogue {
		if c.Theme == theme {
			out = append(out, c)
		}
	}
	return out
}

// Select resolves category names into catalogue order, dropping duplicates.
// An empty list selects every category. Unknown names are returned in
// unknown.
func Select(names []string) (selected []Category, unknown []string) {
	if len(names) == 0 {
		return All(), nil
	}

	want := make(map[string]bool, len(names))
	for _, n := range names {
		c, ok := Lookup(n)
		if !ok {
			unknown = append(unknown, n)
			continue
		}
		want[c.Name] = true
	}
	for _, c := range catalogue {
		if want[c.Name] {
			selected = append(selected, c)
		}
	}
	return selected, unknown
}

// SortedNames returns the names of cats sorted alphabetically, used where a
// stable, order-independent signature is required.
func SortedNames(cats []Category) []string {
	names := make([]string, len(cats))
	for i, c := range cats {
		names[i] = c.Name
	}
	sort.Strings(names)
	return names
}
