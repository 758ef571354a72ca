package geometry

import (
	"sort"

	"github.com/dhconnelly/rtreego"
	"github.com/paulmach/orb"
)

// Index provides O(log n) bounding box queries over a fixed set of items
// using an R-tree. Items are identified by their position in the slice
// passed to NewIndex.
type Index struct {
	rtree  *rtreego.Rtree
	bounds []orb.Bound
}

// indexedItem wraps an item bound for R-tree storage.
type indexedItem struct {
	id    int
	bound orb.Bound
}

// Bounds implements rtreego.Spatial.
func (it *indexedItem) Bounds() rtreego.Rect {
	return toRect(it.bound)
}

// NewIndex builds an index over the given bounds.
func NewIndex(bounds []orb.Bound) *Index {
	// 2D, min=25 children, max=50 children
	rtree := rtreego.NewTree(2, 25, 50)
	for i, b := range bounds {
		rtree.Insert(&indexedItem{id: i, bound: b})
	}
	return &Index{rtree: rtree, bounds: bounds}
}

// Search returns the ids of all items whose bounds intersect b, in
// ascending order.
func (idx *Index) Search(b orb.Bound) []int {
	if idx == nil || idx.rtree == nil || len(idx.bounds) == 0 {
		return nil
	}

	spatials := idx.rtree.SearchIntersect(toRect(b))
	ids := make([]int, 0, len(spatials))
	for _, s := range spatials {
		ids = append(ids, s.(*indexedItem).id)
	}
	sort.Ints(ids)
	return ids
}

// Len returns the number of indexed items.
func (idx *Index) Len() int {
	if idx == nil {
		return 0
	}
	return len(idx.bounds)
}

// toRect converts a bound to an R-tree rectangle. R-tree rectangles need
// non-zero extents, so point-like bounds get a small epsilon (1 cm).
func toRect(b orb.Bound) rtreego.Rect {
	const epsilon = 0.01

	width := b.Max[0] - b.Min[0]
	height := b.Max[1] - b.Min[1]
	if width < epsilon {
		width = epsilon
	}
	if height < epsilon {
		height = epsilon
	}

	rect, _ := rtreego.NewRect(rtreego.Point{b.Min[0], b.Min[1]}, []float64{width, height})
	return rect
}
