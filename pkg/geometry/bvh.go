package geometry

import (
	"sort"

	"github.com/df07/go-photon-mapper/pkg/core"
)

// bvhLeafSize is the largest number of primitives kept in one leaf
const bvhLeafSize = 8

// BVH is a bounding volume hierarchy over primitives. Intersect finds the
// same nearest distance as testing every primitive in turn.
type BVH struct {
	root  *bvhNode
	count int
}

type bvhNode struct {
	bounds      core.AABB
	left, right *bvhNode
	primitives  []Primitive // nil for internal nodes
}

// NewBVH builds a hierarchy over a copy of prims
func NewBVH(prims []Primitive) *BVH {
	if len(prims) == 0 {
		return &BVH{}
	}
	owned := make([]Primitive, len(prims))
	copy(owned, prims)
	return &BVH{root: buildBVH(owned), count: len(prims)}
}

// FacesAsPrimitives widens a face slice for NewBVH
func FacesAsPrimitives(faces []*Face) []Primitive {
	prims := make([]Primitive, len(faces))
	for i, f := range faces {
		prims[i] = f
	}
	return prims
}

func buildBVH(prims []Primitive) *bvhNode {
	// flat faces get boxes with zero thickness, widen so the slab test stays robust
	bounds := prims[0].BoundingBox()
	for _, p := range prims[1:] {
		bounds = bounds.Union(p.BoundingBox())
	}
	bounds = bounds.Expand(core.Epsilon)

	if len(prims) <= bvhLeafSize {
		return &bvhNode{bounds: bounds, primitives: prims}
	}

	// median split along the longest axis
	axis := bounds.LongestAxis()
	sortByCenter(prims, axis)
	mid := len(prims) / 2

	return &bvhNode{
		bounds: bounds,
		left:   buildBVH(prims[:mid]),
		right:  buildBVH(prims[mid:]),
	}
}

// sortByCenter stably orders prims by their bounding box centre on axis.
// Centres are computed once per primitive.
func sortByCenter(prims []Primitive, axis int) {
	type keyed struct {
		prim   Primitive
		center float64
	}
	entries := make([]keyed, len(prims))
	for i, p := range prims {
		entries[i] = keyed{prim: p, center: p.BoundingBox().Center().Get(axis)}
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].center < entries[j].center
	})
	for i, e := range entries {
		prims[i] = e.prim
	}
}

// Len returns the number of primitives in the hierarchy
func (b *BVH) Len() int {
	return b.count
}

// Intersect tightens hit with the nearest primitive along the ray and
// reports whether hit was modified
func (b *BVH) Intersect(ray core.Ray, hit *HitRecord, allowBackface bool) bool {
	if b.root == nil {
		return false
	}
	return b.root.intersect(ray, hit, allowBackface)
}

func (n *bvhNode) intersect(ray core.Ray, hit *HitRecord, allowBackface bool) bool {
	if !n.bounds.Hit(ray, 0, hit.T) {
		return false
	}

	found := false
	if n.primitives != nil {
		for _, p := range n.primitives {
			if p.Intersect(ray, hit, allowBackface) {
				found = true
			}
		}
		return found
	}

	if n.left.intersect(ray, hit, allowBackface) {
		found = true
	}
	if n.right.intersect(ray, hit, allowBackface) {
		found = true
	}
	return found
}

// BVHStats describes the shape of a hierarchy
type BVHStats struct {
	TotalNodes int
	LeafNodes  int
	MaxDepth   int
	Primitives int
}

// Stats walks the hierarchy and collects BVHStats
func (b *BVH) Stats() BVHStats {
	var stats BVHStats
	if b.root != nil {
		b.root.collectStats(0, &stats)
	}
	return stats
}

func (n *bvhNode) collectStats(depth int, stats *BVHStats) {
	stats.TotalNodes++
	stats.MaxDepth = max(stats.MaxDepth, depth)
	if n.primitives != nil {
		stats.LeafNodes++
		stats.Primitives += len(n.primitives)
		return
	}
	n.left.collectStats(depth+1, stats)
	n.right.collectStats(depth+1, stats)
}
