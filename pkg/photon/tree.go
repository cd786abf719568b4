package photon

import (
	"errors"
	"fmt"

	"github.com/df07/go-photon-mapper/pkg/core"
)

const (
	// MaxPhotonsBeforeSplit is the leaf size that triggers a split
	MaxPhotonsBeforeSplit = 100
	// MaxDepth bounds the tree; deeper leaves keep growing without splitting
	MaxDepth = 15
)

// ErrOutsideBounds is returned when a photon lies outside the root cell
var ErrOutsideBounds = errors.New("photon outside tree bounds")

// Node is a cell of the photon tree. A node is either a leaf holding photons
// or an interior node with exactly two children and no photons of its own.
type Node struct {
	bounds     core.AABB
	splitAxis  int
	splitValue float64
	lower      *Node
	upper      *Node
	photons    []Photon
	depth      int
}

func newNode(bounds core.AABB, depth int) *Node {
	return &Node{bounds: bounds, depth: depth}
}

// Bounds returns the cell's bounding box
func (n *Node) Bounds() core.AABB { return n.bounds }

// Depth returns the distance from the root (root = 0)
func (n *Node) Depth() int { return n.depth }

// IsLeaf reports whether the node stores photons directly
func (n *Node) IsLeaf() bool { return n.lower == nil && n.upper == nil }

// Children returns the lower and upper halves of an interior node (nil for leaves)
func (n *Node) Children() (*Node, *Node) { return n.lower, n.upper }

// Split returns the split axis and coordinate; only meaningful for interior nodes
func (n *Node) Split() (axis int, value float64) { return n.splitAxis, n.splitValue }

// Photons returns the photons of a leaf. The slice must not be modified.
func (n *Node) Photons() []Photon { return n.photons }

// overlaps is the cell-vs-query test used by CollectInBox
func (n *Node) overlaps(box core.AABB) bool {
	return n.bounds.Overlaps(box)
}

// child picks the half that owns position
func (n *Node) child(position core.Vec3) *Node {
	if position.Get(n.splitAxis) < n.splitValue {
		return n.lower
	}
	return n.upper
}

// splitCell bisects the longest axis and pushes the leaf's photons down
func (n *Node) splitCell() {
	axis := n.bounds.LongestAxis()
	value := n.bounds.Min.Get(axis) + n.bounds.Size().Get(axis)/2.0

	lowerBox, upperBox := n.bounds.Split(axis, value)
	n.splitAxis = axis
	n.splitValue = value
	n.lower = newNode(lowerBox, n.depth+1)
	n.upper = newNode(upperBox, n.depth+1)

	photons := n.photons
	n.photons = nil
	for _, p := range photons {
		n.child(p.Position).add(p)
	}
}

// add descends to the owning leaf and appends, splitting when the leaf grows too large
func (n *Node) add(p Photon) {
	node := n
	for !node.IsLeaf() {
		node = node.child(p.Position)
	}

	node.photons = append(node.photons, p)
	if len(node.photons) > MaxPhotonsBeforeSplit && node.depth < MaxDepth {
		node.splitCell()
	}
}

// Tree is an adaptive bounding-volume binary tree over photon positions.
// It is not safe for concurrent mutation; callers serialise Insert.
type Tree struct {
	root  *Node
	count int
}

// NewTree creates an empty tree covering bounds
func NewTree(bounds core.AABB) *Tree {
	return &Tree{root: newNode(bounds, 0)}
}

// Root returns the root cell
func (t *Tree) Root() *Node { return t.root }

// Bounds returns the root bounding box
func (t *Tree) Bounds() core.AABB { return t.root.bounds }

// Len returns the number of stored photons
func (t *Tree) Len() int { return t.count }

// Insert stores a photon. The photon must lie inside the root box (within core.Epsilon).
func (t *Tree) Insert(p Photon) error {
	if !t.root.bounds.ContainsPoint(p.Position, core.Epsilon) {
		return fmt.Errorf("%w: position %v not in [%v, %v]", ErrOutsideBounds, p.Position, t.root.bounds.Min, t.root.bounds.Max)
	}
	t.root.add(p)
	t.count++
	return nil
}

// CollectInBox returns every photon stored in a leaf whose cell overlaps box.
// The result is a superset: photons of overlapping cells are returned even when
// they lie outside box itself.
func (t *Tree) CollectInBox(box core.AABB) []Photon {
	var result []Photon

	// explicit stack instead of recursion
	todo := []*Node{t.root}
	for len(todo) > 0 {
		node := todo[len(todo)-1]
		todo = todo[:len(todo)-1]

		if !node.overlaps(box) {
			continue
		}
		if node.IsLeaf() {
			result = append(result, node.photons...)
		} else {
			todo = append(todo, node.lower, node.upper)
		}
	}
	return result
}

// Walk visits nodes depth-first, parents before children.
// Returning false from visit skips the node's children.
func (t *Tree) Walk(visit func(*Node) bool) {
	todo := []*Node{t.root}
	for len(todo) > 0 {
		node := todo[len(todo)-1]
		todo = todo[:len(todo)-1]

		if visit(node) && !node.IsLeaf() {
			todo = append(todo, node.upper, node.lower)
		}
	}
}

// Stats summarises the shape of the tree
type Stats struct {
	TotalNodes int
	LeafNodes  int
	MaxDepth   int
	AvgDepth   float64 // Average leaf depth
	Photons    int
}

// Stats collects structural statistics about the tree
func (t *Tree) Stats() Stats {
	stats := Stats{}
	t.Walk(func(n *Node) bool {
		stats.TotalNodes++
		if n.depth > stats.MaxDepth {
			stats.MaxDepth = n.depth
		}
		if n.IsLeaf() {
			stats.LeafNodes++
			stats.Photons += len(n.photons)
			stats.AvgDepth += float64(n.depth)
		}
		return true
	})

	if stats.LeafNodes > 0 {
		stats.AvgDepth /= float64(stats.LeafNodes)
	}
	return stats
}
