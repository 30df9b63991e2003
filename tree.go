package scale

import (
	"fmt"

	"github.com/gordian-engine/scale/schash"
)

// Node is one vertex of a [Tree].
// A node has either two children or none;
// odd element counts are resolved during [BuildTree]
// by repeating the trailing element,
// so no node ever has exactly one child.
type Node struct {
	digest Digest

	left, right *Node
}

// Digest returns the node's digest.
// For a leaf this is the hash of one input item;
// for an internal node it is the hash of the left child's digest
// followed by the right child's digest.
//
// The returned slice references the tree's backing memory
// and must not be modified.
func (n *Node) Digest() Digest { return n.digest }

// Left returns the left child, or nil for a leaf.
func (n *Node) Left() *Node { return n.left }

// Right returns the right child, or nil for a leaf.
func (n *Node) Right() *Node { return n.right }

// IsLeaf reports whether n has no children.
func (n *Node) IsLeaf() bool { return n.left == nil }

// TreeConfig is the configuration for [BuildTree].
type TreeConfig struct {
	// How to hash items and combine child digests.
	Hasher schash.Hasher

	// The size, in bytes, of digests produced by Hasher.
	HashSize int
}

// Tree is a binary Merkle tree over an ordered sequence of items.
//
// Build one with [BuildTree].
// A built tree is immutable:
// [*Tree.Prove], [*Tree.ProveAt], and [*Tree.Verify]
// are read-only and safe for concurrent use.
type Tree struct {
	root *Node

	// Nodes per level including padding duplicates:
	// levels[0] is the leaf row and levels[len(levels)-1] is just the root.
	// Rows are indexed by [*Tree.ProveAt].
	levels [][]*Node

	// Item count before padding.
	nItems int

	hasher   schash.Hasher
	hashSize int
}

// BuildTree hashes every item into a leaf digest, in order,
// then pairs and combines digests level by level
// until a single root digest remains.
// The parent of a pair is the hash of the left digest
// followed by the right digest.
//
// Whenever a level holds an odd number of elements,
// the trailing element is repeated before pairing.
// The item row is no exception:
// a single-item tree has the same root
// as a tree of that item twice,
// never a bare leaf as the root.
// The items slice is not modified even then.
//
// An empty items slice returns [ErrNoItems].
func BuildTree(items [][]byte, cfg TreeConfig) (*Tree, error) {
	if cfg.Hasher == nil {
		panic(fmt.Errorf("BUG: TreeConfig.Hasher must not be nil"))
	}
	if cfg.HashSize <= 0 {
		panic(fmt.Errorf(
			"BUG: TreeConfig.HashSize must be positive (got %d)", cfg.HashSize,
		))
	}

	if len(items) == 0 {
		return nil, ErrNoItems
	}

	nItems := len(items)
	items = padEven(items)

	h := cfg.Hasher
	sz := cfg.HashSize

	// Every row's digests share one backing allocation.
	mem := make([]byte, len(items)*sz)
	row := make([]*Node, len(items))
	for i, item := range items {
		start := i * sz
		h.Leaf(item, mem[start:start])
		row[i] = &Node{digest: mem[start : start+sz]}
	}

	levels := [][]*Node{row}

	for len(row) > 1 {
		// Repeating the trailing node reuses the same node value;
		// through the read-only node surface
		// that is indistinguishable from a copy.
		row = padEven(row)
		levels[len(levels)-1] = row

		parents := make([]*Node, len(row)/2)
		mem = make([]byte, len(parents)*sz)
		for i := range parents {
			left, right := row[2*i], row[2*i+1]

			start := i * sz
			h.Node(left.digest, right.digest, mem[start:start])
			parents[i] = &Node{
				digest: mem[start : start+sz],
				left:   left,
				right:  right,
			}
		}

		row = parents
		levels = append(levels, row)
	}

	return &Tree{
		root:     row[0],
		levels:   levels,
		nItems:   nItems,
		hasher:   h,
		hashSize: sz,
	}, nil
}

// Root returns the root node.
func (t *Tree) Root() *Node { return t.root }

// RootDigest returns the root node's digest,
// the tree's commitment to the entire item sequence.
//
// The returned slice references the tree's backing memory
// and must not be modified.
func (t *Tree) RootDigest() Digest { return t.root.digest }

// LeafCount returns the number of items the tree was built from,
// not counting padding duplicates.
func (t *Tree) LeafCount() int { return t.nItems }

// Height returns the number of edges between a leaf and the root.
// Padding gives every leaf the same depth,
// so Height is also the entry count of every proof.
func (t *Tree) Height() int { return len(t.levels) - 1 }

// padEven returns s, extended with a repeat of its final element
// if the element count was odd.
// The extension never writes into s's backing array.
func padEven[E any](s []E) []E {
	if len(s)%2 == 0 {
		return s
	}
	return append(s[:len(s):len(s)], s[len(s)-1])
}
