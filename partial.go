package scale

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/bits-and-blooms/bitset"
	"github.com/gordian-engine/scale/schash"
)

// PartialTree is a partially known Merkle tree,
// populated one item at a time with an accompanying proof,
// against a root digest trusted from construction.
//
// This type does not hold references to any item data.
// Use [*PartialTree.AddItem] to confirm an item and its proof,
// and store the item data externally.
//
// [*PartialTree.AddItem] mutates the tree,
// so callers must serialize it with every other method.
// Once no more items are being added,
// the remaining methods are read-only and safe for concurrent use.
type PartialTree struct {
	// Digest slots for every node of the padded tree,
	// one view per node over a single backing allocation.
	// Level k occupies slots offsets[k] through offsets[k]+widths[k].
	nodes [][]byte

	// Padded node count per level, leaf row first.
	widths []int

	// Node count per level before padding.
	// A level with realWidths[k] < widths[k] ends in a duplicate slot
	// that mirrors the slot before it.
	realWidths []int

	// Slot index where each level begins.
	offsets []int

	// Which node slots hold digests we trust.
	haveNodes *bitset.BitSet

	// Which leaves have been confirmed with item data;
	// distinct from haveNodes, as a leaf digest may be known
	// from a sibling's proof without having seen the item itself.
	haveLeaves *bitset.BitSet

	nItems int

	hasher   schash.Hasher
	hashSize int
}

// PartialTreeConfig contains all the details for [NewPartialTree].
type PartialTreeConfig struct {
	// The trusted root digest that every added item must fold up to.
	Root Digest

	// The number of items committed by Root,
	// not counting padding duplicates.
	LeafCount int

	Hasher   schash.Hasher
	HashSize int
}

func NewPartialTree(cfg PartialTreeConfig) *PartialTree {
	if cfg.Hasher == nil {
		panic(fmt.Errorf("BUG: PartialTreeConfig.Hasher must not be nil"))
	}
	if cfg.LeafCount < 1 {
		panic(fmt.Errorf(
			"BUG: PartialTreeConfig.LeafCount must be positive (got %d)",
			cfg.LeafCount,
		))
	}
	if len(cfg.Root) != cfg.HashSize {
		panic(fmt.Errorf(
			"BUG: root digest must be %d bytes (got %d)",
			cfg.HashSize, len(cfg.Root),
		))
	}

	widths, realWidths := levelWidths(cfg.LeafCount)

	offsets := make([]int, len(widths))
	total := 0
	for k, w := range widths {
		offsets[k] = total
		total += w
	}

	mem := make([]byte, total*cfg.HashSize)
	nodes := make([][]byte, total)
	for i := range nodes {
		start := i * cfg.HashSize
		nodes[i] = mem[start : start+cfg.HashSize]
	}

	pt := &PartialTree{
		nodes: nodes,

		widths:     widths,
		realWidths: realWidths,
		offsets:    offsets,

		haveNodes:  bitset.MustNew(uint(total)),
		haveLeaves: bitset.MustNew(uint(cfg.LeafCount)),

		nItems: cfg.LeafCount,

		hasher:   cfg.Hasher,
		hashSize: cfg.HashSize,
	}

	// The root is the one digest trusted up front.
	copy(pt.nodes[total-1], cfg.Root)
	pt.haveNodes.Set(uint(total - 1))

	return pt
}

// levelWidths returns the padded and pre-padding node counts per level
// for a tree over nItems original items,
// from the leaf row up to the single root.
// It applies the same trailing-repeat rule as [BuildTree],
// including padding a single item to a pair.
func levelWidths(nItems int) (widths, realWidths []int) {
	w := nItems
	if w%2 == 1 {
		w++
	}

	rw := nItems
	for {
		widths = append(widths, w)
		realWidths = append(realWidths, rw)
		if w == 1 {
			return widths, realWidths
		}

		rw = w / 2
		w = rw
		if w > 1 && w%2 == 1 {
			w++
		}
	}
}

var ErrProofLength = errors.New("proof length does not match tree height")

var ErrAlreadyVerified = errors.New("leaf was already confirmed with this item")

var ErrItemMismatch = errors.New("item does not match already confirmed leaf")

// pathPositions returns the node position at every level below the root
// that proof's orientation flags address,
// read from just below the root back down to the leaf row.
//
// A position landing on a level's duplicate slot is clamped
// to the slot it mirrors: the digests are identical,
// so a proof routed through the padding copy
// addresses the same leaf as one routed through the original.
func (t *PartialTree) pathPositions(proof Proof) []int {
	pos := make([]int, len(proof))
	p := 0
	for k := len(proof) - 1; k >= 0; k-- {
		p <<= 1
		if proof[k].Left {
			p++
		}
		if p >= t.realWidths[k] {
			p = t.realWidths[k] - 1
		}
		pos[k] = p
	}
	return pos
}

// LeafIndexOf returns the leaf index that proof's orientation flags
// address, without verifying any digests.
// Callers that must match a proof against an externally claimed index
// can reject a mismatch before doing any hashing.
//
// A proof whose length differs from [*PartialTree.Height]
// returns [ErrProofLength].
func (t *PartialTree) LeafIndexOf(proof Proof) (int, error) {
	if len(proof) != t.Height() {
		return 0, ErrProofLength
	}
	return t.pathPositions(proof)[0], nil
}

// AddItem confirms that item belongs to the committed tree,
// returning the leaf index that proof binds the item to.
// The index is derived from the proof's orientation flags,
// so callers learn each item's position without trusting the sender.
//
// A proof whose length differs from [*PartialTree.Height]
// returns [ErrProofLength] before anything else is inspected.
// Confirming the same leaf twice returns [ErrAlreadyVerified]
// when the item matches the first confirmation,
// and [ErrItemMismatch] when it does not;
// both report the conflicting leaf's index alongside the error.
// A proof that fails to fold up to a trusted digest
// returns a descriptive error and stores nothing.
//
// Digests proven on the way to a trusted ancestor are retained,
// so later items sharing part of the path fold fewer levels.
func (t *PartialTree) AddItem(item []byte, proof Proof) (int, error) {
	if len(proof) != t.Height() {
		return 0, ErrProofLength
	}

	pos := t.pathPositions(proof)
	leafIdx := pos[0]

	leafHash := make([]byte, t.hashSize)
	t.hasher.Leaf(item, leafHash[:0])

	if t.haveLeaves.Test(uint(leafIdx)) {
		if !bytes.Equal(t.nodes[leafIdx], leafHash) {
			return leafIdx, ErrItemMismatch
		}
		return leafIdx, ErrAlreadyVerified
	}

	// Find the nearest trusted node on the path, starting at the leaf slot;
	// the fold only needs to run up to there.
	// The root is always trusted, so the scan cannot miss.
	stopLevel := len(t.widths) - 1
	var expected []byte
	for k := range t.widths {
		q := 0
		if k < len(pos) {
			q = pos[k]
		}
		if t.haveNodes.Test(uint(t.offsets[k] + q)) {
			stopLevel = k
			expected = t.nodes[t.offsets[k]+q]
			break
		}
	}

	// One backing slice holds the leaf digest
	// and every digest computed on the way up.
	computed := make([]byte, (stopLevel+1)*t.hashSize)
	copy(computed, leafHash)

	for k := 0; k < stopLevel; k++ {
		cur := computed[k*t.hashSize : (k+1)*t.hashSize]

		// Zero-length slice, because the Hasher appends to the destination.
		dst := computed[(k+1)*t.hashSize : (k+1)*t.hashSize]

		if proof[k].Left {
			t.hasher.Node(proof[k].Sibling, cur, dst)
		} else {
			t.hasher.Node(cur, proof[k].Sibling, dst)
		}
	}

	final := computed[stopLevel*t.hashSize:]
	if !bytes.Equal(final, expected) {
		return leafIdx, fmt.Errorf(
			"AddItem: digest mismatch at level %d: calculated %x, expected %x",
			stopLevel, final, expected,
		)
	}

	// The fold reached a trusted digest,
	// so the computed path and the siblings that shaped it
	// are now trusted too.
	// Proof entries above the stop level were not part of the fold
	// and are discarded unverified.
	for k := 0; k < stopLevel; k++ {
		idx := t.offsets[k] + pos[k]
		copy(t.nodes[idx], computed[k*t.hashSize:(k+1)*t.hashSize])
		t.haveNodes.Set(uint(idx))

		sibIdx := t.offsets[k] + (pos[k] ^ 1)
		copy(t.nodes[sibIdx], proof[k].Sibling)
		t.haveNodes.Set(uint(sibIdx))
	}

	t.haveLeaves.Set(uint(leafIdx))
	return leafIdx, nil
}

// HasLeaf reports whether the leaf at index i has been confirmed
// via [*PartialTree.AddItem].
//
// HasLeaf reports false if i is out of bounds.
func (t *PartialTree) HasLeaf(i int) bool {
	if i < 0 || i >= t.nItems {
		return false
	}
	return t.haveLeaves.Test(uint(i))
}

// NumConfirmed returns how many distinct leaves have been confirmed.
func (t *PartialTree) NumConfirmed() int {
	return int(t.haveLeaves.Count())
}

// Complete reports whether every leaf has been confirmed.
func (t *PartialTree) Complete() bool {
	return t.NumConfirmed() == t.nItems
}

// LeafCount returns the number of items committed by the root digest,
// not counting padding duplicates.
func (t *PartialTree) LeafCount() int { return t.nItems }

// Height returns the number of edges between a leaf and the root,
// which is also the entry count every proof must have.
func (t *PartialTree) Height() int { return len(t.widths) - 1 }

// RootDigest returns the trusted root digest
// the partial tree was configured with.
//
// The returned slice references the tree's backing memory
// and must not be modified.
func (t *PartialTree) RootDigest() Digest {
	return t.nodes[len(t.nodes)-1]
}
