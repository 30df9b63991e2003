package scale

import (
	"bytes"
	"fmt"

	"github.com/gordian-engine/scale/schash"
)

// ProofEntry is one step of an inclusion proof:
// the digest of the path's sibling node at one level,
// and which side of the path that sibling sat on.
type ProofEntry struct {
	Sibling Digest

	// Left is true when the sibling is the left operand
	// of the combining hash at this level.
	Left bool
}

// Proof is an inclusion proof for one leaf,
// ordered from the leaf's immediate sibling
// up to the sibling just below the root.
//
// Sibling digests reference the backing memory
// of the tree that produced the proof,
// and must not be modified.
type Proof []ProofEntry

// Prove returns the inclusion proof for the leaf
// whose digest matches the hash of item.
//
// The search is depth-first from the root, left child first,
// so an item that appears more than once
// resolves to its leftmost leaf.
// Use [*Tree.ProveAt] to address a specific occurrence.
//
// If no leaf matches, Prove returns [ErrLeafNotFound].
func (t *Tree) Prove(item []byte) (Proof, error) {
	target := make([]byte, t.hashSize)
	t.hasher.Leaf(item, target[:0])

	proof := make(Proof, 0, t.Height())
	if !searchProof(t.root, target, &proof) {
		return nil, ErrLeafNotFound
	}
	return proof, nil
}

// searchProof reports whether the leaf matching target is under n,
// appending each level's sibling entry to proof
// as the recursion unwinds on success.
func searchProof(n *Node, target Digest, proof *Proof) bool {
	if n.left == nil {
		return bytes.Equal(n.digest, target)
	}

	if searchProof(n.left, target, proof) {
		*proof = append(*proof, ProofEntry{Sibling: n.right.digest})
		return true
	}
	if searchProof(n.right, target, proof) {
		*proof = append(*proof, ProofEntry{Sibling: n.left.digest, Left: true})
		return true
	}
	return false
}

// ProveAt returns the inclusion proof for the leaf at index i,
// counting original items only;
// the padding duplicate of the final item is not addressable.
//
// Unlike [*Tree.Prove], ProveAt never inspects item bytes,
// so it distinguishes between leaves holding identical items.
// An out-of-range index panics.
func (t *Tree) ProveAt(i int) Proof {
	if i < 0 || i >= t.nItems {
		panic(fmt.Errorf(
			"BUG: leaf index must be in [0, %d) (got %d)", t.nItems, i,
		))
	}

	proof := make(Proof, 0, t.Height())
	for _, row := range t.levels[:len(t.levels)-1] {
		sib := i ^ 1
		proof = append(proof, ProofEntry{
			Sibling: row[sib].digest,
			Left:    sib < i,
		})
		i >>= 1
	}
	return proof
}

// Verify reports whether proof shows that item
// is a member of t's item sequence.
// It is shorthand for [VerifyProof]
// with t's own hasher and root digest.
func (t *Tree) Verify(item []byte, proof Proof) bool {
	return VerifyProof(t.hasher, t.root.digest, item, proof)
}

// VerifyProof replays proof from item upward,
// reporting whether the replay reproduces root.
//
// The fold starts from the hash of item;
// each entry combines the running digest with the entry's sibling,
// ordered by the entry's Left flag.
// A third party holding only the hasher, the root digest,
// the claimed item, and the proof
// can verify membership without the tree.
//
// Verification never returns an error:
// a malformed, truncated, or empty proof
// simply fails to reproduce root.
func VerifyProof(h schash.Hasher, root Digest, item []byte, proof Proof) bool {
	if h == nil {
		panic(fmt.Errorf("BUG: hasher must not be nil"))
	}
	if len(root) == 0 {
		// Without this check, a digest-producing fold
		// could never match but an empty comparison would.
		return false
	}

	sz := len(root)
	cur := make([]byte, sz)
	next := make([]byte, sz)

	h.Leaf(item, cur[:0])

	for _, e := range proof {
		if e.Left {
			h.Node(e.Sibling, cur, next[:0])
		} else {
			h.Node(cur, e.Sibling, next[:0])
		}
		cur, next = next, cur
	}

	return bytes.Equal(cur, root)
}
