package scale_test

import (
	"fmt"
	"math/rand/v2"
	"sync"
	"testing"

	"github.com/gordian-engine/scale"
	"github.com/gordian-engine/scale/schash/scsha256"
	"github.com/stretchr/testify/require"
)

// This test implicitly covers that a variety of item counts do not panic.
//
// Other tests assert behavior of other methods.
func TestNewPartialTree(t *testing.T) {
	t.Parallel()

	for n := 1; n < 18; n++ {
		t.Run(fmt.Sprintf("nItems = %d", n), func(t *testing.T) {
			t.Parallel()

			fullTree, pt := NewTestPartialTree(t, n)

			require.Equal(t, fullTree.Height(), pt.Height())
			require.Equal(t, n, pt.LeafCount())
			require.True(t, fullTree.RootDigest().Equal(pt.RootDigest()))

			require.Equal(t, 0, pt.NumConfirmed())
			require.False(t, pt.Complete())
		})
	}
}

func TestPartialTree_AddItem_8_2(t *testing.T) {
	t.Parallel()

	fullTree, pt := NewTestPartialTree(t, 8)

	// The index is derived from the proof, not stated by the caller.
	idx, err := pt.AddItem(fixtureLeafData[2], fullTree.ProveAt(2))
	require.NoError(t, err)
	require.Equal(t, 2, idx)

	require.True(t, pt.HasLeaf(2))
	require.Equal(t, 1, pt.NumConfirmed())
	require.False(t, pt.Complete())

	// Adding it a second time results in ErrAlreadyVerified.
	idx, err = pt.AddItem(fixtureLeafData[2], fullTree.ProveAt(2))
	require.ErrorIs(t, err, scale.ErrAlreadyVerified)
	require.Equal(t, 2, idx)

	// And trying to add different data under the same proof
	// returns the appropriate error.
	idx, err = pt.AddItem([]byte("wrong"), fullTree.ProveAt(2))
	require.ErrorIs(t, err, scale.ErrItemMismatch)
	require.Equal(t, 2, idx)
}

func TestPartialTree_AddItem_5_4(t *testing.T) {
	t.Parallel()

	/* Tree layout, with repeats at the leaf and middle levels:

	01234444
	0123 4444
	01 23 44 44
	0 1 2 3 4 4 4 4

	*/

	fullTree, pt := NewTestPartialTree(t, 5)

	// Item four's path runs through both padded levels.
	idx, err := pt.AddItem(fixtureLeafData[4], fullTree.ProveAt(4))
	require.NoError(t, err)
	require.Equal(t, 4, idx)
	require.True(t, pt.HasLeaf(4))
}

func TestPartialTree_AddItem_shuffled_sequences(t *testing.T) {
	t.Parallel()

	for n := 1; n < 18; n++ {
		t.Run(fmt.Sprintf("nItems = %d", n), func(t *testing.T) {
			t.Parallel()

			fullTree, pt := NewTestPartialTree(t, n)

			// Use a fixed seed per test,
			// so we can add leaves in a deterministic pseudorandom order.
			var seed [32]byte
			copy(seed[:], t.Name())
			rng := rand.New(rand.NewChaCha8(seed))

			leafIdxs := make([]int, n)
			for i := range leafIdxs {
				leafIdxs[i] = i
			}
			rng.Shuffle(len(leafIdxs), func(i, j int) {
				leafIdxs[i], leafIdxs[j] = leafIdxs[j], leafIdxs[i]
			})

			for _, li := range leafIdxs {
				idx, err := pt.AddItem(fixtureLeafData[li], fullTree.ProveAt(li))
				require.NoError(t, err)
				require.Equal(t, li, idx)
			}

			require.Equal(t, n, pt.NumConfirmed())
			require.True(t, pt.Complete())
		})
	}
}

func TestPartialTree_AddItem_reuses_confirmed_digests(t *testing.T) {
	t.Parallel()

	fullTree, pt := NewTestPartialTree(t, 8)

	// Confirming item two also stores its sibling's digest,
	// learned from the proof, at leaf slot three.
	_, err := pt.AddItem(fixtureLeafData[2], fullTree.ProveAt(2))
	require.NoError(t, err)

	// Item three's fold now stops at its own trusted leaf slot,
	// so the proof's sibling digests are never read.
	// Only the orientation flags matter, to derive the index.
	honest := fullTree.ProveAt(3)
	garbage := make(scale.Proof, len(honest))
	for k, e := range honest {
		junk := make(scale.Digest, len(e.Sibling))
		for i := range junk {
			junk[i] = 0xee
		}
		garbage[k] = scale.ProofEntry{Sibling: junk, Left: e.Left}
	}

	idx, err := pt.AddItem(fixtureLeafData[3], garbage)
	require.NoError(t, err)
	require.Equal(t, 3, idx)
	require.Equal(t, 2, pt.NumConfirmed())
}

func TestPartialTree_AddItem_wrong_proof_length(t *testing.T) {
	t.Parallel()

	fullTree, pt := NewTestPartialTree(t, 8)

	proof := fullTree.ProveAt(1)

	_, err := pt.AddItem(fixtureLeafData[1], proof[:len(proof)-1])
	require.ErrorIs(t, err, scale.ErrProofLength)

	long := append(append(scale.Proof(nil), proof...), proof[0])
	_, err = pt.AddItem(fixtureLeafData[1], long)
	require.ErrorIs(t, err, scale.ErrProofLength)

	_, err = pt.AddItem(fixtureLeafData[1], nil)
	require.ErrorIs(t, err, scale.ErrProofLength)
}

func TestPartialTree_AddItem_corrupt_sibling(t *testing.T) {
	t.Parallel()

	fullTree, pt := NewTestPartialTree(t, 8)

	proof := append(scale.Proof(nil), fullTree.ProveAt(5)...)
	proof[1].Sibling = append(scale.Digest(nil), proof[1].Sibling...)
	proof[1].Sibling[0] ^= 0xff

	_, err := pt.AddItem(fixtureLeafData[5], proof)
	require.ErrorContains(t, err, "digest mismatch")

	// A failed fold stores nothing.
	require.False(t, pt.HasLeaf(5))
	require.Equal(t, 0, pt.NumConfirmed())
}

func TestPartialTree_AddItem_padding_alias_3_2(t *testing.T) {
	t.Parallel()

	/* Tree layout, with the trailing item repeated:

	0122
	01 22
	0 1 2 2

	*/

	fullTree, pt := NewTestPartialTree(t, 3)

	// Item two's duplicate means a proof may address either copy;
	// the digests along both routes are identical.
	// Flipping the leaf-level flag routes through the duplicate slot,
	// and the derived index clamps back to the real leaf.
	alias := append(scale.Proof(nil), fullTree.ProveAt(2)...)
	require.False(t, alias[0].Left)
	alias[0].Left = true

	idx, err := pt.AddItem(fixtureLeafData[2], alias)
	require.NoError(t, err)
	require.Equal(t, 2, idx)
	require.True(t, pt.HasLeaf(2))
}

func TestPartialTree_AddItem_1_0(t *testing.T) {
	t.Parallel()

	fullTree, pt := NewTestPartialTree(t, 1)

	idx, err := pt.AddItem(fixtureLeafData[0], fullTree.ProveAt(0))
	require.NoError(t, err)
	require.Equal(t, 0, idx)
	require.True(t, pt.Complete())

	// The lone item's proof names its own duplicate as the sibling,
	// so a flipped flag still clamps to index zero.
	alias := append(scale.Proof(nil), fullTree.ProveAt(0)...)
	alias[0].Left = true

	idx, err = pt.AddItem(fixtureLeafData[0], alias)
	require.ErrorIs(t, err, scale.ErrAlreadyVerified)
	require.Equal(t, 0, idx)
}

func TestPartialTree_LeafIndexOf(t *testing.T) {
	t.Parallel()

	fullTree, pt := NewTestPartialTree(t, 5)

	for i := range 5 {
		idx, err := pt.LeafIndexOf(fullTree.ProveAt(i))
		require.NoError(t, err)
		require.Equal(t, i, idx)
	}

	// No digests are checked, so indexing never confirms anything.
	require.Equal(t, 0, pt.NumConfirmed())

	_, err := pt.LeafIndexOf(nil)
	require.ErrorIs(t, err, scale.ErrProofLength)
}

func TestPartialTree_HasLeaf_bounds(t *testing.T) {
	t.Parallel()

	_, pt := NewTestPartialTree(t, 4)

	require.False(t, pt.HasLeaf(-1))
	require.False(t, pt.HasLeaf(4))
}

func TestPartialTree_concurrent_reads_when_complete(t *testing.T) {
	t.Parallel()

	fullTree, pt := NewTestPartialTree(t, 5)
	for i := range 5 {
		_, err := pt.AddItem(fixtureLeafData[i], fullTree.ProveAt(i))
		require.NoError(t, err)
	}
	require.True(t, pt.Complete())

	// Once accumulation has finished, reads may overlap freely;
	// running this test with the race detector proves
	// that no read path mutates tree state.
	// Each goroutine records the root it observed,
	// leaving its slot nil if any read saw the wrong state.
	roots := make([]scale.Digest, 4)

	var wg sync.WaitGroup
	for gi := range roots {
		wg.Add(1)
		go func() {
			defer wg.Done()

			if !pt.Complete() || pt.NumConfirmed() != 5 {
				return
			}
			for i := range 5 {
				if !pt.HasLeaf(i) {
					return
				}
			}
			if idx, err := pt.LeafIndexOf(fullTree.ProveAt(gi)); err != nil || idx != gi {
				return
			}

			roots[gi] = pt.RootDigest()
		}()
	}
	wg.Wait()

	for _, root := range roots {
		require.True(t, fullTree.RootDigest().Equal(root))
	}
}

func NewTestPartialTree(t *testing.T, nItems int) (*scale.Tree, *scale.PartialTree) {
	t.Helper()

	fullTree, err := scale.BuildTree(fixtureLeafData[:nItems], sha256Config())
	require.NoError(t, err)

	pt := scale.NewPartialTree(scale.PartialTreeConfig{
		Root:      fullTree.RootDigest(),
		LeafCount: nItems,

		Hasher:   scsha256.Hasher{},
		HashSize: scsha256.HashSize,
	})

	return fullTree, pt
}

var fixtureLeafData = [][]byte{
	[]byte("zero"),
	[]byte("one"),
	[]byte("two"),
	[]byte("three"),
	[]byte("four"),
	[]byte("five"),
	[]byte("six"),
	[]byte("seven"),
	[]byte("eight"),
	[]byte("nine"),
	[]byte("ten"),
	[]byte("eleven"),
	[]byte("twelve"),
	[]byte("thirteen"),
	[]byte("fourteen"),
	[]byte("fifteen"),
	[]byte("sixteen"),
	[]byte("seventeen"),
}
