package schashtest

import (
	"sync"
	"testing"

	"github.com/gordian-engine/scale/schash"
	"github.com/stretchr/testify/require"
)

type HasherFactory func() (h schash.Hasher, hashSize int)

func TestHasherCompliance(t *testing.T, f HasherFactory) {
	t.Run("leaf is deterministic", func(t *testing.T) {
		t.Parallel()

		h, sz := f()

		dst01 := make([]byte, sz)
		h.Leaf([]byte("deterministic_data"), dst01[:0])

		dst02 := make([]byte, sz)
		h.Leaf([]byte("deterministic_data"), dst02[:0])

		require.Equal(t, dst01, dst02)
	})

	t.Run("leaf respects input", func(t *testing.T) {
		t.Parallel()

		h, sz := f()

		dst01 := make([]byte, sz)
		h.Leaf([]byte("input_1"), dst01[:0])

		dst02 := make([]byte, sz)
		h.Leaf([]byte("input_2"), dst02[:0])

		require.NotEqual(t, dst01, dst02)
	})

	t.Run("leaf appends exactly the stated size", func(t *testing.T) {
		t.Parallel()

		h, sz := f()

		// Fill double-width backing memory with a sentinel,
		// so writes past the stated hash size are observable.
		buf := make([]byte, 2*sz)
		for i := range buf {
			buf[i] = 0xa5
		}
		h.Leaf([]byte("sized_data"), buf[:0])

		exp := make([]byte, sz)
		h.Leaf([]byte("sized_data"), exp[:0])
		require.Equal(t, exp, buf[:sz])

		for i := sz; i < 2*sz; i++ {
			require.Equal(t, byte(0xa5), buf[i])
		}
	})

	t.Run("leaf appends after existing dst content", func(t *testing.T) {
		t.Parallel()

		h, sz := f()

		prefix := []byte("already_written")
		buf := make([]byte, len(prefix), len(prefix)+sz)
		copy(buf, prefix)

		h.Leaf([]byte("appended_data"), buf)
		full := buf[:len(prefix)+sz]

		require.Equal(t, prefix, full[:len(prefix)])

		exp := make([]byte, sz)
		h.Leaf([]byte("appended_data"), exp[:0])
		require.Equal(t, exp, full[len(prefix):])
	})

	t.Run("node is deterministic", func(t *testing.T) {
		t.Parallel()

		h, sz := f()

		left := make([]byte, sz)
		h.Leaf([]byte("left_data"), left[:0])
		right := make([]byte, sz)
		h.Leaf([]byte("right_data"), right[:0])

		dst01 := make([]byte, sz)
		h.Node(left, right, dst01[:0])

		dst02 := make([]byte, sz)
		h.Node(left, right, dst02[:0])

		require.Equal(t, dst01, dst02)
	})

	t.Run("node respects operand order", func(t *testing.T) {
		t.Parallel()

		h, sz := f()

		left := make([]byte, sz)
		h.Leaf([]byte("left_data"), left[:0])
		right := make([]byte, sz)
		h.Leaf([]byte("right_data"), right[:0])

		dst01 := make([]byte, sz)
		h.Node(left, right, dst01[:0])

		dst02 := make([]byte, sz)
		h.Node(right, left, dst02[:0])

		require.NotEqual(t, dst01, dst02)
	})

	t.Run("node matches leaf over concatenated input", func(t *testing.T) {
		t.Parallel()

		h, sz := f()

		left := make([]byte, sz)
		h.Leaf([]byte("left_data"), left[:0])
		right := make([]byte, sz)
		h.Leaf([]byte("right_data"), right[:0])

		viaNode := make([]byte, sz)
		h.Node(left, right, viaNode[:0])

		cat := make([]byte, 0, 2*sz)
		cat = append(cat, left...)
		cat = append(cat, right...)
		viaLeaf := make([]byte, sz)
		h.Leaf(cat, viaLeaf[:0])

		require.Equal(t, viaLeaf, viaNode)
	})

	t.Run("safe for concurrent use", func(t *testing.T) {
		t.Parallel()

		h, sz := f()

		exp := make([]byte, sz)
		h.Leaf([]byte("concurrent_data"), exp[:0])

		var wg sync.WaitGroup
		results := make([][]byte, 8)
		for i := range results {
			wg.Add(1)
			go func() {
				defer wg.Done()

				dst := make([]byte, sz)
				h.Leaf([]byte("concurrent_data"), dst[:0])
				results[i] = dst
			}()
		}
		wg.Wait()

		for _, got := range results {
			require.Equal(t, exp, got)
		}
	})
}
