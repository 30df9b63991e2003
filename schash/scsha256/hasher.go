package scsha256

import (
	sha256 "github.com/minio/sha256-simd"
)

const HashSize = sha256.Size

// Hasher is a [schash.Hasher] backed by SHA256 hashes.
//
// The underlying implementation dispatches to SHA extensions
// or AVX512 routines when the CPU has them.
type Hasher struct{}

func (Hasher) Leaf(in []byte, dst []byte) {
	h := sha256.New()
	_, _ = h.Write(in)
	h.Sum(dst)
}

func (Hasher) Node(left, right []byte, dst []byte) {
	h := sha256.New()
	_, _ = h.Write(left)
	_, _ = h.Write(right)
	h.Sum(dst)
}
