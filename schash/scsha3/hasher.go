package scsha3

import (
	"golang.org/x/crypto/sha3"
)

const HashSize = 32

// Hasher is a [schash.Hasher] backed by SHA3-256 hashes.
type Hasher struct{}

func (Hasher) Leaf(in []byte, dst []byte) {
	h := sha3.New256()
	_, _ = h.Write(in)
	h.Sum(dst)
}

func (Hasher) Node(left, right []byte, dst []byte) {
	h := sha3.New256()
	_, _ = h.Write(left)
	_, _ = h.Write(right)
	h.Sum(dst)
}
