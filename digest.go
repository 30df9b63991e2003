package scale

import (
	"bytes"
	"encoding/hex"
)

// Digest is the fixed-length output of a hash function,
// as held by every node in a [Tree].
type Digest []byte

// String returns the lowercase hexadecimal encoding of d.
func (d Digest) String() string {
	return hex.EncodeToString(d)
}

// Equal reports whether d and other contain the same bytes.
func (d Digest) Equal(other Digest) bool {
	return bytes.Equal(d, other)
}
