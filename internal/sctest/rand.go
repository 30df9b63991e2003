package sctest

import (
	"crypto/sha256"
	"math/rand/v2"
	"testing"
)

// RandomDataForTest fills a new byte slice of length sz
// with pseudorandom data seeded from t's name,
// so a failing test sees the same payload on every run.
func RandomDataForTest(t *testing.T, sz int) []byte {
	// Hashing the name yields exactly the 32 seed bytes chacha8 wants,
	// without any length restriction on the name itself.
	seed := sha256.Sum256([]byte(t.Name()))

	out := make([]byte, sz)
	if _, err := rand.NewChaCha8(seed).Read(out); err != nil {
		panic(err)
	}

	return out
}
