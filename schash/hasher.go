package schash

// Hasher is the digest function backing a Merkle tree.
// The tree passes raw item data to the Leaf method to create a leaf digest,
// and it passes digests from earlier calls to the Node method.
//
// To be allocation-efficient, the Hasher implementation
// must append its hash output to dst, instead of creating a new byte slice.
// Hasher must not retain references to the dst slice.
//
// Node must produce the same digest as Leaf applied to
// the concatenation of left and right;
// the tree relies on this to keep a duplicated trailing item
// and an explicitly repeated one indistinguishable at the root.
//
// Furthermore, Hasher methods must be safe to call concurrently.
type Hasher interface {
	Leaf(in []byte, dst []byte)
	Node(left, right []byte, dst []byte)
}
