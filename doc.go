// Package scale provides a binary Merkle hash tree:
// build a tree from an ordered sequence of byte items,
// produce an inclusion proof for an item,
// and verify that proof against the tree's root digest.
//
// Trees are immutable once built;
// any change to the item sequence requires a full rebuild through [BuildTree].
// Whenever a level of the tree has an odd element count,
// the trailing element is repeated before pairing,
// so every non-leaf node has exactly two children
// and every leaf sits at the same depth.
//
// Each [ProofEntry] records which side its sibling digest sat on,
// so verification reproduces the exact concatenation order
// used during construction.
// A proof for a leaf that is a right child at some level
// cannot verify without that orientation.
//
// The digest function is pluggable through the schash package;
// schash/scsha256 and schash/scsha3 provide ready implementations.
package scale
