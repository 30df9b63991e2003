package scale

import "errors"

// ErrNoItems is returned by [BuildTree] when given an empty item sequence.
// An empty tree has no defined root digest.
var ErrNoItems = errors.New("cannot build a tree from zero items")

// ErrLeafNotFound is returned by [*Tree.Prove] when no leaf digest
// matches the hash of the queried item.
// Absence is an expected outcome, not a fault;
// callers distinguish it with [errors.Is].
var ErrLeafNotFound = errors.New("no leaf matches the given item")
