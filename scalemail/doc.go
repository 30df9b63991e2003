// Package scalemail binds byte payloads to Merkle roots
// through erasure-coded shards.
//
// The sender splits a payload with Reed-Solomon coding
// and commits to every shard with a single tree (see [Commit]).
// A receiver holding only the commitment metadata
// verifies shards one at a time as they arrive,
// and reconstructs the payload once any DataShards of them
// have been confirmed (see [Gatherer]).
// Parity shards extend rather than dilute the commitment:
// every shard carries its own inclusion proof against the same root.
package scalemail
