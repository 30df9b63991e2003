package scalemail

import (
	"errors"
	"fmt"

	"github.com/gordian-engine/scale"
	"github.com/gordian-engine/scale/schash"
	"github.com/klauspost/reedsolomon"
)

// ErrEmptyPayload is returned by [Commit] when given no payload bytes.
var ErrEmptyPayload = errors.New("cannot commit an empty payload")

// CommitConfig is the configuration for [Commit].
type CommitConfig struct {
	// How many payload-bearing shards to split the payload into.
	DataShards int

	// How many parity shards to add.
	// With parity present, any DataShards of the total shards
	// suffice to reconstruct the payload.
	ParityShards int

	// How to hash shards into the commitment tree.
	Hasher schash.Hasher

	// The size, in bytes, of digests produced by Hasher.
	HashSize int
}

// Commitment binds a payload to a single root digest
// through its erasure-coded shards.
//
// Root, PayloadSize, and the shard counts are the metadata
// a receiver needs up front (see [GatherConfig]);
// shards and proofs are distributed individually.
type Commitment struct {
	// Root digest of the Merkle tree over all shards, in order.
	Root scale.Digest

	// The byte length of the original payload.
	// Reed-Solomon shards are equally sized,
	// so the trailing data shard may carry zero padding
	// that reconstruction trims away.
	PayloadSize int

	DataShards, ParityShards int

	// Data shards followed by parity shards.
	Shards [][]byte

	// Proofs[i] is the inclusion proof for Shards[i].
	// Proof digests reference the commitment tree's backing memory
	// and must not be modified.
	Proofs []scale.Proof
}

// Commit splits payload into erasure-coded shards,
// builds a Merkle tree over all of them in order,
// and returns the tree's root
// together with every shard and its inclusion proof.
//
// Proofs are generated by shard index rather than by content,
// so equal shards (duplicated data, zeroed regions)
// still receive proofs bound to their own positions.
func Commit(payload []byte, cfg CommitConfig) (Commitment, error) {
	if cfg.DataShards < 1 {
		panic(fmt.Errorf(
			"BUG: CommitConfig.DataShards must be positive (got %d)", cfg.DataShards,
		))
	}
	if cfg.ParityShards < 0 {
		panic(fmt.Errorf(
			"BUG: CommitConfig.ParityShards must be non-negative (got %d)", cfg.ParityShards,
		))
	}
	if cfg.Hasher == nil {
		panic(fmt.Errorf("BUG: CommitConfig.Hasher must not be nil"))
	}
	if cfg.HashSize < 1 {
		panic(fmt.Errorf(
			"BUG: CommitConfig.HashSize must be positive (got %d)", cfg.HashSize,
		))
	}

	if len(payload) == 0 {
		return Commitment{}, ErrEmptyPayload
	}

	shardSize := (len(payload) + cfg.DataShards - 1) / cfg.DataShards
	enc, err := reedsolomon.New(
		cfg.DataShards, cfg.ParityShards,
		reedsolomon.WithAutoGoroutines(shardSize),
	)
	if err != nil {
		return Commitment{}, fmt.Errorf(
			"failed to build Reed-Solomon encoder: %w", err,
		)
	}

	shards, err := enc.Split(payload)
	if err != nil {
		return Commitment{}, fmt.Errorf(
			"failed to split payload into shards: %w", err,
		)
	}

	if err := enc.Encode(shards); err != nil {
		return Commitment{}, fmt.Errorf(
			"failed to erasure-code shards: %w", err,
		)
	}

	// Now that the parity is in place,
	// the tree can commit to the full shard set.
	t, err := scale.BuildTree(shards, scale.TreeConfig{
		Hasher:   cfg.Hasher,
		HashSize: cfg.HashSize,
	})
	if err != nil {
		return Commitment{}, fmt.Errorf(
			"failed to build commitment tree: %w", err,
		)
	}

	proofs := make([]scale.Proof, len(shards))
	for i := range shards {
		proofs[i] = t.ProveAt(i)
	}

	return Commitment{
		Root:        t.RootDigest(),
		PayloadSize: len(payload),

		DataShards:   cfg.DataShards,
		ParityShards: cfg.ParityShards,

		Shards: shards,
		Proofs: proofs,
	}, nil
}
