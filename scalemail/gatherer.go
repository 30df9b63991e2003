package scalemail

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"

	"github.com/gordian-engine/scale"
	"github.com/gordian-engine/scale/schash"
	"github.com/klauspost/reedsolomon"
)

// ErrShardIndexMismatch is returned by [*Gatherer.AddShard]
// when a proof's orientation flags place the shard
// at a different index than the sender claimed.
var ErrShardIndexMismatch = errors.New(
	"proof does not bind the shard to the claimed index",
)

// GatherConfig is the configuration for [NewGatherer]:
// the commitment metadata a receiver holds
// before any shard has arrived.
type GatherConfig struct {
	// The trusted root digest from the commitment.
	Root scale.Digest

	// The byte length of the committed payload.
	PayloadSize int

	DataShards, ParityShards int

	// Must match the hasher the commitment was built with.
	Hasher   schash.Hasher
	HashSize int
}

// validate collects every problem with the configuration in one error,
// since the metadata usually arrives from elsewhere
// and a maximally helpful error beats failing one field at a time.
func (cfg GatherConfig) validate() error {
	var err error

	if len(cfg.Root) != cfg.HashSize {
		err = errors.Join(err, fmt.Errorf(
			"root digest must be %d bytes (got %d)", cfg.HashSize, len(cfg.Root),
		))
	}

	if cfg.PayloadSize < 1 {
		err = errors.Join(err, fmt.Errorf(
			"payload size must be positive (got %d)", cfg.PayloadSize,
		))
	}

	if cfg.DataShards < 1 {
		err = errors.Join(err, fmt.Errorf(
			"data shard count must be positive (got %d)", cfg.DataShards,
		))
	}

	if cfg.ParityShards < 0 {
		err = errors.Join(err, fmt.Errorf(
			"parity shard count must be non-negative (got %d)", cfg.ParityShards,
		))
	}

	if cfg.Hasher == nil {
		err = errors.Join(err, errors.New("hasher must not be nil"))
	}

	if cfg.HashSize < 1 {
		err = errors.Join(err, fmt.Errorf(
			"hash size must be positive (got %d)", cfg.HashSize,
		))
	}

	return err
}

// Gatherer accumulates individually verified shards
// until enough have been confirmed to reconstruct the payload.
//
// Shards typically arrive from untrusted senders,
// so [*Gatherer.AddShard] returns errors instead of panicking
// on malformed input.
//
// Methods on Gatherer must not be called concurrently.
type Gatherer struct {
	log *slog.Logger

	// Tracks which shard digests have been proven against the root.
	pt *scale.PartialTree

	enc reedsolomon.Encoder

	// Data then parity slots; nil until the shard is confirmed.
	shards [][]byte

	payloadSize int

	nData, nParity int

	hasher   schash.Hasher
	hashSize int
}

// NewGatherer returns a Gatherer tracking the commitment
// described by cfg.
func NewGatherer(log *slog.Logger, cfg GatherConfig) (*Gatherer, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid gather config: %w", err)
	}

	shardSize := (cfg.PayloadSize + cfg.DataShards - 1) / cfg.DataShards
	enc, err := reedsolomon.New(
		cfg.DataShards, cfg.ParityShards,
		reedsolomon.WithAutoGoroutines(shardSize),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build Reed-Solomon encoder: %w", err)
	}

	pt := scale.NewPartialTree(scale.PartialTreeConfig{
		Root:      cfg.Root,
		LeafCount: cfg.DataShards + cfg.ParityShards,
		Hasher:    cfg.Hasher,
		HashSize:  cfg.HashSize,
	})

	return &Gatherer{
		log: log,

		pt: pt,

		enc:    enc,
		shards: make([][]byte, cfg.DataShards+cfg.ParityShards),

		payloadSize: cfg.PayloadSize,

		nData:   cfg.DataShards,
		nParity: cfg.ParityShards,

		hasher:   cfg.Hasher,
		hashSize: cfg.HashSize,
	}, nil
}

// AddShard verifies shard and its proof against the commitment,
// keeping the shard for reconstruction.
//
// The proof must bind the shard to the index the sender claimed:
// a valid proof for a different position
// returns [ErrShardIndexMismatch] without changing any state.
// Confirming the same shard twice returns an error
// wrapping [scale.ErrAlreadyVerified];
// callers that tolerate duplicate delivery
// can detect it with [errors.Is].
//
// The Gatherer retains shard without copying;
// callers must not modify it afterward.
func (g *Gatherer) AddShard(idx int, shard []byte, proof scale.Proof) error {
	if idx < 0 || idx >= len(g.shards) {
		return fmt.Errorf(
			"shard index out of range: got %d with %d total shards",
			idx, len(g.shards),
		)
	}

	derived, err := g.pt.LeafIndexOf(proof)
	if err != nil {
		return fmt.Errorf("failed to read shard index from proof: %w", err)
	}
	if derived != idx {
		return fmt.Errorf(
			"%w: proof places shard at index %d, sender claimed %d",
			ErrShardIndexMismatch, derived, idx,
		)
	}

	if _, err := g.pt.AddItem(shard, proof); err != nil {
		return fmt.Errorf("failed to verify shard %d: %w", idx, err)
	}

	g.shards[idx] = shard

	g.log.Debug(
		"Confirmed shard",
		"idx", idx,
		"confirmed", g.pt.NumConfirmed(),
		"needed", g.nData,
	)

	return nil
}

// HasShard reports whether the shard at index i has been confirmed.
func (g *Gatherer) HasShard(i int) bool {
	return g.pt.HasLeaf(i)
}

// NumConfirmed returns how many distinct shards have been confirmed.
func (g *Gatherer) NumConfirmed() int {
	return g.pt.NumConfirmed()
}

// Ready reports whether enough shards have been confirmed
// to reconstruct the payload.
func (g *Gatherer) Ready() bool {
	return g.pt.NumConfirmed() >= g.nData
}

// Reconstruct rebuilds the missing shards from the confirmed ones,
// checks the full shard set against the committed root,
// and joins the data shards back into the original payload.
//
// Reconstruct errors if called before [*Gatherer.Ready],
// or if the rebuilt tree's root differs from the commitment,
// which would mean the erasure coding and the tree disagree.
// Reconstruction fills the Gatherer's empty shard slots in place.
func (g *Gatherer) Reconstruct() ([]byte, error) {
	if !g.Ready() {
		return nil, fmt.Errorf(
			"cannot reconstruct with %d of %d required shards",
			g.pt.NumConfirmed(), g.nData,
		)
	}

	if err := g.enc.Reconstruct(g.shards); err != nil {
		return nil, fmt.Errorf("failed to reconstruct shards: %w", err)
	}

	// The individually proven shards are trusted already,
	// but the freshly filled ones are not.
	// Rebuilding the tree over the full set and comparing roots
	// confirms the reconstruction matches the original commitment.
	t, err := scale.BuildTree(g.shards, scale.TreeConfig{
		Hasher:   g.hasher,
		HashSize: g.hashSize,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to rebuild commitment tree: %w", err)
	}
	if !t.RootDigest().Equal(g.pt.RootDigest()) {
		return nil, fmt.Errorf(
			"reconstructed shards do not match commitment: root %s, expected %s",
			t.RootDigest(), g.pt.RootDigest(),
		)
	}

	var buf bytes.Buffer
	buf.Grow(g.payloadSize)
	if err := g.enc.Join(&buf, g.shards, g.payloadSize); err != nil {
		return nil, fmt.Errorf("failed to join shards: %w", err)
	}

	g.log.Info(
		"Reconstructed payload",
		"confirmed_shards", g.pt.NumConfirmed(),
		"payload_bytes", g.payloadSize,
	)

	return buf.Bytes(), nil
}
