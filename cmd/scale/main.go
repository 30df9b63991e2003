package main

import (
	"bufio"
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"slices"
	"strings"

	"github.com/gordian-engine/scale"
	"github.com/gordian-engine/scale/schash"
	"github.com/gordian-engine/scale/schash/scsha256"
	"github.com/gordian-engine/scale/schash/scsha3"
	"github.com/spf13/cobra"
)

func main() {
	if err := NewScaleCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err.Error())
		os.Exit(1)
	}
}

// hashers maps the --hash flag value to a usable hasher.
// The library itself has no registry;
// name resolution is purely a CLI concern.
var hashers = map[string]struct {
	hasher   schash.Hasher
	hashSize int
}{
	"sha256":   {hasher: scsha256.Hasher{}, hashSize: scsha256.HashSize},
	"sha3-256": {hasher: scsha3.Hasher{}, hashSize: scsha3.HashSize},
}

type scaleFlags struct {
	hashName  string
	itemsFile string
	verbose   bool
}

// NewScaleCommand returns the fully wired top-level command.
// Tests drive it through SetArgs/SetIn/SetOut
// instead of the process-wide streams.
func NewScaleCommand() *cobra.Command {
	var flags scaleFlags

	c := &cobra.Command{
		Use:   "scale",
		Short: "Build Merkle trees over ordered items, prove membership, and verify proofs",

		SilenceUsage:  true,
		SilenceErrors: true,
	}

	c.PersistentFlags().StringVar(
		&flags.hashName, "hash", "sha256",
		"digest function for leaves and nodes (sha256 or sha3-256)",
	)
	c.PersistentFlags().StringVarP(
		&flags.itemsFile, "items-file", "f", "",
		"read newline-separated items from this file instead of arguments",
	)
	c.PersistentFlags().BoolVarP(
		&flags.verbose, "verbose", "v", false,
		"enable debug logging on stderr",
	)

	c.AddCommand(
		newRootCmd(&flags),
		newTreeCmd(&flags),
		newProveCmd(&flags),
		newVerifyCmd(&flags),
	)

	return c
}

func newRootCmd(flags *scaleFlags) *cobra.Command {
	var renderAlso bool

	c := &cobra.Command{
		Use:   "root [items...]",
		Short: "Print the root digest of the tree over the given items",
		RunE: func(cmd *cobra.Command, args []string) error {
			tree, err := buildTree(cmd, flags, args)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), tree.RootDigest())
			if renderAlso {
				renderTree(cmd.OutOrStdout(), tree, false)
			}
			return nil
		},
	}

	c.Flags().BoolVar(&renderAlso, "tree", false, "also render the tree below the root digest")

	return c
}

func newTreeCmd(flags *scaleFlags) *cobra.Command {
	var full bool

	c := &cobra.Command{
		Use:   "tree [items...]",
		Short: "Render the tree with one node per line, root first",
		RunE: func(cmd *cobra.Command, args []string) error {
			tree, err := buildTree(cmd, flags, args)
			if err != nil {
				return err
			}

			renderTree(cmd.OutOrStdout(), tree, full)
			return nil
		},
	}

	c.Flags().BoolVar(&full, "full", false, "print full digests instead of shortened ones")

	return c
}

func newProveCmd(flags *scaleFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "prove ITEM [items...]",
		Short: "Print the inclusion proof for ITEM, one sibling per line",
		Long: `Print the inclusion proof for ITEM against the tree over the remaining items.

Each output line is "left HEX" or "right HEX":
the sibling digest at that level,
and which side of the running digest it concatenates on.
The output feeds directly into the verify subcommand.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tree, err := buildTree(cmd, flags, args[1:])
			if err != nil {
				return err
			}

			proof, err := tree.Prove([]byte(args[0]))
			if err != nil {
				return fmt.Errorf("failed to prove %q: %w", args[0], err)
			}

			for _, e := range proof {
				side := "right"
				if e.Left {
					side = "left"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", side, e.Sibling)
			}
			return nil
		},
	}
}

var errProofRejected = errors.New("proof does not verify")

func newVerifyCmd(flags *scaleFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "verify ITEM ROOT",
		Short: "Verify a proof read from stdin against a root digest",
		Long: `Verify that ITEM belongs to the tree committed by the ROOT hex digest.

The proof is read from stdin as lines of "left HEX" or "right HEX",
exactly as the prove subcommand prints them.
Prints ok and exits zero on success;
prints FAIL and exits nonzero otherwise.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveHasher(flags.hashName)
			if err != nil {
				return err
			}

			root, err := hex.DecodeString(args[1])
			if err != nil {
				return fmt.Errorf("failed to decode root digest: %w", err)
			}

			proof, err := parseProof(cmd.InOrStdin())
			if err != nil {
				return err
			}

			if !scale.VerifyProof(cfg.Hasher, root, []byte(args[0]), proof) {
				fmt.Fprintln(cmd.OutOrStdout(), "FAIL")
				return errProofRejected
			}

			fmt.Fprintln(cmd.OutOrStdout(), "ok")
			return nil
		},
	}
}

// buildTree assembles the tree shared by the root, tree,
// and prove subcommands: resolve the hasher,
// collect items from arguments or the items file, and build.
func buildTree(cmd *cobra.Command, flags *scaleFlags, args []string) (*scale.Tree, error) {
	log := newLogger(cmd, flags)

	cfg, err := resolveHasher(flags.hashName)
	if err != nil {
		return nil, err
	}

	items, err := collectItems(flags, args)
	if err != nil {
		return nil, err
	}

	tree, err := scale.BuildTree(items, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to build tree: %w", err)
	}

	log.Debug(
		"Built tree",
		"hash", flags.hashName,
		"items", tree.LeafCount(),
		"height", tree.Height(),
	)

	return tree, nil
}

func resolveHasher(name string) (scale.TreeConfig, error) {
	h, ok := hashers[name]
	if !ok {
		names := slices.Sorted(maps.Keys(hashers))
		return scale.TreeConfig{}, fmt.Errorf(
			"unknown hash %q (valid: %s)", name, strings.Join(names, ", "),
		)
	}

	return scale.TreeConfig{
		Hasher:   h.hasher,
		HashSize: h.hashSize,
	}, nil
}

func collectItems(flags *scaleFlags, args []string) ([][]byte, error) {
	if flags.itemsFile == "" {
		items := make([][]byte, len(args))
		for i, a := range args {
			items[i] = []byte(a)
		}
		return items, nil
	}

	if len(args) > 0 {
		return nil, errors.New("cannot combine --items-file with item arguments")
	}

	data, err := os.ReadFile(flags.itemsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read items file: %w", err)
	}

	var items [][]byte
	for _, line := range bytes.Split(data, []byte("\n")) {
		if len(line) == 0 {
			continue
		}
		items = append(items, line)
	}
	return items, nil
}

// parseProof reads proof lines in the prove subcommand's output format.
// Blank lines are skipped, so a trailing newline is harmless.
func parseProof(r io.Reader) (scale.Proof, error) {
	var proof scale.Proof

	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}

		side, digest, ok := strings.Cut(line, " ")
		if !ok {
			return nil, fmt.Errorf(
				"malformed proof line %q: want %q or %q", line, "left HEX", "right HEX",
			)
		}

		var left bool
		switch side {
		case "left":
			left = true
		case "right":
			// Already false.
		default:
			return nil, fmt.Errorf(
				"malformed proof line %q: side must be left or right", line,
			)
		}

		sib, err := hex.DecodeString(digest)
		if err != nil {
			return nil, fmt.Errorf("malformed proof line %q: %w", line, err)
		}

		proof = append(proof, scale.ProofEntry{Sibling: sib, Left: left})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read proof: %w", err)
	}

	return proof, nil
}

func newLogger(cmd *cobra.Command, flags *scaleFlags) *slog.Logger {
	level := slog.LevelWarn
	if flags.verbose {
		level = slog.LevelDebug
	}

	return slog.New(slog.NewTextHandler(
		cmd.ErrOrStderr(),
		&slog.HandlerOptions{Level: level},
	))
}
