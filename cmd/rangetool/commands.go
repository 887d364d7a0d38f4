package main

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/garethgeorge/blockranges/internal/blockio"
	"github.com/garethgeorge/blockranges/internal/rangefile"
	"github.com/garethgeorge/blockranges/internal/rangeset"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type app struct {
	out       io.Writer
	logger    *zap.Logger
	logLevel  string
	blockSize uint64
}

func newRootCommand(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "rangetool",
		Short:         "Inspect and manipulate block range descriptors",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if a.blockSize == 0 {
				return errors.New("--block-size must be positive")
			}
			if a.logger != nil {
				return nil
			}
			logger, err := newLogger(a.logLevel)
			if err != nil {
				return fmt.Errorf("create logger: %w", err)
			}
			a.logger = logger
			return nil
		},
	}
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	root.PersistentFlags().Uint64Var(&a.blockSize, "block-size", rangeset.BlockSize, "size of one block in bytes")

	root.AddCommand(
		newParseCommand(a),
		newMergeCommand(a),
		newBlockCommand(a),
		newOffsetCommand(a),
		newOverlapsCommand(a),
		newFileCommand(a),
		newHashCommand(a),
	)
	return root
}

func parseAll(texts []string) ([]rangeset.RangeSet, error) {
	sets := make([]rangeset.RangeSet, 0, len(texts))
	for i, text := range texts {
		rs, err := rangeset.Parse(text)
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i+1, err)
		}
		sets = append(sets, rs)
	}
	return sets, nil
}

func (a *app) sorted(sets []rangeset.RangeSet) *rangeset.SortedRangeSet {
	sorted := rangeset.NewSortedRangeSet(nil, rangeset.WithBlockSize(a.blockSize))
	for _, rs := range sets {
		sorted.InsertSet(rs)
	}
	return sorted
}

func newParseCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "parse <ranges>...",
		Short: "Validate range descriptors and print their canonical form",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sets, err := parseAll(args)
			if err != nil {
				return err
			}
			for _, rs := range sets {
				a.logger.Debug("parsed range set", zap.Int("ranges", rs.Len()), zap.Uint64("blocks", rs.Blocks()))
				fmt.Fprintf(a.out, "%s blocks=%d\n", rs, rs.Blocks())
			}
			return nil
		},
	}
}

func newMergeCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "merge <ranges>...",
		Short: "Print the sorted, merged union of range descriptors",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sets, err := parseAll(args)
			if err != nil {
				return err
			}
			sorted := a.sorted(sets)
			a.logger.Debug("merged range sets", zap.Int("inputs", len(sets)), zap.Int("ranges", sorted.Len()))
			fmt.Fprintf(a.out, "%s blocks=%d\n", sorted, sorted.Blocks())
			return nil
		},
	}
}

func newBlockCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "block <ranges> <index>...",
		Short: "Map linear block positions to absolute block numbers",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rs, err := rangeset.Parse(args[0])
			if err != nil {
				return err
			}
			for _, arg := range args[1:] {
				idx, err := strconv.ParseUint(arg, 10, 64)
				if err != nil {
					return fmt.Errorf("parse index %q: %w", arg, err)
				}
				block, err := rs.BlockNumber(idx)
				if err != nil {
					return err
				}
				fmt.Fprintf(a.out, "%d %d\n", idx, block)
			}
			return nil
		},
	}
}

func newOffsetCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "offset <ranges> <byte-offset>...",
		Short: "Map device byte offsets into the gap-free view of the merged ranges",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rs, err := rangeset.Parse(args[0])
			if err != nil {
				return err
			}
			sorted := a.sorted([]rangeset.RangeSet{rs})
			for _, arg := range args[1:] {
				offset, err := strconv.ParseUint(arg, 10, 64)
				if err != nil {
					return fmt.Errorf("parse offset %q: %w", arg, err)
				}
				mapped, err := sorted.OffsetInRangeSet(offset)
				if err != nil {
					return err
				}
				fmt.Fprintf(a.out, "%d %d\n", offset, mapped)
			}
			return nil
		},
	}
}

func newOverlapsCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "overlaps <ranges> <ranges>",
		Short: "Report whether two range descriptors share a block",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			sets, err := parseAll(args)
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, sets[0].Overlaps(sets[1]))
			return nil
		},
	}
}

func newFileCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "file <path>",
		Short: "Merge every descriptor of a range list file, '-' for stdin",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var r io.Reader = cmd.InOrStdin()
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("open range list: %w", err)
				}
				defer f.Close()
				r = f
			}
			sorted, err := rangefile.ReadSorted(r, rangeset.WithBlockSize(a.blockSize))
			if err != nil {
				return fmt.Errorf("read range list %s: %w", args[0], err)
			}
			a.logger.Debug("read range list", zap.String("path", args[0]), zap.Int("ranges", sorted.Len()))
			fmt.Fprintf(a.out, "%s blocks=%d\n", sorted, sorted.Blocks())
			return nil
		},
	}
}

func newHashCommand(a *app) *cobra.Command {
	var algoName string
	var parallelism int
	cmd := &cobra.Command{
		Use:   "hash <image> <ranges>...",
		Short: "Hash the blocks of each descriptor as read from a device image",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			algo, err := blockio.ParseAlgorithm(algoName)
			if err != nil {
				return err
			}
			sets, err := parseAll(args[1:])
			if err != nil {
				return err
			}
			image, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open image: %w", err)
			}
			defer image.Close()

			sums, err := blockio.HashAll(cmd.Context(), image, sets, algo, &logTracker{logger: a.logger},
				blockio.WithBlockSize(a.blockSize), blockio.WithParallelism(parallelism))
			if err != nil {
				return err
			}
			for i, rs := range sets {
				fmt.Fprintf(a.out, "%s %s\n", hex.EncodeToString(sums[i]), rs)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&algoName, "algo", "sha256", "hash algorithm (sha256, blake3, xxh64)")
	cmd.Flags().IntVar(&parallelism, "parallelism", 4, "number of descriptors hashed at once")
	return cmd
}
