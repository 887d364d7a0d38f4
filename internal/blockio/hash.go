package blockio

import (
	"context"
	"fmt"
	"hash"
	"io"
	"strings"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
	"github.com/garethgeorge/blockranges/internal/progress"
	"github.com/garethgeorge/blockranges/internal/rangeset"
	"github.com/minio/sha256-simd"
	"github.com/zeebo/blake3"
	"golang.org/x/sync/errgroup"
)

type Algorithm int

const (
	SHA256 Algorithm = iota + 1
	BLAKE3
	XXH64
)

func (a Algorithm) String() string {
	switch a {
	case SHA256:
		return "sha256"
	case BLAKE3:
		return "blake3"
	case XXH64:
		return "xxh64"
	default:
		return fmt.Sprintf("Algorithm(%d)", int(a))
	}
}

func (a Algorithm) New() (hash.Hash, error) {
	switch a {
	case SHA256:
		return sha256.New(), nil
	case BLAKE3:
		return blake3.New(), nil
	case XXH64:
		return xxhash.New(), nil
	default:
		return nil, fmt.Errorf("unknown hash algorithm %v", a)
	}
}

func ParseAlgorithm(name string) (Algorithm, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "sha256":
		return SHA256, nil
	case "blake3":
		return BLAKE3, nil
	case "xxh64", "xxhash":
		return XXH64, nil
	default:
		return 0, fmt.Errorf("unknown hash algorithm %q", name)
	}
}

// Hash digests the blocks of rs, in the set's order, as read from src.
func Hash(src io.ReaderAt, rs rangeset.RangeSet, algo Algorithm, opts ...Option) ([]byte, error) {
	return hashReader(NewReader(src, rs, opts...), algo)
}

func hashReader(r io.Reader, algo Algorithm) ([]byte, error) {
	hasher, err := algo.New()
	if err != nil {
		return nil, err
	}
	buf := make([]byte, 64*1024)
	if _, err := io.CopyBuffer(hasher, r, buf); err != nil {
		return nil, fmt.Errorf("hash blocks: %w", err)
	}
	return hasher.Sum(nil), nil
}

// ctxReader stops a read loop once ctx is done.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

// HashAll digests every range set concurrently. Digests are returned in the
// order of sets. The first failure cancels the remaining work.
func HashAll(ctx context.Context, src io.ReaderAt, sets []rangeset.RangeSet, algo Algorithm, prog progress.Tracker, opts ...Option) ([][]byte, error) {
	o := newOptions(opts)
	if prog == nil {
		prog = progress.Noop{}
	}
	if _, err := algo.New(); err != nil {
		return nil, err
	}

	prog.SetMessage(fmt.Sprintf("hashing %d range sets with %v", len(sets), algo))
	prog.SetTotal(int64(len(sets)))
	prog.SetDone(0)

	sums := make([][]byte, len(sets))
	var done atomic.Int64

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(o.parallelism)
	for i, rs := range sets {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			sum, err := hashReader(ctxReader{ctx: ctx, r: NewReader(src, rs, opts...)}, algo)
			if err != nil {
				return fmt.Errorf("range set %d (%s): %w", i, rs, err)
			}
			sums[i] = sum
			prog.SetDone(done.Add(1))
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		prog.SetError(err)
		return nil, err
	}
	prog.MarkFinished()
	return sums, nil
}
