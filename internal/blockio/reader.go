// Package blockio reads the device blocks described by a range set.
package blockio

import (
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/garethgeorge/blockranges/internal/rangeset"
)

type options struct {
	blockSize   uint64
	parallelism int
}

type Option = func(*options)

// WithBlockSize sets the size in bytes of one device block.
func WithBlockSize(size uint64) func(*options) {
	return func(o *options) {
		o.blockSize = size
	}
}

// WithParallelism sets how many range sets HashAll reads at once.
func WithParallelism(parallelism int) func(*options) {
	return func(o *options) {
		o.parallelism = parallelism
	}
}

func newOptions(opts []Option) options {
	o := options{
		blockSize:   rangeset.BlockSize,
		parallelism: 4,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.parallelism < 1 {
		o.parallelism = 1
	}
	return o
}

// byteBounds returns the device byte interval covered by r.
func byteBounds(r rangeset.Range, blockSize uint64) (start, end int64, err error) {
	if blockSize == 0 {
		return 0, 0, errors.New("block size must be positive")
	}
	if r.End > math.MaxInt64/blockSize {
		return 0, 0, fmt.Errorf("range %v exceeds addressable device size", r)
	}
	return int64(r.Start * blockSize), int64(r.End * blockSize), nil
}

// Reader streams the bytes of every block of a range set, range by range in
// the set's order. Overlapping ranges are read once per range.
type Reader struct {
	src       io.ReaderAt
	blockSize uint64
	ranges    []rangeset.Range

	idx int   // current range
	pos int64 // bytes consumed from the current range
}

var _ io.Reader = (*Reader)(nil)

func NewReader(src io.ReaderAt, rs rangeset.RangeSet, opts ...Option) *Reader {
	o := newOptions(opts)
	return &Reader{
		src:       src,
		blockSize: o.blockSize,
		ranges:    rs.Ranges(),
	}
}

func (r *Reader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if r.idx >= len(r.ranges) {
		return 0, io.EOF
	}

	start, end, err := byteBounds(r.ranges[r.idx], r.blockSize)
	if err != nil {
		return 0, err
	}
	off := start + r.pos
	want := min(int64(len(p)), end-off)

	n, err := r.src.ReadAt(p[:want], off)
	r.pos += int64(n)
	if off+int64(n) == end {
		r.idx++
		r.pos = 0
	}
	if int64(n) < want {
		if err == nil || errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return n, fmt.Errorf("read blocks %v at offset %d: %w", r.ranges[r.idx], off, err)
	}
	return n, nil
}

// ReadBlock reads the block at linear position idx of rs into buf, which must
// hold at least one block. idx past the end of rs is rangeset.ErrOutOfRange.
func ReadBlock(src io.ReaderAt, rs rangeset.RangeSet, idx uint64, buf []byte, opts ...Option) (uint64, error) {
	o := newOptions(opts)
	if uint64(len(buf)) < o.blockSize {
		return 0, fmt.Errorf("buffer of %d bytes is smaller than block size %d", len(buf), o.blockSize)
	}
	block, err := rs.BlockNumber(idx)
	if err != nil {
		return 0, err
	}
	start, _, err := byteBounds(rangeset.Range{Start: block, End: block + 1}, o.blockSize)
	if err != nil {
		return 0, err
	}
	n, err := src.ReadAt(buf[:o.blockSize], start)
	if uint64(n) < o.blockSize {
		if err == nil || errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return 0, fmt.Errorf("read block %d: %w", block, err)
	}
	return block, nil
}
