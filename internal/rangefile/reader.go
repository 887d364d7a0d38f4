// Package rangefile reads and writes streams of encoded range sets, one per
// line. Streams may be zstd compressed; readers detect this from the frame magic.
package rangefile

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"iter"
	"strings"

	"github.com/garethgeorge/blockranges/internal/rangeset"
	"github.com/klauspost/compress/zstd"
)

const (
	defaultIOBufferSize = 64 * 1024
	maxLineSize         = 16 * 1024 * 1024
)

var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

// Reader yields the range sets of a range list. Blank lines and lines starting
// with '#' are skipped. Surrounding whitespace of a line is ignored, whitespace
// inside the encoding is not.
type Reader struct {
	scanner *bufio.Scanner
	line    int
	closers []func() error
}

func NewReader(r io.Reader) (*Reader, error) {
	br := bufio.NewReaderSize(r, defaultIOBufferSize)

	var source io.Reader = br
	var closers []func() error
	magic, err := br.Peek(len(zstdMagic))
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("peek range list header: %w", err)
	}
	if bytes.Equal(magic, zstdMagic) {
		zstdReader, err := zstd.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("create zstd reader: %w", err)
		}
		closers = append(closers, func() error {
			zstdReader.Close()
			return nil
		})
		source = bufio.NewReaderSize(zstdReader, defaultIOBufferSize)
	}

	scanner := bufio.NewScanner(source)
	scanner.Buffer(make([]byte, 0, defaultIOBufferSize), maxLineSize)
	return &Reader{scanner: scanner, closers: closers}, nil
}

// Next returns the next range set, or io.EOF once the stream is exhausted.
// Parse failures wrap rangeset.ErrMalformedInput and name the line.
func (r *Reader) Next() (rangeset.RangeSet, error) {
	for r.scanner.Scan() {
		r.line++
		text := strings.TrimSpace(r.scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		rs, err := rangeset.Parse(text)
		if err != nil {
			return rangeset.RangeSet{}, fmt.Errorf("line %d: %w", r.line, err)
		}
		return rs, nil
	}
	if err := r.scanner.Err(); err != nil {
		return rangeset.RangeSet{}, fmt.Errorf("read line %d: %w", r.line+1, err)
	}
	return rangeset.RangeSet{}, io.EOF
}

// All iterates over the remaining range sets. Iteration stops after the first error.
func (r *Reader) All() iter.Seq2[rangeset.RangeSet, error] {
	return func(yield func(rangeset.RangeSet, error) bool) {
		for {
			rs, err := r.Next()
			if errors.Is(err, io.EOF) {
				return
			}
			if !yield(rs, err) || err != nil {
				return
			}
		}
	}
}

// Line returns the number of lines consumed so far.
func (r *Reader) Line() int {
	return r.line
}

// Close releases the decompressor, if any. It does not close the underlying reader.
func (r *Reader) Close() error {
	var err error
	for _, closer := range r.closers {
		if e := closer(); e != nil {
			err = e
		}
	}
	return err
}

// ReadSorted folds every range set of a range list into one normalized set.
func ReadSorted(r io.Reader, opts ...rangeset.Option) (*rangeset.SortedRangeSet, error) {
	reader, err := NewReader(r)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	sorted := rangeset.NewSortedRangeSet(nil, opts...)
	for rs, err := range reader.All() {
		if err != nil {
			return nil, err
		}
		sorted.InsertSet(rs)
	}
	return sorted, nil
}
