package rangefile

import (
	"bufio"
	"fmt"
	"io"

	"github.com/garethgeorge/blockranges/internal/rangeset"
	"github.com/klauspost/compress/zstd"
)

type options struct {
	compress bool
	level    zstd.EncoderLevel
}

type Option = func(*options)

// WithCompression enables zstd compression of the written stream.
func WithCompression(compress bool) func(*options) {
	return func(o *options) {
		o.compress = compress
	}
}

// WithCompressionLevel sets the zstd encoder level. It has no effect without WithCompression.
func WithCompressionLevel(level zstd.EncoderLevel) func(*options) {
	return func(o *options) {
		o.level = level
	}
}

// Writer writes range sets in their canonical text form, one per line.
// Close must be called to flush buffered data.
type Writer struct {
	bufioWriter *bufio.Writer
	closers     []func() error
	count       int
}

func NewWriter(w io.Writer, opts ...Option) (*Writer, error) {
	o := options{level: zstd.SpeedDefault}
	for _, opt := range opts {
		opt(&o)
	}

	if !o.compress {
		bufioWriter := bufio.NewWriterSize(w, defaultIOBufferSize)
		return &Writer{
			bufioWriter: bufioWriter,
			closers:     []func() error{bufioWriter.Flush},
		}, nil
	}

	zstdWriter, err := zstd.NewWriter(w,
		zstd.WithEncoderCRC(true),
		zstd.WithEncoderConcurrency(2),
		zstd.WithEncoderLevel(o.level))
	if err != nil {
		return nil, fmt.Errorf("create zstd writer: %w", err)
	}
	bufioWriter := bufio.NewWriterSize(zstdWriter, defaultIOBufferSize)
	return &Writer{
		bufioWriter: bufioWriter,
		closers:     []func() error{bufioWriter.Flush, zstdWriter.Close},
	}, nil
}

// Write appends rs as one line. Empty range sets have no text form and are rejected.
func (w *Writer) Write(rs rangeset.RangeSet) error {
	if rs.Len() == 0 {
		return fmt.Errorf("write range set %d: empty: %w", w.count, rangeset.ErrMalformedInput)
	}
	text, err := rs.MarshalText()
	if err != nil {
		return fmt.Errorf("encode range set %d: %w", w.count, err)
	}
	text = append(text, '\n')
	if _, err := w.bufioWriter.Write(text); err != nil {
		return fmt.Errorf("write range set %d: %w", w.count, err)
	}
	w.count++
	return nil
}

// Count returns the number of range sets written.
func (w *Writer) Count() int {
	return w.count
}

// Close flushes buffered data and finishes the compressed stream. It does not
// close the underlying writer.
func (w *Writer) Close() error {
	for _, closer := range w.closers {
		if err := closer(); err != nil {
			return err
		}
	}
	return nil
}
