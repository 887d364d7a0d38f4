package rangeset

import "fmt"

// Range is a half-open interval of block indices.
type Range struct {
	Start uint64 // inclusive
	End   uint64 // exclusive
}

// Valid reports whether the range covers at least one block.
func (r Range) Valid() bool {
	return r.End > r.Start
}

func (r Range) Size() uint64 {
	if r.End < r.Start {
		return 0
	}
	return r.End - r.Start
}

// Overlaps reports whether the two ranges share a block. Touching ranges do not overlap.
func (r Range) Overlaps(other Range) bool {
	return r.Start < other.End && other.Start < r.End
}

func (r Range) Adjacent(other Range) bool {
	return r.End == other.Start || other.End == r.Start
}

// Contains reports whether block falls inside the range.
func (r Range) Contains(block uint64) bool {
	return r.Start <= block && block < r.End
}

func (r Range) Merge(other Range) Range {
	if !r.Overlaps(other) && !r.Adjacent(other) {
		panic("cannot merge non-overlapping, non-adjacent ranges")
	}
	return Range{Start: min(r.Start, other.Start), End: max(r.End, other.End)}
}

func (r Range) String() string {
	return fmt.Sprintf("[%d, %d)", r.Start, r.End)
}

// byteRange converts the byte interval [offset, offset+length) into the block
// range covering any of its bytes. length must be non-zero.
func byteRange(offset, length, blockSize uint64) Range {
	return Range{
		Start: offset / blockSize,
		End:   (offset+length-1)/blockSize + 1,
	}
}
