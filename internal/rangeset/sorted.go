package rangeset

import (
	"cmp"
	"iter"
	"math"
	"slices"

	"github.com/google/btree"
)

// BlockSize is the default size in bytes of one block.
const BlockSize = 4096

type options struct {
	blockSize uint64
}

type Option = func(*options)

// WithBlockSize sets the block size used by the byte-space helpers.
func WithBlockSize(size uint64) func(*options) {
	return func(o *options) {
		o.blockSize = size
	}
}

// SortedRangeSet keeps its ranges sorted by start, disjoint and non-adjacent:
// touching or overlapping ranges are fused on insertion. The zero value is an
// empty set using BlockSize. It is not thread-safe.
type SortedRangeSet struct {
	blockSize uint64
	blocks    uint64
	// tree holds the normalized ranges ordered by start.
	tree *btree.BTreeG[Range]
}

func newTree() *btree.BTreeG[Range] {
	return btree.NewG[Range](32, func(a, b Range) bool { return a.Start < b.Start })
}

// NewSortedRangeSet returns the normalized union of ranges. It panics with
// ErrMalformedInput if any range is empty or inverted.
func NewSortedRangeSet(ranges []Range, opts ...Option) *SortedRangeSet {
	o := options{blockSize: BlockSize}
	for _, opt := range opts {
		opt(&o)
	}
	if o.blockSize == 0 {
		panic(malformed("block size must be positive"))
	}
	s := &SortedRangeSet{blockSize: o.blockSize, tree: newTree()}
	s.insertAll(ranges)
	return s
}

// lazyInit makes the zero value usable.
func (s *SortedRangeSet) lazyInit() {
	if s.tree == nil {
		s.tree = newTree()
	}
	if s.blockSize == 0 {
		s.blockSize = BlockSize
	}
}

func (s *SortedRangeSet) BlockSize() uint64 {
	s.lazyInit()
	return s.blockSize
}

// Insert adds r, fusing it with every member it overlaps or touches.
func (s *SortedRangeSet) Insert(r Range) {
	if !r.Valid() {
		panic(malformed("insert of empty or inverted range %v", r))
	}
	s.lazyInit()

	merged := r
	var absorbed []Range

	// The only member starting at or before r that can touch it is the last one.
	s.tree.DescendLessOrEqual(Range{Start: r.Start}, func(item Range) bool {
		if item.End >= r.Start {
			absorbed = append(absorbed, item)
			merged = merged.Merge(item)
		}
		return false
	})
	s.tree.AscendGreaterOrEqual(Range{Start: r.Start}, func(item Range) bool {
		if item.Start > merged.End {
			return false
		}
		if len(absorbed) == 0 || absorbed[0] != item {
			absorbed = append(absorbed, item)
		}
		merged.End = max(merged.End, item.End)
		return true
	})

	for _, item := range absorbed {
		s.tree.Delete(item)
		s.blocks -= item.Size()
	}
	s.tree.ReplaceOrInsert(merged)
	s.blocks += merged.Size()
}

// InsertSet merges every range of rs. rs may contain overlapping ranges.
func (s *SortedRangeSet) InsertSet(rs RangeSet) {
	s.insertAll(rs.ranges)
}

// InsertSorted merges every range of other.
func (s *SortedRangeSet) InsertSorted(other *SortedRangeSet) {
	s.insertAll(other.Ranges())
}

// insertAll pools the current members with ranges, sorts the pool and
// coalesces it in a single pass, then replaces the members.
func (s *SortedRangeSet) insertAll(ranges []Range) {
	s.lazyInit()
	if len(ranges) == 0 {
		return
	}
	for _, r := range ranges {
		if !r.Valid() {
			panic(malformed("insert of empty or inverted range %v", r))
		}
	}
	pool := make([]Range, 0, s.tree.Len()+len(ranges))
	pool = append(pool, s.Ranges()...)
	pool = append(pool, ranges...)

	s.tree.Clear(true)
	s.blocks = 0
	for _, r := range normalize(pool) {
		s.tree.ReplaceOrInsert(r)
		s.blocks += r.Size()
	}
}

// normalize sorts ranges by start and fuses every overlapping or touching
// pair. ranges is sorted in place.
func normalize(ranges []Range) []Range {
	slices.SortFunc(ranges, func(a, b Range) int { return cmp.Compare(a.Start, b.Start) })
	var out []Range
	for _, r := range ranges {
		if n := len(out); n > 0 && r.Start <= out[n-1].End {
			out[n-1].End = max(out[n-1].End, r.End)
			continue
		}
		out = append(out, r)
	}
	return out
}

// bytesToRange converts [offset, offset+length) to the block range touching
// any of its bytes.
func (s *SortedRangeSet) bytesToRange(offset, length uint64) Range {
	s.lazyInit()
	if length == 0 {
		panic(malformed("empty byte range at offset %d", offset))
	}
	if length > math.MaxUint64-offset {
		panic(malformed("byte range at offset %d length %d overflows", offset, length))
	}
	return byteRange(offset, length, s.blockSize)
}

// InsertBytes merges the blocks touched by the byte interval [offset, offset+length).
func (s *SortedRangeSet) InsertBytes(offset, length uint64) {
	s.Insert(s.bytesToRange(offset, length))
}

// OverlapsBytes reports whether any block touched by [offset, offset+length)
// is a member. An empty interval overlaps nothing.
func (s *SortedRangeSet) OverlapsBytes(offset, length uint64) bool {
	if length == 0 {
		return false
	}
	r := s.bytesToRange(offset, length)
	var found bool
	s.tree.DescendLessOrEqual(Range{Start: r.End - 1}, func(item Range) bool {
		found = item.Overlaps(r)
		return false
	})
	return found
}

// Overlaps reports whether any range of rs shares a block with a member.
func (s *SortedRangeSet) Overlaps(rs RangeSet) bool {
	return overlapsAny(s.Ranges(), rs.ranges)
}

// OffsetInRangeSet maps a byte offset on the device to the byte offset it has
// when the member ranges are laid end to end with the gaps removed. The block
// holding offset must be a member, otherwise ErrOutOfRange is returned.
func (s *SortedRangeSet) OffsetInRangeSet(offset uint64) (uint64, error) {
	s.lazyInit()
	block := offset / s.blockSize
	var before uint64
	var result uint64
	var found bool
	s.tree.Ascend(func(item Range) bool {
		if block >= item.End {
			before += item.Size()
			return true
		}
		if item.Contains(block) {
			result = s.blockSize*(before+block-item.Start) + offset%s.blockSize
			found = true
		}
		return false
	})
	if !found {
		return 0, outOfRange("offset %d (block %d) is not covered by %s", offset, block, s)
	}
	return result, nil
}

// BlockOffsetInRangeSet is OffsetInRangeSet for the first byte of block: it
// returns the byte offset of block in the gap-free layout of the members.
func (s *SortedRangeSet) BlockOffsetInRangeSet(block uint64) (uint64, error) {
	s.lazyInit()
	if block > math.MaxUint64/s.blockSize {
		return 0, outOfRange("block %d is past the end of a device with %d byte blocks", block, s.blockSize)
	}
	return s.OffsetInRangeSet(block * s.blockSize)
}

// MustOffsetInRangeSet is like OffsetInRangeSet but panics with a *RangeError.
func (s *SortedRangeSet) MustOffsetInRangeSet(offset uint64) uint64 {
	o, err := s.OffsetInRangeSet(offset)
	if err != nil {
		panic(err)
	}
	return o
}

func (s *SortedRangeSet) Len() int {
	s.lazyInit()
	return s.tree.Len()
}

// At returns the i-th member in ascending order and panics with ErrOutOfRange
// when i is outside [0, Len()).
func (s *SortedRangeSet) At(i int) Range {
	s.lazyInit()
	if i < 0 || i >= s.tree.Len() {
		panic(outOfRange("index %d, sorted range set has %d ranges", i, s.tree.Len()))
	}
	var r Range
	n := 0
	s.tree.Ascend(func(item Range) bool {
		if n == i {
			r = item
			return false
		}
		n++
		return true
	})
	return r
}

func (s *SortedRangeSet) Blocks() uint64 {
	return s.blocks
}

// Ranges returns the members in ascending order.
func (s *SortedRangeSet) Ranges() []Range {
	s.lazyInit()
	ranges := make([]Range, 0, s.tree.Len())
	s.tree.Ascend(func(item Range) bool {
		ranges = append(ranges, item)
		return true
	})
	return ranges
}

func (s *SortedRangeSet) All() iter.Seq[Range] {
	s.lazyInit()
	return func(yield func(Range) bool) {
		s.tree.Ascend(func(item Range) bool {
			return yield(item)
		})
	}
}

func (s *SortedRangeSet) Backward() iter.Seq[Range] {
	s.lazyInit()
	return func(yield func(Range) bool) {
		s.tree.Descend(func(item Range) bool {
			return yield(item)
		})
	}
}

// RangeSet returns the members as an immutable RangeSet in ascending order.
func (s *SortedRangeSet) RangeSet() RangeSet {
	return RangeSet{ranges: s.Ranges(), blocks: s.blocks}
}

// Clone returns an independent copy of s.
func (s *SortedRangeSet) Clone() *SortedRangeSet {
	s.lazyInit()
	return &SortedRangeSet{
		blockSize: s.blockSize,
		blocks:    s.blocks,
		tree:      s.tree.Clone(),
	}
}

// Equal reports whether both sets hold the same normalized ranges.
func (s *SortedRangeSet) Equal(other *SortedRangeSet) bool {
	return s.blocks == other.blocks && slices.Equal(s.Ranges(), other.Ranges())
}

func (s *SortedRangeSet) String() string {
	return string(appendText(nil, s.Ranges()))
}
