package rangeset

import (
	"errors"
	"fmt"
	"iter"
	"slices"
	"strconv"
	"strings"
)

// RangeSet is an ordered list of block ranges. Ranges keep the order they were
// parsed or constructed in and may overlap or touch each other. A RangeSet is
// immutable and safe for concurrent reads.
type RangeSet struct {
	ranges []Range
	blocks uint64
}

// Parse decodes the text form "N,s0,e0,s1,e1,..." where N is the number of
// tokens that follow. Leading whitespace and leading zeros are accepted on each
// token. Any other deviation is reported as ErrMalformedInput.
func Parse(text string) (RangeSet, error) {
	tokens := strings.Split(text, ",")
	if len(tokens) < 3 {
		return RangeSet{}, malformed("%q: need at least 3 tokens, got %d", text, len(tokens))
	}

	count, err := parseToken(tokens[0])
	if err != nil {
		return RangeSet{}, malformed("%q: bad token count: %v", text, err)
	}
	if count != uint64(len(tokens)-1) {
		return RangeSet{}, malformed("%q: token count %d does not match %d following tokens", text, count, len(tokens)-1)
	}
	if count%2 != 0 {
		return RangeSet{}, malformed("%q: odd token count %d", text, count)
	}

	ranges := make([]Range, 0, count/2)
	for i := 1; i < len(tokens); i += 2 {
		start, err := parseToken(tokens[i])
		if err != nil {
			return RangeSet{}, malformed("%q: bad range start at token %d: %v", text, i, err)
		}
		end, err := parseToken(tokens[i+1])
		if err != nil {
			return RangeSet{}, malformed("%q: bad range end at token %d: %v", text, i+1, err)
		}
		ranges = append(ranges, Range{Start: start, End: end})
	}
	return newRangeSet(ranges)
}

// MustParse is like Parse but panics with a *RangeError on malformed input.
func MustParse(text string) RangeSet {
	rs, err := Parse(text)
	if err != nil {
		panic(err)
	}
	return rs
}

// parseToken accepts a decimal numeral with optional leading whitespace. Sign
// prefixes and trailing characters, including whitespace, are rejected.
func parseToken(tok string) (uint64, error) {
	tok = strings.TrimLeft(tok, " \t\n\v\f\r")
	if tok == "" {
		return 0, errors.New("empty token")
	}
	for i := 0; i < len(tok); i++ {
		if tok[i] < '0' || tok[i] > '9' {
			return 0, fmt.Errorf("invalid character %q in %q", tok[i], tok)
		}
	}
	return strconv.ParseUint(tok, 10, 64)
}

// NewRangeSet builds a RangeSet from an explicit list, preserving its order.
func NewRangeSet(ranges ...Range) (RangeSet, error) {
	return newRangeSet(slices.Clone(ranges))
}

func MustNewRangeSet(ranges ...Range) RangeSet {
	rs, err := NewRangeSet(ranges...)
	if err != nil {
		panic(err)
	}
	return rs
}

// newRangeSet takes ownership of ranges.
func newRangeSet(ranges []Range) (RangeSet, error) {
	var blocks uint64
	for i, r := range ranges {
		if !r.Valid() {
			return RangeSet{}, malformed("range %d %v is empty or inverted", i, r)
		}
		if blocks+r.Size() < blocks {
			return RangeSet{}, malformed("block count overflows at range %d %v", i, r)
		}
		blocks += r.Size()
	}
	return RangeSet{ranges: ranges, blocks: blocks}, nil
}

// Len returns the number of ranges.
func (rs RangeSet) Len() int {
	return len(rs.ranges)
}

// At returns the i-th range in parse order and panics with ErrOutOfRange when
// i is outside [0, Len()).
func (rs RangeSet) At(i int) Range {
	if i < 0 || i >= len(rs.ranges) {
		panic(outOfRange("index %d, range set has %d ranges", i, len(rs.ranges)))
	}
	return rs.ranges[i]
}

// Blocks returns the total length of all ranges. Overlapping blocks are counted once per range.
func (rs RangeSet) Blocks() uint64 {
	return rs.blocks
}

// Ranges returns a copy of the ranges in parse order.
func (rs RangeSet) Ranges() []Range {
	return slices.Clone(rs.ranges)
}

func (rs RangeSet) All() iter.Seq[Range] {
	return func(yield func(Range) bool) {
		for _, r := range rs.ranges {
			if !yield(r) {
				return
			}
		}
	}
}

// Backward iterates over the ranges in reverse parse order.
func (rs RangeSet) Backward() iter.Seq[Range] {
	return func(yield func(Range) bool) {
		for i := len(rs.ranges) - 1; i >= 0; i-- {
			if !yield(rs.ranges[i]) {
				return
			}
		}
	}
}

// Overlaps reports whether any range of rs shares a block with any range of other.
func (rs RangeSet) Overlaps(other RangeSet) bool {
	return overlapsAny(rs.ranges, other.ranges)
}

func overlapsAny(a, b []Range) bool {
	for _, r := range a {
		for _, o := range b {
			if r.Overlaps(o) {
				return true
			}
		}
	}
	return false
}

// BlockNumber maps a position in the concatenation of all ranges, taken in
// parse order, to an absolute block number.
func (rs RangeSet) BlockNumber(idx uint64) (uint64, error) {
	if idx >= rs.blocks {
		return 0, outOfRange("block index %d, range set has %d blocks", idx, rs.blocks)
	}
	for _, r := range rs.ranges {
		if idx < r.Size() {
			return r.Start + idx, nil
		}
		idx -= r.Size()
	}
	panic("block count does not match ranges")
}

// MustBlockNumber is like BlockNumber but panics with a *RangeError when idx is out of range.
func (rs RangeSet) MustBlockNumber(idx uint64) uint64 {
	b, err := rs.BlockNumber(idx)
	if err != nil {
		panic(err)
	}
	return b
}

// Equal reports whether both sets hold the same ranges in the same order.
func (rs RangeSet) Equal(other RangeSet) bool {
	return slices.Equal(rs.ranges, other.ranges)
}

// String returns the canonical text form, which Parse accepts.
func (rs RangeSet) String() string {
	return string(appendText(nil, rs.ranges))
}

func appendText(buf []byte, ranges []Range) []byte {
	buf = strconv.AppendUint(buf, uint64(len(ranges)*2), 10)
	for _, r := range ranges {
		buf = append(buf, ',')
		buf = strconv.AppendUint(buf, r.Start, 10)
		buf = append(buf, ',')
		buf = strconv.AppendUint(buf, r.End, 10)
	}
	return buf
}

func (rs RangeSet) MarshalText() ([]byte, error) {
	return appendText(nil, rs.ranges), nil
}

func (rs *RangeSet) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*rs = parsed
	return nil
}
