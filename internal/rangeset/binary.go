package rangeset

import (
	"google.golang.org/protobuf/encoding/protowire"
)

// The binary form is a protobuf message with a single packed repeated uint64
// field holding start/end pairs:
//
//	message RangeSet { repeated uint64 bounds = 1 [packed = true]; }
const boundsField protowire.Number = 1

// AppendBinary appends the binary form of rs to buf.
func (rs RangeSet) AppendBinary(buf []byte) ([]byte, error) {
	if len(rs.ranges) == 0 {
		return buf, nil
	}
	var packed []byte
	for _, r := range rs.ranges {
		packed = protowire.AppendVarint(packed, r.Start)
		packed = protowire.AppendVarint(packed, r.End)
	}
	buf = protowire.AppendTag(buf, boundsField, protowire.BytesType)
	buf = protowire.AppendBytes(buf, packed)
	return buf, nil
}

func (rs RangeSet) MarshalBinary() ([]byte, error) {
	return rs.AppendBinary(nil)
}

// UnmarshalBinary decodes the binary form and applies the same validation as
// Parse. Unknown fields are skipped.
func (rs *RangeSet) UnmarshalBinary(data []byte) error {
	var bounds []uint64
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return malformed("binary range set: %v", protowire.ParseError(n))
		}
		data = data[n:]

		if num != boundsField {
			n = protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return malformed("binary range set: field %d: %v", num, protowire.ParseError(n))
			}
			data = data[n:]
			continue
		}

		switch typ {
		case protowire.BytesType:
			packed, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return malformed("binary range set: %v", protowire.ParseError(n))
			}
			data = data[n:]
			for len(packed) > 0 {
				v, n := protowire.ConsumeVarint(packed)
				if n < 0 {
					return malformed("binary range set: packed bound: %v", protowire.ParseError(n))
				}
				packed = packed[n:]
				bounds = append(bounds, v)
			}
		case protowire.VarintType:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return malformed("binary range set: bound: %v", protowire.ParseError(n))
			}
			data = data[n:]
			bounds = append(bounds, v)
		default:
			return malformed("binary range set: unexpected wire type %d for bounds", typ)
		}
	}

	if len(bounds) == 0 {
		return malformed("binary range set: no ranges")
	}
	if len(bounds)%2 != 0 {
		return malformed("binary range set: odd number of bounds %d", len(bounds))
	}
	ranges := make([]Range, 0, len(bounds)/2)
	for i := 0; i < len(bounds); i += 2 {
		ranges = append(ranges, Range{Start: bounds[i], End: bounds[i+1]})
	}
	parsed, err := newRangeSet(ranges)
	if err != nil {
		return err
	}
	*rs = parsed
	return nil
}
