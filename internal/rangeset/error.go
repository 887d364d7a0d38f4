package rangeset

import "fmt"

type Kind int

const (
	// KindMalformedInput marks an encoding or range list that violates the grammar.
	KindMalformedInput Kind = iota + 1
	// KindOutOfRange marks an index, linear position or offset outside the set.
	KindOutOfRange
)

func (k Kind) String() string {
	switch k {
	case KindMalformedInput:
		return "malformed input"
	case KindOutOfRange:
		return "out of range"
	default:
		return "unknown"
	}
}

var (
	ErrMalformedInput = &RangeError{Kind: KindMalformedInput}
	ErrOutOfRange     = &RangeError{Kind: KindOutOfRange}
)

// RangeError describes a range descriptor that cannot be used safely. Callers
// that drive block I/O must treat it as fatal.
type RangeError struct {
	Kind Kind
	Msg  string
}

func (e *RangeError) Error() string {
	if e.Msg == "" {
		return e.Kind.String()
	}
	return e.Kind.String() + ": " + e.Msg
}

// Is matches any RangeError of the same kind, so errors.Is(err, ErrOutOfRange)
// holds regardless of the message.
func (e *RangeError) Is(target error) bool {
	if targetErr, ok := target.(*RangeError); ok {
		return e.Kind == targetErr.Kind
	}
	return false
}

func malformed(format string, args ...any) *RangeError {
	return &RangeError{Kind: KindMalformedInput, Msg: fmt.Sprintf(format, args...)}
}

func outOfRange(format string, args ...any) *RangeError {
	return &RangeError{Kind: KindOutOfRange, Msg: fmt.Sprintf(format, args...)}
}
