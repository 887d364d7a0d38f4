package progress

// Tracker receives progress for a job with a known number of steps.
// Implementations must be safe for concurrent use.
type Tracker interface {
	SetMessage(msg string)
	SetTotal(total int64)
	SetDone(n int64)
	SetError(err error)
	MarkFinished()
}

type Noop struct{}

var _ Tracker = Noop{}

func (Noop) SetMessage(msg string) {}
func (Noop) SetTotal(total int64)  {}
func (Noop) SetDone(n int64)       {}
func (Noop) SetError(err error)    {}
func (Noop) MarkFinished()         {}
