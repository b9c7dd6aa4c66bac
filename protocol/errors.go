package protocol

import (
	"errors"
	"fmt"
)

// ErrStreamClosed means the engine closed the input stream. It marks the
// normal end of a session and is never retried.
var ErrStreamClosed = errors.New("protocol: input stream closed")

// ViolationError reports input that does not match the schema the engine
// version is expected to send. It is fatal.
type ViolationError struct {
	Line   int    // 1-based input line number, 0 if not tied to a line
	Record string // raw record text
	Reason string
}

func (e *ViolationError) Error() string {
	if e.Line == 0 {
		return "protocol violation: " + e.Reason
	}
	return fmt.Sprintf("protocol violation at line %d (%q): %s", e.Line, e.Record, e.Reason)
}

// IsViolation reports whether err wraps a *ViolationError.
func IsViolation(err error) bool {
	var v *ViolationError
	return errors.As(err, &v)
}

func violation(rec Record, format string, args ...any) error {
	return &ViolationError{Line: rec.Line, Record: rec.Raw, Reason: fmt.Sprintf(format, args...)}
}
