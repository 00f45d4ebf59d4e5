package harness

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
)

var (
	// ErrConditionTimeout is returned by WaitUntil when the condition never held
	ErrConditionTimeout = errors.New("condition not met before timeout")
	// ErrSessionClosed is returned by sessions after Quit
	ErrSessionClosed = errors.New("session is closed")
	// ErrStaleElement the element was detached from the document
	ErrStaleElement = errors.New("element is no longer attached to the page")
	// ErrUnknownEnvironment no environment by that name in the config
	ErrUnknownEnvironment = errors.New("unknown environment")
)

// Kind of failure an interaction can produce. Kinds satisfy error so callers
// can test with errors.Is(err, harness.NotFound).
type Kind int8

const (
	// NotFound locator never matched within the timeout
	NotFound Kind = iota + 1
	// ActionFailed the action returned an error when applied to the element
	ActionFailed
	// WaitTimeout the follow on explicit wait never held
	WaitTimeout
	// SessionError transport or session fault, the session is presumed unusable
	SessionError
)

// KindMap names for each kind
var KindMap = map[Kind]string{
	NotFound:     "NotFound",
	ActionFailed: "ActionFailed",
	WaitTimeout:  "WaitTimeout",
	SessionError: "SessionError",
}

func (k Kind) String() string {
	if name, ok := KindMap[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int8(k))
}

func (k Kind) Error() string {
	return k.String()
}

// Error is returned by every Driver interaction failure
type Error struct {
	Kind    Kind
	Locator Locator
	Elapsed time.Duration
	Err     error
}

func newError(kind Kind, loc Locator, elapsed time.Duration, err error) *Error {
	return &Error{Kind: kind, Locator: loc, Elapsed: elapsed, Err: err}
}

func (e *Error) Error() string {
	target := e.Locator.String()
	if e.Locator.IsZero() {
		target = "wait"
	}
	msg := fmt.Sprintf("%s: %s after %s", e.Kind, target, e.Elapsed.Round(time.Millisecond))
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches against a Kind
func (e *Error) Is(target error) bool {
	k, ok := target.(Kind)
	return ok && k == e.Kind
}

// KindOf returns the Kind of err, or 0 if err did not come from the Driver
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// IsOptional reports whether err is a condition a step may legitimately skip
func IsOptional(err error) bool {
	switch KindOf(err) {
	case NotFound, WaitTimeout:
		return true
	}
	return false
}
