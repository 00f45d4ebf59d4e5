package harness

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

// DefaultWaitInterval between condition checks in an explicit wait
const DefaultWaitInterval = 100 * time.Millisecond

// SessionFactory creates the exclusive session for one environment
type SessionFactory interface {
	Create(ctx context.Context) (Session, error)
}

// SessionFactoryFunc adapts a function to SessionFactory
type SessionFactoryFunc func(ctx context.Context) (Session, error)

// Create calls f
func (f SessionFactoryFunc) Create(ctx context.Context) (Session, error) {
	return f(ctx)
}

// Session is a live browser under automation control. The harness never
// manages the browser process itself.
type Session interface {
	Navigate(ctx context.Context, url string) error
	Locate(ctx context.Context, loc Locator) (Element, error) // nil, nil when nothing matches
	WaitUntil(ctx context.Context, cond Condition, timeout time.Duration) error
	Evaluate(ctx context.Context, expr string) (bool, error)
	Sleep(ctx context.Context, d time.Duration) error
	Screenshot(ctx context.Context, path string) error
	Quit(ctx context.Context) error
}

// Element is a reference into the live page, valid until navigation or detach
type Element interface {
	Click(ctx context.Context) error
	SendKeys(ctx context.Context, text string) error
	Text(ctx context.Context) (string, error)
	Attribute(ctx context.Context, name string) (string, bool, error)
	Visible(ctx context.Context) (bool, error)
	String() string
}

// PollCondition checks cond every interval until it holds or timeout elapses.
// A check error ends the wait immediately. Sessions use this to implement
// WaitUntil.
func PollCondition(ctx context.Context, s Session, cond Condition, timeout, interval time.Duration) error {
	if interval <= 0 {
		interval = DefaultWaitInterval
	}
	deadline := time.Now().Add(timeout)
	for {
		ok, err := cond.Check(ctx, s)
		if err != nil {
			return errors.Wrapf(err, "checking %s", cond)
		}
		if ok {
			return nil
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return errors.Wrapf(ErrConditionTimeout, "%s within %s", cond, timeout)
		}
		if err := sleep(ctx, minDuration(interval, remaining)); err != nil {
			return err
		}
	}
}

// SleepContext blocks for d or until ctx is done
func SleepContext(ctx context.Context, d time.Duration) error {
	return sleep(ctx, d)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func minDuration(a, b time.Duration) time.Duration {
	if a < b {
		return a
	}
	return b
}
