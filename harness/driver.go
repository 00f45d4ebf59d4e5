package harness

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// Driver wraps a Session with one uniform find, act, wait primitive (El) and
// thin pass throughs for the rest of the session.
type Driver struct {
	session  Session
	defaults Options
	log      *zerolog.Logger
}

// NewDriver over session. defaults are the per call fallbacks, a nil logger
// disables logging.
func NewDriver(session Session, defaults Options, logger *zerolog.Logger) *Driver {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Driver{
		session:  session,
		defaults: defaults.Merge(nil),
		log:      logger,
	}
}

// Session returns the underlying session
func (d *Driver) Session() Session {
	return d.session
}

// Defaults the driver falls back to
func (d *Driver) Defaults() Options {
	return d.defaults
}

// Log for steps that want the driver's logger
func (d *Driver) Log() *zerolog.Logger {
	return d.log
}

// El polls for loc until it matches or the timeout elapses, applies action
// once if given, then waits for the follow on condition if DriverWait is set.
// The initial poll and DriverWait are separate sequential budgets.
func (d *Driver) El(ctx context.Context, loc Locator, action Action, opts *Options) (Element, error) {
	o := d.defaults.Merge(opts)
	start := time.Now()

	el, err := d.locate(ctx, loc, o, start)
	if err != nil {
		d.log.Debug().Err(err).Str("locator", loc.String()).Dur("elapsed", time.Since(start)).Msg("element lookup failed")
		return nil, err
	}

	if action != nil {
		if err := action.Apply(ctx, el); err != nil {
			elapsed := time.Since(start)
			d.log.Debug().Err(err).Str("locator", loc.String()).Str("action", action.String()).Dur("elapsed", elapsed).Msg("action failed")
			if errors.Is(err, ErrSessionClosed) {
				return nil, newError(SessionError, loc, elapsed, errors.Wrap(err, action.String()))
			}
			return nil, newError(ActionFailed, loc, elapsed, errors.Wrap(err, action.String()))
		}
	}

	if o.DriverWait > 0 {
		cond := o.Until(loc, el)
		if err := d.session.WaitUntil(ctx, cond, o.DriverWait); err != nil {
			elapsed := time.Since(start)
			d.log.Debug().Err(err).Str("locator", loc.String()).Str("condition", cond.String()).Dur("elapsed", elapsed).Msg("follow on wait failed")
			if errors.Is(err, ErrConditionTimeout) {
				return nil, newError(WaitTimeout, loc, elapsed, err)
			}
			return nil, newError(SessionError, loc, elapsed, err)
		}
	}

	d.log.Debug().Str("locator", loc.String()).Dur("elapsed", time.Since(start)).Msg("element ready")
	return el, nil
}

// locate polls the session. The last attempt happens at or after the deadline
// and the gap between attempts never overshoots it.
func (d *Driver) locate(ctx context.Context, loc Locator, o Options, start time.Time) (Element, error) {
	deadline := start.Add(o.Timeout)
	for attempt := 1; ; attempt++ {
		el, err := d.session.Locate(ctx, loc)
		if err != nil {
			return nil, newError(SessionError, loc, time.Since(start), err)
		}
		if el != nil {
			return el, nil
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, newError(NotFound, loc, time.Since(start), errors.Errorf("no match after %d attempts", attempt))
		}
		if err := sleep(ctx, minDuration(o.Poll, remaining)); err != nil {
			return nil, newError(SessionError, loc, time.Since(start), err)
		}
	}
}

// WaitUntil runs an explicit wait on the session. A timeout is a WaitTimeout,
// anything else a SessionError.
func (d *Driver) WaitUntil(ctx context.Context, cond Condition, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = d.defaults.Timeout
	}
	start := time.Now()
	err := d.session.WaitUntil(ctx, cond, timeout)
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrConditionTimeout) {
		return newError(WaitTimeout, Locator{}, time.Since(start), err)
	}
	return newError(SessionError, Locator{}, time.Since(start), err)
}

// Navigate the session to url
func (d *Driver) Navigate(ctx context.Context, url string) error {
	d.log.Debug().Str("url", url).Msg("navigating")
	return d.session.Navigate(ctx, url)
}

// Sleep for a fixed duration, for animations with no observable end
func (d *Driver) Sleep(ctx context.Context, dur time.Duration) error {
	return d.session.Sleep(ctx, dur)
}

// Screenshot of the current page written to path
func (d *Driver) Screenshot(ctx context.Context, path string) error {
	return d.session.Screenshot(ctx, path)
}

// Quit the session
func (d *Driver) Quit(ctx context.Context) error {
	return d.session.Quit(ctx)
}
