package harness

import (
	"context"
	"time"
)

// ExpectOptional probes for an element that may legitimately never appear.
// Absence within timeout is false with a nil error; session faults are
// still returned. The probe only polls, the driver's DriverWait never applies.
func (d *Driver) ExpectOptional(ctx context.Context, loc Locator, timeout time.Duration) (bool, error) {
	o := d.defaults.Merge(&Options{Timeout: timeout})
	_, err := d.locate(ctx, loc, o, time.Now())
	if err == nil {
		return true, nil
	}
	if KindOf(err) == NotFound {
		d.log.Debug().Str("locator", loc.String()).Dur("timeout", timeout).Msg("optional element did not appear")
		return false, nil
	}
	return false, err
}

// Optional swallows NotFound and WaitTimeout failures with a warning and
// returns every other error unchanged.
func (d *Driver) Optional(err error, what string) error {
	if err == nil {
		return nil
	}
	if IsOptional(err) {
		d.log.Warn().Err(err).Str("what", what).Msg("optional condition not met, continuing")
		return nil
	}
	return err
}
