package harness

import "time"

const (
	// DefaultTimeout to poll for an element when nothing else is configured
	DefaultTimeout = 5 * time.Second
	// DefaultPoll interval between locate attempts
	DefaultPoll = 200 * time.Millisecond
)

// FollowOn builds the condition awaited after an element was found (and acted on)
type FollowOn func(loc Locator, el Element) Condition

// UntilLocated waits for the locator to match again, the default follow on
func UntilLocated(loc Locator, _ Element) Condition {
	return ElementLocated(loc)
}

// UntilVisible waits for the found element to be displayed
func UntilVisible(_ Locator, el Element) Condition {
	return ElementVisible(el)
}

// UntilNotVisible waits for the found element to be hidden or detached
func UntilNotVisible(_ Locator, el Element) Condition {
	return ElementNotVisible(el)
}

// UntilGone waits for the locator to stop matching
func UntilGone(loc Locator, _ Element) Condition {
	return ElementAbsent(loc)
}

// UntilCondition ignores the element and waits on cond
func UntilCondition(cond Condition) FollowOn {
	return func(Locator, Element) Condition {
		return cond
	}
}

// Options for a single El call, zero fields fall back to the Driver defaults
type Options struct {
	Timeout    time.Duration // how long to poll for the element
	Poll       time.Duration // interval between locate attempts
	DriverWait time.Duration // budget for the follow on wait, 0 disables it
	Until      FollowOn      // follow on condition, UntilLocated when nil
}

// Merge layers override on top of o. o is never modified.
func (o Options) Merge(override *Options) Options {
	merged := o
	if override != nil {
		if override.Timeout > 0 {
			merged.Timeout = override.Timeout
		}
		if override.Poll > 0 {
			merged.Poll = override.Poll
		}
		if override.DriverWait > 0 {
			merged.DriverWait = override.DriverWait
		}
		if override.Until != nil {
			merged.Until = override.Until
		}
	}
	if merged.Timeout <= 0 {
		merged.Timeout = DefaultTimeout
	}
	if merged.Poll <= 0 {
		merged.Poll = DefaultPoll
	}
	if merged.Until == nil {
		merged.Until = UntilLocated
	}
	return merged
}

// Millis converts a millisecond count from config to a duration
func Millis(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
