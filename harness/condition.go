package harness

import (
	"context"
	"fmt"
)

// Condition is a predicate over the live page, polled by an explicit wait
type Condition interface {
	Check(ctx context.Context, s Session) (bool, error)
	String() string
}

type funcCondition struct {
	name string
	fn   func(ctx context.Context, s Session) (bool, error)
}

// Func wraps fn as a named condition
func Func(name string, fn func(ctx context.Context, s Session) (bool, error)) Condition {
	return &funcCondition{name: name, fn: fn}
}

func (c *funcCondition) Check(ctx context.Context, s Session) (bool, error) {
	return c.fn(ctx, s)
}

func (c *funcCondition) String() string {
	return c.name
}

// ElementLocated holds once loc matches an element
func ElementLocated(loc Locator) Condition {
	return Func(fmt.Sprintf("element located %s", loc), func(ctx context.Context, s Session) (bool, error) {
		el, err := s.Locate(ctx, loc)
		if err != nil {
			return false, err
		}
		return el != nil, nil
	})
}

// ElementAbsent holds once loc no longer matches anything
func ElementAbsent(loc Locator) Condition {
	return Func(fmt.Sprintf("element absent %s", loc), func(ctx context.Context, s Session) (bool, error) {
		el, err := s.Locate(ctx, loc)
		if err != nil {
			return false, err
		}
		return el == nil, nil
	})
}

// ElementVisible holds once el is displayed
func ElementVisible(el Element) Condition {
	return Func(fmt.Sprintf("element visible %s", el), func(ctx context.Context, _ Session) (bool, error) {
		return el.Visible(ctx)
	})
}

// ElementNotVisible holds once el is hidden or detached
func ElementNotVisible(el Element) Condition {
	return Func(fmt.Sprintf("element not visible %s", el), func(ctx context.Context, _ Session) (bool, error) {
		visible, err := el.Visible(ctx)
		if err != nil {
			return false, err
		}
		return !visible, nil
	})
}

// Script holds once the boolean expression evaluates to true in the page
func Script(expr string) Condition {
	return Func(fmt.Sprintf("script %q", expr), func(ctx context.Context, s Session) (bool, error) {
		return s.Evaluate(ctx, expr)
	})
}
