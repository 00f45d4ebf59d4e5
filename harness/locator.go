package harness

import "fmt"

// Strategy for resolving a selector against the page
type Strategy int8

const (
	// ByXPath evaluates the selector as an XPath 1.0 expression
	ByXPath Strategy = iota + 1
	// ByCSS evaluates the selector as a CSS selector
	ByCSS
)

// StrategyMap prefixes used when printing locators
var StrategyMap = map[Strategy]string{
	ByXPath: "xpath",
	ByCSS:   "css",
}

// Locator identifies zero or more elements in the current page. Uniqueness
// is up to the caller, only the first match in document order is used.
type Locator struct {
	Strategy Strategy
	Selector string
}

// XPath locator
func XPath(expr string) Locator {
	return Locator{Strategy: ByXPath, Selector: expr}
}

// CSS locator
func CSS(selector string) Locator {
	return Locator{Strategy: ByCSS, Selector: selector}
}

// IsZero when no selector was given
func (l Locator) IsZero() bool {
	return l.Selector == ""
}

func (l Locator) String() string {
	prefix, ok := StrategyMap[l.Strategy]
	if !ok {
		prefix = "unknown"
	}
	return fmt.Sprintf("%s=%s", prefix, l.Selector)
}
