package mock

import (
	"context"
	"fmt"
	"strings"

	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"

	"gitlab.com/browserstep/harness"
)

// Element handle into a mock Session's document
type Element struct {
	s    *Session
	node *html.Node
}

func (e *Element) String() string {
	if id, ok := getAttr(e.node, "id"); ok {
		return fmt.Sprintf("<%s id=%s>", e.node.Data, id)
	}
	if name, ok := getAttr(e.node, "name"); ok {
		return fmt.Sprintf("<%s name=%s>", e.node.Data, name)
	}
	return fmt.Sprintf("<%s>", e.node.Data)
}

// usable applies due mutations then checks the session and the node.
// Caller holds mu.
func (e *Element) usable() error {
	if e.s.closed {
		return harness.ErrSessionClosed
	}
	if err := e.s.applyDue(); err != nil {
		return err
	}
	if !e.s.attached(e.node) {
		return harness.ErrStaleElement
	}
	return nil
}

// Click counts the click and runs any matching OnClick handlers
func (e *Element) Click(ctx context.Context) error {
	e.s.mu.Lock()
	if err := e.usable(); err != nil {
		e.s.mu.Unlock()
		return err
	}
	e.s.clicks[e.node]++

	fns := make([]func(s *Session), 0)
	for _, h := range e.s.handlers {
		nodes, err := e.s.queryAll(h.loc)
		if err != nil {
			continue
		}
		for _, n := range nodes {
			if n == e.node {
				fns = append(fns, h.fn)
				break
			}
		}
	}
	e.s.mu.Unlock()

	for _, fn := range fns {
		fn(e.s)
	}
	return nil
}

// SendKeys appends text to the element's value
func (e *Element) SendKeys(ctx context.Context, text string) error {
	e.s.mu.Lock()
	defer e.s.mu.Unlock()
	if err := e.usable(); err != nil {
		return err
	}
	current, _ := getAttr(e.node, "value")
	setAttr(e.node, "value", current+text)
	return nil
}

// Text of the element and its descendants
func (e *Element) Text(ctx context.Context) (string, error) {
	e.s.mu.Lock()
	defer e.s.mu.Unlock()
	if err := e.usable(); err != nil {
		return "", err
	}
	return strings.TrimSpace(htmlquery.InnerText(e.node)), nil
}

// Attribute value by name
func (e *Element) Attribute(ctx context.Context, name string) (string, bool, error) {
	e.s.mu.Lock()
	defer e.s.mu.Unlock()
	if err := e.usable(); err != nil {
		return "", false, err
	}
	value, ok := getAttr(e.node, name)
	return value, ok, nil
}

// Visible unless detached, hidden, display:none or a hidden input
func (e *Element) Visible(ctx context.Context) (bool, error) {
	e.s.mu.Lock()
	defer e.s.mu.Unlock()
	if e.s.closed {
		return false, harness.ErrSessionClosed
	}
	if err := e.s.applyDue(); err != nil {
		return false, err
	}
	if !e.s.attached(e.node) {
		return false, nil
	}
	if e.node.Data == "input" {
		if typ, _ := getAttr(e.node, "type"); typ == "hidden" {
			return false, nil
		}
	}
	for n := e.node; n != nil; n = n.Parent {
		if n.Type != html.ElementNode {
			continue
		}
		if _, hidden := getAttr(n, "hidden"); hidden {
			return false, nil
		}
		style, _ := getAttr(n, "style")
		if strings.Contains(strings.ReplaceAll(style, " ", ""), "display:none") {
			return false, nil
		}
	}
	return true, nil
}
