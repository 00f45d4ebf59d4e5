package mock

import (
	"context"
	"image"
	"image/png"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/htmlquery"
	"github.com/pkg/errors"
	"golang.org/x/net/html"

	"gitlab.com/browserstep/harness"
)

type mutation struct {
	name  string
	due   time.Time
	apply func(s *Session) error
}

type clickHandler struct {
	loc harness.Locator
	fn  func(s *Session)
}

// Session is an in-memory harness.Session over a parsed HTML document.
// Timed mutations are applied lazily whenever the page is read, so a
// session never owns a goroutine.
type Session struct {
	mu        sync.Mutex
	doc       *html.Node
	url       string
	pages     map[string]string
	pending   []*mutation
	handlers  []*clickHandler
	clicks    map[*html.Node]int
	closed    bool
	locateErr error
	locates   int

	WaitInterval time.Duration
	Screenshots  []string
}

// NewSession parses src as the initial page
func NewSession(src string) (*Session, error) {
	s := &Session{
		pages:        make(map[string]string),
		clicks:       make(map[*html.Node]int),
		WaitInterval: 20 * time.Millisecond,
	}
	if err := s.load(src); err != nil {
		return nil, err
	}
	return s, nil
}

// MakeMockSession for tests, panics on invalid html
func MakeMockSession(src string) *Session {
	s, err := NewSession(src)
	if err != nil {
		panic("invalid mock page: " + err.Error())
	}
	return s
}

// AddPage registers src to be loaded when url is navigated to
func (s *Session) AddPage(url, src string) {
	s.mu.Lock()
	s.pages[url] = src
	s.mu.Unlock()
}

// URL of the last navigation
func (s *Session) URL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.url
}

// FailLocate makes every following Locate return err, nil clears it
func (s *Session) FailLocate(err error) {
	s.mu.Lock()
	s.locateErr = err
	s.mu.Unlock()
}

// LocateCalls made so far
func (s *Session) LocateCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.locates
}

// Closed after Quit
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// ClickCount sums clicks on every element loc currently matches
func (s *Session) ClickCount(loc harness.Locator) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	nodes, err := s.queryAll(loc)
	if err != nil {
		return 0
	}
	total := 0
	for _, n := range nodes {
		total += s.clicks[n]
	}
	return total
}

// OnClick runs fn after any element matched by loc is clicked
func (s *Session) OnClick(loc harness.Locator, fn func(s *Session)) {
	s.mu.Lock()
	s.handlers = append(s.handlers, &clickHandler{loc: loc, fn: fn})
	s.mu.Unlock()
}

// Load replaces the document
func (s *Session) Load(src string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(src)
}

// Insert appends fragment to the first element matched by parent
func (s *Session) Insert(parent harness.Locator, fragment string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insert(parent, fragment)
}

// Remove detaches every element matched by loc
func (s *Session) Remove(loc harness.Locator) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remove(loc)
}

// SetAttribute on every element matched by loc
func (s *Session) SetAttribute(loc harness.Locator, name, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setAttribute(loc, name, value)
}

// Hide every element matched by loc
func (s *Session) Hide(loc harness.Locator) error {
	return s.SetAttribute(loc, "hidden", "hidden")
}

// LoadAfter replaces the document once d has passed
func (s *Session) LoadAfter(d time.Duration, src string) {
	s.after(d, "load", func(s *Session) error { return s.load(src) })
}

// InsertAfter appends fragment under parent once d has passed
func (s *Session) InsertAfter(d time.Duration, parent harness.Locator, fragment string) {
	s.after(d, "insert "+parent.String(), func(s *Session) error { return s.insert(parent, fragment) })
}

// RemoveAfter detaches loc once d has passed
func (s *Session) RemoveAfter(d time.Duration, loc harness.Locator) {
	s.after(d, "remove "+loc.String(), func(s *Session) error { return s.remove(loc) })
}

// HideAfter hides loc once d has passed
func (s *Session) HideAfter(d time.Duration, loc harness.Locator) {
	s.after(d, "hide "+loc.String(), func(s *Session) error { return s.setAttribute(loc, "hidden", "hidden") })
}

func (s *Session) after(d time.Duration, name string, fn func(s *Session) error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = append(s.pending, &mutation{name: name, due: time.Now().Add(d), apply: fn})
	sort.SliceStable(s.pending, func(i, j int) bool {
		return s.pending[i].due.Before(s.pending[j].due)
	})
}

// applyDue runs every mutation whose time has come, in order. Caller holds mu.
func (s *Session) applyDue() error {
	now := time.Now()
	for len(s.pending) > 0 && !s.pending[0].due.After(now) {
		m := s.pending[0]
		s.pending = s.pending[1:]
		if err := m.apply(s); err != nil {
			return errors.Wrapf(err, "applying mutation %s", m.name)
		}
	}
	return nil
}

func (s *Session) load(src string) error {
	doc, err := html.Parse(strings.NewReader(src))
	if err != nil {
		return errors.Wrap(err, "parsing page")
	}
	s.doc = doc
	return nil
}

func (s *Session) insert(parent harness.Locator, fragment string) error {
	nodes, err := s.queryAll(parent)
	if err != nil {
		return err
	}
	if len(nodes) == 0 {
		return errors.Errorf("no parent matching %s", parent)
	}
	target := nodes[0]
	children, err := html.ParseFragment(strings.NewReader(fragment), target)
	if err != nil {
		return errors.Wrap(err, "parsing fragment")
	}
	for _, child := range children {
		target.AppendChild(child)
	}
	return nil
}

func (s *Session) remove(loc harness.Locator) error {
	nodes, err := s.queryAll(loc)
	if err != nil {
		return err
	}
	for _, n := range nodes {
		if n.Parent != nil {
			n.Parent.RemoveChild(n)
		}
	}
	return nil
}

func (s *Session) setAttribute(loc harness.Locator, name, value string) error {
	nodes, err := s.queryAll(loc)
	if err != nil {
		return err
	}
	for _, n := range nodes {
		setAttr(n, name, value)
	}
	return nil
}

func (s *Session) queryAll(loc harness.Locator) ([]*html.Node, error) {
	switch loc.Strategy {
	case harness.ByXPath:
		nodes, err := htmlquery.QueryAll(s.doc, loc.Selector)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid xpath %q", loc.Selector)
		}
		return nodes, nil
	case harness.ByCSS:
		return goquery.NewDocumentFromNode(s.doc).Find(loc.Selector).Nodes, nil
	}
	return nil, errors.Errorf("unsupported locator %s", loc)
}

// attached reports whether n is still part of the current document
func (s *Session) attached(n *html.Node) bool {
	for p := n; p != nil; p = p.Parent {
		if p == s.doc {
			return true
		}
	}
	return false
}

// Navigate loads the page registered for url
func (s *Session) Navigate(ctx context.Context, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return harness.ErrSessionClosed
	}
	src, ok := s.pages[url]
	if !ok {
		return errors.Errorf("no page registered for %s", url)
	}
	s.url = url
	return s.load(src)
}

// Locate the first element matching loc
func (s *Session) Locate(ctx context.Context, loc harness.Locator) (harness.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.locates++
	if s.closed {
		return nil, harness.ErrSessionClosed
	}
	if s.locateErr != nil {
		return nil, s.locateErr
	}
	if err := s.applyDue(); err != nil {
		return nil, err
	}

	nodes, err := s.queryAll(loc)
	if err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		return nil, nil
	}
	return &Element{s: s, node: nodes[0]}, nil
}

// WaitUntil polls cond every WaitInterval
func (s *Session) WaitUntil(ctx context.Context, cond harness.Condition, timeout time.Duration) error {
	return harness.PollCondition(ctx, s, cond, timeout, s.WaitInterval)
}

// Evaluate expr with the script runtime, see script.go
func (s *Session) Evaluate(ctx context.Context, expr string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false, harness.ErrSessionClosed
	}
	if err := s.applyDue(); err != nil {
		return false, err
	}
	return s.evaluate(expr)
}

// Sleep for d
func (s *Session) Sleep(ctx context.Context, d time.Duration) error {
	return harness.SleepContext(ctx, d)
}

// Screenshot writes a placeholder image to path and records it
func (s *Session) Screenshot(ctx context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return harness.ErrSessionClosed
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := png.Encode(f, image.NewRGBA(image.Rect(0, 0, 1, 1))); err != nil {
		return err
	}
	s.Screenshots = append(s.Screenshots, path)
	return nil
}

// Quit closes the session, calling it twice is fine
func (s *Session) Quit(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

func setAttr(n *html.Node, name, value string) {
	for i := range n.Attr {
		if n.Attr[i].Key == name {
			n.Attr[i].Val = value
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: name, Val: value})
}

func getAttr(n *html.Node, name string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val, true
		}
	}
	return "", false
}
