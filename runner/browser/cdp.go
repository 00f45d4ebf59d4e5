package browser

import (
	"context"
	"fmt"
	"io/ioutil"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"gitlab.com/browserstep/harness"
)

const (
	visibleJS   = `function() { const s = window.getComputedStyle(this); return s.visibility !== "hidden" && s.display !== "none"; }`
	textJS      = `function() { return (this.innerText || this.textContent || "").trim(); }`
	attributeJS = `function(name) { return this.getAttribute(name); }`
)

// CDPSession drives one Chrome tab over the DevTools protocol with chromedp
type CDPSession struct {
	name    string
	ctx     context.Context
	cancel  context.CancelFunc
	release func() error
	log     *zerolog.Logger

	// WaitInterval between condition checks in WaitUntil
	WaitInterval time.Duration

	mu     sync.Mutex
	closed bool
}

func newCDPSession(ctx context.Context, name string, allocCtx context.Context, cancelAlloc context.CancelFunc, release func() error) (*CDPSession, error) {
	logger := log.With().Str("env", name).Str("backend", "chromedp").Logger()
	tabCtx, cancelTab := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(format string, args ...interface{}) { logger.Debug().Msgf(format, args...) }),
		chromedp.WithErrorf(func(format string, args ...interface{}) { logger.Warn().Msgf(format, args...) }),
	)
	s := &CDPSession{
		name: name,
		ctx:  tabCtx,
		cancel: func() {
			cancelTab()
			cancelAlloc()
		},
		release:      release,
		log:          &logger,
		WaitInterval: harness.DefaultWaitInterval,
	}
	if err := s.start(ctx); err != nil {
		s.Quit(context.Background())
		return nil, errors.Wrap(err, "starting chromedp session")
	}
	return s, nil
}

// start runs the first, allocating Run on the tab context itself. chromedp
// binds the browser process (or remote tab) to the context of that Run, so it
// must outlive ctx. ctx only bounds how long we wait for it.
func (s *CDPSession) start(ctx context.Context) error {
	done := make(chan error, 1)
	go func() {
		done <- chromedp.Run(s.ctx)
	}()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		s.cancel()
		<-done
		return ctx.Err()
	}
}

// NewExecSession launches a dedicated Chrome for env
func NewExecSession(ctx context.Context, env harness.Environment) (*CDPSession, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", env.Headless),
		chromedp.Flag("disable-gpu", env.Headless),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.WindowSize(env.WindowWidth, env.WindowHeight),
	)
	if env.ChromePath != "" {
		opts = append(opts, chromedp.ExecPath(env.ChromePath))
	}
	allocCtx, cancel := chromedp.NewExecAllocator(context.Background(), opts...)
	return newCDPSession(ctx, env.Name, allocCtx, cancel, nil)
}

// NewRemoteSession opens a tab in the browser listening at url
func NewRemoteSession(ctx context.Context, env harness.Environment) (*CDPSession, error) {
	allocCtx, cancel := chromedp.NewRemoteAllocator(context.Background(), env.RemoteURL)
	return newCDPSession(ctx, env.Name, allocCtx, cancel, nil)
}

// NewLeasedSession acquires a browser from leaser and attaches to it. The
// browser is returned to the leaser on Quit.
func NewLeasedSession(ctx context.Context, env harness.Environment, leaser *LocalLeaser) (*CDPSession, error) {
	port, err := leaser.Acquire()
	if err != nil {
		return nil, err
	}
	allocCtx, cancel := chromedp.NewRemoteAllocator(context.Background(), "ws://127.0.0.1:"+port)
	return newCDPSession(ctx, env.Name, allocCtx, cancel, func() error {
		return leaser.Return(port)
	})
}

// run actions on the tab, bounded by ctx. Only valid after start.
func (s *CDPSession) run(ctx context.Context, actions ...chromedp.Action) error {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return harness.ErrSessionClosed
	}

	runCtx, cancel := context.WithCancel(s.ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	if err := chromedp.Run(runCtx, actions...); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return err
	}
	return nil
}

// Navigate to url and wait for the load event
func (s *CDPSession) Navigate(ctx context.Context, url string) error {
	return s.run(ctx, chromedp.Navigate(url))
}

// Locate the first node matching loc without waiting for one to appear
func (s *CDPSession) Locate(ctx context.Context, loc harness.Locator) (harness.Element, error) {
	by := chromedp.ByQueryAll
	if loc.Strategy == harness.ByXPath {
		by = chromedp.BySearch
	}
	var nodes []*cdp.Node
	if err := s.run(ctx, chromedp.Nodes(loc.Selector, &nodes, by, chromedp.AtLeast(0))); err != nil {
		return nil, errors.Wrapf(err, "locating %s", loc)
	}
	if len(nodes) == 0 {
		return nil, nil
	}
	return &cdpElement{s: s, node: nodes[0]}, nil
}

// WaitUntil polls cond every WaitInterval
func (s *CDPSession) WaitUntil(ctx context.Context, cond harness.Condition, timeout time.Duration) error {
	return harness.PollCondition(ctx, s, cond, timeout, s.WaitInterval)
}

// Evaluate a boolean expression in the page
func (s *CDPSession) Evaluate(ctx context.Context, expr string) (bool, error) {
	var res bool
	if err := s.run(ctx, chromedp.Evaluate(expr, &res)); err != nil {
		return false, errors.Wrapf(err, "evaluating %q", expr)
	}
	return res, nil
}

// Sleep for d
func (s *CDPSession) Sleep(ctx context.Context, d time.Duration) error {
	return harness.SleepContext(ctx, d)
}

// Screenshot of the viewport written to path as PNG
func (s *CDPSession) Screenshot(ctx context.Context, path string) error {
	var buf []byte
	if err := s.run(ctx, chromedp.CaptureScreenshot(&buf)); err != nil {
		return err
	}
	return ioutil.WriteFile(path, buf, 0644)
}

// Quit closes the tab, the browser if this session launched it, and returns
// leased browsers
func (s *CDPSession) Quit(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	done := make(chan error, 1)
	go func() {
		done <- chromedp.Cancel(s.ctx)
	}()
	var err error
	select {
	case err = <-done:
	case <-ctx.Done():
		err = ctx.Err()
	}
	s.cancel()

	if s.release != nil {
		if relErr := s.release(); relErr != nil && err == nil {
			err = relErr
		}
	}
	if err != nil && err != context.Canceled {
		s.log.Warn().Err(err).Msg("error closing browser")
		return err
	}
	return nil
}

type cdpElement struct {
	s    *CDPSession
	node *cdp.Node
}

func (e *cdpElement) String() string {
	return fmt.Sprintf("<%s> node %d", e.node.LocalName, e.node.NodeID)
}

func (e *cdpElement) Click(ctx context.Context) error {
	return e.s.run(ctx, chromedp.MouseClickNode(e.node))
}

func (e *cdpElement) SendKeys(ctx context.Context, text string) error {
	return e.s.run(ctx, chromedp.KeyEventNode(e.node, text))
}

func (e *cdpElement) Text(ctx context.Context) (string, error) {
	var text string
	err := e.s.run(ctx, e.callOn(textJS, &text))
	return text, err
}

func (e *cdpElement) Attribute(ctx context.Context, name string) (string, bool, error) {
	var value *string
	if err := e.s.run(ctx, e.callOn(attributeJS, &value, name)); err != nil {
		return "", false, err
	}
	if value == nil {
		return "", false, nil
	}
	return *value, true, nil
}

// Visible when the node has a box model and is not styled hidden. Detached
// nodes count as not visible, transport faults are returned.
func (e *cdpElement) Visible(ctx context.Context) (bool, error) {
	visible := false
	err := e.s.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		if _, err := dom.GetBoxModel().WithNodeID(e.node.NodeID).Do(ctx); err != nil {
			return err
		}
		return e.callOn(visibleJS, &visible).Do(ctx)
	}))
	if detached(err) {
		return false, nil
	}
	return visible, err
}

// callOn resolves the node to a remote object and calls fn with it as this
func (e *cdpElement) callOn(fn string, res interface{}, args ...interface{}) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		obj, err := dom.ResolveNode().WithNodeID(e.node.NodeID).Do(ctx)
		if err != nil {
			return err
		}
		defer runtime.ReleaseObject(obj.ObjectID).Do(ctx)
		return chromedp.CallFunctionOn(fn, res, func(p *runtime.CallFunctionOnParams) *runtime.CallFunctionOnParams {
			return p.WithObjectID(obj.ObjectID)
		}, args...).Do(ctx)
	})
}
