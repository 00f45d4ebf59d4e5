package browser

import (
	"context"
	"io/ioutil"
	"strconv"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"gitlab.com/browserstep/harness"
)

// RodSession drives a launcher-managed Chrome with go-rod
type RodSession struct {
	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *rod.Page
	log      *zerolog.Logger

	// WaitInterval between condition checks in WaitUntil
	WaitInterval time.Duration

	mu     sync.Mutex
	closed bool
}

// NewRodSession launches Chrome for env and opens a blank page
func NewRodSession(ctx context.Context, env harness.Environment) (*RodSession, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	logger := log.With().Str("env", env.Name).Str("backend", "rod").Logger()

	l := launcher.New().
		Headless(env.Headless).
		Set("window-size", strconv.Itoa(env.WindowWidth)+","+strconv.Itoa(env.WindowHeight))
	if env.ChromePath != "" {
		l = l.Bin(env.ChromePath)
	}
	controlURL, err := l.Launch()
	if err != nil {
		return nil, errors.Wrap(err, "launching chrome")
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, errors.Wrap(err, "connecting to chrome")
	}
	page, err := browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		browser.Close()
		l.Kill()
		return nil, errors.Wrap(err, "opening page")
	}
	if err := (proto.EmulationSetDeviceMetricsOverride{
		Width:             env.WindowWidth,
		Height:            env.WindowHeight,
		DeviceScaleFactor: 1.0,
	}).Call(page); err != nil {
		logger.Warn().Err(err).Msg("failed to set viewport")
	}
	logger.Debug().Str("control_url", controlURL).Msg("rod session started")

	return &RodSession{
		launcher:     l,
		browser:      browser,
		page:         page,
		log:          &logger,
		WaitInterval: harness.DefaultWaitInterval,
	}, nil
}

func (s *RodSession) pageFor(ctx context.Context) (*rod.Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, harness.ErrSessionClosed
	}
	return s.page.Context(ctx), nil
}

// Navigate to url and wait for the load event
func (s *RodSession) Navigate(ctx context.Context, url string) error {
	page, err := s.pageFor(ctx)
	if err != nil {
		return err
	}
	if err := page.Navigate(url); err != nil {
		return errors.Wrapf(err, "navigating to %s", url)
	}
	return page.WaitLoad()
}

// Locate probes once for loc
func (s *RodSession) Locate(ctx context.Context, loc harness.Locator) (harness.Element, error) {
	page, err := s.pageFor(ctx)
	if err != nil {
		return nil, err
	}
	var (
		found bool
		el    *rod.Element
	)
	if loc.Strategy == harness.ByXPath {
		found, el, err = page.HasX(loc.Selector)
	} else {
		found, el, err = page.Has(loc.Selector)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "locating %s", loc)
	}
	if !found {
		return nil, nil
	}
	return &rodElement{s: s, el: el, loc: loc}, nil
}

// WaitUntil polls cond every WaitInterval
func (s *RodSession) WaitUntil(ctx context.Context, cond harness.Condition, timeout time.Duration) error {
	return harness.PollCondition(ctx, s, cond, timeout, s.WaitInterval)
}

// Evaluate a boolean expression in the page
func (s *RodSession) Evaluate(ctx context.Context, expr string) (bool, error) {
	page, err := s.pageFor(ctx)
	if err != nil {
		return false, err
	}
	res, err := page.Evaluate(rod.Eval(expr))
	if err != nil {
		return false, errors.Wrapf(err, "evaluating %q", expr)
	}
	return res.Value.Bool(), nil
}

// Sleep for d
func (s *RodSession) Sleep(ctx context.Context, d time.Duration) error {
	return harness.SleepContext(ctx, d)
}

// Screenshot of the viewport written to path as PNG
func (s *RodSession) Screenshot(ctx context.Context, path string) error {
	page, err := s.pageFor(ctx)
	if err != nil {
		return err
	}
	data, err := page.Screenshot(false, nil)
	if err != nil {
		return err
	}
	return ioutil.WriteFile(path, data, 0644)
}

// Quit closes the browser and kills the launched process
func (s *RodSession) Quit(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	err := s.browser.Context(ctx).Close()
	s.launcher.Kill()
	s.launcher.Cleanup()
	if err != nil {
		s.log.Warn().Err(err).Msg("error closing browser")
	}
	return err
}

type rodElement struct {
	s   *RodSession
	el  *rod.Element
	loc harness.Locator
}

func (e *rodElement) String() string {
	return e.loc.String()
}

func (e *rodElement) usable(ctx context.Context) (*rod.Element, error) {
	e.s.mu.Lock()
	defer e.s.mu.Unlock()
	if e.s.closed {
		return nil, harness.ErrSessionClosed
	}
	return e.el.Context(ctx), nil
}

func (e *rodElement) Click(ctx context.Context) error {
	el, err := e.usable(ctx)
	if err != nil {
		return err
	}
	return el.Click(proto.InputMouseButtonLeft, 1)
}

func (e *rodElement) SendKeys(ctx context.Context, text string) error {
	el, err := e.usable(ctx)
	if err != nil {
		return err
	}
	return el.Input(text)
}

func (e *rodElement) Text(ctx context.Context) (string, error) {
	el, err := e.usable(ctx)
	if err != nil {
		return "", err
	}
	return el.Text()
}

func (e *rodElement) Attribute(ctx context.Context, name string) (string, bool, error) {
	el, err := e.usable(ctx)
	if err != nil {
		return "", false, err
	}
	value, err := el.Attribute(name)
	if err != nil || value == nil {
		return "", false, err
	}
	return *value, true, nil
}

// Visible is false for detached elements, other faults are returned
func (e *rodElement) Visible(ctx context.Context) (bool, error) {
	el, err := e.usable(ctx)
	if err != nil {
		return false, err
	}
	visible, err := el.Visible()
	if detached(err) {
		return false, nil
	}
	return visible, err
}
