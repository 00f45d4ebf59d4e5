package scenario_test

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"gitlab.com/browserstep/harness"
	"gitlab.com/browserstep/mock"
	"gitlab.com/browserstep/runner"
	"gitlab.com/browserstep/scenario"
)

var phraseWords = []string{"apple", "bridge", "candle", "dolphin", "ember", "forest", "glacier", "harbor", "island", "jungle", "kettle", "lantern"}

const (
	homePage     = `<html><body><div>Create new ID</div></body></html>`
	usernamePage = `<html><body><form><input type="text" name="username"><button type="button">Check Availability</button><button type="button">Continue</button></form></body></html>`
	passwordPage = `<html><body><form><input type="password" name="password"><input type="password" name="passwordConfirm"><button type="button">Register ID</button></form></body></html>`
	creatingPage = `<html><body><p>Creating your Blockstack ID...</p></body></html>`
	emailPage    = `<html><body><h2>What is your email address?</h2><input type="email" name="email"><button type="button">Next</button></body></html>`
	savePage     = `<html><body><div>Save your Secret Recovery Key</div><div><div>Secret Recovery Key</div></div></body></html>`
	unlockPage   = `<html><body><p>Unlocking Recovery Key...</p></body></html>`
	appsPage     = `<html><body><h1>User-ready Apps</h1></body></html>`
	alertHTML    = `<div id="alert"><div><div>Username Registration Failed</div></div><div><span>x</span></div></div>`
)

type flowSite struct {
	alert       bool
	spinners    bool
	words       []string
	mu          sync.Mutex
	username    string
	email       string
	password    string
	tileClicks  []string
	cardClicks  int
	alertClosed bool
}

func (f *flowSite) emailFailedPage() string {
	alert := ""
	if f.alert {
		alert = alertHTML
	}
	return `<html><body>` + alert + `<p>Recovery email failed to send</p><div><div>Secret Recovery Key</div></div></body></html>`
}

func (f *flowSite) phrasePage() string {
	return `<html><body><div>Your Secret Recovery Key</div><div>` + strings.Join(f.words, " ") + `</div><div><div>Continue</div></div></body></html>`
}

func (f *flowSite) verifyPage() string {
	var tiles strings.Builder
	for _, w := range f.words {
		tiles.WriteString(`<div><span>` + w + `</span></div>`)
	}
	return `<html><body><p>Select words #3 and #11</p>` + tiles.String() + `<div>Go to Blockstack</div></body></html>`
}

func valueOf(s *mock.Session, loc harness.Locator) string {
	el, err := s.Locate(context.Background(), loc)
	if err != nil || el == nil {
		return ""
	}
	v, _, _ := el.Attribute(context.Background(), "value")
	return v
}

func (f *flowSite) session() *mock.Session {
	sess := mock.MakeMockSession(`<html></html>`)
	sess.AddPage("http://fixture/", homePage)

	sess.OnClick(scenario.CreateNewID, func(s *mock.Session) {
		s.LoadAfter(30*time.Millisecond, usernamePage)
	})
	sess.OnClick(scenario.CheckAvailability, func(s *mock.Session) {
		s.Insert(harness.CSS("form"), `<span class="available">available</span>`)
	})
	sess.OnClick(scenario.ContinueButton, func(s *mock.Session) {
		f.mu.Lock()
		f.username = valueOf(s, scenario.UsernameInput)
		f.mu.Unlock()
		s.Load(passwordPage)
	})
	sess.OnClick(scenario.RegisterID, func(s *mock.Session) {
		f.mu.Lock()
		if valueOf(s, scenario.PasswordInput) == valueOf(s, scenario.PasswordConfirmInput) {
			f.password = valueOf(s, scenario.PasswordInput)
		}
		f.mu.Unlock()
		if f.spinners {
			s.Load(creatingPage)
			s.LoadAfter(100*time.Millisecond, emailPage)
			return
		}
		s.Load(emailPage)
	})
	sess.OnClick(scenario.NextButton, func(s *mock.Session) {
		f.mu.Lock()
		f.email = valueOf(s, scenario.EmailInput)
		f.mu.Unlock()
		s.LoadAfter(20*time.Millisecond, f.emailFailedPage())
	})
	sess.OnClick(scenario.RegistrationAlertX, func(s *mock.Session) {
		f.mu.Lock()
		f.alertClosed = true
		f.mu.Unlock()
		s.HideAfter(40*time.Millisecond, harness.CSS("#alert"))
	})
	sess.OnClick(scenario.RecoveryKeyCard, func(s *mock.Session) {
		f.mu.Lock()
		f.cardClicks++
		clicks := f.cardClicks
		f.mu.Unlock()
		if clicks == 1 {
			s.Load(savePage)
			return
		}
		if f.spinners {
			s.Load(unlockPage)
			s.LoadAfter(100*time.Millisecond, f.phrasePage())
			return
		}
		s.Load(f.phrasePage())
	})
	sess.OnClick(scenario.PhraseContinue, func(s *mock.Session) {
		s.Load(f.verifyPage())
	})
	for _, w := range f.words {
		word := w
		sess.OnClick(scenario.WordTile(word), func(s *mock.Session) {
			f.mu.Lock()
			f.tileClicks = append(f.tileClicks, word)
			f.mu.Unlock()
		})
	}
	sess.OnClick(scenario.GoToBlockstack, func(s *mock.Session) {
		s.LoadAfter(20*time.Millisecond, appsPage)
	})
	return sess
}

func testOptions() *scenario.AccountOptions {
	opts := scenario.DefaultAccountOptions()
	opts.SpinnerProbe = 150 * time.Millisecond
	opts.AnimationDelay = 10 * time.Millisecond
	opts.PageLoad = harness.Options{Timeout: time.Second, Poll: 20 * time.Millisecond, DriverWait: 200 * time.Millisecond}
	opts.Now = func() time.Time { return time.Unix(1600000000, 0) }
	return opts
}

func runFlow(t *testing.T, site *flowSite) (*runner.Summary, *mock.SessionFactory, error) {
	cfg := harness.DefaultConfig()
	cfg.URL = "http://fixture/"
	cfg.ErrorDir = filepath.Join(t.TempDir(), "errors")
	cfg.Defaults = harness.Defaults{TimeoutMS: 500, PollMS: 20}
	cfg.Environments = []harness.Environment{{Name: "mock", Kind: harness.EnvExec}}

	factory := mock.MakeMockSessionFactory(site.session)
	r := runner.New(cfg, scenario.AccountCreation(testOptions()), func(harness.Environment) (harness.SessionFactory, error) {
		return factory, nil
	})
	summary, err := r.Run(context.Background())
	return summary, factory, err
}

func TestAccountCreation(t *testing.T) {
	for _, tc := range []struct {
		name     string
		alert    bool
		spinners bool
	}{
		{"plain", false, false},
		{"with spinners", false, true},
		{"with registration alert", true, true},
	} {
		t.Run(tc.name, func(t *testing.T) {
			site := &flowSite{alert: tc.alert, spinners: tc.spinners, words: phraseWords}
			summary, factory, err := runFlow(t, site)
			if err != nil {
				buf := &strings.Builder{}
				summary.Print(buf)
				t.Fatalf("flow failed: %s\n%s\n", err, buf.String())
			}
			if got := summary.Env("mock").Count(runner.StatusPassed); got != 14 {
				t.Fatalf("expected 14 passed steps got %d\n", got)
			}

			if !regexp.MustCompile(`^test_e2e_16000000_[0-9]{6}$`).MatchString(site.username) {
				t.Fatalf("unexpected username %q\n", site.username)
			}
			if site.email != site.username+"@none.test" {
				t.Fatalf("unexpected email %q\n", site.email)
			}
			if len(site.password) != 20 {
				t.Fatalf("password missing or not confirmed: %q\n", site.password)
			}
			if site.cardClicks != 2 {
				t.Fatalf("expected the recovery card to be clicked twice got %d\n", site.cardClicks)
			}
			if fmt.Sprint(site.tileClicks) != "[candle kettle]" {
				t.Fatalf("wrong words selected %v\n", site.tileClicks)
			}
			if site.alertClosed != tc.alert {
				t.Fatalf("alert closed=%v expected %v\n", site.alertClosed, tc.alert)
			}
			if !factory.Created[0].(*mock.Session).Closed() {
				t.Fatalf("session not quit")
			}
		})
	}
}

func TestAccountCreationShortPhrase(t *testing.T) {
	site := &flowSite{words: phraseWords[:11]}
	summary, factory, err := runFlow(t, site)
	if !errors.Is(err, runner.ErrScenarioFailed) {
		t.Fatalf("expected failure got %v\n", err)
	}
	env := summary.Env("mock")
	failed := env.FailedStep()
	if failed == nil || failed.Name != "get secret recovery key phrase" {
		t.Fatalf("unexpected failed step %#v\n", failed)
	}
	if !errors.Is(failed.Err, scenario.ErrPhraseLength) {
		t.Fatalf("expected phrase length error got %v\n", failed.Err)
	}
	if env.Count(runner.StatusSkipped) != 2 {
		t.Fatalf("expected 2 skipped steps got %d\n", env.Count(runner.StatusSkipped))
	}
	if env.Screenshot == "" || len(factory.Created[0].(*mock.Session).Screenshots) != 1 {
		t.Fatalf("expected a failure screenshot")
	}
}

func TestAccountCreationPlan(t *testing.T) {
	names := scenario.AccountCreation(nil).Plan(harness.DefaultConfig())
	if len(names) != 14 || names[0] != runner.CreateSessionStep || names[13] != "load main page as authenticated user" {
		t.Fatalf("unexpected plan %v\n", names)
	}
}
