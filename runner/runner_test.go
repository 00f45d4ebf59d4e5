package runner_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/goleak"

	"gitlab.com/browserstep/harness"
	"gitlab.com/browserstep/mock"
	"gitlab.com/browserstep/runner"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const loginPage = `<html><body>
<input id="user" type="text"><button id="go">go</button>
</body></html>`

func testConfig(t *testing.T, envs ...string) *harness.Config {
	cfg := harness.DefaultConfig()
	cfg.URL = "http://fixture/login"
	cfg.ErrorDir = filepath.Join(t.TempDir(), "errors")
	cfg.Defaults = harness.Defaults{TimeoutMS: 200, PollMS: 20}
	cfg.Environments = nil
	for _, name := range envs {
		cfg.Environments = append(cfg.Environments, harness.Environment{Name: name, Kind: harness.EnvExec})
	}
	return cfg
}

func loginSession() *mock.Session {
	sess := mock.MakeMockSession(`<html></html>`)
	sess.AddPage("http://fixture/login", loginPage)
	sess.OnClick(harness.CSS("#go"), func(s *mock.Session) {
		s.LoadAfter(50*time.Millisecond, `<html><body><h1>welcome</h1></body></html>`)
	})
	return sess
}

func loginScenario(welcome harness.Locator) *runner.Scenario {
	return &runner.Scenario{
		Name: "login",
		NewSteps: func(cfg *harness.Config) []*runner.Step {
			return []*runner.Step{
				{Name: "load", Run: func(ctx context.Context, d *harness.Driver) error {
					return d.Navigate(ctx, cfg.URL)
				}},
				{Name: "type user", Run: func(ctx context.Context, d *harness.Driver) error {
					_, err := d.El(ctx, harness.CSS("#user"), harness.Type("alice"), nil)
					return err
				}},
				{Name: "submit", Run: func(ctx context.Context, d *harness.Driver) error {
					_, err := d.El(ctx, harness.CSS("#go"), harness.Click(), nil)
					return err
				}},
				{Name: "welcome", Run: func(ctx context.Context, d *harness.Driver) error {
					_, err := d.El(ctx, welcome, nil, nil)
					return err
				}},
				{Name: "done", Run: func(ctx context.Context, d *harness.Driver) error {
					return nil
				}},
			}
		},
	}
}

func resolverFor(factories map[string]*mock.SessionFactory) runner.Resolver {
	return func(env harness.Environment) (harness.SessionFactory, error) {
		f, ok := factories[env.Name]
		if !ok {
			return nil, errors.New("no factory")
		}
		return f, nil
	}
}

func TestRunPasses(t *testing.T) {
	cfg := testConfig(t, "a", "b")
	factories := map[string]*mock.SessionFactory{
		"a": mock.MakeMockSessionFactory(loginSession),
		"b": mock.MakeMockSessionFactory(loginSession),
	}
	r := runner.New(cfg, loginScenario(harness.XPath(`//h1[text()="welcome"]`)), resolverFor(factories))

	summary, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("expected run to pass: %s\n", err)
	}
	if len(summary.Envs) != 2 {
		t.Fatalf("expected 2 environments got %d\n", len(summary.Envs))
	}
	for name, f := range factories {
		env := summary.Env(name)
		if env == nil || env.Failed() {
			t.Fatalf("env %s should have passed: %#v\n", name, env)
		}
		if env.Count(runner.StatusPassed) != 6 {
			t.Fatalf("expected 6 passed steps including session creation got %d\n", env.Count(runner.StatusPassed))
		}
		if f.CreateCalled != 1 {
			t.Fatalf("expected one session per environment")
		}
		if !f.Created[0].(*mock.Session).Closed() {
			t.Fatalf("session for %s was not quit\n", name)
		}
	}
	if _, err := os.Stat(cfg.ErrorDir); !os.IsNotExist(err) {
		t.Fatalf("error dir should only be created on failure")
	}
}

func TestRunFailFast(t *testing.T) {
	cfg := testConfig(t, "a")
	factory := mock.MakeMockSessionFactory(loginSession)
	r := runner.New(cfg, loginScenario(harness.CSS("#never")), resolverFor(map[string]*mock.SessionFactory{"a": factory}))

	summary, err := r.Run(context.Background())
	if !errors.Is(err, runner.ErrScenarioFailed) {
		t.Fatalf("expected ErrScenarioFailed got %v\n", err)
	}
	env := summary.Env("a")
	failed := env.FailedStep()
	if failed == nil || failed.Name != "welcome" {
		t.Fatalf("expected welcome step to fail: %#v\n", failed)
	}
	if !errors.Is(failed.Err, harness.NotFound) {
		t.Fatalf("expected NotFound got %v\n", failed.Err)
	}
	if env.Count(runner.StatusSkipped) != 1 {
		t.Fatalf("expected the last step to be skipped")
	}

	if filepath.Dir(env.Screenshot) != cfg.ErrorDir {
		t.Fatalf("screenshot %s not in %s\n", env.Screenshot, cfg.ErrorDir)
	}
	if !strings.HasPrefix(filepath.Base(env.Screenshot), "screenshot-failed-") {
		t.Fatalf("unexpected screenshot name %s\n", env.Screenshot)
	}
	if _, err := os.Stat(env.Screenshot); err != nil {
		t.Fatalf("screenshot not written: %s\n", err)
	}
	sess := factory.Created[0].(*mock.Session)
	if !sess.Closed() {
		t.Fatalf("session must be quit after failure")
	}

	var buf bytes.Buffer
	summary.Print(&buf)
	if !strings.Contains(buf.String(), "[FAIL] a") || !strings.Contains(buf.String(), "skipped") {
		t.Fatalf("unexpected summary:\n%s\n", buf.String())
	}
}

func TestRunEnvironmentsAreIndependent(t *testing.T) {
	cfg := testConfig(t, "good", "bad")
	bad := mock.MakeMockSessionFactory(func() *mock.Session {
		sess := loginSession()
		sess.FailLocate(errors.New("connection reset"))
		return sess
	})
	factories := map[string]*mock.SessionFactory{
		"good": mock.MakeMockSessionFactory(loginSession),
		"bad":  bad,
	}
	r := runner.New(cfg, loginScenario(harness.XPath(`//h1`)), resolverFor(factories))

	summary, err := r.Run(context.Background())
	if !errors.Is(err, runner.ErrScenarioFailed) {
		t.Fatalf("expected failure got %v\n", err)
	}
	if summary.Env("good").Failed() {
		t.Fatalf("good environment should pass: %s\n", summary.Env("good").Err)
	}
	failed := summary.Env("bad").FailedStep()
	if failed == nil || failed.Name != "type user" {
		t.Fatalf("expected first interaction to fail: %#v\n", failed)
	}
	if !errors.Is(failed.Err, harness.SessionError) {
		t.Fatalf("expected SessionError got %v\n", failed.Err)
	}
	if bad.Created[0].(*mock.Session).LocateCalls() != 1 {
		t.Fatalf("session errors must not be retried")
	}
}

func TestRunSessionCreationFails(t *testing.T) {
	cfg := testConfig(t, "a")
	factory := &mock.SessionFactory{
		CreateFn: func(ctx context.Context) (harness.Session, error) {
			return nil, errors.New("chrome not found")
		},
	}
	r := runner.New(cfg, loginScenario(harness.XPath(`//h1`)), resolverFor(map[string]*mock.SessionFactory{"a": factory}))

	summary, err := r.Run(context.Background())
	if !errors.Is(err, runner.ErrScenarioFailed) {
		t.Fatalf("expected failure got %v\n", err)
	}
	env := summary.Env("a")
	if env.FailedStep().Name != runner.CreateSessionStep {
		t.Fatalf("expected create session to fail")
	}
	if env.Count(runner.StatusSkipped) != 5 {
		t.Fatalf("expected all scenario steps skipped got %d\n", env.Count(runner.StatusSkipped))
	}
	if env.Screenshot != "" {
		t.Fatalf("no screenshot without a session")
	}
}

func TestRunSessionTimeout(t *testing.T) {
	cfg := testConfig(t, "a")
	factory := &mock.SessionFactory{
		CreateFn: func(ctx context.Context) (harness.Session, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}
	r := runner.New(cfg, loginScenario(harness.XPath(`//h1`)), resolverFor(map[string]*mock.SessionFactory{"a": factory}))
	r.SessionTimeout = 50 * time.Millisecond

	start := time.Now()
	_, err := r.Run(context.Background())
	if !errors.Is(err, runner.ErrScenarioFailed) {
		t.Fatalf("expected failure got %v\n", err)
	}
	if time.Since(start) > time.Second {
		t.Fatalf("session timeout was not applied")
	}
}

func TestRunStepTimeout(t *testing.T) {
	cfg := testConfig(t, "a")
	scenario := &runner.Scenario{
		Name: "slow",
		NewSteps: func(cfg *harness.Config) []*runner.Step {
			return []*runner.Step{
				{Name: "hang", Timeout: 50 * time.Millisecond, Run: func(ctx context.Context, d *harness.Driver) error {
					return d.Sleep(ctx, time.Minute)
				}},
			}
		},
	}
	factories := map[string]*mock.SessionFactory{"a": mock.MakeMockSessionFactory(loginSession)}

	summary, err := runner.New(cfg, scenario, resolverFor(factories)).Run(context.Background())
	if !errors.Is(err, runner.ErrScenarioFailed) {
		t.Fatalf("expected failure got %v\n", err)
	}
	if !errors.Is(summary.Env("a").FailedStep().Err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded got %v\n", summary.Env("a").FailedStep().Err)
	}
}

func TestRunSelectsEnvironments(t *testing.T) {
	cfg := testConfig(t, "a", "b")
	factories := map[string]*mock.SessionFactory{
		"a": mock.MakeMockSessionFactory(loginSession),
		"b": mock.MakeMockSessionFactory(loginSession),
	}
	r := runner.New(cfg, loginScenario(harness.XPath(`//h1`)), resolverFor(factories)).SetEnvironments([]string{"b"})
	summary, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %s\n", err)
	}
	if len(summary.Envs) != 1 || factories["a"].CreateCalled != 0 {
		t.Fatalf("only b should run")
	}

	_, err = r.SetEnvironments([]string{"c"}).Run(context.Background())
	if !errors.Is(err, harness.ErrUnknownEnvironment) {
		t.Fatalf("expected unknown environment got %v\n", err)
	}
}

func TestPlan(t *testing.T) {
	names := loginScenario(harness.XPath(`//h1`)).Plan(testConfig(t, "a"))
	if len(names) != 6 || names[0] != runner.CreateSessionStep || names[5] != "done" {
		t.Fatalf("unexpected plan %v\n", names)
	}
}
