package runner

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"gitlab.com/browserstep/harness"
	"gitlab.com/browserstep/store"
)

// ErrScenarioFailed is returned by Run when at least one environment failed
var ErrScenarioFailed = errors.New("scenario failed")

// Resolver returns the session factory for an environment
type Resolver func(env harness.Environment) (harness.SessionFactory, error)

// Runner executes a scenario against every selected environment. Environments
// run concurrently and never share a session, steps inside an environment run
// in order and stop at the first failure.
type Runner struct {
	cfg       *harness.Config
	scenario  *Scenario
	resolve   Resolver
	envNames  []string
	artifacts *store.Artifacts

	// SessionTimeout bounds the implicit create session step
	SessionTimeout time.Duration
	// CleanupTimeout bounds the failure screenshot and the final Quit, both of
	// which run on a fresh context
	CleanupTimeout time.Duration
}

// New runner for scenario
func New(cfg *harness.Config, scenario *Scenario, resolve Resolver) *Runner {
	return &Runner{
		cfg:            cfg,
		scenario:       scenario,
		resolve:        resolve,
		artifacts:      store.NewArtifacts(cfg.ErrorDir),
		SessionTimeout: DefaultSessionTimeout,
		CleanupTimeout: 30 * time.Second,
	}
}

// SetEnvironments restricts the run to the named environments, empty means all
func (r *Runner) SetEnvironments(names []string) *Runner {
	r.envNames = names
	return r
}

// Run the scenario. The summary is returned even when the scenario failed.
func (r *Runner) Run(ctx context.Context) (*Summary, error) {
	envs, err := r.cfg.Select(r.envNames)
	if err != nil {
		return nil, err
	}

	log.Info().Str("scenario", r.scenario.Name).Int("environments", len(envs)).Str("url", r.cfg.URL).Msg("starting run")

	summary := &Summary{
		Scenario: r.scenario.Name,
		Start:    time.Now(),
		Envs:     make([]*EnvResult, len(envs)),
	}

	g := &errgroup.Group{}
	for i := range envs {
		i, env := i, envs[i]
		g.Go(func() error {
			summary.Envs[i] = r.runEnvironment(ctx, env)
			return nil
		})
	}
	g.Wait()
	summary.End = time.Now()

	if summary.Failed() {
		return summary, ErrScenarioFailed
	}
	return summary, nil
}

func (r *Runner) runEnvironment(ctx context.Context, env harness.Environment) *EnvResult {
	logger := log.With().Str("env", env.Name).Str("scenario", r.scenario.Name).Logger()
	cfg := r.cfg.Copy()
	steps := r.scenario.NewSteps(cfg)

	result := &EnvResult{Env: env.Name, Steps: make([]*StepResult, 0, len(steps)+1)}

	start := time.Now()
	session, err := r.createSession(ctx, env)
	created := &StepResult{Name: CreateSessionStep, Status: StatusPassed, Elapsed: time.Since(start)}
	result.Steps = append(result.Steps, created)
	if err != nil {
		created.Status = StatusFailed
		created.Err = err
		result.Err = err
		logger.Error().Err(err).Str("step", CreateSessionStep).Msg("failed to create session")
		skipRemaining(result, steps)
		return result
	}

	defer r.quit(session, &logger)

	driver := harness.NewDriver(session, cfg.Defaults.Options(), &logger)
	for i, step := range steps {
		stepLog := logger.With().Str("step", step.Name).Logger()
		stepLog.Info().Msg("running step")

		start := time.Now()
		err := runStep(ctx, step, driver)
		stepResult := &StepResult{Name: step.Name, Status: StatusPassed, Elapsed: time.Since(start)}
		result.Steps = append(result.Steps, stepResult)
		if err == nil {
			stepLog.Debug().Dur("elapsed", stepResult.Elapsed).Msg("step passed")
			continue
		}

		stepResult.Status = StatusFailed
		stepResult.Err = err
		result.Err = errors.Wrapf(err, "step %q", step.Name)
		result.Screenshot = r.capture(session, &stepLog)
		stepLog.Error().Err(err).Str("screenshot", result.Screenshot).Dur("elapsed", stepResult.Elapsed).Msg("step failed")
		skipRemaining(result, steps[i+1:])
		return result
	}
	logger.Info().Dur("elapsed", time.Since(start)).Msg("all steps passed")
	return result
}

func (r *Runner) createSession(ctx context.Context, env harness.Environment) (harness.Session, error) {
	factory, err := r.resolve(env)
	if err != nil {
		return nil, errors.Wrapf(err, "resolving session factory for %s", env.Name)
	}
	createCtx, cancel := context.WithTimeout(ctx, r.SessionTimeout)
	defer cancel()
	session, err := factory.Create(createCtx)
	if err != nil {
		return nil, errors.Wrapf(err, "creating session for %s", env.Name)
	}
	return session, nil
}

func runStep(ctx context.Context, step *Step, d *harness.Driver) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if step.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, step.Timeout)
		defer cancel()
	}
	return step.Run(ctx, d)
}

func (r *Runner) capture(session harness.Session, logger *zerolog.Logger) string {
	ctx, cancel := context.WithTimeout(context.Background(), r.CleanupTimeout)
	defer cancel()
	path, err := r.artifacts.CaptureFailure(ctx, session)
	if err != nil {
		logger.Warn().Err(err).Msg("unable to capture failure screenshot")
		return ""
	}
	return path
}

func (r *Runner) quit(session harness.Session, logger *zerolog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), r.CleanupTimeout)
	defer cancel()
	if err := session.Quit(ctx); err != nil {
		logger.Warn().Err(err).Msg("failed to quit session")
		return
	}
	logger.Debug().Msg("session closed")
}

func skipRemaining(result *EnvResult, steps []*Step) {
	for _, step := range steps {
		result.Steps = append(result.Steps, &StepResult{Name: step.Name, Status: StatusSkipped})
	}
}
