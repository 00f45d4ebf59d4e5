package runner

import (
	"context"
	"time"

	"gitlab.com/browserstep/harness"
)

// CreateSessionStep is the implicit first step of every environment
const CreateSessionStep = "create session"

// DefaultSessionTimeout bounds session creation
const DefaultSessionTimeout = 2 * time.Minute

// Step is one named unit of a scenario. A zero Timeout means the step is only
// bounded by the run context and the timeouts of the driver calls it makes.
type Step struct {
	Name    string
	Timeout time.Duration
	Run     func(ctx context.Context, d *harness.Driver) error
}

// Scenario is an ordered list of steps. NewSteps is called once per
// environment with that environment's copy of the config so state captured by
// the steps (generated usernames, read phrases) is never shared.
type Scenario struct {
	Name     string
	NewSteps func(cfg *harness.Config) []*Step
}

// Plan returns the step names an environment would execute, including the
// implicit session creation
func (s *Scenario) Plan(cfg *harness.Config) []string {
	steps := s.NewSteps(cfg.Copy())
	names := make([]string, 0, len(steps)+1)
	names = append(names, CreateSessionStep)
	for _, step := range steps {
		names = append(names, step.Name)
	}
	return names
}
