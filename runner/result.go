package runner

import (
	"fmt"
	"io"
	"time"
)

// Status of a step after a run
type Status int8

const (
	// StatusPassed step ran without error
	StatusPassed Status = iota + 1
	// StatusFailed step returned an error, the environment stopped here
	StatusFailed
	// StatusSkipped step never ran because an earlier step failed
	StatusSkipped
)

// StatusMap names for each status
var StatusMap = map[Status]string{
	StatusPassed:  "passed",
	StatusFailed:  "failed",
	StatusSkipped: "skipped",
}

func (s Status) String() string {
	if name, ok := StatusMap[s]; ok {
		return name
	}
	return "unknown"
}

// StepResult of a single step
type StepResult struct {
	Name    string
	Status  Status
	Elapsed time.Duration
	Err     error
}

// EnvResult of one environment
type EnvResult struct {
	Env        string
	Steps      []*StepResult
	Screenshot string
	Err        error
}

// Failed reports whether any step of the environment failed
func (e *EnvResult) Failed() bool {
	return e.Err != nil
}

// FailedStep returns the step that stopped the environment or nil
func (e *EnvResult) FailedStep() *StepResult {
	for _, step := range e.Steps {
		if step.Status == StatusFailed {
			return step
		}
	}
	return nil
}

// Count steps with status
func (e *EnvResult) Count(status Status) int {
	n := 0
	for _, step := range e.Steps {
		if step.Status == status {
			n++
		}
	}
	return n
}

// Summary of a scenario run across environments
type Summary struct {
	Scenario string
	Start    time.Time
	End      time.Time
	Envs     []*EnvResult
}

// Failed reports whether any environment failed
func (s *Summary) Failed() bool {
	for _, env := range s.Envs {
		if env.Failed() {
			return true
		}
	}
	return false
}

// Env result by name or nil
func (s *Summary) Env(name string) *EnvResult {
	for _, env := range s.Envs {
		if env.Env == name {
			return env
		}
	}
	return nil
}

// Print a human readable summary to w
func (s *Summary) Print(w io.Writer) {
	fmt.Fprintf(w, "Scenario %q ran against %d environment(s) in %s\n", s.Scenario, len(s.Envs), s.End.Sub(s.Start).Round(time.Millisecond))
	for _, env := range s.Envs {
		result := "PASS"
		if env.Failed() {
			result = "FAIL"
		}
		fmt.Fprintf(w, "\n[%s] %s: %d passed, %d failed, %d skipped\n", result, env.Env, env.Count(StatusPassed), env.Count(StatusFailed), env.Count(StatusSkipped))
		for _, step := range env.Steps {
			fmt.Fprintf(w, "  %-8s %-50s %s\n", step.Status, step.Name, step.Elapsed.Round(time.Millisecond))
			if step.Err != nil {
				fmt.Fprintf(w, "           %s\n", step.Err)
			}
		}
		if env.Screenshot != "" {
			fmt.Fprintf(w, "  screenshot: %s\n", env.Screenshot)
		}
	}
}
