package browser

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"gitlab.com/browserstep/harness"
)

// Resolver maps environments to real browser session factories. Each local
// environment gets its own LocalLeaser.
type Resolver struct {
	mu      sync.Mutex
	leasers map[string]*LocalLeaser
}

// NewResolver for real browsers
func NewResolver() *Resolver {
	return &Resolver{leasers: make(map[string]*LocalLeaser)}
}

// Resolve the session factory for env
func (r *Resolver) Resolve(env harness.Environment) (harness.SessionFactory, error) {
	switch env.Kind {
	case harness.EnvExec:
		return harness.SessionFactoryFunc(func(ctx context.Context) (harness.Session, error) {
			return NewExecSession(ctx, env)
		}), nil
	case harness.EnvRemote:
		if env.RemoteURL == "" {
			return nil, errors.Errorf("environment %s has no remote_url", env.Name)
		}
		return harness.SessionFactoryFunc(func(ctx context.Context) (harness.Session, error) {
			return NewRemoteSession(ctx, env)
		}), nil
	case harness.EnvLocal:
		leaser, err := r.leaser(env)
		if err != nil {
			return nil, err
		}
		return harness.SessionFactoryFunc(func(ctx context.Context) (harness.Session, error) {
			return NewLeasedSession(ctx, env, leaser)
		}), nil
	case harness.EnvRod:
		return harness.SessionFactoryFunc(func(ctx context.Context) (harness.Session, error) {
			return NewRodSession(ctx, env)
		}), nil
	}
	return nil, errors.Errorf("environment %s has unknown kind %q", env.Name, env.Kind)
}

func (r *Resolver) leaser(env harness.Environment) (*LocalLeaser, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if l, ok := r.leasers[env.Name]; ok {
		return l, nil
	}
	l, err := NewLocalLeaser(env.ChromePath, env.Headless, env.WindowWidth, env.WindowHeight)
	if err != nil {
		return nil, err
	}
	r.leasers[env.Name] = l
	return l, nil
}

// Close kills any browser a leaser still holds
func (r *Resolver) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var firstErr error
	for _, l := range r.leasers {
		if err := l.Cleanup(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
