package mock

import (
	"context"
	"sync"

	"gitlab.com/browserstep/harness"
)

// SessionFactory hands out sessions built by CreateFn
type SessionFactory struct {
	mu sync.Mutex

	CreateFn     func(ctx context.Context) (harness.Session, error)
	CreateCalled int

	Created []harness.Session
}

// Create a session
func (f *SessionFactory) Create(ctx context.Context) (harness.Session, error) {
	f.mu.Lock()
	f.CreateCalled++
	f.mu.Unlock()

	sess, err := f.CreateFn(ctx)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	f.Created = append(f.Created, sess)
	f.mu.Unlock()
	return sess, nil
}

// MakeMockSessionFactory returns a factory building a fresh session per call
// with build
func MakeMockSessionFactory(build func() *Session) *SessionFactory {
	f := &SessionFactory{}
	f.CreateFn = func(ctx context.Context) (harness.Session, error) {
		return build(), nil
	}
	return f
}
