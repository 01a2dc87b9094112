// Package lock serializes batch jobs per scope (one organization, one widget)
// so overlapping runs of the same job cannot overwrite each other's results.
package lock

import (
	"context"
	"errors"
	"sync"
)

// ErrLockHeld is returned when another run already holds the scope.
var ErrLockHeld = errors.New("lock held by another run")

// Locker acquires a non-blocking lock on a scope. The returned release
// function is safe to call once.
type Locker interface {
	Acquire(ctx context.Context, scope string) (release func(), err error)
}

// LocalLocker is an in-process Locker used when Redis is not configured
// and in tests.
type LocalLocker struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{held: make(map[string]struct{})}
}

func (l *LocalLocker) Acquire(_ context.Context, scope string) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.held[scope]; ok {
		return nil, ErrLockHeld
	}
	l.held[scope] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.held, scope)
			l.mu.Unlock()
		})
	}, nil
}

// Scope helpers keep lock names consistent between server and worker.

func OrganizationScope(job, organizationID string) string {
	return job + ":org:" + organizationID
}

func WidgetScope(job, widgetID string) string {
	return job + ":widget:" + widgetID
}
