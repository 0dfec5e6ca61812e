// Package lock provides the busy gate that keeps a session to one
// outstanding analysis request.
package lock

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Locker grants exclusive ownership of a key. Ownership is proven by the
// token returned from TryAcquire; Release with a stale token is a no-op.
type Locker interface {
	// TryAcquire returns ok=false without blocking when the key is already held.
	TryAcquire(ctx context.Context, key string) (token string, ok bool, err error)
	Release(ctx context.Context, key, token string) error
}

// MemoryLocker is a process-local Locker.
type MemoryLocker struct {
	mu   sync.Mutex
	held map[string]string
}

// NewMemoryLocker creates a new MemoryLocker.
func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{held: make(map[string]string)}
}

// TryAcquire implements Locker.
func (l *MemoryLocker) TryAcquire(_ context.Context, key string) (string, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.held[key]; ok {
		return "", false, nil
	}
	token := uuid.New().String()
	l.held[key] = token
	return token, true, nil
}

// Release implements Locker.
func (l *MemoryLocker) Release(_ context.Context, key, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.held[key] == token {
		delete(l.held, key)
	}
	return nil
}
