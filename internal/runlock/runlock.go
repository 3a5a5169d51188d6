package runlock

import (
	"context"
	"errors"
	"sync"
)

// ErrLocked is returned by Lock when another run holds the lock.
var ErrLocked = errors.New("runlock: another run holds the destination lock")

// Locker serializes runs against one destination. Lock does not wait: it
// either takes the lock or returns ErrLocked.
type Locker interface {
	Lock(ctx context.Context) error
	Unlock(ctx context.Context) error
	Close() error
}

// LocalLocker serializes runs within one process.
type LocalLocker struct {
	mu   sync.Mutex
	held bool
}

// NewLocalLocker creates an in-process lock.
func NewLocalLocker() *LocalLocker { return &LocalLocker{} }

func (l *LocalLocker) Lock(_ context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held {
		return ErrLocked
	}
	l.held = true
	return nil
}

func (l *LocalLocker) Unlock(_ context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.held = false
	return nil
}

func (l *LocalLocker) Close() error { return nil }
