package orchestrator

import (
	"errors"
	"fmt"

	"github.com/gofrs/flock"
)

// ErrLockContended is returned when another cycle already holds the
// single-instance lock; callers map this to process exit code 3.
var ErrLockContended = errors.New("orchestrator: lock already held")

// instanceLock wraps an OS-level advisory file lock. Two concurrent
// orchestrator processes pointed at the same lock path will never both
// proceed past TryAcquire.
type instanceLock struct {
	fl *flock.Flock
}

func newInstanceLock(path string) *instanceLock {
	return &instanceLock{fl: flock.New(path)}
}

// TryAcquire attempts a non-blocking lock, returning ErrLockContended if
// another process holds it.
func (l *instanceLock) TryAcquire() error {
	locked, err := l.fl.TryLock()
	if err != nil {
		return fmt.Errorf("orchestrator: lock attempt failed: %w", err)
	}
	if !locked {
		return ErrLockContended
	}
	return nil
}

// Release unlocks the file. Safe to call even if TryAcquire never
// succeeded; every cycle path calls this in a defer to preserve the
// lock-release invariant regardless of how the cycle ends.
func (l *instanceLock) Release() {
	_ = l.fl.Unlock()
}
