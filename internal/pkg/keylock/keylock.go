// Package keylock provides mutual exclusion per string key.
//
// Operations on the same key run one at a time; different keys never wait
// on each other. Idle keys are dropped by the underlying locker.
package keylock

import (
	"sync"

	"github.com/moby/locker"
)

// Locker hands out per-key locks.
type Locker struct {
	named *locker.Locker
}

// New returns an empty Locker.
func New() *Locker {
	return &Locker{named: locker.New()}
}

// Lock blocks until key is free and returns the function releasing it.
// Calling the returned function more than once is a no-op.
func (l *Locker) Lock(key string) (unlock func()) {
	l.named.Lock(key)

	var once sync.Once
	return func() {
		once.Do(func() {
			// The only error is ErrNoSuchLock, impossible while we hold key.
			_ = l.named.Unlock(key)
		})
	}
}
