package keylock

import (
	"sync"
	"testing"
	"time"

	"github.com/moby/locker"
	"github.com/stretchr/testify/assert"
)

// assertReleased checks that no goroutine holds or awaits key.
func assertReleased(t *testing.T, l *Locker, key string) {
	t.Helper()
	assert.ErrorIs(t, l.named.Unlock(key), locker.ErrNoSuchLock)
}

func TestLockerSerializesSameKey(t *testing.T) {
	l := New()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		active  int
		maxSeen int
	)

	for range 20 {
		wg.Go(func() {
			unlock := l.Lock("+910000000001")
			defer unlock()

			mu.Lock()
			active++
			maxSeen = max(maxSeen, active)
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			active--
			mu.Unlock()
		})
	}
	wg.Wait()

	assert.Equal(t, 1, maxSeen)
	assertReleased(t, l, "+910000000001")
}

func TestLockerDifferentKeysDoNotBlock(t *testing.T) {
	l := New()

	unlockA := l.Lock("a")
	defer unlockA()

	done := make(chan struct{})
	go func() {
		unlock := l.Lock("b")
		unlock()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock on b waited for a")
	}
}

func TestLockerUnlockIsIdempotent(t *testing.T) {
	l := New()

	unlock := l.Lock("k")
	unlock()
	unlock()

	assertReleased(t, l, "k")
	l.Lock("k")()
}
