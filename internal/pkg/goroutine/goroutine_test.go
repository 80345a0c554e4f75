package goroutine

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManagerRunsAndCollectsErrors(t *testing.T) {
	m := NewManager(4)

	var ran atomic.Int32
	boom := errors.New("boom")

	for range 3 {
		require.True(t, m.Go(context.Background(), "count", func(context.Context) error {
			ran.Add(1)
			return nil
		}))
	}
	m.Go(context.Background(), "fail", func(context.Context) error { return boom })

	err := m.Wait()
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, int32(3), ran.Load())
}

func TestManagerDropsWhenFull(t *testing.T) {
	m := NewManager(1)
	release := make(chan struct{})

	require.True(t, m.Go(context.Background(), "block", func(context.Context) error {
		<-release
		return nil
	}))
	assert.False(t, m.Go(context.Background(), "dropped", func(context.Context) error { return nil }))

	close(release)
	require.NoError(t, m.Wait())
}

func TestManagerRecoversPanicAndRejectsAfterWait(t *testing.T) {
	m := NewManager(2)
	m.Go(context.Background(), "panic", func(context.Context) error { panic("bad") })
	require.NoError(t, m.Wait())

	assert.False(t, m.Go(context.Background(), "late", func(context.Context) error { return nil }))

	var nilManager *Manager
	assert.False(t, nilManager.Go(context.Background(), "nil", nil))
	assert.NoError(t, nilManager.Wait())
}
