package inbound

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingSweeper struct{ runs atomic.Int32 }

func (c *countingSweeper) SweepExpired(context.Context) (int, error) {
	c.runs.Add(1)
	return 0, nil
}

func TestRegisterCronJob(t *testing.T) {
	if testing.Short() {
		t.Skip("waits for the scheduler")
	}

	sw := &countingSweeper{}
	s, err := RegisterCronJob(context.Background(), time.Second, sw)
	require.NoError(t, err)

	s.Start()
	assert.Eventually(t, func() bool { return sw.runs.Load() > 0 }, 3*time.Second, 50*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
}
