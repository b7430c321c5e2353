package sampler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prefetchctl/prefetchctl/internal/barrier"
	"github.com/prefetchctl/prefetchctl/internal/controlplane"
	"github.com/prefetchctl/prefetchctl/internal/msr"
)

func TestRun_RestoresSafeMSRAndStopsOnCancel(t *testing.T) {
	dev := msr.NewMock()
	state := &controlplane.CoreState{CoreID: 0}
	b := barrier.New(1)
	events := msr.DefaultEvents()

	s := New(0, dev, state, b, events, 0x0F, 5*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	// Let a couple of ticks elapse, bumping the fixed counters between
	// ticks so IPC becomes observable.
	time.Sleep(12 * time.Millisecond)
	dev.Set(0, msr.FixedCtr0, 2000)
	dev.Set(0, msr.FixedCtr1, 1000)
	time.Sleep(12 * time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after context cancellation")
	}

	assert.Equal(t, uint64(0x0F), dev.Writes[len(dev.Writes)-1].Value, "must restore the safe MSR value on shutdown")
}

func TestRun_WritesDirtyMSRAfterBarrier(t *testing.T) {
	dev := msr.NewMock()
	state := &controlplane.CoreState{CoreID: 3}
	b := barrier.New(1)
	events := msr.DefaultEvents()

	s := New(3, dev, state, b, events, 0, 5*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	time.Sleep(8 * time.Millisecond)
	state.CurrentMSRValue = 0x30
	state.MSRDirty = true

	require.Eventually(t, func() bool {
		v, _ := dev.Read(3, msr.PrefetchControl)
		return v == 0x30 && !state.MSRDirty
	}, time.Second, 2*time.Millisecond)
}
