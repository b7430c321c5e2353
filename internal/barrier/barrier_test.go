package barrier

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBarrier_SingleCoreDegenerates(t *testing.T) {
	b := New(1)
	done := make(chan struct{})
	go func() {
		b.Arrive()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Arrive blocked on a single-participant barrier")
	}
	b.WaitAll()
	b.Release()
}

func TestBarrier_MasterWaitsForAllSamplersBeforeControllerRuns(t *testing.T) {
	const n = 4
	b := New(n)
	var published atomic.Int32
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			published.Add(1)
			b.Arrive()
		}()
	}

	b.WaitAll()
	assert.Equal(t, int32(n), published.Load(), "WaitAll must not return before every sampler has published and arrived")

	b.Release()
	wg.Wait()
}

func TestBarrier_SamplersBlockedUntilRelease(t *testing.T) {
	const n = 2
	b := New(n)
	var releasedFirst, releasedSecond atomic.Bool
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		b.Arrive()
		releasedFirst.Store(true)
	}()
	go func() {
		defer wg.Done()
		b.Arrive()
		releasedSecond.Store(true)
	}()

	b.WaitAll()
	time.Sleep(20 * time.Millisecond)
	assert.False(t, releasedFirst.Load())
	assert.False(t, releasedSecond.Load())

	b.Release()
	wg.Wait()
	assert.True(t, releasedFirst.Load())
	assert.True(t, releasedSecond.Load())
}

func TestBarrier_MultipleRoundsDoNotLeakState(t *testing.T) {
	const n = 3
	b := New(n)
	for round := 0; round < 5; round++ {
		var wg sync.WaitGroup
		wg.Add(n)
		for i := 0; i < n; i++ {
			go func() {
				defer wg.Done()
				b.Arrive()
			}()
		}
		b.WaitAll()
		assert.Equal(t, 0, b.Waiting())
		b.Release()
		wg.Wait()
	}
}
