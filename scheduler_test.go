package mnsched

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestScheduler(t *testing.T, cpuCap int) *Scheduler {
	t.Helper()
	s := New(WithCPUCap(cpuCap))
	s.Init()
	return s
}

// TestPingPongUnderCapOne is spec §8 scenario 1: two tasks hand a turn
// token back and forth 1000 times under cap=1, completing cleanly.
func TestPingPongUnderCapOne(t *testing.T) {
	s := newTestScheduler(t, 1)
	const rounds = 1000

	var turn atomic.Int32
	var wg sync.WaitGroup
	wg.Add(2)

	s.Spawn(func(task *Task) {
		defer wg.Done()
		for i := 0; i < rounds; i++ {
			for turn.Load() != 0 {
				task.Yield()
			}
			turn.Store(1)
		}
	}, nil, 0)

	s.Spawn(func(task *Task) {
		defer wg.Done()
		for i := 0; i < rounds; i++ {
			for turn.Load() != 1 {
				task.Yield()
			}
			turn.Store(0)
		}
	}, nil, 0)

	waitOrTimeout(t, &wg, 5*time.Second)
	code := s.Wait()
	assert.Equal(t, 0, code)
}

// TestParallelCounterUnderCapFour is spec §8 scenario 2.
func TestParallelCounterUnderCapFour(t *testing.T) {
	s := newTestScheduler(t, 4)
	const workers = 4
	const perWorker = 100000

	var counter atomic.Int64
	var wg sync.WaitGroup
	wg.Add(workers)

	for i := 0; i < workers; i++ {
		s.Spawn(func(task *Task) {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				counter.Add(1)
				if j%997 == 0 {
					task.Yield()
				}
			}
		}, nil, 0)
	}

	waitOrTimeout(t, &wg, 10*time.Second)
	assert.Equal(t, int64(workers*perWorker), counter.Load())
	assert.LessOrEqual(t, wordCPU(s.word.load()), 4)
}

// TestSpawnExitAccounting is spec §8's "Spawn/exit accounting" law: after
// a finite closed workload, gcount reaches zero and Wait returns 0.
func TestSpawnExitAccounting(t *testing.T) {
	s := newTestScheduler(t, 2)
	var wg sync.WaitGroup
	wg.Add(3)
	for i := 0; i < 3; i++ {
		s.Spawn(func(task *Task) { wg.Done() }, nil, 0)
	}
	waitOrTimeout(t, &wg, 5*time.Second)
	assert.Equal(t, 0, s.Wait())
	assert.Equal(t, int32(0), s.gcount.Load())
}

// TestStopStartRoundTrip exercises spec §8's stop/start law: Stop drives
// cpu down to <=1 and Start restores the configured cap so queued work
// continues draining.
func TestStopStartRoundTrip(t *testing.T) {
	s := newTestScheduler(t, 4)
	var wg sync.WaitGroup
	wg.Add(4)
	for i := 0; i < 4; i++ {
		s.Spawn(func(task *Task) {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				task.Yield()
			}
		}, nil, 0)
	}

	s.Stop()
	assert.LessOrEqual(t, wordCPU(s.word.load()), 1)
	s.Start()
	assert.Equal(t, 4, wordCPUMax(s.word.load()))

	waitOrTimeout(t, &wg, 5*time.Second)
}

func waitOrTimeout(t *testing.T, wg *sync.WaitGroup, d time.Duration) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(d):
		require.Fail(t, "timed out waiting for workload to complete")
	}
}
