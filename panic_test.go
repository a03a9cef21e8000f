package mnsched

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// TestDeferLIFO is spec §8's "Defer LIFO" law: inserting N defers then
// returning normally fires them N..1.
func TestDeferLIFO(t *testing.T) {
	s := newTestScheduler(t, 1)
	var order []int
	var mu sync.Mutex
	var wg sync.WaitGroup
	wg.Add(1)

	s.Spawn(func(task *Task) {
		// Registered first, so it fires last: after the five below.
		task.Defer(func(task *Task) { wg.Done() })
		for i := 1; i <= 5; i++ {
			i := i
			task.Defer(func(task *Task) {
				mu.Lock()
				order = append(order, i)
				mu.Unlock()
			})
		}
	}, nil, 0)

	waitOrTimeout(t, &wg, 5*time.Second)
	assert.Equal(t, []int{5, 4, 3, 2, 1}, order)
}

// TestPanicRecoveredTwoFramesUp is spec §8 scenario 4: a defer registered
// two call-frames up recovers a panic raised deeper in the call chain.
// mnsched's Panic does not unwind the real Go call stack (see DESIGN.md
// "defer.go/panic.go" on the frameDepth simplification), so — unlike the
// original runtime, which discards the intervening frames entirely —
// control returns normally to the Panic call site once a defer recovers;
// what the test verifies is that Recover reports the right value at the
// right frame and that the task still exits with no outstanding panic.
func TestPanicRecoveredTwoFramesUp(t *testing.T) {
	s := newTestScheduler(t, 1)
	var recoveredValue any
	var recoveredOK bool
	var afterPanicRan bool
	var wg sync.WaitGroup
	wg.Add(1)

	s.Spawn(func(task *Task) {
		defer wg.Done()

		task.Defer(func(task *Task) {
			recoveredValue, recoveredOK = task.Recover()
		})

		task.CallFrame(func(task *Task) {
			task.CallFrame(func(task *Task) {
				task.Panic("boom")
			})
		})

		afterPanicRan = true
	}, nil, 0)

	waitOrTimeout(t, &wg, 5*time.Second)
	assert.True(t, recoveredOK)
	assert.Equal(t, "boom", recoveredValue)
	assert.True(t, afterPanicRan)
	assert.Equal(t, 0, s.Wait())
}

// TestRecoverIdempotence is spec §8's "Recover idempotence" law: a second
// Recover call in the same defer chain, after one already recovered,
// sees no panic and returns ok == false.
func TestRecoverIdempotence(t *testing.T) {
	s := newTestScheduler(t, 1)
	var firstOK, secondOK bool
	var wg sync.WaitGroup
	wg.Add(1)

	s.Spawn(func(task *Task) {
		defer wg.Done()
		task.Defer(func(task *Task) {
			_, firstOK = task.Recover()
			_, secondOK = task.Recover()
		})
		task.Panic("once")
	}, nil, 0)

	waitOrTimeout(t, &wg, 5*time.Second)
	assert.True(t, firstOK)
	assert.False(t, secondOK)
}

// TestRecoverFromNestedHelperFails models spec §4.8's "top of the
// panicking frame" restriction: a Recover call made from inside a helper
// the deferred function calls (one CallFrame deeper) does not see the
// panic as recoverable from that depth.
func TestRecoverFromNestedHelperFails(t *testing.T) {
	s := newTestScheduler(t, 1)
	var helperOK bool
	var wg sync.WaitGroup
	wg.Add(1)

	s.Spawn(func(task *Task) {
		defer wg.Done()
		task.Defer(func(task *Task) {
			task.CallFrame(func(task *Task) {
				_, helperOK = task.Recover()
			})
		})
		task.Panic("nested")
	}, nil, 0)

	waitOrTimeout(t, &wg, 5*time.Second)
	assert.False(t, helperOK)
}
