package mnsched

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestStackGrowAcrossFiveSegments is spec §8 scenario 3: a recursive task
// forces 5 segment allocations, retiring each on return, and exits
// holding only its original segment.
func TestStackGrowAcrossFiveSegments(t *testing.T) {
	s := newTestScheduler(t, 1)
	var maxDepthSeen int
	var wg sync.WaitGroup
	wg.Add(1)

	var recurse func(task *Task, depth int)
	recurse = func(task *Task, depth int) {
		task.GrowStack(4096, 0)
		if len(task.segStack) > maxDepthSeen {
			maxDepthSeen = len(task.segStack)
		}
		if depth < 4 {
			recurse(task, depth+1)
		}
		task.shrinkStack()
	}

	s.Spawn(func(task *Task) {
		defer wg.Done()
		require.Equal(t, 1, len(task.segStack))
		recurse(task, 0)
		assert.Equal(t, 1, len(task.segStack), "task should hold only its original segment after returning")
	}, nil, 0)

	waitOrTimeout(t, &wg, 5*time.Second)
	assert.Equal(t, 1+5, maxDepthSeen, "original segment plus 5 grown segments")
}

// TestSyscallTransparency is spec §8's "Syscall transparency" law: a task
// that calls EnterSyscall/ExitSyscall with no intervening work observes
// no visible state change to itself beyond a possible yield.
func TestSyscallTransparency(t *testing.T) {
	s := newTestScheduler(t, 2)
	var statusBefore, statusAfter string
	var wg sync.WaitGroup
	wg.Add(1)

	s.Spawn(func(task *Task) {
		defer wg.Done()
		statusBefore = task.Status()
		task.EnterSyscall()
		task.ExitSyscall()
		statusAfter = task.Status()
	}, nil, 0)

	waitOrTimeout(t, &wg, 5*time.Second)
	assert.Equal(t, statusBefore, statusAfter)
}
