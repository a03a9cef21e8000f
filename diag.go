package mnsched

import (
	"fmt"
	"strings"
)

// GoroutineHeader implements spec §6's goroutine_header(t): a one-line
// summary of a task's lifecycle state, mirroring the original runtime's
// traceback header ("goroutine 7 [running]:").
func GoroutineHeader(t *Task) string {
	status := t.getStatus().String()
	if t.getStatus() == statusWaiting && t.waitReason != "" {
		status = t.waitReason
	}
	return fmt.Sprintf("task %d [%s]:", t.id, status)
}

// Traceback writes a header line for every non-dead task known to s, in
// the order their control blocks were first registered (a reused dead
// block keeps its slot under its new id), the way a process-wide "all
// goroutines" dump would.
// It takes the diagnostics lock only long enough to snapshot the slice.
func (s *Scheduler) Traceback() string {
	s.allTasksMu.Lock()
	tasks := make([]*Task, len(s.allTasks))
	copy(tasks, s.allTasks)
	s.allTasksMu.Unlock()

	var b strings.Builder
	for _, t := range tasks {
		if t.getStatus() == statusDead {
			continue
		}
		b.WriteString(GoroutineHeader(t))
		b.WriteByte('\n')
	}
	return b.String()
}
