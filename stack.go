package mnsched

import (
	"go.uber.org/zap"

	"github.com/go-mnsched/mnsched/internal/platform"
)

// GrowStack implements spec §4.7's newstack: called (by task code, or by
// a collaborator emulating the compiler's stack-check prologue) when the
// current segment doesn't have room for a frame of frameSize bytes plus
// argSize bytes of copied arguments. mnsched cannot actually execute code
// on a second machine stack (the real call stack backing task execution
// is the hidden goroutine inside the task's ExecContext — see
// SPEC_FULL.md §4), so this manages the segment chain as real, separately
// allocated bookkeeping: a real buffer, a real header, real chaining and
// real free-size accounting, exercised directly by tests that simulate
// the documented "5 segments" growth scenario.
func (t *Task) GrowStack(frameSize, argSize int) {
	if argSize%int(unsafeAlign) != 0 {
		t.sched.throw("misaligned argsize in newstack", zap.Int64("task", t.id))
		return
	}

	if frameSize == 1 && t.top.Free >= argSize {
		// "reflect-call" convention: caller only needs room for
		// arguments, and the current segment already has it — install a
		// zero-allocation header on top instead of allocating.
		seg := platform.Borrow(t.top, t.top.Base, argSize)
		seg.IsPanic = t.isPanic.Load()
		t.segStack = append(t.segStack, seg)
		t.top = seg
		return
	}

	size := frameSize + argSize
	if size < StackMin {
		size = StackMin
	}
	size += StackExtra + StackSystem

	seg := t.sched.stackAlloc.Alloc(size)
	seg.PrevBase = t.top.Base
	seg.PrevGuard = t.top.Low
	seg.ArgPtr = seg.Base
	seg.ArgSize = argSize
	seg.IsPanic = t.isPanic.Load()
	t.segStack = append(t.segStack, seg)
	t.top = seg
}

// shrinkStack implements spec §4.7's oldstack: restore the previous
// segment and free the one being retired (unless it was borrowed, i.e.
// Free == 0).
func (t *Task) shrinkStack() {
	n := len(t.segStack)
	if n <= 1 {
		t.sched.throw("shrinkStack called on innermost segment", zap.Int64("task", t.id))
		return
	}
	seg := t.segStack[n-1]
	t.segStack = t.segStack[:n-1]
	t.sched.stackAlloc.Free(seg)
	t.top = t.segStack[len(t.segStack)-1]
}

// unwindStack retires segments of t until either the segment whose
// [Base, Base+Size) range contains targetAddr is reached, or only the
// innermost segment remains (targetAddr == 0 means "retire everything
// down to the original allocation", used on task exit per spec §4.3's
// moribund handling).
func (s *Scheduler) unwindStack(t *Task, targetAddr uintptr) {
	for len(t.segStack) > 1 {
		top := t.top
		if targetAddr != 0 && targetAddr >= top.Base && targetAddr < top.Base+uintptr(top.Size) {
			return
		}
		t.shrinkStack()
	}
}
