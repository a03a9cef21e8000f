package mnsched

// maxProfDepth caps the number of stack-segment frames handed to the
// profiler sampler per tick, matching the original runtime's bounded
// traceback depth inside a signal handler.
const maxProfDepth = 100

// SetCPUProfile implements spec §6's set_cpu_profile: install rateHz and
// sampler, taking the dedicated profiler lock so a profiling tick never
// races a rate change underfoot. A zero rateHz (or nil sampler) disables
// sampling; reconcileProfile picks up the new rate the next time each
// worker dispatches a task, exactly as exitsyscall's slow path does when
// it observes a stale profRate snapshot.
func (s *Scheduler) SetCPUProfile(rateHz int64, sampler func(pc, sp, lr uintptr, t *Task)) {
	s.profMu.Lock()
	defer s.profMu.Unlock()
	if rateHz <= 0 || sampler == nil {
		s.profRateHz.Store(0)
		s.profSample = nil
		return
	}
	s.profRateHz.Store(rateHz)
	s.profSample = sampler
}

// Sigprof implements spec §6's sigprof(pc, sp, lr, task): the profiler's
// per-tick callback, delivering a capped-length synthetic traceback (this
// repo has no real program counter/stack pointer/link register to sample,
// since task execution runs on a hidden goroutine rather than a second
// machine stack — see SPEC_FULL.md §4 "stack segments") to the installed
// sampler under the profiler lock. It is a no-op if profiling isn't
// enabled or t has no segments left to describe.
func (s *Scheduler) Sigprof(t *Task) {
	s.profMu.Lock()
	defer s.profMu.Unlock()
	sampler := s.profSample
	if sampler == nil || t == nil {
		return
	}

	depth := len(t.segStack)
	if depth > maxProfDepth {
		depth = maxProfDepth
	}
	for i := depth - 1; i >= 0; i-- {
		seg := t.segStack[i]
		sampler(seg.Base, seg.Base, seg.PrevBase, t)
	}
}
