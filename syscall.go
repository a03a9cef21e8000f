package mnsched

// EnterSyscall implements spec §4.4: record enough state for GC/traceback,
// snapshot the stack extent, mark the task in-syscall, and stop counting
// it against the CPU cap. If neither gWaiting nor a quorum-satisfying
// waitStop is observed after the decrement, this returns without taking
// the scheduler lock at all.
func (t *Task) EnterSyscall() {
	s := t.sched
	t.gcLo, t.gcHi = t.top.Base, t.top.Base+uintptr(t.top.Size)
	t.setStatus(statusSyscall)

	v := s.word.addCPU(-1)
	if !wordGWaiting(v) && !(wordWaitStop(v) && wordCPU(v) <= wordCPUMax(v)) {
		return
	}

	s.mu.Lock()
	if wordGWaiting(s.word.load()) {
		s.matchmg()
	}
	v = s.word.load()
	if wordWaitStop(v) && wordCPU(v) <= wordCPUMax(v) {
		s.word.clearWaitStop()
		s.stopped.Wakeup()
	}
	s.flushWakeup()
}

// ExitSyscall implements spec §4.4's fast/slow path: try to reclaim a CPU
// slot without the lock; if the profiler rate changed underneath us, or
// every slot is taken, fall back to marking ready-on-stop and yielding,
// letting the scheduler re-enqueue this task and undo our mcpu++.
func (t *Task) ExitSyscall() {
	s := t.sched
	v := s.word.addCPU(1)
	if t.m != nil && t.m.profRate.Load() == s.profRateHz.Load() && wordCPU(v) <= wordCPUMax(v) {
		t.setStatus(statusRunning)
		t.gcLo, t.gcHi = 0, 0
		return
	}

	t.readyOnStop.Store(true)
	t.Yield()
	t.gcLo, t.gcHi = 0, 0
}
