package mnsched

import "go.uber.org/zap"

// matchmg matches ready tasks to idle (or freshly spawned) workers while
// the run queue has work and the CPU cap has room. Caller holds s.mu.
func (s *Scheduler) matchmg() {
	for s.haveWork() && s.word.canAddCPU() {
		t := s.gget(nil)
		if t == nil {
			// canAddCPU succeeded speculatively but gget found nothing:
			// undo the speculative increment and stop.
			s.word.addCPU(-1)
			return
		}
		w := s.mget(t)
		if w == nil {
			w = s.spawnWorker()
		}
		s.mnextg(w, t)
	}
}

// mnextg hands t directly to w: increments grunning, writes t into w's
// hand-off slot, and — if w is parked waiting on its have-next-task note —
// defers exactly one notewakeup to the moment the scheduler lock is
// dropped (the mwakeup register, spec §4.2/§9). Caller holds s.mu.
func (s *Scheduler) mnextg(w *Worker, t *Task) {
	s.grunning.Add(1)
	w.nextg = t
	if w.parked.Load() {
		if s.mwakeup != nil && s.mwakeup != w {
			s.mwakeup.haveNextG.Wakeup()
		}
		s.mwakeup = w
	}
}

// flushWakeup is the single unlock path for any critical section that may
// have populated s.mwakeup (via mnextg): it clears the slot, releases the
// lock, then fires the one deferred notewakeup — mirroring the original's
// schedunlock(), the single unlock function every lock-holder routes
// through (original_source/proc.c:214-224). Callers must hold s.mu and
// must call this instead of a bare s.mu.Unlock().
func (s *Scheduler) flushWakeup() {
	w := s.mwakeup
	s.mwakeup = nil
	s.mu.Unlock()
	if w != nil {
		w.haveNextG.Wakeup()
	}
}

// nextgandunlock implements spec §4.2's park/dispatch decision for the
// calling worker w. It always releases s.mu before returning (even though
// the caller passed it in locked) and returns the task to run, parking
// the worker on its have-next-task note until one is handed over. It
// returns nil only after a fatal throw (deadlock or an empty wakeup).
func (s *Scheduler) nextgandunlock(w *Worker) *Task {
	if t := w.nextg; t != nil {
		w.nextg = nil
		s.flushWakeup()
		return t
	}

	if w.wiredTask != nil && w.wiredTask.getStatus() != statusRunnable {
		// Make sure some other worker exists to drain the global queue
		// while we wait specifically for our wired task.
		s.matchmg()
		if t := w.nextg; t != nil {
			w.nextg = nil
			s.flushWakeup()
			return t
		}
	}

	for s.haveWork() && s.word.canAddCPU() {
		t := s.gget(w)
		if t == nil {
			s.word.addCPU(-1)
			break
		}
		if t.wired != nil && t.wired != w {
			s.mnextg(t.wired, t)
			continue
		}
		s.grunning.Add(1)
		t.setStatus(statusRunning)
		s.flushWakeup()
		return t
	}

	// No work available under the cap, or the cap itself is exhausted:
	// park this worker and sleep on its have-next-task note.
	if s.grunning.Load() == 0 {
		s.flushWakeup()
		s.throw("all tasks are asleep - deadlock")
		return nil
	}
	s.mput(w)
	w.parked.Store(true)

	if wordWaitStop(s.word.load()) {
		v := s.word.load()
		if wordCPU(v) <= wordCPUMax(v) {
			s.word.clearWaitStop()
			s.stopped.Wakeup()
		}
	}

	s.flushWakeup()
	w.haveNextG.Sleep()
	w.parked.Store(false)

	s.mu.Lock()
	t := w.nextg
	w.nextg = nil
	s.flushWakeup()
	if t == nil {
		s.throw("worker woke with no next task", zap.Int64("worker", w.id))
	}
	return t
}
