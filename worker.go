package mnsched

import (
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/go-mnsched/mnsched/internal/platform"
)

// Worker is one OS thread that can run tasks — the repository's "M". In
// this implementation a Worker's own goroutine plays the role the
// original gives the M's g0 stack: schedule and nextgandunlock run
// directly on it, never on a separately switched context.
type Worker struct {
	id    int64
	sched *Scheduler

	curg   *Task
	nextg  *Task
	parked atomic.Bool

	haveNextG platform.Note

	wiredTask *Task
	idleTask  *Task

	isAllocating atomic.Bool
	isGCing      atomic.Bool
	lockDepth    atomic.Int32

	profRate atomic.Int64
}

// spawnWorker allocates a Worker and starts its OS thread (a goroutine,
// here). No separate bootstrap task is allocated: the worker's goroutine
// itself serves as the bootstrap stack. Caller holds s.mu.
func (s *Scheduler) spawnWorker() *Worker {
	w := &Worker{
		id:        s.mcount.Add(1),
		sched:     s,
		haveNextG: platform.NewNote(),
	}
	s.registerWorker(w)
	go w.run()
	return w
}

// run is the worker main loop: repeatedly schedule the next task and
// dispatch into it until the scheduler terminates. Unlike the original's
// schedule(), which tail-calls itself via a true stack switch and so never
// grows the C stack, this is an explicit loop — Go gives us no tail-call
// guarantee, and recursing once per task-switch would grow the worker
// goroutine's call stack without bound over a long-running scheduler.
func (w *Worker) run() {
	var prev *Task
	for {
		next, terminated := w.schedule(prev)
		if terminated {
			return
		}
		w.curg = next
		next.m = w
		w.dispatchOnce(next)
		prev = next
	}
}

// dispatchOnce resumes next's execution context: first dispatch calls
// into its entry trampoline, subsequent dispatches continue from the
// point it last called Yield. It returns once next has suspended or
// exited.
func (w *Worker) dispatchOnce(next *Task) {
	if !next.ctx.Started() {
		next.ctx.ResumeWithCall(next.exitTrampoline)
		return
	}
	next.ctx.Resume()
}

// schedule is spec §4.3's schedule(prev): account for the task that just
// suspended (if any), then find the next one to run. It returns
// (nil, true) once the whole workload has finished (gcount reached 0).
func (w *Worker) schedule(prev *Task) (*Task, bool) {
	s := w.sched
	s.mu.Lock()

	if prev != nil {
		if s.predawn.Load() {
			s.mu.Unlock()
			s.throw("init rescheduling")
			return nil, true
		}
		prev.m = nil
		s.grunning.Add(-1)
		v := s.word.addCPU(-1)
		if wordCPU(v) > maxgomaxprocs {
			s.mu.Unlock()
			s.throw("negative cpu in scheduler")
			return nil, true
		}

		switch prev.getStatus() {
		case statusRunning:
			prev.setStatus(statusRunnable)
			s.gput(prev)
		case statusMoribund:
			prev.setStatus(statusDead)
			if prev.wired != nil {
				prev.wired.wiredTask = nil
				prev.wired = nil
			}
			prev.idleForWorker = nil
			s.unwindStack(prev, 0)
			s.deadq = append(s.deadq, prev)
			if s.gcount.Add(-1) == 0 {
				s.mu.Unlock()
				s.finish(0)
				return nil, true
			}
		case statusSyscall:
			if !prev.readyOnStop.Load() {
				s.mu.Unlock()
				s.throw("bad task status in schedule")
				return nil, true
			}
			// Handled below via the readyOnStop check: exitsyscall left
			// status alone on purpose (spec §4.4/§4.3).
		default:
			s.mu.Unlock()
			s.throw("bad task status in schedule", zap.String("status", prev.getStatus().String()))
			return nil, true
		}

		if prev.readyOnStop.Load() {
			prev.readyOnStop.Store(false)
			prev.setStatus(statusRunnable)
			s.gput(prev)
		}
	}

	next := s.nextgandunlock(w) // releases s.mu
	next.readyOnStop.Store(false)
	next.setStatus(statusRunning)
	w.reconcileProfile(next)
	return next, false
}

func (w *Worker) reconcileProfile(t *Task) {
	w.profRate.Store(w.sched.profRateHz.Load())
}
