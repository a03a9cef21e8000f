package mnsched

import (
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/go-mnsched/mnsched/internal/platform"
)

// StackMin/StackExtra/StackSystem/GuardSize size the segments allocated by
// GrowStack, matching the shape (if not the exact byte counts) of the
// original runtime's stack-growth constants.
const (
	StackMin    = 8192
	StackExtra  = 1024
	StackSystem = 512
	GuardSize   = platform.GuardSize

	// maxArgSize is the "caller error, not recoverable" ceiling on Spawn's
	// argument bytes: spec §4.6 requires argsize <= StackMin-1024.
	maxArgSize = StackMin - 1024
)

// Task is one lightweight, cooperatively-scheduled unit of execution —
// the repository's "G". A Task's entry function receives the *Task itself
// so it can call the self-referential operations (Yield, EnterSyscall,
// Defer, Panic, Recover, ...) without any goroutine-local lookup.
type Task struct {
	id     int64
	status atomic.Int32 // taskStatus

	sched *Scheduler
	ctx   *platform.ExecContext
	y     *platform.Yielder // set once the entry goroutine has started

	entry   func(*Task)
	args    []byte
	retSize int

	// stack spine
	top        *platform.Segment
	segStack   []*platform.Segment // t.top == segStack[len(segStack)-1]
	stack0Base uintptr              // innermost segment's base, for free-list validation
	stack0Low  uintptr

	// GC-visible snapshot, valid only while status == statusSyscall
	gcLo, gcHi uintptr

	wired         *Worker // wired worker, or nil
	m             *Worker // worker currently running this task (valid while running/syscall)
	idleForWorker *Worker // set if this task is some worker's private idle task

	readyOnStop atomic.Bool
	isPanic     atomic.Bool
	waitReason  string

	deferHead  *deferRecord
	panicHead  *panicRecord
	frameDepth int
}

func (t *Task) setStatus(s taskStatus) { t.status.Store(int32(s)) }
func (t *Task) getStatus() taskStatus  { return taskStatus(t.status.Load()) }

// ID returns the task's monotonically assigned identity.
func (t *Task) ID() int64 { return t.id }

// Status reports the task's current lifecycle state, for diagnostics.
func (t *Task) Status() string { return t.getStatus().String() }

// newTask takes a dead task off the free-list if one is available
// (validating the free-list guard invariant), else allocates fresh.
func (s *Scheduler) newTask() *Task {
	s.mu.Lock()
	var t *Task
	if n := len(s.deadq); n > 0 {
		t = s.deadq[n-1]
		s.deadq = s.deadq[:n-1]
		if t.top != nil && (t.top.Base != t.stack0Base || t.top.Low-t.top.Base != GuardSize) {
			s.mu.Unlock()
			s.throw("dead task free-list guard mismatch", zap.Int64("task", t.id))
			return nil
		}
	}
	s.mu.Unlock()

	if t == nil {
		t = &Task{sched: s}
		s.registerTask(t)
	}
	t.ctx = platform.NewExecContext()
	t.deferHead = nil
	t.panicHead = nil
	t.frameDepth = 0
	t.isPanic.Store(false)
	t.readyOnStop.Store(false)
	t.wired = nil
	t.m = nil
	t.idleForWorker = nil
	t.waitReason = "new task"
	t.setStatus(statusWaiting)
	return t
}

// Spawn creates a new Task running fn(t), copying argbytes into the task's
// own buffer the way a real caller-to-callee argument copy would, and
// marks it ready. argbytes must be at most StackMin-1024 bytes: larger
// argument lists are a caller error, not a recoverable condition, per
// spec §4.6.
func (s *Scheduler) Spawn(fn func(t *Task), argbytes []byte, retSize int) *Task {
	if len(argbytes) > maxArgSize {
		s.throw("argument size exceeds StackMin-1024", zap.Int("size", len(argbytes)))
	}
	if retSize < 0 || retSize%int(unsafeAlign) != 0 {
		s.throw("misaligned argument size")
	}

	t := s.newTask()
	t.entry = fn
	t.retSize = retSize
	if len(argbytes) > 0 {
		t.args = make([]byte, len(argbytes))
		copy(t.args, argbytes)
	} else {
		t.args = nil
	}
	t.top = s.stackAlloc.Alloc(StackMin)
	t.segStack = []*platform.Segment{t.top}
	t.stack0Base = t.top.Base
	t.stack0Low = t.top.Low
	t.id = s.nextTaskID.Add(1)

	s.gcount.Add(1)
	s.ready(t)
	return t
}

// unsafeAlign is the word alignment argument sizes must respect; modeled
// as 8 (64-bit word) regardless of host GOARCH since mnsched never emits
// machine code that cares about real alignment, only the invariant check
// spec §4.7 step 2 calls out.
const unsafeAlign = 8

// ready transitions t to runnable, enqueues it via gput, and — mirroring
// the original's readylocked (original_source/proc.c:449-467) — runs
// matchmg so it is actually matched to an idle or freshly spawned worker,
// unless the scheduler is still in its predawn initialization phase.
func (s *Scheduler) ready(t *Task) {
	s.mu.Lock()
	t.setStatus(statusRunnable)
	s.gput(t)
	if !s.predawn.Load() {
		s.matchmg()
	}
	s.flushWakeup()
}

// Ready is the exported form of ready, used by collaborator code (e.g. a
// channel-like primitive built on top of mnsched) to wake a waiting task.
func (s *Scheduler) Ready(t *Task) { s.ready(t) }

// Yield cooperatively gives up the worker: t transitions back to runnable
// and schedule() will re-enqueue it and dispatch something else.
func (t *Task) Yield() {
	if t.y == nil {
		t.sched.throw("yield called on a task with no yielder (bootstrap task?)")
		return
	}
	if t.m != nil && t.m.lockDepth.Load() != 0 {
		t.sched.throw("yield called while holding locks")
		return
	}
	t.y.Yield()
}

// exitTrampoline is the well-known entry wrapper installed for every
// spawned task: it runs fn(t), then marks the task moribund and yields,
// which is how a task's "return" is observed as an exit by schedule().
func (t *Task) exitTrampoline(y *platform.Yielder) {
	t.y = y
	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(abortSignal); !ok {
				// A Go-level panic escaping fn (as opposed to one raised
				// via Task.Panic, which already logged and called
				// finish itself) is still a fatal, unrecovered condition
				// from this scheduler's point of view.
				t.sched.logger.Error("unrecovered go-level panic in task", zap.Int64("task", t.id), zap.Any("recovered", r))
				t.sched.finish(2)
			}
		}
	}()
	t.entry(t)
	t.drainDefers()
	t.setStatus(statusMoribund)
	t.y.Yield()
}

// LockThread wires t to the worker currently running it, so every future
// dispatch of t goes directly to that worker.
func (t *Task) LockThread() {
	w := t.m
	if w == nil {
		return
	}
	t.sched.mu.Lock()
	w.wiredTask = t
	t.wired = w
	t.sched.mu.Unlock()
}

// UnlockThread removes the wiring installed by LockThread.
func (t *Task) UnlockThread() {
	t.sched.mu.Lock()
	if w := t.wired; w != nil && w.wiredTask == t {
		w.wiredTask = nil
	}
	t.wired = nil
	t.sched.mu.Unlock()
}
