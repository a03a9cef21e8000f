package mnsched

import (
	"sync"
	"sync/atomic"

	"github.com/gammazero/deque"
	"go.uber.org/zap"

	"github.com/go-mnsched/mnsched/internal/platform"
)

// Scheduler is the process-wide scheduler singleton described in spec §3.
// A program normally creates exactly one (via New) and calls Init once
// before spawning any tasks.
type Scheduler struct {
	mu   sync.Mutex // the single global lock guarding runq/freem/wiring
	word schedWord

	runq    deque.Deque[*Task]   // FIFO of runnable tasks
	gwait   int                  // len(runq), mirrored so word.gWaiting tracks 0<->nonzero transitions
	freem   deque.Deque[*Worker] // LIFO of parked workers
	deadq   []*Task              // free-list of dead task control blocks

	mwakeup *Worker // single-slot deferred wakeup, see mnextg

	nextTaskID atomic.Int64
	gcount     atomic.Int32 // alive tasks
	grunning   atomic.Int32 // tasks using cpu or in syscall
	mcount     atomic.Int64 // workers ever created

	predawn   atomic.Bool
	gcWaiting atomic.Bool
	stopped   platform.Note

	cpuMax     int // the gomaxprocs-equivalent target word.cpuMax is restored to on start()
	stackAlloc *platform.StackAllocator

	allTasksMu sync.Mutex
	allTasks   []*Task
	allWorkers []*Worker

	profMu     sync.Mutex
	profRateHz atomic.Int64
	profSample func(pc, sp, lr uintptr, t *Task)

	logger *zap.Logger

	doneOnce    sync.Once
	done        chan struct{}
	exitCode    int
	exitProcess bool
}

// Option configures a Scheduler at construction time.
type Option func(*Scheduler)

// WithLogger installs a structured logger; nil installs a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Scheduler) {
		if l == nil {
			l = zap.NewNop()
		}
		s.logger = l
	}
}

// WithCPUCap overrides the environment-derived CPU cap.
func WithCPUCap(n int) Option {
	return func(s *Scheduler) { s.cpuMax = n }
}

// WithProcessExit makes gcount reaching zero call os.Exit(0) (matching
// spec §4.3/§4.6's "terminate the process with code 0"), rather than just
// closing the channel Wait blocks on. Library embedders (tests, servers
// that spawn a scheduler alongside other work) should leave this off and
// use Wait instead; cmd/mnschedctl turns it on since it *is* the process.
func WithProcessExit(b bool) Option {
	return func(s *Scheduler) { s.exitProcess = b }
}

// New constructs a Scheduler. Call Init before spawning tasks.
func New(opts ...Option) *Scheduler {
	s := &Scheduler{
		logger:     zap.NewNop(),
		stackAlloc: platform.NewStackAllocator(),
		stopped:    platform.NewNote(),
		done:       make(chan struct{}),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Wait blocks until the scheduler finishes and returns its exit code: 0
// once gcount reaches zero (every spawned task has exited), or 2 once an
// unrecovered panic has aborted it. It is the library equivalent of the
// original's "exit(0) when gcount==0".
func (s *Scheduler) Wait() int {
	<-s.done
	return s.exitCode
}

func (s *Scheduler) finish(code int) {
	s.doneOnce.Do(func() {
		s.exitCode = code
		close(s.done)
		if s.exitProcess {
			s.logger.Sync() //nolint:errcheck
			osExit(code)
		}
	})
}

func (s *Scheduler) registerTask(t *Task) {
	s.allTasksMu.Lock()
	s.allTasks = append(s.allTasks, t)
	s.allTasksMu.Unlock()
}

func (s *Scheduler) registerWorker(w *Worker) {
	s.allTasksMu.Lock()
	s.allWorkers = append(s.allWorkers, w)
	s.allTasksMu.Unlock()
}
