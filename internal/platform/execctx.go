package platform

// ExecContext stands in for the architecture-specific "resumable stack
// pointer + instruction pointer" the core's Task carries. Real register
// and stack-pointer save/restore is a collaborator concern this module
// cannot emit (there is no portable way to hand-roll a stack switch from
// pure Go); instead a context is a pair of unbuffered channels handing
// control back and forth between the owning worker goroutine and a hidden
// "task" goroutine, which is exactly the coroutine-over-goroutines pattern
// the rest of the ecosystem uses when it needs symmetric suspension without
// assembly. From the scheduler's point of view this is indistinguishable
// from an opaque save/resume/resume_with_call primitive: it never reads
// the channels directly, only calls the methods below.
type ExecContext struct {
	toTask  chan struct{}
	toOwner chan struct{}
	started bool
	exited  bool
}

// NewExecContext returns a context with no goroutine running yet.
func NewExecContext() *ExecContext {
	return &ExecContext{
		toTask:  make(chan struct{}),
		toOwner: make(chan struct{}),
	}
}

// Yielder is handed to the entry function so task-side code can suspend
// itself back to whichever worker last called Resume/ResumeWithCall.
type Yielder struct {
	ctx *ExecContext
}

// Yield hands control back to the owner and blocks until the owner resumes
// this context again. It must only be called from inside the entry
// function passed to ResumeWithCall (i.e. on the hidden task goroutine).
func (y *Yielder) Yield() {
	y.ctx.toOwner <- struct{}{}
	<-y.ctx.toTask
}

// ResumeWithCall is the first dispatch of a context: it starts the hidden
// goroutine running entry(y) and blocks the caller until entry either
// calls y.Yield() or returns. It corresponds to the "saved PC is the entry
// trampoline" case in the core's schedule().
func (c *ExecContext) ResumeWithCall(entry func(y *Yielder)) {
	c.started = true
	y := &Yielder{ctx: c}
	go func() {
		entry(y)
		c.exited = true
		c.toOwner <- struct{}{}
	}()
	<-c.toOwner
}

// Resume continues a context previously suspended by Yield. It is a no-op
// if the context's goroutine has already exited.
func (c *ExecContext) Resume() {
	if c.exited {
		return
	}
	c.toTask <- struct{}{}
	<-c.toOwner
}

// Exited reports whether the hidden goroutine has returned from entry.
func (c *ExecContext) Exited() bool { return c.exited }

// Started reports whether ResumeWithCall has ever been invoked on this
// context — the analogue of "saved PC is the entry trampoline" meaning
// first dispatch.
func (c *ExecContext) Started() bool { return c.started }

// CallOnBootstrap runs fn on the calling goroutine directly. In the real
// runtime this switches to g0's stack first; here the owning worker's own
// goroutine already plays the role of the bootstrap stack (schedule and
// nextgandunlock run directly on it), so this is a
// documented pass-through rather than a real stack switch.
func CallOnBootstrap(fn func()) { fn() }
