package mnsched

import "go.uber.org/zap"

// deferRecord is one entry on a task's LIFO deferred-call list. Unlike the
// compiler-emitted deferproc/deferreturn protocol in spec §4.8 (which
// exists to let arbitrary machine-code frames register a deferred call
// without any shared closure representation), mnsched's tasks are plain
// Go closures running on a hidden goroutine, so a deferred call is just
// a func(*Task) captured the normal way — the LIFO ordering and draining
// discipline is what spec.md actually asks us to preserve, not the byte-
// copying calling convention underneath it.
type deferRecord struct {
	fn   func(t *Task)
	next *deferRecord
}

// Defer registers fn to run, in LIFO order with every other pending
// defer, either when the task's entry function returns normally or when
// a panic drains the defer chain.
func (t *Task) Defer(fn func(t *Task)) {
	t.deferHead = &deferRecord{fn: fn, next: t.deferHead}
}

// DeferReturn runs and removes exactly one pending defer, for
// collaborator code that wants explicit control over when a single
// deferred call fires rather than relying on the implicit drain at
// function return. It is a no-op if the defer list is empty.
func (t *Task) DeferReturn() {
	rec := t.deferHead
	if rec == nil {
		return
	}
	t.deferHead = rec.next
	t.runGuarded(rec.fn)
}

// drainDefers runs every remaining deferred call in LIFO order, used by
// exitTrampoline when entry(t) returns without an outstanding panic.
func (t *Task) drainDefers() {
	for t.deferHead != nil {
		rec := t.deferHead
		t.deferHead = rec.next
		t.runGuarded(rec.fn)
	}
}

// runGuarded invokes a deferred call, converting any Go-level panic
// escaping it (as opposed to one raised through Task.Panic) into the same
// fatal, unrecovered-panic escalation spec §7 describes.
func (t *Task) runGuarded(fn func(t *Task)) {
	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(abortSignal); ok {
				panic(r)
			}
			t.sched.logger.Error("go-level panic escaped deferred call", zap.Int64("task", t.id), zap.Any("recovered", r))
			t.sched.finish(2)
		}
	}()
	fn(t)
}
