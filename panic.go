package mnsched

import "go.uber.org/zap"

// panicRecord tracks one in-flight panic. Unlike the original runtime,
// which locates "the top of the panicking stack segment" by comparing
// argument pointers against a borrowed-segment boundary, mnsched tracks
// call-frame depth directly via Task.frameDepth: deferFrameDepth is a
// snapshot of that depth taken the instant the currently-draining
// deferred call began running, and Recover only succeeds when called at
// that exact depth — i.e. directly by the deferred function itself, not
// by something it calls in turn.
type panicRecord struct {
	value          any
	recovered      bool
	deferFrameDepth int
	prev           *panicRecord
}

// abortSignal is the internal control-transfer value used to unwind a
// task's hidden goroutine out of Panic when no deferred call recovers
// it. It is never exposed to collaborator code.
type abortSignal struct{ code int }

// Panic implements spec §4.8/§7: record the panic value, mark the
// current stack segment as panicking, and run pending deferred calls
// LIFO until one of them calls Recover successfully. If the defer chain
// drains without a recovery, this escalates to the same terminal,
// unrecovered-panic abort the scheduler uses for an unhandled Go-level
// panic escaping a task entirely — it never returns to its caller in
// that case.
func (t *Task) Panic(value any) {
	pr := &panicRecord{value: value, prev: t.panicHead}
	t.panicHead = pr
	t.isPanic.Store(true)
	t.top.IsPanic = true

	for t.deferHead != nil {
		rec := t.deferHead
		t.deferHead = rec.next
		pr.deferFrameDepth = t.frameDepth
		t.runGuardedPanic(rec.fn)
		if pr.recovered {
			t.panicHead = pr.prev
			if t.panicHead == nil {
				t.isPanic.Store(false)
				t.top.IsPanic = false
			}
			return
		}
	}

	t.abort("panic", zap.Any("value", pr.value))
}

// Recover reports the value passed to the innermost in-flight Panic, and
// marks it recovered, but only when called directly by the deferred
// call Panic is currently draining — calling it from a nested helper, or
// with no panic in flight, is a no-op returning ok == false, matching
// the "recover only works at the top of the panicking frame" rule spec
// §4.8 inherits from the original runtime's gopanic/recovery pair.
func (t *Task) Recover() (value any, ok bool) {
	pr := t.panicHead
	if pr == nil || pr.recovered || t.frameDepth != pr.deferFrameDepth {
		return nil, false
	}
	pr.recovered = true
	return pr.value, true
}

// CallFrame marks fn as running one call-frame deeper than its caller,
// so a Recover invoked inside fn (rather than directly by the deferred
// call Panic is draining) is correctly rejected as "not at the top of
// the panicking frame".
func (t *Task) CallFrame(fn func(t *Task)) {
	t.frameDepth++
	defer func() { t.frameDepth-- }()
	fn(t)
}

// runGuardedPanic invokes one deferred call during a panic drain,
// escalating both a propagated abortSignal and an unrelated Go-level
// panic escaping the deferred call itself to the same terminal abort.
func (t *Task) runGuardedPanic(fn func(t *Task)) {
	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(abortSignal); ok {
				panic(r)
			}
			t.abort("go-level panic escaped deferred call during unwind", zap.Any("recovered", r))
		}
	}()
	fn(t)
}

// abort logs the terminal condition, stops the scheduler, and unwinds
// this task's hidden goroutine the rest of the way out via a real Go
// panic — there is no sensible way to "return" from an unrecovered
// panic, so control never comes back to the Panic call site.
func (t *Task) abort(msg string, fields ...zap.Field) {
	t.sched.logger.Error(msg, append(fields, zap.Int64("task", t.id))...)
	t.sched.finish(2)
	panic(abortSignal{2})
}
