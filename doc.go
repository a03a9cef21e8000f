// Package mnsched implements a user-space M:N scheduler: it multiplexes
// many lightweight Tasks, each with its own growable stack, onto a bounded
// pool of Workers (OS threads), subject to a runtime-configurable cap on
// how many Workers may run user code at once. It coordinates with a
// stop-the-world garbage-collection phase, and provides cooperative yield,
// blocking-syscall hand-off, deferred-cleanup lists, and panic/recover.
//
// The design follows the pre-work-stealing Go scheduler: one global run
// queue protected by a single mutex, a bit-packed atomic word for the
// lock-free entersyscall/exitsyscall fast path, and direct worker-to-task
// wiring for goroutines locked to a thread. There is no per-worker run
// queue, no work-stealing, no preemption and no priority — round-robin
// FIFO ordering is the only fairness guarantee.
package mnsched
