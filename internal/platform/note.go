// Package platform holds the collaborator primitives that the scheduler
// core treats as opaque: a one-shot wait/wake Note, a coroutine-style
// execution context standing in for an architecture-specific stack switch,
// and a stack-segment byte allocator. The core (package mnsched) only ever
// calls these through the narrow interfaces declared here; it never reaches
// into how a thread is actually parked or how a segment is actually backed.
package platform

// Note is a one-shot wait/wake primitive: each Wakeup unblocks exactly one
// Sleep, and Clear rearms it for reuse. It is not a counting semaphore —
// a Wakeup that races ahead of a Sleep is still observed by that Sleep,
// but a second Wakeup before the next Clear is a no-op.
type Note interface {
	Clear()
	Sleep()
	Wakeup()
}

// NewNote returns a platform-appropriate Note implementation: a Linux
// futex-backed note where available, a sync.Cond-backed note elsewhere.
func NewNote() Note {
	return newNote()
}
