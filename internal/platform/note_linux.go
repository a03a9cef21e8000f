//go:build linux

package platform

import (
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/unix"
)

// futexNote implements Note with a single futex word, the same primitive
// the upstream Go runtime's Note compiles down to on Linux. state is 0
// while cleared/waiting and 1 once woken; FUTEX_WAIT re-checks state
// itself so spurious wakes and EINTR/EAGAIN just loop.
type futexNote struct {
	state uint32
}

func newNote() Note { return &futexNote{} }

func (n *futexNote) Clear() { atomic.StoreUint32(&n.state, 0) }

func (n *futexNote) Wakeup() {
	atomic.StoreUint32(&n.state, 1)
	futexWake(&n.state)
}

func (n *futexNote) Sleep() {
	for atomic.LoadUint32(&n.state) == 0 {
		futexWait(&n.state, 0)
	}
}

const (
	futexWaitOp = 0
	futexWakeOp = 1
)

func futexWait(addr *uint32, expect uint32) {
	_, _, errno := unix.Syscall6(unix.SYS_FUTEX, uintptr(unsafe.Pointer(addr)), futexWaitOp, uintptr(expect), 0, 0, 0)
	// EAGAIN means the word already changed underneath us, EINTR means a
	// signal interrupted the wait; both are fine, the Sleep loop re-checks.
	_ = errno
}

func futexWake(addr *uint32) {
	unix.Syscall6(unix.SYS_FUTEX, uintptr(unsafe.Pointer(addr)), futexWakeOp, 1, 0, 0, 0)
}
