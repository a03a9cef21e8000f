package mnsched

// taskStatus is a Task's place in its lifecycle. The run queue contains
// only statusRunnable tasks; a task referenced by a Worker's curg slot is
// always statusRunning, with task.m pointing back at that Worker.
type taskStatus int32

const (
	statusIdle taskStatus = iota
	statusRunnable
	statusRunning
	statusSyscall
	statusWaiting
	statusMoribund
	statusDead
)

func (s taskStatus) String() string {
	switch s {
	case statusIdle:
		return "idle"
	case statusRunnable:
		return "runnable"
	case statusRunning:
		return "running"
	case statusSyscall:
		return "syscall"
	case statusWaiting:
		return "waiting"
	case statusMoribund:
		return "moribund"
	case statusDead:
		return "dead"
	default:
		return "???"
	}
}
