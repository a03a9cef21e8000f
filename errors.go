package mnsched

import (
	"fmt"
	"os"

	"go.uber.org/zap"
)

// FatalError marks an invariant violation: the scheduler's internal state
// has been observed to be inconsistent (bad status transition, mcpu
// overflow, double-idle insertion, misaligned argument size, ...). Nothing
// is recovered at this layer — a FatalError always escalates to process
// termination, matching the original runtime's runtime.throw.
type FatalError struct {
	Msg    string
	Fields []zap.Field
}

func (e *FatalError) Error() string { return "mnsched: fatal: " + e.Msg }

// osExit is a variable, not a direct os.Exit call, so tests can stub it
// out when exercising paths that would otherwise kill the test binary.
var osExit = os.Exit

// throw logs msg at Error level with the supplied fields and terminates
// the process with exit code 2 via osExit. It has no return value; with
// the real os.Exit it never returns, and callers still follow it with a
// return so control does not continue when osExit is stubbed in tests.
func (s *Scheduler) throw(msg string, fields ...zap.Field) {
	s.logger.Error(msg, fields...)
	s.logger.Sync() //nolint:errcheck
	osExit(2)
}

// fatalf is a throw variant that builds the message with fmt.Sprintf
// from format and args; it attaches no structured zap fields.
func (s *Scheduler) fatalf(format string, args ...any) {
	s.throw(fmt.Sprintf(format, args...))
}
