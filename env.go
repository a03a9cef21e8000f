package mnsched

import (
	"os"
	"strconv"

	"github.com/shirou/gopsutil/v3/cpu"
	"go.uber.org/zap"
)

// defaultCPUCap is schedinit's fallback when MNSCHED_CAP is unset or
// unparseable, matching spec §4.1's single-worker default.
const defaultCPUCap = 1

// envCPUCap is the environment variable schedinit reads, analogous to the
// teacher's GOMAXPROCS.
const envCPUCap = "MNSCHED_CAP"

// Init implements spec §6's schedinit/initdone pair: resolve the CPU cap
// (constructor override, then MNSCHED_CAP, then the default), install it
// as both word.cpuMax and s.cpuMax, log the host's logical CPU count for
// diagnostic comparison, and lower predawn so schedule() stops refusing
// to run tasks. Init must be called exactly once, before Spawn.
func (s *Scheduler) Init() {
	if s.cpuMax == 0 {
		s.cpuMax = resolveCPUCap(s.logger)
	}
	if s.cpuMax < 1 {
		s.cpuMax = defaultCPUCap
	}
	if s.cpuMax > maxgomaxprocs {
		s.cpuMax = maxgomaxprocs
	}

	s.predawn.Store(true)
	s.word.setCPUMax(s.cpuMax)

	if n, err := cpu.Counts(true); err != nil {
		s.logger.Debug("could not query host logical cpu count", zap.Error(err))
	} else if s.cpuMax > n {
		s.logger.Warn("configured cpu cap exceeds host logical cpu count",
			zap.Int("cap", s.cpuMax), zap.Int("hostLogicalCPUs", n))
	} else {
		s.logger.Debug("schedinit", zap.Int("cap", s.cpuMax), zap.Int("hostLogicalCPUs", n))
	}

	s.predawn.Store(false)
}

// resolveCPUCap reads MNSCHED_CAP, falling back to defaultCPUCap on an
// unset or malformed value (a logged warning, never a fatal error: bad
// configuration input is not an internal invariant violation).
func resolveCPUCap(logger *zap.Logger) int {
	raw := os.Getenv(envCPUCap)
	if raw == "" {
		return defaultCPUCap
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		logger.Warn("invalid "+envCPUCap+", falling back to default", zap.String("value", raw), zap.Int("default", defaultCPUCap))
		return defaultCPUCap
	}
	return n
}
