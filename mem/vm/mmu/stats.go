package mmu

import (
	"fmt"
	"io"

	"github.com/sarchlab/vmsim/sim/hooking"
)

// Stats counts what the MMU has done.
type Stats struct {
	Hits      uint64 `json:"hits"`
	Misses    uint64 `json:"misses"`
	Loads     uint64 `json:"loads"`
	Evictions uint64 `json:"evictions"`
	Flushes   uint64 `json:"flushes"`
}

// Accesses returns the number of reads and writes.
func (s Stats) Accesses() uint64 {
	return s.Hits + s.Misses
}

// MissRate returns the fraction of accesses that page faulted, or 0 if
// there were no accesses.
func (s Stats) MissRate() float64 {
	if s.Accesses() == 0 {
		return 0
	}

	return float64(s.Misses) / float64(s.Accesses())
}

// HitRate returns the fraction of accesses that hit, or 0 if there were no
// accesses.
func (s Stats) HitRate() float64 {
	if s.Accesses() == 0 {
		return 0
	}

	return float64(s.Hits) / float64(s.Accesses())
}

// Report prints the hit and miss counters.
func (s Stats) Report(w io.Writer) error {
	_, err := fmt.Fprintf(w,
		"===== MMU Statistics =====\n"+
			"Total accesses: %d\n"+
			"  Misses: %6d (%6.2f %%)\n"+
			"  Hits:   %6d (%6.2f %%)\n",
		s.Accesses(),
		s.Misses, s.MissRate()*100,
		s.Hits, s.HitRate()*100,
	)

	return err
}

// StatsCollector is a hook that counts MMU events. It only observes.
type StatsCollector struct {
	stats Stats
}

// NewStatsCollector creates a StatsCollector.
func NewStatsCollector() *StatsCollector {
	return &StatsCollector{}
}

// Func counts the event.
func (s *StatsCollector) Func(ctx hooking.HookCtx) {
	switch ctx.Pos {
	case HookPosPageHit:
		s.stats.Hits++
	case HookPosPageFault:
		s.stats.Misses++
	case HookPosPageLoad:
		s.stats.Loads++
	case HookPosPageEvict:
		s.stats.Evictions++
	case HookPosPageFlush:
		s.stats.Flushes++
	}
}

// Stats returns the counters.
func (s *StatsCollector) Stats() Stats {
	return s.stats
}
