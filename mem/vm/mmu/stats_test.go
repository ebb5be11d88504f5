package mmu

import (
	"bytes"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/vmsim/sim/hooking"
)

var _ = Describe("Stats", func() {
	It("should count hook positions", func() {
		c := NewStatsCollector()

		for _, pos := range []*hooking.HookPos{
			HookPosPageFault, HookPosPageLoad, HookPosTranslated,
			HookPosPageHit, HookPosPageHit, HookPosPageFlush, HookPosPageEvict,
		} {
			c.Func(hooking.HookCtx{Pos: pos})
		}

		Expect(c.Stats()).To(Equal(Stats{
			Hits: 2, Misses: 1, Loads: 1, Evictions: 1, Flushes: 1,
		}))
	})

	It("should report rates", func() {
		buf := new(bytes.Buffer)
		s := Stats{Hits: 3, Misses: 1}

		Expect(s.Report(buf)).To(Succeed())

		Expect(buf.String()).To(Equal("===== MMU Statistics =====\n" +
			"Total accesses: 4\n" +
			"  Misses:      1 ( 25.00 %)\n" +
			"  Hits:        3 ( 75.00 %)\n"))
	})

	It("should report zero rates without accesses", func() {
		s := Stats{}

		Expect(s.MissRate()).To(BeZero())
		Expect(s.HitRate()).To(BeZero())
	})
})
