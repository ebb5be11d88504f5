package replacement

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/vmsim/mem/vm"
)

func load(r PageReplacer, pages ...vm.PageNumber) {
	for _, p := range pages {
		r.NotifyPageEvent(Loaded(p))
		r.NotifyPageEvent(Touched(p))
	}
}

var _ = Describe("FIFOPageReplacer", func() {
	var r *FIFOPageReplacer

	BeforeEach(func() {
		r = NewFIFOPageReplacer()
	})

	It("should evict in load order", func() {
		load(r, 1, 2, 3)

		Expect(r.PickReplacementPage()).To(Equal(vm.PageNumber(1)))
		Expect(r.PickReplacementPage()).To(Equal(vm.PageNumber(2)))
		Expect(r.PickReplacementPage()).To(Equal(vm.PageNumber(3)))
	})

	It("should ignore touches", func() {
		load(r, 1, 2)
		r.NotifyPageEvent(Touched(1))
		r.NotifyPageEvent(Touched(1))

		Expect(r.PickReplacementPage()).To(Equal(vm.PageNumber(1)))
		Expect(r.Len()).To(Equal(1))
	})

	It("should requeue a reloaded page at the back", func() {
		load(r, 1, 2)
		Expect(r.PickReplacementPage()).To(Equal(vm.PageNumber(1)))

		load(r, 1)

		Expect(r.PickReplacementPage()).To(Equal(vm.PageNumber(2)))
		Expect(r.PickReplacementPage()).To(Equal(vm.PageNumber(1)))
	})

	It("should panic when there is nothing to evict", func() {
		Expect(func() { r.PickReplacementPage() }).
			To(PanicWith("no page to replace"))
	})
})

var _ = Describe("LRUPageReplacer", func() {
	var r *LRUPageReplacer

	BeforeEach(func() {
		r = NewLRUPageReplacer()
	})

	It("should evict the least recently touched page", func() {
		load(r, 1, 2, 3)
		r.NotifyPageEvent(Touched(1))

		Expect(r.PickReplacementPage()).To(Equal(vm.PageNumber(2)))
		Expect(r.PickReplacementPage()).To(Equal(vm.PageNumber(3)))
		Expect(r.PickReplacementPage()).To(Equal(vm.PageNumber(1)))
	})

	It("should track each page once", func() {
		load(r, 1, 1, 1)

		Expect(r.Len()).To(Equal(1))
	})

	It("should panic when there is nothing to evict", func() {
		Expect(func() { r.PickReplacementPage() }).To(Panic())
	})
})

var _ = Describe("ClockPageReplacer", func() {
	var r *ClockPageReplacer

	BeforeEach(func() {
		r = NewClockPageReplacer()
	})

	It("should behave like FIFO when every page is referenced", func() {
		load(r, 1, 2, 3)

		Expect(r.PickReplacementPage()).To(Equal(vm.PageNumber(1)))
	})

	It("should give referenced pages a second chance", func() {
		load(r, 1, 2, 3)
		Expect(r.PickReplacementPage()).To(Equal(vm.PageNumber(1)))

		// 2 and 3 are now unreferenced; touching 2 saves it.
		r.NotifyPageEvent(Touched(2))

		Expect(r.PickReplacementPage()).To(Equal(vm.PageNumber(3)))
		Expect(r.Len()).To(Equal(1))
	})

	It("should ignore touches of untracked pages", func() {
		r.NotifyPageEvent(Touched(9))

		Expect(r.Len()).To(Equal(0))
	})

	It("should panic when there is nothing to evict", func() {
		Expect(func() { r.PickReplacementPage() }).To(Panic())
	})
})

var _ = Describe("ByName", func() {
	It("should build known policies", func() {
		for _, name := range []string{"fifo", "LRU", "clock"} {
			r, err := ByName(name)

			Expect(err).NotTo(HaveOccurred())
			Expect(r).NotTo(BeNil())
		}
	})

	It("should reject unknown policies", func() {
		_, err := ByName("random")

		Expect(err).To(MatchError(ContainSubstring("random")))
	})
})

// lowestPage always evicts page 0. It only needs PickReplacementPage.
type lowestPage struct {
	NopNotifier
}

func (lowestPage) PickReplacementPage() vm.PageNumber {
	return 0
}

var _ = Describe("NopNotifier", func() {
	It("should let a policy ignore page events", func() {
		var r PageReplacer = lowestPage{}

		load(r, 3, 4)

		Expect(r.PickReplacementPage()).To(Equal(vm.PageNumber(0)))
	})
})
