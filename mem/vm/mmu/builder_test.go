package mmu

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/vmsim/mem/vm"
	"github.com/sarchlab/vmsim/mem/vm/pageloader"
	"github.com/sarchlab/vmsim/mem/vm/replacement"
)

type describedLoader struct {
	pageloader.PageLoader
	pageSize uint64
	numPages int
}

func (l describedLoader) PageSize() uint64 { return l.pageSize }
func (l describedLoader) NumPages() int    { return l.numPages }

var _ = Describe("Builder", func() {
	var loader pageloader.PageLoader

	BeforeEach(func() {
		loader = pageloader.NewPatternLoader(nil)
	})

	It("should build with defaults", func() {
		mmu := MakeBuilder().WithLoader(loader).Build("MMU")

		Expect(mmu.Name()).To(Equal("MMU"))
		Expect(mmu.PageSize()).To(Equal(uint64(256)))
		Expect(mmu.NumPages()).To(Equal(256))
		Expect(mmu.NumFrames()).To(Equal(256))
		Expect(mmu.replacer).To(BeAssignableToTypeOf(
			&replacement.FIFOPageReplacer{}))
		Expect(mmu.Hooks()).To(ContainElement(mmu.stats))
	})

	It("should require a loader", func() {
		Expect(func() { MakeBuilder().Build("MMU") }).
			To(PanicWith("mmu requires a page loader"))
	})

	It("should reject memory that does not split into frames", func() {
		Expect(func() {
			MakeBuilder().WithLoader(loader).
				WithMemSize(1000).WithFrameCount(3).Build("MMU")
		}).To(Panic())
	})

	It("should reject frames that are not one page large", func() {
		Expect(func() {
			MakeBuilder().WithLoader(loader).
				WithMemSize(1024).WithFrameCount(2).Build("MMU")
		}).To(Panic())
	})

	It("should reject zero frames", func() {
		Expect(func() {
			MakeBuilder().WithLoader(loader).WithFrameCount(0).Build("MMU")
		}).To(PanicWith("mmu requires at least one frame"))
	})

	It("should reject a loader with another page size", func() {
		l := describedLoader{PageLoader: loader, pageSize: 4096, numPages: 256}

		Expect(func() { MakeBuilder().WithLoader(l).Build("MMU") }).
			To(PanicWith("loader page size does not match MMU page size"))
	})

	It("should reject a loader with another page count", func() {
		l := describedLoader{PageLoader: loader, pageSize: 256, numPages: 16}

		Expect(func() { MakeBuilder().WithLoader(l).Build("MMU") }).
			To(PanicWith("loader page count does not match MMU page count"))
	})

	It("should reject a page table of the wrong size", func() {
		Expect(func() {
			MakeBuilder().WithLoader(loader).
				WithPageTable(vm.NewPageTable(16)).Build("MMU")
		}).To(PanicWith("page table page count does not match MMU page count"))
	})

	It("should support other geometries", func() {
		mmu := MakeBuilder().
			WithLoader(loader).
			WithAddressWidth(12).
			WithLog2PageSize(6).
			WithMemSize(256).
			WithFrameCount(4).
			Build("Small")

		Expect(mmu.NumPages()).To(Equal(64))
		Expect(mmu.PageSize()).To(Equal(uint64(64)))
	})
})
