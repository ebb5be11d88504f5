package mmu

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/vmsim/mem/vm"
	"github.com/sarchlab/vmsim/mem/vm/replacement"
	"go.uber.org/mock/gomock"
)

var _ = Describe("MMU", func() {
	var (
		mockCtrl *gomock.Controller
		replacer *MockPageReplacer
		loader   *MockPageLoader
		mmu      *Comp
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		replacer = NewMockPageReplacer(mockCtrl)
		loader = NewMockPageLoader(mockCtrl)

		mmu = MakeBuilder().
			WithMemSize(512).
			WithFrameCount(2).
			WithReplacer(replacer).
			WithLoader(loader).
			Build("MMU")
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	fillWith := func(b byte) func(vm.PageNumber, []byte) error {
		return func(_ vm.PageNumber, target []byte) error {
			for i := range target {
				target[i] = b
			}
			return nil
		}
	}

	Context("page fault", func() {
		It("should load the page into a free frame", func() {
			gomock.InOrder(
				loader.EXPECT().
					LoadPageInto(vm.PageNumber(0xCA), gomock.Len(256)).
					DoAndReturn(fillWith(0x7)),
				replacer.EXPECT().NotifyPageEvent(replacement.Loaded(0xCA)),
				replacer.EXPECT().NotifyPageEvent(replacement.Touched(0xCA)),
			)

			value, err := mmu.Read(0xCAFE)

			Expect(err).NotTo(HaveOccurred())
			Expect(value).To(Equal(byte(0x7)))
			Expect(mmu.Stats().Misses).To(Equal(uint64(1)))
			Expect(mmu.Stats().Hits).To(Equal(uint64(0)))
			Expect(mmu.Frames()[0]).To(Equal(FrameInfo{
				Index: 0, State: FrameClean, Page: 0xCA,
			}))
		})

		It("should take free frames in order", func() {
			loader.EXPECT().LoadPageInto(gomock.Any(), gomock.Any()).
				Return(nil).Times(2)
			replacer.EXPECT().NotifyPageEvent(gomock.Any()).AnyTimes()

			_, _ = mmu.Read(0x0100)
			_, _ = mmu.Read(0x0200)

			frames := mmu.Frames()
			Expect(frames[0].Page).To(Equal(vm.PageNumber(1)))
			Expect(frames[1].Page).To(Equal(vm.PageNumber(2)))
			Expect(mmu.Snapshot().NumFreeFrames).To(Equal(0))
		})

		It("should truncate addresses beyond the address width", func() {
			loader.EXPECT().LoadPageInto(vm.PageNumber(0xCA), gomock.Any()).
				Return(nil)
			replacer.EXPECT().NotifyPageEvent(gomock.Any()).AnyTimes()

			_, err := mmu.Read(0xABCAFE)

			Expect(err).NotTo(HaveOccurred())
		})

		It("should release the frame if loading fails", func() {
			loader.EXPECT().LoadPageInto(vm.PageNumber(0xCA), gomock.Any()).
				Return(errors.New("disk on fire"))

			_, err := mmu.Read(0xCAFE)

			Expect(err).To(MatchError(ContainSubstring("disk on fire")))
			Expect(mmu.Frames()[0].State).To(Equal(FrameFree))
			Expect(mmu.Snapshot().NumFreeFrames).To(Equal(2))

			_, found := mmu.pageTable.Get(0xCA)
			Expect(found).To(BeFalse())
		})
	})

	Context("page hit", func() {
		BeforeEach(func() {
			loader.EXPECT().LoadPageInto(vm.PageNumber(0xCA), gomock.Any()).
				DoAndReturn(fillWith(0))
			replacer.EXPECT().NotifyPageEvent(gomock.Any()).AnyTimes()
		})

		It("should hit on a repeated access", func() {
			_, _ = mmu.Read(0xCA00)
			_, _ = mmu.Read(0xCA01)

			Expect(mmu.Stats()).To(Equal(Stats{Hits: 1, Misses: 1, Loads: 1}))
		})

		It("should read back what was written", func() {
			Expect(mmu.Write(0xCAFE, 0xD)).To(Succeed())

			value, err := mmu.Read(0xCAFE)

			Expect(err).NotTo(HaveOccurred())
			Expect(value).To(Equal(byte(0xD)))
		})

		It("should mark written pages dirty", func() {
			_, _ = mmu.Read(0xCAFE)
			entry, _ := mmu.pageTable.Get(0xCA)
			Expect(entry.Dirty).To(BeFalse())

			Expect(mmu.Write(0xCAFE, 1)).To(Succeed())

			entry, _ = mmu.pageTable.Get(0xCA)
			Expect(entry.Dirty).To(BeTrue())
			Expect(mmu.Frames()[0].State).To(Equal(FrameDirty))
		})
	})

	Context("eviction", func() {
		BeforeEach(func() {
			loader.EXPECT().LoadPageInto(gomock.Any(), gomock.Any()).
				DoAndReturn(fillWith(0)).Times(2)
			replacer.EXPECT().NotifyPageEvent(gomock.Any()).AnyTimes()

			_, _ = mmu.Read(0x0100)
			_, _ = mmu.Read(0x0200)
		})

		It("should flush a dirty victim once before reusing its frame", func() {
			Expect(mmu.Write(0x0105, 0xAB)).To(Succeed())

			var flushed []byte
			replacer.EXPECT().PickReplacementPage().Return(vm.PageNumber(1))
			gomock.InOrder(
				loader.EXPECT().FlushPage(vm.PageNumber(1), gomock.Len(256)).
					DoAndReturn(func(_ vm.PageNumber, source []byte) error {
						flushed = append([]byte(nil), source...)
						return nil
					}).Times(1),
				loader.EXPECT().LoadPageInto(vm.PageNumber(3), gomock.Any()).
					DoAndReturn(fillWith(0x33)),
			)

			value, err := mmu.Read(0x0300)

			Expect(err).NotTo(HaveOccurred())
			Expect(value).To(Equal(byte(0x33)))
			Expect(flushed[5]).To(Equal(byte(0xAB)))
			Expect(mmu.Frames()[0]).To(Equal(FrameInfo{
				Index: 0, State: FrameClean, Page: 3,
			}))
			Expect(mmu.Stats().Flushes).To(Equal(uint64(1)))
			Expect(mmu.Stats().Evictions).To(Equal(uint64(1)))
		})

		It("should not flush a clean victim", func() {
			replacer.EXPECT().PickReplacementPage().Return(vm.PageNumber(2))
			loader.EXPECT().FlushPage(gomock.Any(), gomock.Any()).Times(0)
			loader.EXPECT().LoadPageInto(vm.PageNumber(3), gomock.Any()).
				Return(nil)

			_, err := mmu.Read(0x0300)

			Expect(err).NotTo(HaveOccurred())
			Expect(mmu.Frames()[1].Page).To(Equal(vm.PageNumber(3)))
		})

		It("should invalidate the victim, not the incoming page", func() {
			replacer.EXPECT().PickReplacementPage().Return(vm.PageNumber(1))
			loader.EXPECT().LoadPageInto(vm.PageNumber(3), gomock.Any()).
				Return(nil)

			_, _ = mmu.Read(0x0300)

			_, found := mmu.pageTable.Get(1)
			Expect(found).To(BeFalse())
			entry, found := mmu.pageTable.Get(3)
			Expect(found).To(BeTrue())
			Expect(entry.FrameIndex).To(Equal(vm.FrameIndex(0)))
		})

		It("should keep a victim resident if its flush fails", func() {
			Expect(mmu.Write(0x0100, 1)).To(Succeed())

			replacer.EXPECT().PickReplacementPage().Return(vm.PageNumber(1))
			loader.EXPECT().FlushPage(vm.PageNumber(1), gomock.Any()).
				Return(errors.New("no space"))

			_, err := mmu.Read(0x0300)

			Expect(err).To(MatchError(ContainSubstring("no space")))
			entry, found := mmu.pageTable.Get(1)
			Expect(found).To(BeTrue())
			Expect(entry.Dirty).To(BeTrue())
			_, found = mmu.pageTable.Get(3)
			Expect(found).To(BeFalse())
			Expect(mmu.Stats().Flushes).To(BeZero())
			Expect(mmu.Stats().Evictions).To(BeZero())
		})

		It("should panic if the replacer picks a page that is not resident",
			func() {
				replacer.EXPECT().PickReplacementPage().Return(vm.PageNumber(9))

				Expect(func() { _, _ = mmu.Read(0x0300) }).To(Panic())
			})
	})

	Context("FlushDirty", func() {
		BeforeEach(func() {
			loader.EXPECT().LoadPageInto(gomock.Any(), gomock.Any()).
				Return(nil).AnyTimes()
			replacer.EXPECT().NotifyPageEvent(gomock.Any()).AnyTimes()
		})

		It("should not count a write-back that fails", func() {
			Expect(mmu.Write(0x0100, 1)).To(Succeed())

			loader.EXPECT().FlushPage(vm.PageNumber(1), gomock.Any()).
				Return(errors.New("no space"))

			Expect(mmu.FlushDirty()).To(MatchError(ContainSubstring("no space")))
			Expect(mmu.Stats().Flushes).To(BeZero())
			Expect(mmu.frames[0].state).To(Equal(FrameDirty))
		})

		It("should count a write-back once it succeeds", func() {
			Expect(mmu.Write(0x0100, 1)).To(Succeed())

			loader.EXPECT().FlushPage(vm.PageNumber(1), gomock.Len(256)).
				Return(nil)

			Expect(mmu.FlushDirty()).To(Succeed())
			Expect(mmu.Stats().Flushes).To(Equal(uint64(1)))
			Expect(mmu.frames[0].state).To(Equal(FrameClean))
		})
	})

	Context("hooks", func() {
		It("should report events in order", func() {
			loader.EXPECT().LoadPageInto(gomock.Any(), gomock.Any()).
				Return(nil).AnyTimes()
			replacer.EXPECT().NotifyPageEvent(gomock.Any()).AnyTimes()

			var positions []string
			var details []PageEventDetail
			mmu.AcceptHook(hookRecorder(func(name string, d PageEventDetail) {
				positions = append(positions, name)
				details = append(details, d)
			}))

			Expect(mmu.Write(0xCAFE, 1)).To(Succeed())
			_, _ = mmu.Read(0xCAFE)

			Expect(positions).To(Equal([]string{
				"PageFault", "PageLoad", "Translated", "PageHit", "Translated",
			}))
			Expect(details[0].Frame).To(Equal(NoFrame))
			Expect(details[1].Frame).To(Equal(vm.FrameIndex(0)))
			Expect(details[2].Dirty).To(BeTrue())
			Expect(details[3].Offset).To(Equal(uint64(0xFE)))
		})
	})
})
