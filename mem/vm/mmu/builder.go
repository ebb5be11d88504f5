package mmu

import (
	"fmt"

	"github.com/sarchlab/vmsim/mem/vm"
	"github.com/sarchlab/vmsim/mem/vm/pageloader"
	"github.com/sarchlab/vmsim/mem/vm/replacement"
)

// A Builder can build MMU component
type Builder struct {
	addressWidth uint64
	log2PageSize uint64
	memSize      uint64
	frameCount   int
	pageTable    vm.PageTable
	replacer     replacement.PageReplacer
	loader       pageloader.PageLoader
}

// MakeBuilder creates a new builder. By default the MMU translates 16-bit
// addresses with 256-byte pages into 64 KiB of memory split into 256 frames,
// and evicts in FIFO order.
func MakeBuilder() Builder {
	return Builder{
		addressWidth: 16,
		log2PageSize: 8,
		memSize:      65536,
		frameCount:   256,
	}
}

// WithAddressWidth sets the number of address bits that are translated.
// Higher bits are ignored.
func (b Builder) WithAddressWidth(bits uint64) Builder {
	b.addressWidth = bits
	return b
}

// WithLog2PageSize sets the page size that the mmu support.
func (b Builder) WithLog2PageSize(log2PageSize uint64) Builder {
	b.log2PageSize = log2PageSize
	return b
}

// WithMemSize sets the number of bytes of physical memory.
func (b Builder) WithMemSize(bytes uint64) Builder {
	b.memSize = bytes
	return b
}

// WithFrameCount sets the number of frames physical memory is split into.
func (b Builder) WithFrameCount(n int) Builder {
	b.frameCount = n
	return b
}

// WithPageTable sets the page table that the MMU uses.
func (b Builder) WithPageTable(pageTable vm.PageTable) Builder {
	b.pageTable = pageTable
	return b
}

// WithReplacer sets the policy that chooses eviction victims.
func (b Builder) WithReplacer(r replacement.PageReplacer) Builder {
	b.replacer = r
	return b
}

// WithLoader sets the backing store of the pages. It is required.
func (b Builder) WithLoader(l pageloader.PageLoader) Builder {
	b.loader = l
	return b
}

// Build returns a newly created MMU component
func (b Builder) Build(name string) *Comp {
	geometry := vm.Geometry{
		AddressWidth: b.addressWidth,
		Log2PageSize: b.log2PageSize,
	}

	err := geometry.Validate()
	if err != nil {
		panic(err)
	}

	b.mustHaveValidMemoryLayout(geometry)

	if b.loader == nil {
		panic("mmu requires a page loader")
	}

	b.validateLoader(geometry)

	mmu := &Comp{
		name:      name,
		geometry:  geometry,
		frameSize: geometry.PageSize(),
		memory:    make([]byte, b.memSize),
		frames:    make([]frame, b.frameCount),
		loader:    b.loader,
		stats:     NewStatsCollector(),
	}

	mmu.freeFrames = make([]vm.FrameIndex, b.frameCount)
	for i := range mmu.freeFrames {
		mmu.freeFrames[i] = vm.FrameIndex(i)
	}

	b.createPageTable(mmu, geometry)
	b.createReplacer(mmu)

	mmu.AcceptHook(mmu.stats)

	return mmu
}

func (b Builder) mustHaveValidMemoryLayout(geometry vm.Geometry) {
	if b.frameCount < 1 {
		panic("mmu requires at least one frame")
	}

	if b.memSize%uint64(b.frameCount) != 0 {
		panic(fmt.Sprintf("memory size %d is not a multiple of the frame "+
			"count %d", b.memSize, b.frameCount))
	}

	frameSize := b.memSize / uint64(b.frameCount)
	if frameSize != geometry.PageSize() {
		panic(fmt.Sprintf("frame size %d does not match page size %d",
			frameSize, geometry.PageSize()))
	}
}

// validateLoader checks the loaders that can describe themselves against
// the MMU geometry.
func (b Builder) validateLoader(geometry vm.Geometry) {
	if l, ok := b.loader.(pageSizeGetter); ok {
		if l.PageSize() != geometry.PageSize() {
			panic("loader page size does not match MMU page size")
		}
	}

	if l, ok := b.loader.(pageCounter); ok {
		if l.NumPages() != geometry.NumPages() {
			panic("loader page count does not match MMU page count")
		}
	}
}

func (b Builder) createPageTable(mmu *Comp, geometry vm.Geometry) {
	if b.pageTable == nil {
		mmu.pageTable = vm.NewPageTable(geometry.NumPages())
		return
	}

	if b.pageTable.NumPages() != geometry.NumPages() {
		panic("page table page count does not match MMU page count")
	}

	mmu.pageTable = b.pageTable
}

func (b Builder) createReplacer(mmu *Comp) {
	if b.replacer == nil {
		mmu.replacer = replacement.NewFIFOPageReplacer()
		return
	}

	mmu.replacer = b.replacer
}
