// Package mmu implements a memory management unit that translates virtual
// addresses into a fixed-size physical memory, loading pages on demand and
// writing dirty pages back when their frames are reused.
package mmu

import (
	"fmt"
	"sync"

	"github.com/sarchlab/vmsim/mem/vm"
	"github.com/sarchlab/vmsim/mem/vm/pageloader"
	"github.com/sarchlab/vmsim/mem/vm/replacement"
	"github.com/sarchlab/vmsim/sim/hooking"
)

// Comp is the MMU. All the state it owns, from physical memory to the
// replacement policy, is only touched while holding its lock, so a
// translation and the page fault it may cause form one critical section.
//
// Hooks are invoked with the lock held and must not call back into the
// Comp.
type Comp struct {
	hooking.HookableBase

	lock sync.Mutex
	name string

	geometry   vm.Geometry
	frameSize  uint64
	memory     []byte
	frames     []frame
	freeFrames []vm.FrameIndex

	pageTable vm.PageTable
	replacer  replacement.PageReplacer
	loader    pageloader.PageLoader

	stats *StatsCollector
}

// Name returns the name of the MMU.
func (c *Comp) Name() string {
	return c.name
}

// Geometry returns how the MMU splits addresses.
func (c *Comp) Geometry() vm.Geometry {
	return c.geometry
}

// PageSize returns the number of bytes in a page, which is also the number
// of bytes in a frame.
func (c *Comp) PageSize() uint64 {
	return c.frameSize
}

// NumPages returns the number of virtual pages.
func (c *Comp) NumPages() int {
	return c.pageTable.NumPages()
}

// NumFrames returns the number of physical frames.
func (c *Comp) NumFrames() int {
	return len(c.frames)
}

// Read returns the byte at the virtual address.
func (c *Comp) Read(address uint64) (byte, error) {
	c.lock.Lock()
	defer c.lock.Unlock()

	window, offset, err := c.translate(address, false)
	if err != nil {
		return 0, err
	}

	return window[offset], nil
}

// Write stores a byte at the virtual address.
func (c *Comp) Write(address uint64, value byte) error {
	c.lock.Lock()
	defer c.lock.Unlock()

	window, offset, err := c.translate(address, true)
	if err != nil {
		return err
	}

	window[offset] = value

	return nil
}

// translate resolves the address to the frame window holding its page and
// the offset inside that window.
func (c *Comp) translate(
	address uint64,
	isWrite bool,
) (window []byte, offset uint64, err error) {
	page, offset := c.geometry.Split(address)
	detail := PageEventDetail{
		Address: c.geometry.Truncate(address),
		Page:    page,
		Offset:  offset,
		Frame:   NoFrame,
		IsWrite: isWrite,
	}

	var frameIndex vm.FrameIndex

	entry, found := c.pageTable.Get(page)
	if found {
		frameIndex = entry.FrameIndex
		detail.Frame = frameIndex
		detail.Dirty = entry.Dirty
		c.invoke(HookPosPageHit, detail)
	} else {
		c.invoke(HookPosPageFault, detail)

		frameIndex, err = c.handlePageFault(detail)
		if err != nil {
			return nil, 0, err
		}
	}

	// Marking after the fault is resolved makes a freshly loaded page dirty
	// exactly because of this write.
	if isWrite {
		c.markDirty(page, frameIndex)
	}

	c.replacer.NotifyPageEvent(replacement.Touched(page))

	detail.Frame = frameIndex
	detail.Dirty = c.frames[frameIndex].state == FrameDirty
	c.invoke(HookPosTranslated, detail)

	return c.frameWindow(frameIndex), offset, nil
}

func (c *Comp) markDirty(page vm.PageNumber, f vm.FrameIndex) {
	c.pageTable.MarkDirty(page)
	c.frames[f].state = FrameDirty
}

func (c *Comp) handlePageFault(detail PageEventDetail) (vm.FrameIndex, error) {
	page := detail.Page

	frameIndex, found := c.popFreeFrame()
	if !found {
		var err error

		frameIndex, err = c.evict(detail)
		if err != nil {
			return 0, err
		}
	}

	c.pageTable.Set(page, frameIndex)
	c.frames[frameIndex] = frame{state: FrameClean, page: page}

	err := c.loader.LoadPageInto(page, c.frameWindow(frameIndex))
	if err != nil {
		c.pageTable.Invalidate(page)
		c.returnFreeFrame(frameIndex)

		return 0, fmt.Errorf("%s: failed to load page 0x%X: %w",
			c.name, uint64(page), err)
	}

	detail.Frame = frameIndex
	c.invoke(HookPosPageLoad, detail)

	c.replacer.NotifyPageEvent(replacement.Loaded(page))

	return frameIndex, nil
}

// evict frees the frame of the page chosen by the replacer, writing the page
// back first if it is dirty. A victim whose write-back fails stays resident
// and is handed back to the replacer as if it had just been loaded.
func (c *Comp) evict(cause PageEventDetail) (vm.FrameIndex, error) {
	victim := c.replacer.PickReplacementPage()

	entry, found := c.pageTable.Get(victim)
	if !found {
		panic(fmt.Sprintf("replacer picked page 0x%X, which is not resident",
			uint64(victim)))
	}

	c.frameMustBeOwnedBy(entry.FrameIndex, victim)

	detail := cause
	detail.Page = victim
	detail.Frame = entry.FrameIndex
	detail.Dirty = entry.Dirty

	if entry.Dirty {
		err := c.loader.FlushPage(victim, c.frameWindow(entry.FrameIndex))
		if err != nil {
			c.replacer.NotifyPageEvent(replacement.Loaded(victim))

			return 0, fmt.Errorf("%s: failed to flush page 0x%X: %w",
				c.name, uint64(victim), err)
		}

		c.invoke(HookPosPageFlush, detail)
	}

	c.pageTable.Invalidate(victim)
	c.invoke(HookPosPageEvict, detail)

	return entry.FrameIndex, nil
}

// FlushDirty writes every dirty resident page back to the loader and marks
// it clean. Pages stay resident. It stops at the first failed write-back.
func (c *Comp) FlushDirty() error {
	c.lock.Lock()
	defer c.lock.Unlock()

	for i, f := range c.frames {
		if f.state != FrameDirty {
			continue
		}

		frameIndex := vm.FrameIndex(i)
		detail := PageEventDetail{
			Address: uint64(f.page) << c.geometry.Log2PageSize,
			Page:    f.page,
			Frame:   frameIndex,
			IsWrite: false,
			Dirty:   true,
		}

		err := c.loader.FlushPage(f.page, c.frameWindow(frameIndex))
		if err != nil {
			return fmt.Errorf("%s: failed to flush page 0x%X: %w",
				c.name, uint64(f.page), err)
		}

		c.invoke(HookPosPageFlush, detail)

		c.pageTable.Set(f.page, frameIndex)
		c.frames[i].state = FrameClean
	}

	return nil
}

// Stats returns the counters collected so far.
func (c *Comp) Stats() Stats {
	c.lock.Lock()
	defer c.lock.Unlock()

	return c.stats.Stats()
}

// Frames returns the state of every physical frame.
func (c *Comp) Frames() []FrameInfo {
	c.lock.Lock()
	defer c.lock.Unlock()

	return c.frameInfos()
}

func (c *Comp) frameInfos() []FrameInfo {
	infos := make([]FrameInfo, len(c.frames))
	for i, f := range c.frames {
		infos[i] = FrameInfo{
			Index: vm.FrameIndex(i),
			State: f.state,
			Page:  f.page,
		}
	}

	return infos
}

// Snapshot is a consistent copy of the observable state of the MMU.
type Snapshot struct {
	Name          string
	AddressWidth  uint64
	PageSize      uint64
	NumPages      int
	NumFrames     int
	NumFreeFrames int
	Stats         Stats
	Frames        []FrameInfo
}

// Snapshot captures the MMU state.
func (c *Comp) Snapshot() Snapshot {
	c.lock.Lock()
	defer c.lock.Unlock()

	return Snapshot{
		Name:          c.name,
		AddressWidth:  c.geometry.AddressWidth,
		PageSize:      c.frameSize,
		NumPages:      c.pageTable.NumPages(),
		NumFrames:     len(c.frames),
		NumFreeFrames: len(c.freeFrames),
		Stats:         c.stats.Stats(),
		Frames:        c.frameInfos(),
	}
}
