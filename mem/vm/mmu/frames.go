package mmu

import (
	"fmt"

	"github.com/sarchlab/vmsim/mem/vm"
)

// FrameState tells who owns a physical frame.
type FrameState int

const (
	// FrameFree frames have never held a page.
	FrameFree FrameState = iota

	// FrameClean frames hold a page that matches its backing store.
	FrameClean

	// FrameDirty frames hold a page that has been written since it was
	// loaded.
	FrameDirty
)

func (s FrameState) String() string {
	switch s {
	case FrameFree:
		return "free"
	case FrameClean:
		return "clean"
	case FrameDirty:
		return "dirty"
	default:
		return fmt.Sprintf("FrameState(%d)", int(s))
	}
}

// MarshalText encodes the state by name.
func (s FrameState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// FrameInfo is a snapshot of one physical frame.
type FrameInfo struct {
	Index vm.FrameIndex `json:"index"`
	State FrameState    `json:"state"`
	Page  vm.PageNumber `json:"page"`
}

type frame struct {
	state FrameState
	page  vm.PageNumber
}

func (c *Comp) frameWindow(f vm.FrameIndex) []byte {
	start := uint64(f) * c.frameSize

	return c.memory[start : start+c.frameSize]
}

func (c *Comp) popFreeFrame() (vm.FrameIndex, bool) {
	if len(c.freeFrames) == 0 {
		return 0, false
	}

	f := c.freeFrames[0]
	c.freeFrames = c.freeFrames[1:]

	return f, true
}

// returnFreeFrame puts a frame whose load failed back at the front of the
// free pool.
func (c *Comp) returnFreeFrame(f vm.FrameIndex) {
	c.frames[f] = frame{}
	c.freeFrames = append([]vm.FrameIndex{f}, c.freeFrames...)
}

func (c *Comp) frameMustBeOwnedBy(f vm.FrameIndex, page vm.PageNumber) {
	fr := c.frames[f]
	if fr.state == FrameFree || fr.page != page {
		panic(fmt.Sprintf("frame %d is not owned by page 0x%X", f,
			uint64(page)))
	}
}
