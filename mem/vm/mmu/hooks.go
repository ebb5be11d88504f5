package mmu

import (
	"github.com/sarchlab/vmsim/mem/vm"
	"github.com/sarchlab/vmsim/sim/hooking"
)

// NoFrame is the frame of an access whose page fault is not resolved yet.
const NoFrame vm.FrameIndex = -1

// Hook positions of the MMU. HookCtx.Item is the vm.PageNumber the event is
// about and HookCtx.Detail is a PageEventDetail.
var (
	// HookPosPageHit marks a lookup that found the page resident.
	HookPosPageHit = &hooking.HookPos{Name: "PageHit"}

	// HookPosPageFault marks a lookup that missed.
	HookPosPageFault = &hooking.HookPos{Name: "PageFault"}

	// HookPosPageFlush marks a dirty page that has been written back.
	HookPosPageFlush = &hooking.HookPos{Name: "PageFlush"}

	// HookPosPageEvict marks a victim that has been removed from its frame.
	HookPosPageEvict = &hooking.HookPos{Name: "PageEvict"}

	// HookPosPageLoad marks a page that has been loaded into a frame.
	HookPosPageLoad = &hooking.HookPos{Name: "PageLoad"}

	// HookPosTranslated marks the end of a translation.
	HookPosTranslated = &hooking.HookPos{Name: "Translated"}
)

// PageEventDetail describes the access that caused a hook to fire. For
// flush, evict and load events, Page and Frame describe the page moving in
// or out while Address is still the access that triggered the fault.
type PageEventDetail struct {
	Address uint64
	Page    vm.PageNumber
	Offset  uint64
	Frame   vm.FrameIndex
	IsWrite bool
	Dirty   bool
}

func (c *Comp) invoke(pos *hooking.HookPos, detail PageEventDetail) {
	if c.NumHooks() == 0 {
		return
	}

	c.InvokeHook(hooking.HookCtx{
		Domain: c,
		Pos:    pos,
		Item:   detail.Page,
		Detail: detail,
	})
}
