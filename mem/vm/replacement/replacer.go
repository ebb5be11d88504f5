// Package replacement provides the policies that choose which resident
// page is evicted when the MMU runs out of free frames.
package replacement

import (
	"fmt"
	"strings"

	"github.com/sarchlab/vmsim/mem/vm"
)

// PageEventKind tells what happened to a page.
type PageEventKind int

const (
	// PageTouched is emitted on every read or write of a page, including the
	// access that caused the page to be loaded.
	PageTouched PageEventKind = iota

	// PageLoaded is emitted when a page is brought into a frame.
	PageLoaded
)

func (k PageEventKind) String() string {
	switch k {
	case PageTouched:
		return "touched"
	case PageLoaded:
		return "loaded"
	default:
		return fmt.Sprintf("PageEventKind(%d)", int(k))
	}
}

// A PageEvent is emitted by the MMU. A policy may or may not use it.
type PageEvent struct {
	Kind PageEventKind
	Page vm.PageNumber
}

// Touched creates a PageTouched event.
func Touched(page vm.PageNumber) PageEvent {
	return PageEvent{Kind: PageTouched, Page: page}
}

// Loaded creates a PageLoaded event.
func Loaded(page vm.PageNumber) PageEvent {
	return PageEvent{Kind: PageLoaded, Page: page}
}

// A PageReplacer decides which page is evicted.
type PageReplacer interface {
	// NotifyPageEvent informs the policy about an access or a load.
	NotifyPageEvent(event PageEvent)

	// PickReplacementPage removes a page from the policy and returns it.
	// The returned page must be resident. Calling it on a policy that
	// tracks no page panics.
	PickReplacementPage() vm.PageNumber
}

// NopNotifier can be embedded by policies that ignore page events.
type NopNotifier struct{}

// NotifyPageEvent does nothing.
func (NopNotifier) NotifyPageEvent(PageEvent) {}

// ByName creates a policy from its name: "fifo", "lru" or "clock".
func ByName(name string) (PageReplacer, error) {
	switch strings.ToLower(name) {
	case "fifo":
		return NewFIFOPageReplacer(), nil
	case "lru":
		return NewLRUPageReplacer(), nil
	case "clock":
		return NewClockPageReplacer(), nil
	default:
		return nil, fmt.Errorf("unknown replacement policy %q", name)
	}
}

func mustHaveCandidate(n int) {
	if n == 0 {
		panic("no page to replace")
	}
}
