package replacement

import "github.com/sarchlab/vmsim/mem/vm"

type clockEntry struct {
	page       vm.PageNumber
	referenced bool
}

// ClockPageReplacer approximates LRU with one reference bit per page. The
// hand sweeps the pages in load order, giving every referenced page a second
// chance.
type ClockPageReplacer struct {
	ring     []clockEntry
	hand     int
	position map[vm.PageNumber]int
}

// NewClockPageReplacer creates a ClockPageReplacer.
func NewClockPageReplacer() *ClockPageReplacer {
	return &ClockPageReplacer{
		position: make(map[vm.PageNumber]int),
	}
}

// NotifyPageEvent sets the reference bit of the page. A loaded page that is
// not tracked yet is inserted right behind the hand, so that it is the last
// one the hand reaches.
func (r *ClockPageReplacer) NotifyPageEvent(event PageEvent) {
	if i, found := r.position[event.Page]; found {
		r.ring[i].referenced = true
		return
	}

	if event.Kind != PageLoaded {
		return
	}

	r.insertBehindHand(clockEntry{page: event.Page, referenced: true})
}

func (r *ClockPageReplacer) insertBehindHand(entry clockEntry) {
	r.ring = append(r.ring, clockEntry{})
	copy(r.ring[r.hand+1:], r.ring[r.hand:])
	r.ring[r.hand] = entry
	r.hand++

	if r.hand == len(r.ring) {
		r.hand = 0
	}

	r.reindex()
}

// PickReplacementPage advances the hand until it finds a page whose
// reference bit is clear, clearing the bits it passes.
func (r *ClockPageReplacer) PickReplacementPage() vm.PageNumber {
	mustHaveCandidate(len(r.ring))

	for r.ring[r.hand].referenced {
		r.ring[r.hand].referenced = false
		r.hand = (r.hand + 1) % len(r.ring)
	}

	page := r.ring[r.hand].page
	r.ring = append(r.ring[:r.hand], r.ring[r.hand+1:]...)

	if r.hand == len(r.ring) {
		r.hand = 0
	}

	r.reindex()

	return page
}

func (r *ClockPageReplacer) reindex() {
	clear(r.position)

	for i, e := range r.ring {
		r.position[e.page] = i
	}
}

// Len returns the number of tracked pages.
func (r *ClockPageReplacer) Len() int {
	return len(r.ring)
}
