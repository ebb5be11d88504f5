package replacement

import "github.com/sarchlab/vmsim/mem/vm"

// FIFOPageReplacer evicts pages in the order they were loaded. Accesses do
// not change the order.
type FIFOPageReplacer struct {
	queue []vm.PageNumber
}

// NewFIFOPageReplacer creates a FIFOPageReplacer.
func NewFIFOPageReplacer() *FIFOPageReplacer {
	return &FIFOPageReplacer{}
}

// NotifyPageEvent appends loaded pages to the back of the queue.
func (r *FIFOPageReplacer) NotifyPageEvent(event PageEvent) {
	if event.Kind == PageLoaded {
		r.queue = append(r.queue, event.Page)
	}
}

// PickReplacementPage pops the page that was loaded the longest time ago.
func (r *FIFOPageReplacer) PickReplacementPage() vm.PageNumber {
	mustHaveCandidate(len(r.queue))

	page := r.queue[0]
	r.queue = r.queue[1:]

	return page
}

// Len returns the number of queued pages.
func (r *FIFOPageReplacer) Len() int {
	return len(r.queue)
}
