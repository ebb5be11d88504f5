package replacement

import (
	"container/list"

	"github.com/sarchlab/vmsim/mem/vm"
)

// LRUPageReplacer evicts the page that has not been touched for the longest
// time.
type LRUPageReplacer struct {
	order    *list.List
	elements map[vm.PageNumber]*list.Element
}

// NewLRUPageReplacer creates an LRUPageReplacer.
func NewLRUPageReplacer() *LRUPageReplacer {
	return &LRUPageReplacer{
		order:    list.New(),
		elements: make(map[vm.PageNumber]*list.Element),
	}
}

// NotifyPageEvent moves the page to the most recently used end.
func (r *LRUPageReplacer) NotifyPageEvent(event PageEvent) {
	elem, found := r.elements[event.Page]
	if found {
		r.order.MoveToBack(elem)
		return
	}

	r.elements[event.Page] = r.order.PushBack(event.Page)
}

// PickReplacementPage removes and returns the least recently used page.
func (r *LRUPageReplacer) PickReplacementPage() vm.PageNumber {
	mustHaveCandidate(r.order.Len())

	elem := r.order.Front()
	page := elem.Value.(vm.PageNumber)

	r.order.Remove(elem)
	delete(r.elements, page)

	return page
}

// Len returns the number of tracked pages.
func (r *LRUPageReplacer) Len() int {
	return r.order.Len()
}
