package vm

import "fmt"

// A PageTableEntry maps a resident page to the frame that holds it.
type PageTableEntry struct {
	FrameIndex FrameIndex
	Dirty      bool
}

// A PageTable maps page numbers to entries. A page without an entry is not
// resident, and looking it up is a page fault.
type PageTable interface {
	// Set installs a clean entry, replacing any previous one.
	Set(page PageNumber, frame FrameIndex)

	// Get returns the entry of a page. The bool return value indicates if
	// the page is resident.
	Get(page PageNumber) (PageTableEntry, bool)

	// MarkDirty sets the dirty flag of a resident page. It panics if the
	// page is not resident.
	MarkDirty(page PageNumber)

	// Invalidate removes the entry of a page.
	Invalidate(page PageNumber)

	// NumPages returns the capacity of the table.
	NumPages() int
}

// NewPageTable creates a PageTable that can hold numPages pages.
func NewPageTable(numPages int) PageTable {
	return &pageTableImpl{
		entries: make([]slot, numPages),
	}
}

type slot struct {
	PageTableEntry
	present bool
}

// pageTableImpl keeps one slot per page in a flat array.
type pageTableImpl struct {
	entries []slot
}

func (pt *pageTableImpl) NumPages() int {
	return len(pt.entries)
}

func (pt *pageTableImpl) Set(page PageNumber, frame FrameIndex) {
	pt.pageMustBeInRange(page)

	pt.entries[page] = slot{
		PageTableEntry: PageTableEntry{FrameIndex: frame},
		present:        true,
	}
}

func (pt *pageTableImpl) Get(page PageNumber) (PageTableEntry, bool) {
	pt.pageMustBeInRange(page)

	s := pt.entries[page]
	if !s.present {
		return PageTableEntry{}, false
	}

	return s.PageTableEntry, true
}

func (pt *pageTableImpl) MarkDirty(page PageNumber) {
	pt.pageMustBeInRange(page)
	pt.pageMustExist(page)

	pt.entries[page].Dirty = true
}

func (pt *pageTableImpl) Invalidate(page PageNumber) {
	pt.pageMustBeInRange(page)

	pt.entries[page] = slot{}
}

func (pt *pageTableImpl) pageMustBeInRange(page PageNumber) {
	if uint64(page) >= uint64(len(pt.entries)) {
		panic(fmt.Sprintf("page 0x%X out of range, table has %d pages",
			uint64(page), len(pt.entries)))
	}
}

func (pt *pageTableImpl) pageMustExist(page PageNumber) {
	if !pt.entries[page].present {
		panic("page does not exist")
	}
}
