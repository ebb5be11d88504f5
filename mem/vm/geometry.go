// Package vm provides the models for address translations.
package vm

import "fmt"

// PageNumber identifies a virtual page.
type PageNumber uint64

// FrameIndex identifies a physical frame.
type FrameIndex int

const maxLog2NumPages = 24

// Geometry describes how a virtual address is split. Addresses are
// truncated to AddressWidth bits; the low Log2PageSize bits are the offset
// within the page and the remaining high bits are the page number.
type Geometry struct {
	AddressWidth uint64
	Log2PageSize uint64
}

// Validate reports whether the geometry can address at least one page.
func (g Geometry) Validate() error {
	if g.AddressWidth == 0 || g.AddressWidth > 63 {
		return fmt.Errorf("address width %d out of range [1, 63]",
			g.AddressWidth)
	}

	if g.Log2PageSize > g.AddressWidth {
		return fmt.Errorf("page size 2^%d is larger than the %d-bit "+
			"address space", g.Log2PageSize, g.AddressWidth)
	}

	if g.AddressWidth-g.Log2PageSize > maxLog2NumPages {
		return fmt.Errorf("%d-bit page numbers exceed the flat page table "+
			"limit of %d bits", g.AddressWidth-g.Log2PageSize, maxLog2NumPages)
	}

	return nil
}

// PageSize returns the number of bytes in a page.
func (g Geometry) PageSize() uint64 {
	return 1 << g.Log2PageSize
}

// NumPages returns the number of pages in the address space.
func (g Geometry) NumPages() int {
	return 1 << (g.AddressWidth - g.Log2PageSize)
}

// Truncate drops the address bits beyond the address width.
func (g Geometry) Truncate(addr uint64) uint64 {
	return addr & (1<<g.AddressWidth - 1)
}

// Split truncates the address and breaks it into page number and offset.
func (g Geometry) Split(addr uint64) (page PageNumber, offset uint64) {
	addr = g.Truncate(addr)
	page = PageNumber(addr >> g.Log2PageSize)
	offset = addr & (g.PageSize() - 1)

	return page, offset
}
