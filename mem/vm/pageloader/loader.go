// Package pageloader provides the backing stores that the MMU loads pages
// from and flushes dirty pages to.
package pageloader

import (
	"errors"

	"github.com/sarchlab/vmsim/mem/vm"
)

// A PageLoader moves page contents between a backing store and a frame.
type PageLoader interface {
	// LoadPageInto fills target, exactly one page worth of bytes, with the
	// persisted content of the page. Pages that were never persisted are
	// up to the loader to define.
	LoadPageInto(page vm.PageNumber, target []byte) error

	// FlushPage persists source as the content of the page.
	FlushPage(page vm.PageNumber, source []byte) error
}

var (
	// ErrPageCountMismatch is returned when a swap file was created for a
	// different number of pages.
	ErrPageCountMismatch = errors.New("swap file page count mismatch")

	// ErrCorruptSwapFile is returned when a swap file is not self-consistent.
	ErrCorruptSwapFile = errors.New("corrupt swap file")

	// ErrBufferSize is returned when a buffer is not exactly one page long.
	ErrBufferSize = errors.New("buffer size does not match page size")
)
