package mmu

// pageSizeGetter is an optional interface that loaders can implement to
// expose their page size for validation purposes.
type pageSizeGetter interface {
	PageSize() uint64
}

// pageCounter is an optional interface that loaders can implement to expose
// the number of pages they were created for.
type pageCounter interface {
	NumPages() int
}
