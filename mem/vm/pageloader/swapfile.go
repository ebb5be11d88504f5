package pageloader

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/sarchlab/vmsim/mem/vm"
)

const wordSize = 8

// HeaderSize returns the size in bytes of the header of a swap file holding
// numPages pages: n_pages, page_size and one index per page.
func HeaderSize(numPages int) int64 {
	return int64(2+numPages) * wordSize
}

// A Header is the decoded header of a swap file. Indices[p] is 0 when page p
// has never been flushed, and i when the page occupies slot i-1.
type Header struct {
	NumPages uint64
	PageSize uint64
	Indices  []uint64
}

// MarshalBinary encodes the header in its little-endian on-disk layout.
func (h Header) MarshalBinary() ([]byte, error) {
	if uint64(len(h.Indices)) != h.NumPages {
		return nil, fmt.Errorf("header has %d indices for %d pages",
			len(h.Indices), h.NumPages)
	}

	buf := make([]byte, HeaderSize(len(h.Indices)))
	binary.LittleEndian.PutUint64(buf[0:], h.NumPages)
	binary.LittleEndian.PutUint64(buf[wordSize:], h.PageSize)

	for i, index := range h.Indices {
		binary.LittleEndian.PutUint64(buf[(2+i)*wordSize:], index)
	}

	return buf, nil
}

// CreateSwapFile writes a swap file with an empty header, replacing the file
// if it exists.
func CreateSwapFile(path string, numPages int, pageSize uint64) error {
	if pageSize == 0 {
		return fmt.Errorf("page size must be positive")
	}

	header := Header{
		NumPages: uint64(numPages),
		PageSize: pageSize,
		Indices:  make([]uint64, numPages),
	}

	buf, err := header.MarshalBinary()
	if err != nil {
		return err
	}

	err = os.WriteFile(path, buf, 0644)
	if err != nil {
		return fmt.Errorf("failed to create swap file %s: %w", path, err)
	}

	return nil
}

// SwapFile is a PageLoader backed by a swap file. The header is cached in
// memory; slots are read and written on demand.
type SwapFile struct {
	file       *os.File
	path       string
	headerSize int64
	pageSize   uint64
	indices    []uint64
}

// OpenSwapFile opens an existing swap file created for numPages pages.
func OpenSwapFile(path string, numPages int) (*SwapFile, error) {
	file, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to open swap file %s: %w", path, err)
	}

	s := &SwapFile{
		file:       file,
		path:       path,
		headerSize: HeaderSize(numPages),
	}

	err = s.parseHeader(numPages)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("swap file %s: %w", path, err)
	}

	return s, nil
}

// maxSwapPages bounds the page count ReadPageCount accepts so that a garbage
// header is not taken as a request for a huge index table.
const maxSwapPages = 1 << 24

// ReadPageCount returns the n_pages field of a swap file, for opening a file
// whose geometry is not known in advance.
func ReadPageCount(path string) (int, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open swap file %s: %w", path, err)
	}
	defer file.Close()

	word := make([]byte, wordSize)

	_, err = io.ReadFull(file, word)
	if err != nil {
		return 0, fmt.Errorf("swap file %s: %w: reading header: %v",
			path, ErrCorruptSwapFile, err)
	}

	nPages := binary.LittleEndian.Uint64(word)
	if nPages > maxSwapPages {
		return 0, fmt.Errorf("swap file %s: %w: %d pages",
			path, ErrCorruptSwapFile, nPages)
	}

	return int(nPages), nil
}

func (s *SwapFile) parseHeader(numPages int) error {
	fixed := make([]byte, 2*wordSize)

	_, err := io.ReadFull(s.file, fixed)
	if err != nil {
		return fmt.Errorf("%w: reading header: %v", ErrCorruptSwapFile, err)
	}

	nPages := binary.LittleEndian.Uint64(fixed[0:])
	if nPages != uint64(numPages) {
		return fmt.Errorf("%w: file has %d pages, expected %d",
			ErrPageCountMismatch, nPages, numPages)
	}

	s.pageSize = binary.LittleEndian.Uint64(fixed[wordSize:])
	if s.pageSize == 0 {
		return fmt.Errorf("%w: page size is zero", ErrCorruptSwapFile)
	}

	raw := make([]byte, numPages*wordSize)

	_, err = io.ReadFull(s.file, raw)
	if err != nil {
		return fmt.Errorf("%w: reading indices: %v", ErrCorruptSwapFile, err)
	}

	s.indices = make([]uint64, numPages)
	for i := range s.indices {
		s.indices[i] = binary.LittleEndian.Uint64(raw[i*wordSize:])
	}

	return s.checkSlots()
}

func (s *SwapFile) checkSlots() error {
	numSlots, err := s.NumSlots()
	if err != nil {
		return err
	}

	for page, index := range s.indices {
		if index > uint64(numSlots) {
			return fmt.Errorf("%w: page 0x%X points to slot %d of %d",
				ErrCorruptSwapFile, page, index-1, numSlots)
		}
	}

	return nil
}

// Path returns the path the swap file was opened from.
func (s *SwapFile) Path() string {
	return s.path
}

// PageSize returns the page size recorded in the header.
func (s *SwapFile) PageSize() uint64 {
	return s.pageSize
}

// NumPages returns the number of pages the swap file was created for.
func (s *SwapFile) NumPages() int {
	return len(s.indices)
}

// SlotIndex returns the header index of a page: 0 if the page has never
// been flushed, i if it occupies slot i-1.
func (s *SwapFile) SlotIndex(page vm.PageNumber) uint64 {
	s.pageMustBeInRange(page)

	return s.indices[page]
}

// Header returns a copy of the cached header.
func (s *SwapFile) Header() Header {
	indices := make([]uint64, len(s.indices))
	copy(indices, s.indices)

	return Header{
		NumPages: uint64(len(s.indices)),
		PageSize: s.pageSize,
		Indices:  indices,
	}
}

// NumSlots returns the number of slots in the slot area.
func (s *SwapFile) NumSlots() (int64, error) {
	end, err := s.file.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, fmt.Errorf("failed to seek to end of swap file: %w", err)
	}

	return s.slotsBefore(end)
}

// slotsBefore converts a file length into a slot count. The slot area must
// hold whole pages.
func (s *SwapFile) slotsBefore(end int64) (int64, error) {
	slotBytes := end - s.headerSize
	if slotBytes < 0 || slotBytes%int64(s.pageSize) != 0 {
		return 0, fmt.Errorf("%w: slot area of %d bytes is not a multiple "+
			"of the page size %d", ErrCorruptSwapFile, slotBytes, s.pageSize)
	}

	return slotBytes / int64(s.pageSize), nil
}

func (s *SwapFile) slotOffset(index uint64) int64 {
	return s.headerSize + int64(index-1)*int64(s.pageSize)
}

func (s *SwapFile) indexOffset(page vm.PageNumber) int64 {
	return int64(2+uint64(page)) * wordSize
}

// LoadPageInto reads the slot of the page into target. Pages that were
// never flushed read as zeros.
func (s *SwapFile) LoadPageInto(page vm.PageNumber, target []byte) error {
	s.pageMustBeInRange(page)

	err := s.bufferMustBePageSized(target)
	if err != nil {
		return err
	}

	index := s.indices[page]
	if index == 0 {
		clear(target)
		return nil
	}

	_, err = s.file.ReadAt(target, s.slotOffset(index))
	if err != nil {
		return fmt.Errorf("failed to read page 0x%X from slot %d: %w",
			uint64(page), index-1, err)
	}

	return nil
}

// FlushPage writes source to the slot of the page. The first flush of a
// page appends a new slot and records it in the header; later flushes
// overwrite that slot.
func (s *SwapFile) FlushPage(page vm.PageNumber, source []byte) error {
	s.pageMustBeInRange(page)

	err := s.bufferMustBePageSized(source)
	if err != nil {
		return err
	}

	index := s.indices[page]
	if index != 0 {
		return s.writeSlot(page, index, source)
	}

	return s.appendSlot(page, source)
}

func (s *SwapFile) writeSlot(
	page vm.PageNumber,
	index uint64,
	source []byte,
) error {
	_, err := s.file.WriteAt(source, s.slotOffset(index))
	if err != nil {
		return fmt.Errorf("failed to write page 0x%X to slot %d: %w",
			uint64(page), index-1, err)
	}

	return nil
}

func (s *SwapFile) appendSlot(page vm.PageNumber, source []byte) error {
	end, err := s.file.Seek(0, io.SeekEnd)
	if err != nil {
		return fmt.Errorf("failed to seek to end of swap file: %w", err)
	}

	slot, err := s.slotsBefore(end)
	if err != nil {
		return err
	}

	index := uint64(slot) + 1

	err = s.writeSlot(page, index, source)
	if err != nil {
		return err
	}

	entry := make([]byte, wordSize)
	binary.LittleEndian.PutUint64(entry, index)

	_, err = s.file.WriteAt(entry, s.indexOffset(page))
	if err != nil {
		return fmt.Errorf("failed to record slot of page 0x%X: %w",
			uint64(page), err)
	}

	s.indices[page] = index

	return nil
}

// Sync commits the file to stable storage.
func (s *SwapFile) Sync() error {
	return s.file.Sync()
}

// Close syncs and closes the file.
func (s *SwapFile) Close() error {
	if s.file == nil {
		return nil
	}

	err := s.file.Sync()
	if err != nil {
		s.file.Close()
		s.file = nil
		return fmt.Errorf("failed to sync swap file before close: %w", err)
	}

	err = s.file.Close()
	s.file = nil

	return err
}

func (s *SwapFile) bufferMustBePageSized(buf []byte) error {
	if uint64(len(buf)) != s.pageSize {
		return fmt.Errorf("%w: got %d bytes, page size is %d",
			ErrBufferSize, len(buf), s.pageSize)
	}

	return nil
}

func (s *SwapFile) pageMustBeInRange(page vm.PageNumber) {
	if uint64(page) >= uint64(len(s.indices)) {
		panic(fmt.Sprintf("page 0x%X out of range, swap file has %d pages",
			uint64(page), len(s.indices)))
	}
}
