package pageloader

import (
	"log"

	"github.com/sarchlab/vmsim/mem/vm"
)

// PatternLoader fills every loaded page with the low four bits of its page
// number and discards flushes. It is useful to watch the MMU without a swap
// file.
type PatternLoader struct {
	logger *log.Logger
}

// NewPatternLoader creates a PatternLoader. Flushes are reported to logger
// when it is not nil.
func NewPatternLoader(logger *log.Logger) *PatternLoader {
	return &PatternLoader{logger: logger}
}

// LoadPageInto fills target with byte(page & 0xF).
func (l *PatternLoader) LoadPageInto(page vm.PageNumber, target []byte) error {
	fill := byte(page & 0xF)

	for i := range target {
		target[i] = fill
	}

	return nil
}

// FlushPage drops the data.
func (l *PatternLoader) FlushPage(page vm.PageNumber, source []byte) error {
	if l.logger != nil {
		l.logger.Printf("pattern loader: discarding flush of page 0x%04X, "+
			"%d bytes\n", uint64(page), len(source))
	}

	return nil
}
