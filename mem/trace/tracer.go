// Package trace provides tracers that can trace the page events of an MMU.
package trace

import (
	"log"

	"github.com/rs/xid"
	"github.com/sarchlab/vmsim/datarecording"
	"github.com/sarchlab/vmsim/mem/vm/mmu"
	"github.com/sarchlab/vmsim/sim/hooking"
)

// PageEventTable is the name of the table the DB tracer writes into.
const PageEventTable = "page_events"

// pageEventEntry represents a page event in the database
type pageEventEntry struct {
	ID      string `json:"id"`
	Seq     uint64 `json:"seq"`
	What    string `json:"what"`
	Address uint64 `json:"address"`
	Page    uint64 `json:"page"`
	Offset  uint64 `json:"offset"`
	Frame   int    `json:"frame"`
	IsWrite bool   `json:"is_write"`
	Dirty   bool   `json:"dirty"`
}

// A tracer is a hook that can write the page events of an MMU into a log.
type tracer struct {
	logger *log.Logger
}

// NewTracer creates a hook that logs one line per page event.
func NewTracer(logger *log.Logger) hooking.Hook {
	return &tracer{logger: logger}
}

// Func writes the event into the log.
func (t *tracer) Func(ctx hooking.HookCtx) {
	detail, ok := ctx.Detail.(mmu.PageEventDetail)
	if !ok {
		return
	}

	switch ctx.Pos {
	case mmu.HookPosPageHit:
		t.logger.Printf("hit, page 0x%X, frame %d\n",
			uint64(detail.Page), detail.Frame)
	case mmu.HookPosPageFault:
		t.logger.Printf("fault, page 0x%X\n", uint64(detail.Page))
	case mmu.HookPosPageFlush:
		t.logger.Printf("flush, page 0x%X, frame %d\n",
			uint64(detail.Page), detail.Frame)
	case mmu.HookPosPageEvict:
		t.logger.Printf("evict, page 0x%X, frame %d, dirty %t\n",
			uint64(detail.Page), detail.Frame, detail.Dirty)
	case mmu.HookPosPageLoad:
		t.logger.Printf("map, page 0x%X, frame %d\n",
			uint64(detail.Page), detail.Frame)
	case mmu.HookPosTranslated:
		t.logger.Printf("access, %s, 0x%04X, page 0x%X, offset 0x%X, frame %d\n",
			accessKind(detail.IsWrite), detail.Address,
			uint64(detail.Page), detail.Offset, detail.Frame)
	}
}

func accessKind(isWrite bool) string {
	if isWrite {
		return "w"
	}

	return "r"
}

// A dbTracer is a hook that can record the page events of an MMU into a
// database using the data recorder.
type dbTracer struct {
	dataRecorder datarecording.DataRecorder
	seq          uint64
}

// NewDBTracer creates a hook that records every page event as a row of the
// page_events table.
func NewDBTracer(dataRecorder datarecording.DataRecorder) hooking.Hook {
	t := &dbTracer{
		dataRecorder: dataRecorder,
	}

	t.dataRecorder.CreateTable(PageEventTable, pageEventEntry{})

	return t
}

// Func inserts the event into the recorder.
func (t *dbTracer) Func(ctx hooking.HookCtx) {
	detail, ok := ctx.Detail.(mmu.PageEventDetail)
	if !ok {
		return
	}

	t.seq++

	entry := pageEventEntry{
		ID:      xid.New().String(),
		Seq:     t.seq,
		What:    ctx.Pos.Name,
		Address: detail.Address,
		Page:    uint64(detail.Page),
		Offset:  detail.Offset,
		Frame:   int(detail.Frame),
		IsWrite: detail.IsWrite,
		Dirty:   detail.Dirty,
	}

	t.dataRecorder.InsertData(PageEventTable, entry)
}
