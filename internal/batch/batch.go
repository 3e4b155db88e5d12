// Package batch groups framed records into the immutable unit sinks and the
// router operate on, per spec.md §3.
package batch

import (
	"fmt"

	"logtail/internal/fileid"
	"logtail/internal/framer"
)

// Batch is an ordered, non-empty sequence of records drawn from a single
// (file_id, generation), plus the offset a full commit of the batch implies.
type Batch struct {
	Records         []framer.Record
	FileID          fileid.FileIdentity
	Generation      uint64
	CommitEndOffset uint64
}

// New builds a Batch from records already known to share one generation.
// It fails if records is empty or spans more than one (file_id, generation).
func New(records []framer.Record) (Batch, error) {
	if len(records) == 0 {
		return Batch{}, fmt.Errorf("batch: cannot build from zero records")
	}
	id := records[0].FileID
	gen := records[0].Generation
	for _, r := range records[1:] {
		if !r.FileID.Equal(id) || r.Generation != gen {
			return Batch{}, fmt.Errorf("batch: records span more than one (file_id, generation)")
		}
	}
	return Batch{
		Records:         records,
		FileID:          id,
		Generation:      gen,
		CommitEndOffset: records[len(records)-1].End,
	}, nil
}
