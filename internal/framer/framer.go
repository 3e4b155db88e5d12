// Package framer turns a stream of bytes tagged with file offsets into
// newline-delimited records with exact byte ranges, per spec.md §4.D.
package framer

import (
	"bytes"

	"logtail/internal/fileid"
)

// Record is a single line-delimited record with absolute byte offsets.
// End is exclusive and includes the newline terminator; Payload never does.
type Record struct {
	Payload    []byte
	Start      uint64
	End        uint64
	FileID     fileid.FileIdentity
	Generation uint64
}

// Framer buffers partial bytes across Ingest calls and emits complete
// records on Drain. It owns its buffer and buffer offset exclusively.
type Framer struct {
	buf         []byte
	bufferStart uint64
	hasBase     bool
	fileID      fileid.FileIdentity
	generation  uint64
}

// New returns an empty Framer.
func New() *Framer {
	return &Framer{}
}

// Ingest appends data to the internal buffer. baseOffset is the file offset
// of data[0]; it is only recorded as BufferStart on the first append after a
// Reset, per spec.md §4.D — later Ingest calls within the same generation
// are contiguous with what is already buffered.
func (f *Framer) Ingest(data []byte, baseOffset uint64, id fileid.FileIdentity, generation uint64) {
	if !f.hasBase {
		f.bufferStart = baseOffset
		f.hasBase = true
	}
	f.fileID = id
	f.generation = generation
	if len(data) > 0 {
		f.buf = append(f.buf, data...)
	}
}

// Drain returns every complete record currently buffered, in file order,
// and discards the consumed prefix. Trailing, terminator-less bytes remain
// buffered until a newline arrives or Reset is called.
func (f *Framer) Drain() []Record {
	var records []Record
	consumed := 0

	for {
		idx := bytes.IndexByte(f.buf[consumed:], '\n')
		if idx < 0 {
			break
		}
		lineEnd := consumed + idx
		payload := f.buf[consumed:lineEnd]
		start := f.bufferStart + uint64(consumed)
		end := start + uint64(len(payload)) + 1

		out := make([]byte, len(payload))
		copy(out, payload)

		records = append(records, Record{
			Payload:    out,
			Start:      start,
			End:        end,
			FileID:     f.fileID,
			Generation: f.generation,
		})

		consumed = lineEnd + 1
	}

	if consumed > 0 {
		f.bufferStart += uint64(consumed)
		f.buf = append([]byte(nil), f.buf[consumed:]...)
	}

	return records
}

// Reset clears the buffer and base offset. Called whenever the follower
// reports Truncated or Switched, per spec.md §4.D.
func (f *Framer) Reset() {
	f.buf = nil
	f.bufferStart = 0
	f.hasBase = false
}

// BufferStart exposes the current buffer base offset, for tests asserting
// spec.md §8 invariant 5 (after Reset, BufferStart == 0).
func (f *Framer) BufferStart() uint64 { return f.bufferStart }

// Empty reports whether the internal buffer holds no bytes.
func (f *Framer) Empty() bool { return len(f.buf) == 0 }
