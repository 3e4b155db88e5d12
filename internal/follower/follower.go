// Package follower implements the rotation- and truncation-aware byte
// producer described in spec.md §4.C. It owns exactly one open descriptor
// for one path and exposes poll/read operations the agent tick loop drives.
package follower

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"syscall"
	"time"

	"github.com/spf13/afero"

	"logtail/internal/fileid"
)

// Config bundles the follower's tunables from spec.md §4.C.
type Config struct {
	PollInterval     time.Duration
	RotateSettleTime time.Duration
	MaxReadBytes     int
}

// DefaultConfig returns the defaults spec.md §4.C documents.
func DefaultConfig() Config {
	return Config{
		PollInterval:     time.Second,
		RotateSettleTime: 500 * time.Millisecond,
		MaxReadBytes:     64 * 1024,
	}
}

// ReadChunk is a transient value emitted by ReadSome.
type ReadChunk struct {
	Data        []byte
	StartOffset uint64
	FileID      fileid.FileIdentity
	Generation  uint64
}

// PollResult is the wide, independent-flags record produced by a single
// Poll call. Real filesystem events compose (spec.md §9): both Truncated
// and PathMissing can be set in the same poll, so these are kept as
// independent booleans rather than collapsed into one enum.
type PollResult struct {
	PathMissing     bool
	FileOpened      bool
	Truncated       bool
	RotationPending bool
	NewPathID       fileid.FileIdentity
	Rotated         bool
	Switched        bool
	Closed          bool
	Error           bool
	Message         string
}

// Follower tracks a single path across rotation and truncation.
type Follower struct {
	fs  afero.Fs
	path string
	cfg Config

	fd              afero.File
	activeID        fileid.FileIdentity
	generation      uint64
	readOffset      uint64
	rotationPending bool
	pendingID       fileid.FileIdentity
	lastReadWasEOF  bool
	lastEOFTime     time.Time
}

// New returns a Follower for path, backed by fs.
func New(fs afero.Fs, path string, cfg Config) *Follower {
	if cfg.MaxReadBytes <= 0 {
		cfg.MaxReadBytes = DefaultConfig().MaxReadBytes
	}
	if cfg.RotateSettleTime <= 0 {
		cfg.RotateSettleTime = DefaultConfig().RotateSettleTime
	}
	return &Follower{fs: fs, path: path, cfg: cfg}
}

// Generation reports the current truncation generation of the active file.
func (f *Follower) Generation() uint64 { return f.generation }

// ActiveID reports the identity of the currently open file, if any.
func (f *Follower) ActiveID() fileid.FileIdentity { return f.activeID }

// ReadOffset reports the next byte offset ReadSome will read from.
func (f *Follower) ReadOffset() uint64 { return f.readOffset }

// Adopt opens the path and seeks the new descriptor to readOffset, keeping
// the given generation instead of starting from zero, provided the file still
// has identity id and is at least readOffset bytes long. Used by the agent at startup to
// resume from a persisted checkpoint (spec.md §4.G "Startup").
func (f *Follower) Adopt(id fileid.FileIdentity, generation uint64, readOffset uint64) error {
	info, err := f.fs.Stat(f.path)
	if err != nil {
		return fmt.Errorf("follower: stat %s: %w", f.path, err)
	}
	curID, err := fileid.Of(info)
	if err != nil {
		return err
	}
	if !curID.Equal(id) || uint64(info.Size()) < readOffset {
		// Not resumable as the same generation; leave state untouched so
		// the next Poll treats it as a fresh open at offset zero.
		return errNotResumable
	}
	fd, err := f.fs.Open(f.path)
	if err != nil {
		return fmt.Errorf("follower: open %s: %w", f.path, err)
	}
	if _, err := fd.Seek(int64(readOffset), io.SeekStart); err != nil {
		fd.Close()
		return fmt.Errorf("follower: seek %s: %w", f.path, err)
	}
	f.fd = fd
	f.activeID = curID
	f.generation = generation
	f.readOffset = readOffset
	f.rotationPending = false
	f.lastReadWasEOF = false
	return nil
}

var errNotResumable = errors.New("follower: checkpoint not resumable against current file")

// IsNotResumable reports whether err is the sentinel Adopt returns when the
// checkpointed generation no longer matches the file on disk.
func IsNotResumable(err error) bool { return errors.Is(err, errNotResumable) }

func (f *Follower) closeFD() {
	if f.fd != nil {
		f.fd.Close()
		f.fd = nil
	}
}

// Poll performs the four ordered checks from spec.md §4.C and returns the
// flags they set. committedOffset is the agent's authoritative durable
// offset, used only to detect truncation the follower has not read yet.
func (f *Follower) Poll(ctx context.Context, committedOffset uint64) PollResult {
	var res PollResult

	// 1. No active descriptor: try to open.
	if f.fd == nil {
		fd, err := f.fs.Open(f.path)
		if err != nil {
			if os.IsNotExist(err) {
				res.PathMissing = true
				return res
			}
			res.Error = true
			res.Message = fmt.Sprintf("open %s: %v", f.path, err)
			return res
		}
		info, err := fd.Stat()
		if err != nil {
			fd.Close()
			res.Error = true
			res.Message = fmt.Sprintf("stat %s: %v", f.path, err)
			return res
		}
		id, err := fileid.Of(info)
		if err != nil {
			fd.Close()
			res.Error = true
			res.Message = err.Error()
			return res
		}
		f.fd = fd
		f.activeID = id
		f.generation = 0
		f.readOffset = 0
		f.rotationPending = false
		f.lastReadWasEOF = false
		res.FileOpened = true
		return res
	}

	// 2. Truncation detection.
	fdInfo, err := f.fd.Stat()
	if err != nil {
		f.closeFD()
		res.Error = true
		res.Message = fmt.Sprintf("stat open fd for %s: %v", f.path, err)
		return res
	}
	size := uint64(fdInfo.Size())
	if size < f.readOffset || (committedOffset != 0 && size < committedOffset) {
		f.generation++
		f.readOffset = 0
		if _, err := f.fd.Seek(0, io.SeekStart); err != nil {
			f.closeFD()
			res.Error = true
			res.Message = fmt.Sprintf("seek after truncation on %s: %v", f.path, err)
			return res
		}
		f.lastReadWasEOF = false
		res.Truncated = true
	}

	// 3. Rotation detection.
	pathInfo, statErr := f.fs.Stat(f.path)
	switch {
	case statErr != nil && os.IsNotExist(statErr):
		res.PathMissing = true
		if f.lastReadWasEOF && time.Since(f.lastEOFTime) >= f.cfg.RotateSettleTime {
			f.closeFD()
			res.Closed = true
			return res
		}
	case statErr == nil:
		id, idErr := fileid.Of(pathInfo)
		if idErr == nil && !id.Equal(f.activeID) {
			f.rotationPending = true
			f.pendingID = id
			res.RotationPending = true
			res.Rotated = true
			res.NewPathID = id
		}
	}

	// 4. Rotation completion.
	if f.rotationPending {
		settled := f.lastReadWasEOF && time.Since(f.lastEOFTime) >= f.cfg.RotateSettleTime
		if settled {
			oldInfo, err := f.fd.Stat()
			if err == nil && uint64(oldInfo.Size()) > f.readOffset {
				// Old file grew after EOF: keep draining it.
				f.lastReadWasEOF = false
			} else {
				curInfo, err := f.fs.Stat(f.path)
				if err != nil {
					// Path disappeared again between detection and switch;
					// leave rotation pending for a future poll.
				} else {
					curID, idErr := fileid.Of(curInfo)
					if idErr != nil {
						res.Error = true
						res.Message = idErr.Error()
						f.rotationPending = false
						return res
					}
					f.closeFD()
					newFd, err := f.fs.Open(f.path)
					if err != nil {
						res.Error = true
						res.Message = fmt.Sprintf("reopen %s after rotation: %v", f.path, err)
						f.rotationPending = false
						return res
					}
					f.fd = newFd
					f.activeID = curID
					f.generation = 0
					f.readOffset = 0
					f.rotationPending = false
					f.lastReadWasEOF = false
					res.Switched = true
				}
			}
		}
	}

	return res
}

// ReadSome performs a single bounded read, per spec.md §4.C.
func (f *Follower) ReadSome() (ReadChunk, bool) {
	if f.fd == nil {
		return ReadChunk{}, false
	}

	start := f.readOffset
	buf := make([]byte, f.cfg.MaxReadBytes)
	n, err := f.fd.Read(buf)

	if n > 0 {
		f.readOffset += uint64(n)
		f.lastReadWasEOF = false
		return ReadChunk{
			Data:        buf[:n],
			StartOffset: start,
			FileID:      f.activeID,
			Generation:  f.generation,
		}, true
	}

	if err == nil || errors.Is(err, io.EOF) {
		f.lastReadWasEOF = true
		f.lastEOFTime = time.Now()
		return ReadChunk{StartOffset: start, FileID: f.activeID, Generation: f.generation}, true
	}

	if errors.Is(err, syscall.EINTR) {
		return ReadChunk{StartOffset: start, FileID: f.activeID, Generation: f.generation}, true
	}

	f.closeFD()
	return ReadChunk{}, false
}
