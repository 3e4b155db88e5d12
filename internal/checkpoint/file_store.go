package checkpoint

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/gowebpki/jcs"
	"github.com/spf13/afero"
)

// Store is the durable checkpoint contract from spec.md §4.B.
type Store interface {
	// Load returns (nil, nil) if the path does not exist.
	Load(ctx context.Context) (*Checkpoint, error)
	Save(ctx context.Context, cp Checkpoint) error
}

// FileStore persists a Checkpoint as a JSON record at a single path,
// written atomically via a sibling temp file plus rename. Filesystem
// access is routed through an afero.Fs so tests can exercise the atomicity
// and round-trip properties (spec.md §8, items 6-7) against an in-memory
// filesystem, grounded on the same dependency seedtray-tail uses for
// exactly this kind of testability.
type FileStore struct {
	fs   afero.Fs
	path string
}

// NewFileStore returns a checkpoint store rooted at path on fs.
func NewFileStore(fs afero.Fs, path string) *FileStore {
	return &FileStore{fs: fs, path: path}
}

func (s *FileStore) Load(ctx context.Context) (*Checkpoint, error) {
	info, err := s.fs.Stat(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, newError(KindIO, s.path, err)
	}
	if info.Size() == 0 {
		return nil, newError(KindEmptyFile, s.path, nil)
	}

	f, err := s.fs.Open(s.path)
	if err != nil {
		return nil, newError(KindIO, s.path, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, newError(KindIO, s.path, err)
	}
	if len(data) == 0 {
		return nil, newError(KindEmptyFile, s.path, nil)
	}

	if err := validateRecord(data); err != nil {
		return nil, newError(KindParseError, s.path, err)
	}

	var cp Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, newError(KindParseError, s.path, err)
	}
	cp.normalize()
	return &cp, nil
}

func (s *FileStore) Save(ctx context.Context, cp Checkpoint) error {
	cp.FileDev = cp.FileID.Dev
	cp.FileIno = cp.FileID.Ino
	cp.WrittenAt = time.Now().UTC()

	raw, err := json.Marshal(cp)
	if err != nil {
		return newError(KindIO, s.path, fmt.Errorf("encode checkpoint: %w", err))
	}
	canonical, err := jcs.Transform(raw)
	if err != nil {
		// Canonicalization should never fail for our own well-formed
		// output; fall back to the plain encoding rather than lose data.
		canonical = raw
	}

	dir := filepath.Dir(s.path)
	if err := s.fs.MkdirAll(dir, 0o755); err != nil {
		return newError(KindIO, s.path, fmt.Errorf("create checkpoint dir: %w", err))
	}

	tmpPath := filepath.Join(dir, fmt.Sprintf(".%s.tmp", filepath.Base(s.path)))
	if err := s.writeFile(tmpPath, canonical); err != nil {
		return newError(KindIO, s.path, fmt.Errorf("write temp checkpoint: %w", err))
	}

	if err := s.fs.Rename(tmpPath, s.path); err != nil {
		// Some platforms refuse to replace an existing target atomically;
		// remove it and retry exactly once, per spec.md §4.B.
		if rmErr := s.fs.Remove(s.path); rmErr == nil {
			if err = s.fs.Rename(tmpPath, s.path); err == nil {
				return nil
			}
		}
		return newError(KindIO, s.path, fmt.Errorf("rename checkpoint into place: %w", err))
	}
	return nil
}

func (s *FileStore) writeFile(path string, data []byte) error {
	f, err := s.fs.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	if syncer, ok := f.(interface{ Sync() error }); ok {
		if err := syncer.Sync(); err != nil {
			f.Close()
			return err
		}
	}
	return f.Close()
}
