package commithistory

import (
	"path/filepath"
	"testing"

	"logtail/internal/fileid"
)

func TestAppendAndRecentOrdering(t *testing.T) {
	dir := t.TempDir()
	store, err := Open(filepath.Join(dir, "history.db"), 10)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	defer store.Close()

	id := fileid.FileIdentity{Dev: 1, Ino: 1}
	for i := uint64(1); i <= 3; i++ {
		if err := store.Append(Entry{FileID: id, Generation: 0, CommittedOffset: i}); err != nil {
			t.Fatalf("Append() error: %v", err)
		}
	}

	entries, err := store.Recent(10)
	if err != nil {
		t.Fatalf("Recent() error: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("got %d entries, want 3", len(entries))
	}
	// Newest first.
	if entries[0].CommittedOffset != 3 || entries[2].CommittedOffset != 1 {
		t.Errorf("entries not newest-first: %+v", entries)
	}
}

func TestAppendTrimsToCapacity(t *testing.T) {
	dir := t.TempDir()
	store, err := Open(filepath.Join(dir, "history.db"), 3)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	defer store.Close()

	id := fileid.FileIdentity{Dev: 1, Ino: 1}
	for i := uint64(1); i <= 10; i++ {
		if err := store.Append(Entry{FileID: id, Generation: 0, CommittedOffset: i}); err != nil {
			t.Fatalf("Append() error: %v", err)
		}
	}

	entries, err := store.Recent(100)
	if err != nil {
		t.Fatalf("Recent() error: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("got %d entries, want capacity-bound 3", len(entries))
	}
	if entries[0].CommittedOffset != 10 {
		t.Errorf("newest entry = %+v, want offset 10", entries[0])
	}
}
