package checkpoint

import (
	"context"
	"testing"

	"github.com/spf13/afero"

	"logtail/internal/fileid"
)

func TestFileStoreRoundTrip(t *testing.T) {
	fs := afero.NewMemMapFs()
	store := NewFileStore(fs, "/var/lib/logtail/checkpoint.json")
	ctx := context.Background()

	id := fileid.FileIdentity{Dev: 8, Ino: 1234}
	cp := New(id, 3, 9001)

	if err := store.Save(ctx, cp); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	got, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if got == nil {
		t.Fatal("Load() returned nil after a successful Save()")
	}
	if !got.Equal(cp) {
		t.Errorf("round trip mismatch: got %+v, want %+v", got, cp)
	}
	if !got.FileID.Equal(id) {
		t.Errorf("FileID not reconstructed from flattened fields: got %+v, want %+v", got.FileID, id)
	}
}

func TestFileStoreLoadMissingReturnsNil(t *testing.T) {
	fs := afero.NewMemMapFs()
	store := NewFileStore(fs, "/does/not/exist.json")

	got, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if got != nil {
		t.Errorf("Load() of a missing checkpoint = %+v, want nil", got)
	}
}

func TestFileStoreLoadEmptyFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	if err := afero.WriteFile(fs, "/checkpoint.json", []byte{}, 0o644); err != nil {
		t.Fatalf("seed empty file: %v", err)
	}
	store := NewFileStore(fs, "/checkpoint.json")

	_, err := store.Load(context.Background())
	if err == nil {
		t.Fatal("expected an error loading an empty checkpoint file")
	}
	var cpErr *Error
	if !asError(err, &cpErr) || cpErr.Kind != KindEmptyFile {
		t.Errorf("expected KindEmptyFile, got %v", err)
	}
}

func TestFileStoreLoadMalformedContent(t *testing.T) {
	fs := afero.NewMemMapFs()
	if err := afero.WriteFile(fs, "/checkpoint.json", []byte("{not json"), 0o644); err != nil {
		t.Fatalf("seed malformed file: %v", err)
	}
	store := NewFileStore(fs, "/checkpoint.json")

	_, err := store.Load(context.Background())
	if err == nil {
		t.Fatal("expected an error loading malformed checkpoint content")
	}
	var cpErr *Error
	if !asError(err, &cpErr) || cpErr.Kind != KindParseError {
		t.Errorf("expected KindParseError, got %v", err)
	}
}

func TestFileStoreLoadMissingRequiredField(t *testing.T) {
	fs := afero.NewMemMapFs()
	// version is missing, which the schema requires.
	body := `{"file_dev":1,"file_ino":2,"generation":0,"committed_offset":0}`
	if err := afero.WriteFile(fs, "/checkpoint.json", []byte(body), 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}
	store := NewFileStore(fs, "/checkpoint.json")

	_, err := store.Load(context.Background())
	if err == nil {
		t.Fatal("expected schema validation to reject a checkpoint missing 'version'")
	}
	var cpErr *Error
	if !asError(err, &cpErr) || cpErr.Kind != KindParseError {
		t.Errorf("expected KindParseError, got %v", err)
	}
}

func TestFileStoreSaveIsAtomic(t *testing.T) {
	fs := afero.NewMemMapFs()
	store := NewFileStore(fs, "/var/lib/logtail/checkpoint.json")
	id := fileid.FileIdentity{Dev: 1, Ino: 1}

	if err := store.Save(context.Background(), New(id, 0, 10)); err != nil {
		t.Fatalf("first Save() error: %v", err)
	}
	if err := store.Save(context.Background(), New(id, 0, 20)); err != nil {
		t.Fatalf("second Save() error: %v", err)
	}

	exists, err := afero.Exists(fs, "/var/lib/logtail/.checkpoint.json.tmp")
	if err != nil {
		t.Fatalf("checking temp file: %v", err)
	}
	if exists {
		t.Error("temp file should not survive a successful Save()")
	}

	got, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if got.CommittedOffset != 20 {
		t.Errorf("CommittedOffset = %d, want 20 (the second, not first, save)", got.CommittedOffset)
	}
}

func asError(err error, target **Error) bool {
	e, ok := err.(*Error)
	if ok {
		*target = e
	}
	return ok
}
