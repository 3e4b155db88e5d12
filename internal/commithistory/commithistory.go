// Package commithistory keeps a small, best-effort local record of recent
// successful commits for operator diagnosis. It is explicitly not
// authoritative: the checkpoint file (internal/checkpoint) is the sole
// source of truth for resume, and a failure here never blocks a tick.
//
// Adapted from SteelMorgan-1c-log-checker/internal/offset/boltdb.go, which
// used the same github.com/etcd-io/bbolt-backed key/value shape for a
// different purpose (the primary offset store there). Here bbolt backs a
// bounded ring of entries instead of an authoritative single value.
package commithistory

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"logtail/internal/fileid"
)

const bucketName = "commits"

// Entry is one recorded commit event.
type Entry struct {
	At              time.Time           `json:"at"`
	FileID          fileid.FileIdentity `json:"file_id"`
	Generation      uint64              `json:"generation"`
	CommittedOffset uint64              `json:"committed_offset"`
}

// Store is a bounded, append-only ring of recent commit entries.
type Store struct {
	db       *bbolt.DB
	capacity int
}

// Open opens (creating if necessary) a bbolt-backed commit history at path,
// keeping at most capacity most-recent entries.
func Open(path string, capacity int) (*Store, error) {
	if capacity <= 0 {
		capacity = 200
	}
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("commithistory: open %s: %w", path, err)
	}
	if err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		return err
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("commithistory: create bucket: %w", err)
	}
	return &Store{db: db, capacity: capacity}, nil
}

// Append records a new commit entry, trimming the oldest entries beyond
// capacity. Errors here are meant to be logged and ignored by callers.
func (s *Store) Append(entry Entry) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		key := make([]byte, 8)
		binary.BigEndian.PutUint64(key, seq)

		val, err := json.Marshal(entry)
		if err != nil {
			return err
		}
		if err := b.Put(key, val); err != nil {
			return err
		}

		return trimOldest(b, s.capacity)
	})
}

func trimOldest(b *bbolt.Bucket, capacity int) error {
	// Count with a cursor: Bucket.Stats only sees committed pages and would
	// miss the entry just put in this transaction.
	var keys [][]byte
	c := b.Cursor()
	for k, _ := c.First(); k != nil; k, _ = c.Next() {
		keys = append(keys, append([]byte(nil), k...))
	}
	if len(keys) <= capacity {
		return nil
	}
	for _, k := range keys[:len(keys)-capacity] {
		if err := b.Delete(k); err != nil {
			return err
		}
	}
	return nil
}

// Recent returns up to n entries, newest first.
func (s *Store) Recent(n int) ([]Entry, error) {
	var entries []Entry
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		c := b.Cursor()
		for k, v := c.Last(); k != nil && len(entries) < n; k, v = c.Prev() {
			var e Entry
			if err := json.Unmarshal(v, &e); err != nil {
				continue
			}
			entries = append(entries, e)
		}
		return nil
	})
	return entries, err
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
