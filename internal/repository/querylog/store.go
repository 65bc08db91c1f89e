// Package querylog persists gateway query logs in a bbolt database.
package querylog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"
)

var bucketQueries = []byte("queries")

// Entry is one logged query.
type Entry struct {
	ID        string    `json:"id"`
	Time      time.Time `json:"time"`
	Query     string    `json:"query"`
	Findings  []string  `json:"findings,omitempty"`
	Success   bool      `json:"success"`
	Cached    bool      `json:"cached,omitempty"`
	LatencyMS int64     `json:"latency_ms"`
}

// Store appends entries keyed by time so cursor order is chronological.
type Store struct {
	db *bolt.DB
}

// Open opens or creates the database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create query log dir: %w", err)
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open query log: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketQueries)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init query log: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Append stores e, assigning an ID and timestamp when missing. Returns the entry ID.
func (s *Store) Append(e Entry) (string, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Time.IsZero() {
		e.Time = time.Now().UTC()
	}
	data, err := json.Marshal(e)
	if err != nil {
		return "", fmt.Errorf("encode query log entry: %w", err)
	}
	key := []byte(e.Time.UTC().Format(time.RFC3339Nano) + "/" + e.ID)

	err = s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketQueries).Put(key, data)
	})
	if err != nil {
		return "", fmt.Errorf("append query log: %w", err)
	}
	return e.ID, nil
}

// Recent returns up to limit entries, newest first.
func (s *Store) Recent(limit int) ([]Entry, error) {
	var out []Entry
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketQueries).Cursor()
		for k, v := c.Last(); k != nil && len(out) < limit; k, v = c.Prev() {
			var e Entry
			if err := json.Unmarshal(v, &e); err != nil {
				return fmt.Errorf("decode %s: %w", k, err)
			}
			out = append(out, e)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("read query log: %w", err)
	}
	return out, nil
}

// Prune deletes entries older than cutoff and returns how many were removed.
func (s *Store) Prune(cutoff time.Time) (int, error) {
	bound := []byte(cutoff.UTC().Format(time.RFC3339Nano))
	removed := 0
	err := s.db.Update(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketQueries).Cursor()
		for k, _ := c.First(); k != nil && string(k) < string(bound); k, _ = c.Next() {
			if err := c.Delete(); err != nil {
				return err
			}
			removed++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("prune query log: %w", err)
	}
	return removed, nil
}
