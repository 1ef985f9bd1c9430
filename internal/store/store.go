// Package store persists state between runs in a bbolt file: resolved
// enclosure lengths and the episodes already announced.
package store

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	bolt "go.etcd.io/bbolt"
)

var (
	bucketContentLength = []byte("content_length")
	bucketEpisodes      = []byte("episodes")
)

// Store is a bbolt-backed state store. It is safe for concurrent use.
type Store struct {
	db  *bolt.DB
	now func() time.Time
}

// Open opens or creates the state file at path.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open state db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{bucketContentLength, bucketEpisodes} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("create bucket %s: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, errors.Join(err, db.Close())
	}

	return &Store{db: db, now: time.Now}, nil
}

// Close releases the database file.
func (s *Store) Close() error {
	return s.db.Close()
}

// Length returns the cached content length for url.
func (s *Store) Length(url string) (int64, bool, error) {
	var (
		n  int64
		ok bool
	)
	err := s.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(bucketContentLength).Get([]byte(url))
		if raw == nil {
			return nil
		}
		v, err := strconv.ParseInt(string(raw), 10, 64)
		if err != nil {
			return fmt.Errorf("decode content length for %s: %w", url, err)
		}
		n, ok = v, true
		return nil
	})
	return n, ok, err
}

// PutLength caches the content length for url.
func (s *Store) PutLength(url string, n int64) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketContentLength).Put([]byte(url), []byte(strconv.FormatInt(n, 10)))
	})
}

// MarkSeen records url as announced and reports whether it was new.
func (s *Store) MarkSeen(url string) (bool, error) {
	isNew := false
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketEpisodes)
		if b.Get([]byte(url)) != nil {
			return nil
		}
		isNew = true
		return b.Put([]byte(url), []byte(s.now().UTC().Format(time.RFC3339)))
	})
	return isNew, err
}

// FirstSeen returns when url was first marked seen.
func (s *Store) FirstSeen(url string) (time.Time, bool, error) {
	var (
		t  time.Time
		ok bool
	)
	err := s.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(bucketEpisodes).Get([]byte(url))
		if raw == nil {
			return nil
		}
		parsed, err := time.Parse(time.RFC3339, string(raw))
		if err != nil {
			return fmt.Errorf("decode first-seen time for %s: %w", url, err)
		}
		t, ok = parsed, true
		return nil
	})
	return t, ok, err
}
