package metadata

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/hyperjump/pagesearch/internal/models"
	"go.etcd.io/bbolt"
)

var (
	bucketPages = []byte("pages")
	bucketMeta  = []byte("meta")
	keyCount    = []byte("count")
)

// Save writes every record of s to a bbolt file at path, replacing previous contents.
// Keys are big-endian positions so cursor order equals insertion order.
func Save(path string, s *Store) error {
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create metadata dir: %w", err)
	}
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return fmt.Errorf("open metadata file: %w", err)
	}
	defer db.Close()

	records := s.Records()
	return db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketPages, bucketMeta} {
			if tx.Bucket(name) != nil {
				if err := tx.DeleteBucket(name); err != nil {
					return fmt.Errorf("clear bucket %s: %w", name, err)
				}
			}
		}
		pages, err := tx.CreateBucket(bucketPages)
		if err != nil {
			return fmt.Errorf("create bucket %s: %w", bucketPages, err)
		}
		// Keys are appended in ascending order.
		pages.FillPercent = 1.0
		for i, rec := range records {
			data, err := json.Marshal(rec)
			if err != nil {
				return fmt.Errorf("encode record %d: %w", i, err)
			}
			if err := pages.Put(positionKey(i), data); err != nil {
				return fmt.Errorf("put record %d: %w", i, err)
			}
		}
		meta, err := tx.CreateBucket(bucketMeta)
		if err != nil {
			return fmt.Errorf("create bucket %s: %w", bucketMeta, err)
		}
		return meta.Put(keyCount, positionKey(len(records)))
	})
}

// Load reads a store written by Save. A missing file yields an empty store.
func Load(path string) (*Store, error) {
	s := NewStore()
	if path == "" {
		return s, nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 5 * time.Second, ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("open metadata file: %w", err)
	}
	defer db.Close()

	var records []models.PageRecord
	err = db.View(func(tx *bbolt.Tx) error {
		pages := tx.Bucket(bucketPages)
		if pages == nil {
			return nil
		}
		c := pages.Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			if got := binary.BigEndian.Uint64(k); got != uint64(len(records)) {
				return fmt.Errorf("metadata gap: expected position %d, found %d", len(records), got)
			}
			var rec models.PageRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("decode record %d: %w", len(records), err)
			}
			records = append(records, rec)
		}
		if meta := tx.Bucket(bucketMeta); meta != nil {
			if raw := meta.Get(keyCount); raw != nil && binary.BigEndian.Uint64(raw) != uint64(len(records)) {
				return fmt.Errorf("metadata count %d does not match %d stored records", binary.BigEndian.Uint64(raw), len(records))
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.Append(records...)
	return s, nil
}

func positionKey(i int) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, uint64(i))
	return k
}
