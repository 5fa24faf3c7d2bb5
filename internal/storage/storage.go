// Package storage persists model artifacts. Each artifact directory holds a
// single BoltDB file whose buckets keep the artifact metadata and the fitted
// model parts as JSON documents.
//
// A store opened read-only takes a shared file lock, so several server
// processes may load the same artifact while no trainer is writing it.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"
)

const (
	// FileName is the database file inside an artifact directory.
	FileName = "model.db"

	MetaBucket  = "meta"  // artifact metadata and training run records
	ModelBucket = "model" // encoder and estimator documents
)

// ErrNotFound is returned when a key is absent.
var ErrNotFound = errors.New("record not found")

// Store wraps the BoltDB file of one artifact directory.
type Store struct {
	db       *bbolt.DB
	readOnly bool
}

// New opens (creating if needed) the artifact database in dir for writing.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create artifact dir: %w", err)
	}

	db, err := bbolt.Open(filepath.Join(dir, FileName), 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(MetaBucket)); err != nil {
			return fmt.Errorf("create meta bucket: %w", err)
		}
		if _, err := tx.CreateBucketIfNotExists([]byte(ModelBucket)); err != nil {
			return fmt.Errorf("create model bucket: %w", err)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// OpenReadOnly opens an existing artifact database without write access.
func OpenReadOnly(dir string) (*Store, error) {
	path := filepath.Join(dir, FileName)
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("artifact database: %w", err)
	}

	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 1 * time.Second, ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return &Store{db: db, readOnly: true}, nil
}

// Close closes the database. Closing twice is a no-op.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.db.Path()
}

// Document is one JSON value addressed by bucket and key.
type Document struct {
	Bucket string
	Key    string
	Value  interface{}
}

// PutJSON stores v as a JSON document under bucket/key.
func (s *Store) PutJSON(bucket, key string, v interface{}) error {
	return s.PutAll(Document{Bucket: bucket, Key: key, Value: v})
}

// PutAll stores every document in one transaction: readers see either all of
// them or none.
func (s *Store) PutAll(docs ...Document) error {
	if s.readOnly {
		return fmt.Errorf("store is read-only")
	}
	encoded := make([][]byte, len(docs))
	for i, d := range docs {
		data, err := json.Marshal(d.Value)
		if err != nil {
			return fmt.Errorf("marshal %s/%s: %w", d.Bucket, d.Key, err)
		}
		encoded[i] = data
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		for i, d := range docs {
			b, err := tx.CreateBucketIfNotExists([]byte(d.Bucket))
			if err != nil {
				return fmt.Errorf("create %s bucket: %w", d.Bucket, err)
			}
			if err := b.Put([]byte(d.Key), encoded[i]); err != nil {
				return fmt.Errorf("put %s/%s: %w", d.Bucket, d.Key, err)
			}
		}
		return nil
	})
}

// GetJSON decodes the document under bucket/key into v.
func (s *Store) GetJSON(bucket, key string, v interface{}) error {
	return s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucket))
		if b == nil {
			return fmt.Errorf("%s/%s: %w", bucket, key, ErrNotFound)
		}
		data := b.Get([]byte(key))
		if data == nil {
			return fmt.Errorf("%s/%s: %w", bucket, key, ErrNotFound)
		}
		if err := json.Unmarshal(data, v); err != nil {
			return fmt.Errorf("unmarshal %s/%s: %w", bucket, key, err)
		}
		return nil
	})
}

// Keys lists the keys of a bucket in byte order.
func (s *Store) Keys(bucket string) ([]string, error) {
	var keys []string
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucket))
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, _ []byte) error {
			keys = append(keys, string(k))
			return nil
		})
	})
	return keys, err
}
