// Package pcdb caches pair-count tables in a bbolt database so reruns
// with an unchanged configuration skip recounting. Keys hash the full
// table shape (identifier, scheme, bin counts, edges, periodicity), so
// a changed binning can never resurrect a stale table. An LRU sits in
// front of the DB for repeated lookups within one process.
package pcdb

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/mitchellh/hashstructure/v2"
	bbolt "go.etcd.io/bbolt"

	"github.com/cosmoslab/twopt/paircount"
)

var bucketTables = []byte("paircounts")

var ErrClosed = errors.New("pcdb: store closed")

const lruSize = 64

type Store struct {
	db    *bbolt.DB
	cache *lru.Cache[string, *paircount.Table]
}

func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("pcdb %s: %w", path, err)
	}
	db, err := bbolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("pcdb %s: %w", path, err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketTables)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("pcdb %s: %w", path, err)
	}
	cache, _ := lru.New[string, *paircount.Table](lruSize)
	return &Store{db: db, cache: cache}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// key derives the cache key of a shape plus its edge geometry. Two
// shapes with equal counts but different edges hash apart.
func key(t *paircount.Table) (string, error) {
	return shapeKey(t.Shape, t.SEdges, t.PiEdges)
}

func shapeKey(shape paircount.Shape, sEdges, piEdges []float64) (string, error) {
	h, err := hashstructure.Hash(struct {
		Shape   paircount.Shape
		SEdges  []float64
		PiEdges []float64
	}{shape, sEdges, piEdges}, hashstructure.FormatV2, nil)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%016x", shape.Ident, h), nil
}

// Get looks a shape up, returning (nil, false, nil) on a clean miss.
func (s *Store) Get(shape paircount.Shape, sEdges, piEdges []float64) (*paircount.Table, bool, error) {
	if s == nil || s.db == nil {
		return nil, false, ErrClosed
	}
	k, err := shapeKey(shape, sEdges, piEdges)
	if err != nil {
		return nil, false, err
	}
	if t, ok := s.cache.Get(k); ok {
		return t, true, nil
	}
	var data []byte
	err = s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(bucketTables).Get([]byte(k))
		if v != nil {
			data = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	if data == nil {
		return nil, false, nil
	}
	t, err := paircount.Decode(data, shape)
	if err != nil {
		return nil, false, err
	}
	s.cache.Add(k, t)
	return t, true, nil
}

// Put stores a table, replacing any previous entry of the same shape.
func (s *Store) Put(t *paircount.Table) error {
	if s == nil || s.db == nil {
		return ErrClosed
	}
	k, err := key(t)
	if err != nil {
		return err
	}
	data, err := t.Encode()
	if err != nil {
		return err
	}
	err = s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketTables).Put([]byte(k), data)
	})
	if err != nil {
		return err
	}
	s.cache.Add(k, t)
	return nil
}
