// Package storage persists relation tuples in BadgerDB so .input
// relations can be loaded across program runs. The engine itself never
// touches storage; it receives pre-loaded tuples from the caller.
package storage

import (
	"bytes"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/wbrown/strata-datalog/datalog"
)

// FactStore is a BadgerDB-backed store of typed tuples, keyed by
// relation name. Keys are `rel/<name>/<encoded tuple>`, so inserting
// the same tuple twice is a no-op.
type FactStore struct {
	db *badger.DB
}

// Open opens (creating if needed) a fact store at the given path.
func Open(path string) (*FactStore, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil // Disable BadgerDB logs

	// Fact sets are small relative to the LSM defaults; keep values in
	// the tree rather than the value log.
	opts.ValueThreshold = 1 << 10

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger: %w", err)
	}

	return &FactStore{db: db}, nil
}

func relationPrefix(name string) []byte {
	return []byte("rel/" + name + "/")
}

// PutRelation adds tuples to a relation, deduplicating against what is
// already stored.
func (s *FactStore) PutRelation(name string, tuples []datalog.Tuple) error {
	prefix := relationPrefix(name)
	return s.db.Update(func(txn *badger.Txn) error {
		for _, tuple := range tuples {
			encoded, err := EncodeTuple(tuple)
			if err != nil {
				return fmt.Errorf("relation %s: %w", name, err)
			}
			key := append(append([]byte{}, prefix...), encoded...)
			if err := txn.Set(key, encoded); err != nil {
				return fmt.Errorf("failed to write tuple for %s: %w", name, err)
			}
		}
		return nil
	})
}

// LoadRelation returns every stored tuple of a relation. A relation
// with no tuples yields a nil slice, not an error.
func (s *FactStore) LoadRelation(name string) ([]datalog.Tuple, error) {
	prefix := relationPrefix(name)
	var tuples []datalog.Tuple

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				tuple, err := DecodeTuple(val)
				if err != nil {
					return fmt.Errorf("relation %s: %w", name, err)
				}
				tuples = append(tuples, tuple)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tuples, nil
}

// Relations lists the names of all stored relations.
func (s *FactStore) Relations() ([]string, error) {
	var names []string
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte("rel/")
		var last []byte
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			key := it.Item().Key()
			rest := key[len(prefix):]
			end := bytes.IndexByte(rest, '/')
			if end < 0 {
				continue
			}
			name := rest[:end]
			if !bytes.Equal(name, last) {
				names = append(names, string(name))
				last = append(last[:0], name...)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return names, nil
}

// DeleteRelation removes all tuples of a relation.
func (s *FactStore) DeleteRelation(name string) error {
	prefix := relationPrefix(name)
	return s.db.Update(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		var keys [][]byte
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		for _, key := range keys {
			if err := txn.Delete(key); err != nil {
				return fmt.Errorf("failed to delete tuple from %s: %w", name, err)
			}
		}
		return nil
	})
}

// Close closes the underlying database.
func (s *FactStore) Close() error {
	return s.db.Close()
}
