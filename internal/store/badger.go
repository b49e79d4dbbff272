package store

import (
	"context"
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

type BadgerStore struct {
	db *badger.DB
}

func NewBadgerStore(dbPath string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(dbPath)
	opts.Logger = nil // Disable logging

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database: %w", err)
	}

	return &BadgerStore{db: db}, nil
}

func recordKey(collection, id string) []byte {
	return []byte(fmt.Sprintf("rec:%s:%s", collection, id))
}

func collectionPrefix(collection string) []byte {
	return []byte(fmt.Sprintf("rec:%s:", collection))
}

func (s *BadgerStore) ReadAll(ctx context.Context, collection string) ([]Record, error) {
	var records []Record
	prefix := collectionPrefix(collection)

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			id := string(item.Key()[len(prefix):])
			err := item.Value(func(val []byte) error {
				data := make([]byte, len(val))
				copy(data, val)
				records = append(records, Record{ID: id, Data: data})
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})

	if err != nil {
		return nil, fmt.Errorf("failed to read collection %s: %w", collection, err)
	}

	return records, nil
}

func (s *BadgerStore) WriteAll(ctx context.Context, collection string, records []Record) error {
	prefix := collectionPrefix(collection)

	err := s.db.Update(func(txn *badger.Txn) error {
		// Clear the existing collection first so the write is a replace,
		// not a merge.
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)

		var stale [][]byte
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			stale = append(stale, it.Item().KeyCopy(nil))
		}
		it.Close()

		for _, key := range stale {
			if err := txn.Delete(key); err != nil {
				return err
			}
		}

		for _, rec := range records {
			if err := txn.Set(recordKey(collection, rec.ID), rec.Data); err != nil {
				return err
			}
		}
		return nil
	})

	if err != nil {
		return fmt.Errorf("failed to write collection %s: %w", collection, err)
	}

	return nil
}

func (s *BadgerStore) Get(ctx context.Context, collection, id string) ([]byte, error) {
	var data []byte

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(recordKey(collection, id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			data = make([]byte, len(val))
			copy(data, val)
			return nil
		})
	})

	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read record %s/%s: %w", collection, id, err)
	}

	return data, nil
}

func (s *BadgerStore) Put(ctx context.Context, collection, id string, data []byte) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(recordKey(collection, id), data)
	})
	if err != nil {
		return fmt.Errorf("failed to store record %s/%s: %w", collection, id, err)
	}
	return nil
}

func (s *BadgerStore) Delete(ctx context.Context, collection, id string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		err := txn.Delete(recordKey(collection, id))
		if err != nil && err != badger.ErrKeyNotFound {
			return err
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete record %s/%s: %w", collection, id, err)
	}
	return nil
}

func (s *BadgerStore) DeleteRefs(ctx context.Context, refs []Ref) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		for _, ref := range refs {
			err := txn.Delete(recordKey(ref.Collection, ref.ID))
			if err != nil && err != badger.ErrKeyNotFound {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete records: %w", err)
	}
	return nil
}

func (s *BadgerStore) Close() error {
	return s.db.Close()
}
