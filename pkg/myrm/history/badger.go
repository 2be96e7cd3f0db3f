package history

import (
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

const badgerKey = "h:ledger"

// BadgerBackend stores the ledger document as a single value in a Badger
// database. Each save is one transaction.
type BadgerBackend struct {
	db *badger.DB
}

// OpenBadgerBackend opens or creates the Badger database in dir.
func OpenBadgerBackend(dir string) (*BadgerBackend, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening history database: %w", err)
	}
	return &BadgerBackend{db: db}, nil
}

// Load reads the stored document. An empty database yields no records.
func (b *BadgerBackend) Load() ([]Record, error) {
	var records []Record

	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(badgerKey))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			records, err = decodeDocument(val)
			return err
		})
	})
	if err != nil {
		return nil, fmt.Errorf("reading history database: %w", err)
	}
	return records, nil
}

// Save replaces the stored document.
func (b *BadgerBackend) Save(records []Record) error {
	data, err := encodeDocument(records)
	if err != nil {
		return err
	}

	err = b.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(badgerKey), data)
	})
	if err != nil {
		return fmt.Errorf("writing history database: %w", err)
	}
	return nil
}

// Close closes the database.
func (b *BadgerBackend) Close() error {
	return b.db.Close()
}

var _ Backend = (*BadgerBackend)(nil)
