// Package history keeps the ordered record of everything held in the bucket.
//
// A Ledger maps bucket-local item names to entries in insertion order. Every
// mutation is written through to its Backend before the call returns, so the
// persisted ledger always matches the last successful operation.
package history

import (
	"fmt"
	"sync"

	"github.com/jamesainslie/myrm/pkg/myrm/errs"
	"github.com/jamesainslie/myrm/pkg/myrm/logging"
)

// Ledger is the ordered, write-through history of bucket items.
type Ledger struct {
	mu      sync.Mutex
	backend Backend
	keys    []string
	entries map[string]Entry
	log     *logging.Logger
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithLogger sets the ledger's logger.
func WithLogger(l *logging.Logger) Option {
	return func(ld *Ledger) {
		if l != nil {
			ld.log = l
		}
	}
}

// Open loads the ledger from backend. A backend with nothing stored yields an
// empty ledger.
func Open(backend Backend, opts ...Option) (*Ledger, error) {
	l := &Ledger{
		backend: backend,
		entries: make(map[string]Entry),
		log:     logging.Get("history"),
	}
	for _, opt := range opts {
		opt(l)
	}

	records, err := backend.Load()
	if err != nil {
		return nil, fmt.Errorf("%w: loading history: %w", errs.ErrLedgerIO, err)
	}
	for _, r := range records {
		if _, ok := l.entries[r.Key]; !ok {
			l.keys = append(l.keys, r.Key)
		}
		l.entries[r.Key] = r.Entry
	}

	l.log.Debug("history loaded", "entries", len(l.keys))
	return l, nil
}

// Close releases the backend.
func (l *Ledger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.backend.Close(); err != nil {
		return fmt.Errorf("%w: closing history: %w", errs.ErrLedgerIO, err)
	}
	return nil
}

// Put inserts or replaces the entry under key and persists the ledger. A
// replaced entry keeps its position.
func (l *Ledger) Put(key string, e Entry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	prev, existed := l.entries[key]
	if !existed {
		l.keys = append(l.keys, key)
	}
	l.entries[key] = e

	if err := l.persist(); err != nil {
		if existed {
			l.entries[key] = prev
		} else {
			delete(l.entries, key)
			l.keys = l.keys[:len(l.keys)-1]
		}
		return err
	}
	return nil
}

// Delete removes key and persists the ledger. Deleting an absent key does
// nothing.
func (l *Ledger) Delete(key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	prev, ok := l.entries[key]
	if !ok {
		return nil
	}

	pos := l.position(key)
	keys := make([]string, 0, len(l.keys)-1)
	keys = append(keys, l.keys[:pos]...)
	keys = append(keys, l.keys[pos+1:]...)

	oldKeys := l.keys
	l.keys = keys
	delete(l.entries, key)

	if err := l.persist(); err != nil {
		l.keys = oldKeys
		l.entries[key] = prev
		return err
	}
	return nil
}

// Purge removes every entry and persists the empty ledger.
func (l *Ledger) Purge() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	oldKeys, oldEntries := l.keys, l.entries
	l.keys = nil
	l.entries = make(map[string]Entry)

	if err := l.persist(); err != nil {
		l.keys, l.entries = oldKeys, oldEntries
		return err
	}
	return nil
}

// Get returns the entry stored under key.
func (l *Ledger) Get(key string) (Entry, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[key]
	return e, ok
}

// Has reports whether key is present.
func (l *Ledger) Has(key string) bool {
	_, ok := l.Get(key)
	return ok
}

// Keys returns the keys in insertion order.
func (l *Ledger) Keys() []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	return append([]string(nil), l.keys...)
}

// Entries returns every record in insertion order.
func (l *Ledger) Entries() []Record {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.records()
}

// Len returns the number of entries.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return len(l.keys)
}

// Indices returns the index of every entry in insertion order.
func (l *Ledger) Indices() []int {
	l.mu.Lock()
	defer l.mu.Unlock()

	indices := make([]int, 0, len(l.keys))
	for _, k := range l.keys {
		indices = append(indices, l.entries[k].Index)
	}
	return indices
}

// NextIndex returns one more than the largest index in use, or 1 when the
// ledger is empty.
func (l *Ledger) NextIndex() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	highest := 0
	for _, e := range l.entries {
		if e.Index > highest {
			highest = e.Index
		}
	}
	return highest + 1
}

// FindByIndex returns the key and entry with the given index.
func (l *Ledger) FindByIndex(index int) (string, Entry, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, k := range l.keys {
		if e := l.entries[k]; e.Index == index {
			return k, e, true
		}
	}
	return "", Entry{}, false
}

// PageCount returns the number of pages of pageSize rows. It is zero for an
// empty ledger or a non-positive pageSize.
func (l *Ledger) PageCount(pageSize int) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return pageCount(len(l.keys), pageSize)
}

// Page returns the rows of the 1-indexed page, in insertion order.
func (l *Ledger) Page(page, pageSize int) ([]Row, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.keys) == 0 {
		return nil, errs.ErrEmpty
	}
	if pageSize < 1 {
		return nil, fmt.Errorf("%w: page size must be positive, got %d", errs.ErrValidation, pageSize)
	}

	pages := pageCount(len(l.keys), pageSize)
	if page < 1 || page > pages {
		return nil, fmt.Errorf("%w: page %d of %d", errs.ErrPageOutOfRange, page, pages)
	}

	start := (page - 1) * pageSize
	end := min(start+pageSize, len(l.keys))

	rows := make([]Row, 0, end-start)
	for _, k := range l.keys[start:end] {
		rows = append(rows, l.entries[k].Row())
	}
	return rows, nil
}

func pageCount(n, pageSize int) int {
	if n == 0 || pageSize < 1 {
		return 0
	}
	return (n + pageSize - 1) / pageSize
}

func (l *Ledger) position(key string) int {
	for i, k := range l.keys {
		if k == key {
			return i
		}
	}
	return -1
}

func (l *Ledger) records() []Record {
	records := make([]Record, 0, len(l.keys))
	for _, k := range l.keys {
		records = append(records, Record{Key: k, Entry: l.entries[k]})
	}
	return records
}

// persist saves the whole ledger. Must be called with l.mu held.
func (l *Ledger) persist() error {
	if err := l.backend.Save(l.records()); err != nil {
		return fmt.Errorf("%w: saving history: %w", errs.ErrLedgerIO, err)
	}
	l.log.Debug("history saved", "entries", len(l.keys))
	return nil
}
