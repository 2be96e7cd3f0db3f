// Package output renders a page of the bucket history. Formatters are looked
// up by name in a registry, so the show command can offer every format
// registered here through a single -o flag.
package output

import (
	"bytes"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/jamesainslie/myrm/pkg/myrm/history"
	"github.com/jamesainslie/myrm/pkg/myrm/types"
)

// Result is one page of the history plus bucket usage.
type Result struct {
	// Rows are the entries on this page, in ledger order.
	Rows []history.Row

	// Page is the 1-indexed page number.
	Page int

	// Pages is the total number of pages.
	Pages int

	// Total is the number of entries in the ledger.
	Total int

	// Bucket is the bucket directory.
	Bucket string

	// Used is the number of bytes held in the bucket.
	Used int64

	// MaxSize is the bucket size cap in bytes.
	MaxSize int64
}

// Columns are the headers shared by the tabular formatters.
var Columns = []string{"INDEX", "STATUS", "NAME", "LOCATION", "TRASHED"}

// cells renders row in Columns order.
func cells(row history.Row) []string {
	return []string{
		strconv.Itoa(row.Index),
		row.Status.Label(),
		row.Name,
		row.Location,
		types.FormatTimestamp(row.TrashedAt),
	}
}

// ErrUnknownFormat is returned when no formatter has the requested name.
var ErrUnknownFormat = errors.New("unknown output format")

// Formatter renders a Result.
type Formatter interface {
	Format(w *bytes.Buffer, r *Result) error
}

// FormatterFactory returns a fresh Formatter. Formatters may carry state,
// such as a parsed template, so every lookup gets its own instance.
type FormatterFactory func() Formatter

// Registry maps format names to factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]FormatterFactory
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]FormatterFactory)}
}

// Register adds factory under name, replacing any previous one.
func (r *Registry) Register(name string, factory FormatterFactory) {
	r.mu.Lock()
	r.factories[name] = factory
	r.mu.Unlock()
}

// Get returns a new formatter for name.
func (r *Registry) Get(name string) (Formatter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if factory, ok := r.factories[name]; ok {
		return factory(), nil
	}
	return nil, fmt.Errorf("%w %q (available: %s)", ErrUnknownFormat, name, strings.Join(r.sortedNames(), ", "))
}

// Available lists the registered names in sorted order.
func (r *Registry) Available() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sortedNames()
}

// sortedNames must be called with mu held.
func (r *Registry) sortedNames() []string {
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultRegistry holds the formatters registered by this package.
var DefaultRegistry = NewRegistry()

// Register adds a factory to DefaultRegistry.
func Register(name string, factory FormatterFactory) {
	DefaultRegistry.Register(name, factory)
}

// Get looks name up in DefaultRegistry.
func Get(name string) (Formatter, error) {
	return DefaultRegistry.Get(name)
}

// Available lists the names in DefaultRegistry.
func Available() []string {
	return DefaultRegistry.Available()
}
