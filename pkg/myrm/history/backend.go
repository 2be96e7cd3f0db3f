package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jamesainslie/myrm/pkg/myrm/errs"
)

// Backend persists the ledger as a whole.
type Backend interface {
	// Load returns the stored records in order. Nothing stored is not an error.
	Load() ([]Record, error)

	// Save replaces the stored records.
	Save(records []Record) error

	Close() error
}

// Backend kinds accepted by OpenBackend.
const (
	BackendFile   = "file"
	BackendBadger = "badger"
)

// OpenBackend opens the backend of the given kind at path.
func OpenBackend(kind, path string) (Backend, error) {
	switch kind {
	case "", BackendFile:
		return NewFileBackend(path), nil
	case BackendBadger:
		return OpenBadgerBackend(path)
	default:
		return nil, fmt.Errorf("%w: unknown history backend %q", errs.ErrValidation, kind)
	}
}

const documentVersion = 1

type document struct {
	Version int      `json:"version"`
	Entries []Record `json:"entries"`
}

func encodeDocument(records []Record) ([]byte, error) {
	if records == nil {
		records = []Record{}
	}
	data, err := json.MarshalIndent(document{Version: documentVersion, Entries: records}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding history: %w", err)
	}
	return data, nil
}

func decodeDocument(data []byte) ([]Record, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decoding history: %w", err)
	}
	if doc.Version != documentVersion {
		return nil, fmt.Errorf("unsupported history version %d", doc.Version)
	}
	return doc.Entries, nil
}

// FileBackend stores the ledger as one JSON document. Saves write a temp file
// next to the target and rename it into place.
type FileBackend struct {
	path string
}

// NewFileBackend returns a backend for the document at path. The file is
// created on first save.
func NewFileBackend(path string) *FileBackend {
	return &FileBackend{path: path}
}

// Path returns the document path.
func (b *FileBackend) Path() string {
	return b.path
}

// Load reads the document. A missing or empty file yields no records.
func (b *FileBackend) Load() ([]Record, error) {
	data, err := os.ReadFile(b.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", b.path, err)
	}
	if len(data) == 0 {
		return nil, nil
	}
	return decodeDocument(data)
}

// Save atomically replaces the document.
func (b *FileBackend) Save(records []Record) error {
	data, err := encodeDocument(records)
	if err != nil {
		return err
	}

	dir := filepath.Dir(b.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating history directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(b.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	_, writeErr := tmp.Write(data)
	syncErr := tmp.Sync()
	closeErr := tmp.Close()
	if err := errors.Join(writeErr, syncErr, closeErr); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("writing temp file: %w", err)
	}

	if err := os.Rename(tmpPath, b.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}

// Close is a no-op.
func (b *FileBackend) Close() error {
	return nil
}

var _ Backend = (*FileBackend)(nil)
