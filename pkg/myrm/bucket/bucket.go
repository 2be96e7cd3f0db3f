// Package bucket manages the holding area removed items are moved into.
//
// A Bucket pairs a directory with a history.Ledger. Removing a path moves it
// into the directory under a fresh UUID name and records where it came from;
// restoring moves it back. The bucket enforces a size cap on removal and
// permanently deletes items older than its retention period on startup.
package bucket

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jamesainslie/myrm/pkg/myrm/config"
	"github.com/jamesainslie/myrm/pkg/myrm/errs"
	"github.com/jamesainslie/myrm/pkg/myrm/fsops"
	"github.com/jamesainslie/myrm/pkg/myrm/history"
	"github.com/jamesainslie/myrm/pkg/myrm/logging"
	"github.com/jamesainslie/myrm/pkg/myrm/types"
)

// Bucket is the holding area plus its ledger.
type Bucket struct {
	path      string
	ledger    *history.Ledger
	maxSize   int64
	retention time.Duration

	dryRun     bool
	ops        *fsops.Ops
	log        *logging.Logger
	now        func() time.Time
	newName    func() string
	ownsLedger bool
}

// Option configures a Bucket.
type Option func(*Bucket)

// WithDryRun makes every operation report its effect without touching the
// disk or the ledger.
func WithDryRun(dryRun bool) Option {
	return func(b *Bucket) { b.dryRun = dryRun }
}

// WithLogger sets the bucket's logger.
func WithLogger(l *logging.Logger) Option {
	return func(b *Bucket) {
		if l != nil {
			b.log = l
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(b *Bucket) { b.now = now }
}

// WithNameFunc replaces the generator of bucket-local item names.
func WithNameFunc(fn func() string) Option {
	return func(b *Bucket) { b.newName = fn }
}

// WithOps sets the filesystem primitives. By default they follow the
// bucket's dry-run setting.
func WithOps(ops *fsops.Ops) Option {
	return func(b *Bucket) { b.ops = ops }
}

// New returns a bucket over path using ledger. The caller keeps ownership of
// the ledger.
func New(path string, ledger *history.Ledger, maxSize int64, retention time.Duration, opts ...Option) *Bucket {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}

	b := &Bucket{
		path:      path,
		ledger:    ledger,
		maxSize:   maxSize,
		retention: retention,
		log:       logging.Get("bucket"),
		now:       time.Now,
		newName:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.ops == nil {
		b.ops = fsops.New(fsops.WithDryRun(b.dryRun))
	}
	return b
}

// Open opens the ledger backend named by s and returns a bucket owning it.
func Open(s config.Settings, opts ...Option) (*Bucket, error) {
	backend, err := history.OpenBackend(s.HistoryBackend, s.HistoryPath)
	if err != nil {
		if errors.Is(err, errs.ErrValidation) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", errs.ErrLedgerIO, err)
	}

	ledger, err := history.Open(backend)
	if err != nil {
		_ = backend.Close()
		return nil, err
	}

	b := New(s.BucketPath, ledger, s.MaxSize, s.Retention, opts...)
	b.ownsLedger = true
	return b, nil
}

// Close closes the ledger if the bucket opened it.
func (b *Bucket) Close() error {
	if !b.ownsLedger {
		return nil
	}
	return b.ledger.Close()
}

// Path returns the bucket directory.
func (b *Bucket) Path() string { return b.path }

// Ledger returns the bucket's history.
func (b *Bucket) Ledger() *history.Ledger { return b.ledger }

// MaxSize returns the size cap in bytes.
func (b *Bucket) MaxSize() int64 { return b.maxSize }

// Retention returns how long items are kept.
func (b *Bucket) Retention() time.Duration { return b.retention }

// Create makes the bucket directory if it does not exist.
func (b *Bucket) Create(_ context.Context) error {
	return b.ops.Mkdir(b.path)
}

// Startup prepares the bucket for use: it creates the directory, brings the
// ledger in line with the disk, deletes expired items, and reconciles again.
func (b *Bucket) Startup(ctx context.Context) error {
	if err := b.Create(ctx); err != nil {
		return err
	}
	if err := b.Reconcile(ctx); err != nil {
		return err
	}
	if err := b.PurgeExpired(ctx); err != nil {
		return err
	}
	return b.Reconcile(ctx)
}

// Reconcile records every untracked item in the bucket as an unknown entry
// and drops ledger entries whose item is gone.
func (b *Bucket) Reconcile(ctx context.Context) error {
	items, err := b.list()
	if err != nil {
		return err
	}

	present := make(map[string]struct{}, len(items))
	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("reconciling bucket: %w", err)
		}

		name := item.Name()
		present[name] = struct{}{}
		if b.ledger.Has(name) {
			continue
		}

		info, err := item.Info()
		if err != nil {
			return fmt.Errorf("%w: %s: %w", errs.ErrNotFound, filepath.Join(b.path, name), err)
		}

		entry := b.untracked(name, info)
		b.log.Info("untracked item found", "name", name, "index", entry.Index, "dry_run", b.dryRun)
		if b.dryRun {
			continue
		}
		if err := b.ledger.Put(name, entry); err != nil {
			return err
		}
	}

	for _, key := range b.ledger.Keys() {
		if _, ok := present[key]; ok {
			continue
		}
		b.log.Info("stale history entry dropped", "name", key, "dry_run", b.dryRun)
		if b.dryRun {
			continue
		}
		if err := b.ledger.Delete(key); err != nil {
			return err
		}
	}

	return nil
}

// untracked builds the entry recorded for an item myrm did not put in the
// bucket. Its age is taken from the item's modification time.
func (b *Bucket) untracked(name string, info fs.FileInfo) history.Entry {
	return history.Entry{
		Status:    history.StatusUnknown,
		Index:     b.ledger.NextIndex(),
		Name:      name,
		Location:  history.Unknown,
		TrashedAt: info.ModTime(),
		Origin:    history.Unknown,
	}
}

// PurgeExpired permanently deletes every item held for at least the
// retention period. Every item must have a ledger entry; run Reconcile first.
// A dry run never records untracked items, so there they age by modification
// time. The ledger keeps the entries of deleted items until the next Reconcile.
func (b *Bucket) PurgeExpired(ctx context.Context) error {
	items, err := b.list()
	if err != nil {
		return err
	}

	now := b.now()
	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("purging bucket: %w", err)
		}

		name := item.Name()
		entry, ok := b.ledger.Get(name)
		if !ok {
			if !b.dryRun {
				return fmt.Errorf("%w: %s", errs.ErrTrashedTimeUnknown, name)
			}
			info, err := item.Info()
			if err != nil {
				return fmt.Errorf("%w: %s: %w", errs.ErrTrashedTimeUnknown, name, err)
			}
			entry = b.untracked(name, info)
		}

		age := now.Sub(entry.TrashedAt)
		if age < b.retention {
			continue
		}

		if err := b.ops.Remove(ctx, filepath.Join(b.path, name)); err != nil {
			return err
		}
		b.log.Info("expired item deleted", "name", entry.Name, "index", entry.Index, "age", age.Round(time.Second), "dry_run", b.dryRun)
	}

	return nil
}

// Cleanup empties the bucket and its ledger.
func (b *Bucket) Cleanup(ctx context.Context) error {
	if _, err := os.Lstat(b.path); err == nil {
		if err := b.ops.RemoveTree(ctx, b.path); err != nil {
			return err
		}
	}
	if err := b.Create(ctx); err != nil {
		return err
	}
	if b.dryRun {
		b.log.Info("history cleared", "entries", b.ledger.Len(), "dry_run", true)
		return nil
	}
	if err := b.ledger.Purge(); err != nil {
		return err
	}
	b.log.Info("bucket emptied", "path", b.path)
	return nil
}

// Size returns the bytes currently held in the bucket.
func (b *Bucket) Size(ctx context.Context) (int64, error) {
	size, err := fsops.Size(ctx, b.path)
	if err != nil && b.dryRun && b.missing() {
		return 0, nil
	}
	return size, err
}

// Remove moves path into the bucket, or deletes it permanently when force is
// set. Either way the removal is refused if the bucket would reach its size
// cap. The returned entry describes the recorded item and is zero for a
// forced removal.
func (b *Bucket) Remove(ctx context.Context, path string, force bool) (history.Entry, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return history.Entry{}, fmt.Errorf("%w: %s: %w", errs.ErrValidation, path, err)
	}
	if _, err := os.Lstat(abs); err != nil {
		return history.Entry{}, fmt.Errorf("%w: %s: %w", errs.ErrNotFound, abs, err)
	}
	if overlaps(abs, b.path) {
		return history.Entry{}, fmt.Errorf("%w: %s overlaps the bucket at %s", errs.ErrValidation, abs, b.path)
	}

	current, err := b.Size(ctx)
	if err != nil {
		return history.Entry{}, err
	}
	itemSize, err := fsops.Size(ctx, abs)
	if err != nil {
		return history.Entry{}, err
	}
	if current+itemSize >= b.maxSize {
		return history.Entry{}, fmt.Errorf("%w: %s is %s, bucket holds %s of %s",
			errs.ErrCapacityExceeded, abs, types.FormatSize(itemSize), types.FormatSize(current), types.FormatSize(b.maxSize))
	}

	if force {
		if err := b.ops.Remove(ctx, abs); err != nil {
			return history.Entry{}, err
		}
		b.log.Info("item deleted permanently", "path", abs, "size", itemSize, "dry_run", b.dryRun)
		return history.Entry{}, nil
	}

	name := b.newName()
	if err := b.ops.Relocate(ctx, abs, filepath.Join(b.path, name)); err != nil {
		return history.Entry{}, err
	}

	entry := history.Entry{
		Status:    history.StatusKnown,
		Index:     b.ledger.NextIndex(),
		Name:      filepath.Base(abs),
		Location:  types.ShortenPath(abs),
		TrashedAt: b.now(),
		Origin:    abs,
	}
	b.log.Info("item moved to bucket", "path", abs, "name", name, "index", entry.Index, "size", itemSize, "dry_run", b.dryRun)

	if !b.dryRun {
		if err := b.ledger.Put(name, entry); err != nil {
			return history.Entry{}, err
		}
	}
	return entry, nil
}

// Restore moves the item with the given index back to where it came from.
func (b *Bucket) Restore(ctx context.Context, index int) (history.Entry, error) {
	if b.ledger.Len() == 0 {
		return history.Entry{}, errs.ErrBinEmpty
	}

	key, entry, ok := b.ledger.FindByIndex(index)
	if !ok {
		return history.Entry{}, fmt.Errorf("%w: %d", errs.ErrIndexNotFound, index)
	}
	if entry.Status == history.StatusUnknown {
		return history.Entry{}, fmt.Errorf("%w: index %d (%s)", errs.ErrUnknownOrigin, index, entry.Name)
	}

	if _, err := os.Lstat(entry.Origin); err == nil {
		return history.Entry{}, fmt.Errorf("%w: %s", errs.ErrDestinationConflict, entry.Origin)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return history.Entry{}, fmt.Errorf("%w: checking %s: %w", errs.ErrOperationFailed, entry.Origin, err)
	}

	src := filepath.Join(b.path, key)
	created := missingAncestor(filepath.Dir(entry.Origin))
	if err := b.ops.Mkdir(filepath.Dir(entry.Origin)); err != nil {
		return history.Entry{}, err
	}
	if err := b.ops.Relocate(ctx, src, entry.Origin); err != nil {
		if created != "" && !b.dryRun {
			removeEmptyDirs(filepath.Dir(entry.Origin), created)
		}
		return history.Entry{}, err
	}
	b.log.Info("item restored", "index", index, "path", entry.Origin, "dry_run", b.dryRun)

	if err := b.Reconcile(ctx); err != nil {
		return history.Entry{}, err
	}
	return entry, nil
}

// list returns the bucket's immediate children. A dry run against a bucket
// that was never created sees an empty bucket.
func (b *Bucket) list() ([]fs.DirEntry, error) {
	items, err := os.ReadDir(b.path)
	if err != nil {
		if b.dryRun && errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: listing bucket %s: %w", errs.ErrNotFound, b.path, err)
	}
	return items, nil
}

// missingAncestor returns the outermost directory of dir that does not exist
// yet, or "" when dir exists.
func missingAncestor(dir string) string {
	top := ""
	for d := dir; ; d = filepath.Dir(d) {
		if _, err := os.Lstat(d); err == nil {
			return top
		}
		top = d
		if filepath.Dir(d) == d {
			return top
		}
	}
}

// removeEmptyDirs deletes dir and then its parents up to top, stopping at the
// first one that is not empty.
func removeEmptyDirs(dir, top string) {
	for d := dir; ; d = filepath.Dir(d) {
		if os.Remove(d) != nil || d == top {
			return
		}
	}
}

func (b *Bucket) missing() bool {
	_, err := os.Lstat(b.path)
	return errors.Is(err, fs.ErrNotExist)
}

// overlaps reports whether a and b are the same path or one contains the other.
func overlaps(a, b string) bool {
	if a == b {
		return true
	}
	sep := string(filepath.Separator)
	return strings.HasPrefix(a, strings.TrimSuffix(b, sep)+sep) || strings.HasPrefix(b, strings.TrimSuffix(a, sep)+sep)
}
