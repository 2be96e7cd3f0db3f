package bucket

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jamesainslie/myrm/pkg/myrm/config"
	"github.com/jamesainslie/myrm/pkg/myrm/errs"
	"github.com/jamesainslie/myrm/pkg/myrm/history"
	"github.com/jamesainslie/myrm/pkg/myrm/logging"
	"github.com/jamesainslie/myrm/pkg/myrm/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	dir     string
	work    string
	history string
	bucket  *Bucket
	now     time.Time
	names   int
}

func (f *fixture) clock() time.Time { return f.now }

func (f *fixture) name() string {
	f.names++
	return fmt.Sprintf("item-%d", f.names)
}

func newFixture(t *testing.T, maxSize int64, retention time.Duration, opts ...Option) *fixture {
	t.Helper()

	dir := t.TempDir()
	f := &fixture{
		dir:     dir,
		work:    filepath.Join(dir, "work"),
		history: filepath.Join(dir, "history.json"),
		now:     time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	require.NoError(t, os.MkdirAll(f.work, 0o755))

	ledger, err := history.Open(history.NewFileBackend(f.history))
	require.NoError(t, err)

	all := append([]Option{
		WithClock(f.clock),
		WithNameFunc(f.name),
		WithLogger(logging.Nop()),
	}, opts...)
	f.bucket = New(filepath.Join(dir, "bucket"), ledger, maxSize, retention, all...)
	require.NoError(t, f.bucket.Startup(context.Background()))
	return f
}

func (f *fixture) file(t *testing.T, rel string, size int) string {
	t.Helper()
	path := filepath.Join(f.work, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, make([]byte, size), 0o644))
	return path
}

func (f *fixture) reopen(t *testing.T) *history.Ledger {
	t.Helper()
	ledger, err := history.Open(history.NewFileBackend(f.history))
	require.NoError(t, err)
	return ledger
}

func TestRemoveAndRestoreFile(t *testing.T) {
	f := newFixture(t, types.MiB, 7*types.Day)
	ctx := context.Background()
	path := f.file(t, "notes.txt", 10)

	entry, err := f.bucket.Remove(ctx, path, false)
	require.NoError(t, err)
	assert.Equal(t, 1, entry.Index)
	assert.Equal(t, history.StatusKnown, entry.Status)
	assert.Equal(t, "notes.txt", entry.Name)
	assert.Equal(t, path, entry.Origin)
	assert.True(t, entry.TrashedAt.Equal(f.now))

	assert.NoFileExists(t, path)
	assert.FileExists(t, filepath.Join(f.bucket.Path(), "item-1"))

	persisted, ok := f.reopen(t).Get("item-1")
	require.True(t, ok)
	assert.Equal(t, entry.Origin, persisted.Origin)

	restored, err := f.bucket.Restore(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, path, restored.Origin)
	assert.FileExists(t, path)
	assert.Zero(t, f.bucket.Ledger().Len())
	assert.Zero(t, f.reopen(t).Len())
}

func TestRemoveAndRestoreDirectory(t *testing.T) {
	f := newFixture(t, types.MiB, 7*types.Day)
	ctx := context.Background()
	f.file(t, "project/a.txt", 5)
	f.file(t, "project/src/b.txt", 7)
	project := filepath.Join(f.work, "project")

	_, err := f.bucket.Remove(ctx, project, false)
	require.NoError(t, err)
	assert.NoDirExists(t, project)

	size, err := f.bucket.Size(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(12), size)

	_, err = f.bucket.Restore(ctx, 1)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(project, "src", "b.txt"))

	size, err = f.bucket.Size(ctx)
	require.NoError(t, err)
	assert.Zero(t, size)
}

func TestRemove_IndicesAreMonotonic(t *testing.T) {
	f := newFixture(t, types.MiB, 7*types.Day)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		entry, err := f.bucket.Remove(ctx, f.file(t, fmt.Sprintf("f%d", i), 1), false)
		require.NoError(t, err)
		assert.Equal(t, i, entry.Index)
	}

	_, err := f.bucket.Restore(ctx, 2)
	require.NoError(t, err)

	entry, err := f.bucket.Remove(ctx, f.file(t, "f4", 1), false)
	require.NoError(t, err)
	assert.Equal(t, 4, entry.Index)
	assert.Equal(t, []int{1, 3, 4}, f.bucket.Ledger().Indices())
}

func TestRemove_CapacityExceeded(t *testing.T) {
	f := newFixture(t, 100, 7*types.Day)
	ctx := context.Background()

	big := f.file(t, "big", 200)
	_, err := f.bucket.Remove(ctx, big, false)
	assert.ErrorIs(t, err, errs.ErrCapacityExceeded)
	assert.FileExists(t, big)
	assert.Zero(t, f.bucket.Ledger().Len())

	_, err = f.bucket.Remove(ctx, f.file(t, "sixty", 60), false)
	require.NoError(t, err)

	// Reaching the cap exactly is refused.
	forty := f.file(t, "forty", 40)
	_, err = f.bucket.Remove(ctx, forty, false)
	assert.ErrorIs(t, err, errs.ErrCapacityExceeded)
	assert.FileExists(t, forty)

	// The cap applies to forced removals too.
	_, err = f.bucket.Remove(ctx, forty, true)
	assert.ErrorIs(t, err, errs.ErrCapacityExceeded)
	assert.FileExists(t, forty)
}

func TestRemove_Force(t *testing.T) {
	f := newFixture(t, types.MiB, 7*types.Day)
	path := f.file(t, "gone", 10)

	entry, err := f.bucket.Remove(context.Background(), path, true)
	require.NoError(t, err)
	assert.Zero(t, entry)
	assert.NoFileExists(t, path)
	assert.Zero(t, f.bucket.Ledger().Len())

	items, err := os.ReadDir(f.bucket.Path())
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestRemove_Errors(t *testing.T) {
	f := newFixture(t, types.MiB, 7*types.Day)
	ctx := context.Background()

	_, err := f.bucket.Remove(ctx, filepath.Join(f.work, "missing"), false)
	assert.ErrorIs(t, err, errs.ErrNotFound)

	_, err = f.bucket.Remove(ctx, f.bucket.Path(), false)
	assert.ErrorIs(t, err, errs.ErrValidation)

	_, err = f.bucket.Remove(ctx, f.dir, false)
	assert.ErrorIs(t, err, errs.ErrValidation, "an ancestor of the bucket cannot be removed")
}

func TestReconcile(t *testing.T) {
	f := newFixture(t, types.MiB, 7*types.Day)
	ctx := context.Background()

	_, err := f.bucket.Remove(ctx, f.file(t, "tracked", 1), false)
	require.NoError(t, err)

	stray := filepath.Join(f.bucket.Path(), "stray.bin")
	require.NoError(t, os.WriteFile(stray, []byte("x"), 0o644))
	mtime := f.now.Add(-time.Hour)
	require.NoError(t, os.Chtimes(stray, mtime, mtime))

	require.NoError(t, f.bucket.Reconcile(ctx))

	entry, ok := f.bucket.Ledger().Get("stray.bin")
	require.True(t, ok)
	assert.Equal(t, history.StatusUnknown, entry.Status)
	assert.Equal(t, 2, entry.Index)
	assert.Equal(t, "stray.bin", entry.Name)
	assert.Equal(t, history.Unknown, entry.Location)
	assert.Equal(t, history.Unknown, entry.Origin)
	assert.True(t, entry.TrashedAt.Equal(mtime))

	_, err = f.bucket.Restore(ctx, 2)
	assert.ErrorIs(t, err, errs.ErrUnknownOrigin)
	assert.FileExists(t, stray)

	// An item deleted behind the ledger's back drops its entry.
	require.NoError(t, os.Remove(filepath.Join(f.bucket.Path(), "item-1")))
	require.NoError(t, f.bucket.Reconcile(ctx))
	assert.Equal(t, []string{"stray.bin"}, f.bucket.Ledger().Keys())
}

func TestPurgeExpired(t *testing.T) {
	f := newFixture(t, types.MiB, 7*types.Day)
	ctx := context.Background()

	_, err := f.bucket.Remove(ctx, f.file(t, "old", 1), false)
	require.NoError(t, err)

	f.now = f.now.Add(3 * types.Day)
	_, err = f.bucket.Remove(ctx, f.file(t, "young", 1), false)
	require.NoError(t, err)

	f.now = f.now.Add(4 * types.Day)
	require.NoError(t, f.bucket.Startup(ctx))

	assert.NoFileExists(t, filepath.Join(f.bucket.Path(), "item-1"))
	assert.FileExists(t, filepath.Join(f.bucket.Path(), "item-2"))
	assert.Equal(t, []string{"item-2"}, f.bucket.Ledger().Keys())
}

func TestPurgeExpired_LeavesEntryForReconcile(t *testing.T) {
	f := newFixture(t, types.MiB, 7*types.Day)
	ctx := context.Background()

	_, err := f.bucket.Remove(ctx, f.file(t, "old", 1), false)
	require.NoError(t, err)
	f.now = f.now.Add(8 * types.Day)

	require.NoError(t, f.bucket.PurgeExpired(ctx))
	assert.NoFileExists(t, filepath.Join(f.bucket.Path(), "item-1"))
	assert.True(t, f.bucket.Ledger().Has("item-1"))

	require.NoError(t, f.bucket.Reconcile(ctx))
	assert.Zero(t, f.bucket.Ledger().Len())
	assert.Zero(t, f.reopen(t).Len())
}

func TestPurgeExpired_UnknownItemsAgeByModTime(t *testing.T) {
	f := newFixture(t, types.MiB, 7*types.Day)
	ctx := context.Background()

	dir := filepath.Join(f.bucket.Path(), "old-dir")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "nested"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "nested", "f"), []byte("abc"), 0o644))
	mtime := f.now.Add(-8 * types.Day)
	require.NoError(t, os.Chtimes(dir, mtime, mtime))

	require.NoError(t, f.bucket.Startup(ctx))
	assert.NoDirExists(t, dir)
	assert.Zero(t, f.bucket.Ledger().Len())
}

func TestPurgeExpired_RequiresLedgerEntry(t *testing.T) {
	f := newFixture(t, types.MiB, 7*types.Day)
	require.NoError(t, os.WriteFile(filepath.Join(f.bucket.Path(), "untracked"), nil, 0o644))

	err := f.bucket.PurgeExpired(context.Background())
	assert.ErrorIs(t, err, errs.ErrTrashedTimeUnknown)
}

func TestRestore_Errors(t *testing.T) {
	f := newFixture(t, types.MiB, 7*types.Day)
	ctx := context.Background()

	_, err := f.bucket.Restore(ctx, 1)
	assert.ErrorIs(t, err, errs.ErrBinEmpty)

	path := f.file(t, "a.txt", 3)
	_, err = f.bucket.Remove(ctx, path, false)
	require.NoError(t, err)

	_, err = f.bucket.Restore(ctx, 9)
	assert.ErrorIs(t, err, errs.ErrIndexNotFound)

	require.NoError(t, os.WriteFile(path, []byte("new"), 0o644))
	_, err = f.bucket.Restore(ctx, 1)
	assert.ErrorIs(t, err, errs.ErrDestinationConflict)
	assert.True(t, f.bucket.Ledger().Has("item-1"))
}

func TestRestore_RecreatesParentDirectory(t *testing.T) {
	f := newFixture(t, types.MiB, 7*types.Day)
	ctx := context.Background()

	path := f.file(t, "deep/down/file.txt", 3)
	_, err := f.bucket.Remove(ctx, path, false)
	require.NoError(t, err)
	require.NoError(t, os.RemoveAll(filepath.Join(f.work, "deep")))

	_, err = f.bucket.Restore(ctx, 1)
	require.NoError(t, err)
	assert.FileExists(t, path)
}

func TestRestore_FailedMoveRemovesCreatedDirectories(t *testing.T) {
	f := newFixture(t, types.MiB, 7*types.Day)
	ctx := context.Background()

	path := f.file(t, "deep/down/file.txt", 3)
	_, err := f.bucket.Remove(ctx, path, false)
	require.NoError(t, err)
	require.NoError(t, os.RemoveAll(filepath.Join(f.work, "deep")))
	require.NoError(t, os.Remove(filepath.Join(f.bucket.Path(), "item-1")))

	_, err = f.bucket.Restore(ctx, 1)
	assert.ErrorIs(t, err, errs.ErrNotFound)
	assert.NoDirExists(t, filepath.Join(f.work, "deep"))
	assert.DirExists(t, f.work)
}

func TestCleanup(t *testing.T) {
	f := newFixture(t, types.MiB, 7*types.Day)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := f.bucket.Remove(ctx, f.file(t, fmt.Sprintf("f%d", i), 2), false)
		require.NoError(t, err)
	}

	require.NoError(t, f.bucket.Cleanup(ctx))

	assert.DirExists(t, f.bucket.Path())
	items, err := os.ReadDir(f.bucket.Path())
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Zero(t, f.bucket.Ledger().Len())
	assert.Zero(t, f.reopen(t).Len())
}

func TestDryRun(t *testing.T) {
	dir := t.TempDir()
	bucketPath := filepath.Join(dir, "bucket")
	ledger, err := history.Open(history.NewFileBackend(filepath.Join(dir, "history.json")))
	require.NoError(t, err)

	b := New(bucketPath, ledger, types.MiB, 7*types.Day, WithDryRun(true), WithLogger(logging.Nop()))
	ctx := context.Background()

	require.NoError(t, b.Startup(ctx))
	assert.NoDirExists(t, bucketPath)

	path := filepath.Join(dir, "keep.txt")
	require.NoError(t, os.WriteFile(path, []byte("data"), 0o644))

	entry, err := b.Remove(ctx, path, false)
	require.NoError(t, err)
	assert.Equal(t, 1, entry.Index)
	assert.FileExists(t, path)
	assert.Zero(t, ledger.Len())
	assert.NoFileExists(t, filepath.Join(dir, "history.json"))

	_, err = b.Remove(ctx, path, true)
	require.NoError(t, err)
	assert.FileExists(t, path)

	require.NoError(t, b.Cleanup(ctx))
	assert.NoDirExists(t, bucketPath)
}

func TestDryRun_UntrackedItems(t *testing.T) {
	dir := t.TempDir()
	bucketPath := filepath.Join(dir, "bucket")
	require.NoError(t, os.MkdirAll(bucketPath, 0o755))

	fresh := filepath.Join(bucketPath, "stray.txt")
	require.NoError(t, os.WriteFile(fresh, []byte("x"), 0o644))
	stale := filepath.Join(bucketPath, "old.txt")
	require.NoError(t, os.WriteFile(stale, []byte("x"), 0o644))
	mtime := time.Now().Add(-30 * types.Day)
	require.NoError(t, os.Chtimes(stale, mtime, mtime))

	ledger, err := history.Open(history.NewFileBackend(filepath.Join(dir, "history.json")))
	require.NoError(t, err)
	b := New(bucketPath, ledger, types.MiB, 7*types.Day, WithDryRun(true), WithLogger(logging.Nop()))

	require.NoError(t, b.Startup(context.Background()))
	assert.FileExists(t, fresh)
	assert.FileExists(t, stale)
	assert.Zero(t, ledger.Len())
	assert.NoFileExists(t, filepath.Join(dir, "history.json"))
}

// The worked example: 1,000,000 byte cap, a week of retention, one 10 byte file.
func TestScenario_RemoveRestoreEmpty(t *testing.T) {
	f := newFixture(t, 1_000_000, 7*types.Day)
	ctx := context.Background()
	path := f.file(t, "a.txt", 10)

	entry, err := f.bucket.Remove(ctx, path, false)
	require.NoError(t, err)
	assert.Equal(t, 1, entry.Index)
	assert.Equal(t, 1, f.bucket.Ledger().Len())

	_, err = f.bucket.Restore(ctx, 1)
	require.NoError(t, err)
	assert.FileExists(t, path)
	assert.Zero(t, f.bucket.Ledger().Len())

	_, err = f.bucket.Restore(ctx, 1)
	assert.ErrorIs(t, err, errs.ErrBinEmpty)
}

func TestOpen(t *testing.T) {
	for _, backend := range []string{history.BackendFile, history.BackendBadger} {
		t.Run(backend, func(t *testing.T) {
			dir := t.TempDir()
			s, err := config.NewSettings(filepath.Join(dir, "bucket"), filepath.Join(dir, "history"), types.MiB, types.Day)
			require.NoError(t, err)
			s.HistoryBackend = backend

			b, err := Open(s, WithLogger(logging.Nop()))
			require.NoError(t, err)
			ctx := context.Background()
			require.NoError(t, b.Startup(ctx))

			path := filepath.Join(dir, "f")
			require.NoError(t, os.WriteFile(path, []byte("1"), 0o644))
			_, err = b.Remove(ctx, path, false)
			require.NoError(t, err)
			require.NoError(t, b.Close())

			b, err = Open(s, WithLogger(logging.Nop()))
			require.NoError(t, err)
			defer b.Close()
			assert.Equal(t, 1, b.Ledger().Len())
			assert.Equal(t, s.MaxSize, b.MaxSize())
			assert.Equal(t, types.Day, b.Retention())
		})
	}

	t.Run("unknown backend", func(t *testing.T) {
		dir := t.TempDir()
		s, err := config.NewSettings(filepath.Join(dir, "bucket"), filepath.Join(dir, "history"), 1, 1)
		require.NoError(t, err)
		s.HistoryBackend = "redis"

		_, err = Open(s)
		assert.ErrorIs(t, err, errs.ErrValidation)
	})
}
