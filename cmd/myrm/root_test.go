package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jamesainslie/myrm/pkg/myrm/errs"
	"github.com/jamesainslie/myrm/pkg/myrm/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

type env struct {
	dir     string
	config  string
	bucket  string
	history string
}

// newEnv writes a settings file that keeps everything inside a temp dir.
func newEnv(t *testing.T) env {
	t.Helper()
	dir := t.TempDir()
	e := env{
		dir:     dir,
		config:  filepath.Join(dir, "config.yaml"),
		bucket:  filepath.Join(dir, "bucket"),
		history: filepath.Join(dir, "history.json"),
	}

	content := "bucket:\n" +
		"  path: " + e.bucket + "\n" +
		"  history_path: " + e.history + "\n" +
		"logging:\n" +
		"  path: " + filepath.Join(dir, "myrm.log") + "\n"
	require.NoError(t, os.WriteFile(e.config, []byte(content), 0o644))

	t.Setenv("HOME", dir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "xdg"))
	t.Cleanup(func() { _ = logging.Close() })
	return e
}

// run executes the CLI with the env's settings file and returns stdout.
func (e env) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return execute(t, append([]string{"--config", e.config}, args...)...)
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)

	err := rootCmd.ExecuteContext(context.Background())
	return stdout.String(), err
}

// resetFlags puts every flag back to its default between runs.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

// answer makes every confirmation prompt return ok and counts the prompts.
func answer(t *testing.T, ok bool) *int {
	t.Helper()
	asked := 0
	orig := confirm
	confirm = func(*cobra.Command, string) (bool, error) {
		asked++
		return ok, nil
	}
	t.Cleanup(func() { confirm = orig })
	return &asked
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestRemoveShowRestore(t *testing.T) {
	e := newEnv(t)
	target := filepath.Join(e.dir, "work", "notes.txt")
	writeFile(t, target, "0123456789")

	out, err := e.run(t, "rm", target)
	require.NoError(t, err)
	assert.Contains(t, out, "#1")
	assert.NoFileExists(t, target)

	out, err = e.run(t, "show", "-o", "indices")
	require.NoError(t, err)
	assert.Equal(t, "1\n", out)

	out, err = e.run(t, "show", "-o", "plain")
	require.NoError(t, err)
	assert.Contains(t, out, "notes.txt")
	assert.Contains(t, out, "Known")

	_, err = e.run(t, "restore", "1")
	require.NoError(t, err)
	assert.FileExists(t, target)

	_, err = e.run(t, "restore", "1")
	require.ErrorIs(t, err, errs.ErrBinEmpty)
	assert.Equal(t, int(unix.EPERM), errs.ExitCode(err))
}

func TestRemove_Regex(t *testing.T) {
	e := newEnv(t)
	work := filepath.Join(e.dir, "work")
	writeFile(t, filepath.Join(work, "b.log"), "b")
	writeFile(t, filepath.Join(work, "a.log"), "a")
	writeFile(t, filepath.Join(work, "keep.txt"), "k")

	_, err := e.run(t, "rm", "--regex", "*.log", work)
	require.NoError(t, err)
	assert.NoFileExists(t, filepath.Join(work, "a.log"))
	assert.NoFileExists(t, filepath.Join(work, "b.log"))
	assert.FileExists(t, filepath.Join(work, "keep.txt"))

	out, err := e.run(t, "show", "-o", "tsv")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[1], "a.log")
	assert.Contains(t, lines[2], "b.log")
}

func TestRemove_Force(t *testing.T) {
	e := newEnv(t)
	target := filepath.Join(e.dir, "old.iso")
	writeFile(t, target, "data")

	asked := answer(t, false)
	_, err := e.run(t, "rm", "--force", target)
	require.NoError(t, err)
	assert.Equal(t, 1, *asked)
	assert.FileExists(t, target, "declined prompt must not delete")

	asked = answer(t, true)
	_, err = e.run(t, "rm", "--force", target)
	require.NoError(t, err)
	assert.Equal(t, 1, *asked)
	assert.NoFileExists(t, target)

	out, err := e.run(t, "show", "-o", "indices")
	require.NoError(t, err)
	assert.Empty(t, out, "forced removal is not recorded")
}

func TestRemove_BucketSizeOverride(t *testing.T) {
	e := newEnv(t)
	target := filepath.Join(e.dir, "notes.txt")
	writeFile(t, target, "0123456789")

	_, err := e.run(t, "--bucket-size", "0", "rm", target)
	require.ErrorIs(t, err, errs.ErrCapacityExceeded)
	assert.FileExists(t, target)
}

func TestRemove_DryRun(t *testing.T) {
	e := newEnv(t)
	target := filepath.Join(e.dir, "notes.txt")
	writeFile(t, target, "0123456789")

	out, err := e.run(t, "--dry-run", "rm", target)
	require.NoError(t, err)
	assert.Contains(t, out, "[dry-run]")
	assert.FileExists(t, target)
	assert.NoFileExists(t, e.history)
}

func TestDryRun_UntrackedItemInBucket(t *testing.T) {
	e := newEnv(t)
	require.NoError(t, os.MkdirAll(e.bucket, 0o755))
	stray := filepath.Join(e.bucket, "stray.txt")
	writeFile(t, stray, "x")
	target := filepath.Join(e.dir, "notes.txt")
	writeFile(t, target, "x")

	_, err := e.run(t, "--dry-run", "rm", target)
	require.NoError(t, err)
	_, err = e.run(t, "--dry-run", "show")
	require.NoError(t, err)

	assert.FileExists(t, stray)
	assert.FileExists(t, target)
	assert.NoFileExists(t, e.history)
}

func TestRemove_Silent(t *testing.T) {
	e := newEnv(t)
	target := filepath.Join(e.dir, "notes.txt")
	writeFile(t, target, "x")

	out, err := e.run(t, "--silent", "rm", target)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestVerbosityFlagsAreExclusive(t *testing.T) {
	e := newEnv(t)
	_, err := e.run(t, "--debug", "--silent", "show")
	assert.Error(t, err)
}

func TestRestore_InvalidIndex(t *testing.T) {
	e := newEnv(t)
	_, err := e.run(t, "restore", "abc")
	require.ErrorIs(t, err, errs.ErrValidation)
	assert.Equal(t, int(unix.EINVAL), errs.ExitCode(err))
}

func TestShow_Empty(t *testing.T) {
	e := newEnv(t)
	out, err := e.run(t, "show")
	require.NoError(t, err)
	assert.Contains(t, out, "Bucket is empty")
}

func TestShow_HelpDescribesEmptyBucket(t *testing.T) {
	out, err := execute(t, "show", "--help")
	require.NoError(t, err)
	assert.Contains(t, out, "An empty bucket is reported as such and is not an error")
}

func TestShow_PageOutOfRange(t *testing.T) {
	e := newEnv(t)
	target := filepath.Join(e.dir, "notes.txt")
	writeFile(t, target, "x")
	_, err := e.run(t, "rm", target)
	require.NoError(t, err)

	_, err = e.run(t, "show", "--page", "2")
	assert.ErrorIs(t, err, errs.ErrPageOutOfRange)
}

func TestShow_Template(t *testing.T) {
	e := newEnv(t)
	target := filepath.Join(e.dir, "notes.txt")
	writeFile(t, target, "x")
	_, err := e.run(t, "rm", target)
	require.NoError(t, err)

	out, err := e.run(t, "show", "-o", "template", "--template", "{{range .Rows}}{{.Index}}={{.Name}}{{end}}")
	require.NoError(t, err)
	assert.Equal(t, "1=notes.txt", out)
}

func TestShow_UnknownFormat(t *testing.T) {
	e := newEnv(t)
	_, err := e.run(t, "show", "-o", "xml")
	assert.ErrorIs(t, err, errs.ErrValidation)
}

func TestBucket(t *testing.T) {
	e := newEnv(t)

	_, err := e.run(t, "bucket", "--create")
	require.NoError(t, err)
	assert.DirExists(t, e.bucket)

	target := filepath.Join(e.dir, "notes.txt")
	writeFile(t, target, "x")
	_, err = e.run(t, "rm", target)
	require.NoError(t, err)

	asked := answer(t, false)
	_, err = e.run(t, "--confirm", "bucket", "--cleanup")
	require.NoError(t, err)
	assert.Equal(t, 1, *asked)
	entries, err := os.ReadDir(e.bucket)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	_, err = e.run(t, "bucket", "--cleanup")
	require.NoError(t, err)
	entries, err = os.ReadDir(e.bucket)
	require.NoError(t, err)
	assert.Empty(t, entries)

	_, err = e.run(t, "bucket")
	assert.Error(t, err, "one of --create or --cleanup is required")
}

func TestConfigCommands(t *testing.T) {
	e := newEnv(t)
	path := filepath.Join(e.dir, "new", "config.yaml")

	out, err := execute(t, "--config", path, "config", "path")
	require.NoError(t, err)
	assert.Equal(t, path+"\n", out)

	out, err = execute(t, "--config", path, "config", "init")
	require.NoError(t, err)
	assert.Contains(t, out, "Created")
	assert.FileExists(t, path)

	out, err = execute(t, "--config", path, "config", "init")
	require.NoError(t, err)
	assert.Contains(t, out, "already exists")

	out, err = e.run(t, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, e.config)
	assert.Contains(t, out, e.bucket)
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "myrm dev"))
}

func TestConsoleLevel(t *testing.T) {
	tests := []struct {
		name                            string
		debug, verbose, silent, dryRun bool
		want                            string
	}{
		{name: "default", want: "warn"},
		{name: "debug", debug: true, want: "debug"},
		{name: "verbose", verbose: true, want: "info"},
		{name: "silent", silent: true, want: ""},
		{name: "dry run", dryRun: true, want: "info"},
		{name: "dry run beats silent", silent: true, dryRun: true, want: "info"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			debug, verbose, silent, dryRun = tt.debug, tt.verbose, tt.silent, tt.dryRun
			t.Cleanup(func() { debug, verbose, silent, dryRun = false, false, false, false })
			assert.Equal(t, tt.want, consoleLevel())
		})
	}
}

func TestExpandTargets(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "b.txt"), "")
	writeFile(t, filepath.Join(dir, "a.txt"), "")
	writeFile(t, filepath.Join(dir, "c.md"), "")

	got, err := expandTargets([]string{dir}, "*.txt")
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "a.txt"), filepath.Join(dir, "b.txt")}, got)

	got, err = expandTargets([]string{dir}, "*.none")
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = expandTargets([]string{dir}, "[")
	assert.ErrorIs(t, err, errs.ErrValidation)

	t.Chdir(dir)
	got, err = expandTargets([]string{"c.md"}, "")
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "c.md")}, got)
}

func TestParseIndices(t *testing.T) {
	got, err := parseIndices([]string{"3", "1"})
	require.NoError(t, err)
	assert.Equal(t, []int{3, 1}, got)

	for _, bad := range []string{"0", "-2", "x"} {
		_, err := parseIndices([]string{bad})
		assert.ErrorIs(t, err, errs.ErrValidation, bad)
	}
}
