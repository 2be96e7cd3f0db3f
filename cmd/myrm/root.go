package main

import (
	"context"
	"fmt"
	"io"

	"github.com/jamesainslie/myrm/cmd/myrm/tui"
	"github.com/jamesainslie/myrm/pkg/myrm/bucket"
	"github.com/jamesainslie/myrm/pkg/myrm/config"
	"github.com/jamesainslie/myrm/pkg/myrm/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile      string
	dryRun       bool
	confirmFirst bool
	debug        bool
	verbose      bool
	silent       bool
	bucketSizeMB int

	// cfg is the configuration loaded for the running command.
	cfg *config.Config

	// configUsed is the settings file that was read, if any.
	configUsed string

	rootCmd = &cobra.Command{
		Use:   "myrm",
		Short: "Remove files into a recoverable bucket",
		Long: `myrm is a safety net for rm. Removed files and directories are moved into
a bucket and recorded in a history, so they can be restored later. The bucket
has a size cap, and items older than the storage time are purged automatically.

Examples:
  myrm rm notes.txt build/          # Move two items into the bucket
  myrm rm -r '*.log' /var/tmp/app   # Remove everything matching a glob
  myrm rm --force old.iso           # Delete permanently (asks first)
  myrm show                         # List the bucket contents
  myrm restore 3 5                  # Put items 3 and 5 back
  myrm bucket --cleanup             # Empty the bucket`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

// confirm asks the user a yes/no question. Tests replace it.
var confirm = func(cmd *cobra.Command, question string) (bool, error) {
	return tui.Confirm(question, cmd.InOrStdin(), cmd.ErrOrStderr())
}

func init() {
	// Assigned here rather than in the literal to break the
	// rootCmd -> setup -> loadConfig -> rootCmd initialization cycle.
	rootCmd.PersistentPreRunE = setup

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "settings file (default: ~/.config/myrm/config.yaml)")
	flags.String("bucket-path", "", "directory that holds removed items")
	flags.String("bucket-history-path", "", "location of the bucket history")
	flags.IntVar(&bucketSizeMB, "bucket-size", 0, "bucket's maximum size in megabytes")
	flags.Int("bucket-storetime", 0, "days an item is kept in the bucket")
	flags.BoolVar(&dryRun, "dry-run", false, "show what would happen without changing anything")
	flags.BoolVarP(&confirmFirst, "confirm", "c", false, "ask for confirmation before acting")
	flags.BoolVar(&debug, "debug", false, "print debugging statements")
	flags.BoolVar(&verbose, "verbose", false, "print what happens")
	flags.BoolVar(&silent, "silent", false, "print nothing but errors")

	rootCmd.MarkFlagsMutuallyExclusive("debug", "verbose", "silent")
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// setup loads the configuration and starts logging for every command.
func setup(cmd *cobra.Command, _ []string) error {
	if err := loadConfig(); err != nil {
		return err
	}

	logCfg, err := cfg.LoggingFor(consoleLevel())
	if err != nil {
		return err
	}
	logCfg.Console = cmd.ErrOrStderr()
	if err := logging.Init(logCfg); err != nil {
		return fmt.Errorf("initializing logging: %w", err)
	}

	logging.Get("cli").Debug("configuration loaded", "file", configUsed, "command", cmd.CommandPath())
	return nil
}

// loadConfig reads the settings file and environment, then applies the
// command-line overrides.
func loadConfig() error {
	v := viper.New()
	flags := rootCmd.PersistentFlags()
	_ = v.BindPFlag("bucket.path", flags.Lookup("bucket-path"))
	_ = v.BindPFlag("bucket.history_path", flags.Lookup("bucket-history-path"))
	_ = v.BindPFlag("bucket.retention", flags.Lookup("bucket-storetime"))

	loaded, err := config.LoadWith(v, cfgFile)
	if err != nil {
		return err
	}
	if flags.Changed("bucket-size") {
		loaded.Bucket.MaxSize = fmt.Sprintf("%dM", bucketSizeMB)
	}

	cfg = loaded
	configUsed = v.ConfigFileUsed()
	return nil
}

// consoleLevel maps the verbosity flags to a console log level. A dry run
// always reports at info so the would-be actions are visible.
func consoleLevel() string {
	switch {
	case debug:
		return "debug"
	case dryRun:
		return "info"
	case silent:
		return ""
	case verbose:
		return "info"
	default:
		return "warn"
	}
}

// openBucket opens the configured bucket and brings it up to date.
func openBucket(ctx context.Context) (*bucket.Bucket, error) {
	settings, err := cfg.Settings()
	if err != nil {
		return nil, err
	}

	b, err := bucket.Open(settings, bucket.WithDryRun(dryRun))
	if err != nil {
		return nil, err
	}
	if err := b.Startup(ctx); err != nil {
		_ = b.Close()
		return nil, err
	}
	return b, nil
}

// closeBucket closes b, keeping the first error seen.
func closeBucket(b *bucket.Bucket, err *error) {
	if cerr := b.Close(); cerr != nil && *err == nil {
		*err = cerr
	}
}

// printInfo prints a message unless silent mode is enabled.
func printInfo(cmd *cobra.Command, format string, args ...interface{}) {
	if silent {
		return
	}
	prefix := ""
	if dryRun {
		prefix = "[dry-run] "
	}
	fmt.Fprintf(cmd.OutOrStdout(), prefix+format+"\n", args...)
}

// printVerbose prints a message if verbose or debug mode is enabled.
func printVerbose(cmd *cobra.Command, format string, args ...interface{}) {
	if (verbose || debug) && !silent {
		fmt.Fprintf(cmd.ErrOrStderr(), "[DEBUG] "+format+"\n", args...)
	}
}

// printError prints an error message.
func printError(w io.Writer, format string, args ...interface{}) {
	fmt.Fprintf(w, "Error: "+format+"\n", args...)
}
