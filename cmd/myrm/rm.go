package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/jamesainslie/myrm/pkg/myrm/config"
	"github.com/jamesainslie/myrm/pkg/myrm/errs"
	"github.com/jamesainslie/myrm/pkg/myrm/types"
	"github.com/spf13/cobra"
)

var (
	rmForce bool
	rmRegex string
)

var rmCmd = &cobra.Command{
	Use:   "rm <path>...",
	Short: "Move files and directories into the bucket",
	Long: `Move files and directories into the bucket so they can be restored later.

Items are processed in order and the command stops at the first failure.
A removal that would fill the bucket to its maximum size is refused.

With --regex, each path names a directory and the glob pattern is matched
against its entries, in sorted order.

With --force, items are deleted permanently instead. You are asked to
confirm first.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRm,
}

func init() {
	rmCmd.Flags().BoolVarP(&rmForce, "force", "f", false, "permanently delete instead of moving to the bucket")
	rmCmd.Flags().StringVarP(&rmRegex, "regex", "r", "", "glob pattern matched inside each given directory")
	rootCmd.AddCommand(rmCmd)
}

// runRm removes every target in turn.
func runRm(cmd *cobra.Command, args []string) (err error) {
	if rmForce || confirmFirst {
		ok, err := confirm(cmd, "Do you want to delete it?")
		if err != nil {
			return err
		}
		if !ok {
			printInfo(cmd, "Nothing removed.")
			return nil
		}
	}

	targets, err := expandTargets(args, rmRegex)
	if err != nil {
		return err
	}
	printVerbose(cmd, "Removing %d item(s)", len(targets))

	ctx := cmd.Context()
	b, err := openBucket(ctx)
	if err != nil {
		return err
	}
	defer closeBucket(b, &err)

	for _, target := range targets {
		entry, err := b.Remove(ctx, target, rmForce)
		if err != nil {
			return err
		}
		if rmForce {
			printInfo(cmd, "Deleted %s", target)
			continue
		}
		printInfo(cmd, "Moved %s to the bucket as #%d", types.ShortenPath(target), entry.Index)
	}

	return nil
}

// expandTargets makes every path absolute. With a pattern, each path is a
// directory whose matching entries replace it.
func expandTargets(paths []string, pattern string) ([]string, error) {
	var targets []string
	for _, p := range paths {
		expanded, err := config.ExpandPath(p)
		if err != nil {
			return nil, err
		}
		abs, err := filepath.Abs(expanded)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", errs.ErrValidation, p, err)
		}

		if pattern == "" {
			targets = append(targets, abs)
			continue
		}

		matches, err := filepath.Glob(filepath.Join(abs, pattern))
		if errors.Is(err, filepath.ErrBadPattern) {
			return nil, fmt.Errorf("%w: pattern %q: %w", errs.ErrValidation, pattern, err)
		}
		sort.Strings(matches)
		targets = append(targets, matches...)
	}
	return targets, nil
}
