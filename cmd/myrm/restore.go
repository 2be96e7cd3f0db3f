package main

import (
	"fmt"
	"strconv"

	"github.com/jamesainslie/myrm/pkg/myrm/errs"
	"github.com/spf13/cobra"
)

var restoreCmd = &cobra.Command{
	Use:   "restore <index>...",
	Short: "Restore items from the bucket",
	Long: `Move items back from the bucket to the place they were removed from.

Indices are the numbers shown by 'myrm show'. They are processed in order
and the command stops at the first failure. An item is never restored over
an existing file, and items found in the bucket without a history record
cannot be restored.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRestore,
}

func init() {
	rootCmd.AddCommand(restoreCmd)
}

// runRestore restores every index in turn.
func runRestore(cmd *cobra.Command, args []string) (err error) {
	indices, err := parseIndices(args)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	b, err := openBucket(ctx)
	if err != nil {
		return err
	}
	defer closeBucket(b, &err)

	for _, index := range indices {
		entry, err := b.Restore(ctx, index)
		if err != nil {
			return err
		}
		printInfo(cmd, "Restored #%d to %s", index, entry.Origin)
	}

	return nil
}

// parseIndices converts index arguments to positive integers.
func parseIndices(args []string) ([]int, error) {
	indices := make([]int, 0, len(args))
	for _, arg := range args {
		n, err := strconv.Atoi(arg)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("%w: %q is not a valid index", errs.ErrValidation, arg)
		}
		indices = append(indices, n)
	}
	return indices, nil
}
