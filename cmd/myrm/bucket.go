package main

import (
	"github.com/spf13/cobra"
)

var (
	bucketCreate  bool
	bucketCleanup bool
)

var bucketCmd = &cobra.Command{
	Use:   "bucket",
	Short: "Maintain the bucket",
	Long: `Create the bucket directory, or empty it and clear its history.

--cleanup deletes every item in the bucket permanently. With --confirm you
are asked first.`,
	Args: cobra.NoArgs,
	RunE: runBucket,
}

func init() {
	bucketCmd.Flags().BoolVar(&bucketCreate, "create", false, "create the bucket directory")
	bucketCmd.Flags().BoolVar(&bucketCleanup, "cleanup", false, "delete all items and clear the history")
	bucketCmd.MarkFlagsMutuallyExclusive("create", "cleanup")
	bucketCmd.MarkFlagsOneRequired("create", "cleanup")
	rootCmd.AddCommand(bucketCmd)
}

// runBucket performs the requested maintenance.
func runBucket(cmd *cobra.Command, _ []string) (err error) {
	ctx := cmd.Context()
	b, err := openBucket(ctx)
	if err != nil {
		return err
	}
	defer closeBucket(b, &err)

	if bucketCreate {
		if err := b.Create(ctx); err != nil {
			return err
		}
		printInfo(cmd, "Bucket ready at %s", b.Path())
		return nil
	}

	if confirmFirst {
		ok, err := confirm(cmd, "Do you want to cleanup the bucket?")
		if err != nil {
			return err
		}
		if !ok {
			printInfo(cmd, "Bucket left untouched.")
			return nil
		}
	}

	if err := b.Cleanup(ctx); err != nil {
		return err
	}
	printInfo(cmd, "Bucket emptied: %s", b.Path())
	return nil
}
