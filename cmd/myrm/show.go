package main

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/jamesainslie/myrm/pkg/myrm/errs"
	"github.com/jamesainslie/myrm/pkg/myrm/history"
	"github.com/jamesainslie/myrm/pkg/myrm/output"
	"github.com/spf13/cobra"
)

// Output flags.
var (
	showPage     int
	showLimit    int
	outputFormat string
	templateStr  string
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "List the bucket contents",
	Long: `List the items in the bucket, one page at a time, in the order they
were removed. An empty bucket is reported as such and is not an error; asking
for a page past the last one is.

Output formats: pretty (default), plain, json, jsonl, yaml, csv, tsv,
markdown, template, indices.

Examples:
  myrm show --page 2 --limit 50
  myrm show -o json
  myrm show -o template --template '{{range .Rows}}{{.Index}} {{.Name}}{{"\n"}}{{end}}'
  myrm restore $(myrm show -o indices)`,
	Args: cobra.NoArgs,
	RunE: runShow,
}

func init() {
	showCmd.Flags().IntVar(&showPage, "page", 1, "page to show")
	showCmd.Flags().IntVar(&showLimit, "limit", 20, "items per page")
	showCmd.Flags().StringVarP(&outputFormat, "output", "o", "pretty", "output format")
	showCmd.Flags().StringVar(&templateStr, "template", "", "Go template for -o template")
	rootCmd.AddCommand(showCmd)
}

// runShow renders one page of the history.
func runShow(cmd *cobra.Command, _ []string) (err error) {
	formatter, err := output.Get(outputFormat)
	if err != nil {
		return fmt.Errorf("%w: %w", errs.ErrValidation, err)
	}
	if tf, ok := formatter.(*output.TemplateFormatter); ok && templateStr != "" {
		tf.SetTemplate(templateStr)
	}

	ctx := cmd.Context()
	b, err := openBucket(ctx)
	if err != nil {
		return err
	}
	defer closeBucket(b, &err)

	ledger := b.Ledger()
	rows, err := ledger.Page(showPage, showLimit)
	switch {
	case errors.Is(err, errs.ErrEmpty):
		rows = []history.Row{}
	case err != nil:
		return err
	}

	used, err := b.Size(ctx)
	if err != nil {
		return err
	}

	result := &output.Result{
		Rows:    rows,
		Page:    showPage,
		Pages:   ledger.PageCount(showLimit),
		Total:   ledger.Len(),
		Bucket:  b.Path(),
		Used:    used,
		MaxSize: b.MaxSize(),
	}

	var buf bytes.Buffer
	if err := formatter.Format(&buf, result); err != nil {
		return fmt.Errorf("formatting output: %w", err)
	}
	_, err = cmd.OutOrStdout().Write(buf.Bytes())
	return err
}
