package commands

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/ledgerflow/internal/importer"
	"github.com/cleared-dev/ledgerflow/internal/pipeline"
)

func newIngestCommand(g *globalFlags) *cobra.Command {
	var format string
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "ingest [file]",
		Short: "Classify, book and post statement lines",
		Long: "Classify, book and post statement lines. With no file, every CSV in import/ is\n" +
			"ingested and moved to import/processed/ once it succeeds.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			rt, err := openRuntime(cmd.Context(), g, dryRun)
			if err != nil {
				return err
			}
			defer func() {
				if cerr := rt.close(); err == nil {
					err = cerr
				}
			}()

			reg := importer.DefaultRegistry()
			out := cmd.OutOrStdout()
			if len(args) == 1 {
				return ingestFile(cmd.Context(), out, rt, reg, format, args[0])
			}

			files, err := importer.Scan(rt.root)
			if err != nil {
				return err
			}
			if len(files) == 0 {
				fmt.Fprintln(out, "No statements in import/")
				return nil
			}
			for _, f := range files {
				if err := ingestFile(cmd.Context(), out, rt, reg, format, f.Path); err != nil {
					return err
				}
				if dryRun {
					continue
				}
				if err := importer.MarkProcessed(rt.root, f.Name); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "generic", "statement format (generic, chase)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "classify without writing anything")

	return cmd
}

func ingestFile(ctx context.Context, out io.Writer, rt *runtime, reg *importer.Registry, format, path string) error {
	lines, err := reg.ParseFile(format, path)
	if err != nil {
		return err
	}
	rep, err := rt.pipeline.Ingest(ctx, rt.companyID(), lines)
	if err != nil {
		return fmt.Errorf("%s: %w", filepath.Base(path), err)
	}

	fmt.Fprintf(out, "%s\n", filepath.Base(path))
	for _, o := range rep.Lines {
		fmt.Fprintf(out, "  %s  %12s %-6s  %-40.40s  %s\n",
			o.Line.Date.Format(dateLayout), o.Line.Amount.StringFixed(2), o.Line.Direction,
			o.Line.Description, outcomeLabel(o))
	}
	fmt.Fprintf(out, "%d lines: %d posted, %d need review, %d rejected\n",
		len(rep.Lines), rep.Posted, rep.NeedsReview, rep.Rejected)
	return nil
}

func outcomeLabel(o pipeline.LineOutcome) string {
	c := o.Classification
	switch {
	case o.Err != nil && c.Strategy == "":
		return "rejected: " + o.Err.Error()
	case o.Posted():
		return fmt.Sprintf("posted %s %s (%d)", o.Entries[0].EntryGroup(), c.Category, c.Confidence)
	case o.Err != nil:
		return fmt.Sprintf("review %s (%d): %v", c.Category, c.Confidence, o.Err)
	case c.NeedsReview:
		return fmt.Sprintf("review %s (%d)", c.Category, c.Confidence)
	}
	return fmt.Sprintf("classified %s (%d)", c.Category, c.Confidence)
}
