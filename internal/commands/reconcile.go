package commands

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/ledgerflow/internal/importer"
	"github.com/cleared-dev/ledgerflow/internal/model"
)

func newReconcileCommand(g *globalFlags) *cobra.Command {
	var format string
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "reconcile <file>",
		Short: "Match statement lines against booked transactions and open invoices or bills",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			lines, err := importer.DefaultRegistry().ParseFile(format, args[0])
			if err != nil {
				return err
			}

			rt, err := openRuntime(cmd.Context(), g, dryRun)
			if err != nil {
				return err
			}
			defer func() {
				if cerr := rt.close(); err == nil {
					err = cerr
				}
			}()

			rep, err := rt.pipeline.Reconcile(cmd.Context(), rt.companyID(), lines)
			if err != nil {
				return fmt.Errorf("%s: %w", filepath.Base(args[0]), err)
			}

			out := cmd.OutOrStdout()
			for _, r := range rep.Rejected {
				fmt.Fprintf(out, "%3d  rejected: %v\n", r.LineIndex+1, r.Err)
			}
			for _, r := range rep.Results {
				fmt.Fprintf(out, "%3d  %s  %12s  %-9s %3d  %s\n", r.LineIndex+1, r.Line.Date.Format(dateLayout),
					r.Line.Amount.StringFixed(2), r.Tier, r.Confidence, matchTarget(r))
				fmt.Fprintf(out, "     %s\n", r.Reason)
			}
			s := rep.Summary
			fmt.Fprintf(out, "%d lines: %d matched (%.0f%%), %d unmatched", s.Total, s.AutoMatched, s.AutoMatchRate*100, s.Unmatched)
			for _, t := range []model.MatchTier{model.TierExact, model.TierFuzzy, model.TierPattern, model.TierSplit} {
				fmt.Fprintf(out, ", %s %d", t, s.ByTier[t])
			}
			fmt.Fprintln(out)
			fmt.Fprintf(out, "%d applied, %d journal lines posted\n", rep.Applied, len(rep.Entries))
			for _, e := range rep.Errors {
				fmt.Fprintf(out, "error: %v\n", e)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "generic", "statement format (generic, chase)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "match without applying anything")

	return cmd
}

func matchTarget(r model.MatchResult) string {
	if !r.Matched() {
		return "-"
	}
	return strings.Join(r.RecordIDs(), " + ")
}
