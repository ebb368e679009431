package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/ledgerflow/internal/ledger"
	"github.com/cleared-dev/ledgerflow/internal/model"
)

func newAccountsCommand(g *globalFlags) *cobra.Command {
	var accountType string

	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "List the chart of accounts with running balances",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			t := model.AccountType(accountType)
			if accountType != "" && !t.Valid() {
				return fmt.Errorf("unknown account type %q", accountType)
			}

			rt, err := openRuntime(cmd.Context(), g, true)
			if err != nil {
				return err
			}
			defer rt.close()

			accts, err := rt.store.Accounts(cmd.Context(), rt.companyID())
			if err != nil {
				return err
			}
			var only map[string]bool
			if accountType != "" {
				only = make(map[string]bool)
				for _, a := range rt.chart.ByType(t) {
					only[a.Code] = true
				}
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', tabwriter.AlignRight)
			fmt.Fprintln(tw, "CODE\tNAME\tTYPE\tBALANCE\t")
			for _, a := range accts {
				if only != nil && !only[a.Code] {
					continue
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t\n", a.Code, a.Name, a.Type, a.Balance.StringFixed(rt.cfg.Ledger.Scale))
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringVar(&accountType, "type", "", "only list accounts of this type (asset, liability, equity, revenue, expense)")

	return cmd
}

func newExportCommand(g *globalFlags) *cobra.Command {
	var outPath string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the journal as CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := openRuntime(cmd.Context(), g, true)
			if err != nil {
				return err
			}
			defer rt.close()

			entries, err := rt.store.Entries(cmd.Context(), rt.companyID())
			if err != nil {
				return err
			}

			path := outPath
			if path == "" {
				path = filepath.Join(rt.root, "exports", "journal.csv")
			}
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return fmt.Errorf("creating export dir: %w", err)
			}
			f, err := os.Create(path)
			if err != nil {
				return fmt.Errorf("creating export: %w", err)
			}
			defer f.Close()

			if err := ledger.WriteEntries(f, entries); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d journal lines to %s\n", len(entries), path)
			return nil
		},
	}

	cmd.Flags().StringVar(&outPath, "out", "", "output file (default exports/journal.csv)")

	return cmd
}
