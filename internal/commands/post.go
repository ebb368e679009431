package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/ledgerflow/internal/ledger"
)

func newPostCommand(g *globalFlags) *cobra.Command {
	var day, description string
	var debits, credits []string

	cmd := &cobra.Command{
		Use:   "post",
		Short: "Post a manual journal entry",
		Example: "  ledgerflow post --date 2024-06-30 --description \"Owner contribution\" \\\n" +
			"    --debit 1010=50000 --credit 3010=50000",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := parseDate(day)
			if err != nil {
				return err
			}
			dr, err := parseLegs(debits, true)
			if err != nil {
				return err
			}
			cr, err := parseLegs(credits, false)
			if err != nil {
				return err
			}

			rt, err := openRuntime(cmd.Context(), g, false)
			if err != nil {
				return err
			}
			defer rt.close()

			entries, err := rt.poster.Post(cmd.Context(), ledger.PostRequest{
				CompanyID:   rt.companyID(),
				Date:        d,
				Description: description,
				Lines:       append(dr, cr...),
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Posted %s\n", entries[0].EntryGroup())
			for _, e := range entries {
				a, _ := rt.chart.Get(e.AccountCode)
				fmt.Fprintf(out, "  %-14s %-6s %-28s %12s %12s\n", e.ID, e.AccountCode, a.Name, e.Debit.StringFixed(2), e.Credit.StringFixed(2))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&day, "date", "", "entry date, YYYY-MM-DD (default today)")
	cmd.Flags().StringVar(&description, "description", "", "entry description")
	cmd.Flags().StringArrayVar(&debits, "debit", nil, "debit line as CODE=AMOUNT (repeatable)")
	cmd.Flags().StringArrayVar(&credits, "credit", nil, "credit line as CODE=AMOUNT (repeatable)")

	return cmd
}
