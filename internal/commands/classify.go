package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/ledgerflow/internal/classifier"
	"github.com/cleared-dev/ledgerflow/internal/model"
)

func newClassifyCommand(g *globalFlags) *cobra.Command {
	var amount, day, direction string

	cmd := &cobra.Command{
		Use:   "classify <description>",
		Short: "Classify a single bank transaction without booking it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			amt, err := parseAmount(amount)
			if err != nil {
				return err
			}
			d, err := parseDate(day)
			if err != nil {
				return err
			}
			dir, err := model.ParseDirection(direction)
			if err != nil {
				return err
			}

			rt, err := openRuntime(cmd.Context(), g, true)
			if err != nil {
				return err
			}
			defer rt.close()

			res, err := rt.classifier.Classify(cmd.Context(), classifier.Input{
				CompanyID:   rt.companyID(),
				Date:        d,
				Description: args[0],
				Amount:      amt,
				Direction:   dir,
			})
			if err != nil {
				return err
			}
			printClassification(cmd.OutOrStdout(), res, rt.cfg.Vocab().AccountFor(res.Category, dir))
			return nil
		},
	}

	cmd.Flags().StringVar(&amount, "amount", "", "transaction amount (required)")
	_ = cmd.MarkFlagRequired("amount")
	cmd.Flags().StringVar(&day, "date", "", "transaction date, YYYY-MM-DD (default today)")
	cmd.Flags().StringVar(&direction, "type", "debit", "debit (money out) or credit (money in)")

	return cmd
}

func printClassification(w io.Writer, res model.ClassificationResult, account string) {
	review := "no"
	if res.NeedsReview {
		review = "yes"
	}
	fmt.Fprintf(w, "Category:     %s\n", res.Category)
	fmt.Fprintf(w, "Account:      %s\n", account)
	fmt.Fprintf(w, "Type:         %s\n", res.Type)
	fmt.Fprintf(w, "Confidence:   %d (%s)\n", res.Confidence, res.Strategy)
	if res.CounterpartyName != "" {
		fmt.Fprintf(w, "Counterparty: %s\n", res.CounterpartyName)
	}
	if res.IsRecurring() {
		fmt.Fprintf(w, "Recurring:    %s\n", res.Frequency)
	}
	if res.DocumentID != "" {
		fmt.Fprintf(w, "Document:     %s\n", res.DocumentID)
	}
	fmt.Fprintf(w, "Needs review: %s\n", review)
	if len(res.Reasoning) > 0 {
		fmt.Fprintf(w, "Reasoning:\n  %s\n", strings.Join(res.Reasoning, "\n  "))
	}
}
