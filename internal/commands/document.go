package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/ledgerflow/internal/model"
)

func newDocumentCommand(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "document",
		Short: "Manage invoices and bills awaiting payment",
	}
	cmd.AddCommand(newDocumentAddCommand(g), newDocumentListCommand(g))
	return cmd
}

func parseKind(s string) (model.DocumentKind, error) {
	switch model.DocumentKind(s) {
	case model.KindInvoice, model.KindBill:
		return model.DocumentKind(s), nil
	}
	return "", fmt.Errorf("unknown document kind %q (want invoice or bill)", s)
}

func newDocumentAddCommand(g *globalFlags) *cobra.Command {
	var kind, number, counterparty, amount, paid, due string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record an invoice (money owed to you) or a bill (money you owe)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := parseKind(kind)
			if err != nil {
				return err
			}
			total, err := parseAmount(amount)
			if err != nil {
				return err
			}
			if !total.IsPositive() {
				return fmt.Errorf("amount must be positive, got %s", total)
			}
			d := model.Document{Kind: k, Number: number, CounterpartyName: counterparty, TotalAmount: total}
			if paid != "" {
				if d.PaidAmount, err = parseAmount(paid); err != nil {
					return err
				}
			}
			if due != "" {
				if d.DueDate, err = parseDate(due); err != nil {
					return err
				}
			}

			rt, err := openRuntime(cmd.Context(), g, false)
			if err != nil {
				return err
			}
			defer rt.close()

			d.CompanyID = rt.companyID()
			if err := rt.store.CreateDocument(cmd.Context(), &d); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %s %s (%s), balance %s\n", d.Kind, d.Number, d.ID, d.BalanceAmount.StringFixed(2))
			return nil
		},
	}

	cmd.Flags().StringVar(&kind, "kind", "invoice", "invoice or bill")
	cmd.Flags().StringVar(&number, "number", "", "document number (required)")
	_ = cmd.MarkFlagRequired("number")
	cmd.Flags().StringVar(&counterparty, "counterparty", "", "customer or vendor name")
	cmd.Flags().StringVar(&amount, "amount", "", "total amount (required)")
	_ = cmd.MarkFlagRequired("amount")
	cmd.Flags().StringVar(&paid, "paid", "", "amount already paid")
	cmd.Flags().StringVar(&due, "due", "", "due date, YYYY-MM-DD")

	return cmd
}

func newDocumentListCommand(g *globalFlags) *cobra.Command {
	var kind string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List open invoices or bills",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := parseKind(kind)
			if err != nil {
				return err
			}
			rt, err := openRuntime(cmd.Context(), g, true)
			if err != nil {
				return err
			}
			defer rt.close()

			docs, err := rt.store.OpenDocuments(cmd.Context(), rt.companyID(), k)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NUMBER\tCOUNTERPARTY\tDUE\tTOTAL\tBALANCE\tSTATUS")
			for _, d := range docs {
				dueDate := "-"
				if !d.DueDate.IsZero() {
					dueDate = d.DueDate.Format(dateLayout)
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", d.Number, d.CounterpartyName, dueDate,
					d.TotalAmount.StringFixed(2), d.BalanceAmount.StringFixed(2), d.Status)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringVar(&kind, "kind", "invoice", "invoice or bill")

	return cmd
}

func newVendorCommand(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vendor",
		Short: "Manage known vendors and their default categories",
	}

	var category string
	add := &cobra.Command{
		Use:   "add <name>",
		Short: "Record a vendor",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := openRuntime(cmd.Context(), g, false)
			if err != nil {
				return err
			}
			defer rt.close()

			if category != "" {
				if _, ok := rt.cfg.Vocab().Category(category); !ok {
					return fmt.Errorf("unknown category %q", category)
				}
			}

			v := model.Vendor{CompanyID: rt.companyID(), Name: args[0], DefaultCategory: category}
			if err := rt.store.CreateVendor(cmd.Context(), &v); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added vendor %s\n", v.Name)
			return nil
		},
	}
	add.Flags().StringVar(&category, "category", "", "default category for this vendor's transactions")

	list := &cobra.Command{
		Use:   "list",
		Short: "List known vendors",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := openRuntime(cmd.Context(), g, true)
			if err != nil {
				return err
			}
			defer rt.close()

			vendors, err := rt.store.Vendors(cmd.Context(), rt.companyID())
			if err != nil {
				return err
			}
			for _, v := range vendors {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", v.Name, v.DefaultCategory)
			}
			return nil
		},
	}

	cmd.AddCommand(add, list)
	return cmd
}
