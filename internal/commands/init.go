package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/cleared-dev/ledgerflow/internal/accounts"
	"github.com/cleared-dev/ledgerflow/internal/config"
	"github.com/cleared-dev/ledgerflow/internal/store"
)

func newInitCommand() *cobra.Command {
	var name string
	var entityType string
	var companyID string

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Initialize a new ledgerflow project",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}

			absDir, err := filepath.Abs(dir)
			if err != nil {
				return fmt.Errorf("resolving path: %w", err)
			}

			return runInit(cmd.Context(), cmd.OutOrStdout(), absDir, name, entityType, companyID)
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "business name (required)")
	_ = cmd.MarkFlagRequired("name")
	cmd.Flags().StringVar(&entityType, "entity-type", "proprietorship", "entity type")
	cmd.Flags().StringVar(&companyID, "company", "default", "company identifier used in the database")

	return cmd
}

func runInit(ctx context.Context, out io.Writer, dir, name, entityType, companyID string) error {
	dirs := []string{
		"accounts",
		"logs",
		"exports",
		"import",
		filepath.Join("import", "processed"),
	}
	for _, d := range dirs {
		if err := os.MkdirAll(filepath.Join(dir, d), 0o755); err != nil {
			return fmt.Errorf("creating directory %s: %w", d, err)
		}
	}

	cfg := config.Default(name, entityType)
	cfg.Business.CompanyID = companyID
	if err := config.Save(filepath.Join(dir, config.FileName), cfg); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	chart := accounts.DefaultChart(entityType)
	if err := accounts.NewService(chart).Save(dir); err != nil {
		return fmt.Errorf("writing chart of accounts: %w", err)
	}

	gitignore := cfg.Storage.Path + "\nexports/\n.env\n"
	if err := os.WriteFile(filepath.Join(dir, ".gitignore"), []byte(gitignore), 0o644); err != nil {
		return fmt.Errorf("writing .gitignore: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "import", ".gitkeep"), []byte{}, 0o644); err != nil {
		return fmt.Errorf("writing .gitkeep: %w", err)
	}

	st, err := store.Open(cfg.DatabasePath(dir), zerolog.Nop())
	if err != nil {
		return err
	}
	defer st.Close()
	n, err := st.SeedAccounts(ctx, companyID, chart)
	if err != nil {
		return fmt.Errorf("seeding accounts: %w", err)
	}

	fmt.Fprintf(out, "Initialized ledgerflow project at %s (%d accounts)\n", dir, n)
	return nil
}
