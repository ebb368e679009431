package commands

import (
	"github.com/spf13/cobra"

	"github.com/cleared-dev/ledgerflow/internal/buildinfo"
)

// globalFlags are shared by every command that opens a project.
type globalFlags struct {
	repo     string
	logLevel string
}

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	var g globalFlags

	rootCmd := &cobra.Command{
		Use:     "ledgerflow",
		Short:   "Bank statement classification, reconciliation and double-entry posting",
		Version: buildinfo.String(),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&g.repo, "repo", ".", "project directory")
	rootCmd.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "log level (debug, info, warn, error); overrides the config")

	rootCmd.AddCommand(
		newInitCommand(),
		newClassifyCommand(&g),
		newIngestCommand(&g),
		newReconcileCommand(&g),
		newPostCommand(&g),
		newAccountsCommand(&g),
		newDocumentCommand(&g),
		newVendorCommand(&g),
		newExportCommand(&g),
	)

	return rootCmd
}
