package audit

import (
	"fmt"

	"nathanbeddoewebdev/nodeprov/internal/auditlog"
	"nathanbeddoewebdev/nodeprov/internal/config"

	"github.com/spf13/cobra"
)

// NewCommand returns the "audit" parent command.
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "View and manage provisioning history",
		Long: "View the recorded provisioning actions and prune old entries.\n\n" +
			"History is stored in the SQLite database named by the history-db\n" +
			"setting (default " + config.DefaultHistoryDB + "). The append-only\n" +
			"log file remains the authoritative record.",
		SilenceUsage: true,
	}

	cmd.AddCommand(ListCommand())
	cmd.AddCommand(PruneCommand())

	return cmd
}

// openRepo opens the history database named by the tool settings.
func openRepo() (*auditlog.SQLiteRepository, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return auditlog.OpenAt(cfg.Resolved().HistoryDB)
}
