package main

import (
	"fmt"

	"flatup/internal/config"
	"flatup/internal/db"
	"flatup/internal/logger"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "flatupctl",
		Short: "Operator commands for FlatUp",
		Long: `flatupctl runs maintenance tasks against the FlatUp database:
schema migrations, subscription reconciliation and payment reversals.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger.L().Info("command start", "command", cmd.CommandPath())
		},
	}

	root.AddCommand(newMigrateCmd())
	root.AddCommand(newReconcileCmd())
	root.AddCommand(newCancelCmd())
	return root
}

func openDatabase() (*config.Config, *sqlx.DB, error) {
	cfg, err := config.LoadUnvalidated()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	database, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	return cfg, database, nil
}
