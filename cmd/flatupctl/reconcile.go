package main

import (
	"errors"
	"fmt"

	"flatup/internal/db"
	"flatup/internal/subscription"

	"github.com/spf13/cobra"
)

func newReconcileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "Expire lapsed subscriptions and rebuild account snapshots",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, database, err := openDatabase()
			if err != nil {
				return err
			}
			defer database.Close()

			rdb, err := db.ConnectRedis(cmd.Context(), cfg.RedisAddr)
			if err != nil {
				return err
			}
			defer rdb.Close()

			reconciler := subscription.NewReconciler(subscription.NewRepository(database), rdb, cfg.ReconcileInterval)
			res, err := reconciler.RunOnce(cmd.Context())
			if errors.Is(err, subscription.ErrReconcileInProgress) {
				return fmt.Errorf("another reconciliation is running, try again later")
			}
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Expired %d subscription(s), rebuilt %d snapshot(s)\n", res.Expired, res.Rebuilt)
			return nil
		},
	}
}
