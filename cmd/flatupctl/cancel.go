package main

import (
	"errors"
	"fmt"

	"flatup/internal/payment"
	"flatup/internal/subscription"
	"flatup/internal/user"

	"github.com/spf13/cobra"
)

func newCancelCmd() *cobra.Command {
	var (
		paymentID string
		dryRun    bool
	)

	cmd := &cobra.Command{
		Use:   "cancel",
		Short: "Cancel the subscription bought with a payment",
		Long: `Cancel an active subscription after a refund or chargeback.

Examples:
  flatupctl cancel --payment-id pay_NZ3bE1x7cT
  flatupctl cancel --payment-id pay_NZ3bE1x7cT --dry-run`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, database, err := openDatabase()
			if err != nil {
				return err
			}
			defer database.Close()

			ledger := subscription.NewLedger(
				subscription.NewRepository(database),
				user.NewRepository(database),
				payment.NewVerifier(cfg.Payment.KeySecret),
				nil,
			)

			found, err := ledger.ByPayment(cmd.Context(), paymentID)
			if errors.Is(err, subscription.ErrNotFound) {
				return fmt.Errorf("no subscription for payment %s", paymentID)
			}
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Subscription %d (user %d, plan %s, %s, %s to %s)\n",
				found.ID, found.UserID, found.Plan, found.Status,
				found.StartDate.Format("2006-01-02"), found.EndDate.Format("2006-01-02"))
			if dryRun {
				return nil
			}

			sub, err := ledger.Cancel(cmd.Context(), paymentID)
			switch {
			case errors.Is(err, subscription.ErrNotFound):
				return fmt.Errorf("no subscription for payment %s", paymentID)
			case errors.Is(err, subscription.ErrNotActive):
				return fmt.Errorf("subscription for payment %s is not active", paymentID)
			case err != nil:
				return err
			}

			fmt.Fprintf(out, "Cancelled subscription %d (user %d, plan %s)\n", sub.ID, sub.UserID, sub.Plan)
			return nil
		},
	}

	cmd.Flags().StringVar(&paymentID, "payment-id", "", "provider payment id of the subscription")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "show the subscription without cancelling it")
	_ = cmd.MarkFlagRequired("payment-id")
	return cmd
}
