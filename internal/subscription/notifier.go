package subscription

import (
	"context"
	"time"

	"flatup/internal/logger"
	"flatup/internal/metrics"
	"flatup/internal/plan"
)

type Mailer interface {
	SendSubscriptionConfirmation(ctx context.Context, to, name, planName string, amountPaise int64) error
}

// Notifier tells an account holder about an activation. It never fails the caller.
type Notifier struct {
	mailer  Mailer
	timeout time.Duration
}

func NewNotifier(mailer Mailer) *Notifier {
	return &Notifier{mailer: mailer, timeout: 5 * time.Second}
}

func (n *Notifier) Notify(ctx context.Context, to Recipient, p plan.Plan, amount int64) {
	if n == nil || n.mailer == nil {
		return
	}
	if to.Email == "" {
		logger.Warn("activation notice skipped, no email on account", "plan", p.ID)
		metrics.RecordNotification("skipped")
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), n.timeout)
	defer cancel()

	if err := n.mailer.SendSubscriptionConfirmation(ctx, to.Email, to.Name, p.Name, amount); err != nil {
		logger.Error("activation notice failed", "plan", p.ID, "error", err)
		metrics.RecordNotification("failed")
		return
	}
	metrics.RecordNotification("queued")
}
