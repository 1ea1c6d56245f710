package subscription

import (
	"context"
	"errors"
	"fmt"
	"time"

	"flatup/internal/logger"
	"flatup/internal/metrics"
	"flatup/internal/plan"
	"flatup/internal/user"
)

type SignatureVerifier interface {
	Verify(orderID, paymentID, signature string) bool
}

type UserFinder interface {
	FindByID(ctx context.Context, id int) (*user.User, error)
}

// Ledger owns the payment-confirmed subscription lifecycle.
type Ledger struct {
	repo     Repository
	users    UserFinder
	verifier SignatureVerifier
	notifier *Notifier
	now      func() time.Time
}

func NewLedger(repo Repository, users UserFinder, verifier SignatureVerifier, notifier *Notifier) *Ledger {
	return &Ledger{
		repo:     repo,
		users:    users,
		verifier: verifier,
		notifier: notifier,
		now:      time.Now,
	}
}

// Activate turns a client-reported payment into an active subscription.
// The signature and plan are checked before any storage access. Replaying a
// payment already recorded for the same user returns the stored subscription.
func (l *Ledger) Activate(ctx context.Context, in ActivateInput) (*Activation, error) {
	valid := l.verifier.Verify(in.OrderID, in.PaymentID, in.Signature)
	metrics.RecordVerification(valid)
	if !valid {
		logger.Warn("payment signature rejected",
			"user_id", in.UserID,
			"order_id", in.OrderID,
			"payment_id", in.PaymentID,
		)
		return nil, ErrInvalidSignature
	}

	p, err := plan.Lookup(in.PlanID)
	if err != nil {
		return nil, err
	}

	rec, err := l.repo.Activate(ctx, NewSubscription{
		UserID:    in.UserID,
		Plan:      p,
		OrderID:   in.OrderID,
		PaymentID: in.PaymentID,
		Signature: in.Signature,
	})

	var dup *DuplicatePaymentError
	switch {
	case errors.As(err, &dup):
		if dup.Existing.UserID != in.UserID {
			logger.Warn("payment id reused across accounts",
				"user_id", in.UserID,
				"owner_id", dup.Existing.UserID,
				"payment_id", in.PaymentID,
			)
			return nil, ErrPaymentConflict
		}
		metrics.RecordDuplicatePayment()
		logger.Info("payment replayed",
			"user_id", in.UserID,
			"payment_id", in.PaymentID,
			"subscription_id", dup.Existing.ID,
		)
		return &Activation{Subscription: dup.Existing.View(l.now()), Replayed: true}, nil
	case errors.Is(err, user.ErrUserNotFound):
		return nil, err
	case err != nil:
		logger.Error("subscription activation failed",
			"user_id", in.UserID,
			"plan", p.ID,
			"payment_id", in.PaymentID,
			"error", err,
		)
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	sub := rec.Subscription
	metrics.RecordSubscription(string(p.ID))
	logger.Info("subscription activated",
		"user_id", in.UserID,
		"plan", p.ID,
		"order_id", in.OrderID,
		"payment_id", in.PaymentID,
		"end_date", sub.EndDate,
	)

	l.notifier.Notify(ctx, rec.Recipient, p, sub.Amount)

	return &Activation{Subscription: sub.View(l.now())}, nil
}

// Status reports the account's subscription with expiry applied lazily.
func (l *Ledger) Status(ctx context.Context, userID int) (*AccountStatus, error) {
	u, err := l.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	snap := u.Snapshot
	st := &AccountStatus{
		UserID:    u.ID,
		Role:      u.Role,
		Active:    snap.IsActive(l.now()),
		Plan:      snap.Plan,
		Status:    snap.Status,
		StartDate: snap.StartDate,
		EndDate:   snap.EndDate,
	}
	if snap.Status != nil && *snap.Status == string(StatusActive) && !st.Active {
		expired := string(StatusExpired)
		st.Status = &expired
	}
	return st, nil
}

func (l *Ledger) History(ctx context.Context, userID int) ([]View, error) {
	subs, err := l.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := l.now()
	views := make([]View, 0, len(subs))
	for _, s := range subs {
		views = append(views, s.View(now))
	}
	return views, nil
}

func (l *Ledger) List(ctx context.Context, f ListFilter) (*ListResult, error) {
	if f.Limit <= 0 || f.Limit > 200 {
		f.Limit = 50
	}
	if f.Offset < 0 {
		f.Offset = 0
	}

	subs, total, err := l.repo.List(ctx, f)
	if err != nil {
		return nil, err
	}
	return &ListResult{Subscriptions: subs, Total: total, Limit: f.Limit, Offset: f.Offset}, nil
}

func (l *Ledger) Stats(ctx context.Context) (*Stats, error) {
	return l.repo.Stats(ctx, l.now())
}

// ByPayment returns the subscription bought with a provider payment id.
func (l *Ledger) ByPayment(ctx context.Context, paymentID string) (*Subscription, error) {
	return l.repo.FindByPaymentID(ctx, paymentID)
}

// Cancel marks an active subscription cancelled after a refund or chargeback
// and rebuilds the owner's snapshot from the ledger.
func (l *Ledger) Cancel(ctx context.Context, paymentID string) (*Subscription, error) {
	sub, err := l.repo.Cancel(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	logger.Info("subscription cancelled",
		"user_id", sub.UserID,
		"plan", sub.Plan,
		"payment_id", sub.PaymentID,
	)
	return sub, nil
}
