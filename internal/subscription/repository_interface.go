package subscription

import (
	"context"
	"time"
)

type Repository interface {
	Activate(ctx context.Context, in NewSubscription) (*Record, error)
	FindByPaymentID(ctx context.Context, paymentID string) (*Subscription, error)
	ListByUser(ctx context.Context, userID int) ([]Subscription, error)
	List(ctx context.Context, f ListFilter) ([]Subscription, int, error)
	Stats(ctx context.Context, now time.Time) (*Stats, error)
	Cancel(ctx context.Context, paymentID string) (*Subscription, error)
	ExpireDue(ctx context.Context, now time.Time) (int64, error)
	RebuildSnapshots(ctx context.Context) (int64, error)
}
