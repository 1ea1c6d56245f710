package integration_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"flatup/internal/auth"
	"flatup/internal/plan"
	"flatup/internal/subscription"
	"flatup/internal/user"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustPlan(t *testing.T, id plan.ID) plan.Plan {
	p, err := plan.Lookup(string(id))
	require.NoError(t, err)
	return p
}

func TestActivate_Integration(t *testing.T) {
	database := setupTestDB(t)
	ctx := context.Background()

	u := createTestUser(t, database, "owner@test.com", auth.RoleOwner)
	repo := subscription.NewRepository(database)

	rec, err := repo.Activate(ctx, subscription.NewSubscription{
		UserID:    u.ID,
		Plan:      mustPlan(t, plan.Broker),
		OrderID:   "order_1",
		PaymentID: "pay_1",
		Signature: "sig",
	})
	require.NoError(t, err)

	sub := rec.Subscription
	assert.Equal(t, subscription.StatusActive, sub.Status)
	assert.Equal(t, int64(100000), sub.Amount)
	assert.True(t, sub.EndDate.After(sub.StartDate))
	assert.Equal(t, "owner@test.com", rec.Recipient.Email)

	stored, err := user.NewRepository(database).FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, auth.RoleBroker, stored.Role)
	require.NotNil(t, stored.PaymentID)
	assert.Equal(t, "pay_1", *stored.PaymentID)
	assert.True(t, stored.Snapshot.IsActive(time.Now()))
}

func TestActivate_DuplicatePayment_Integration(t *testing.T) {
	database := setupTestDB(t)
	ctx := context.Background()

	u := createTestUser(t, database, "dup@test.com", auth.RoleOwner)
	repo := subscription.NewRepository(database)
	in := subscription.NewSubscription{
		UserID:    u.ID,
		Plan:      mustPlan(t, plan.Owner),
		OrderID:   "order_dup",
		PaymentID: "pay_dup",
		Signature: "sig",
	}

	first, err := repo.Activate(ctx, in)
	require.NoError(t, err)

	_, err = repo.Activate(ctx, in)
	var dup *subscription.DuplicatePaymentError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, first.Subscription.ID, dup.Existing.ID)

	subs, err := repo.ListByUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Len(t, subs, 1)
}

func TestActivate_ConcurrentSamePayment_Integration(t *testing.T) {
	database := setupTestDB(t)
	ctx := context.Background()

	u := createTestUser(t, database, "race@test.com", auth.RoleOwner)
	repo := subscription.NewRepository(database)
	in := subscription.NewSubscription{
		UserID:    u.ID,
		Plan:      mustPlan(t, plan.RoomSharer),
		OrderID:   "order_race",
		PaymentID: "pay_race",
		Signature: "sig",
	}

	const workers = 10
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		created   int
		duplicate int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.Activate(ctx, in)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				created++
			case errors.Is(err, subscription.ErrDuplicatePayment):
				duplicate++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, created)
	assert.Equal(t, workers-1, duplicate)

	var count int
	require.NoError(t, database.Get(&count, `SELECT COUNT(*) FROM subscriptions WHERE payment_id = $1`, "pay_race"))
	assert.Equal(t, 1, count)
}

func TestExpireAndRebuild_Integration(t *testing.T) {
	database := setupTestDB(t)
	ctx := context.Background()

	u := createTestUser(t, database, "lapse@test.com", auth.RoleOwner)
	repo := subscription.NewRepository(database)

	_, err := repo.Activate(ctx, subscription.NewSubscription{
		UserID:    u.ID,
		Plan:      mustPlan(t, plan.Owner),
		OrderID:   "order_lapse",
		PaymentID: "pay_lapse",
		Signature: "sig",
	})
	require.NoError(t, err)

	expired, err := repo.ExpireDue(ctx, time.Now().AddDate(0, 2, 0))
	require.NoError(t, err)
	assert.Equal(t, int64(1), expired)

	stored, err := user.NewRepository(database).FindByID(ctx, u.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.Status)
	assert.Equal(t, string(subscription.StatusExpired), *stored.Status)

	// snapshot already agrees with the ledger
	rebuilt, err := repo.RebuildSnapshots(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), rebuilt)
}

func TestCancel_Integration(t *testing.T) {
	database := setupTestDB(t)
	ctx := context.Background()

	u := createTestUser(t, database, "refund@test.com", auth.RoleOwner)
	repo := subscription.NewRepository(database)

	_, err := repo.Activate(ctx, subscription.NewSubscription{
		UserID:    u.ID,
		Plan:      mustPlan(t, plan.Broker),
		OrderID:   "order_refund",
		PaymentID: "pay_refund",
		Signature: "sig",
	})
	require.NoError(t, err)

	sub, err := repo.Cancel(ctx, "pay_refund")
	require.NoError(t, err)
	assert.Equal(t, subscription.StatusCancelled, sub.Status)
	assert.NotNil(t, sub.CancelledAt)

	_, err = repo.Cancel(ctx, "pay_refund")
	assert.ErrorIs(t, err, subscription.ErrNotActive)

	stored, err := user.NewRepository(database).FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.False(t, stored.Snapshot.IsActive(time.Now()))
}
