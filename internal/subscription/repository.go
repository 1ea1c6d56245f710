package subscription

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"flatup/internal/auth"
	"flatup/internal/user"

	"github.com/jmoiron/sqlx"
)

const columns = `id, user_id, plan, amount, currency, status, order_id, payment_id, signature,
		start_date, end_date, auto_renew, cancelled_at, created_at, updated_at`

// The snapshot mirrors the most recently started subscription of each user.
const rebuildSnapshotsQuery = `
		UPDATE users u
		SET sub_plan = s.plan,
		    sub_status = s.status,
		    sub_start_date = s.start_date,
		    sub_end_date = s.end_date,
		    sub_payment_id = s.payment_id,
		    updated_at = NOW()
		FROM (
			SELECT DISTINCT ON (user_id) user_id, plan, status, start_date, end_date, payment_id
			FROM subscriptions
			ORDER BY user_id, start_date DESC, id DESC
		) s
		WHERE u.id = s.user_id
		  AND (u.sub_payment_id IS DISTINCT FROM s.payment_id
		       OR u.sub_status IS DISTINCT FROM s.status
		       OR u.sub_end_date IS DISTINCT FROM s.end_date)`

type repository struct {
	db  *sqlx.DB
	now func() time.Time
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db, now: time.Now}
}

type lockedAccount struct {
	ID    int    `db:"id"`
	Name  string `db:"name"`
	Email string `db:"email"`
	Role  string `db:"role"`
}

// Activate records the payment and applies it to the user in one transaction.
// The user row is locked first so concurrent activations for one account
// commit, and write the snapshot, in a single order.
func (r *repository) Activate(ctx context.Context, in NewSubscription) (*Record, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var acc lockedAccount
	err = tx.QueryRowxContext(ctx,
		`SELECT id, name, email, role FROM users WHERE id = $1 FOR UPDATE`,
		in.UserID,
	).StructScan(&acc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, user.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lock user: %w", err)
	}

	existing, err := findByPaymentID(ctx, tx, in.PaymentID)
	if err == nil {
		return nil, &DuplicatePaymentError{Existing: existing}
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	start := r.now().UTC()
	end := AddMonth(start)

	var sub Subscription
	err = tx.QueryRowxContext(ctx,
		`INSERT INTO subscriptions (user_id, plan, amount, currency, status, order_id, payment_id, signature, start_date, end_date)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 ON CONFLICT (payment_id) DO NOTHING
		 RETURNING `+columns,
		in.UserID, in.Plan.ID, in.Plan.Amount, in.Plan.Currency, StatusActive,
		in.OrderID, in.PaymentID, in.Signature, start, end,
	).StructScan(&sub)
	if errors.Is(err, sql.ErrNoRows) {
		// a concurrent request for another user committed the same payment id
		existing, ferr := findByPaymentID(ctx, tx, in.PaymentID)
		if ferr != nil {
			return nil, fmt.Errorf("re-read conflicting payment: %w", ferr)
		}
		return nil, &DuplicatePaymentError{Existing: existing}
	}
	if err != nil {
		return nil, fmt.Errorf("insert subscription: %w", err)
	}

	role := auth.RoleAfterPurchase(acc.Role, string(in.Plan.ID))

	_, err = tx.ExecContext(ctx,
		`UPDATE users
		 SET role = $1, sub_plan = $2, sub_status = $3, sub_start_date = $4, sub_end_date = $5, sub_payment_id = $6, updated_at = NOW()
		 WHERE id = $7`,
		role, sub.Plan, sub.Status, sub.StartDate, sub.EndDate, sub.PaymentID, acc.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("update user snapshot: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit activation: %w", err)
	}

	return &Record{
		Subscription: sub,
		Recipient:    Recipient{Email: acc.Email, Name: acc.Name},
	}, nil
}

func findByPaymentID(ctx context.Context, q sqlx.QueryerContext, paymentID string) (*Subscription, error) {
	var sub Subscription
	err := sqlx.GetContext(ctx, q, &sub,
		`SELECT `+columns+` FROM subscriptions WHERE payment_id = $1`,
		paymentID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *repository) FindByPaymentID(ctx context.Context, paymentID string) (*Subscription, error) {
	return findByPaymentID(ctx, r.db, paymentID)
}

func (r *repository) ListByUser(ctx context.Context, userID int) ([]Subscription, error) {
	subs := []Subscription{}
	err := r.db.SelectContext(ctx, &subs,
		`SELECT `+columns+` FROM subscriptions WHERE user_id = $1 ORDER BY start_date DESC, id DESC`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	return subs, nil
}

func (r *repository) List(ctx context.Context, f ListFilter) ([]Subscription, int, error) {
	var (
		where []string
		args  []interface{}
	)
	if f.Status != "" {
		args = append(args, f.Status)
		where = append(where, "status = $"+strconv.Itoa(len(args)))
	}
	if f.Plan != "" {
		args = append(args, f.Plan)
		where = append(where, "plan = $"+strconv.Itoa(len(args)))
	}

	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM subscriptions`+clause, args...); err != nil {
		return nil, 0, err
	}

	args = append(args, f.Limit, f.Offset)
	query := `SELECT ` + columns + ` FROM subscriptions` + clause +
		` ORDER BY created_at DESC, id DESC LIMIT $` + strconv.Itoa(len(args)-1) + ` OFFSET $` + strconv.Itoa(len(args))

	subs := []Subscription{}
	if err := r.db.SelectContext(ctx, &subs, query, args...); err != nil {
		return nil, 0, err
	}
	return subs, total, nil
}

func (r *repository) Stats(ctx context.Context, now time.Time) (*Stats, error) {
	stats := &Stats{
		Counts:       []PlanStatusCount{},
		ActiveByPlan: map[string]int{},
	}

	err := r.db.SelectContext(ctx, &stats.Counts,
		`SELECT plan, status, COUNT(*) AS count FROM subscriptions GROUP BY plan, status ORDER BY plan, status`)
	if err != nil {
		return nil, fmt.Errorf("count subscriptions: %w", err)
	}

	var active []struct {
		Plan    string `db:"plan"`
		Count   int    `db:"count"`
		Revenue int64  `db:"revenue"`
	}
	err = r.db.SelectContext(ctx, &active,
		`SELECT plan, COUNT(*) AS count, COALESCE(SUM(amount), 0) AS revenue
		 FROM subscriptions
		 WHERE status = 'active' AND end_date > $1
		 GROUP BY plan`,
		now,
	)
	if err != nil {
		return nil, fmt.Errorf("count active subscriptions: %w", err)
	}
	for _, a := range active {
		stats.ActiveByPlan[a.Plan] = a.Count
		stats.ActiveRevenue += a.Revenue
	}

	err = r.db.GetContext(ctx, &stats.ExpiringSoon,
		`SELECT COUNT(*) FROM subscriptions WHERE status = 'active' AND end_date > $1 AND end_date <= $2`,
		now, now.Add(7*24*time.Hour),
	)
	if err != nil {
		return nil, fmt.Errorf("count expiring subscriptions: %w", err)
	}

	return stats, nil
}

// Cancel is the refund/chargeback hook. The user's role is left as is.
func (r *repository) Cancel(ctx context.Context, paymentID string) (*Subscription, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var sub Subscription
	err = tx.QueryRowxContext(ctx,
		`SELECT `+columns+` FROM subscriptions WHERE payment_id = $1 FOR UPDATE`,
		paymentID,
	).StructScan(&sub)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if sub.Status != StatusActive {
		return nil, ErrNotActive
	}

	err = tx.QueryRowxContext(ctx,
		`UPDATE subscriptions
		 SET status = $1, cancelled_at = $2, updated_at = NOW()
		 WHERE id = $3
		 RETURNING `+columns,
		StatusCancelled, r.now().UTC(), sub.ID,
	).StructScan(&sub)
	if err != nil {
		return nil, fmt.Errorf("cancel subscription: %w", err)
	}

	if _, err := tx.ExecContext(ctx, rebuildSnapshotsQuery+` AND u.id = $1`, sub.UserID); err != nil {
		return nil, fmt.Errorf("rebuild snapshot: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &sub, nil
}

// ExpireDue marks lapsed active rows expired and flips matching snapshots.
func (r *repository) ExpireDue(ctx context.Context, now time.Time) (int64, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE subscriptions SET status = 'expired', updated_at = NOW() WHERE status = 'active' AND end_date <= $1`,
		now,
	)
	if err != nil {
		return 0, fmt.Errorf("expire subscriptions: %w", err)
	}
	expired, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE users SET sub_status = 'expired', updated_at = NOW() WHERE sub_status = 'active' AND sub_end_date <= $1`,
		now,
	)
	if err != nil {
		return 0, fmt.Errorf("expire snapshots: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return expired, nil
}

// RebuildSnapshots recomputes every drifted user snapshot from the ledger.
func (r *repository) RebuildSnapshots(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, rebuildSnapshotsQuery)
	if err != nil {
		return 0, fmt.Errorf("rebuild snapshots: %w", err)
	}
	return res.RowsAffected()
}
