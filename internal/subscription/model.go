package subscription

import (
	"time"

	"flatup/internal/plan"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusActive    Status = "active"
	StatusExpired   Status = "expired"
	StatusCancelled Status = "cancelled"
)

// Subscription is one ledger row: a single payment buying one month of a plan.
type Subscription struct {
	ID          int        `db:"id" json:"id"`
	UserID      int        `db:"user_id" json:"user_id"`
	Plan        plan.ID    `db:"plan" json:"plan"`
	Amount      int64      `db:"amount" json:"amount"`
	Currency    string     `db:"currency" json:"currency"`
	Status      Status     `db:"status" json:"status"`
	OrderID     string     `db:"order_id" json:"order_id"`
	PaymentID   string     `db:"payment_id" json:"payment_id"`
	Signature   string     `db:"signature" json:"-"`
	StartDate   time.Time  `db:"start_date" json:"start_date"`
	EndDate     time.Time  `db:"end_date" json:"end_date"`
	AutoRenew   bool       `db:"auto_renew" json:"auto_renew"`
	CancelledAt *time.Time `db:"cancelled_at" json:"cancelled_at,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}

// EffectiveStatus applies lazy expiry to a stored status.
func (s Subscription) EffectiveStatus(now time.Time) Status {
	if s.Status == StatusActive && !s.EndDate.After(now) {
		return StatusExpired
	}
	return s.Status
}

// View is the public shape of a subscription returned to the account holder.
type View struct {
	ID        int       `json:"id"`
	Plan      plan.ID   `json:"plan"`
	Status    Status    `json:"status"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
}

func (s Subscription) View(now time.Time) View {
	return View{
		ID:        s.ID,
		Plan:      s.Plan,
		Status:    s.EffectiveStatus(now),
		StartDate: s.StartDate,
		EndDate:   s.EndDate,
	}
}

type ActivateInput struct {
	UserID    int
	PlanID    string
	OrderID   string
	PaymentID string
	Signature string
}

type VerifyRequest struct {
	OrderID   string `json:"razorpay_order_id" validate:"required" example:"order_NZ3b6hW9a1"`
	PaymentID string `json:"razorpay_payment_id" validate:"required" example:"pay_NZ3bE1x7cT"`
	Signature string `json:"razorpay_signature" validate:"required" example:"9f8c..."`
	Plan      string `json:"plan" validate:"required" example:"owner"`
}

// Activation is the result of a confirmed payment.
type Activation struct {
	Subscription View `json:"subscription"`
	Replayed     bool `json:"replayed"`
}

type VerifyResponse struct {
	Message      string `json:"message"`
	Subscription View   `json:"subscription"`
	Replayed     bool   `json:"replayed"`
}

// Recipient is who gets told about an activation.
type Recipient struct {
	Email string
	Name  string
}

// NewSubscription is what the repository needs to record a payment.
type NewSubscription struct {
	UserID    int
	Plan      plan.Plan
	OrderID   string
	PaymentID string
	Signature string
}

// Record is a committed activation plus the account it was applied to.
type Record struct {
	Subscription Subscription
	Recipient    Recipient
}

// AccountStatus is the lazily evaluated subscription state of one account.
type AccountStatus struct {
	UserID    int        `json:"user_id"`
	Role      string     `json:"role"`
	Active    bool       `json:"active"`
	Plan      *string    `json:"plan,omitempty"`
	Status    *string    `json:"status,omitempty"`
	StartDate *time.Time `json:"start_date,omitempty"`
	EndDate   *time.Time `json:"end_date,omitempty"`
}

type ListFilter struct {
	Status string
	Plan   string
	Limit  int
	Offset int
}

type ListResult struct {
	Subscriptions []Subscription `json:"subscriptions"`
	Total         int            `json:"total"`
	Limit         int            `json:"limit"`
	Offset        int            `json:"offset"`
}

type PlanStatusCount struct {
	Plan   plan.ID `db:"plan" json:"plan"`
	Status Status  `db:"status" json:"status"`
	Count  int     `db:"count" json:"count"`
}

type Stats struct {
	Counts        []PlanStatusCount `json:"counts"`
	ActiveByPlan  map[string]int    `json:"active_by_plan"`
	ActiveRevenue int64             `json:"active_revenue"`
	ExpiringSoon  int               `json:"expiring_soon"`
}

type ReconcileResult struct {
	Expired int64 `json:"expired"`
	Rebuilt int64 `json:"rebuilt"`
}
