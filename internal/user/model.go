package user

import "time"

const StatusActive = "active"

// Snapshot is the copy of the latest subscription kept on the user row.
type Snapshot struct {
	Plan      *string    `db:"sub_plan" json:"plan,omitempty"`
	Status    *string    `db:"sub_status" json:"status,omitempty"`
	StartDate *time.Time `db:"sub_start_date" json:"start_date,omitempty"`
	EndDate   *time.Time `db:"sub_end_date" json:"end_date,omitempty"`
	PaymentID *string    `db:"sub_payment_id" json:"payment_id,omitempty"`
}

// IsActive evaluates expiry lazily: a stored "active" past its end date is not active.
func (s Snapshot) IsActive(now time.Time) bool {
	if s.Status == nil || *s.Status != StatusActive || s.EndDate == nil {
		return false
	}
	return s.EndDate.After(now)
}

type User struct {
	ID           int       `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Role         string    `db:"role" json:"role"`
	Phone        *string   `db:"phone" json:"phone,omitempty"`
	IsActive     bool      `db:"is_active" json:"is_active"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`

	Snapshot `json:"subscription"`
}

type NewUser struct {
	Name         string
	Email        string
	PasswordHash string
	Role         string
	Phone        *string
}

type RegisterRequest struct {
	Name     string  `json:"name" validate:"required,min=2,max=100" example:"Asha Rao"`
	Email    string  `json:"email" validate:"required,email" example:"asha@example.com"`
	Password string  `json:"password" validate:"required,min=8,max=72" example:"s3cret-pass"`
	Phone    *string `json:"phone,omitempty" validate:"omitempty,max=20" example:"+919800000000"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email" example:"asha@example.com"`
	Password string `json:"password" validate:"required" example:"s3cret-pass"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type LoginResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	User         User   `json:"user"`
}

type RefreshResponse struct {
	AccessToken string `json:"access_token"`
	User        User   `json:"user"`
}
