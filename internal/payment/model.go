package payment

import "flatup/internal/plan"

// OrderRequest is the body of POST /orders.
type OrderRequest struct {
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt"`
	Notes    map[string]string `json:"notes,omitempty"`
}

// Order is the provider's view of a payment intent. It is not proof of payment.
type Order struct {
	ID        string            `json:"id"`
	Entity    string            `json:"entity"`
	Amount    int64             `json:"amount"`
	Currency  string            `json:"currency"`
	Receipt   string            `json:"receipt"`
	Status    string            `json:"status"`
	Notes     map[string]string `json:"notes"`
	CreatedAt int64             `json:"created_at"`
}

type Customer struct {
	ID    int
	Email string
}

// Checkout is what the browser needs to open the checkout widget.
type Checkout struct {
	OrderID  string    `json:"orderId"`
	Amount   int64     `json:"amount"`
	Currency string    `json:"currency"`
	Key      string    `json:"key"`
	Plan     plan.Plan `json:"plan"`
}

type CreateOrderRequest struct {
	Plan string `json:"plan" validate:"required" example:"owner"`
}

type apiErrorBody struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}
