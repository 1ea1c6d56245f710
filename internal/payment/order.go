package payment

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"flatup/internal/logger"
	"flatup/internal/metrics"
	"flatup/internal/plan"
)

type OrderService struct {
	provider Provider
	keyID    string
	now      func() time.Time
}

func NewOrderService(provider Provider, keyID string) *OrderService {
	return &OrderService{
		provider: provider,
		keyID:    keyID,
		now:      time.Now,
	}
}

// CreateOrder asks the provider for an order priced at the plan amount.
// Nothing is stored locally; an abandoned checkout leaves no state behind.
func (s *OrderService) CreateOrder(ctx context.Context, customer Customer, planID string) (*Checkout, error) {
	p, err := plan.Lookup(planID)
	if err != nil {
		return nil, err
	}

	userID := strconv.Itoa(customer.ID)
	order, err := s.provider.CreateOrder(ctx, OrderRequest{
		Amount:   p.Amount,
		Currency: p.Currency,
		Receipt:  BuildReceipt(userID, s.now()),
		Notes: map[string]string{
			"userId":    userID,
			"plan":      string(p.ID),
			"userEmail": customer.Email,
		},
	})
	if err != nil {
		metrics.RecordOrder(string(p.ID), "failed")
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	metrics.RecordOrder(string(p.ID), "created")

	logger.Info("checkout order created",
		"user_id", customer.ID,
		"plan", p.ID,
		"order_id", order.ID,
	)

	return &Checkout{
		OrderID:  order.ID,
		Amount:   order.Amount,
		Currency: order.Currency,
		Key:      s.keyID,
		Plan:     p,
	}, nil
}
