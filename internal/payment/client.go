package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"flatup/internal/logger"
	"flatup/internal/metrics"

	"github.com/google/uuid"
	"github.com/sony/gobreaker/v2"
)

const maxResponseBytes = 1 << 20

// Provider creates orders with the payment gateway.
type Provider interface {
	CreateOrder(ctx context.Context, req OrderRequest) (*Order, error)
}

// RazorpayClient talks to the Razorpay REST API directly.
type RazorpayClient struct {
	keyID      string
	keySecret  string
	baseURL    string
	timeout    time.Duration
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[*Order]
}

func NewRazorpayClient(keyID, keySecret, baseURL string, timeout time.Duration) *RazorpayClient {
	c := &RazorpayClient{
		keyID:     keyID,
		keySecret: keySecret,
		baseURL:   strings.TrimRight(baseURL, "/"),
		timeout:   timeout,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}

	c.breaker = gobreaker.NewCircuitBreaker[*Order](gobreaker.Settings{
		Name:        "razorpay",
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			var apiErr *APIError
			if errors.As(err, &apiErr) {
				return !apiErr.Temporary()
			}
			return err == nil
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				"name", name,
				"from", from.String(),
				"to", to.String(),
			)
			metrics.RecordBreakerState(name, to.String())
		},
	})

	return c
}

func (c *RazorpayClient) KeyID() string {
	return c.keyID
}

func (c *RazorpayClient) CreateOrder(ctx context.Context, req OrderRequest) (*Order, error) {
	order, err := c.breaker.Execute(func() (*Order, error) {
		return c.createOrder(ctx, req)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	return order, err
}

func (c *RazorpayClient) createOrder(ctx context.Context, req OrderRequest) (*Order, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal order request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/orders", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build order request: %w", err)
	}
	requestID := uuid.NewString()
	httpReq.SetBasicAuth(c.keyID, c.keySecret)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Request-Id", requestID)

	var order Order
	if err := c.do(httpReq, &order); err != nil {
		logger.Error("razorpay create order failed",
			"request_id", requestID,
			"receipt", req.Receipt,
			"error", err,
		)
		return nil, err
	}

	logger.Info("razorpay order created",
		"request_id", requestID,
		"order_id", order.ID,
		"amount", order.Amount,
	)
	return &order, nil
}

func (c *RazorpayClient) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("razorpay request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("read razorpay response: %w", err)
	}

	if resp.StatusCode >= 400 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Description: http.StatusText(resp.StatusCode)}
		var body apiErrorBody
		if json.Unmarshal(data, &body) == nil && body.Error.Description != "" {
			apiErr.Code = body.Error.Code
			apiErr.Description = body.Error.Description
		}
		return apiErr
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parse razorpay response: %w", err)
	}
	return nil
}
