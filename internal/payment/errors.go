package payment

import (
	"errors"
	"fmt"
)

var ErrProviderUnavailable = errors.New("payment provider unavailable")

// APIError is a non-2xx answer from the provider.
type APIError struct {
	StatusCode  int
	Code        string
	Description string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("razorpay API error (%d %s): %s", e.StatusCode, e.Code, e.Description)
}

// Temporary reports whether the failure is on the provider side.
func (e *APIError) Temporary() bool {
	return e.StatusCode >= 500 || e.StatusCode == 429
}
