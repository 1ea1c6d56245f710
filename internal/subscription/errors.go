package subscription

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidSignature    = errors.New("invalid payment signature")
	ErrDuplicatePayment    = errors.New("payment already recorded")
	ErrPaymentConflict     = errors.New("payment belongs to another account")
	ErrPersistence         = errors.New("failed to persist subscription")
	ErrNotFound            = errors.New("subscription not found")
	ErrNotActive           = errors.New("subscription is not active")
	ErrReconcileInProgress = errors.New("reconciliation already running")
)

// DuplicatePaymentError carries the row that already holds the payment id.
type DuplicatePaymentError struct {
	Existing *Subscription
}

func (e *DuplicatePaymentError) Error() string {
	return fmt.Sprintf("payment %s already recorded as subscription %d", e.Existing.PaymentID, e.Existing.ID)
}

func (e *DuplicatePaymentError) Unwrap() error {
	return ErrDuplicatePayment
}
