package models

import (
	"errors"
	"fmt"
	"net/http"
)

// Error taxonomy of the alerting pipeline. Components wrap these with %w and
// handlers map them to status codes with errors.Is.
var (
	ErrConfiguration   = errors.New("configuration error")
	ErrValidation      = errors.New("validation error")
	ErrAuth            = errors.New("authentication failed")
	ErrExternalService = errors.New("external service error")
	ErrAuthExchange    = errors.New("token exchange failed")
	ErrDelivery        = errors.New("delivery failed")
)

// DeliveryError is a non-success answer from the push gateway.
type DeliveryError struct {
	StatusCode int
	Body       string
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("push gateway returned %d: %s", e.StatusCode, e.Body)
}

// Unwrap lets errors.Is(err, ErrDelivery) match.
func (e *DeliveryError) Unwrap() error {
	return ErrDelivery
}

// Retryable reports whether resending the same request may succeed:
// server errors and rate limiting are retryable, other 4xx are not.
func (e *DeliveryError) Retryable() bool {
	return e.StatusCode >= http.StatusInternalServerError || e.StatusCode == http.StatusTooManyRequests
}
