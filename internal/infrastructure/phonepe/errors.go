package phonepe

import (
	"errors"
	"fmt"
)

// ErrPendingUnseen marks a status query the PSP answered with 404: the
// payer has not reached PhonePe yet. It is not a failure.
var ErrPendingUnseen = errors.New("order not yet seen by psp")

// ErrInvalidSignature marks a callback whose checksum or authorization did
// not verify.
var ErrInvalidSignature = errors.New("callback signature verification failed")

// AuthError is a failed OAuth2 token exchange.
type AuthError struct {
	Code       string
	Message    string
	StatusCode int
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("psp auth error [%s]: %s (status: %d)", e.Code, e.Message, e.StatusCode)
}

// OrderError is a failed order creation, carrying the upstream code and message.
type OrderError struct {
	Code       string
	Message    string
	StatusCode int
}

func (e *OrderError) Error() string {
	return fmt.Sprintf("psp order error [%s]: %s (status: %d)", e.Code, e.Message, e.StatusCode)
}

// errorResponse is PhonePe's error envelope.
type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// IsOrderError extracts an OrderError from an error chain.
func IsOrderError(err error) (*OrderError, bool) {
	var oe *OrderError
	ok := errors.As(err, &oe)
	return oe, ok
}

// IsAuthError extracts an AuthError from an error chain.
func IsAuthError(err error) (*AuthError, bool) {
	var ae *AuthError
	ok := errors.As(err, &ae)
	return ae, ok
}
