package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// DomainError represents a business logic error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Domain validation errors
const (
	ErrCodeInvalidTransition    = "INVALID_TRANSITION"
	ErrCodeInvalidAmount        = "INVALID_AMOUNT"
	ErrCodeInvalidMethod        = "INVALID_PAYMENT_METHOD"
	ErrCodeMissingRequiredField = "MISSING_REQUIRED_FIELD"
	ErrCodeInvalidCode          = "INVALID_REDEEM_CODE"
	ErrCodeCodeNotValid         = "REDEEM_CODE_NOT_VALID"
	ErrCodeUserLimitExceeded    = "REDEEM_USER_LIMIT_EXCEEDED"
	ErrCodeBelowMinimum         = "REDEEM_BELOW_MINIMUM"
)

func NewInvalidTransitionError(from, to PaymentStatus) *DomainError {
	return &DomainError{
		Code:    ErrCodeInvalidTransition,
		Message: fmt.Sprintf("cannot transition from %s to %s", from, to),
	}
}

func NewInvalidAmountError(amount decimal.Decimal) *DomainError {
	return &DomainError{
		Code:    ErrCodeInvalidAmount,
		Message: fmt.Sprintf("invalid amount: %s", amount.StringFixed(2)),
	}
}

func NewInvalidMethodError(method string) *DomainError {
	return &DomainError{
		Code:    ErrCodeInvalidMethod,
		Message: fmt.Sprintf("unsupported payment method: %s", method),
	}
}

func NewMissingRequiredFieldError(field string) *DomainError {
	return &DomainError{
		Code:    ErrCodeMissingRequiredField,
		Message: fmt.Sprintf("%s is required", field),
	}
}

func NewInvalidCodeError(code string) *DomainError {
	return &DomainError{
		Code:    ErrCodeInvalidCode,
		Message: fmt.Sprintf("redeem code %q does not exist", code),
	}
}

func NewCodeNotValidError(reason string) *DomainError {
	return &DomainError{
		Code:    ErrCodeCodeNotValid,
		Message: reason,
	}
}

func NewUserLimitExceededError(code string) *DomainError {
	return &DomainError{
		Code:    ErrCodeUserLimitExceeded,
		Message: fmt.Sprintf("you have already used redeem code %s the maximum number of times", code),
	}
}

func NewBelowMinimumError(min decimal.Decimal) *DomainError {
	return &DomainError{
		Code:    ErrCodeBelowMinimum,
		Message: fmt.Sprintf("order amount is below the minimum of %s required for this code", min.StringFixed(2)),
	}
}

// IsErrorCode reports whether err is a DomainError carrying the given code.
func IsErrorCode(err error, code string) bool {
	var de *DomainError
	return errors.As(err, &de) && de.Code == code
}
