package application

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/binary-solutins/sidclinic-app-web-be-sub001/internal/domain"
	"github.com/binary-solutins/sidclinic-app-web-be-sub001/internal/infrastructure/phonepe"
)

// APPLICATION-LEVEL ERRORS (Orchestration)

// ErrDuplicateActivePayment is returned by PaymentRepository.Create when
// the partial unique index on payments(appointment_id) rejects a second
// active row. The caller re-reads the winner and replays it.
var ErrDuplicateActivePayment = errors.New("an active payment already exists for this appointment")

type ServiceError struct {
	Code       string
	Message    string
	HTTPStatus int
	Err        error
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

const (
	ErrCodeBadRequest          = "BAD_REQUEST"
	ErrCodeForbidden           = "FORBIDDEN"
	ErrCodeNotFound            = "NOT_FOUND"
	ErrCodeAlreadyPaid         = "ALREADY_PAID"
	ErrCodeMisconfigured       = "PRICING_NOT_CONFIGURED"
	ErrCodeUpstreamUnavailable = "PSP_UNAVAILABLE"
	ErrCodeInitiationFailed    = "PAYMENT_INITIATION_FAILED"
	ErrCodeInternal            = "INTERNAL_ERROR"
)

func NewBadRequestError(message string, err error) *ServiceError {
	return &ServiceError{
		Code:       ErrCodeBadRequest,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
		Err:        err,
	}
}

func NewForbiddenError(message string) *ServiceError {
	return &ServiceError{
		Code:       ErrCodeForbidden,
		Message:    message,
		HTTPStatus: http.StatusForbidden,
	}
}

func NewNotFoundError(message string) *ServiceError {
	return &ServiceError{
		Code:       ErrCodeNotFound,
		Message:    message,
		HTTPStatus: http.StatusNotFound,
	}
}

func NewAlreadyPaidError(appointmentID int64) *ServiceError {
	return &ServiceError{
		Code:       ErrCodeAlreadyPaid,
		Message:    fmt.Sprintf("appointment %d already has a successful payment", appointmentID),
		HTTPStatus: http.StatusConflict,
	}
}

func NewMisconfiguredError(message string) *ServiceError {
	return &ServiceError{
		Code:       ErrCodeMisconfigured,
		Message:    message,
		HTTPStatus: http.StatusPreconditionFailed,
	}
}

func NewUpstreamUnavailableError(err error) *ServiceError {
	return &ServiceError{
		Code:       ErrCodeUpstreamUnavailable,
		Message:    "payment provider is unavailable",
		HTTPStatus: http.StatusBadGateway,
		Err:        err,
	}
}

// NewInitiationFailedError wraps a PSP failure during initiate. The
// payment row has already been moved to failed; the caller sees a 400
// carrying the upstream reason.
func NewInitiationFailedError(err error) *ServiceError {
	message := "payment initiation failed"
	if oe, ok := phonepe.IsOrderError(err); ok && oe.Message != "" {
		message = fmt.Sprintf("payment initiation failed: %s", oe.Message)
	}
	return &ServiceError{
		Code:       ErrCodeInitiationFailed,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
		Err:        err,
	}
}

func NewInternalError(err error) *ServiceError {
	return &ServiceError{
		Code:       ErrCodeInternal,
		Message:    "An internal error occurred",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func IsServiceError(err error) (*ServiceError, bool) {
	var svcErr *ServiceError
	ok := errors.As(err, &svcErr)
	return svcErr, ok
}

// ToHTTPStatus maps any error from the orchestration layer to a status code.
func ToHTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}

	if svcErr, ok := IsServiceError(err); ok {
		return svcErr.HTTPStatus
	}

	var de *domain.DomainError
	if errors.As(err, &de) {
		switch de.Code {
		case domain.ErrCodeInvalidTransition:
			return http.StatusConflict
		default:
			return http.StatusBadRequest
		}
	}

	if errors.Is(err, phonepe.ErrInvalidSignature) {
		return http.StatusBadRequest
	}
	if _, ok := phonepe.IsAuthError(err); ok {
		return http.StatusBadGateway
	}
	if _, ok := phonepe.IsOrderError(err); ok {
		return http.StatusBadGateway
	}

	return http.StatusInternalServerError
}

// ToErrorCode maps any error to the short code exposed by the API.
func ToErrorCode(err error) string {
	if svcErr, ok := IsServiceError(err); ok {
		return svcErr.Code
	}

	var de *domain.DomainError
	if errors.As(err, &de) {
		return de.Code
	}

	if errors.Is(err, phonepe.ErrInvalidSignature) {
		return "INVALID_SIGNATURE"
	}
	if _, ok := phonepe.IsAuthError(err); ok {
		return ErrCodeUpstreamUnavailable
	}
	if _, ok := phonepe.IsOrderError(err); ok {
		return ErrCodeUpstreamUnavailable
	}

	return ErrCodeInternal
}
