package services

import (
	"strings"

	"github.com/binary-solutins/sidclinic-app-web-be-sub001/internal/domain"
)

// MapUpstreamState folds a PSP-reported state into the internal machine.
// Matching is case-insensitive; anything unrecognized is treated as failed
// so a malformed notification can never strand a payment in flight.
func MapUpstreamState(state string) domain.PaymentStatus {
	switch strings.ToUpper(strings.TrimSpace(state)) {
	case "COMPLETED", "SUCCESS":
		return domain.StatusSuccess
	case "PENDING", "PROCESSING":
		return domain.StatusProcessing
	case "CANCELLED", "CANCELED":
		return domain.StatusCancelled
	case "EXPIRED":
		return domain.StatusExpired
	case "FAILED", "FAILURE":
		return domain.StatusFailed
	default:
		return domain.StatusFailed
	}
}
