package rest

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/binary-solutins/sidclinic-app-web-be-sub001/internal/application"
	"github.com/binary-solutins/sidclinic-app-web-be-sub001/internal/application/services"
	"github.com/binary-solutins/sidclinic-app-web-be-sub001/internal/domain"
)

type InitiateRequest struct {
	AppointmentID int64  `json:"appointmentId" validate:"required,gt=0"`
	PaymentMethod string `json:"paymentMethod" validate:"omitempty,oneof=phonepe upi card netbanking wallet"`
	RedeemCode    string `json:"redeemCode" validate:"omitempty,max=50"`
}

// HandleInitiate starts a payment for a pending virtual appointment.
func (h *PaymentHandler) HandleInitiate(w http.ResponseWriter, r *http.Request) {
	h.startPayment(w, r, h.service.Initiate)
}

// HandleComplete retries payment for an appointment whose earlier
// attempt failed.
func (h *PaymentHandler) HandleComplete(w http.ResponseWriter, r *http.Request) {
	h.startPayment(w, r, h.service.Complete)
}

func (h *PaymentHandler) startPayment(
	w http.ResponseWriter,
	r *http.Request,
	start func(ctx context.Context, cmd services.InitiateCommand) (*services.InitiateResult, error),
) {
	uid, err := userID(r)
	if err != nil {
		WriteError(w, err)
		return
	}

	var req InitiateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, application.NewBadRequestError("invalid request body", err))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		WriteError(w, application.NewBadRequestError(err.Error(), err))
		return
	}

	result, err := start(r.Context(), services.InitiateCommand{
		UserID:        uid,
		AppointmentID: req.AppointmentID,
		Method:        domain.PaymentMethod(req.PaymentMethod),
		RedeemCode:    req.RedeemCode,
		IPAddress:     clientIP(r),
		DeviceInfo:    r.Header.Get("User-Agent"),
	})
	if err != nil {
		WriteError(w, err)
		return
	}

	status := http.StatusCreated
	if result.Replayed {
		status = http.StatusOK
	}
	respondWithJSON(w, status, result)
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return fwd
	}
	return r.RemoteAddr
}
