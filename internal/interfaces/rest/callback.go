package rest

import (
	"errors"
	"io"
	"net/http"

	"github.com/binary-solutins/sidclinic-app-web-be-sub001/internal/application"
	"github.com/binary-solutins/sidclinic-app-web-be-sub001/internal/infrastructure/phonepe"
)

// HandleCallback receives the PSP's server-to-server notification. Only
// an unverifiable signature (400) or an unknown merchant transaction
// (404) are reported back; everything else is acknowledged with 200 so
// the PSP stops retrying. Internal failures are recovered by the
// reconciler.
func (h *PaymentHandler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		WriteError(w, application.NewBadRequestError("failed to read callback body", err))
		return
	}

	err = h.service.HandleCallback(r.Context(), body, r.Header.Get("Authorization"))
	if err != nil {
		if errors.Is(err, phonepe.ErrInvalidSignature) {
			WriteError(w, err)
			return
		}
		if svcErr, ok := application.IsServiceError(err); ok {
			switch svcErr.Code {
			case application.ErrCodeNotFound, application.ErrCodeBadRequest:
				WriteError(w, err)
				return
			}
		}
		// Fall through to 200; the payment converges via reconcile.
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"status": "received"})
}
