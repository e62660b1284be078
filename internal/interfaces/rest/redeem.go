package rest

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/binary-solutins/sidclinic-app-web-be-sub001/internal/application"
)

// RedeemPreviewView is the dry-run answer for a redeem code check.
type RedeemPreviewView struct {
	Code           string          `json:"code"`
	DiscountType   string          `json:"discountType"`
	OriginalAmount decimal.Decimal `json:"originalAmount"`
	DiscountAmount decimal.Decimal `json:"discountAmount"`
	FinalAmount    decimal.Decimal `json:"finalAmount"`
}

// HandleRedeemPreview checks a code against the current virtual
// appointment price without consuming it.
func (h *PaymentHandler) HandleRedeemPreview(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		WriteError(w, err)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		WriteError(w, application.NewBadRequestError("code query parameter is required", nil))
		return
	}

	result, err := h.service.PreviewDiscount(r.Context(), code, uid)
	if err != nil {
		WriteError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, RedeemPreviewView{
		Code:           result.Code.Code,
		DiscountType:   string(result.Code.DiscountType),
		OriginalAmount: result.OriginalAmount,
		DiscountAmount: result.DiscountAmount,
		FinalAmount:    result.FinalAmount,
	})
}
