package rest

import (
	"net/http"
	"strconv"
	"time"

	"github.com/binary-solutins/sidclinic-app-web-be-sub001/internal/application"
	"github.com/binary-solutins/sidclinic-app-web-be-sub001/internal/domain"
)

// HandleStatus is the user's read-through status poll.
func (h *PaymentHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		WriteError(w, err)
		return
	}
	paymentID, err := pathUUID(r, "paymentId")
	if err != nil {
		WriteError(w, err)
		return
	}

	view, err := h.service.CheckStatus(r.Context(), paymentID, uid)
	if err != nil {
		WriteError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, view)
}

// HandleSync forces a status fetch and returns the old/new state pair.
func (h *PaymentHandler) HandleSync(w http.ResponseWriter, r *http.Request) {
	if _, err := userID(r); err != nil {
		WriteError(w, err)
		return
	}
	paymentID, err := pathUUID(r, "paymentId")
	if err != nil {
		WriteError(w, err)
		return
	}

	result, err := h.service.ManualSync(r.Context(), paymentID)
	if err != nil {
		WriteError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, result)
}

func (h *PaymentHandler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		WriteError(w, err)
		return
	}

	filter := application.PaymentFilter{Page: queryPage(r)}
	if raw := r.URL.Query().Get("status"); raw != "" {
		status := domain.PaymentStatus(raw)
		filter.Status = &status
	}

	payments, err := h.service.History(r.Context(), uid, filter)
	if err != nil {
		WriteError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, toPaymentViews(payments))
}

func (h *PaymentHandler) HandleDetails(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		WriteError(w, err)
		return
	}
	paymentID, err := pathUUID(r, "id")
	if err != nil {
		WriteError(w, err)
		return
	}

	payment, err := h.service.Details(r.Context(), paymentID, uid)
	if err != nil {
		WriteError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, toPaymentView(payment))
}

// HandlePending serves both audiences of the pending listing: admins see
// every user's unpaid bookings, everyone else only their own.
func (h *PaymentHandler) HandlePending(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		WriteError(w, err)
		return
	}
	var scope *int64
	if !isAdmin(r) {
		scope = &uid
	}

	rows, err := h.service.Pending(r.Context(), scope)
	if err != nil {
		WriteError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, toPendingViews(rows))
}

func (h *PaymentHandler) HandleMethods(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, h.service.Methods())
}

func (h *PaymentHandler) HandleAdminList(w http.ResponseWriter, r *http.Request) {
	if !isAdmin(r) {
		WriteError(w, application.NewForbiddenError("admin access required"))
		return
	}

	filter := application.AdminPaymentFilter{Page: queryPage(r)}
	q := r.URL.Query()
	if raw := q.Get("status"); raw != "" {
		status := domain.PaymentStatus(raw)
		filter.Status = &status
	}
	if raw := q.Get("method"); raw != "" {
		method := domain.PaymentMethod(raw)
		filter.Method = &method
	}
	if raw := q.Get("userId"); raw != "" {
		if uid, err := strconv.ParseInt(raw, 10, 64); err == nil {
			filter.UserID = &uid
		}
	}
	if from, to, err := queryRange(r); err == nil {
		filter.CreatedFrom = &from
		filter.CreatedTo = &to
	}

	payments, err := h.service.AdminList(r.Context(), filter)
	if err != nil {
		WriteError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, toPaymentViews(payments))
}

func (h *PaymentHandler) HandleAdminStats(w http.ResponseWriter, r *http.Request) {
	if !isAdmin(r) {
		WriteError(w, application.NewForbiddenError("admin access required"))
		return
	}

	from, to, err := queryRange(r)
	if err != nil {
		// Default to the last 30 days.
		to = time.Now()
		from = to.AddDate(0, 0, -30)
	}

	stats, err := h.service.AdminStats(r.Context(), from, to)
	if err != nil {
		WriteError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, stats)
}

func queryRange(r *http.Request) (time.Time, time.Time, error) {
	from, err := time.Parse(time.RFC3339, r.URL.Query().Get("from"))
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	to, err := time.Parse(time.RFC3339, r.URL.Query().Get("to"))
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return from, to, nil
}
