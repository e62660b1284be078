package rest

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator"
	"github.com/google/uuid"

	"github.com/binary-solutins/sidclinic-app-web-be-sub001/internal/application"
	"github.com/binary-solutins/sidclinic-app-web-be-sub001/internal/application/services"
	"github.com/binary-solutins/sidclinic-app-web-be-sub001/internal/domain"
)

// PaymentService is the slice of the orchestrator the HTTP layer uses.
type PaymentService interface {
	Initiate(ctx context.Context, cmd services.InitiateCommand) (*services.InitiateResult, error)
	Complete(ctx context.Context, cmd services.InitiateCommand) (*services.InitiateResult, error)
	HandleCallback(ctx context.Context, body []byte, authorization string) error
	ManualSync(ctx context.Context, paymentID uuid.UUID) (*services.SyncResult, error)
	CheckStatus(ctx context.Context, paymentID uuid.UUID, userID int64) (*services.StatusView, error)
	History(ctx context.Context, userID int64, f application.PaymentFilter) ([]*domain.Payment, error)
	Details(ctx context.Context, paymentID uuid.UUID, userID int64) (*domain.Payment, error)
	Pending(ctx context.Context, userID *int64) ([]application.PendingPayment, error)
	AdminList(ctx context.Context, f application.AdminPaymentFilter) ([]*domain.Payment, error)
	AdminStats(ctx context.Context, from, to time.Time) (*services.StatsView, error)
	Methods() []domain.PaymentMethod
	PreviewDiscount(ctx context.Context, code string, userID int64) (*services.DiscountResult, error)
}

type PaymentHandler struct {
	service  PaymentService
	validate *validator.Validate
}

func NewPaymentHandler(service PaymentService) *PaymentHandler {
	return &PaymentHandler{
		service:  service,
		validate: validator.New(),
	}
}

func (h *PaymentHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /payment/initiate", h.HandleInitiate)
	mux.HandleFunc("POST /payment/complete", h.HandleComplete)
	mux.HandleFunc("POST /payment/phonepe/callback", h.HandleCallback)
	mux.HandleFunc("GET /payment/status/{paymentId}", h.HandleStatus)
	mux.HandleFunc("POST /payment/sync/{paymentId}", h.HandleSync)
	mux.HandleFunc("GET /payment/history", h.HandleHistory)
	mux.HandleFunc("GET /payment/details/{id}", h.HandleDetails)
	mux.HandleFunc("GET /payment/pending", h.HandlePending)
	mux.HandleFunc("GET /payment/methods", h.HandleMethods)
	mux.HandleFunc("GET /payment/redeem/preview", h.HandleRedeemPreview)
	mux.HandleFunc("GET /payment/admin", h.HandleAdminList)
	mux.HandleFunc("GET /payment/admin/stats", h.HandleAdminStats)
}

// userID extracts the authenticated user from the X-User-ID header set
// by the gateway in front of this service. Authentication itself lives
// upstream.
func userID(r *http.Request) (int64, error) {
	raw := r.Header.Get("X-User-ID")
	if raw == "" {
		return 0, application.NewForbiddenError("missing X-User-ID header")
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, application.NewForbiddenError("invalid X-User-ID header")
	}
	return id, nil
}

// isAdmin gates the admin routes on the X-Admin header set by the
// upstream gateway after its own role check.
func isAdmin(r *http.Request) bool {
	return r.Header.Get("X-Admin") == "true"
}

func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(r.PathValue(name))
	if err != nil {
		return uuid.Nil, application.NewBadRequestError("invalid payment id", err)
	}
	return id, nil
}

func queryPage(r *http.Request) application.Page {
	page := application.Page{Limit: 20}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			page.Limit = v
		}
	}
	if raw := r.URL.Query().Get("offset"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			page.Offset = v
		}
	}
	return page
}
