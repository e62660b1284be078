package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/binary-solutins/sidclinic-app-web-be-sub001/internal/application"
	"github.com/binary-solutins/sidclinic-app-web-be-sub001/internal/domain"
	"github.com/binary-solutins/sidclinic-app-web-be-sub001/internal/infrastructure/phonepe"
)

// The fakes below keep state in maps and allow per-test overrides via Fn
// fields, mirroring how the repositories behave against a real database:
// reads hand out copies, so a mutation only lands once Update is called.

type fakePaymentRepo struct {
	mu       sync.Mutex
	payments map[uuid.UUID]domain.Payment

	CreateFn            func(ctx context.Context, p *domain.Payment) error
	FindByIDForUpdateFn func(ctx context.Context, id uuid.UUID) (*domain.Payment, error)
}

func newFakePaymentRepo() *fakePaymentRepo {
	return &fakePaymentRepo{payments: make(map[uuid.UUID]domain.Payment)}
}

func (f *fakePaymentRepo) Create(ctx context.Context, p *domain.Payment) error {
	if f.CreateFn != nil {
		return f.CreateFn(ctx, p)
	}
	return f.create(ctx, p)
}

// create emulates the partial unique index on payments(appointment_id):
// a second active row for the same appointment is rejected.
func (f *fakePaymentRepo) create(ctx context.Context, p *domain.Payment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.payments {
		if existing.AppointmentID == p.AppointmentID && existing.IsActive() && existing.ID != p.ID {
			return application.ErrDuplicateActivePayment
		}
	}
	f.payments[p.ID] = *p
	return nil
}

func (f *fakePaymentRepo) Update(ctx context.Context, p *domain.Payment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.payments[p.ID]; !ok {
		return fmt.Errorf("payment %s not found", p.ID)
	}
	f.payments[p.ID] = *p
	return nil
}

func (f *fakePaymentRepo) FindByID(ctx context.Context, id uuid.UUID) (*domain.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.payments[id]; ok {
		return &p, nil
	}
	return nil, nil
}

func (f *fakePaymentRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.Payment, error) {
	if f.FindByIDForUpdateFn != nil {
		return f.FindByIDForUpdateFn(ctx, id)
	}
	return f.FindByID(ctx, id)
}

func (f *fakePaymentRepo) FindByMerchantTxnID(ctx context.Context, merchantTxnID string) (*domain.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.payments {
		if p.MerchantTransactionID == merchantTxnID {
			p := p
			return &p, nil
		}
	}
	return nil, nil
}

func (f *fakePaymentRepo) FindActiveForAppointment(ctx context.Context, appointmentID int64) (*domain.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.payments {
		if p.AppointmentID == appointmentID && p.IsActive() {
			p := p
			return &p, nil
		}
	}
	return nil, nil
}

func (f *fakePaymentRepo) ListByUser(ctx context.Context, userID int64, filter application.PaymentFilter) ([]*domain.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.Payment
	for _, p := range f.payments {
		if p.UserID != userID {
			continue
		}
		if filter.Status != nil && p.Status != *filter.Status {
			continue
		}
		p := p
		out = append(out, &p)
	}
	return out, nil
}

func (f *fakePaymentRepo) ListAdmin(ctx context.Context, filter application.AdminPaymentFilter) ([]*domain.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.Payment
	for _, p := range f.payments {
		p := p
		out = append(out, &p)
	}
	return out, nil
}

func (f *fakePaymentRepo) SumRevenue(ctx context.Context, from, to time.Time) (application.RevenueStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stats := application.RevenueStats{TotalRevenue: decimal.Zero}
	for _, p := range f.payments {
		if p.Status != domain.StatusSuccess || p.CompletedAt == nil {
			continue
		}
		if p.CompletedAt.Before(from) || !p.CompletedAt.Before(to) {
			continue
		}
		stats.TotalRevenue = stats.TotalRevenue.Add(p.Amount)
		stats.TotalTransactions++
	}
	return stats, nil
}

func (f *fakePaymentRepo) AggregateByState(ctx context.Context, from, to time.Time) ([]application.StateAggregate, error) {
	return nil, nil
}

func (f *fakePaymentRepo) AggregateByMethod(ctx context.Context, from, to time.Time) ([]application.MethodAggregate, error) {
	return nil, nil
}

func (f *fakePaymentRepo) PendingByUser(ctx context.Context, userID *int64) ([]application.PendingPayment, error) {
	return nil, nil
}

func (f *fakePaymentRepo) get(id uuid.UUID) domain.Payment {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.payments[id]
}

type fakeAppointmentRepo struct {
	mu           sync.Mutex
	appointments map[int64]domain.Appointment
}

func newFakeAppointmentRepo() *fakeAppointmentRepo {
	return &fakeAppointmentRepo{appointments: make(map[int64]domain.Appointment)}
}

func (f *fakeAppointmentRepo) put(a domain.Appointment) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.appointments[a.ID] = a
}

func (f *fakeAppointmentRepo) get(id int64) domain.Appointment {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.appointments[id]
}

func (f *fakeAppointmentRepo) FindByID(ctx context.Context, id int64) (*domain.Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if a, ok := f.appointments[id]; ok {
		return &a, nil
	}
	return nil, nil
}

func (f *fakeAppointmentRepo) FindByIDForUpdate(ctx context.Context, id int64) (*domain.Appointment, error) {
	return f.FindByID(ctx, id)
}

func (f *fakeAppointmentRepo) Update(ctx context.Context, a *domain.Appointment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.appointments[a.ID] = *a
	return nil
}

type fakePriceRepo struct {
	price *domain.Price
	err   error
}

func (f *fakePriceRepo) FindByService(ctx context.Context, serviceName string) (*domain.Price, error) {
	return f.price, f.err
}

type fakeRedeemRepo struct {
	mu     sync.Mutex
	codes  map[string]domain.RedeemCode
	usages []domain.RedeemCodeUsage
	nextID int64

	CountUsagesFn func(ctx context.Context, userID, codeID int64) (int, error)
}

func newFakeRedeemRepo() *fakeRedeemRepo {
	return &fakeRedeemRepo{codes: make(map[string]domain.RedeemCode)}
}

func (f *fakeRedeemRepo) putCode(c domain.RedeemCode) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.codes[c.Code] = c
}

func (f *fakeRedeemRepo) FindByCode(ctx context.Context, code string, scopes []domain.Applicability) (*domain.RedeemCode, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.codes[code]
	if !ok {
		return nil, nil
	}
	for _, s := range scopes {
		if c.ApplicableFor == s {
			return &c, nil
		}
	}
	return nil, nil
}

func (f *fakeRedeemRepo) CountUsages(ctx context.Context, userID, codeID int64) (int, error) {
	if f.CountUsagesFn != nil {
		return f.CountUsagesFn(ctx, userID, codeID)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, u := range f.usages {
		if u.UserID == userID && u.RedeemCodeID == codeID && u.Status != domain.UsageCancelled {
			count++
		}
	}
	return count, nil
}

func (f *fakeRedeemRepo) CreateUsage(ctx context.Context, u *domain.RedeemCodeUsage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.usages {
		if existing.UserID == u.UserID && existing.RedeemCodeID == u.RedeemCodeID && existing.AppointmentID == u.AppointmentID {
			return domain.NewCodeNotValidError("redeem code already applied to this appointment")
		}
	}
	f.nextID++
	u.ID = f.nextID
	u.CreatedAt = time.Now()
	f.usages = append(f.usages, *u)
	return nil
}

func (f *fakeRedeemRepo) LinkUsageToPayment(ctx context.Context, usageID int64, paymentID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.usages {
		if f.usages[i].ID == usageID {
			id := paymentID
			f.usages[i].PaymentID = &id
			return nil
		}
	}
	return fmt.Errorf("usage %d not found", usageID)
}

func (f *fakeRedeemRepo) IncrementUsageCount(ctx context.Context, codeID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for code, c := range f.codes {
		if c.ID == codeID {
			c.UsageCount++
			f.codes[code] = c
		}
	}
	return nil
}

func (f *fakeRedeemRepo) FindUsageForPayment(ctx context.Context, paymentID uuid.UUID) (*domain.RedeemCodeUsage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.usages {
		if u.PaymentID != nil && *u.PaymentID == paymentID {
			u := u
			return &u, nil
		}
	}
	return nil, nil
}

func (f *fakeRedeemRepo) CancelUsage(ctx context.Context, usageID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.usages {
		u := &f.usages[i]
		if u.ID == usageID && u.Status == domain.UsageApplied {
			u.Status = domain.UsageCancelled
			for code, c := range f.codes {
				if c.ID == u.RedeemCodeID && c.UsageCount > 0 {
					c.UsageCount--
					f.codes[code] = c
				}
			}
		}
	}
	return nil
}

func (f *fakeRedeemRepo) CancelUsageForPayment(ctx context.Context, paymentID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.usages {
		u := &f.usages[i]
		if u.PaymentID != nil && *u.PaymentID == paymentID && u.Status == domain.UsageApplied {
			u.Status = domain.UsageCancelled
			for code, c := range f.codes {
				if c.ID == u.RedeemCodeID && c.UsageCount > 0 {
					c.UsageCount--
					f.codes[code] = c
				}
			}
		}
	}
	return nil
}

type fakeJobRepo struct {
	mu        sync.Mutex
	jobs      []domain.PaymentJob
	nextID    int64
	done      []int64
	failed    []int64
	EnqueueFn func(ctx context.Context, paymentID uuid.UUID, runAt time.Time) error
}

func newFakeJobRepo() *fakeJobRepo { return &fakeJobRepo{} }

func (f *fakeJobRepo) Enqueue(ctx context.Context, paymentID uuid.UUID, runAt time.Time) error {
	if f.EnqueueFn != nil {
		return f.EnqueueFn(ctx, paymentID, runAt)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	f.jobs = append(f.jobs, domain.PaymentJob{
		ID:          f.nextID,
		PaymentID:   paymentID,
		RunAt:       runAt,
		MaxAttempts: 5,
		Status:      domain.JobScheduled,
	})
	return nil
}

func (f *fakeJobRepo) ClaimDue(ctx context.Context, now time.Time, limit int) ([]*domain.PaymentJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var due []*domain.PaymentJob
	for i := range f.jobs {
		if f.jobs[i].Status == domain.JobScheduled && !f.jobs[i].RunAt.After(now) && len(due) < limit {
			f.jobs[i].Attempts++
			j := f.jobs[i]
			due = append(due, &j)
		}
	}
	return due, nil
}

func (f *fakeJobRepo) MarkDone(ctx context.Context, jobID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.done = append(f.done, jobID)
	for i := range f.jobs {
		if f.jobs[i].ID == jobID {
			f.jobs[i].Status = domain.JobDone
		}
	}
	return nil
}

func (f *fakeJobRepo) MarkFailed(ctx context.Context, jobID int64, lastError string, retryAt *time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failed = append(f.failed, jobID)
	for i := range f.jobs {
		if f.jobs[i].ID != jobID {
			continue
		}
		if retryAt != nil {
			f.jobs[i].RunAt = *retryAt
		} else {
			f.jobs[i].Status = domain.JobFailed
		}
		f.jobs[i].LastError = &lastError
	}
	return nil
}

// fakeCoordinator reuses the same repositories for transactional work;
// single-winner behavior still holds because the fakes return copies.
type fakeCoordinator struct {
	repos application.Repositories
}

func (f *fakeCoordinator) WithTransaction(ctx context.Context, fn func(ctx context.Context, repos application.Repositories) error) error {
	return fn(ctx, f.repos)
}

type fakePSP struct {
	mu      sync.Mutex
	counter int64

	CreateOrderFn    func(ctx context.Context, req phonepe.OrderRequest) (*phonepe.OrderResponse, error)
	OrderStatusFn    func(ctx context.Context, merchantOrderID string) (*phonepe.StatusResponse, error)
	VerifyCallbackFn func(body []byte, authorization string) (*phonepe.CallbackEvent, error)
}

func (f *fakePSP) CreateOrder(ctx context.Context, req phonepe.OrderRequest) (*phonepe.OrderResponse, error) {
	if f.CreateOrderFn != nil {
		return f.CreateOrderFn(ctx, req)
	}
	return &phonepe.OrderResponse{
		OrderID:     "OMO-" + req.MerchantOrderID,
		State:       "PENDING",
		RedirectURL: "https://pay.example/checkout/" + req.MerchantOrderID,
	}, nil
}

func (f *fakePSP) OrderStatus(ctx context.Context, merchantOrderID string) (*phonepe.StatusResponse, error) {
	if f.OrderStatusFn != nil {
		return f.OrderStatusFn(ctx, merchantOrderID)
	}
	return nil, phonepe.ErrPendingUnseen
}

func (f *fakePSP) VerifyCallback(body []byte, authorization string) (*phonepe.CallbackEvent, error) {
	if f.VerifyCallbackFn != nil {
		return f.VerifyCallbackFn(body, authorization)
	}
	return nil, phonepe.ErrInvalidSignature
}

func (f *fakePSP) MerchantTransactionID(userID, appointmentID int64) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counter++
	return fmt.Sprintf("TXN_%d_%d_%d", userID, appointmentID, time.Now().UnixMilli()+f.counter)
}

type fixture struct {
	payments     *fakePaymentRepo
	appointments *fakeAppointmentRepo
	prices       *fakePriceRepo
	redeems      *fakeRedeemRepo
	jobs         *fakeJobRepo
	psp          *fakePSP
	service      *PaymentService
}

func newFixture() *fixture {
	payments := newFakePaymentRepo()
	appointments := newFakeAppointmentRepo()
	redeems := newFakeRedeemRepo()
	jobs := newFakeJobRepo()
	psp := &fakePSP{}
	prices := &fakePriceRepo{price: &domain.Price{
		ID:          1,
		ServiceName: domain.VirtualAppointmentService,
		Amount:      decimal.NewFromInt(500),
		IsActive:    true,
	}}

	repos := application.Repositories{
		Payments:     payments,
		Appointments: appointments,
		Redeems:      redeems,
		Jobs:         jobs,
	}

	service := NewPaymentService(
		&fakeCoordinator{repos: repos},
		repos,
		prices,
		psp,
		NewDiscountService(redeems),
		nil,
		2*time.Minute,
		slog.New(slog.NewTextHandler(ioDiscard{}, nil)),
	)

	return &fixture{
		payments:     payments,
		appointments: appointments,
		prices:       prices,
		redeems:      redeems,
		jobs:         jobs,
		psp:          psp,
		service:      service,
	}
}

type ioDiscard struct{}

func (ioDiscard) Write(p []byte) (int, error) { return len(p), nil }

func pendingVirtualAppointment(id, userID int64) domain.Appointment {
	return domain.Appointment{
		ID:            id,
		UserID:        userID,
		Type:          domain.AppointmentVirtual,
		Status:        domain.AppointmentPending,
		PaymentStatus: domain.AppointmentPaymentPending,
	}
}
