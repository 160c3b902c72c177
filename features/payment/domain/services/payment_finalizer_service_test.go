package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	coreErrors "github.com/resqnow/dispatch-core/core/errors"
	"github.com/resqnow/dispatch-core/core/logger"
	coreServices "github.com/resqnow/dispatch-core/core/services"

	normServices "github.com/resqnow/dispatch-core/features/normalize/domain/services"
	notifierEntities "github.com/resqnow/dispatch-core/features/notifier/domain/entities"
	notifierServices "github.com/resqnow/dispatch-core/features/notifier/domain/services"
	"github.com/resqnow/dispatch-core/features/payment/domain/entities"
	pricingEntities "github.com/resqnow/dispatch-core/features/pricing/domain/entities"
	pricingServices "github.com/resqnow/dispatch-core/features/pricing/domain/services"
	requestEntities "github.com/resqnow/dispatch-core/features/request/domain/entities"
	technicianEntities "github.com/resqnow/dispatch-core/features/technician/domain/entities"
)

// fakePaymentRequestStore reuses the same single-mutex WithTransaction
// trick as the dispatch engine's fakes: every FinalizeCapturedPayment call
// serializes through one lock, so the fixed Payment -> Request -> Invoice
// lock order is exercised without a real database.
type fakePaymentRequestStore struct {
	mu       sync.Mutex
	requests map[uuid.UUID]*requestEntities.ServiceRequest
}

func newFakePaymentRequestStore(reqs ...*requestEntities.ServiceRequest) *fakePaymentRequestStore {
	s := &fakePaymentRequestStore{requests: map[uuid.UUID]*requestEntities.ServiceRequest{}}
	for _, r := range reqs {
		s.requests[r.ID] = r
	}
	return s
}

func (f *fakePaymentRequestStore) Create(ctx context.Context, r *requestEntities.ServiceRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests[r.ID] = r
	return nil
}

func (f *fakePaymentRequestStore) FindByID(ctx context.Context, id uuid.UUID) (*requestEntities.ServiceRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.requests[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *r
	return &cp, nil
}

func (f *fakePaymentRequestStore) FindByIDForUpdate(tx *gorm.DB, id uuid.UUID) (*requestEntities.ServiceRequest, error) {
	r, ok := f.requests[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return r, nil
}

func (f *fakePaymentRequestStore) Update(ctx context.Context, r *requestEntities.ServiceRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests[r.ID] = r
	return nil
}

func (f *fakePaymentRequestStore) UpdateInTx(tx *gorm.DB, r *requestEntities.ServiceRequest) error {
	f.requests[r.ID] = r
	return nil
}

func (f *fakePaymentRequestStore) FindRecentByUserAndServiceType(ctx context.Context, userID uuid.UUID, serviceType string, since time.Time) (*requestEntities.ServiceRequest, error) {
	return nil, nil
}

func (f *fakePaymentRequestStore) CountCompletedByUser(ctx context.Context, userID uuid.UUID, excludeRequestID uuid.UUID) (int, error) {
	return 0, nil
}

func (f *fakePaymentRequestStore) CountReservedCouponByUser(ctx context.Context, userID uuid.UUID, couponCode string, excludeRequestID uuid.UUID) (int, error) {
	return 0, nil
}

func (f *fakePaymentRequestStore) WithTransaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return fn(nil)
}

type fakePaymentTechnicianStore struct {
	mu                 sync.Mutex
	technicians        map[uuid.UUID]*technicianEntities.Technician
	incrementCallCount map[uuid.UUID]int
}

func newFakePaymentTechnicianStore(techs ...*technicianEntities.Technician) *fakePaymentTechnicianStore {
	s := &fakePaymentTechnicianStore{
		technicians:        map[uuid.UUID]*technicianEntities.Technician{},
		incrementCallCount: map[uuid.UUID]int{},
	}
	for _, t := range techs {
		s.technicians[t.ID] = t
	}
	return s
}

func (f *fakePaymentTechnicianStore) Create(ctx context.Context, t *technicianEntities.Technician) error {
	return nil
}

func (f *fakePaymentTechnicianStore) FindByID(ctx context.Context, id uuid.UUID) (*technicianEntities.Technician, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.technicians[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *t
	return &cp, nil
}

func (f *fakePaymentTechnicianStore) FindByIDForUpdate(tx *gorm.DB, id uuid.UUID) (*technicianEntities.Technician, error) {
	t, ok := f.technicians[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return t, nil
}

func (f *fakePaymentTechnicianStore) Update(ctx context.Context, t *technicianEntities.Technician) error {
	return nil
}

func (f *fakePaymentTechnicianStore) UpdateInTx(tx *gorm.DB, t *technicianEntities.Technician) error {
	return nil
}

func (f *fakePaymentTechnicianStore) FindDispatchCandidates(ctx context.Context) ([]*technicianEntities.Technician, error) {
	return nil, nil
}

func (f *fakePaymentTechnicianStore) SetAvailability(ctx context.Context, id uuid.UUID, available bool) error {
	return nil
}

func (f *fakePaymentTechnicianStore) IncrementCompletionStats(ctx context.Context, id uuid.UUID, earned float64) error {
	return nil
}

func (f *fakePaymentTechnicianStore) IncrementCompletionStatsInTx(tx *gorm.DB, id uuid.UUID, earned float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.incrementCallCount[id]++
	if t, ok := f.technicians[id]; ok {
		t.JobsCompleted++
		t.TotalEarnings += earned
	}
	return nil
}

type fakePaymentStore struct {
	mu      sync.Mutex
	byOrder map[string]*entities.Payment
}

func newFakePaymentStore() *fakePaymentStore {
	return &fakePaymentStore{byOrder: map[string]*entities.Payment{}}
}

func (f *fakePaymentStore) UpsertByOrder(ctx context.Context, payment *entities.Payment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.upsert(payment)
}

func (f *fakePaymentStore) UpsertByOrderInTx(tx *gorm.DB, payment *entities.Payment) error {
	return f.upsert(payment)
}

func (f *fakePaymentStore) upsert(payment *entities.Payment) error {
	existing, ok := f.byOrder[payment.GatewayOrderID]
	if !ok {
		if payment.ID == uuid.Nil {
			payment.ID = uuid.New()
		}
		f.byOrder[payment.GatewayOrderID] = payment
		return nil
	}
	if payment.ServiceRequestID != uuid.Nil {
		existing.ServiceRequestID = payment.ServiceRequestID
	}
	if payment.GatewayPaymentID != "" {
		existing.GatewayPaymentID = payment.GatewayPaymentID
	}
	if payment.Status != "" {
		existing.Status = payment.Status
	}
	return nil
}

func (f *fakePaymentStore) FindByOrderID(ctx context.Context, orderID string) (*entities.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.byOrder[orderID]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (f *fakePaymentStore) FindByOrderIDForUpdate(tx *gorm.DB, orderID string) (*entities.Payment, error) {
	return f.byOrder[orderID], nil
}

func (f *fakePaymentStore) UpdateInTx(tx *gorm.DB, payment *entities.Payment) error {
	f.byOrder[payment.GatewayOrderID] = payment
	return nil
}

func (f *fakePaymentStore) Create(ctx context.Context, payment *entities.Payment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byOrder[payment.GatewayOrderID] = payment
	return nil
}

func (f *fakePaymentStore) CreateInTx(tx *gorm.DB, payment *entities.Payment) error {
	f.byOrder[payment.GatewayOrderID] = payment
	return nil
}

func (f *fakePaymentStore) FindByServiceRequestID(ctx context.Context, requestID uuid.UUID) (*entities.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.byOrder {
		if p.ServiceRequestID == requestID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakePaymentStore) FindByServiceRequestIDForUpdate(tx *gorm.DB, requestID uuid.UUID) (*entities.Payment, error) {
	for _, p := range f.byOrder {
		if p.ServiceRequestID == requestID {
			return p, nil
		}
	}
	return nil, nil
}

type fakeInvoiceStore struct {
	mu          sync.Mutex
	byOrder     map[string]*entities.Invoice
	createCalls int
}

func newFakeInvoiceStore() *fakeInvoiceStore {
	return &fakeInvoiceStore{byOrder: map[string]*entities.Invoice{}}
}

func (f *fakeInvoiceStore) Create(ctx context.Context, invoice *entities.Invoice) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	f.byOrder[invoice.GatewayOrderID] = invoice
	return nil
}

func (f *fakeInvoiceStore) CreateInTx(tx *gorm.DB, invoice *entities.Invoice) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	f.byOrder[invoice.GatewayOrderID] = invoice
	return nil
}

func (f *fakeInvoiceStore) FindByOrderOrPaymentForUpdate(tx *gorm.DB, orderID, paymentID string) (*entities.Invoice, error) {
	if inv, ok := f.byOrder[orderID]; ok {
		return inv, nil
	}
	for _, inv := range f.byOrder {
		if inv.GatewayPaymentID == paymentID && paymentID != "" {
			return inv, nil
		}
	}
	return nil, nil
}

func (f *fakeInvoiceStore) UpdateInTx(tx *gorm.DB, invoice *entities.Invoice) error {
	f.byOrder[invoice.GatewayOrderID] = invoice
	return nil
}

func (f *fakeInvoiceStore) Update(ctx context.Context, invoice *entities.Invoice) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byOrder[invoice.GatewayOrderID] = invoice
	return nil
}

type fakeTechnicianDueStore struct{}

func (fakeTechnicianDueStore) Create(ctx context.Context, due *entities.TechnicianDue) error {
	return nil
}
func (fakeTechnicianDueStore) CreateInTx(tx *gorm.DB, due *entities.TechnicianDue) error { return nil }
func (fakeTechnicianDueStore) FindByID(ctx context.Context, id uuid.UUID) (*entities.TechnicianDue, error) {
	return nil, nil
}
func (fakeTechnicianDueStore) FindByIDForUpdate(tx *gorm.DB, id uuid.UUID) (*entities.TechnicianDue, error) {
	return nil, nil
}
func (fakeTechnicianDueStore) Update(ctx context.Context, due *entities.TechnicianDue) error {
	return nil
}
func (fakeTechnicianDueStore) UpdateInTx(tx *gorm.DB, due *entities.TechnicianDue) error { return nil }
func (fakeTechnicianDueStore) WithTransaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

// statefulDueStore actually persists TechnicianDue rows in memory, unlike
// fakeTechnicianDueStore's no-op stand-in; used by the settlement test,
// which needs to observe the due's status flip.
type statefulDueStore struct {
	mu   sync.Mutex
	dues map[uuid.UUID]*entities.TechnicianDue
}

func newStatefulDueStore() *statefulDueStore {
	return &statefulDueStore{dues: map[uuid.UUID]*entities.TechnicianDue{}}
}

func (f *statefulDueStore) Create(ctx context.Context, due *entities.TechnicianDue) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dues[due.ID] = due
	return nil
}
func (f *statefulDueStore) CreateInTx(tx *gorm.DB, due *entities.TechnicianDue) error {
	f.dues[due.ID] = due
	return nil
}
func (f *statefulDueStore) FindByID(ctx context.Context, id uuid.UUID) (*entities.TechnicianDue, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.dues[id], nil
}
func (f *statefulDueStore) FindByIDForUpdate(tx *gorm.DB, id uuid.UUID) (*entities.TechnicianDue, error) {
	return f.dues[id], nil
}
func (f *statefulDueStore) Update(ctx context.Context, due *entities.TechnicianDue) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dues[due.ID] = due
	return nil
}
func (f *statefulDueStore) UpdateInTx(tx *gorm.DB, due *entities.TechnicianDue) error {
	f.dues[due.ID] = due
	return nil
}
func (f *statefulDueStore) WithTransaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return fn(nil)
}

type fixedTestPricingConfig struct {
	cfg *pricingEntities.PlatformPricingConfig
}

func newFixedTestPricingConfig() fixedTestPricingConfig {
	return fixedTestPricingConfig{cfg: pricingEntities.DefaultPlatformPricingConfig()}
}

func (f fixedTestPricingConfig) Get(ctx context.Context, forceRefresh bool) (*pricingEntities.PlatformPricingConfig, error) {
	return f.cfg.Clone(), nil
}
func (fixedTestPricingConfig) Invalidate() {}
func (f fixedTestPricingConfig) ComputePaymentAmounts(cfg *pricingEntities.PlatformPricingConfig, baseAmount float64, discount pricingEntities.DiscountInput) pricingEntities.PaymentBreakdown {
	fee := baseAmount * cfg.PlatformFeePercent
	return pricingEntities.PaymentBreakdown{
		Currency:    cfg.Currency,
		BaseAmount:  baseAmount,
		PlatformFee: fee,
		TotalAmount: baseAmount + fee,
	}
}
func (f fixedTestPricingConfig) GetServiceMatrixAmount(cfg *pricingEntities.PlatformPricingConfig, domain, vehicle string) float64 {
	return cfg.DefaultServiceAmount
}

type fakeGateway struct{}

func (fakeGateway) CreateOrder(ctx context.Context, req coreServices.CreateOrderRequest) (*coreServices.OrderResponse, error) {
	return &coreServices.OrderResponse{ID: "order_test", Amount: req.AmountMinorUnits, Currency: req.Currency}, nil
}
func (fakeGateway) VerifyClientSignature(orderID, paymentID, signature string) bool { return true }
func (fakeGateway) VerifyWebhookSignature(rawBody []byte, signature string) bool    { return true }
func (fakeGateway) Configured() bool                                                { return true }

type fakePDF struct{}

func (fakePDF) GenerateInvoicePDF(data coreServices.InvoicePDFData) ([]byte, error) {
	return []byte("pdf"), nil
}

type fakeEmail struct {
	mu    sync.Mutex
	calls int
}

func (f *fakeEmail) SendInvoiceEmail(ctx context.Context, toEmail, invoiceNumber string, totalAmount float64) error {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return nil
}

type countingPaymentNotifier struct {
	mu    sync.Mutex
	calls int
}

func (n *countingPaymentNotifier) JoinUser(ctx context.Context, userID uuid.UUID) notifierServices.RoomSubscription {
	return nil
}
func (n *countingPaymentNotifier) JoinTechnician(ctx context.Context, id uuid.UUID) notifierServices.RoomSubscription {
	return nil
}
func (n *countingPaymentNotifier) JoinRequest(ctx context.Context, id uuid.UUID) notifierServices.RoomSubscription {
	return nil
}
func (n *countingPaymentNotifier) JoinBroadcast(ctx context.Context) notifierServices.RoomSubscription {
	return nil
}

func (n *countingPaymentNotifier) NotifyUser(ctx context.Context, userID uuid.UUID, event notifierEntities.Event, payload interface{}, requestID *uuid.UUID) *coreErrors.AppError {
	n.mu.Lock()
	n.calls++
	n.mu.Unlock()
	return nil
}
func (n *countingPaymentNotifier) NotifyTechnician(ctx context.Context, technicianID uuid.UUID, event notifierEntities.Event, payload interface{}) *coreErrors.AppError {
	n.mu.Lock()
	n.calls++
	n.mu.Unlock()
	return nil
}
func (n *countingPaymentNotifier) NotifyRequest(ctx context.Context, requestID uuid.UUID, event notifierEntities.Event, payload interface{}) *coreErrors.AppError {
	n.mu.Lock()
	n.calls++
	n.mu.Unlock()
	return nil
}
func (n *countingPaymentNotifier) Broadcast(ctx context.Context, event notifierEntities.Event, payload interface{}) *coreErrors.AppError {
	n.mu.Lock()
	n.calls++
	n.mu.Unlock()
	return nil
}

func newTestFinalizer(requestStore *fakePaymentRequestStore, technicianStore *fakePaymentTechnicianStore, paymentStore *fakePaymentStore, invoiceStore *fakeInvoiceStore, email *fakeEmail, notifier *countingPaymentNotifier) *paymentFinalizerServiceImpl {
	log := logger.NewLogger()
	normalizer := normServices.NewNormalizerService(log)
	return &paymentFinalizerServiceImpl{
		requestRepository:       requestStore,
		technicianRepository:    technicianStore,
		paymentRepository:       paymentStore,
		invoiceRepository:       invoiceStore,
		technicianDueRepository: fakeTechnicianDueStore{},
		pricingConfigService:    newFixedTestPricingConfig(),
		pricingResolver:         pricingServices.NewPricingResolverService(normalizer, log),
		normalizer:              normalizer,
		gateway:                 fakeGateway{},
		pdf:                     fakePDF{},
		email:                   email,
		notifier:                notifier,
		logger:                  log,
	}
}

func newApprovedTechnician() *technicianEntities.Technician {
	return &technicianEntities.Technician{
		ID:             uuid.New(),
		ApprovalStatus: technicianEntities.ApprovalApproved,
		IsActive:       true,
		IsAvailable:    false,
	}
}

func newAssignedUnpaidRequest(technicianID uuid.UUID) *requestEntities.ServiceRequest {
	return &requestEntities.ServiceRequest{
		ID:            uuid.New(),
		UserID:        uuid.New(),
		TechnicianID:  &technicianID,
		ServiceType:   "car-towing",
		Status:        requestEntities.StatusInProgress,
		PaymentStatus: requestEntities.PaymentStatusPending,
		Amount:        500,
		ContactEmail:  "customer@example.com",
	}
}

// TestFinalizeCapturedPayment_WebhookReplayIsIdempotent verifies that
// replaying payment.captured N times for the same (order_id,
// gateway_payment_id) produces the same final state - the request is
// marked paid exactly once, the technician's completion stats are
// incremented exactly once, and exactly one invoice is ever created.
func TestFinalizeCapturedPayment_WebhookReplayIsIdempotent(t *testing.T) {
	technician := newApprovedTechnician()
	request := newAssignedUnpaidRequest(technician.ID)
	orderID := "order_abc123"
	gatewayPaymentID := "pay_xyz789"

	requestStore := newFakePaymentRequestStore(request)
	technicianStore := newFakePaymentTechnicianStore(technician)
	paymentStore := newFakePaymentStore()
	paymentStore.byOrder[orderID] = &entities.Payment{
		ID:               uuid.New(),
		ServiceRequestID: request.ID,
		Status:           entities.PaymentPending,
		GatewayOrderID:   orderID,
	}
	invoiceStore := newFakeInvoiceStore()
	email := &fakeEmail{}
	notifier := &countingPaymentNotifier{}

	finalizer := newTestFinalizer(requestStore, technicianStore, paymentStore, invoiceStore, email, notifier)

	const replays = 5
	for i := 0; i < replays; i++ {
		result, appErr := finalizer.FinalizeCapturedPayment(context.Background(), orderID, gatewayPaymentID)
		require.Nil(t, appErr, "replay %d must not error", i)
		require.False(t, result.PaymentRowNotFound)
		if i == 0 {
			require.False(t, result.Duplicate, "the first capture is never a duplicate")
		} else {
			require.True(t, result.Duplicate, "replay %d must be recognized as a duplicate", i)
		}
	}

	finalRequest := requestStore.requests[request.ID]
	require.Equal(t, requestEntities.StatusPaid, finalRequest.Status)
	require.Equal(t, requestEntities.PaymentStatusCompleted, finalRequest.PaymentStatus)

	require.Equal(t, 1, technicianStore.incrementCallCount[technician.ID], "technician stats must be incremented exactly once across all replays")
	require.Equal(t, 1, invoiceStore.createCalls, "exactly one invoice must ever be created")

	finalPayment := paymentStore.byOrder[orderID]
	require.Equal(t, entities.PaymentCompleted, finalPayment.Status)
	require.Equal(t, gatewayPaymentID, finalPayment.GatewayPaymentID)
}

// TestProcessCashPaymentThenSettle verifies the cash-due pairing end to
// end: ProcessCashPayment opens exactly one pending TechnicianDue tied to
// the cash Payment's unsettled flag, and SettleTechnicianDue closes both
// in the same transaction, leaving no payment permanently marked unsettled
// once its due is paid.
func TestProcessCashPaymentThenSettle(t *testing.T) {
	technician := newApprovedTechnician()
	request := newAssignedUnpaidRequest(technician.ID)

	requestStore := newFakePaymentRequestStore(request)
	technicianStore := newFakePaymentTechnicianStore(technician)
	paymentStore := newFakePaymentStore()
	invoiceStore := newFakeInvoiceStore()
	dueStore := newStatefulDueStore()
	email := &fakeEmail{}
	notifier := &countingPaymentNotifier{}

	log := logger.NewLogger()
	normalizer := normServices.NewNormalizerService(log)
	finalizer := &paymentFinalizerServiceImpl{
		requestRepository:       requestStore,
		technicianRepository:    technicianStore,
		paymentRepository:       paymentStore,
		invoiceRepository:       invoiceStore,
		technicianDueRepository: dueStore,
		pricingConfigService:    newFixedTestPricingConfig(),
		pricingResolver:         pricingServices.NewPricingResolverService(normalizer, log),
		normalizer:              normalizer,
		gateway:                 fakeGateway{},
		pdf:                     fakePDF{},
		email:                   email,
		notifier:                notifier,
		logger:                  log,
	}

	paid, appErr := finalizer.ProcessCashPayment(context.Background(), request.ID, "")
	require.Nil(t, appErr)
	require.Equal(t, requestEntities.StatusPaid, paid.Status)

	var due *entities.TechnicianDue
	for _, d := range dueStore.dues {
		due = d
	}
	require.NotNil(t, due, "cash settlement must open exactly one technician due")
	require.Equal(t, entities.DuePending, due.Status)

	payment, err := paymentStore.FindByServiceRequestID(context.Background(), request.ID)
	require.NoError(t, err)
	require.False(t, payment.IsSettled, "a fresh cash payment owes its platform fee")
	require.Equal(t, due.Amount, payment.PlatformFee)

	settled, appErr := finalizer.SettleTechnicianDue(context.Background(), due.ID)
	require.Nil(t, appErr)
	require.Equal(t, entities.DueSettled, settled.Status)
	require.NotNil(t, settled.SettledAt)

	payment, err = paymentStore.FindByServiceRequestID(context.Background(), request.ID)
	require.NoError(t, err)
	require.True(t, payment.IsSettled, "settling the due must set the payment's IsSettled flag")

	again, appErr := finalizer.SettleTechnicianDue(context.Background(), due.ID)
	require.Nil(t, appErr, "settling an already-settled due is idempotent, not an error")
	require.Equal(t, entities.DueSettled, again.Status)
}
