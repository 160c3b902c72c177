package services

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	coreErrors "github.com/resqnow/dispatch-core/core/errors"
	"github.com/resqnow/dispatch-core/core/logger"

	dispatchEntities "github.com/resqnow/dispatch-core/features/dispatch/domain/entities"
	dispatchServices "github.com/resqnow/dispatch-core/features/dispatch/domain/services"
	normServices "github.com/resqnow/dispatch-core/features/normalize/domain/services"
	notifierEntities "github.com/resqnow/dispatch-core/features/notifier/domain/entities"
	notifierServices "github.com/resqnow/dispatch-core/features/notifier/domain/services"
	"github.com/resqnow/dispatch-core/features/request/domain/entities"
	technicianEntities "github.com/resqnow/dispatch-core/features/technician/domain/entities"
)

// fakeLifecycleRequestStore is a map-backed RequestRepository double; no
// locking is required here since the lifecycle tests are not exercising
// concurrent access, unlike the dispatch accept-exclusivity tests.
type fakeLifecycleRequestStore struct {
	mu      sync.Mutex
	byID    map[uuid.UUID]*entities.ServiceRequest
	recent  map[string]*entities.ServiceRequest
	updates int
}

func newFakeLifecycleRequestStore() *fakeLifecycleRequestStore {
	return &fakeLifecycleRequestStore{
		byID:   map[uuid.UUID]*entities.ServiceRequest{},
		recent: map[string]*entities.ServiceRequest{},
	}
}

func (f *fakeLifecycleRequestStore) Create(ctx context.Context, request *entities.ServiceRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byID[request.ID] = request
	return nil
}

func (f *fakeLifecycleRequestStore) FindByID(ctx context.Context, id uuid.UUID) (*entities.ServiceRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.byID[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return r, nil
}

func (f *fakeLifecycleRequestStore) FindByIDForUpdate(tx *gorm.DB, id uuid.UUID) (*entities.ServiceRequest, error) {
	return f.FindByID(context.Background(), id)
}

func (f *fakeLifecycleRequestStore) Update(ctx context.Context, request *entities.ServiceRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byID[request.ID] = request
	f.updates++
	return nil
}

func (f *fakeLifecycleRequestStore) UpdateInTx(tx *gorm.DB, request *entities.ServiceRequest) error {
	return f.Update(context.Background(), request)
}

func (f *fakeLifecycleRequestStore) FindRecentByUserAndServiceType(ctx context.Context, userID uuid.UUID, serviceType string, since time.Time) (*entities.ServiceRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := userID.String() + "|" + serviceType
	r, ok := f.recent[key]
	if !ok {
		return nil, nil
	}
	if r.CreatedAt.Before(since) {
		return nil, nil
	}
	return r, nil
}

func (f *fakeLifecycleRequestStore) CountCompletedByUser(ctx context.Context, userID uuid.UUID, excludeRequestID uuid.UUID) (int, error) {
	return 0, nil
}

func (f *fakeLifecycleRequestStore) CountReservedCouponByUser(ctx context.Context, userID uuid.UUID, couponCode string, excludeRequestID uuid.UUID) (int, error) {
	return 0, nil
}

func (f *fakeLifecycleRequestStore) WithTransaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

// markRecent registers a request as the "existing open booking" the
// duplicate-booking guard should find for its (user, serviceType) pair.
func (f *fakeLifecycleRequestStore) markRecent(userID uuid.UUID, serviceType string, request *entities.ServiceRequest) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recent[userID.String()+"|"+serviceType] = request
}

// fakeLifecycleTechnicianStore tracks SetAvailability calls so tests can
// assert a technician was freed on cancel/completion.
type fakeLifecycleTechnicianStore struct {
	mu           sync.Mutex
	byID         map[uuid.UUID]*technicianEntities.Technician
	availability map[uuid.UUID]bool
}

func newFakeLifecycleTechnicianStore() *fakeLifecycleTechnicianStore {
	return &fakeLifecycleTechnicianStore{
		byID:         map[uuid.UUID]*technicianEntities.Technician{},
		availability: map[uuid.UUID]bool{},
	}
}

func (f *fakeLifecycleTechnicianStore) Create(ctx context.Context, technician *technicianEntities.Technician) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byID[technician.ID] = technician
	return nil
}

func (f *fakeLifecycleTechnicianStore) FindByID(ctx context.Context, id uuid.UUID) (*technicianEntities.Technician, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.byID[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return t, nil
}

func (f *fakeLifecycleTechnicianStore) FindByIDForUpdate(tx *gorm.DB, id uuid.UUID) (*technicianEntities.Technician, error) {
	return f.FindByID(context.Background(), id)
}

func (f *fakeLifecycleTechnicianStore) Update(ctx context.Context, technician *technicianEntities.Technician) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byID[technician.ID] = technician
	return nil
}

func (f *fakeLifecycleTechnicianStore) UpdateInTx(tx *gorm.DB, technician *technicianEntities.Technician) error {
	return f.Update(context.Background(), technician)
}

func (f *fakeLifecycleTechnicianStore) FindDispatchCandidates(ctx context.Context) ([]*technicianEntities.Technician, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*technicianEntities.Technician, 0, len(f.byID))
	for _, t := range f.byID {
		out = append(out, t)
	}
	return out, nil
}

func (f *fakeLifecycleTechnicianStore) SetAvailability(ctx context.Context, id uuid.UUID, available bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.availability[id] = available
	if t, ok := f.byID[id]; ok {
		t.IsAvailable = available
	}
	return nil
}

func (f *fakeLifecycleTechnicianStore) IncrementCompletionStats(ctx context.Context, id uuid.UUID, earned float64) error {
	return nil
}

func (f *fakeLifecycleTechnicianStore) IncrementCompletionStatsInTx(tx *gorm.DB, id uuid.UUID, earned float64) error {
	return nil
}

// fakeDispatchEngine is a scripted DispatchEngineService double: tests set
// the candidate list FindTopTechnicians should return and record whether
// DispatchJob/AcceptJob were invoked.
type fakeDispatchEngine struct {
	mu               sync.Mutex
	candidates       []dispatchEntities.Candidate
	findErr          *coreErrors.AppError
	dispatchJobCalls int
	findCalls        int
	resolvedAmount   float64
}

func (f *fakeDispatchEngine) AnalyzeTechnicians(ctx context.Context, request *entities.ServiceRequest, technicians []*technicianEntities.Technician, radiusKm float64) *dispatchEntities.AnalysisResult {
	return &dispatchEntities.AnalysisResult{}
}

func (f *fakeDispatchEngine) FindTopTechnicians(ctx context.Context, request *entities.ServiceRequest, radiusKm float64) ([]dispatchEntities.Candidate, *coreErrors.AppError) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.findCalls++
	if f.findErr != nil {
		return nil, f.findErr
	}
	return f.candidates, nil
}

func (f *fakeDispatchEngine) DispatchJob(ctx context.Context, requestID uuid.UUID, candidates []dispatchEntities.Candidate) *coreErrors.AppError {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dispatchJobCalls++
	return nil
}

func (f *fakeDispatchEngine) AcceptJob(ctx context.Context, technicianID, requestID uuid.UUID) (*dispatchServices.AcceptResult, *coreErrors.AppError) {
	return nil, nil
}

func (f *fakeDispatchEngine) ResolveAmount(ctx context.Context, technician *technicianEntities.Technician, request *entities.ServiceRequest) float64 {
	return f.resolvedAmount
}

// fakeLifecycleNotifier counts pushes without asserting on payload shape.
type fakeLifecycleNotifier struct {
	mu    sync.Mutex
	calls int
}

func (f *fakeLifecycleNotifier) JoinUser(ctx context.Context, userID uuid.UUID) notifierServices.RoomSubscription {
	return nil
}
func (f *fakeLifecycleNotifier) JoinTechnician(ctx context.Context, technicianID uuid.UUID) notifierServices.RoomSubscription {
	return nil
}
func (f *fakeLifecycleNotifier) JoinRequest(ctx context.Context, requestID uuid.UUID) notifierServices.RoomSubscription {
	return nil
}
func (f *fakeLifecycleNotifier) JoinBroadcast(ctx context.Context) notifierServices.RoomSubscription {
	return nil
}

func (f *fakeLifecycleNotifier) NotifyUser(ctx context.Context, userID uuid.UUID, event notifierEntities.Event, payload interface{}, requestID *uuid.UUID) *coreErrors.AppError {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return nil
}

func (f *fakeLifecycleNotifier) NotifyTechnician(ctx context.Context, technicianID uuid.UUID, event notifierEntities.Event, payload interface{}) *coreErrors.AppError {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return nil
}

func (f *fakeLifecycleNotifier) NotifyRequest(ctx context.Context, requestID uuid.UUID, event notifierEntities.Event, payload interface{}) *coreErrors.AppError {
	return nil
}

func (f *fakeLifecycleNotifier) Broadcast(ctx context.Context, event notifierEntities.Event, payload interface{}) *coreErrors.AppError {
	return nil
}

func newLifecycleTestService(requestStore *fakeLifecycleRequestStore, technicianStore *fakeLifecycleTechnicianStore, engine *fakeDispatchEngine, notifier *fakeLifecycleNotifier) *requestLifecycleServiceImpl {
	log := logger.NewLogger()
	return &requestLifecycleServiceImpl{
		requestRepository:    requestStore,
		technicianRepository: technicianStore,
		dispatchEngine:       engine,
		normalizer:           normServices.NewNormalizerService(log),
		notifier:             notifier,
		logger:               log,
	}
}

func newPendingServiceRequest(userID uuid.UUID) *entities.ServiceRequest {
	lat, lng := 12.9, 77.6
	return &entities.ServiceRequest{
		ID:            uuid.New(),
		UserID:        userID,
		ServiceType:   "car-towing",
		VehicleType:   "car",
		ServiceDomain: "towing",
		Address:       "123 Main St",
		Lat:           &lat,
		Lng:           &lng,
		PaymentStatus: entities.PaymentStatusPending,
		Status:        entities.StatusPending,
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	}
}

func TestCreateRequest_DuplicateBookingGuardRejectsWithinWindow(t *testing.T) {
	requestStore := newFakeLifecycleRequestStore()
	technicianStore := newFakeLifecycleTechnicianStore()
	engine := &fakeDispatchEngine{}
	notifier := &fakeLifecycleNotifier{}
	svc := newLifecycleTestService(requestStore, technicianStore, engine, notifier)

	userID := uuid.New()
	existing := newPendingServiceRequest(userID)
	requestStore.markRecent(userID, "car-towing", existing)

	input := entities.CreateRequestRequest{
		ServiceType: "car-towing",
		Address:     "456 Other St",
		Lat:         12.91,
		Lng:         77.61,
	}

	_, appErr := svc.CreateRequest(context.Background(), userID, input)
	if appErr == nil {
		t.Fatal("expected duplicate-booking guard to reject, got nil error")
	}
	if appErr.HTTPStatus() != http.StatusConflict {
		t.Fatalf("expected 409 for duplicate booking, got %d", appErr.HTTPStatus())
	}
	if got := appErr.Fields["existing_request_id"]; got != existing.ID.String() {
		t.Fatalf("expected conflict to carry existing request id %s, got %v", existing.ID, got)
	}
}

func TestCreateRequest_DispatchesWhenNoDuplicateExists(t *testing.T) {
	requestStore := newFakeLifecycleRequestStore()
	technicianStore := newFakeLifecycleTechnicianStore()
	technician := &technicianEntities.Technician{ID: uuid.New(), IsAvailable: true}
	technicianStore.byID[technician.ID] = technician

	engine := &fakeDispatchEngine{candidates: []dispatchEntities.Candidate{{TechnicianID: technician.ID, DistanceKm: 1.2}}}
	notifier := &fakeLifecycleNotifier{}
	svc := newLifecycleTestService(requestStore, technicianStore, engine, notifier)

	userID := uuid.New()
	input := entities.CreateRequestRequest{
		ServiceType: "car-towing",
		Address:     "456 Other St",
		Lat:         12.91,
		Lng:         77.61,
	}

	created, appErr := svc.CreateRequest(context.Background(), userID, input)
	if appErr != nil {
		t.Fatalf("unexpected error: %v", appErr)
	}
	if created.Status != entities.StatusPending {
		t.Fatalf("expected pending status, got %s", created.Status)
	}
	engine.mu.Lock()
	dispatchCalls := engine.dispatchJobCalls
	engine.mu.Unlock()
	if dispatchCalls != 1 {
		t.Fatalf("expected DispatchJob to run once, got %d", dispatchCalls)
	}
}

func TestUpdateStatus_RejectionReassignsToNextCandidate(t *testing.T) {
	requestStore := newFakeLifecycleRequestStore()
	technicianStore := newFakeLifecycleTechnicianStore()

	rejecting := uuid.New()
	next := &technicianEntities.Technician{ID: uuid.New(), IsAvailable: true}
	technicianStore.byID[next.ID] = next

	request := newPendingServiceRequest(uuid.New())
	request.TechnicianID = &rejecting
	request.Status = entities.StatusAssigned
	requestStore.byID[request.ID] = request

	engine := &fakeDispatchEngine{
		candidates:     []dispatchEntities.Candidate{{TechnicianID: rejecting}, {TechnicianID: next.ID}},
		resolvedAmount: 42.5,
	}
	notifier := &fakeLifecycleNotifier{}
	svc := newLifecycleTestService(requestStore, technicianStore, engine, notifier)

	updated, appErr := svc.UpdateStatus(context.Background(), request.ID, "rejected")
	if appErr != nil {
		t.Fatalf("unexpected error: %v", appErr)
	}
	if updated.TechnicianID == nil || *updated.TechnicianID != next.ID {
		t.Fatalf("expected reassignment to next candidate %s, got %v", next.ID, updated.TechnicianID)
	}
	if updated.Status != entities.StatusAssigned {
		t.Fatalf("expected assigned status after reassignment, got %s", updated.Status)
	}
	if updated.Amount != 42.5 {
		t.Fatalf("expected resolved amount 42.5, got %f", updated.Amount)
	}
}

func TestUpdateStatus_RejectionWithNoCandidatesReEntersPending(t *testing.T) {
	requestStore := newFakeLifecycleRequestStore()
	technicianStore := newFakeLifecycleTechnicianStore()

	rejecting := uuid.New()
	request := newPendingServiceRequest(uuid.New())
	request.TechnicianID = &rejecting
	request.Status = entities.StatusAssigned
	requestStore.byID[request.ID] = request

	engine := &fakeDispatchEngine{candidates: nil}
	notifier := &fakeLifecycleNotifier{}
	svc := newLifecycleTestService(requestStore, technicianStore, engine, notifier)

	updated, appErr := svc.UpdateStatus(context.Background(), request.ID, "rejected")
	if appErr != nil {
		t.Fatalf("unexpected error: %v", appErr)
	}
	if updated.TechnicianID != nil {
		t.Fatalf("expected technician to be cleared, got %v", updated.TechnicianID)
	}
	if updated.Status != entities.StatusPending {
		t.Fatalf("expected request to re-enter pending, got %s", updated.Status)
	}
	engine.mu.Lock()
	dispatchCalls := engine.dispatchJobCalls
	findCalls := engine.findCalls
	engine.mu.Unlock()
	if dispatchCalls != 0 {
		t.Fatalf("expected no technicians to dispatch to, got %d DispatchJob calls", dispatchCalls)
	}
	if findCalls != 2 {
		t.Fatalf("expected reassign's lookup plus the re-entered dispatch() lookup, got %d", findCalls)
	}
}

func TestUpdateStatus_CompletionFreesTechnician(t *testing.T) {
	requestStore := newFakeLifecycleRequestStore()
	technicianStore := newFakeLifecycleTechnicianStore()

	technicianID := uuid.New()
	technician := &technicianEntities.Technician{ID: technicianID, IsAvailable: false}
	technicianStore.byID[technicianID] = technician

	request := newPendingServiceRequest(uuid.New())
	request.TechnicianID = &technicianID
	request.Status = entities.StatusInProgress
	requestStore.byID[request.ID] = request

	engine := &fakeDispatchEngine{}
	notifier := &fakeLifecycleNotifier{}
	svc := newLifecycleTestService(requestStore, technicianStore, engine, notifier)

	updated, appErr := svc.UpdateStatus(context.Background(), request.ID, "completed")
	if appErr != nil {
		t.Fatalf("unexpected error: %v", appErr)
	}
	if updated.Status != entities.StatusPaymentPending {
		t.Fatalf("expected completed to coerce to payment-pending, got %s", updated.Status)
	}
	if updated.CompletedAt == nil {
		t.Fatal("expected completed_at to be stamped")
	}
	technicianStore.mu.Lock()
	available := technicianStore.availability[technicianID]
	technicianStore.mu.Unlock()
	if !available {
		t.Fatal("expected technician to be freed on completion")
	}
}

func TestCancelExplicit_AllowsCancelUpToTerminalBoundary(t *testing.T) {
	requestStore := newFakeLifecycleRequestStore()
	technicianStore := newFakeLifecycleTechnicianStore()

	technicianID := uuid.New()
	technicianStore.byID[technicianID] = &technicianEntities.Technician{ID: technicianID, IsAvailable: false}

	request := newPendingServiceRequest(uuid.New())
	request.TechnicianID = &technicianID
	request.Status = entities.StatusInProgress
	requestStore.byID[request.ID] = request

	engine := &fakeDispatchEngine{}
	notifier := &fakeLifecycleNotifier{}
	svc := newLifecycleTestService(requestStore, technicianStore, engine, notifier)

	updated, appErr := svc.CancelExplicit(context.Background(), request.ID, "customer changed their mind")
	if appErr != nil {
		t.Fatalf("expected explicit cancel to be allowed from in-progress, got error: %v", appErr)
	}
	if updated.Status != entities.StatusCancelled {
		t.Fatalf("expected cancelled status, got %s", updated.Status)
	}
	if updated.TechnicianID != nil {
		t.Fatal("expected technician to be cleared on cancel")
	}

	technicianStore.mu.Lock()
	available := technicianStore.availability[technicianID]
	technicianStore.mu.Unlock()
	if !available {
		t.Fatal("expected technician to be freed on explicit cancel")
	}
}

func TestCancelExplicit_RejectsOnceTerminal(t *testing.T) {
	requestStore := newFakeLifecycleRequestStore()
	technicianStore := newFakeLifecycleTechnicianStore()

	request := newPendingServiceRequest(uuid.New())
	request.Status = entities.StatusPaid
	requestStore.byID[request.ID] = request

	engine := &fakeDispatchEngine{}
	notifier := &fakeLifecycleNotifier{}
	svc := newLifecycleTestService(requestStore, technicianStore, engine, notifier)

	_, appErr := svc.CancelExplicit(context.Background(), request.ID, "too late")
	if appErr == nil {
		t.Fatal("expected explicit cancel to be rejected once the request is paid")
	}
}

func TestUpdateStatus_GeneralCancelRejectedOnceOnTheJob(t *testing.T) {
	requestStore := newFakeLifecycleRequestStore()
	technicianStore := newFakeLifecycleTechnicianStore()

	request := newPendingServiceRequest(uuid.New())
	request.Status = entities.StatusArrived
	requestStore.byID[request.ID] = request

	engine := &fakeDispatchEngine{}
	notifier := &fakeLifecycleNotifier{}
	svc := newLifecycleTestService(requestStore, technicianStore, engine, notifier)

	_, appErr := svc.UpdateStatus(context.Background(), request.ID, "cancelled")
	if appErr == nil {
		t.Fatal("expected general-cancel to be rejected once the job has arrived")
	}
}

func TestUpdateStatus_RejectsInvalidTransition(t *testing.T) {
	requestStore := newFakeLifecycleRequestStore()
	technicianStore := newFakeLifecycleTechnicianStore()

	request := newPendingServiceRequest(uuid.New())
	request.Status = entities.StatusPending
	requestStore.byID[request.ID] = request

	engine := &fakeDispatchEngine{}
	notifier := &fakeLifecycleNotifier{}
	svc := newLifecycleTestService(requestStore, technicianStore, engine, notifier)

	_, appErr := svc.UpdateStatus(context.Background(), request.ID, "paid")
	if appErr == nil {
		t.Fatal("expected pending->paid to be rejected as an invalid transition")
	}
}
