package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/resqnow/dispatch-core/core/config"
	coreErrors "github.com/resqnow/dispatch-core/core/errors"
	"github.com/resqnow/dispatch-core/core/logger"

	dispatchEntities "github.com/resqnow/dispatch-core/features/dispatch/domain/entities"
	normServices "github.com/resqnow/dispatch-core/features/normalize/domain/services"
	notifierEntities "github.com/resqnow/dispatch-core/features/notifier/domain/entities"
	notifierServices "github.com/resqnow/dispatch-core/features/notifier/domain/services"
	pricingEntities "github.com/resqnow/dispatch-core/features/pricing/domain/entities"
	pricingServices "github.com/resqnow/dispatch-core/features/pricing/domain/services"
	requestEntities "github.com/resqnow/dispatch-core/features/request/domain/entities"
	technicianEntities "github.com/resqnow/dispatch-core/features/technician/domain/entities"
)

// fakeRequestStore is an in-memory RequestRepository whose WithTransaction
// holds a mutex for its whole call, standing in for the row-level
// SELECT ... FOR UPDATE lock AcceptJob depends on: two concurrent
// transactions on the same store are strictly serialized exactly as
// Postgres would serialize them.
type fakeRequestStore struct {
	mu       sync.Mutex
	requests map[uuid.UUID]*requestEntities.ServiceRequest
}

func newFakeRequestStore(reqs ...*requestEntities.ServiceRequest) *fakeRequestStore {
	s := &fakeRequestStore{requests: map[uuid.UUID]*requestEntities.ServiceRequest{}}
	for _, r := range reqs {
		s.requests[r.ID] = r
	}
	return s
}

func (f *fakeRequestStore) Create(ctx context.Context, r *requestEntities.ServiceRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests[r.ID] = r
	return nil
}

func (f *fakeRequestStore) FindByID(ctx context.Context, id uuid.UUID) (*requestEntities.ServiceRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.requests[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *r
	return &cp, nil
}

func (f *fakeRequestStore) FindByIDForUpdate(tx *gorm.DB, id uuid.UUID) (*requestEntities.ServiceRequest, error) {
	r, ok := f.requests[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return r, nil
}

func (f *fakeRequestStore) Update(ctx context.Context, r *requestEntities.ServiceRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests[r.ID] = r
	return nil
}

func (f *fakeRequestStore) UpdateInTx(tx *gorm.DB, r *requestEntities.ServiceRequest) error {
	f.requests[r.ID] = r
	return nil
}

func (f *fakeRequestStore) FindRecentByUserAndServiceType(ctx context.Context, userID uuid.UUID, serviceType string, since time.Time) (*requestEntities.ServiceRequest, error) {
	return nil, nil
}

func (f *fakeRequestStore) CountCompletedByUser(ctx context.Context, userID uuid.UUID, excludeRequestID uuid.UUID) (int, error) {
	return 0, nil
}

func (f *fakeRequestStore) CountReservedCouponByUser(ctx context.Context, userID uuid.UUID, couponCode string, excludeRequestID uuid.UUID) (int, error) {
	return 0, nil
}

func (f *fakeRequestStore) WithTransaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return fn(nil)
}

type fakeTechnicianStore struct {
	mu          sync.Mutex
	technicians map[uuid.UUID]*technicianEntities.Technician
}

func newFakeTechnicianStore(techs ...*technicianEntities.Technician) *fakeTechnicianStore {
	s := &fakeTechnicianStore{technicians: map[uuid.UUID]*technicianEntities.Technician{}}
	for _, t := range techs {
		s.technicians[t.ID] = t
	}
	return s
}

func (f *fakeTechnicianStore) Create(ctx context.Context, t *technicianEntities.Technician) error {
	return nil
}

func (f *fakeTechnicianStore) FindByID(ctx context.Context, id uuid.UUID) (*technicianEntities.Technician, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.technicians[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *t
	return &cp, nil
}

func (f *fakeTechnicianStore) FindByIDForUpdate(tx *gorm.DB, id uuid.UUID) (*technicianEntities.Technician, error) {
	t, ok := f.technicians[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return t, nil
}

func (f *fakeTechnicianStore) Update(ctx context.Context, t *technicianEntities.Technician) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.technicians[t.ID] = t
	return nil
}

func (f *fakeTechnicianStore) UpdateInTx(tx *gorm.DB, t *technicianEntities.Technician) error {
	f.technicians[t.ID] = t
	return nil
}

func (f *fakeTechnicianStore) FindDispatchCandidates(ctx context.Context) ([]*technicianEntities.Technician, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*technicianEntities.Technician, 0, len(f.technicians))
	for _, t := range f.technicians {
		cp := *t
		out = append(out, &cp)
	}
	return out, nil
}

func (f *fakeTechnicianStore) SetAvailability(ctx context.Context, id uuid.UUID, available bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if t, ok := f.technicians[id]; ok {
		t.IsAvailable = available
	}
	return nil
}

func (f *fakeTechnicianStore) IncrementCompletionStats(ctx context.Context, id uuid.UUID, earned float64) error {
	return nil
}

func (f *fakeTechnicianStore) IncrementCompletionStatsInTx(tx *gorm.DB, id uuid.UUID, earned float64) error {
	return nil
}

type fakeDispatchStore struct {
	mu     sync.Mutex
	offers map[uuid.UUID][]*dispatchEntities.DispatchOffer
}

func newFakeDispatchStore() *fakeDispatchStore {
	return &fakeDispatchStore{offers: map[uuid.UUID][]*dispatchEntities.DispatchOffer{}}
}

func (f *fakeDispatchStore) FindByRequestID(ctx context.Context, requestID uuid.UUID) ([]*dispatchEntities.DispatchOffer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.offers[requestID], nil
}

func (f *fakeDispatchStore) FindByRequestIDInTx(tx *gorm.DB, requestID uuid.UUID) ([]*dispatchEntities.DispatchOffer, error) {
	return f.offers[requestID], nil
}

func (f *fakeDispatchStore) CreateBatch(ctx context.Context, offers []*dispatchEntities.DispatchOffer) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, o := range offers {
		f.offers[o.ServiceRequestID] = append(f.offers[o.ServiceRequestID], o)
	}
	return nil
}

// AcceptInTx mirrors the real repository: the winner's offer flips to
// accepted, every pending sibling flips to rejected.
func (f *fakeDispatchStore) AcceptInTx(tx *gorm.DB, requestID, technicianID uuid.UUID) error {
	for _, o := range f.offers[requestID] {
		if o.TechnicianID == technicianID {
			o.Status = dispatchEntities.OfferAccepted
		} else if o.Status == dispatchEntities.OfferPending {
			o.Status = dispatchEntities.OfferRejected
		}
	}
	return nil
}

func (f *fakeDispatchStore) ExpirePending(ctx context.Context) (int64, error) {
	return 0, nil
}

type fakeRoomSubscription struct{}

func (fakeRoomSubscription) Messages() <-chan *notifierEntities.Message { return nil }
func (fakeRoomSubscription) Close() error                               { return nil }

// countingNotifier counts pushes instead of touching Redis; AcceptJob
// treats every push as best-effort, so a fake that never errors is
// faithful to the real NotifierService's at-most-once contract.
type countingNotifier struct {
	mu    sync.Mutex
	calls int
}

func (n *countingNotifier) JoinUser(ctx context.Context, userID uuid.UUID) notifierServices.RoomSubscription {
	return fakeRoomSubscription{}
}
func (n *countingNotifier) JoinTechnician(ctx context.Context, id uuid.UUID) notifierServices.RoomSubscription {
	return fakeRoomSubscription{}
}
func (n *countingNotifier) JoinRequest(ctx context.Context, id uuid.UUID) notifierServices.RoomSubscription {
	return fakeRoomSubscription{}
}
func (n *countingNotifier) JoinBroadcast(ctx context.Context) notifierServices.RoomSubscription {
	return fakeRoomSubscription{}
}

func (n *countingNotifier) NotifyUser(ctx context.Context, userID uuid.UUID, event notifierEntities.Event, payload interface{}, requestID *uuid.UUID) *coreErrors.AppError {
	n.mu.Lock()
	n.calls++
	n.mu.Unlock()
	return nil
}

func (n *countingNotifier) NotifyTechnician(ctx context.Context, technicianID uuid.UUID, event notifierEntities.Event, payload interface{}) *coreErrors.AppError {
	n.mu.Lock()
	n.calls++
	n.mu.Unlock()
	return nil
}

func (n *countingNotifier) NotifyRequest(ctx context.Context, requestID uuid.UUID, event notifierEntities.Event, payload interface{}) *coreErrors.AppError {
	n.mu.Lock()
	n.calls++
	n.mu.Unlock()
	return nil
}

func (n *countingNotifier) Broadcast(ctx context.Context, event notifierEntities.Event, payload interface{}) *coreErrors.AppError {
	n.mu.Lock()
	n.calls++
	n.mu.Unlock()
	return nil
}

// fixedPricingConfig always answers with a flat default amount; AcceptJob
// only reaches it when neither the technician's pricing tree nor the
// request's stored amount resolved one.
type fixedPricingConfig struct {
	amount float64
}

func (f fixedPricingConfig) Get(ctx context.Context, forceRefresh bool) (*pricingEntities.PlatformPricingConfig, error) {
	return &pricingEntities.PlatformPricingConfig{DefaultServiceAmount: f.amount}, nil
}
func (fixedPricingConfig) Invalidate() {}
func (fixedPricingConfig) ComputePaymentAmounts(cfg *pricingEntities.PlatformPricingConfig, baseAmount float64, discount pricingEntities.DiscountInput) pricingEntities.PaymentBreakdown {
	return pricingEntities.PaymentBreakdown{BaseAmount: baseAmount, TotalAmount: baseAmount}
}
func (f fixedPricingConfig) GetServiceMatrixAmount(cfg *pricingEntities.PlatformPricingConfig, domain, vehicle string) float64 {
	return cfg.DefaultServiceAmount
}

func newTestEngine(requestStore *fakeRequestStore, technicianStore *fakeTechnicianStore, dispatchStore *fakeDispatchStore, notifier *countingNotifier) *dispatchEngineServiceImpl {
	log := logger.NewLogger()
	normalizer := normServices.NewNormalizerService(log)
	return &dispatchEngineServiceImpl{
		technicianRepository: technicianStore,
		requestRepository:    requestStore,
		dispatchRepository:   dispatchStore,
		normalizer:           normalizer,
		pricingResolver:      pricingServices.NewPricingResolverService(normalizer, log),
		pricingConfigService: fixedPricingConfig{amount: 500},
		notifier:             notifier,
		routing:              nil,
		cfg:                  &config.AppConfig{},
		logger:               log,
	}
}

func newPendingRequest() *requestEntities.ServiceRequest {
	return &requestEntities.ServiceRequest{
		ID:          uuid.New(),
		ServiceType: "car-towing",
		Status:      requestEntities.StatusPending,
		Amount:      500,
	}
}

func newApprovedTechnician() *technicianEntities.Technician {
	return &technicianEntities.Technician{
		ID:             uuid.New(),
		ApprovalStatus: technicianEntities.ApprovalApproved,
		IsActive:       true,
		IsAvailable:    true,
	}
}

// TestAcceptJob_ExclusivityUnderConcurrency verifies that of N concurrent
// AcceptJob calls racing the same pending request, exactly one succeeds,
// exactly one offer ends accepted, and the request's technician_id
// matches that offer's technician.
func TestAcceptJob_ExclusivityUnderConcurrency(t *testing.T) {
	const n = 12

	request := newPendingRequest()
	technicians := make([]*technicianEntities.Technician, n)
	for i := range technicians {
		technicians[i] = newApprovedTechnician()
	}

	requestStore := newFakeRequestStore(request)
	technicianStore := newFakeTechnicianStore(technicians...)
	dispatchStore := newFakeDispatchStore()
	notifier := &countingNotifier{}

	for _, tech := range technicians {
		dispatchStore.offers[request.ID] = append(dispatchStore.offers[request.ID], &dispatchEntities.DispatchOffer{
			ID:               uuid.New(),
			ServiceRequestID: request.ID,
			TechnicianID:     tech.ID,
			Status:           dispatchEntities.OfferPending,
		})
	}

	engine := newTestEngine(requestStore, technicianStore, dispatchStore, notifier)

	var wg sync.WaitGroup
	results := make([]*AcceptResult, n)
	errs := make([]*coreErrors.AppError, n)
	for i, tech := range technicians {
		wg.Add(1)
		go func(idx int, technicianID uuid.UUID) {
			defer wg.Done()
			res, appErr := engine.AcceptJob(context.Background(), technicianID, request.ID)
			results[idx] = res
			errs[idx] = appErr
		}(i, tech.ID)
	}
	wg.Wait()

	successes := 0
	var winnerID uuid.UUID
	for i, res := range results {
		require.Nil(t, errs[i], "AcceptJob must never error on a simple accept race")
		require.NotNil(t, res)
		if res.Success {
			successes++
			winnerID = technicians[i].ID
		}
	}
	require.Equal(t, 1, successes, "exactly one concurrent caller must win the accept race")

	acceptedOffers := 0
	for _, o := range dispatchStore.offers[request.ID] {
		if o.Status == dispatchEntities.OfferAccepted {
			acceptedOffers++
			require.Equal(t, winnerID, o.TechnicianID)
		}
	}
	require.Equal(t, 1, acceptedOffers, "exactly one offer must end accepted")

	finalRequest := requestStore.requests[request.ID]
	require.NotNil(t, finalRequest.TechnicianID)
	require.Equal(t, winnerID, *finalRequest.TechnicianID)
	require.Equal(t, requestEntities.StatusAssigned, finalRequest.Status)

	winnerTech := technicianStore.technicians[winnerID]
	require.False(t, winnerTech.IsAvailable, "the winning technician must be marked unavailable")
}

// TestAcceptJob_AlreadyAssignedIsNotAnError verifies that racing a request
// that is no longer pending returns a losing AcceptResult rather than an
// AppError, since "job already taken" is an expected outcome, not a
// failure.
func TestAcceptJob_AlreadyAssignedIsNotAnError(t *testing.T) {
	request := newPendingRequest()
	winner := newApprovedTechnician()
	loser := newApprovedTechnician()

	requestStore := newFakeRequestStore(request)
	technicianStore := newFakeTechnicianStore(winner, loser)
	dispatchStore := newFakeDispatchStore()
	notifier := &countingNotifier{}

	for _, tech := range []*technicianEntities.Technician{winner, loser} {
		dispatchStore.offers[request.ID] = append(dispatchStore.offers[request.ID], &dispatchEntities.DispatchOffer{
			ID:               uuid.New(),
			ServiceRequestID: request.ID,
			TechnicianID:     tech.ID,
			Status:           dispatchEntities.OfferPending,
		})
	}

	engine := newTestEngine(requestStore, technicianStore, dispatchStore, notifier)

	first, appErr := engine.AcceptJob(context.Background(), winner.ID, request.ID)
	require.Nil(t, appErr)
	require.True(t, first.Success)

	second, appErr := engine.AcceptJob(context.Background(), loser.ID, request.ID)
	require.Nil(t, appErr)
	require.False(t, second.Success)
	require.Equal(t, "Job already taken or cancelled", second.Reason)
}
