// Package services implements the Dispatch Engine: technician eligibility
// analysis, Haversine/ETA ranking, offer fan-out, and the accept-exclusivity
// critical section.
package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/resqnow/dispatch-core/core/config"
	coreErrors "github.com/resqnow/dispatch-core/core/errors"
	"github.com/resqnow/dispatch-core/core/geo"
	"github.com/resqnow/dispatch-core/core/logger"
	"github.com/resqnow/dispatch-core/core/services"

	dispatchEntities "github.com/resqnow/dispatch-core/features/dispatch/domain/entities"
	dispatchRepositories "github.com/resqnow/dispatch-core/features/dispatch/domain/repositories"
	normEntities "github.com/resqnow/dispatch-core/features/normalize/domain/entities"
	normServices "github.com/resqnow/dispatch-core/features/normalize/domain/services"
	notifierEntities "github.com/resqnow/dispatch-core/features/notifier/domain/entities"
	notifierServices "github.com/resqnow/dispatch-core/features/notifier/domain/services"
	pricingServices "github.com/resqnow/dispatch-core/features/pricing/domain/services"
	requestEntities "github.com/resqnow/dispatch-core/features/request/domain/entities"
	requestRepositories "github.com/resqnow/dispatch-core/features/request/domain/repositories"
	technicianEntities "github.com/resqnow/dispatch-core/features/technician/domain/entities"
	technicianRepositories "github.com/resqnow/dispatch-core/features/technician/domain/repositories"
)

// AcceptResult is acceptJob's outcome. Exactly one concurrent caller for a
// given request ever receives Success true; every other interleaved caller
// receives a reason, never an error, since "job already taken" is an
// expected outcome of racing technicians, not a failure.
type AcceptResult struct {
	Success bool
	Reason  string
	Request *requestEntities.ServiceRequest
}

// DispatchEngineService implements analyzeTechnicians, findTopTechnicians,
// dispatchJob, and acceptJob.
type DispatchEngineService interface {
	AnalyzeTechnicians(ctx context.Context, request *requestEntities.ServiceRequest, technicians []*technicianEntities.Technician, radiusKm float64) *dispatchEntities.AnalysisResult
	FindTopTechnicians(ctx context.Context, request *requestEntities.ServiceRequest, radiusKm float64) ([]dispatchEntities.Candidate, *coreErrors.AppError)
	DispatchJob(ctx context.Context, requestID uuid.UUID, candidates []dispatchEntities.Candidate) *coreErrors.AppError
	AcceptJob(ctx context.Context, technicianID, requestID uuid.UUID) (*AcceptResult, *coreErrors.AppError)
	// ResolveAmount applies the technician/request/matrix priority order
	// exposed for the Request Lifecycle's rejection-reassignment
	// path, which assigns a technician outside the offer/accept flow.
	ResolveAmount(ctx context.Context, technician *technicianEntities.Technician, request *requestEntities.ServiceRequest) float64
}

type dispatchEngineServiceImpl struct {
	technicianRepository technicianRepositories.TechnicianRepository
	requestRepository    requestRepositories.RequestRepository
	dispatchRepository   dispatchRepositories.DispatchRepository
	normalizer           normServices.NormalizerService
	pricingResolver      pricingServices.PricingResolverService
	pricingConfigService pricingServices.PricingConfigService
	notifier             notifierServices.NotifierService
	routing              services.IRoutingService
	cfg                  *config.AppConfig
	logger               logger.Logger
}

// NewDispatchEngineService builds the Dispatch Engine.
func NewDispatchEngineService(
	technicianRepository technicianRepositories.TechnicianRepository,
	requestRepository requestRepositories.RequestRepository,
	dispatchRepository dispatchRepositories.DispatchRepository,
	normalizer normServices.NormalizerService,
	pricingResolver pricingServices.PricingResolverService,
	pricingConfigService pricingServices.PricingConfigService,
	notifier notifierServices.NotifierService,
	routing services.IRoutingService,
	cfg *config.AppConfig,
	logger logger.Logger,
) DispatchEngineService {
	return &dispatchEngineServiceImpl{
		technicianRepository: technicianRepository,
		requestRepository:    requestRepository,
		dispatchRepository:   dispatchRepository,
		normalizer:           normalizer,
		pricingResolver:      pricingResolver,
		pricingConfigService: pricingConfigService,
		notifier:             notifier,
		routing:              routing,
		cfg:                  cfg,
		logger:               logger,
	}
}

// technicianDomains collects every canonical service domain a technician
// claims: its declared primary, its declared specialties, and whatever
// domains its free-form service_costs tree implies.
func (s *dispatchEngineServiceImpl) technicianDomains(t *technicianEntities.Technician) map[normEntities.ServiceDomain]bool {
	out := map[normEntities.ServiceDomain]bool{}
	if t.PrimaryServiceDomain != "" {
		out[t.PrimaryServiceDomain] = true
	}
	for _, d := range t.Specialties {
		out[d] = true
	}
	for _, d := range s.normalizer.ServiceDomainsFromCosts(t.ServiceCosts) {
		out[d] = true
	}
	return out
}

func isClosedDomain(domain normEntities.ServiceDomain) bool {
	for _, d := range normEntities.ServiceDomains {
		if d == domain {
			return true
		}
	}
	return false
}

func isClosedVehicle(vehicle normEntities.VehicleFamily) bool {
	for _, v := range normEntities.VehicleFamilies {
		if v == vehicle {
			return true
		}
	}
	return false
}

// AnalyzeTechnicians runs every closed rejection check against each
// candidate and records why each ineligible technician was excluded.
func (s *dispatchEngineServiceImpl) AnalyzeTechnicians(ctx context.Context, request *requestEntities.ServiceRequest, technicians []*technicianEntities.Technician, radiusKm float64) *dispatchEntities.AnalysisResult {
	vehicle, domain := s.normalizer.CanonicalizeServiceType(request.ServiceType)

	result := &dispatchEntities.AnalysisResult{
		Criteria: dispatchEntities.AnalysisCriteria{
			ServiceDomain: string(domain),
			VehicleFamily: string(vehicle),
		},
		ReasonCounts: map[dispatchEntities.RejectionReason]int{},
	}

	invalidLocation := request.Lat == nil || request.Lng == nil
	if !invalidLocation {
		result.Criteria.RequestLat = *request.Lat
		result.Criteria.RequestLng = *request.Lng
	}
	invalidDomain := !isClosedDomain(domain)
	invalidVehicle := !isClosedVehicle(vehicle)

	for _, t := range technicians {
		var reasons []dispatchEntities.RejectionReason

		if invalidLocation {
			reasons = append(reasons, dispatchEntities.ReasonInvalidJobLocation)
		}
		if invalidDomain {
			reasons = append(reasons, dispatchEntities.ReasonInvalidServiceDomain)
		}
		if invalidVehicle {
			reasons = append(reasons, dispatchEntities.ReasonInvalidVehicleType)
		}
		if t.ApprovalStatus != technicianEntities.ApprovalApproved {
			reasons = append(reasons, dispatchEntities.ReasonNotApproved)
		}
		if !t.IsActive {
			reasons = append(reasons, dispatchEntities.ReasonInactive)
		}
		if !t.IsAvailable {
			reasons = append(reasons, dispatchEntities.ReasonUnavailable)
		}

		var distanceKm float64
		if !t.HasLocation() {
			reasons = append(reasons, dispatchEntities.ReasonMissingLocation)
		} else if !invalidLocation {
			distanceKm = geo.DistanceKm(geo.Point{Lat: *request.Lat, Lng: *request.Lng}, geo.Point{Lat: t.Location.Lat, Lng: t.Location.Lng})
		}

		domains := s.technicianDomains(t)
		if len(domains) == 0 {
			reasons = append(reasons, dispatchEntities.ReasonServiceProfileMissing)
		} else if !invalidDomain && !domains[domain] {
			reasons = append(reasons, dispatchEntities.ReasonServiceMismatch)
		}

		if len(t.VehicleFamilies) == 0 {
			reasons = append(reasons, dispatchEntities.ReasonVehicleProfileMissing)
		} else if !invalidVehicle && !t.SupportsVehicle(vehicle) {
			reasons = append(reasons, dispatchEntities.ReasonVehicleMismatch)
		}

		if t.HasLocation() && !invalidLocation {
			effectiveRange := t.EffectiveRangeKm(radiusKm)
			if effectiveRange > 0 && distanceKm > effectiveRange {
				reasons = append(reasons, dispatchEntities.ReasonOutOfRange)
			}
		}

		for _, reason := range reasons {
			result.ReasonCounts[reason]++
		}

		result.Analysis = append(result.Analysis, dispatchEntities.TechnicianAnalysis{
			TechnicianID: t.ID,
			Eligible:     len(reasons) == 0,
			Reasons:      reasons,
			DistanceKm:   distanceKm,
		})
	}

	return result
}

// FindTopTechnicians loads every dispatch candidate, keeps the eligible
// ones, ranks by Haversine distance, enriches the closest matrixLimit with
// a routing-service ETA (falling back to the Haversine-derived estimate on
// any failure), and re-ranks by that ETA.
func (s *dispatchEngineServiceImpl) FindTopTechnicians(ctx context.Context, request *requestEntities.ServiceRequest, radiusKm float64) ([]dispatchEntities.Candidate, *coreErrors.AppError) {
	technicians, err := s.technicianRepository.FindDispatchCandidates(ctx)
	if err != nil {
		return nil, coreErrors.ServiceError("failed to load dispatch candidates: " + err.Error())
	}

	analysis := s.AnalyzeTechnicians(ctx, request, technicians, radiusKm)

	byID := make(map[uuid.UUID]*technicianEntities.Technician, len(technicians))
	for _, t := range technicians {
		byID[t.ID] = t
	}

	eligible := make([]dispatchEntities.TechnicianAnalysis, 0, len(analysis.Analysis))
	for _, a := range analysis.Analysis {
		if a.Eligible {
			eligible = append(eligible, a)
		}
	}

	sort.Slice(eligible, func(i, j int) bool { return eligible[i].DistanceKm < eligible[j].DistanceKm })

	matrixLimit := s.cfg.DispatchETAMatrixLimit
	if matrixLimit <= 0 {
		matrixLimit = 25
	}
	if len(eligible) > matrixLimit {
		eligible = eligible[:matrixLimit]
	}

	candidates := make([]dispatchEntities.Candidate, 0, len(eligible))
	for _, a := range eligible {
		technician := byID[a.TechnicianID]
		etaSeconds := geo.FallbackETASeconds(a.DistanceKm)

		if eta, etaErr := s.routing.GetETA(ctx, services.RoutingETARequest{
			OriginLat: technician.Location.Lat,
			OriginLng: technician.Location.Lng,
			DestLat:   *request.Lat,
			DestLng:   *request.Lng,
		}); etaErr == nil && eta != nil && eta.DurationS > 0 {
			etaSeconds = eta.DurationS
		}

		candidates = append(candidates, dispatchEntities.Candidate{
			TechnicianID: a.TechnicianID,
			DistanceKm:   a.DistanceKm,
			ETASeconds:   etaSeconds,
		})
	}

	sort.Slice(candidates, func(i, j int) bool { return candidates[i].ETASeconds < candidates[j].ETASeconds })

	return candidates, nil
}

// resolveAmount applies the three-step priority order: a technician's own
// pricing tree, the amount already stored on the request, then the
// platform's service matrix default.
func (s *dispatchEngineServiceImpl) resolveAmount(ctx context.Context, technician *technicianEntities.Technician, request *requestEntities.ServiceRequest) float64 {
	vehicle, domain := s.normalizer.CanonicalizeServiceType(request.ServiceType)

	if amount, ok := s.pricingResolver.ResolveTechnicianAmount(technician.Pricing, technician.ServiceCosts, domain, vehicle); ok {
		return amount
	}
	if request.Amount > 0 {
		return request.Amount
	}

	cfg, err := s.pricingConfigService.Get(ctx, false)
	if err != nil {
		s.logger.Error(ctx, "failed to load platform pricing config for amount resolution", logger.Fields{"error": err.Error()})
		return 0
	}
	return s.pricingConfigService.GetServiceMatrixAmount(cfg, string(domain), string(vehicle))
}

// ResolveAmount is the public entry point to the priority-order amount
// resolution used outside the dispatch/accept flow.
func (s *dispatchEngineServiceImpl) ResolveAmount(ctx context.Context, technician *technicianEntities.Technician, request *requestEntities.ServiceRequest) float64 {
	return s.resolveAmount(ctx, technician, request)
}

// DispatchJob persists a pending offer for every not-yet-offered candidate,
// then pushes job_offer/job:list_update. Every offer row is committed
// before any push event is emitted, so a technician never receives a push
// for an offer it cannot yet see if it polls the list endpoint.
func (s *dispatchEngineServiceImpl) DispatchJob(ctx context.Context, requestID uuid.UUID, candidates []dispatchEntities.Candidate) *coreErrors.AppError {
	request, err := s.requestRepository.FindByID(ctx, requestID)
	if err != nil {
		return coreErrors.NotFound("service request not found")
	}

	existing, err := s.dispatchRepository.FindByRequestID(ctx, requestID)
	if err != nil {
		return coreErrors.ServiceError("failed to load existing dispatch offers: " + err.Error())
	}
	alreadyOffered := make(map[uuid.UUID]bool, len(existing))
	for _, o := range existing {
		alreadyOffered[o.TechnicianID] = true
	}

	ttlSeconds := s.cfg.DispatchOfferTTLSeconds
	if ttlSeconds <= 0 {
		ttlSeconds = 20
	}
	now := time.Now()
	expiresAt := now.Add(time.Duration(ttlSeconds) * time.Second)

	type pendingOffer struct {
		offer      *dispatchEntities.DispatchOffer
		technician *technicianEntities.Technician
		amount     float64
	}

	var toCreate []pendingOffer
	for _, c := range candidates {
		if alreadyOffered[c.TechnicianID] {
			continue
		}
		technician, err := s.technicianRepository.FindByID(ctx, c.TechnicianID)
		if err != nil {
			s.logger.Error(ctx, "skipping dispatch candidate with unresolved technician", logger.Fields{"technician_id": c.TechnicianID.String(), "error": err.Error()})
			continue
		}
		amount := s.resolveAmount(ctx, technician, request)
		toCreate = append(toCreate, pendingOffer{
			offer: &dispatchEntities.DispatchOffer{
				ID:               uuid.New(),
				ServiceRequestID: requestID,
				TechnicianID:     c.TechnicianID,
				Status:           dispatchEntities.OfferPending,
				SentAt:           now,
				ExpiresAt:        expiresAt,
			},
			technician: technician,
			amount:     amount,
		})
	}

	if len(toCreate) == 0 {
		return nil
	}

	offers := make([]*dispatchEntities.DispatchOffer, len(toCreate))
	for i, p := range toCreate {
		offers[i] = p.offer
	}
	if err := s.dispatchRepository.CreateBatch(ctx, offers); err != nil {
		return coreErrors.RepositoryError("failed to create dispatch offers: " + err.Error())
	}

	expiresIn := int(time.Until(expiresAt).Seconds())
	for _, p := range toCreate {
		payload := map[string]interface{}{
			"request_id":   requestID.String(),
			"amount":       p.amount,
			"expires_in":   expiresIn,
			"service_type": request.ServiceType,
			"address":      request.Address,
		}
		if appErr := s.notifier.NotifyTechnician(ctx, p.technician.ID, notifierEntities.EventJobOffer, payload); appErr != nil {
			s.logger.Error(ctx, "failed to push job_offer", logger.Fields{"technician_id": p.technician.ID.String(), "error": appErr.Error()})
		}
		if appErr := s.notifier.NotifyTechnician(ctx, p.technician.ID, notifierEntities.EventJobListUpdate, payload); appErr != nil {
			s.logger.Error(ctx, "failed to push job:list_update", logger.Fields{"technician_id": p.technician.ID.String(), "error": appErr.Error()})
		}
	}

	return nil
}

// AcceptJob is the accept-exclusivity critical section: the request row is
// locked gated on status='pending', so of any number of concurrent callers
// racing the same request, exactly one observes the pending row and wins.
func (s *dispatchEngineServiceImpl) AcceptJob(ctx context.Context, technicianID, requestID uuid.UUID) (*AcceptResult, *coreErrors.AppError) {
	var result *AcceptResult
	var losingTechnicianIDs []uuid.UUID

	err := s.requestRepository.WithTransaction(ctx, func(tx *gorm.DB) error {
		request, lookupErr := s.requestRepository.FindByIDForUpdate(tx, requestID)
		if lookupErr != nil || request.Status != requestEntities.StatusPending {
			result = &AcceptResult{Success: false, Reason: "Job already taken or cancelled"}
			return nil
		}

		technician, lookupErr := s.technicianRepository.FindByIDForUpdate(tx, technicianID)
		if lookupErr != nil {
			result = &AcceptResult{Success: false, Reason: "Technician not found"}
			return nil
		}

		siblings, lookupErr := s.dispatchRepository.FindByRequestIDInTx(tx, requestID)
		if lookupErr != nil {
			return fmt.Errorf("failed to load dispatch offers for accept: %w", lookupErr)
		}
		for _, o := range siblings {
			if o.TechnicianID != technicianID && o.Status == dispatchEntities.OfferPending {
				losingTechnicianIDs = append(losingTechnicianIDs, o.TechnicianID)
			}
		}

		amount := s.resolveAmount(ctx, technician, request)

		request.TechnicianID = &technicianID
		request.Status = requestEntities.StatusAssigned
		request.Amount = amount
		request.UpdatedAt = time.Now()
		if updateErr := s.requestRepository.UpdateInTx(tx, request); updateErr != nil {
			return fmt.Errorf("failed to assign service request: %w", updateErr)
		}

		if acceptErr := s.dispatchRepository.AcceptInTx(tx, requestID, technicianID); acceptErr != nil {
			return fmt.Errorf("failed to accept dispatch offer: %w", acceptErr)
		}

		technician.IsAvailable = false
		technician.UpdatedAt = time.Now()
		if updateErr := s.technicianRepository.UpdateInTx(tx, technician); updateErr != nil {
			return fmt.Errorf("failed to mark technician unavailable: %w", updateErr)
		}

		result = &AcceptResult{Success: true, Request: request}
		return nil
	})
	if err != nil {
		return nil, coreErrors.ServiceError("failed to accept dispatch offer: " + err.Error())
	}

	if result == nil || !result.Success {
		return result, nil
	}

	for _, loserID := range losingTechnicianIDs {
		if appErr := s.notifier.NotifyTechnician(ctx, loserID, notifierEntities.EventJobRevoked, map[string]interface{}{
			"request_id": requestID.String(),
		}); appErr != nil {
			s.logger.Error(ctx, "failed to push job:revoked", logger.Fields{"technician_id": loserID.String(), "error": appErr.Error()})
		}
	}

	winnerPayload := map[string]interface{}{
		"request_id": requestID.String(),
		"amount":     result.Request.Amount,
	}
	if appErr := s.notifier.NotifyTechnician(ctx, technicianID, notifierEntities.EventJobAssigned, winnerPayload); appErr != nil {
		s.logger.Error(ctx, "failed to push job:assigned", logger.Fields{"technician_id": technicianID.String(), "error": appErr.Error()})
	}
	if appErr := s.notifier.NotifyRequest(ctx, requestID, notifierEntities.EventJobStatusUpdate, map[string]interface{}{
		"request_id":    requestID.String(),
		"status":        string(requestEntities.StatusAssigned),
		"technician_id": technicianID.String(),
	}); appErr != nil {
		s.logger.Error(ctx, "failed to push job:status_update", logger.Fields{"request_id": requestID.String(), "error": appErr.Error()})
	}

	return result, nil
}
