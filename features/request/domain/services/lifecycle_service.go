// Package services implements the Request Lifecycle: creation with the
// duplicate-booking guard, technician-driven status transitions including
// rejection-reassignment, and the two distinct cancel paths.
package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	coreErrors "github.com/resqnow/dispatch-core/core/errors"
	"github.com/resqnow/dispatch-core/core/logger"

	dispatchEntities "github.com/resqnow/dispatch-core/features/dispatch/domain/entities"
	dispatchServices "github.com/resqnow/dispatch-core/features/dispatch/domain/services"
	normServices "github.com/resqnow/dispatch-core/features/normalize/domain/services"
	notifierEntities "github.com/resqnow/dispatch-core/features/notifier/domain/entities"
	notifierServices "github.com/resqnow/dispatch-core/features/notifier/domain/services"
	"github.com/resqnow/dispatch-core/features/request/domain/entities"
	"github.com/resqnow/dispatch-core/features/request/domain/repositories"
	technicianRepositories "github.com/resqnow/dispatch-core/features/technician/domain/repositories"
)

// duplicateBookingWindow is how far back CreateRequest looks for an
// existing pending/assigned/accepted request of the same service type by
// the same user before allowing a new one.
const duplicateBookingWindow = 5 * time.Minute

// RequestLifecycleService implements request creation and every status
// transition a customer or technician can drive.
type RequestLifecycleService interface {
	CreateRequest(ctx context.Context, userID uuid.UUID, input entities.CreateRequestRequest) (*entities.ServiceRequest, *coreErrors.AppError)
	GetRequest(ctx context.Context, id uuid.UUID) (*entities.ServiceRequest, *coreErrors.AppError)
	// UpdateStatus applies a technician-reported status, including the
	// rejected-triggers-reassignment rule and the completed-coercion rule.
	// A raw status of "cancelled" is routed through the general-PATCH
	// cancel gate (CanGeneralCancel) rather than the lifecycle table.
	UpdateStatus(ctx context.Context, requestID uuid.UUID, rawStatus string) (*entities.ServiceRequest, *coreErrors.AppError)
	// CancelExplicit is the dedicated /cancel route, gated by the wider
	// CanExplicitCancel rule.
	CancelExplicit(ctx context.Context, requestID uuid.UUID, reason string) (*entities.ServiceRequest, *coreErrors.AppError)
}

type requestLifecycleServiceImpl struct {
	requestRepository    repositories.RequestRepository
	technicianRepository technicianRepositories.TechnicianRepository
	dispatchEngine       dispatchServices.DispatchEngineService
	normalizer           normServices.NormalizerService
	notifier             notifierServices.NotifierService
	logger               logger.Logger
}

// NewRequestLifecycleService builds the Request Lifecycle service.
func NewRequestLifecycleService(
	requestRepository repositories.RequestRepository,
	technicianRepository technicianRepositories.TechnicianRepository,
	dispatchEngine dispatchServices.DispatchEngineService,
	normalizer normServices.NormalizerService,
	notifier notifierServices.NotifierService,
	logger logger.Logger,
) RequestLifecycleService {
	return &requestLifecycleServiceImpl{
		requestRepository:    requestRepository,
		technicianRepository: technicianRepository,
		dispatchEngine:       dispatchEngine,
		normalizer:           normalizer,
		notifier:             notifier,
		logger:               logger,
	}
}

// CreateRequest persists a new pending request, guarding against the
// customer double-booking the same service type within the duplicate
// window, then immediately runs the Dispatch Engine's find+dispatch pass.
func (s *requestLifecycleServiceImpl) CreateRequest(ctx context.Context, userID uuid.UUID, input entities.CreateRequestRequest) (*entities.ServiceRequest, *coreErrors.AppError) {
	vehicle, domain := s.normalizer.CanonicalizeServiceType(input.ServiceType)
	if input.VehicleType != "" {
		vehicle = s.normalizer.CanonicalizeVehicleFamily(input.VehicleType)
	}
	serviceType := s.normalizer.BuildServiceType(vehicle, domain)

	existing, err := s.requestRepository.FindRecentByUserAndServiceType(ctx, userID, serviceType, time.Now().Add(-duplicateBookingWindow))
	if err != nil {
		return nil, coreErrors.ServiceError("failed to check for duplicate booking: " + err.Error())
	}
	if existing != nil {
		return nil, coreErrors.ConflictError("an open request for this service type already exists", map[string]interface{}{
			"existing_request_id": existing.ID.String(),
		})
	}

	lat, lng := input.Lat, input.Lng
	request := &entities.ServiceRequest{
		ID:            uuid.New(),
		UserID:        userID,
		ServiceType:   serviceType,
		VehicleType:   string(vehicle),
		ServiceDomain: string(domain),
		Address:       input.Address,
		Lat:           &lat,
		Lng:           &lng,
		ContactName:   input.ContactName,
		ContactPhone:  input.ContactPhone,
		ContactEmail:  input.ContactEmail,
		PaymentStatus: entities.PaymentStatusPending,
		Status:        entities.StatusPending,
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	}

	if input.CouponCode != "" {
		request.AppliedCouponCode = input.CouponCode
	}

	if err := s.requestRepository.Create(ctx, request); err != nil {
		return nil, coreErrors.RepositoryError("failed to create service request: " + err.Error())
	}

	s.dispatch(ctx, request)

	return request, nil
}

// dispatch runs findTopTechnicians+dispatchJob for a freshly created or
// re-entered pending request. Failures are logged, never surfaced: a
// customer's booking must succeed even if no technician is currently
// eligible, since the offer fan-out can be retried later.
func (s *requestLifecycleServiceImpl) dispatch(ctx context.Context, request *entities.ServiceRequest) {
	candidates, appErr := s.dispatchEngine.FindTopTechnicians(ctx, request, 0)
	if appErr != nil {
		s.logger.Error(ctx, "failed to find dispatch candidates", logger.Fields{"request_id": request.ID.String(), "error": appErr.Error()})
		return
	}
	if len(candidates) == 0 {
		s.logger.Info(ctx, "no eligible technicians for request", logger.Fields{"request_id": request.ID.String()})
		return
	}
	if appErr := s.dispatchEngine.DispatchJob(ctx, request.ID, candidates); appErr != nil {
		s.logger.Error(ctx, "failed to dispatch job", logger.Fields{"request_id": request.ID.String(), "error": appErr.Error()})
	}
}

// GetRequest returns a single request by id.
func (s *requestLifecycleServiceImpl) GetRequest(ctx context.Context, id uuid.UUID) (*entities.ServiceRequest, *coreErrors.AppError) {
	request, err := s.requestRepository.FindByID(ctx, id)
	if err != nil {
		return nil, coreErrors.NotFound("service request not found")
	}
	return request, nil
}

// UpdateStatus normalizes the raw status alias, applies the
// completed-coercion rule, then routes to either the rejection-reassignment
// path, the general-cancel path, or the ordinary lifecycle-table check.
func (s *requestLifecycleServiceImpl) UpdateStatus(ctx context.Context, requestID uuid.UUID, rawStatus string) (*entities.ServiceRequest, *coreErrors.AppError) {
	request, err := s.requestRepository.FindByID(ctx, requestID)
	if err != nil {
		return nil, coreErrors.NotFound("service request not found")
	}
	if request.IsTerminal() {
		return nil, coreErrors.ConflictError("service request is already in a terminal state")
	}

	normalized := entities.NormalizeStatusAlias(rawStatus)

	if normalized == entities.StatusRejected {
		return s.reassign(ctx, request)
	}
	if normalized == entities.StatusCancelled {
		return s.cancel(ctx, request, "cancelled by status update", request.CanGeneralCancel())
	}

	coerced := entities.CoerceTechnicianStatus(normalized, request.Status)
	if !request.IsValidLifecycleTransition(coerced) {
		return nil, coreErrors.ConflictError("invalid status transition from " + string(request.Status) + " to " + string(coerced))
	}

	now := time.Now()
	if entities.MarksStart(coerced) && request.StartedAt == nil {
		request.StartedAt = &now
	}
	if entities.MarksCompletion(coerced) {
		request.CompletedAt = &now
		if request.TechnicianID != nil {
			if err := s.technicianRepository.SetAvailability(ctx, *request.TechnicianID, true); err != nil {
				s.logger.Error(ctx, "failed to free technician on completion", logger.Fields{"error": err.Error()})
			}
		}
	}
	request.Status = coerced
	request.UpdatedAt = now

	if err := s.requestRepository.Update(ctx, request); err != nil {
		return nil, coreErrors.RepositoryError("failed to update service request status: " + err.Error())
	}

	s.pushStatusUpdate(ctx, request)
	return request, nil
}

// reassign implements the rejected-triggers-reassignment rule: search the
// next best candidate excluding the rejecting technician; assign directly
// if found, otherwise clear technician_id and re-enter pending dispatch.
func (s *requestLifecycleServiceImpl) reassign(ctx context.Context, request *entities.ServiceRequest) (*entities.ServiceRequest, *coreErrors.AppError) {
	rejectingTechnicianID := request.TechnicianID

	candidates, appErr := s.dispatchEngine.FindTopTechnicians(ctx, request, 0)
	if appErr != nil {
		return nil, appErr
	}

	var next *dispatchEntities.Candidate
	for i := range candidates {
		if rejectingTechnicianID == nil || candidates[i].TechnicianID != *rejectingTechnicianID {
			next = &candidates[i]
			break
		}
	}

	now := time.Now()
	if next == nil {
		request.TechnicianID = nil
		request.Status = entities.StatusPending
		request.UpdatedAt = now
		if err := s.requestRepository.Update(ctx, request); err != nil {
			return nil, coreErrors.RepositoryError("failed to clear rejected request: " + err.Error())
		}
		s.dispatch(ctx, request)
		return request, nil
	}

	technician, err := s.technicianRepository.FindByID(ctx, next.TechnicianID)
	if err != nil {
		return nil, coreErrors.ServiceError("failed to load reassignment candidate: " + err.Error())
	}

	technicianID := next.TechnicianID
	request.TechnicianID = &technicianID
	request.Status = entities.StatusAssigned
	request.Amount = s.dispatchEngine.ResolveAmount(ctx, technician, request)
	request.UpdatedAt = now

	if err := s.requestRepository.Update(ctx, request); err != nil {
		return nil, coreErrors.RepositoryError("failed to reassign service request: " + err.Error())
	}

	if appErr := s.notifier.NotifyTechnician(ctx, technicianID, notifierEntities.EventJobAssigned, map[string]interface{}{
		"request_id": request.ID.String(),
		"amount":     request.Amount,
	}); appErr != nil {
		s.logger.Error(ctx, "failed to push job:assigned on reassignment", logger.Fields{"error": appErr.Error()})
	}
	s.pushStatusUpdate(ctx, request)

	return request, nil
}

// CancelExplicit is the dedicated /cancel route, gated by CanExplicitCancel.
func (s *requestLifecycleServiceImpl) CancelExplicit(ctx context.Context, requestID uuid.UUID, reason string) (*entities.ServiceRequest, *coreErrors.AppError) {
	request, err := s.requestRepository.FindByID(ctx, requestID)
	if err != nil {
		return nil, coreErrors.NotFound("service request not found")
	}
	return s.cancel(ctx, request, reason, request.CanExplicitCancel())
}

func (s *requestLifecycleServiceImpl) cancel(ctx context.Context, request *entities.ServiceRequest, reason string, allowed bool) (*entities.ServiceRequest, *coreErrors.AppError) {
	if !allowed {
		return nil, coreErrors.ConflictError("service request cannot be cancelled from its current state")
	}

	now := time.Now()
	if request.TechnicianID != nil {
		if err := s.technicianRepository.SetAvailability(ctx, *request.TechnicianID, true); err != nil {
			s.logger.Error(ctx, "failed to free technician on cancel", logger.Fields{"error": err.Error()})
		}
	}
	request.TechnicianID = nil
	request.Status = entities.StatusCancelled
	request.CancelledAt = &now
	request.CancellationReason = reason
	request.UpdatedAt = now

	if err := s.requestRepository.Update(ctx, request); err != nil {
		return nil, coreErrors.RepositoryError("failed to cancel service request: " + err.Error())
	}

	s.pushStatusUpdate(ctx, request)
	return request, nil
}

func (s *requestLifecycleServiceImpl) pushStatusUpdate(ctx context.Context, request *entities.ServiceRequest) {
	payload := map[string]interface{}{
		"request_id": request.ID.String(),
		"status":     string(request.Status),
	}
	if appErr := s.notifier.NotifyUser(ctx, request.UserID, notifierEntities.EventJobStatusUpdate, payload, &request.ID); appErr != nil {
		s.logger.Error(ctx, "failed to push job:status_update to user", logger.Fields{"error": appErr.Error()})
	}
	if request.TechnicianID != nil {
		if appErr := s.notifier.NotifyTechnician(ctx, *request.TechnicianID, notifierEntities.EventJobStatusUpdate, payload); appErr != nil {
			s.logger.Error(ctx, "failed to push job:status_update to technician", logger.Fields{"error": appErr.Error()})
		}
	}
}
