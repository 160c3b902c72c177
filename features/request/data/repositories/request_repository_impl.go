package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/resqnow/dispatch-core/features/request/data/models"
	"github.com/resqnow/dispatch-core/features/request/domain/entities"
	"github.com/resqnow/dispatch-core/features/request/domain/repositories"
)

type requestRepositoryImpl struct {
	db *gorm.DB
}

// NewRequestRepository builds a GORM-backed RequestRepository.
func NewRequestRepository(db *gorm.DB) repositories.RequestRepository {
	return &requestRepositoryImpl{db: db}
}

func (r *requestRepositoryImpl) Create(ctx context.Context, request *entities.ServiceRequest) error {
	m := &models.RequestModel{}
	m.FromEntity(request)

	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return fmt.Errorf("failed to create service request: %w", err)
	}

	*request = *m.ToEntity()
	return nil
}

func (r *requestRepositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*entities.ServiceRequest, error) {
	m := &models.RequestModel{}
	if err := r.db.WithContext(ctx).First(m, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("service request not found: %w", err)
	}
	return m.ToEntity(), nil
}

func (r *requestRepositoryImpl) FindByIDForUpdate(tx *gorm.DB, id uuid.UUID) (*entities.ServiceRequest, error) {
	m := &models.RequestModel{}
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(m, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("service request not found: %w", err)
	}
	return m.ToEntity(), nil
}

func (r *requestRepositoryImpl) Update(ctx context.Context, request *entities.ServiceRequest) error {
	m := &models.RequestModel{}
	m.FromEntity(request)

	if err := r.db.WithContext(ctx).
		Model(&models.RequestModel{}).
		Where("id = ?", request.ID).
		Updates(m).Error; err != nil {
		return fmt.Errorf("failed to update service request: %w", err)
	}

	// TechnicianID may need explicit clearing to nil, which GORM's Updates
	// skips for nil pointer fields; when the caller has set it to nil we
	// must push that NULL through. PaymentMethod is not cleared this way: a
	// nil PaymentMethod leaves the stored value unchanged.
	if request.TechnicianID == nil {
		if err := r.db.WithContext(ctx).Model(&models.RequestModel{}).
			Where("id = ?", request.ID).
			Update("technician_id", nil).Error; err != nil {
			return fmt.Errorf("failed to clear service request technician: %w", err)
		}
	}
	return nil
}

func (r *requestRepositoryImpl) UpdateInTx(tx *gorm.DB, request *entities.ServiceRequest) error {
	m := &models.RequestModel{}
	m.FromEntity(request)

	if err := tx.Model(&models.RequestModel{}).
		Where("id = ?", request.ID).
		Updates(m).Error; err != nil {
		return fmt.Errorf("failed to update service request: %w", err)
	}
	if request.TechnicianID == nil {
		if err := tx.Model(&models.RequestModel{}).
			Where("id = ?", request.ID).
			Update("technician_id", nil).Error; err != nil {
			return fmt.Errorf("failed to clear service request technician: %w", err)
		}
	}
	return nil
}

func (r *requestRepositoryImpl) FindRecentByUserAndServiceType(ctx context.Context, userID uuid.UUID, serviceType string, since time.Time) (*entities.ServiceRequest, error) {
	m := &models.RequestModel{}
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Where("service_type = ?", serviceType).
		Where("status IN ?", []string{string(entities.StatusPending), string(entities.StatusAssigned), string(entities.StatusAccepted)}).
		Where("created_at >= ?", since).
		Order("created_at DESC").
		First(m).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up recent service request: %w", err)
	}
	return m.ToEntity(), nil
}

func (r *requestRepositoryImpl) CountCompletedByUser(ctx context.Context, userID uuid.UUID, excludeRequestID uuid.UUID) (int, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.RequestModel{}).
		Where("user_id = ?", userID).
		Where("id <> ?", excludeRequestID).
		Where("status = ?", string(entities.StatusPaid)).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count completed service requests: %w", err)
	}
	return int(count), nil
}

func (r *requestRepositoryImpl) CountReservedCouponByUser(ctx context.Context, userID uuid.UUID, couponCode string, excludeRequestID uuid.UUID) (int, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.RequestModel{}).
		Where("user_id = ?", userID).
		Where("id <> ?", excludeRequestID).
		Where("applied_coupon_code = ?", couponCode).
		Where("status <> ?", string(entities.StatusCancelled)).
		Where("status <> ?", string(entities.StatusPaid)).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count reserved coupon service requests: %w", err)
	}
	return int(count), nil
}

func (r *requestRepositoryImpl) WithTransaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}
