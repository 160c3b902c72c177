package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/resqnow/dispatch-core/features/dispatch/data/models"
	"github.com/resqnow/dispatch-core/features/dispatch/domain/entities"
	"github.com/resqnow/dispatch-core/features/dispatch/domain/repositories"
)

type dispatchRepositoryImpl struct {
	db *gorm.DB
}

// NewDispatchRepository builds a GORM-backed DispatchRepository.
func NewDispatchRepository(db *gorm.DB) repositories.DispatchRepository {
	return &dispatchRepositoryImpl{db: db}
}

func (r *dispatchRepositoryImpl) FindByRequestID(ctx context.Context, requestID uuid.UUID) ([]*entities.DispatchOffer, error) {
	var rows []models.DispatchOfferModel
	if err := r.db.WithContext(ctx).Where("service_request_id = ?", requestID).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to find dispatch offers: %w", err)
	}
	out := make([]*entities.DispatchOffer, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].ToEntity())
	}
	return out, nil
}

func (r *dispatchRepositoryImpl) FindByRequestIDInTx(tx *gorm.DB, requestID uuid.UUID) ([]*entities.DispatchOffer, error) {
	var rows []models.DispatchOfferModel
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("service_request_id = ?", requestID).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to find dispatch offers: %w", err)
	}
	out := make([]*entities.DispatchOffer, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].ToEntity())
	}
	return out, nil
}

func (r *dispatchRepositoryImpl) CreateBatch(ctx context.Context, offers []*entities.DispatchOffer) error {
	if len(offers) == 0 {
		return nil
	}
	rows := make([]models.DispatchOfferModel, len(offers))
	for i, o := range offers {
		rows[i].FromEntity(o)
	}
	if err := r.db.WithContext(ctx).Create(&rows).Error; err != nil {
		return fmt.Errorf("failed to create dispatch offers: %w", err)
	}
	for i := range rows {
		*offers[i] = *rows[i].ToEntity()
	}
	return nil
}

func (r *dispatchRepositoryImpl) AcceptInTx(tx *gorm.DB, requestID, technicianID uuid.UUID) error {
	if err := tx.Model(&models.DispatchOfferModel{}).
		Where("service_request_id = ? AND technician_id = ?", requestID, technicianID).
		Update("status", string(entities.OfferAccepted)).Error; err != nil {
		return fmt.Errorf("failed to accept dispatch offer: %w", err)
	}
	if err := tx.Model(&models.DispatchOfferModel{}).
		Where("service_request_id = ? AND technician_id <> ? AND status = ?", requestID, technicianID, string(entities.OfferPending)).
		Update("status", string(entities.OfferRejected)).Error; err != nil {
		return fmt.Errorf("failed to reject sibling dispatch offers: %w", err)
	}
	return nil
}

func (r *dispatchRepositoryImpl) ExpirePending(ctx context.Context) (int64, error) {
	result := r.db.WithContext(ctx).Model(&models.DispatchOfferModel{}).
		Where("status = ? AND expires_at < ?", string(entities.OfferPending), time.Now()).
		Update("status", string(entities.OfferExpired))
	if result.Error != nil {
		return 0, fmt.Errorf("failed to expire dispatch offers: %w", result.Error)
	}
	return result.RowsAffected, nil
}
