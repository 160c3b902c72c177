package repositories

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/resqnow/dispatch-core/features/technician/data/models"
	"github.com/resqnow/dispatch-core/features/technician/domain/entities"
	"github.com/resqnow/dispatch-core/features/technician/domain/repositories"
)

type technicianRepositoryImpl struct {
	db *gorm.DB
}

// NewTechnicianRepository builds a GORM-backed TechnicianRepository.
func NewTechnicianRepository(db *gorm.DB) repositories.TechnicianRepository {
	return &technicianRepositoryImpl{db: db}
}

func (r *technicianRepositoryImpl) Create(ctx context.Context, technician *entities.Technician) error {
	m := &models.TechnicianModel{}
	m.FromEntity(technician)

	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return fmt.Errorf("failed to create technician: %w", err)
	}

	*technician = *m.ToEntity()
	return nil
}

func (r *technicianRepositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*entities.Technician, error) {
	m := &models.TechnicianModel{}
	if err := r.db.WithContext(ctx).First(m, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("technician not found: %w", err)
	}
	return m.ToEntity(), nil
}

func (r *technicianRepositoryImpl) FindByIDForUpdate(tx *gorm.DB, id uuid.UUID) (*entities.Technician, error) {
	m := &models.TechnicianModel{}
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(m, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("technician not found: %w", err)
	}
	return m.ToEntity(), nil
}

func (r *technicianRepositoryImpl) Update(ctx context.Context, technician *entities.Technician) error {
	m := &models.TechnicianModel{}
	m.FromEntity(technician)

	if err := r.db.WithContext(ctx).
		Model(&models.TechnicianModel{}).
		Where("id = ?", technician.ID).
		Updates(m).Error; err != nil {
		return fmt.Errorf("failed to update technician: %w", err)
	}
	return nil
}

func (r *technicianRepositoryImpl) UpdateInTx(tx *gorm.DB, technician *entities.Technician) error {
	m := &models.TechnicianModel{}
	m.FromEntity(technician)

	if err := tx.Model(&models.TechnicianModel{}).
		Where("id = ?", technician.ID).
		Updates(m).Error; err != nil {
		return fmt.Errorf("failed to update technician: %w", err)
	}
	return nil
}

// FindDispatchCandidates returns every approved, active, available, located
// technician. Final eligibility (range/domain/vehicle) is decided in-memory
// by analyzeTechnicians, since that logic depends on Haversine distance and
// the Normalizer's alias rules, not SQL predicates.
func (r *technicianRepositoryImpl) FindDispatchCandidates(ctx context.Context) ([]*entities.Technician, error) {
	var rows []models.TechnicianModel
	if err := r.db.WithContext(ctx).
		Where("approval_status = ?", string(entities.ApprovalApproved)).
		Where("is_active = ?", true).
		Where("is_available = ?", true).
		Where("lat IS NOT NULL AND lng IS NOT NULL").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to find dispatch candidates: %w", err)
	}

	out := make([]*entities.Technician, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].ToEntity())
	}
	return out, nil
}

func (r *technicianRepositoryImpl) SetAvailability(ctx context.Context, id uuid.UUID, available bool) error {
	if err := r.db.WithContext(ctx).Model(&models.TechnicianModel{}).
		Where("id = ?", id).
		Update("is_available", available).Error; err != nil {
		return fmt.Errorf("failed to set technician availability: %w", err)
	}
	return nil
}

// IncrementCompletionStats locks the row, since concurrent payment
// finalizations for different requests of the same technician must not
// lose an increment.
func (r *technicianRepositoryImpl) IncrementCompletionStats(ctx context.Context, id uuid.UUID, earned float64) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		m := &models.TechnicianModel{}
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(m, "id = ?", id).Error; err != nil {
			return err
		}
		return tx.Model(&models.TechnicianModel{}).Where("id = ?", id).
			Updates(map[string]interface{}{
				"jobs_completed": m.JobsCompleted + 1,
				"total_earnings": m.TotalEarnings + earned,
			}).Error
	})
	if err != nil {
		return fmt.Errorf("failed to increment technician completion stats: %w", err)
	}
	return nil
}

// IncrementCompletionStatsInTx performs the same locked read-modify-write
// using the caller's transaction, so the Payment Finalizer's technician
// counter bump shares the Payment->Request->Invoice lock order instead of
// opening a nested transaction.
func (r *technicianRepositoryImpl) IncrementCompletionStatsInTx(tx *gorm.DB, id uuid.UUID, earned float64) error {
	m := &models.TechnicianModel{}
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(m, "id = ?", id).Error; err != nil {
		return fmt.Errorf("failed to lock technician for completion stats: %w", err)
	}
	if err := tx.Model(&models.TechnicianModel{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"jobs_completed": m.JobsCompleted + 1,
			"total_earnings": m.TotalEarnings + earned,
		}).Error; err != nil {
		return fmt.Errorf("failed to increment technician completion stats: %w", err)
	}
	return nil
}
