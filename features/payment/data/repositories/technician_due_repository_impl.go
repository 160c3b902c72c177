package repositories

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/resqnow/dispatch-core/features/payment/data/models"
	"github.com/resqnow/dispatch-core/features/payment/domain/entities"
	"github.com/resqnow/dispatch-core/features/payment/domain/repositories"
)

type technicianDueRepositoryImpl struct {
	db *gorm.DB
}

// NewTechnicianDueRepository builds a GORM-backed TechnicianDueRepository.
func NewTechnicianDueRepository(db *gorm.DB) repositories.TechnicianDueRepository {
	return &technicianDueRepositoryImpl{db: db}
}

func (r *technicianDueRepositoryImpl) Create(ctx context.Context, due *entities.TechnicianDue) error {
	m := &models.TechnicianDueModel{}
	m.FromEntity(due)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return fmt.Errorf("failed to create technician due: %w", err)
	}
	*due = *m.ToEntity()
	return nil
}

func (r *technicianDueRepositoryImpl) CreateInTx(tx *gorm.DB, due *entities.TechnicianDue) error {
	m := &models.TechnicianDueModel{}
	m.FromEntity(due)
	if err := tx.Create(m).Error; err != nil {
		return fmt.Errorf("failed to create technician due: %w", err)
	}
	*due = *m.ToEntity()
	return nil
}

func (r *technicianDueRepositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*entities.TechnicianDue, error) {
	m := &models.TechnicianDueModel{}
	err := r.db.WithContext(ctx).First(m, "id = ?", id).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find technician due: %w", err)
	}
	return m.ToEntity(), nil
}

func (r *technicianDueRepositoryImpl) FindByIDForUpdate(tx *gorm.DB, id uuid.UUID) (*entities.TechnicianDue, error) {
	m := &models.TechnicianDueModel{}
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(m, "id = ?", id).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock technician due: %w", err)
	}
	return m.ToEntity(), nil
}

func (r *technicianDueRepositoryImpl) Update(ctx context.Context, due *entities.TechnicianDue) error {
	m := &models.TechnicianDueModel{}
	m.FromEntity(due)
	if err := r.db.WithContext(ctx).Model(&models.TechnicianDueModel{}).Where("id = ?", due.ID).Updates(m).Error; err != nil {
		return fmt.Errorf("failed to update technician due: %w", err)
	}
	return nil
}

func (r *technicianDueRepositoryImpl) UpdateInTx(tx *gorm.DB, due *entities.TechnicianDue) error {
	m := &models.TechnicianDueModel{}
	m.FromEntity(due)
	if err := tx.Model(&models.TechnicianDueModel{}).Where("id = ?", due.ID).Updates(m).Error; err != nil {
		return fmt.Errorf("failed to update technician due: %w", err)
	}
	return nil
}

func (r *technicianDueRepositoryImpl) WithTransaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}
