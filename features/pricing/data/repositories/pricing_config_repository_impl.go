package repositories

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/resqnow/dispatch-core/features/pricing/data/models"
	"github.com/resqnow/dispatch-core/features/pricing/domain/entities"
	"github.com/resqnow/dispatch-core/features/pricing/domain/repositories"
)

type pricingConfigRepositoryImpl struct {
	db *gorm.DB
}

// NewPricingConfigRepository builds a GORM-backed PricingConfigRepository.
func NewPricingConfigRepository(db *gorm.DB) repositories.PricingConfigRepository {
	return &pricingConfigRepositoryImpl{db: db}
}

func (r *pricingConfigRepositoryImpl) Get(ctx context.Context) (*entities.PlatformPricingConfig, error) {
	var m models.PricingConfigModel
	err := r.db.WithContext(ctx).Order("id").First(&m).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load platform pricing config: %w", err)
	}
	return m.ToEntity(), nil
}

func (r *pricingConfigRepositoryImpl) Seed(ctx context.Context, config *entities.PlatformPricingConfig) error {
	m := &models.PricingConfigModel{ID: uuid.New()}
	m.FromEntity(config)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return fmt.Errorf("failed to seed platform pricing config: %w", err)
	}
	return nil
}

func (r *pricingConfigRepositoryImpl) Update(ctx context.Context, config *entities.PlatformPricingConfig) error {
	var existing models.PricingConfigModel
	if err := r.db.WithContext(ctx).Order("id").First(&existing).Error; err != nil {
		return fmt.Errorf("failed to load platform pricing config for update: %w", err)
	}
	m := &models.PricingConfigModel{}
	m.FromEntity(config)
	if err := r.db.WithContext(ctx).Model(&models.PricingConfigModel{}).
		Where("id = ?", existing.ID).Updates(m).Error; err != nil {
		return fmt.Errorf("failed to update platform pricing config: %w", err)
	}
	return nil
}
