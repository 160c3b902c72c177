package repositories

import (
	"context"

	"github.com/resqnow/dispatch-core/features/pricing/domain/entities"
)

// PricingConfigRepository persists the PlatformPricingConfig singleton row.
type PricingConfigRepository interface {
	// Get returns the singleton row, or (nil, nil) if the store is empty.
	Get(ctx context.Context) (*entities.PlatformPricingConfig, error)
	// Seed inserts the default config row; called once, lazily, when Get
	// finds nothing.
	Seed(ctx context.Context, config *entities.PlatformPricingConfig) error
	// Update persists an admin edit to the singleton row.
	Update(ctx context.Context, config *entities.PlatformPricingConfig) error
}
