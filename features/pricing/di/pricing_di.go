package di

import (
	"github.com/resqnow/dispatch-core/features/pricing/data/repositories"
	"github.com/resqnow/dispatch-core/features/pricing/domain/services"
	"github.com/resqnow/dispatch-core/features/pricing/domain/usecases"
	"go.uber.org/fx"
)

// Module provides the fx module for the pricing feature.
var Module = fx.Module("pricing",
	fx.Provide(
		repositories.NewPricingConfigRepository,
		services.NewPricingConfigService,
		services.NewPricingResolverService,
		usecases.NewPricingConfigUseCase,
	),
)
