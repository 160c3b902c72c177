package di

import (
	"github.com/resqnow/dispatch-core/features/normalize/domain/services"
	"go.uber.org/fx"
)

// Module provides the fx module for the normalize feature.
var Module = fx.Module("normalize",
	fx.Provide(
		services.NewNormalizerService,
	),
)
