package di

import (
	"go.uber.org/fx"

	"github.com/resqnow/dispatch-core/features/request/data/repositories"
	"github.com/resqnow/dispatch-core/features/request/domain/services"
	"github.com/resqnow/dispatch-core/features/request/domain/usecases"
)

// Module provides the fx module for the request feature.
var Module = fx.Module("request",
	fx.Provide(
		repositories.NewRequestRepository,
		services.NewRequestLifecycleService,
		usecases.NewRequestUseCase,
	),
)
