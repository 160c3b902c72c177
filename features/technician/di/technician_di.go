package di

import (
	"github.com/resqnow/dispatch-core/features/technician/data/repositories"
	"github.com/resqnow/dispatch-core/features/technician/domain/services"
	"github.com/resqnow/dispatch-core/features/technician/domain/usecases"
	"go.uber.org/fx"
)

// Module provides the fx module for the technician feature.
var Module = fx.Module("technician",
	fx.Provide(
		repositories.NewTechnicianRepository,
		services.NewPresenceService,
		usecases.NewTechnicianUseCase,
	),
)
