package di

import (
	"go.uber.org/fx"

	"github.com/resqnow/dispatch-core/features/notifier/domain/services"
	"github.com/resqnow/dispatch-core/features/notifier/presentation/handlers"
)

// Module provides the fx module for the real-time notifier feature.
var Module = fx.Module("notifier",
	fx.Provide(
		services.NewNotifierService,
		handlers.NewWebSocketHandler,
	),
)
