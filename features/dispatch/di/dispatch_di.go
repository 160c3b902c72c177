package di

import (
	"context"

	"go.uber.org/fx"

	"github.com/resqnow/dispatch-core/features/dispatch/data/repositories"
	"github.com/resqnow/dispatch-core/features/dispatch/domain/services"
	"github.com/resqnow/dispatch-core/features/dispatch/domain/usecases"
)

// Module provides the fx module for the dispatch feature.
var Module = fx.Module("dispatch",
	fx.Provide(
		repositories.NewDispatchRepository,
		services.NewDispatchEngineService,
		services.NewExpirySweeper,
		usecases.NewDispatchUseCase,
	),
	fx.Invoke(func(lc fx.Lifecycle, sweeper *services.ExpirySweeper) {
		lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				return sweeper.Start()
			},
			OnStop: func(ctx context.Context) error {
				sweeper.Stop()
				return nil
			},
		})
	}),
)
