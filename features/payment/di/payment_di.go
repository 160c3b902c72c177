package di

import (
	"go.uber.org/fx"

	"github.com/resqnow/dispatch-core/features/payment/data/repositories"
	"github.com/resqnow/dispatch-core/features/payment/domain/services"
	"github.com/resqnow/dispatch-core/features/payment/domain/usecases"
)

// Module provides the fx module for the payment feature.
var Module = fx.Module("payment",
	fx.Provide(
		repositories.NewPaymentRepository,
		repositories.NewInvoiceRepository,
		repositories.NewTechnicianDueRepository,
		services.NewPaymentFinalizerService,
		usecases.NewPaymentUseCase,
	),
)
