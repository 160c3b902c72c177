package services

import (
	"github.com/resqnow/dispatch-core/core/logger"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

// Module provides the fx module for services.
var Module = fx.Module("services",
	fx.Provide(
		NewAmqpService,
		NewRedisService,
		NewGatewayService,
		NewRoutingService,
		NewPDFService,
		NewEmailService,
		func(logger logger.Logger) *gorm.DB {
			if Connector == nil {
				_ = OpenConnection(logger)
			}
			return Connector
		},
	),
)
