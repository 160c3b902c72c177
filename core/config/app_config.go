package config

import (
	"go.uber.org/fx"
)

// AppConfig holds the application configuration.
type AppConfig struct {
	Port        string
	ServiceID   string
	ServiceName string
	SentryDSN   string
	Environment string

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	AmqpConnection string

	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	GatewayKeyID         string
	GatewayKeySecret     string
	GatewayWebhookSecret string
	GatewayBaseURL       string

	RoutingServiceURL       string
	DispatchETAMatrixLimit  int
	DispatchOfferTTLSeconds int

	PricingConfigTTLSeconds int

	CORSAllowOrigins []string
}

// NewAppConfig creates and returns a new AppConfig instance.
func NewAppConfig() *AppConfig {
	LoadEnvVars()

	return &AppConfig{
		Port:        EnvPort(),
		ServiceID:   EnvServiceID(),
		ServiceName: EnvServiceName(),
		SentryDSN:   EnvSentryDSN(),
		Environment: EnvironmentConfig(),

		DBHost:     EnvDBHost(),
		DBPort:     EnvDBPort(),
		DBUser:     EnvDBUser(),
		DBPassword: EnvDBPassword(),
		DBName:     EnvDBName(),

		AmqpConnection: EnvAmqpConnection(),

		RedisHost:     EnvRedisHost(),
		RedisPort:     EnvRedisPort(),
		RedisPassword: EnvRedisPassword(),
		RedisDB:       EnvRedisDB(),

		GatewayKeyID:         EnvGatewayKeyID(),
		GatewayKeySecret:     EnvGatewayKeySecret(),
		GatewayWebhookSecret: EnvGatewayWebhookSecret(),
		GatewayBaseURL:       EnvGatewayBaseURL(),

		RoutingServiceURL:       EnvRoutingServiceURL(),
		DispatchETAMatrixLimit:  EnvDispatchETAMatrixLimit(),
		DispatchOfferTTLSeconds: EnvDispatchOfferTTLSeconds(),

		PricingConfigTTLSeconds: EnvPricingConfigTTLSeconds(),

		CORSAllowOrigins: EnvCORSAllowOrigins(),
	}
}

// Module provides the fx module for AppConfig.
var Module = fx.Module("config", fx.Provide(NewAppConfig))
