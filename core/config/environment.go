package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/resqnow/dispatch-core/core/entities"

	"github.com/joho/godotenv"
)

// GetEnv retrieves the value of the specified environment variable.
func GetEnv(key, defaultValue string) string {
	value := os.Getenv(key)

	if value != "" {
		return value
	}

	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	raw := GetEnv(key, "")
	if raw == "" {
		return defaultValue
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return defaultValue
	}
	return v
}

// EnvPort returns the port from environment variables.
func EnvPort() string {
	return GetEnv("PORT", "8000")
}

// EnvServiceID retrieves the service ID from the environment variables.
func EnvServiceID() string {
	return GetEnv("SERVICE_ID", "")
}

// EnvSentryDSN returns the Sentry DSN from environment variables.
func EnvSentryDSN() string {
	return GetEnv("SENTRY_DSN", "")
}

// EnvDBHost returns the database host from environment variables.
func EnvDBHost() string {
	return GetEnv("DB_HOST", "localhost")
}

// EnvDBPort returns the database port from environment variables.
func EnvDBPort() string {
	return GetEnv("DB_PORT", "5432")
}

// EnvDBUser returns the database user from environment variables.
func EnvDBUser() string {
	return GetEnv("DB_USER", "user")
}

// EnvDBPassword returns the database password from environment variables.
func EnvDBPassword() string {
	return GetEnv("DB_SECRET", "password")
}

// EnvDBName returns the database name from environment variables.
func EnvDBName() string {
	return GetEnv("DB_NAME", "dispatch_core_db")
}

// EnvDBDriver returns the database driver from environment variables.
func EnvDBDriver() string {
	return GetEnv("DB_DRIVER", "postgres")
}

// EnvMigrationsPath returns the directory the SQL migration executor scans.
func EnvMigrationsPath() string {
	return GetEnv("MIGRATIONS_PATH", "")
}

// EnvRedisHost returns the Redis host from environment variables.
func EnvRedisHost() string {
	return GetEnv("REDIS_HOST", "localhost")
}

// EnvRedisPort returns the Redis port from environment variables.
func EnvRedisPort() string {
	return GetEnv("REDIS_PORT", "6379")
}

// EnvRedisPassword returns the Redis password from environment variables.
func EnvRedisPassword() string {
	return GetEnv("REDIS_PASSWORD", "")
}

// EnvRedisDB returns the Redis database number from environment variables.
func EnvRedisDB() int {
	return getEnvInt("REDIS_DB", 0)
}

// EnvironmentConfig returns the environment configuration.
func EnvironmentConfig() string {
	return GetEnv("ENV", "development")
}

// EnvServiceName returns the service name from environment variables.
func EnvServiceName() string {
	return GetEnv("SERVICE_NAME", "dispatch-core")
}

func envUserAmqp() string {
	return GetEnv("USER_AMQP", "guest")
}

func envPasswordAmqp() string {
	return GetEnv("PASSWORD_AMQP", "guest")
}

func envHostAmqp() string {
	return GetEnv("HOST_AMQP", "localhost:5672")
}

// EnvAmqpConnection returns the AMQP connection string from environment variables.
func EnvAmqpConnection() string {
	return fmt.Sprintf("amqp://%s:%s@%s/", envUserAmqp(), envPasswordAmqp(), envHostAmqp())
}

// EnvGatewayKeyID returns the payment-gateway key id.
func EnvGatewayKeyID() string {
	return GetEnv("GATEWAY_KEY_ID", "")
}

// EnvGatewayKeySecret returns the payment-gateway key secret, used for order-signature HMACs.
func EnvGatewayKeySecret() string {
	return GetEnv("GATEWAY_KEY_SECRET", "")
}

// EnvGatewayWebhookSecret returns the payment-gateway webhook secret.
func EnvGatewayWebhookSecret() string {
	return GetEnv("GATEWAY_WEBHOOK_SECRET", "")
}

// EnvGatewayBaseURL returns the payment-gateway API base URL.
func EnvGatewayBaseURL() string {
	return GetEnv("GATEWAY_BASE_URL", "https://api.razorpay.com/v1")
}

// EnvRoutingServiceURL returns the ETA/routing-service base URL.
func EnvRoutingServiceURL() string {
	return GetEnv("ROUTING_SERVICE_URL", "")
}

// EnvDispatchETAMatrixLimit returns how many top-by-distance candidates get
// routing-service ETA enrichment before re-ranking.
func EnvDispatchETAMatrixLimit() int {
	return getEnvInt("DISPATCH_ETA_MATRIX_LIMIT", 25)
}

// EnvDispatchOfferTTLSeconds returns the dispatch offer expiry window.
func EnvDispatchOfferTTLSeconds() int {
	return getEnvInt("DISPATCH_OFFER_TTL_SECONDS", 20)
}

// EnvPricingConfigTTLSeconds returns the Platform Pricing Config cache TTL.
func EnvPricingConfigTTLSeconds() int {
	return getEnvInt("PRICING_CONFIG_TTL_SECONDS", 30)
}

// EnvCORSAllowOrigins returns the comma-separated CORS allow-list.
func EnvCORSAllowOrigins() []string {
	raw := GetEnv("CORS_ALLOW_ORIGINS", "*")
	parts := strings.Split(raw, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

// LoadEnvVars loads all environment variables required by the application.
func LoadEnvVars() {
	env := EnvironmentConfig()
	if env == entities.Environment.Production || env == entities.Environment.Staging {
		fmt.Printf("Not using .env file in production or staging")
		return
	}

	filename := fmt.Sprintf(".env.%s", env)

	if _, err := os.Stat(filename); os.IsNotExist(err) {
		filename = ".env"
	}

	if err := godotenv.Load(filename); err != nil {
		fmt.Printf(".env file not loaded")
	}
}
