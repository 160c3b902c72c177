// Package services implements the Platform Pricing Config singleton and the
// Pricing Resolver that walks a technician's free-form pricing tree.
package services

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/resqnow/dispatch-core/core/config"
	"github.com/resqnow/dispatch-core/core/logger"
	coreServices "github.com/resqnow/dispatch-core/core/services"
	"github.com/resqnow/dispatch-core/features/pricing/domain/entities"
	"github.com/resqnow/dispatch-core/features/pricing/domain/repositories"
)

// redisConfigKey is the shared cache key every instance reads through;
// deleting it is how one instance's Invalidate reaches the others.
const redisConfigKey = "pricing:config"

// PricingConfigService is the process-wide, TTL-cached accessor for the
// PlatformPricingConfig singleton.
type PricingConfigService interface {
	// Get returns a deep copy of the cached config, refreshing from the
	// backing store if the TTL has elapsed or forceRefresh is set.
	Get(ctx context.Context, forceRefresh bool) (*entities.PlatformPricingConfig, error)
	// Invalidate clears the cache; the next Get reloads from the store.
	Invalidate()
	// ComputePaymentAmounts applies the platform fee and an optional
	// discount (amount overrides percent) to a base amount, rounding
	// half-away-from-zero to 2 decimals.
	ComputePaymentAmounts(config *entities.PlatformPricingConfig, baseAmount float64, discount entities.DiscountInput) entities.PaymentBreakdown
	// GetServiceMatrixAmount looks up service_base_prices[domain][vehicle],
	// falling back to other[vehicle], then default_service_amount.
	GetServiceMatrixAmount(config *entities.PlatformPricingConfig, domain, vehicle string) float64
}

type pricingConfigServiceImpl struct {
	repository repositories.PricingConfigRepository
	redis      *coreServices.RedisService
	logger     logger.Logger
	ttl        time.Duration

	mu         sync.Mutex
	cached     *entities.PlatformPricingConfig
	cachedAt   time.Time
	refreshing bool
}

// NewPricingConfigService builds the Platform Pricing Config accessor:
// an in-process TTL copy in front of a shared Redis tier in front of
// Postgres. The Redis tier is what makes Invalidate reach every running
// instance, not just the one the admin's edit landed on.
func NewPricingConfigService(repository repositories.PricingConfigRepository, redis *coreServices.RedisService, cfg *config.AppConfig, logger logger.Logger) PricingConfigService {
	ttlSeconds := cfg.PricingConfigTTLSeconds
	if ttlSeconds <= 0 {
		ttlSeconds = 30
	}
	return &pricingConfigServiceImpl{
		repository: repository,
		redis:      redis,
		logger:     logger,
		ttl:        time.Duration(ttlSeconds) * time.Second,
	}
}

// redisReady reports whether the shared cache tier is usable; Redis is
// initialized by an fx hook, and tests construct the service without it.
func (s *pricingConfigServiceImpl) redisReady() bool {
	return s.redis != nil && s.redis.GetClient() != nil
}

func (s *pricingConfigServiceImpl) Get(ctx context.Context, forceRefresh bool) (*entities.PlatformPricingConfig, error) {
	s.mu.Lock()
	fresh := s.cached != nil && !forceRefresh && time.Since(s.cachedAt) < s.ttl
	if fresh {
		config := s.cached.Clone()
		s.mu.Unlock()
		return config, nil
	}
	if s.refreshing && s.cached != nil {
		// A refresh is already in flight; serve the stale copy rather
		// than stack concurrent reloads of the same singleton row.
		config := s.cached.Clone()
		s.mu.Unlock()
		return config, nil
	}
	s.refreshing = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.refreshing = false
		s.mu.Unlock()
	}()

	config := s.loadShared(ctx, forceRefresh)
	if config == nil {
		loaded, err := s.repository.Get(ctx)
		if err != nil {
			return nil, err
		}
		config = loaded
		if config == nil {
			config = entities.DefaultPlatformPricingConfig()
			if err := s.repository.Seed(ctx, config); err != nil {
				s.logger.Error(ctx, "failed to seed platform pricing config", logger.Fields{"error": err.Error()})
				return nil, err
			}
		}
		s.storeShared(ctx, config)
	}

	s.mu.Lock()
	s.cached = config
	s.cachedAt = time.Now()
	s.mu.Unlock()

	return config.Clone(), nil
}

func (s *pricingConfigServiceImpl) Invalidate() {
	s.mu.Lock()
	s.cached = nil
	s.mu.Unlock()

	if s.redisReady() {
		if appErr := s.redis.Delete(context.Background(), redisConfigKey); appErr != nil {
			s.logger.Error(context.Background(), "failed to invalidate shared pricing config", logger.Fields{"error": appErr.Error()})
		}
	}
}

// loadShared reads the shared Redis copy; nil means miss (or Redis not
// ready, or forced refresh), sending the caller to Postgres.
func (s *pricingConfigServiceImpl) loadShared(ctx context.Context, forceRefresh bool) *entities.PlatformPricingConfig {
	if forceRefresh || !s.redisReady() {
		return nil
	}
	var config entities.PlatformPricingConfig
	if appErr := s.redis.GetWithJSON(ctx, redisConfigKey, &config); appErr != nil {
		s.logger.Error(ctx, "failed to read shared pricing config", logger.Fields{"error": appErr.Error()})
		return nil
	}
	if config.Currency == "" {
		return nil
	}
	return &config
}

// storeShared writes the freshly loaded row into the shared tier with the
// same TTL as the in-process copy.
func (s *pricingConfigServiceImpl) storeShared(ctx context.Context, config *entities.PlatformPricingConfig) {
	if !s.redisReady() {
		return
	}
	if appErr := s.redis.SetWithJSON(ctx, redisConfigKey, config, s.ttl); appErr != nil {
		s.logger.Error(ctx, "failed to store shared pricing config", logger.Fields{"error": appErr.Error()})
	}
}

func round2(amount float64) float64 {
	if amount < 0 {
		return -math.Round(-amount*100) / 100
	}
	return math.Round(amount*100) / 100
}

func (s *pricingConfigServiceImpl) ComputePaymentAmounts(config *entities.PlatformPricingConfig, baseAmount float64, discount entities.DiscountInput) entities.PaymentBreakdown {
	originalFee := round2(baseAmount * config.PlatformFeePercent)

	var discountAmount float64
	if discount.DiscountAmount != nil {
		discountAmount = round2(*discount.DiscountAmount)
	} else if discount.DiscountPercent != nil {
		discountAmount = round2(originalFee * *discount.DiscountPercent)
	}
	if discountAmount > originalFee {
		discountAmount = originalFee
	}

	platformFee := round2(originalFee - discountAmount)
	totalAmount := round2(baseAmount + platformFee)

	return entities.PaymentBreakdown{
		Currency:            config.Currency,
		BaseAmount:          round2(baseAmount),
		PlatformFeePercent:  config.PlatformFeePercent,
		OriginalPlatformFee: originalFee,
		DiscountAmount:      discountAmount,
		PlatformFee:         platformFee,
		TotalAmount:         totalAmount,
	}
}

func (s *pricingConfigServiceImpl) GetServiceMatrixAmount(config *entities.PlatformPricingConfig, domain, vehicle string) float64 {
	if byVehicle, ok := config.ServiceBasePrices[domain]; ok {
		if amount, ok := byVehicle[vehicle]; ok && amount > 0 {
			return amount
		}
	}
	if other, ok := config.ServiceBasePrices["other"]; ok {
		if amount, ok := other[vehicle]; ok && amount > 0 {
			return amount
		}
	}
	return config.DefaultServiceAmount
}
