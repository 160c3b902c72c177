// Package entities holds the PlatformPricingConfig singleton and the
// quote/coupon value types the Pricing Resolver and Payment Finalizer share.
package entities

// WelcomeCoupon is the platform's single standing first-N-services coupon.
type WelcomeCoupon struct {
	Code            string
	DiscountPercent float64
	MaxUsesPerUser  int
	Active          bool
}

// SubscriptionPlan is an ordered platform subscription tier; carried
// through unchanged, not interpreted by the dispatch/payment pipeline.
type SubscriptionPlan struct {
	Name         string
	PriceMonthly float64
	FeatureFlags []string
}

// PlatformPricingConfig is the process-wide singleton pricing state, cached
// with a TTL and lazily seeded if the backing store is empty.
type PlatformPricingConfig struct {
	Currency              string
	PlatformFeePercent    float64
	WelcomeCoupon         WelcomeCoupon
	BookingFee            float64
	RegistrationFee       float64
	PayNowDiscountPercent float64
	DefaultServiceAmount  float64
	// ServiceBasePrices maps domain -> vehicle -> amount, with an "other"
	// domain used as the vehicle-keyed fallback.
	ServiceBasePrices map[string]map[string]float64
	SubscriptionPlans []SubscriptionPlan
}

// Clone returns a deep copy; callers of Get() must never mutate the cached
// singleton in place.
func (c *PlatformPricingConfig) Clone() *PlatformPricingConfig {
	clone := *c
	clone.ServiceBasePrices = make(map[string]map[string]float64, len(c.ServiceBasePrices))
	for domain, byVehicle := range c.ServiceBasePrices {
		inner := make(map[string]float64, len(byVehicle))
		for vehicle, amount := range byVehicle {
			inner[vehicle] = amount
		}
		clone.ServiceBasePrices[domain] = inner
	}
	clone.SubscriptionPlans = append([]SubscriptionPlan(nil), c.SubscriptionPlans...)
	return &clone
}

// DefaultPlatformPricingConfig is the seed row written when the backing
// store is empty on first read.
func DefaultPlatformPricingConfig() *PlatformPricingConfig {
	return &PlatformPricingConfig{
		Currency:              "INR",
		PlatformFeePercent:    0.10,
		WelcomeCoupon:         WelcomeCoupon{Code: "RESQ10", DiscountPercent: 0.10, MaxUsesPerUser: 2, Active: true},
		BookingFee:            0,
		RegistrationFee:       0,
		PayNowDiscountPercent: 0,
		DefaultServiceAmount:  500,
		ServiceBasePrices:     map[string]map[string]float64{},
		SubscriptionPlans:     []SubscriptionPlan{},
	}
}

// PaymentBreakdown is computePaymentAmounts' output, shared by Quote,
// CreateOrder, and the Finalizer's recomputation.
type PaymentBreakdown struct {
	Currency            string  `json:"currency"`
	BaseAmount          float64 `json:"base_amount"`
	PlatformFeePercent  float64 `json:"platform_fee_percent"`
	OriginalPlatformFee float64 `json:"original_platform_fee"`
	DiscountAmount      float64 `json:"discount_amount"`
	PlatformFee         float64 `json:"platform_fee"`
	TotalAmount         float64 `json:"total_amount"`
}

// DiscountInput carries an optional explicit discount amount or percent;
// an explicit amount overrides the percent form.
type DiscountInput struct {
	DiscountPercent *float64
	DiscountAmount  *float64
}
