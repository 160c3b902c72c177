package models

import (
	"encoding/json"

	"github.com/google/uuid"

	"github.com/resqnow/dispatch-core/features/pricing/domain/entities"
)

// PricingConfigModel is the GORM row for the PlatformPricingConfig
// singleton. ServiceBasePrices and SubscriptionPlans are heterogeneous
// nested structures stored as raw jsonb, matching the Technician model's
// hand-rolled JSON-column approach.
type PricingConfigModel struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`

	Currency              string  `gorm:"type:varchar(8);not null;default:'INR'"`
	PlatformFeePercent    float64 `gorm:"type:numeric(5,4);not null"`
	WelcomeCouponCode     string  `gorm:"type:varchar(40)"`
	WelcomeCouponPercent  float64 `gorm:"type:numeric(5,4);not null;default:0"`
	WelcomeCouponMaxUses  int     `gorm:"not null;default:0"`
	WelcomeCouponActive   bool    `gorm:"not null;default:false"`
	BookingFee            float64 `gorm:"type:numeric(12,2);not null;default:0"`
	RegistrationFee       float64 `gorm:"type:numeric(12,2);not null;default:0"`
	PayNowDiscountPercent float64 `gorm:"type:numeric(5,4);not null;default:0"`
	DefaultServiceAmount  float64 `gorm:"type:numeric(12,2);not null;default:0"`

	ServiceBasePrices []byte `gorm:"type:jsonb"`
	SubscriptionPlans []byte `gorm:"type:jsonb"`
}

// TableName pins the table name explicitly.
func (PricingConfigModel) TableName() string { return "platform_pricing_config" }

// FromEntity copies the domain entity's fields onto the model.
func (m *PricingConfigModel) FromEntity(c *entities.PlatformPricingConfig) {
	m.Currency = c.Currency
	m.PlatformFeePercent = c.PlatformFeePercent
	m.WelcomeCouponCode = c.WelcomeCoupon.Code
	m.WelcomeCouponPercent = c.WelcomeCoupon.DiscountPercent
	m.WelcomeCouponMaxUses = c.WelcomeCoupon.MaxUsesPerUser
	m.WelcomeCouponActive = c.WelcomeCoupon.Active
	m.BookingFee = c.BookingFee
	m.RegistrationFee = c.RegistrationFee
	m.PayNowDiscountPercent = c.PayNowDiscountPercent
	m.DefaultServiceAmount = c.DefaultServiceAmount
	m.ServiceBasePrices, _ = json.Marshal(c.ServiceBasePrices)
	m.SubscriptionPlans, _ = json.Marshal(c.SubscriptionPlans)
}

// ToEntity builds the domain entity from the model.
func (m *PricingConfigModel) ToEntity() *entities.PlatformPricingConfig {
	c := &entities.PlatformPricingConfig{
		Currency:           m.Currency,
		PlatformFeePercent: m.PlatformFeePercent,
		WelcomeCoupon: entities.WelcomeCoupon{
			Code:            m.WelcomeCouponCode,
			DiscountPercent: m.WelcomeCouponPercent,
			MaxUsesPerUser:  m.WelcomeCouponMaxUses,
			Active:          m.WelcomeCouponActive,
		},
		BookingFee:            m.BookingFee,
		RegistrationFee:       m.RegistrationFee,
		PayNowDiscountPercent: m.PayNowDiscountPercent,
		DefaultServiceAmount:  m.DefaultServiceAmount,
	}
	_ = json.Unmarshal(m.ServiceBasePrices, &c.ServiceBasePrices)
	_ = json.Unmarshal(m.SubscriptionPlans, &c.SubscriptionPlans)
	return c
}
