package services

import (
	"testing"

	"github.com/resqnow/dispatch-core/features/pricing/domain/entities"
)

func TestRound2_HalfAwayFromZero(t *testing.T) {
	cases := map[float64]float64{
		1.125:  1.13,
		1.004:  1.00,
		-1.125: -1.13,
		50.0:   50.0,
		45.4:   45.4,
	}
	for input, want := range cases {
		if got := round2(input); got != want {
			t.Errorf("round2(%v) = %v, want %v", input, got, want)
		}
	}
}

func TestComputePaymentAmounts_NoDiscount(t *testing.T) {
	svc := &pricingConfigServiceImpl{}
	config := &entities.PlatformPricingConfig{Currency: "INR", PlatformFeePercent: 0.10}

	breakdown := svc.ComputePaymentAmounts(config, 500, entities.DiscountInput{})

	if breakdown.OriginalPlatformFee != 50 {
		t.Errorf("OriginalPlatformFee = %v, want 50", breakdown.OriginalPlatformFee)
	}
	if breakdown.DiscountAmount != 0 {
		t.Errorf("DiscountAmount = %v, want 0", breakdown.DiscountAmount)
	}
	if breakdown.PlatformFee != 50 {
		t.Errorf("PlatformFee = %v, want 50", breakdown.PlatformFee)
	}
	if breakdown.TotalAmount != 550 {
		t.Errorf("TotalAmount = %v, want 550", breakdown.TotalAmount)
	}
}

// TestComputePaymentAmounts_CouponDiscount exercises end-to-end scenario 3
// base=500, fee_percent=0.10, coupon discount_percent=0.10.
func TestComputePaymentAmounts_CouponDiscount(t *testing.T) {
	svc := &pricingConfigServiceImpl{}
	config := &entities.PlatformPricingConfig{Currency: "INR", PlatformFeePercent: 0.10}

	percent := 0.10
	breakdown := svc.ComputePaymentAmounts(config, 500, entities.DiscountInput{DiscountPercent: &percent})

	if breakdown.OriginalPlatformFee != 50 {
		t.Errorf("OriginalPlatformFee = %v, want 50", breakdown.OriginalPlatformFee)
	}
	if breakdown.DiscountAmount != 5 {
		t.Errorf("DiscountAmount = %v, want 5", breakdown.DiscountAmount)
	}
	if breakdown.PlatformFee != 45 {
		t.Errorf("PlatformFee = %v, want 45", breakdown.PlatformFee)
	}
	if breakdown.TotalAmount != 545 {
		t.Errorf("TotalAmount = %v, want 545", breakdown.TotalAmount)
	}
}

func TestComputePaymentAmounts_ExplicitDiscountOverridesPercent(t *testing.T) {
	svc := &pricingConfigServiceImpl{}
	config := &entities.PlatformPricingConfig{Currency: "INR", PlatformFeePercent: 0.10}

	percent := 0.50
	amount := 5.0
	breakdown := svc.ComputePaymentAmounts(config, 500, entities.DiscountInput{DiscountPercent: &percent, DiscountAmount: &amount})

	if breakdown.DiscountAmount != 5 {
		t.Errorf("DiscountAmount = %v, want 5 (explicit amount should override percent)", breakdown.DiscountAmount)
	}
}

func TestGetServiceMatrixAmount_FallbackChain(t *testing.T) {
	svc := &pricingConfigServiceImpl{}
	config := &entities.PlatformPricingConfig{
		DefaultServiceAmount: 500,
		ServiceBasePrices: map[string]map[string]float64{
			"towing": {"car": 600},
			"other":  {"bike": 300},
		},
	}

	if got := svc.GetServiceMatrixAmount(config, "towing", "car"); got != 600 {
		t.Errorf("domain+vehicle match = %v, want 600", got)
	}
	if got := svc.GetServiceMatrixAmount(config, "towing", "bike"); got != 300 {
		t.Errorf("no vehicle match under towing, other[bike] fallback = %v, want 300", got)
	}
	if got := svc.GetServiceMatrixAmount(config, "battery", "bike"); got != 300 {
		t.Errorf("other[vehicle] fallback = %v, want 300", got)
	}
	if got := svc.GetServiceMatrixAmount(config, "battery", "car"); got != 500 {
		t.Errorf("default fallback = %v, want 500", got)
	}
}
