package services

import (
	"testing"

	"github.com/resqnow/dispatch-core/core/logger"
	normentities "github.com/resqnow/dispatch-core/features/normalize/domain/entities"
	normservices "github.com/resqnow/dispatch-core/features/normalize/domain/services"
)

func newTestResolver() PricingResolverService {
	log := logger.NewLogger()
	return NewPricingResolverService(normservices.NewNormalizerService(log), log)
}

func TestResolveTechnicianAmount_VehicleMatchedNode(t *testing.T) {
	resolver := newTestResolver()

	serviceCosts := map[string]interface{}{
		"towing": map[string]interface{}{
			"description": "flatbed only",
			"car":         map[string]interface{}{"base_charge": 600.0},
			"bike":        map[string]interface{}{"base_charge": 300.0},
		},
	}

	amount, ok := resolver.ResolveTechnicianAmount(nil, serviceCosts, normentities.DomainTowing, normentities.VehicleCar)
	if !ok || amount != 600 {
		t.Errorf("ResolveTechnicianAmount = (%v, %v), want (600, true)", amount, ok)
	}
}

func TestResolveTechnicianAmount_GenericPriceFallback(t *testing.T) {
	resolver := newTestResolver()

	serviceCosts := map[string]interface{}{
		"flat_tire": map[string]interface{}{
			"price": 250.0,
		},
	}

	amount, ok := resolver.ResolveTechnicianAmount(nil, serviceCosts, normentities.DomainFlatTire, normentities.VehicleBike)
	if !ok || amount != 250 {
		t.Errorf("ResolveTechnicianAmount = (%v, %v), want (250, true)", amount, ok)
	}
}

func TestResolveTechnicianAmount_SkipsMetadataAndNoMatch(t *testing.T) {
	resolver := newTestResolver()

	serviceCosts := map[string]interface{}{
		"description":   "general notes",
		"free_distance": 5.0,
	}

	_, ok := resolver.ResolveTechnicianAmount(nil, serviceCosts, normentities.DomainTowing, normentities.VehicleCar)
	if ok {
		t.Error("expected no match against metadata-only cost structure")
	}
}

func TestResolveTechnicianAmount_FallsBackToPricingWhenCostsMiss(t *testing.T) {
	resolver := newTestResolver()

	pricing := map[string]interface{}{
		"battery": map[string]interface{}{"amount": 400.0},
	}

	amount, ok := resolver.ResolveTechnicianAmount(pricing, map[string]interface{}{}, normentities.DomainBattery, normentities.VehicleCar)
	if !ok || amount != 400 {
		t.Errorf("ResolveTechnicianAmount = (%v, %v), want (400, true)", amount, ok)
	}
}
