package services

import (
	"testing"

	"github.com/resqnow/dispatch-core/core/logger"
	"github.com/resqnow/dispatch-core/features/normalize/domain/entities"
)

func TestCanonicalizeServiceDomain_Aliases(t *testing.T) {
	svc := NewNormalizerService(logger.NewLogger())

	cases := map[string]entities.ServiceDomain{
		"Towing":             entities.DomainTowing,
		"tow truck":          entities.DomainTowing,
		"Flat Tire":          entities.DomainFlatTire,
		"tyre puncture":      entities.DomainFlatTire,
		"jump-start":         entities.DomainBattery,
		"dead battery":       entities.DomainBattery,
		"breakdown":          entities.DomainMechanical,
		"out of fuel":        entities.DomainFuel,
		"Locked Out":         entities.DomainLockout,
		"winch recovery":     entities.DomainWinching,
		"EV Charging":        entities.DomainEVCharging,
		"something obscure#": entities.ServiceDomain("something-obscure"),
	}

	for raw, want := range cases {
		got := svc.CanonicalizeServiceDomain(raw)
		if got != want {
			t.Errorf("CanonicalizeServiceDomain(%q) = %q, want %q", raw, got, want)
		}
	}
}

func TestCanonicalizeVehicleFamily_Aliases(t *testing.T) {
	svc := NewNormalizerService(logger.NewLogger())

	cases := map[string]entities.VehicleFamily{
		"Car":              entities.VehicleCar,
		"sedan":            entities.VehicleCar,
		"motorcycle":       entities.VehicleBike,
		"two wheeler":      entities.VehicleBike,
		"Commercial Truck": entities.VehicleCommercial,
		"electric vehicle": entities.VehicleEV,
	}

	for raw, want := range cases {
		got := svc.CanonicalizeVehicleFamily(raw)
		if got != want {
			t.Errorf("CanonicalizeVehicleFamily(%q) = %q, want %q", raw, got, want)
		}
	}
}

// TestCanonicalizationRoundTrip verifies canonicalize(alias) =
// canonicalize(canonical) for every alias in the tables.
func TestCanonicalizationRoundTrip(t *testing.T) {
	svc := NewNormalizerService(logger.NewLogger())

	for domain, aliases := range entities.DomainAliases {
		want := svc.CanonicalizeServiceDomain(string(domain))
		for _, alias := range aliases {
			got := svc.CanonicalizeServiceDomain(alias)
			if got != want {
				t.Errorf("domain alias %q canonicalized to %q, want %q (from %q)", alias, got, want, domain)
			}
		}
	}

	for family, aliases := range entities.VehicleAliases {
		want := svc.CanonicalizeVehicleFamily(string(family))
		for _, alias := range aliases {
			got := svc.CanonicalizeVehicleFamily(alias)
			if got != want {
				t.Errorf("vehicle alias %q canonicalized to %q, want %q (from %q)", alias, got, want, family)
			}
		}
	}
}

func TestCanonicalizeServiceType_SplitsVehicleAndDomain(t *testing.T) {
	svc := NewNormalizerService(logger.NewLogger())

	vehicle, domain := svc.CanonicalizeServiceType("car-towing")
	if vehicle != entities.VehicleCar || domain != entities.DomainTowing {
		t.Errorf("CanonicalizeServiceType(car-towing) = (%q, %q)", vehicle, domain)
	}

	if got := svc.BuildServiceType(vehicle, domain); got != "car-towing" {
		t.Errorf("BuildServiceType round-trip = %q, want car-towing", got)
	}
}

func TestParseVehicleTypes_Shapes(t *testing.T) {
	svc := NewNormalizerService(logger.NewLogger())

	fromList := svc.ParseVehicleTypes([]string{"car", "bike"})
	if !fromList[entities.VehicleCar] || !fromList[entities.VehicleBike] {
		t.Errorf("ParseVehicleTypes(list) = %v", fromList)
	}

	fromMap := svc.ParseVehicleTypes(map[string]bool{"car": true, "bike": false})
	if !fromMap[entities.VehicleCar] || fromMap[entities.VehicleBike] {
		t.Errorf("ParseVehicleTypes(map) = %v", fromMap)
	}

	fromJSON := svc.ParseVehicleTypes(`["car", "commercial"]`)
	if !fromJSON[entities.VehicleCar] || !fromJSON[entities.VehicleCommercial] {
		t.Errorf("ParseVehicleTypes(json) = %v", fromJSON)
	}
}

func TestServiceDomainsFromCosts_SkipsMetadata(t *testing.T) {
	svc := NewNormalizerService(logger.NewLogger())

	costs := map[string]interface{}{
		"towing":        map[string]interface{}{"base_charge": 500},
		"flat_tire":     map[string]interface{}{"price": 300},
		"description":   "technician notes, not a domain",
		"free_distance": 5,
	}

	domains := svc.ServiceDomainsFromCosts(costs)
	found := map[entities.ServiceDomain]bool{}
	for _, d := range domains {
		found[d] = true
	}
	if !found[entities.DomainTowing] || !found[entities.DomainFlatTire] {
		t.Errorf("ServiceDomainsFromCosts missed expected domains: %v", domains)
	}
	if len(domains) != 2 {
		t.Errorf("ServiceDomainsFromCosts returned %d domains, want 2: %v", len(domains), domains)
	}
}
