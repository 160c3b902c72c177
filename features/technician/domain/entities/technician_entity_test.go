package entities

import (
	"testing"

	normentities "github.com/resqnow/dispatch-core/features/normalize/domain/entities"
)

func TestEffectiveRangeKm(t *testing.T) {
	cases := []struct {
		name         string
		techRange    int
		globalRadius float64
		want         float64
	}{
		{"unlimited technician uses global", 0, 25, 25},
		{"tighter technician range wins", 5, 25, 5},
		{"global tighter than technician", 30, 25, 25},
		{"no global radius falls back to technician", 15, 0, 15},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tech := &Technician{ServiceAreaRangeKm: tc.techRange}
			if got := tech.EffectiveRangeKm(tc.globalRadius); got != tc.want {
				t.Errorf("EffectiveRangeKm(%v) = %v, want %v", tc.globalRadius, got, tc.want)
			}
		})
	}
}

func TestSupportsDomainAndVehicle(t *testing.T) {
	tech := &Technician{
		PrimaryServiceDomain: normentities.DomainTowing,
		Specialties:          []normentities.ServiceDomain{normentities.DomainBattery},
		VehicleFamilies:      []normentities.VehicleFamily{normentities.VehicleCar, normentities.VehicleBike},
	}

	if !tech.SupportsDomain(normentities.DomainTowing) {
		t.Error("expected primary domain to be supported")
	}
	if !tech.SupportsDomain(normentities.DomainBattery) {
		t.Error("expected specialty domain to be supported")
	}
	if tech.SupportsDomain(normentities.DomainLockout) {
		t.Error("did not expect unlisted domain to be supported")
	}
	if !tech.SupportsVehicle(normentities.VehicleCar) {
		t.Error("expected car to be supported")
	}
	if tech.SupportsVehicle(normentities.VehicleCommercial) {
		t.Error("did not expect commercial to be supported")
	}
}

func TestHasLocation(t *testing.T) {
	tech := &Technician{}
	if tech.HasLocation() {
		t.Error("expected no location by default")
	}
	tech.Location = &Location{Lat: 1, Lng: 2}
	if !tech.HasLocation() {
		t.Error("expected location to be set")
	}
}
