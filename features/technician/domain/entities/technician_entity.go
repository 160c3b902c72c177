// Package entities holds the Technician aggregate: the field worker who
// receives dispatch offers and, once assigned, carries a service request to
// completion.
package entities

import (
	"time"

	"github.com/google/uuid"
	normentities "github.com/resqnow/dispatch-core/features/normalize/domain/entities"
)

// ApprovalStatus is the admin-review state of a technician's registration.
type ApprovalStatus string

// The closed set of approval states.
const (
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
)

// Location is an optional lat/lng pair; a technician without one is never
// eligible for dispatch.
type Location struct {
	Lat float64
	Lng float64
}

// Technician is a field worker eligible to receive dispatch offers once
// approved, active, available, and located.
type Technician struct {
	ID    uuid.UUID
	Name  string
	Email string
	Phone string

	ApprovalStatus ApprovalStatus
	IsActive       bool
	IsAvailable    bool

	Location           *Location
	ServiceAreaRangeKm int // 0 means unlimited, not restricted

	PrimaryServiceDomain normentities.ServiceDomain
	Specialties          []normentities.ServiceDomain
	VehicleFamilies      []normentities.VehicleFamily

	// Pricing and ServiceCosts are heterogeneous JSON blobs the Pricing
	// Resolver walks directly; the canonical shape is not persisted, only
	// the raw tree as supplied by the technician.
	Pricing      map[string]interface{}
	ServiceCosts map[string]interface{}

	JobsCompleted int
	TotalEarnings float64
	Rating        float64

	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasLocation reports whether the technician has a recorded location.
func (t *Technician) HasLocation() bool {
	return t.Location != nil
}

// EffectiveRangeKm returns the technician's service radius, where 0 means
// unlimited (never out of range).
func (t *Technician) EffectiveRangeKm(globalRadiusKm float64) float64 {
	if t.ServiceAreaRangeKm == 0 {
		return globalRadiusKm
	}
	if globalRadiusKm <= 0 {
		return float64(t.ServiceAreaRangeKm)
	}
	if float64(t.ServiceAreaRangeKm) < globalRadiusKm {
		return float64(t.ServiceAreaRangeKm)
	}
	return globalRadiusKm
}

// SupportsVehicle reports whether the technician's declared vehicle
// families include the given canonical family.
func (t *Technician) SupportsVehicle(family normentities.VehicleFamily) bool {
	for _, f := range t.VehicleFamilies {
		if f == family {
			return true
		}
	}
	return false
}

// SupportsDomain reports whether the technician's primary domain or
// specialties include the given canonical domain.
func (t *Technician) SupportsDomain(domain normentities.ServiceDomain) bool {
	if t.PrimaryServiceDomain == domain {
		return true
	}
	for _, d := range t.Specialties {
		if d == domain {
			return true
		}
	}
	return false
}
