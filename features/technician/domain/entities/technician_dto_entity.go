package entities

import (
	normentities "github.com/resqnow/dispatch-core/features/normalize/domain/entities"
)

// RegisterTechnicianRequest is the payload an approved onboarding flow uses
// to create a technician row. Approval itself is a separate admin action.
type RegisterTechnicianRequest struct {
	Name          string `json:"name" validate:"required,min=1,max=255"`
	Email         string `json:"email" validate:"required,email"`
	Phone         string `json:"phone" validate:"omitempty,max=32"`
	PrimaryDomain string `json:"primary_service_domain" validate:"required"`
}

// UpdateLocationRequest updates a technician's current lat/lng, the input
// the Dispatch Engine's distance ranking reads.
type UpdateLocationRequest struct {
	Lat float64 `json:"lat" validate:"required"`
	Lng float64 `json:"lng" validate:"required"`
}

// SetAvailabilityRequest flips a technician's dispatch-eligibility flag.
type SetAvailabilityRequest struct {
	IsAvailable bool `json:"is_available"`
}

// UpdatePricingRequest replaces a technician's free-form pricing/service-cost
// trees; shape is opaque to this layer and interpreted only by the Pricing
// Resolver.
type UpdatePricingRequest struct {
	Pricing      map[string]interface{} `json:"pricing"`
	ServiceCosts map[string]interface{} `json:"service_costs"`
}

// ApproveTechnicianRequest is the admin decision on a pending registration.
type ApproveTechnicianRequest struct {
	Approved bool `json:"approved"`
}

// TechnicianResponse is the public projection of a Technician returned to
// API callers.
type TechnicianResponse struct {
	ID                   string                       `json:"id"`
	Name                 string                       `json:"name"`
	Email                string                       `json:"email"`
	Phone                string                       `json:"phone"`
	ApprovalStatus       ApprovalStatus               `json:"approval_status"`
	IsActive             bool                         `json:"is_active"`
	IsAvailable          bool                         `json:"is_available"`
	Online               bool                         `json:"online"`
	Lat                  *float64                     `json:"lat,omitempty"`
	Lng                  *float64                     `json:"lng,omitempty"`
	ServiceAreaRangeKm   int                          `json:"service_area_range_km"`
	PrimaryServiceDomain normentities.ServiceDomain   `json:"primary_service_domain"`
	Specialties          []normentities.ServiceDomain `json:"specialties"`
	VehicleFamilies      []normentities.VehicleFamily `json:"vehicle_families"`
	JobsCompleted        int                          `json:"jobs_completed"`
	TotalEarnings        float64                      `json:"total_earnings"`
	Rating               float64                      `json:"rating"`
}

// ToResponse projects a Technician to its public response shape.
func (t *Technician) ToResponse() *TechnicianResponse {
	resp := &TechnicianResponse{
		ID:                   t.ID.String(),
		Name:                 t.Name,
		Email:                t.Email,
		Phone:                t.Phone,
		ApprovalStatus:       t.ApprovalStatus,
		IsActive:             t.IsActive,
		IsAvailable:          t.IsAvailable,
		ServiceAreaRangeKm:   t.ServiceAreaRangeKm,
		PrimaryServiceDomain: t.PrimaryServiceDomain,
		Specialties:          t.Specialties,
		VehicleFamilies:      t.VehicleFamilies,
		JobsCompleted:        t.JobsCompleted,
		TotalEarnings:        t.TotalEarnings,
		Rating:               t.Rating,
	}
	if t.Location != nil {
		lat, lng := t.Location.Lat, t.Location.Lng
		resp.Lat, resp.Lng = &lat, &lng
	}
	return resp
}
