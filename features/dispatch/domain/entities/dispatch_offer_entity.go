// Package entities holds the DispatchOffer aggregate and the supporting
// value types the Dispatch Engine produces (eligibility analysis, ranked
// candidates).
package entities

import (
	"time"

	"github.com/google/uuid"
)

// OfferStatus is the closed set of states a DispatchOffer moves through.
type OfferStatus string

// The closed set of offer states.
const (
	OfferPending  OfferStatus = "pending"
	OfferAccepted OfferStatus = "accepted"
	OfferRejected OfferStatus = "rejected"
	OfferExpired  OfferStatus = "expired"
)

// DispatchOffer represents one technician's chance to accept a dispatched
// job; at most one per (request, technician), and at most one per request
// may end in OfferAccepted.
type DispatchOffer struct {
	ID               uuid.UUID
	ServiceRequestID uuid.UUID
	TechnicianID     uuid.UUID
	Status           OfferStatus
	SentAt           time.Time
	ExpiresAt        time.Time
}

// RejectionReason is the closed set of eligibility-check failure codes
// analyzeTechnicians may attach to an ineligible technician.
type RejectionReason string

// The closed set of rejection reasons.
const (
	ReasonInvalidJobLocation    RejectionReason = "invalid_job_location"
	ReasonNotApproved           RejectionReason = "not_approved"
	ReasonInactive              RejectionReason = "inactive"
	ReasonUnavailable           RejectionReason = "unavailable"
	ReasonMissingLocation       RejectionReason = "missing_location"
	ReasonServiceProfileMissing RejectionReason = "service_profile_missing"
	ReasonServiceMismatch       RejectionReason = "service_mismatch"
	ReasonVehicleProfileMissing RejectionReason = "vehicle_profile_missing"
	ReasonVehicleMismatch       RejectionReason = "vehicle_mismatch"
	ReasonOutOfRange            RejectionReason = "out_of_range"
	ReasonInvalidServiceDomain  RejectionReason = "invalid_service_domain"
	ReasonInvalidVehicleType    RejectionReason = "invalid_vehicle_type"
)

// TechnicianAnalysis is one technician's eligibility verdict.
type TechnicianAnalysis struct {
	TechnicianID uuid.UUID
	Eligible     bool
	Reasons      []RejectionReason
	DistanceKm   float64
}

// AnalysisResult is analyzeTechnicians' full output.
type AnalysisResult struct {
	Criteria     AnalysisCriteria
	Analysis     []TechnicianAnalysis
	ReasonCounts map[RejectionReason]int
}

// AnalysisCriteria records the request-derived inputs the analysis ran
// against, for observability and for findTopTechnicians to reuse.
type AnalysisCriteria struct {
	RequestLat    float64
	RequestLng    float64
	ServiceDomain string
	VehicleFamily string
}

// Candidate is one eligible, ranked technician findTopTechnicians returns.
type Candidate struct {
	TechnicianID uuid.UUID
	DistanceKm   float64
	ETASeconds   float64
}
