// Package entities holds the ServiceRequest aggregate: a customer's job from
// creation through dispatch, fulfillment, and payment.
package entities

import (
	"time"

	"github.com/google/uuid"
)

// RequestStatus is the closed set of lifecycle states a ServiceRequest
// moves through.
type RequestStatus string

// The full state-machine set, including the two terminal non-paid states.
const (
	StatusPending        RequestStatus = "pending"
	StatusAssigned       RequestStatus = "assigned"
	StatusAccepted       RequestStatus = "accepted"
	StatusOnTheWay       RequestStatus = "on-the-way"
	StatusArrived        RequestStatus = "arrived"
	StatusInProgress     RequestStatus = "in-progress"
	StatusPaymentPending RequestStatus = "payment-pending"
	StatusPaid           RequestStatus = "paid"
	StatusCancelled      RequestStatus = "cancelled"
	StatusRejected       RequestStatus = "rejected"
)

// PaymentStatus is the ServiceRequest's view of payment completion,
// independent of the Payment row's own status.
type PaymentStatus string

// The two payment_status values a request can carry.
const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
)

// PaymentMethod is the closed set of settlement rails a paid request used.
type PaymentMethod string

// The two supported payment methods.
const (
	PaymentMethodRazorpay PaymentMethod = "razorpay"
	PaymentMethodCash     PaymentMethod = "cash"
)

// terminalStatuses never accept a further lifecycle transition.
var terminalStatuses = map[RequestStatus]bool{
	StatusPaid:      true,
	StatusCancelled: true,
	StatusRejected:  true,
}

// ServiceRequest is a customer's roadside-assistance job.
type ServiceRequest struct {
	ID           uuid.UUID
	UserID       uuid.UUID
	TechnicianID *uuid.UUID

	ServiceType   string // canonical "{vehicle}-{domain}", e.g. "car-towing"
	VehicleType   string
	ServiceDomain string

	Address      string
	Lat          *float64
	Lng          *float64
	ContactName  string
	ContactPhone string
	ContactEmail string

	Amount float64

	AppliedCouponCode      string
	AppliedDiscountPercent float64
	AppliedDiscountAmount  float64

	PaymentStatus PaymentStatus
	PaymentMethod *PaymentMethod

	Status RequestStatus

	CreatedAt          time.Time
	UpdatedAt          time.Time
	StartedAt          *time.Time
	CompletedAt        *time.Time
	CancelledAt        *time.Time
	CancellationReason string
}

// IsTerminal reports whether the request can no longer transition.
func (r *ServiceRequest) IsTerminal() bool {
	return terminalStatuses[r.Status]
}

// CanGeneralCancel reports whether the general PATCH-driven cancel path may
// act on the request: any non-terminal state except the later on-the-job
// states, where only the dedicated /cancel route may still intervene.
func (r *ServiceRequest) CanGeneralCancel() bool {
	switch r.Status {
	case StatusArrived, StatusInProgress, StatusPaymentPending, StatusPaid, StatusCancelled, StatusRejected:
		return false
	default:
		return true
	}
}

// CanExplicitCancel reports whether the dedicated /cancel route may act:
// any state short of paid/cancelled/rejected, a strictly wider set than
// the general PATCH path.
func (r *ServiceRequest) CanExplicitCancel() bool {
	return !r.IsTerminal()
}

// IsValidLifecycleTransition reports whether newStatus is a legal
// tech-driven advance from the request's current status, per the
// pending→assigned→accepted→on-the-way→arrived→in-progress→
// payment-pending→paid progression. Cancellation and rejection-driven
// reassignment are handled by dedicated operations, not this table.
func (r *ServiceRequest) IsValidLifecycleTransition(newStatus RequestStatus) bool {
	if r.IsTerminal() {
		return false
	}
	validNext := map[RequestStatus][]RequestStatus{
		StatusPending:        {StatusAssigned},
		StatusAssigned:       {StatusAccepted, StatusRejected},
		StatusAccepted:       {StatusOnTheWay, StatusArrived, StatusInProgress},
		StatusOnTheWay:       {StatusArrived, StatusInProgress},
		StatusArrived:        {StatusInProgress},
		StatusInProgress:     {StatusPaymentPending, StatusPaid},
		StatusPaymentPending: {StatusPaid},
	}
	for _, next := range validNext[r.Status] {
		if next == newStatus {
			return true
		}
	}
	return false
}

// MarksStart reports whether entering this status should stamp started_at
// if not already set: the first on-the-job state the technician reports.
func MarksStart(status RequestStatus) bool {
	switch status {
	case StatusOnTheWay, StatusArrived, StatusInProgress:
		return true
	default:
		return false
	}
}

// MarksCompletion reports whether entering this status should stamp
// completed_at and free the technician: payment-pending or paid, since
// "completed" is always coerced into one of those two first.
func MarksCompletion(status RequestStatus) bool {
	switch status {
	case StatusPaymentPending, StatusPaid:
		return true
	default:
		return false
	}
}

// statusAliases maps the free-form status strings a technician client may
// send to their canonical kebab-case form.
var statusAliases = map[string]RequestStatus{
	"on_the_way":  StatusOnTheWay,
	"on the way":  StatusOnTheWay,
	"en_route":    StatusOnTheWay,
	"en-route":    StatusOnTheWay,
	"in_progress": StatusInProgress,
}

// NormalizeStatusAlias maps a raw status string to its canonical form,
// passing through anything already canonical or unrecognized.
func NormalizeStatusAlias(raw string) RequestStatus {
	if canonical, ok := statusAliases[raw]; ok {
		return canonical
	}
	return RequestStatus(raw)
}

// CoerceTechnicianStatus applies the "completed is coerced to
// payment-pending unless already paid" rule after alias normalization.
func CoerceTechnicianStatus(raw RequestStatus, currentStatus RequestStatus) RequestStatus {
	if raw == "completed" && currentStatus != StatusPaid {
		return StatusPaymentPending
	}
	return raw
}
