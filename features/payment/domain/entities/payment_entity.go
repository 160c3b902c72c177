// Package entities holds the Payment Finalizer's aggregates: the Payment
// row itself, the Invoice it produces, and the TechnicianDue a cash
// settlement owes the technician.
package entities

import (
	"time"

	"github.com/google/uuid"

	requestEntities "github.com/resqnow/dispatch-core/features/request/domain/entities"
)

// PaymentStatus is the closed set of states a Payment row moves through.
type PaymentStatus string

// The closed set of payment states.
const (
	PaymentPending    PaymentStatus = "pending"
	PaymentProcessing PaymentStatus = "processing"
	PaymentCompleted  PaymentStatus = "completed"
	PaymentFailed     PaymentStatus = "failed"
)

// Payment is one gateway order's settlement record, keyed for idempotent
// upsert by (service_request_id, gateway_order_id).
type Payment struct {
	ID               uuid.UUID
	ServiceRequestID uuid.UUID
	Method           requestEntities.PaymentMethod
	Status           PaymentStatus

	GatewayOrderID   string
	GatewayPaymentID string

	Amount           float64
	PlatformFee      float64
	TechnicianAmount float64
	IsSettled        bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// InvoiceStatus is the closed set of states an Invoice moves through.
type InvoiceStatus string

// The closed set of invoice states.
const (
	InvoiceGenerated InvoiceStatus = "generated"
	InvoiceEmailed   InvoiceStatus = "emailed"
)

// Invoice is the rendered settlement document for a paid request, looked
// up by gateway order id or gateway payment id so the Finalizer never
// double-renders on a webhook replay.
type Invoice struct {
	ID               uuid.UUID
	ServiceRequestID uuid.UUID
	PaymentID        uuid.UUID
	Number           string
	Status           InvoiceStatus

	GatewayOrderID   string
	GatewayPaymentID string

	BaseAmount  float64
	PlatformFee float64
	GSTAmount   float64
	TotalAmount float64

	PDFData []byte

	CreatedAt time.Time
	UpdatedAt time.Time
}

// TechnicianDueStatus is the closed set of states a cash-settlement due
// moves through.
type TechnicianDueStatus string

// The closed set of technician-due states.
const (
	DuePending TechnicianDueStatus = "pending"
	DueSettled TechnicianDueStatus = "paid"
)

// TechnicianDue is the platform fee a technician owes the platform after
// collecting a cash payment directly from the customer.
type TechnicianDue struct {
	ID               uuid.UUID
	TechnicianID     uuid.UUID
	ServiceRequestID uuid.UUID
	Amount           float64
	Status           TechnicianDueStatus
	SettledAt        *time.Time
	CreatedAt        time.Time
}

// CouponDecision is the welcome-coupon evaluator's verdict: either the
// coupon applies (Applied, with its terms), or it doesn't (Reason explains
// why, verbatim to the user).
type CouponDecision struct {
	Applied         bool
	Code            string
	DiscountPercent float64
	Reason          string
}
