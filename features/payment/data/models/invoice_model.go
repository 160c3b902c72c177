package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/resqnow/dispatch-core/features/payment/domain/entities"
)

// InvoiceModel is the GORM row for an Invoice.
type InvoiceModel struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ServiceRequestID uuid.UUID `gorm:"type:uuid;not null;index"`
	PaymentID        uuid.UUID `gorm:"type:uuid;not null;index"`
	Number           string    `gorm:"type:varchar(40);not null;uniqueIndex"`
	Status           string    `gorm:"type:varchar(20);not null;default:'generated'"`

	GatewayOrderID   string `gorm:"type:varchar(100);index"`
	GatewayPaymentID string `gorm:"type:varchar(100);index"`

	BaseAmount  float64 `gorm:"type:numeric(12,2);not null;default:0"`
	PlatformFee float64 `gorm:"type:numeric(12,2);not null;default:0"`
	GSTAmount   float64 `gorm:"type:numeric(12,2);not null;default:0"`
	TotalAmount float64 `gorm:"type:numeric(12,2);not null;default:0"`

	PDFData []byte `gorm:"type:bytea"`

	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// TableName pins the table name explicitly.
func (InvoiceModel) TableName() string { return "invoices" }

// FromEntity copies the domain entity's fields onto the model.
func (m *InvoiceModel) FromEntity(inv *entities.Invoice) {
	m.ID = inv.ID
	m.ServiceRequestID = inv.ServiceRequestID
	m.PaymentID = inv.PaymentID
	m.Number = inv.Number
	m.Status = string(inv.Status)
	m.GatewayOrderID = inv.GatewayOrderID
	m.GatewayPaymentID = inv.GatewayPaymentID
	m.BaseAmount = inv.BaseAmount
	m.PlatformFee = inv.PlatformFee
	m.GSTAmount = inv.GSTAmount
	m.TotalAmount = inv.TotalAmount
	m.PDFData = inv.PDFData
	m.CreatedAt = inv.CreatedAt
	m.UpdatedAt = inv.UpdatedAt
}

// ToEntity builds the domain entity from the model.
func (m *InvoiceModel) ToEntity() *entities.Invoice {
	return &entities.Invoice{
		ID:               m.ID,
		ServiceRequestID: m.ServiceRequestID,
		PaymentID:        m.PaymentID,
		Number:           m.Number,
		Status:           entities.InvoiceStatus(m.Status),
		GatewayOrderID:   m.GatewayOrderID,
		GatewayPaymentID: m.GatewayPaymentID,
		BaseAmount:       m.BaseAmount,
		PlatformFee:      m.PlatformFee,
		GSTAmount:        m.GSTAmount,
		TotalAmount:      m.TotalAmount,
		PDFData:          m.PDFData,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
}
