package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/resqnow/dispatch-core/features/payment/domain/entities"
	requestEntities "github.com/resqnow/dispatch-core/features/request/domain/entities"
)

// PaymentModel is the GORM row for a Payment.
type PaymentModel struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ServiceRequestID uuid.UUID `gorm:"type:uuid;not null;index"`
	Method           string    `gorm:"type:varchar(20);not null"`
	Status           string    `gorm:"type:varchar(20);not null;default:'pending';index"`

	GatewayOrderID   string `gorm:"type:varchar(100);index"`
	GatewayPaymentID string `gorm:"type:varchar(100);index"`

	Amount           float64 `gorm:"type:numeric(12,2);not null;default:0"`
	PlatformFee      float64 `gorm:"type:numeric(12,2);not null;default:0"`
	TechnicianAmount float64 `gorm:"type:numeric(12,2);not null;default:0"`
	IsSettled        bool    `gorm:"not null;default:false"`

	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// TableName pins the table name explicitly.
func (PaymentModel) TableName() string { return "payments" }

// FromEntity copies the domain entity's fields onto the model.
func (m *PaymentModel) FromEntity(p *entities.Payment) {
	m.ID = p.ID
	m.ServiceRequestID = p.ServiceRequestID
	m.Method = string(p.Method)
	m.Status = string(p.Status)
	m.GatewayOrderID = p.GatewayOrderID
	m.GatewayPaymentID = p.GatewayPaymentID
	m.Amount = p.Amount
	m.PlatformFee = p.PlatformFee
	m.TechnicianAmount = p.TechnicianAmount
	m.IsSettled = p.IsSettled
	m.CreatedAt = p.CreatedAt
	m.UpdatedAt = p.UpdatedAt
}

// ToEntity builds the domain entity from the model.
func (m *PaymentModel) ToEntity() *entities.Payment {
	return &entities.Payment{
		ID:               m.ID,
		ServiceRequestID: m.ServiceRequestID,
		Method:           requestEntities.PaymentMethod(m.Method),
		Status:           entities.PaymentStatus(m.Status),
		GatewayOrderID:   m.GatewayOrderID,
		GatewayPaymentID: m.GatewayPaymentID,
		Amount:           m.Amount,
		PlatformFee:      m.PlatformFee,
		TechnicianAmount: m.TechnicianAmount,
		IsSettled:        m.IsSettled,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
}
