package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/resqnow/dispatch-core/features/request/domain/entities"
)

// RequestModel is the GORM row for a ServiceRequest.
type RequestModel struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserID       uuid.UUID  `gorm:"type:uuid;not null;index"`
	TechnicianID *uuid.UUID `gorm:"type:uuid;index"`

	ServiceType   string `gorm:"type:varchar(80);not null"`
	VehicleType   string `gorm:"type:varchar(40);not null"`
	ServiceDomain string `gorm:"type:varchar(40);not null"`

	Address      string   `gorm:"type:varchar(500)"`
	Lat          *float64 `gorm:"type:double precision"`
	Lng          *float64 `gorm:"type:double precision"`
	ContactName  string   `gorm:"type:varchar(255)"`
	ContactPhone string   `gorm:"type:varchar(32)"`
	ContactEmail string   `gorm:"type:varchar(255)"`

	Amount float64 `gorm:"type:numeric(12,2);not null;default:0"`

	AppliedCouponCode      string  `gorm:"type:varchar(40)"`
	AppliedDiscountPercent float64 `gorm:"type:numeric(5,4);not null;default:0"`
	AppliedDiscountAmount  float64 `gorm:"type:numeric(12,2);not null;default:0"`

	PaymentStatus string  `gorm:"type:varchar(20);not null;default:'pending'"`
	PaymentMethod *string `gorm:"type:varchar(20)"`

	Status string `gorm:"type:varchar(20);not null;default:'pending';index"`

	CreatedAt          time.Time `gorm:"autoCreateTime"`
	UpdatedAt          time.Time `gorm:"autoUpdateTime"`
	StartedAt          *time.Time
	CompletedAt        *time.Time
	CancelledAt        *time.Time
	CancellationReason string `gorm:"type:varchar(500)"`
}

// TableName pins the table name explicitly.
func (RequestModel) TableName() string { return "service_requests" }

// FromEntity copies the domain entity's fields onto the model.
func (m *RequestModel) FromEntity(r *entities.ServiceRequest) {
	m.ID = r.ID
	m.UserID = r.UserID
	m.TechnicianID = r.TechnicianID
	m.ServiceType = r.ServiceType
	m.VehicleType = r.VehicleType
	m.ServiceDomain = r.ServiceDomain
	m.Address = r.Address
	m.Lat = r.Lat
	m.Lng = r.Lng
	m.ContactName = r.ContactName
	m.ContactPhone = r.ContactPhone
	m.ContactEmail = r.ContactEmail
	m.Amount = r.Amount
	m.AppliedCouponCode = r.AppliedCouponCode
	m.AppliedDiscountPercent = r.AppliedDiscountPercent
	m.AppliedDiscountAmount = r.AppliedDiscountAmount
	m.PaymentStatus = string(r.PaymentStatus)
	if r.PaymentMethod != nil {
		method := string(*r.PaymentMethod)
		m.PaymentMethod = &method
	} else {
		m.PaymentMethod = nil
	}
	m.Status = string(r.Status)
	m.CreatedAt = r.CreatedAt
	m.UpdatedAt = r.UpdatedAt
	m.StartedAt = r.StartedAt
	m.CompletedAt = r.CompletedAt
	m.CancelledAt = r.CancelledAt
	m.CancellationReason = r.CancellationReason
}

// ToEntity builds the domain entity from the model.
func (m *RequestModel) ToEntity() *entities.ServiceRequest {
	r := &entities.ServiceRequest{
		ID:                     m.ID,
		UserID:                 m.UserID,
		TechnicianID:           m.TechnicianID,
		ServiceType:            m.ServiceType,
		VehicleType:            m.VehicleType,
		ServiceDomain:          m.ServiceDomain,
		Address:                m.Address,
		Lat:                    m.Lat,
		Lng:                    m.Lng,
		ContactName:            m.ContactName,
		ContactPhone:           m.ContactPhone,
		ContactEmail:           m.ContactEmail,
		Amount:                 m.Amount,
		AppliedCouponCode:      m.AppliedCouponCode,
		AppliedDiscountPercent: m.AppliedDiscountPercent,
		AppliedDiscountAmount:  m.AppliedDiscountAmount,
		PaymentStatus:          entities.PaymentStatus(m.PaymentStatus),
		Status:                 entities.RequestStatus(m.Status),
		CreatedAt:              m.CreatedAt,
		UpdatedAt:              m.UpdatedAt,
		StartedAt:              m.StartedAt,
		CompletedAt:            m.CompletedAt,
		CancelledAt:            m.CancelledAt,
		CancellationReason:     m.CancellationReason,
	}
	if m.PaymentMethod != nil {
		method := entities.PaymentMethod(*m.PaymentMethod)
		r.PaymentMethod = &method
	}
	return r
}
