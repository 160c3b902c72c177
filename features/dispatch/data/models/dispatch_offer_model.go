package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/resqnow/dispatch-core/features/dispatch/domain/entities"
)

// DispatchOfferModel is the GORM row for a DispatchOffer.
type DispatchOfferModel struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ServiceRequestID uuid.UUID `gorm:"type:uuid;not null;index"`
	TechnicianID     uuid.UUID `gorm:"type:uuid;not null;index"`
	Status           string    `gorm:"type:varchar(20);not null;default:'pending'"`
	SentAt           time.Time `gorm:"not null"`
	ExpiresAt        time.Time `gorm:"not null"`
}

// TableName pins the table name explicitly.
func (DispatchOfferModel) TableName() string { return "dispatch_offers" }

// FromEntity copies the domain entity's fields onto the model.
func (m *DispatchOfferModel) FromEntity(o *entities.DispatchOffer) {
	m.ID = o.ID
	m.ServiceRequestID = o.ServiceRequestID
	m.TechnicianID = o.TechnicianID
	m.Status = string(o.Status)
	m.SentAt = o.SentAt
	m.ExpiresAt = o.ExpiresAt
}

// ToEntity builds the domain entity from the model.
func (m *DispatchOfferModel) ToEntity() *entities.DispatchOffer {
	return &entities.DispatchOffer{
		ID:               m.ID,
		ServiceRequestID: m.ServiceRequestID,
		TechnicianID:     m.TechnicianID,
		Status:           entities.OfferStatus(m.Status),
		SentAt:           m.SentAt,
		ExpiresAt:        m.ExpiresAt,
	}
}
