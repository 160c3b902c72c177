package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/resqnow/dispatch-core/features/payment/domain/entities"
)

// TechnicianDueModel is the GORM row for a TechnicianDue.
type TechnicianDueModel struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	TechnicianID     uuid.UUID `gorm:"type:uuid;not null;index"`
	ServiceRequestID uuid.UUID `gorm:"type:uuid;not null;index"`
	Amount           float64   `gorm:"type:numeric(12,2);not null;default:0"`
	Status           string    `gorm:"type:varchar(20);not null;default:'pending';index"`
	SettledAt        *time.Time
	CreatedAt        time.Time `gorm:"autoCreateTime"`
}

// TableName pins the table name explicitly.
func (TechnicianDueModel) TableName() string { return "technician_dues" }

// FromEntity copies the domain entity's fields onto the model.
func (m *TechnicianDueModel) FromEntity(d *entities.TechnicianDue) {
	m.ID = d.ID
	m.TechnicianID = d.TechnicianID
	m.ServiceRequestID = d.ServiceRequestID
	m.Amount = d.Amount
	m.Status = string(d.Status)
	m.SettledAt = d.SettledAt
	m.CreatedAt = d.CreatedAt
}

// ToEntity builds the domain entity from the model.
func (m *TechnicianDueModel) ToEntity() *entities.TechnicianDue {
	return &entities.TechnicianDue{
		ID:               m.ID,
		TechnicianID:     m.TechnicianID,
		ServiceRequestID: m.ServiceRequestID,
		Amount:           m.Amount,
		Status:           entities.TechnicianDueStatus(m.Status),
		SettledAt:        m.SettledAt,
		CreatedAt:        m.CreatedAt,
	}
}
