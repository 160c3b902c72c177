package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	normentities "github.com/resqnow/dispatch-core/features/normalize/domain/entities"
	"github.com/resqnow/dispatch-core/features/technician/domain/entities"
)

// TechnicianModel is the GORM row for a Technician. Pricing/ServiceCosts are
// heterogeneous JSON blobs stored as raw jsonb columns and decoded lazily by
// the Pricing Resolver; Specialties/VehicleFamilies are small closed-set
// arrays also stored as JSON for portability across drivers.
type TechnicianModel struct {
	ID    uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Name  string    `gorm:"type:varchar(255);not null"`
	Email string    `gorm:"type:varchar(255);not null;uniqueIndex"`
	Phone string    `gorm:"type:varchar(32)"`

	ApprovalStatus string `gorm:"type:varchar(20);not null;default:'pending'"`
	IsActive       bool   `gorm:"not null;default:false"`
	IsAvailable    bool   `gorm:"not null;default:false"`

	Lat                *float64 `gorm:"type:double precision"`
	Lng                *float64 `gorm:"type:double precision"`
	ServiceAreaRangeKm int      `gorm:"not null;default:10"`

	PrimaryServiceDomain string `gorm:"type:varchar(40)"`
	Specialties          []byte `gorm:"type:jsonb"`
	VehicleFamilies      []byte `gorm:"type:jsonb"`

	Pricing      []byte `gorm:"type:jsonb"`
	ServiceCosts []byte `gorm:"type:jsonb"`

	JobsCompleted int     `gorm:"not null;default:0"`
	TotalEarnings float64 `gorm:"type:numeric(12,2);not null;default:0"`
	Rating        float64 `gorm:"type:numeric(3,2);not null;default:0"`

	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// TableName pins the table name explicitly rather than relying on
// GORM's pluralization for core nouns.
func (TechnicianModel) TableName() string { return "technicians" }

// FromEntity copies the domain entity's fields onto the model.
func (m *TechnicianModel) FromEntity(t *entities.Technician) {
	m.ID = t.ID
	m.Name = t.Name
	m.Email = t.Email
	m.Phone = t.Phone
	m.ApprovalStatus = string(t.ApprovalStatus)
	m.IsActive = t.IsActive
	m.IsAvailable = t.IsAvailable
	if t.Location != nil {
		lat, lng := t.Location.Lat, t.Location.Lng
		m.Lat, m.Lng = &lat, &lng
	} else {
		m.Lat, m.Lng = nil, nil
	}
	m.ServiceAreaRangeKm = t.ServiceAreaRangeKm
	m.PrimaryServiceDomain = string(t.PrimaryServiceDomain)
	m.Specialties, _ = json.Marshal(t.Specialties)
	m.VehicleFamilies, _ = json.Marshal(t.VehicleFamilies)
	m.Pricing, _ = json.Marshal(t.Pricing)
	m.ServiceCosts, _ = json.Marshal(t.ServiceCosts)
	m.JobsCompleted = t.JobsCompleted
	m.TotalEarnings = t.TotalEarnings
	m.Rating = t.Rating
	m.CreatedAt = t.CreatedAt
	m.UpdatedAt = t.UpdatedAt
}

// ToEntity builds the domain entity from the model.
func (m *TechnicianModel) ToEntity() *entities.Technician {
	t := &entities.Technician{
		ID:                   m.ID,
		Name:                 m.Name,
		Email:                m.Email,
		Phone:                m.Phone,
		ApprovalStatus:       entities.ApprovalStatus(m.ApprovalStatus),
		IsActive:             m.IsActive,
		IsAvailable:          m.IsAvailable,
		ServiceAreaRangeKm:   m.ServiceAreaRangeKm,
		PrimaryServiceDomain: normentities.ServiceDomain(m.PrimaryServiceDomain),
		JobsCompleted:        m.JobsCompleted,
		TotalEarnings:        m.TotalEarnings,
		Rating:               m.Rating,
		CreatedAt:            m.CreatedAt,
		UpdatedAt:            m.UpdatedAt,
	}
	if m.Lat != nil && m.Lng != nil {
		t.Location = &entities.Location{Lat: *m.Lat, Lng: *m.Lng}
	}
	_ = json.Unmarshal(m.Specialties, &t.Specialties)
	_ = json.Unmarshal(m.VehicleFamilies, &t.VehicleFamilies)
	_ = json.Unmarshal(m.Pricing, &t.Pricing)
	_ = json.Unmarshal(m.ServiceCosts, &t.ServiceCosts)
	return t
}
