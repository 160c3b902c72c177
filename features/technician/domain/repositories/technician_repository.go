package repositories

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/resqnow/dispatch-core/features/technician/domain/entities"
)

// TechnicianRepository persists the Technician aggregate.
type TechnicianRepository interface {
	Create(ctx context.Context, technician *entities.Technician) error
	FindByID(ctx context.Context, id uuid.UUID) (*entities.Technician, error)
	// FindByIDForUpdate locks the row within tx; used by acceptJob's
	// step 2 (the technician row must be locked alongside the request
	// row within the same transaction).
	FindByIDForUpdate(tx *gorm.DB, id uuid.UUID) (*entities.Technician, error)
	Update(ctx context.Context, technician *entities.Technician) error
	// UpdateInTx performs the update using the caller's transaction
	// handle; used by acceptJob to flip is_available within the locked
	// section.
	UpdateInTx(tx *gorm.DB, technician *entities.Technician) error

	// FindDispatchCandidates returns every technician in the
	// approved/active/available/located state the Dispatch Engine may
	// consider; final eligibility (range, domain, vehicle) is decided by
	// analyzeTechnicians over this set.
	FindDispatchCandidates(ctx context.Context) ([]*entities.Technician, error)

	// SetAvailability flips is_available; the request lifecycle calls it
	// with true when the job reaches payment-pending or paid, or is
	// cancelled.
	SetAvailability(ctx context.Context, id uuid.UUID, available bool) error

	// IncrementCompletionStats increments jobs_completed and adds to
	// total_earnings; called exactly once per newly paid request.
	IncrementCompletionStats(ctx context.Context, id uuid.UUID, earned float64) error

	// IncrementCompletionStatsInTx is the transactional variant the Payment
	// Finalizer uses, since its technician-counter bump must commit or
	// roll back atomically with the Payment/Request/Invoice rows.
	IncrementCompletionStatsInTx(tx *gorm.DB, id uuid.UUID, earned float64) error
}
