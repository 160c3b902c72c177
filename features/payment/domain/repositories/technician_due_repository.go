package repositories

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/resqnow/dispatch-core/features/payment/domain/entities"
)

// TechnicianDueRepository persists the TechnicianDue aggregate.
type TechnicianDueRepository interface {
	Create(ctx context.Context, due *entities.TechnicianDue) error
	CreateInTx(tx *gorm.DB, due *entities.TechnicianDue) error

	FindByID(ctx context.Context, id uuid.UUID) (*entities.TechnicianDue, error)
	// FindByIDForUpdate locks the due row for settlement.
	FindByIDForUpdate(tx *gorm.DB, id uuid.UUID) (*entities.TechnicianDue, error)

	Update(ctx context.Context, due *entities.TechnicianDue) error
	UpdateInTx(tx *gorm.DB, due *entities.TechnicianDue) error

	// WithTransaction runs fn inside a single DB transaction, used by the
	// settlement endpoint.
	WithTransaction(ctx context.Context, fn func(tx *gorm.DB) error) error
}
