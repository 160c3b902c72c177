package repositories

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/resqnow/dispatch-core/features/dispatch/domain/entities"
)

// DispatchRepository persists the DispatchOffer aggregate.
type DispatchRepository interface {
	// FindByRequestID returns every offer for a request, any status.
	FindByRequestID(ctx context.Context, requestID uuid.UUID) ([]*entities.DispatchOffer, error)
	// FindByRequestIDInTx is the transactional variant acceptJob uses
	// inside its locked section.
	FindByRequestIDInTx(tx *gorm.DB, requestID uuid.UUID) ([]*entities.DispatchOffer, error)
	// CreateBatch inserts new pending offers; de-duplication against
	// existing offers is the caller's responsibility (dispatchJob), not a
	// DB constraint.
	CreateBatch(ctx context.Context, offers []*entities.DispatchOffer) error
	// AcceptInTx marks the winner's offer accepted and every sibling
	// pending offer for the same request rejected, within tx.
	AcceptInTx(tx *gorm.DB, requestID, technicianID uuid.UUID) error
	// ExpirePending marks every still-pending offer whose expires_at has
	// passed as expired; used by the cosmetic expiry sweep.
	ExpirePending(ctx context.Context) (int64, error)
}
