package repositories

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/resqnow/dispatch-core/features/payment/domain/entities"
)

// PaymentRepository persists the Payment aggregate.
type PaymentRepository interface {
	// UpsertByOrder inserts or updates the row keyed by
	// (service_request_id, gateway_order_id), the idempotency key every
	// entry point into the finalizer shares.
	UpsertByOrder(ctx context.Context, payment *entities.Payment) error
	// UpsertByOrderInTx is the transactional variant used by the finalizer.
	UpsertByOrderInTx(tx *gorm.DB, payment *entities.Payment) error

	FindByOrderID(ctx context.Context, orderID string) (*entities.Payment, error)
	// FindByOrderIDForUpdate locks the most recent Payment row for the
	// given gateway order id within tx; missing row is reported as a nil,
	// nil return so callers can map it to "payment_row_not_found".
	FindByOrderIDForUpdate(tx *gorm.DB, orderID string) (*entities.Payment, error)

	UpdateInTx(tx *gorm.DB, payment *entities.Payment) error

	Create(ctx context.Context, payment *entities.Payment) error
	CreateInTx(tx *gorm.DB, payment *entities.Payment) error

	// FindByServiceRequestID returns the most recent Payment row for the
	// request; used by cash-settlement lookups that key on request id rather than
	// gateway order id.
	FindByServiceRequestID(ctx context.Context, requestID uuid.UUID) (*entities.Payment, error)
	// FindByServiceRequestIDForUpdate locks the most recent Payment row for
	// the given request within tx; used by due settlement to set IsSettled
	// to true in the same transaction as the due's own status flip.
	FindByServiceRequestIDForUpdate(tx *gorm.DB, requestID uuid.UUID) (*entities.Payment, error)
}
