package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/resqnow/dispatch-core/features/request/domain/entities"
)

// RequestRepository persists the ServiceRequest aggregate.
type RequestRepository interface {
	Create(ctx context.Context, request *entities.ServiceRequest) error
	FindByID(ctx context.Context, id uuid.UUID) (*entities.ServiceRequest, error)
	// FindByIDForUpdate locks the row within tx; callers must already be
	// inside a transaction. Used by acceptJob and the Payment Finalizer,
	// matching the fixed Payment -> Request -> Invoice lock order.
	FindByIDForUpdate(tx *gorm.DB, id uuid.UUID) (*entities.ServiceRequest, error)
	Update(ctx context.Context, request *entities.ServiceRequest) error
	// UpdateInTx performs the update using the caller's transaction handle.
	UpdateInTx(tx *gorm.DB, request *entities.ServiceRequest) error

	// FindRecentByUserAndServiceType supports the duplicate-booking guard:
	// any pending/assigned/accepted request by this user for this service
	// type created within the given window.
	FindRecentByUserAndServiceType(ctx context.Context, userID uuid.UUID, serviceType string, since time.Time) (*entities.ServiceRequest, error)

	// CountCompletedByUser returns the user's other paid requests, for the
	// welcome-coupon completedServicesCount input.
	CountCompletedByUser(ctx context.Context, userID uuid.UUID, excludeRequestID uuid.UUID) (int, error)

	// CountReservedCouponByUser returns the user's other non-cancelled,
	// not-yet-completed requests with the given applied coupon code.
	CountReservedCouponByUser(ctx context.Context, userID uuid.UUID, couponCode string, excludeRequestID uuid.UUID) (int, error)

	// WithTransaction runs fn inside a single DB transaction, used by
	// acceptJob and the Payment Finalizer to compose multi-table locking.
	WithTransaction(ctx context.Context, fn func(tx *gorm.DB) error) error
}
