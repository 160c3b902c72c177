package repositories

import (
	"context"

	"gorm.io/gorm"

	"github.com/resqnow/dispatch-core/features/payment/domain/entities"
)

// InvoiceRepository persists the Invoice aggregate.
type InvoiceRepository interface {
	Create(ctx context.Context, invoice *entities.Invoice) error
	CreateInTx(tx *gorm.DB, invoice *entities.Invoice) error

	// FindByOrderOrPaymentForUpdate locks the canonical invoice row for
	// either reference, enforcing the "at most one canonical invoice per
	// (order_id) or (payment_id)" invariant.
	FindByOrderOrPaymentForUpdate(tx *gorm.DB, orderID, paymentID string) (*entities.Invoice, error)

	UpdateInTx(tx *gorm.DB, invoice *entities.Invoice) error
	Update(ctx context.Context, invoice *entities.Invoice) error
}
