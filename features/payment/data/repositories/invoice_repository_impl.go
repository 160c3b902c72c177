package repositories

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/resqnow/dispatch-core/features/payment/data/models"
	"github.com/resqnow/dispatch-core/features/payment/domain/entities"
	"github.com/resqnow/dispatch-core/features/payment/domain/repositories"
)

type invoiceRepositoryImpl struct {
	db *gorm.DB
}

// NewInvoiceRepository builds a GORM-backed InvoiceRepository.
func NewInvoiceRepository(db *gorm.DB) repositories.InvoiceRepository {
	return &invoiceRepositoryImpl{db: db}
}

func (r *invoiceRepositoryImpl) Create(ctx context.Context, invoice *entities.Invoice) error {
	m := &models.InvoiceModel{}
	m.FromEntity(invoice)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return fmt.Errorf("failed to create invoice: %w", err)
	}
	*invoice = *m.ToEntity()
	return nil
}

func (r *invoiceRepositoryImpl) CreateInTx(tx *gorm.DB, invoice *entities.Invoice) error {
	m := &models.InvoiceModel{}
	m.FromEntity(invoice)
	if err := tx.Create(m).Error; err != nil {
		return fmt.Errorf("failed to create invoice: %w", err)
	}
	*invoice = *m.ToEntity()
	return nil
}

func (r *invoiceRepositoryImpl) FindByOrderOrPaymentForUpdate(tx *gorm.DB, orderID, paymentID string) (*entities.Invoice, error) {
	m := &models.InvoiceModel{}
	query := tx.Clauses(clause.Locking{Strength: "UPDATE"})
	if orderID != "" && paymentID != "" {
		query = query.Where("gateway_order_id = ? OR gateway_payment_id = ?", orderID, paymentID)
	} else if orderID != "" {
		query = query.Where("gateway_order_id = ?", orderID)
	} else {
		query = query.Where("gateway_payment_id = ?", paymentID)
	}
	err := query.Order("created_at DESC").First(m).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find invoice for update: %w", err)
	}
	return m.ToEntity(), nil
}

func (r *invoiceRepositoryImpl) UpdateInTx(tx *gorm.DB, invoice *entities.Invoice) error {
	m := &models.InvoiceModel{}
	m.FromEntity(invoice)
	if err := tx.Model(&models.InvoiceModel{}).Where("id = ?", invoice.ID).Updates(m).Error; err != nil {
		return fmt.Errorf("failed to update invoice: %w", err)
	}
	return nil
}

func (r *invoiceRepositoryImpl) Update(ctx context.Context, invoice *entities.Invoice) error {
	m := &models.InvoiceModel{}
	m.FromEntity(invoice)
	if err := r.db.WithContext(ctx).Model(&models.InvoiceModel{}).Where("id = ?", invoice.ID).Updates(m).Error; err != nil {
		return fmt.Errorf("failed to update invoice: %w", err)
	}
	return nil
}
