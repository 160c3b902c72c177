package repositories

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/resqnow/dispatch-core/features/payment/data/models"
	"github.com/resqnow/dispatch-core/features/payment/domain/entities"
	"github.com/resqnow/dispatch-core/features/payment/domain/repositories"
)

type paymentRepositoryImpl struct {
	db *gorm.DB
}

// NewPaymentRepository builds a GORM-backed PaymentRepository.
func NewPaymentRepository(db *gorm.DB) repositories.PaymentRepository {
	return &paymentRepositoryImpl{db: db}
}

func (r *paymentRepositoryImpl) upsert(tx *gorm.DB, payment *entities.Payment) error {
	existing := &models.PaymentModel{}
	err := tx.Where("service_request_id = ? AND gateway_order_id = ?", payment.ServiceRequestID, payment.GatewayOrderID).
		First(existing).Error
	if err == nil {
		m := &models.PaymentModel{}
		m.FromEntity(payment)
		if err := tx.Model(&models.PaymentModel{}).Where("id = ?", existing.ID).Updates(m).Error; err != nil {
			return fmt.Errorf("failed to update payment: %w", err)
		}
		payment.ID = existing.ID
		payment.CreatedAt = existing.CreatedAt
		return nil
	}
	if err != gorm.ErrRecordNotFound {
		return fmt.Errorf("failed to look up payment: %w", err)
	}

	m := &models.PaymentModel{}
	m.FromEntity(payment)
	if err := tx.Create(m).Error; err != nil {
		return fmt.Errorf("failed to create payment: %w", err)
	}
	*payment = *m.ToEntity()
	return nil
}

func (r *paymentRepositoryImpl) UpsertByOrder(ctx context.Context, payment *entities.Payment) error {
	return r.upsert(r.db.WithContext(ctx), payment)
}

func (r *paymentRepositoryImpl) UpsertByOrderInTx(tx *gorm.DB, payment *entities.Payment) error {
	return r.upsert(tx, payment)
}

func (r *paymentRepositoryImpl) FindByOrderID(ctx context.Context, orderID string) (*entities.Payment, error) {
	m := &models.PaymentModel{}
	err := r.db.WithContext(ctx).Where("gateway_order_id = ?", orderID).Order("created_at DESC").First(m).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find payment: %w", err)
	}
	return m.ToEntity(), nil
}

func (r *paymentRepositoryImpl) FindByOrderIDForUpdate(tx *gorm.DB, orderID string) (*entities.Payment, error) {
	m := &models.PaymentModel{}
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("gateway_order_id = ?", orderID).Order("created_at DESC").First(m).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find payment for update: %w", err)
	}
	return m.ToEntity(), nil
}

func (r *paymentRepositoryImpl) UpdateInTx(tx *gorm.DB, payment *entities.Payment) error {
	m := &models.PaymentModel{}
	m.FromEntity(payment)
	if err := tx.Model(&models.PaymentModel{}).Where("id = ?", payment.ID).Updates(m).Error; err != nil {
		return fmt.Errorf("failed to update payment: %w", err)
	}
	return nil
}

func (r *paymentRepositoryImpl) Create(ctx context.Context, payment *entities.Payment) error {
	m := &models.PaymentModel{}
	m.FromEntity(payment)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return fmt.Errorf("failed to create payment: %w", err)
	}
	*payment = *m.ToEntity()
	return nil
}

func (r *paymentRepositoryImpl) CreateInTx(tx *gorm.DB, payment *entities.Payment) error {
	m := &models.PaymentModel{}
	m.FromEntity(payment)
	if err := tx.Create(m).Error; err != nil {
		return fmt.Errorf("failed to create payment: %w", err)
	}
	*payment = *m.ToEntity()
	return nil
}

func (r *paymentRepositoryImpl) FindByServiceRequestID(ctx context.Context, requestID uuid.UUID) (*entities.Payment, error) {
	m := &models.PaymentModel{}
	err := r.db.WithContext(ctx).Where("service_request_id = ?", requestID).Order("created_at DESC").First(m).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find payment by request: %w", err)
	}
	return m.ToEntity(), nil
}

func (r *paymentRepositoryImpl) FindByServiceRequestIDForUpdate(tx *gorm.DB, requestID uuid.UUID) (*entities.Payment, error) {
	m := &models.PaymentModel{}
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("service_request_id = ?", requestID).Order("created_at DESC").First(m).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock payment by request: %w", err)
	}
	return m.ToEntity(), nil
}
