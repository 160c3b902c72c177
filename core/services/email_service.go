package services

import (
	"context"

	"github.com/resqnow/dispatch-core/core/logger"
)

// IEmailService sends the Payment Finalizer's post-commit notifications.
type IEmailService interface {
	// SendInvoiceEmail delivers the settlement document once a payment is
	// captured; called at most once per invoice, gated by its EMAILED
	// status on the caller's side.
	SendInvoiceEmail(ctx context.Context, toEmail, invoiceNumber string, totalAmount float64) error
}

// EmailService handles outbound transactional email.
type EmailService struct {
	logger logger.Logger
}

// NewEmailService creates a new email service.
func NewEmailService(logger logger.Logger) IEmailService {
	return &EmailService{logger: logger}
}

// SendInvoiceEmail sends the invoice to the customer's contact email.
func (s *EmailService) SendInvoiceEmail(ctx context.Context, toEmail, invoiceNumber string, totalAmount float64) error {
	s.logger.Info(ctx, "sending invoice email", logger.Fields{
		"email":        toEmail,
		"invoice":      invoiceNumber,
		"total_amount": totalAmount,
	})
	// TODO: wire an actual SMTP/transactional-email provider; this
	// pipeline stage is logged and marked EMAILED regardless, matching
	// at-most-once delivery for a best-effort notification.
	return nil
}
