// Package services implements the Payment Finalizer: an idempotent
// quote -> order -> verify -> capture -> invoice -> ledger -> notify
// pipeline reachable from the client confirm path, the gateway webhook,
// and the cash-settlement path.
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	coreErrors "github.com/resqnow/dispatch-core/core/errors"
	"github.com/resqnow/dispatch-core/core/logger"
	coreServices "github.com/resqnow/dispatch-core/core/services"

	normServices "github.com/resqnow/dispatch-core/features/normalize/domain/services"
	notifierEntities "github.com/resqnow/dispatch-core/features/notifier/domain/entities"
	notifierServices "github.com/resqnow/dispatch-core/features/notifier/domain/services"
	"github.com/resqnow/dispatch-core/features/payment/domain/entities"
	"github.com/resqnow/dispatch-core/features/payment/domain/repositories"
	pricingEntities "github.com/resqnow/dispatch-core/features/pricing/domain/entities"
	pricingServices "github.com/resqnow/dispatch-core/features/pricing/domain/services"
	requestEntities "github.com/resqnow/dispatch-core/features/request/domain/entities"
	requestRepositories "github.com/resqnow/dispatch-core/features/request/domain/repositories"
	technicianRepositories "github.com/resqnow/dispatch-core/features/technician/domain/repositories"
)

// FinalizeResult is finalizeCapturedServicePayment's outcome. PaymentRowNotFound
// is a normal retry signal, never an error: both the confirm path and the
// webhook path upsert a pending row and try once more when they see it.
type FinalizeResult struct {
	PaymentRowNotFound bool
	Duplicate          bool
	Request            *requestEntities.ServiceRequest
}

// PaymentFinalizerService implements the Payment Finalizer described by
// pipeline: quote, order creation, client confirmation, the idempotent
// capture core, welcome-coupon evaluation, cash settlement, and the
// gateway webhook.
type PaymentFinalizerService interface {
	// Quote recomputes a breakdown without persisting anything.
	Quote(ctx context.Context, request *requestEntities.ServiceRequest, couponCode string) (pricingEntities.PaymentBreakdown, entities.CouponDecision, *coreErrors.AppError)
	// EvaluateCoupon implements the welcome-coupon decision table.
	EvaluateCoupon(ctx context.Context, cfg *pricingEntities.PlatformPricingConfig, request *requestEntities.ServiceRequest, providedCode string, preserveExistingApplied bool) (entities.CouponDecision, *coreErrors.AppError)
	// CreateOrder opens a gateway order for the request's current quote and
	// reserves any applicable coupon on the request row.
	CreateOrder(ctx context.Context, requestID uuid.UUID, couponCode string) (*entities.CreateOrderResponse, *coreErrors.AppError)
	// ConfirmClientPayment verifies the client-supplied HMAC signature and
	// attempts immediate finalization, retrying once on a missing row.
	ConfirmClientPayment(ctx context.Context, req entities.ConfirmRequest) (*entities.ConfirmResponse, *coreErrors.AppError)
	// FinalizeCapturedPayment is the idempotent core entered by both the
	// confirm path and the webhook path.
	FinalizeCapturedPayment(ctx context.Context, orderID, gatewayPaymentID string) (*FinalizeResult, *coreErrors.AppError)
	// ProcessCashPayment settles a request paid in cash directly to the
	// technician, recording the platform's fee as a TechnicianDue.
	ProcessCashPayment(ctx context.Context, requestID uuid.UUID, couponCode string) (*requestEntities.ServiceRequest, *coreErrors.AppError)
	// HandleWebhook verifies the raw-body signature, accepts only
	// payment.captured events, and drives the idempotent core.
	HandleWebhook(ctx context.Context, rawBody []byte, signature string) (int, *coreErrors.AppError)
	// SettleTechnicianDue marks a pending TechnicianDue paid and sets the
	// matching cash Payment's IsSettled flag to true, the one write path
	// that closes out the debt ProcessCashPayment opens.
	SettleTechnicianDue(ctx context.Context, dueID uuid.UUID) (*entities.TechnicianDue, *coreErrors.AppError)
}

type paymentFinalizerServiceImpl struct {
	requestRepository       requestRepositories.RequestRepository
	technicianRepository    technicianRepositories.TechnicianRepository
	paymentRepository       repositories.PaymentRepository
	invoiceRepository       repositories.InvoiceRepository
	technicianDueRepository repositories.TechnicianDueRepository
	pricingConfigService    pricingServices.PricingConfigService
	pricingResolver         pricingServices.PricingResolverService
	normalizer              normServices.NormalizerService
	gateway                 coreServices.IGatewayService
	pdf                     coreServices.IInvoicePDFService
	email                   coreServices.IEmailService
	notifier                notifierServices.NotifierService
	logger                  logger.Logger
}

// NewPaymentFinalizerService builds the Payment Finalizer.
func NewPaymentFinalizerService(
	requestRepository requestRepositories.RequestRepository,
	technicianRepository technicianRepositories.TechnicianRepository,
	paymentRepository repositories.PaymentRepository,
	invoiceRepository repositories.InvoiceRepository,
	technicianDueRepository repositories.TechnicianDueRepository,
	pricingConfigService pricingServices.PricingConfigService,
	pricingResolver pricingServices.PricingResolverService,
	normalizer normServices.NormalizerService,
	gateway coreServices.IGatewayService,
	pdf coreServices.IInvoicePDFService,
	email coreServices.IEmailService,
	notifier notifierServices.NotifierService,
	logger logger.Logger,
) PaymentFinalizerService {
	return &paymentFinalizerServiceImpl{
		requestRepository:       requestRepository,
		technicianRepository:    technicianRepository,
		paymentRepository:       paymentRepository,
		invoiceRepository:       invoiceRepository,
		technicianDueRepository: technicianDueRepository,
		pricingConfigService:    pricingConfigService,
		pricingResolver:         pricingResolver,
		normalizer:              normalizer,
		gateway:                 gateway,
		pdf:                     pdf,
		email:                   email,
		notifier:                notifier,
		logger:                  logger,
	}
}

// resolveBaseAmount applies the technician/request/matrix priority order:
// a technician's own pricing tree, the amount already stored on the
// request, then the platform's service matrix default.
func (s *paymentFinalizerServiceImpl) resolveBaseAmount(ctx context.Context, cfg *pricingEntities.PlatformPricingConfig, request *requestEntities.ServiceRequest) float64 {
	vehicle, domain := s.normalizer.CanonicalizeServiceType(request.ServiceType)

	if request.TechnicianID != nil {
		technician, err := s.technicianRepository.FindByID(ctx, *request.TechnicianID)
		if err != nil {
			s.logger.Error(ctx, "failed to load technician for amount resolution", logger.Fields{"error": err.Error()})
		} else if technician != nil {
			if amount, ok := s.pricingResolver.ResolveTechnicianAmount(technician.Pricing, technician.ServiceCosts, domain, vehicle); ok {
				return amount
			}
		}
	}

	if request.Amount > 0 {
		return request.Amount
	}

	return s.pricingConfigService.GetServiceMatrixAmount(cfg, string(domain), string(vehicle))
}

// EvaluateCoupon applies the eligibility decision table over the
// platform's single standing welcome coupon.
func (s *paymentFinalizerServiceImpl) EvaluateCoupon(ctx context.Context, cfg *pricingEntities.PlatformPricingConfig, request *requestEntities.ServiceRequest, providedCode string, preserveExistingApplied bool) (entities.CouponDecision, *coreErrors.AppError) {
	coupon := cfg.WelcomeCoupon
	globallyActive := coupon.Active && coupon.Code != "" && coupon.DiscountPercent > 0 && coupon.MaxUsesPerUser > 0

	hasExistingReservation := request.AppliedCouponCode != "" && coupon.Code != "" && request.AppliedCouponCode == coupon.Code

	if providedCode == "" {
		if preserveExistingApplied && hasExistingReservation && globallyActive {
			return entities.CouponDecision{Applied: true, Code: coupon.Code, DiscountPercent: coupon.DiscountPercent}, nil
		}
		return entities.CouponDecision{}, nil
	}

	if providedCode != coupon.Code {
		return entities.CouponDecision{Code: providedCode, Reason: "Invalid coupon code."}, nil
	}
	if !globallyActive {
		return entities.CouponDecision{Code: coupon.Code, Reason: "This coupon is currently inactive."}, nil
	}

	completed, err := s.requestRepository.CountCompletedByUser(ctx, request.UserID, request.ID)
	if err != nil {
		return entities.CouponDecision{}, coreErrors.ServiceError("failed to count completed services: " + err.Error())
	}
	reserved, err := s.requestRepository.CountReservedCouponByUser(ctx, request.UserID, coupon.Code, request.ID)
	if err != nil {
		return entities.CouponDecision{}, coreErrors.ServiceError("failed to count reserved coupon usage: " + err.Error())
	}

	remaining := coupon.MaxUsesPerUser - completed - reserved
	if remaining < 0 {
		remaining = 0
	}

	if !hasExistingReservation && remaining == 0 {
		return entities.CouponDecision{
			Code:   coupon.Code,
			Reason: fmt.Sprintf("Coupon is valid only for your first %d paid services.", coupon.MaxUsesPerUser),
		}, nil
	}

	return entities.CouponDecision{Applied: true, Code: coupon.Code, DiscountPercent: coupon.DiscountPercent}, nil
}

func discountFromDecision(decision entities.CouponDecision) pricingEntities.DiscountInput {
	if !decision.Applied {
		return pricingEntities.DiscountInput{}
	}
	pct := decision.DiscountPercent
	return pricingEntities.DiscountInput{DiscountPercent: &pct}
}

// discountFromRequest rebuilds the discount the request already reserved,
// so the finalizer's recomputation agrees with the client's original view
// regardless of how the welcome coupon configuration has since changed.
func discountFromRequest(request *requestEntities.ServiceRequest) pricingEntities.DiscountInput {
	if request.AppliedCouponCode == "" {
		return pricingEntities.DiscountInput{}
	}
	amount := request.AppliedDiscountAmount
	return pricingEntities.DiscountInput{DiscountAmount: &amount}
}

// Quote recomputes a breakdown with no persistence, plus
// the coupon decision that produced its discount fields.
func (s *paymentFinalizerServiceImpl) Quote(ctx context.Context, request *requestEntities.ServiceRequest, couponCode string) (pricingEntities.PaymentBreakdown, entities.CouponDecision, *coreErrors.AppError) {
	cfg, err := s.pricingConfigService.Get(ctx, false)
	if err != nil {
		return pricingEntities.PaymentBreakdown{}, entities.CouponDecision{}, coreErrors.ServiceError("failed to load platform pricing config: " + err.Error())
	}

	baseAmount := s.resolveBaseAmount(ctx, cfg, request)

	decision, appErr := s.EvaluateCoupon(ctx, cfg, request, couponCode, couponCode == "")
	if appErr != nil {
		return pricingEntities.PaymentBreakdown{}, entities.CouponDecision{}, appErr
	}

	breakdown := s.pricingConfigService.ComputePaymentAmounts(cfg, baseAmount, discountFromDecision(decision))
	return breakdown, decision, nil
}

// CreateOrder opens a gateway order and reserves any applicable coupon
// on the request row.
func (s *paymentFinalizerServiceImpl) CreateOrder(ctx context.Context, requestID uuid.UUID, couponCode string) (*entities.CreateOrderResponse, *coreErrors.AppError) {
	if !s.gateway.Configured() {
		return nil, coreErrors.GatewayUnconfiguredError("Payment gateway is not configured")
	}

	request, err := s.requestRepository.FindByID(ctx, requestID)
	if err != nil {
		return nil, coreErrors.NotFound("service request not found")
	}
	if request.Status == requestEntities.StatusPaid || request.PaymentStatus == requestEntities.PaymentStatusCompleted {
		return nil, coreErrors.ConflictError("service request is already paid")
	}

	cfg, err := s.pricingConfigService.Get(ctx, false)
	if err != nil {
		return nil, coreErrors.ServiceError("failed to load platform pricing config: " + err.Error())
	}

	baseAmount := s.resolveBaseAmount(ctx, cfg, request)

	decision, appErr := s.EvaluateCoupon(ctx, cfg, request, couponCode, couponCode == "")
	if appErr != nil {
		return nil, appErr
	}
	if couponCode != "" && !decision.Applied {
		return nil, coreErrors.BadRequestError(decision.Reason)
	}

	breakdown := s.pricingConfigService.ComputePaymentAmounts(cfg, baseAmount, discountFromDecision(decision))
	amountMinorUnits := int64(math.Round(breakdown.TotalAmount * 100))

	order, err := s.gateway.CreateOrder(ctx, coreServices.CreateOrderRequest{
		AmountMinorUnits: amountMinorUnits,
		Currency:         breakdown.Currency,
		Receipt:          requestID.String(),
		PaymentCapture:   1,
		Notes: coreServices.GatewayOrderNotes{
			RequestID: requestID.String(),
			UserID:    request.UserID.String(),
			Type:      "service_request",
		},
	})
	if err != nil {
		s.logger.Error(ctx, "failed to create gateway order", logger.Fields{"request_id": requestID.String(), "error": err.Error()})
		return nil, coreErrors.ExternalServiceError("failed to create payment order: " + err.Error())
	}

	payment := &entities.Payment{
		ID:               uuid.New(),
		ServiceRequestID: requestID,
		Method:           requestEntities.PaymentMethodRazorpay,
		Status:           entities.PaymentPending,
		GatewayOrderID:   order.ID,
		Amount:           breakdown.TotalAmount,
		PlatformFee:      breakdown.PlatformFee,
		TechnicianAmount: baseAmount,
	}
	if err := s.paymentRepository.UpsertByOrder(ctx, payment); err != nil {
		return nil, coreErrors.RepositoryError("failed to persist pending payment: " + err.Error())
	}

	if decision.Applied {
		request.AppliedCouponCode = decision.Code
		request.AppliedDiscountPercent = decision.DiscountPercent
		request.AppliedDiscountAmount = breakdown.DiscountAmount
	}
	request.Amount = baseAmount
	request.UpdatedAt = time.Now()
	if err := s.requestRepository.Update(ctx, request); err != nil {
		return nil, coreErrors.RepositoryError("failed to reserve coupon on service request: " + err.Error())
	}

	return &entities.CreateOrderResponse{
		OrderID:   order.ID,
		Currency:  breakdown.Currency,
		Amount:    amountMinorUnits,
		Breakdown: breakdown,
	}, nil
}

// ConfirmClientPayment verifies the client-supplied signature and
// attempts immediate finalization, retrying once on a missing row.
func (s *paymentFinalizerServiceImpl) ConfirmClientPayment(ctx context.Context, req entities.ConfirmRequest) (*entities.ConfirmResponse, *coreErrors.AppError) {
	if !s.gateway.VerifyClientSignature(req.OrderID, req.PaymentID, req.Signature) {
		return nil, coreErrors.SignatureMismatchError("payment signature verification failed")
	}

	processing := &entities.Payment{
		GatewayOrderID:   req.OrderID,
		GatewayPaymentID: req.PaymentID,
		Status:           entities.PaymentProcessing,
	}
	if err := s.paymentRepository.UpsertByOrder(ctx, processing); err != nil {
		s.logger.Error(ctx, "failed to mark payment processing", logger.Fields{"order_id": req.OrderID, "error": err.Error()})
	}

	result, appErr := s.FinalizeCapturedPayment(ctx, req.OrderID, req.PaymentID)
	if appErr != nil {
		return nil, appErr
	}
	if result.PaymentRowNotFound {
		// The confirm callback can race the order-creation upsert; seed a
		// pending row and retry exactly once before giving up.
		pending := &entities.Payment{GatewayOrderID: req.OrderID, GatewayPaymentID: req.PaymentID, Status: entities.PaymentPending}
		if err := s.paymentRepository.UpsertByOrder(ctx, pending); err != nil {
			return nil, coreErrors.RepositoryError("failed to backfill payment row: " + err.Error())
		}
		result, appErr = s.FinalizeCapturedPayment(ctx, req.OrderID, req.PaymentID)
		if appErr != nil {
			return nil, appErr
		}
		if result.PaymentRowNotFound {
			return &entities.ConfirmResponse{ImmediateFinalization: false, Message: "Awaiting webhook"}, nil
		}
	}

	return &entities.ConfirmResponse{ImmediateFinalization: true, Request: result.Request}, nil
}

// FinalizeCapturedPayment is the idempotent core described by section
// 4.7.4. It locks Payment -> Request -> Invoice in that fixed order, the
// same order every entry point uses, to avoid deadlocks.
func (s *paymentFinalizerServiceImpl) FinalizeCapturedPayment(ctx context.Context, orderID, gatewayPaymentID string) (*FinalizeResult, *coreErrors.AppError) {
	var result *FinalizeResult
	var invoiceToSend *entities.Invoice
	var requestForPush *requestEntities.ServiceRequest

	err := s.requestRepository.WithTransaction(ctx, func(tx *gorm.DB) error {
		payment, lookupErr := s.paymentRepository.FindByOrderIDForUpdate(tx, orderID)
		if lookupErr != nil {
			return fmt.Errorf("failed to lock payment row: %w", lookupErr)
		}
		if payment == nil {
			result = &FinalizeResult{PaymentRowNotFound: true}
			return nil
		}

		request, lookupErr := s.requestRepository.FindByIDForUpdate(tx, payment.ServiceRequestID)
		if lookupErr != nil {
			return fmt.Errorf("failed to lock service request: %w", lookupErr)
		}

		cfg, cfgErr := s.pricingConfigService.Get(ctx, false)
		if cfgErr != nil {
			return fmt.Errorf("failed to load platform pricing config: %w", cfgErr)
		}

		baseAmount := s.resolveBaseAmount(ctx, cfg, request)
		breakdown := s.pricingConfigService.ComputePaymentAmounts(cfg, baseAmount, discountFromRequest(request))

		requestWasPaid := request.Status == requestEntities.StatusPaid && request.PaymentStatus == requestEntities.PaymentStatusCompleted
		duplicate := requestWasPaid && payment.Status == entities.PaymentCompleted

		now := time.Now()

		payment.Status = entities.PaymentCompleted
		payment.GatewayPaymentID = gatewayPaymentID
		payment.Amount = breakdown.TotalAmount
		payment.PlatformFee = breakdown.PlatformFee
		payment.TechnicianAmount = baseAmount
		payment.IsSettled = true
		if updateErr := s.paymentRepository.UpdateInTx(tx, payment); updateErr != nil {
			return fmt.Errorf("failed to update payment: %w", updateErr)
		}

		method := requestEntities.PaymentMethodRazorpay
		request.PaymentStatus = requestEntities.PaymentStatusCompleted
		request.PaymentMethod = &method
		request.Status = requestEntities.StatusPaid
		request.Amount = baseAmount
		if request.CompletedAt == nil {
			request.CompletedAt = &now
		}
		request.UpdatedAt = now
		if updateErr := s.requestRepository.UpdateInTx(tx, request); updateErr != nil {
			return fmt.Errorf("failed to update service request: %w", updateErr)
		}

		invoice, lookupErr := s.invoiceRepository.FindByOrderOrPaymentForUpdate(tx, orderID, gatewayPaymentID)
		if lookupErr != nil {
			return fmt.Errorf("failed to lock invoice: %w", lookupErr)
		}
		if invoice != nil {
			invoice.BaseAmount = baseAmount
			invoice.PlatformFee = breakdown.PlatformFee
			invoice.TotalAmount = breakdown.TotalAmount
			invoice.GatewayOrderID = orderID
			invoice.GatewayPaymentID = gatewayPaymentID
			invoice.UpdatedAt = now
			if updateErr := s.invoiceRepository.UpdateInTx(tx, invoice); updateErr != nil {
				return fmt.Errorf("failed to update invoice: %w", updateErr)
			}
		} else {
			invoice = &entities.Invoice{
				ID:               uuid.New(),
				ServiceRequestID: request.ID,
				PaymentID:        payment.ID,
				Number:           invoiceNumber(request.ID),
				Status:           entities.InvoiceGenerated,
				GatewayOrderID:   orderID,
				GatewayPaymentID: gatewayPaymentID,
				BaseAmount:       baseAmount,
				PlatformFee:      breakdown.PlatformFee,
				TotalAmount:      breakdown.TotalAmount,
			}
			invoice.PDFData = s.renderInvoicePDF(ctx, invoice, request)
			if createErr := s.invoiceRepository.CreateInTx(tx, invoice); createErr != nil {
				return fmt.Errorf("failed to create invoice: %w", createErr)
			}
		}

		if !requestWasPaid && request.TechnicianID != nil {
			if incErr := s.technicianRepository.IncrementCompletionStatsInTx(tx, *request.TechnicianID, baseAmount); incErr != nil {
				return fmt.Errorf("failed to increment technician completion stats: %w", incErr)
			}
		}

		result = &FinalizeResult{Request: request, Duplicate: duplicate}
		invoiceToSend = invoice
		requestForPush = request
		return nil
	})
	if err != nil {
		return nil, coreErrors.ServiceError("failed to finalize captured payment: " + err.Error())
	}
	if result.PaymentRowNotFound {
		return result, nil
	}

	s.afterCommit(ctx, requestForPush, invoiceToSend)

	return result, nil
}

// afterCommit sends the invoice email (at most once, gated on its
// EMAILED status) and pushes the payment_completed, job:status_update and
// admin:payment_update events on every call. Both are best-effort; neither
// failure rolls
// back the already-committed capture.
func (s *paymentFinalizerServiceImpl) afterCommit(ctx context.Context, request *requestEntities.ServiceRequest, invoice *entities.Invoice) {
	if invoice.Status != entities.InvoiceEmailed && request.ContactEmail != "" {
		if err := s.email.SendInvoiceEmail(ctx, request.ContactEmail, invoice.Number, invoice.TotalAmount); err != nil {
			s.logger.Error(ctx, "failed to send invoice email", logger.Fields{"invoice_id": invoice.ID.String(), "error": err.Error()})
		} else {
			invoice.Status = entities.InvoiceEmailed
			invoice.UpdatedAt = time.Now()
			if err := s.invoiceRepository.Update(ctx, invoice); err != nil {
				s.logger.Error(ctx, "failed to mark invoice emailed", logger.Fields{"invoice_id": invoice.ID.String(), "error": err.Error()})
			}
		}
	}

	payload := map[string]interface{}{
		"request_id": request.ID.String(),
		"amount":     request.Amount,
		"status":     string(request.Status),
	}
	if appErr := s.notifier.NotifyUser(ctx, request.UserID, notifierEntities.EventPaymentCompleted, payload, &request.ID); appErr != nil {
		s.logger.Error(ctx, "failed to push payment_completed", logger.Fields{"request_id": request.ID.String(), "error": appErr.Error()})
	}
	if appErr := s.notifier.NotifyRequest(ctx, request.ID, notifierEntities.EventJobStatusUpdate, payload); appErr != nil {
		s.logger.Error(ctx, "failed to push job:status_update", logger.Fields{"request_id": request.ID.String(), "error": appErr.Error()})
	}
	if appErr := s.notifier.Broadcast(ctx, notifierEntities.EventAdminPaymentUpdate, payload); appErr != nil {
		s.logger.Error(ctx, "failed to push admin:payment_update", logger.Fields{"request_id": request.ID.String(), "error": appErr.Error()})
	}
}

func (s *paymentFinalizerServiceImpl) renderInvoicePDF(ctx context.Context, invoice *entities.Invoice, request *requestEntities.ServiceRequest) []byte {
	data, err := s.pdf.GenerateInvoicePDF(coreServices.InvoicePDFData{
		InvoiceNumber: invoice.Number,
		ServiceType:   request.ServiceType,
		ContactName:   request.ContactName,
		ContactEmail:  request.ContactEmail,
		BaseAmount:    invoice.BaseAmount,
		PlatformFee:   invoice.PlatformFee,
		GSTAmount:     invoice.GSTAmount,
		TotalAmount:   invoice.TotalAmount,
	})
	if err != nil {
		s.logger.Error(ctx, "failed to render invoice pdf", logger.Fields{"invoice_id": invoice.ID.String(), "error": err.Error()})
		return nil
	}
	return data
}

// invoiceNumber derives a stable, human-presentable invoice number from
// the request id, so repeated finalize calls for the same request never
// change it once assigned.
func invoiceNumber(requestID uuid.UUID) string {
	return "INV-" + requestID.String()[:8]
}

// ProcessCashPayment settles a request paid in cash to the technician,
// recording the platform's fee as a pending TechnicianDue.
func (s *paymentFinalizerServiceImpl) ProcessCashPayment(ctx context.Context, requestID uuid.UUID, couponCode string) (*requestEntities.ServiceRequest, *coreErrors.AppError) {
	var updatedRequest *requestEntities.ServiceRequest
	var due *entities.TechnicianDue

	err := s.requestRepository.WithTransaction(ctx, func(tx *gorm.DB) error {
		request, lookupErr := s.requestRepository.FindByIDForUpdate(tx, requestID)
		if lookupErr != nil {
			return fmt.Errorf("failed to lock service request: %w", lookupErr)
		}
		if request.Status == requestEntities.StatusPaid {
			return fmt.Errorf("service request already paid")
		}

		cfg, cfgErr := s.pricingConfigService.Get(ctx, false)
		if cfgErr != nil {
			return fmt.Errorf("failed to load platform pricing config: %w", cfgErr)
		}
		baseAmount := s.resolveBaseAmount(ctx, cfg, request)

		decision, appErr := s.EvaluateCoupon(ctx, cfg, request, couponCode, couponCode == "")
		if appErr != nil {
			return fmt.Errorf("failed to evaluate coupon: %w", appErr)
		}
		if couponCode != "" && !decision.Applied {
			return fmt.Errorf("coupon rejected: %s", decision.Reason)
		}
		breakdown := s.pricingConfigService.ComputePaymentAmounts(cfg, baseAmount, discountFromDecision(decision))

		now := time.Now()
		method := requestEntities.PaymentMethodCash
		request.PaymentStatus = requestEntities.PaymentStatusCompleted
		request.PaymentMethod = &method
		request.Status = requestEntities.StatusPaid
		request.Amount = baseAmount
		if decision.Applied {
			request.AppliedCouponCode = decision.Code
			request.AppliedDiscountPercent = decision.DiscountPercent
			request.AppliedDiscountAmount = breakdown.DiscountAmount
		}
		if request.CompletedAt == nil {
			request.CompletedAt = &now
		}
		request.UpdatedAt = now
		if updateErr := s.requestRepository.UpdateInTx(tx, request); updateErr != nil {
			return fmt.Errorf("failed to update service request: %w", updateErr)
		}

		payment := &entities.Payment{
			ID:               uuid.New(),
			ServiceRequestID: requestID,
			Method:           requestEntities.PaymentMethodCash,
			Status:           entities.PaymentCompleted,
			Amount:           breakdown.TotalAmount,
			PlatformFee:      breakdown.PlatformFee,
			TechnicianAmount: baseAmount,
			IsSettled:        false,
		}
		if createErr := s.paymentRepository.CreateInTx(tx, payment); createErr != nil {
			return fmt.Errorf("failed to create cash payment: %w", createErr)
		}

		invoice := &entities.Invoice{
			ID:               uuid.New(),
			ServiceRequestID: request.ID,
			PaymentID:        payment.ID,
			Number:           invoiceNumber(request.ID),
			Status:           entities.InvoiceGenerated,
			BaseAmount:       baseAmount,
			PlatformFee:      breakdown.PlatformFee,
			TotalAmount:      breakdown.TotalAmount,
		}
		invoice.PDFData = s.renderInvoicePDF(ctx, invoice, request)
		if createErr := s.invoiceRepository.CreateInTx(tx, invoice); createErr != nil {
			return fmt.Errorf("failed to create invoice: %w", createErr)
		}

		if request.TechnicianID != nil {
			due = &entities.TechnicianDue{
				ID:               uuid.New(),
				TechnicianID:     *request.TechnicianID,
				ServiceRequestID: request.ID,
				Amount:           breakdown.PlatformFee,
				Status:           entities.DuePending,
				CreatedAt:        now,
			}
			if createErr := s.technicianDueRepository.CreateInTx(tx, due); createErr != nil {
				return fmt.Errorf("failed to create technician due: %w", createErr)
			}
			if incErr := s.technicianRepository.IncrementCompletionStatsInTx(tx, *request.TechnicianID, baseAmount); incErr != nil {
				return fmt.Errorf("failed to increment technician completion stats: %w", incErr)
			}
		}

		updatedRequest = request
		return nil
	})
	if err != nil {
		return nil, coreErrors.ServiceError("failed to process cash payment: " + err.Error())
	}

	payload := map[string]interface{}{
		"request_id": updatedRequest.ID.String(),
		"amount":     updatedRequest.Amount,
		"status":     string(updatedRequest.Status),
	}
	if appErr := s.notifier.NotifyUser(ctx, updatedRequest.UserID, notifierEntities.EventPaymentCompleted, payload, &updatedRequest.ID); appErr != nil {
		s.logger.Error(ctx, "failed to push payment_completed", logger.Fields{"request_id": updatedRequest.ID.String(), "error": appErr.Error()})
	}
	if appErr := s.notifier.NotifyRequest(ctx, updatedRequest.ID, notifierEntities.EventJobStatusUpdate, payload); appErr != nil {
		s.logger.Error(ctx, "failed to push job:status_update", logger.Fields{"request_id": updatedRequest.ID.String(), "error": appErr.Error()})
	}
	if appErr := s.notifier.Broadcast(ctx, notifierEntities.EventAdminPaymentUpdate, payload); appErr != nil {
		s.logger.Error(ctx, "failed to push admin:payment_update", logger.Fields{"request_id": updatedRequest.ID.String(), "error": appErr.Error()})
	}

	return updatedRequest, nil
}

// HandleWebhook verifies the raw-body signature and drives the
// idempotent capture core for payment.captured events.
func (s *paymentFinalizerServiceImpl) HandleWebhook(ctx context.Context, rawBody []byte, signature string) (int, *coreErrors.AppError) {
	if !s.gateway.VerifyWebhookSignature(rawBody, signature) {
		return 401, coreErrors.SignatureMismatchError("webhook signature verification failed")
	}

	event, parseErr := parseWebhookEvent(rawBody)
	if parseErr != nil {
		return 400, coreErrors.BadRequestError("malformed webhook payload")
	}
	if event.Event != "payment.captured" {
		return 200, nil
	}

	orderID := event.Payload.Payment.Entity.OrderID
	paymentID := event.Payload.Payment.Entity.ID
	if orderID == "" || paymentID == "" {
		return 400, coreErrors.BadRequestError("missing order_id or payment_id")
	}

	result, appErr := s.FinalizeCapturedPayment(ctx, orderID, paymentID)
	if appErr != nil {
		return 500, appErr
	}
	if result.PaymentRowNotFound {
		pending := &entities.Payment{GatewayOrderID: orderID, GatewayPaymentID: paymentID, Status: entities.PaymentPending}
		if requestID, parseErr := uuid.Parse(event.Payload.Payment.Entity.Notes.RequestID); parseErr == nil {
			pending.ServiceRequestID = requestID
		}
		if err := s.paymentRepository.UpsertByOrder(ctx, pending); err != nil {
			s.logger.Error(ctx, "failed to backfill payment row from webhook", logger.Fields{"order_id": orderID, "error": err.Error()})
			return 200, nil
		}
		if _, appErr := s.FinalizeCapturedPayment(ctx, orderID, paymentID); appErr != nil {
			s.logger.Error(ctx, "failed to finalize after webhook backfill", logger.Fields{"order_id": orderID, "error": appErr.Error()})
		}
	}

	return 200, nil
}

// SettleTechnicianDue marks a technician due's platform-fee debt paid and
// sets the matching cash Payment's IsSettled flag in the same transaction,
// keeping both representations of "this cash payment is squared up" in
// lockstep. Re-settling an already-settled due is a no-op.
func (s *paymentFinalizerServiceImpl) SettleTechnicianDue(ctx context.Context, dueID uuid.UUID) (*entities.TechnicianDue, *coreErrors.AppError) {
	var settled *entities.TechnicianDue

	err := s.technicianDueRepository.WithTransaction(ctx, func(tx *gorm.DB) error {
		due, lookupErr := s.technicianDueRepository.FindByIDForUpdate(tx, dueID)
		if lookupErr != nil {
			return fmt.Errorf("failed to lock technician due: %w", lookupErr)
		}
		if due == nil {
			return fmt.Errorf("technician due not found")
		}
		if due.Status == entities.DueSettled {
			settled = due
			return nil
		}

		payment, paymentErr := s.paymentRepository.FindByServiceRequestIDForUpdate(tx, due.ServiceRequestID)
		if paymentErr != nil {
			return fmt.Errorf("failed to lock payment for due settlement: %w", paymentErr)
		}

		now := time.Now()
		due.Status = entities.DueSettled
		due.SettledAt = &now
		if updateErr := s.technicianDueRepository.UpdateInTx(tx, due); updateErr != nil {
			return fmt.Errorf("failed to update technician due: %w", updateErr)
		}

		if payment != nil && payment.Method == requestEntities.PaymentMethodCash && !payment.IsSettled {
			payment.IsSettled = true
			if updateErr := s.paymentRepository.UpdateInTx(tx, payment); updateErr != nil {
				return fmt.Errorf("failed to clear payment settlement flag: %w", updateErr)
			}
		}

		settled = due
		return nil
	})
	if err != nil {
		return nil, coreErrors.ServiceError("failed to settle technician due: " + err.Error())
	}
	return settled, nil
}

func parseWebhookEvent(rawBody []byte) (*entities.WebhookEvent, error) {
	var event entities.WebhookEvent
	if err := json.Unmarshal(rawBody, &event); err != nil {
		return nil, fmt.Errorf("failed to decode webhook payload: %w", err)
	}
	return &event, nil
}
