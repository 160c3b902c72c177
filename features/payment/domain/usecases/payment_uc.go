// Package usecases implements the HTTP-facing payment operations: quote,
// order creation, client confirmation, cash settlement, and the gateway
// webhook.
package usecases

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	coreErrors "github.com/resqnow/dispatch-core/core/errors"
	"github.com/resqnow/dispatch-core/core/helpers"
	"github.com/resqnow/dispatch-core/core/logger"
	"github.com/resqnow/dispatch-core/features/payment/domain/entities"
	"github.com/resqnow/dispatch-core/features/payment/domain/services"
	requestRepositories "github.com/resqnow/dispatch-core/features/request/domain/repositories"
)

// IPaymentUseCase defines the HTTP handlers for the payment feature.
type IPaymentUseCase interface {
	Quote(c *gin.Context)
	CreateOrder(c *gin.Context)
	Confirm(c *gin.Context)
	Cash(c *gin.Context)
	Webhook(c *gin.Context)
	SettleTechnicianDue(c *gin.Context)
}

// PaymentUseCase implements IPaymentUseCase.
type PaymentUseCase struct {
	finalizer         services.PaymentFinalizerService
	requestRepository requestRepositories.RequestRepository
	validator         *validator.Validate
	logger            logger.Logger
}

// NewPaymentUseCase builds a PaymentUseCase.
func NewPaymentUseCase(finalizer services.PaymentFinalizerService, requestRepository requestRepositories.RequestRepository, logger logger.Logger) IPaymentUseCase {
	return &PaymentUseCase{
		finalizer:         finalizer,
		requestRepository: requestRepository,
		validator:         validator.New(),
		logger:            logger,
	}
}

func (uc *PaymentUseCase) requestIDParam(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		appError := coreErrors.UsecaseError("invalid request id")
		c.JSON(appError.HTTPStatus(), gin.H{"error": appError.Message})
		return uuid.UUID{}, false
	}
	return id, true
}

// Quote returns a payment breakdown without persisting anything.
func (uc *PaymentUseCase) Quote(c *gin.Context) {
	ctx := c.Request.Context()

	requestID, ok := uc.requestIDParam(c)
	if !ok {
		return
	}

	var body entities.QuoteRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			appError := coreErrors.UsecaseError("invalid request format")
			c.JSON(appError.HTTPStatus(), gin.H{"error": appError.Message})
			return
		}
	}

	request, err := uc.requestRepository.FindByID(ctx, requestID)
	if err != nil {
		appError := coreErrors.NotFound("service request not found")
		c.JSON(appError.HTTPStatus(), gin.H{"error": appError.Message})
		return
	}

	breakdown, decision, appErr := uc.finalizer.Quote(ctx, request, body.CouponCode)
	if appErr != nil {
		uc.logger.Error(ctx, "quote failed", logger.Fields{"error": appErr.Error()})
		c.JSON(appErr.HTTPStatus(), gin.H{"error": appErr.Message})
		return
	}

	c.JSON(http.StatusOK, entities.QuoteResponse{PaymentBreakdown: breakdown, Coupon: decision})
}

// CreateOrder opens a gateway order for the request's current quote.
func (uc *PaymentUseCase) CreateOrder(c *gin.Context) {
	ctx := c.Request.Context()

	requestID, ok := uc.requestIDParam(c)
	if !ok {
		return
	}

	var body entities.CreateOrderRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			appError := coreErrors.UsecaseError("invalid request format")
			c.JSON(appError.HTTPStatus(), gin.H{"error": appError.Message})
			return
		}
	}

	response, appErr := uc.finalizer.CreateOrder(ctx, requestID, body.CouponCode)
	if appErr != nil {
		uc.logger.Error(ctx, "create order failed", logger.Fields{"error": appErr.Error()})
		c.JSON(appErr.HTTPStatus(), gin.H{"error": appErr.Message})
		return
	}

	c.JSON(http.StatusOK, response)
}

// Confirm is the client-side payment-success callback.
func (uc *PaymentUseCase) Confirm(c *gin.Context) {
	ctx := c.Request.Context()

	var body entities.ConfirmRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		appError := coreErrors.UsecaseError("invalid request format")
		c.JSON(appError.HTTPStatus(), gin.H{"error": appError.Message})
		return
	}
	if err := uc.validator.Struct(body); err != nil {
		appError := coreErrors.UsecaseError("missing required payment confirmation fields")
		c.JSON(appError.HTTPStatus(), gin.H{"error": appError.Message})
		return
	}

	response, appErr := uc.finalizer.ConfirmClientPayment(ctx, body)
	if appErr != nil {
		uc.logger.Error(ctx, "confirm payment failed", logger.Fields{"error": appErr.Error()})
		c.JSON(appErr.HTTPStatus(), gin.H{"error": appErr.Message})
		return
	}

	c.JSON(http.StatusOK, response)
}

// Cash settles a request's payment by cash collected in person by the
// technician. The caller's own id must match the request's assigned
// technician.
func (uc *PaymentUseCase) Cash(c *gin.Context) {
	ctx := c.Request.Context()

	requestID, ok := uc.requestIDParam(c)
	if !ok {
		return
	}

	assigned, err := uc.requestRepository.FindByID(ctx, requestID)
	if err != nil {
		appError := coreErrors.NotFound("service request not found")
		c.JSON(appError.HTTPStatus(), gin.H{"error": appError.Message})
		return
	}
	if assigned.TechnicianID == nil || *assigned.TechnicianID != helpers.GetUserID(c) {
		appError := coreErrors.ForbiddenError("only the assigned technician can record a cash payment")
		c.JSON(appError.HTTPStatus(), gin.H{"error": appError.Message})
		return
	}

	var body entities.CashPaymentRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			appError := coreErrors.UsecaseError("invalid request format")
			c.JSON(appError.HTTPStatus(), gin.H{"error": appError.Message})
			return
		}
	}

	request, appErr := uc.finalizer.ProcessCashPayment(ctx, requestID, body.CouponCode)
	if appErr != nil {
		uc.logger.Error(ctx, "cash payment failed", logger.Fields{"error": appErr.Error()})
		c.JSON(appErr.HTTPStatus(), gin.H{"error": appErr.Message})
		return
	}

	c.JSON(http.StatusOK, gin.H{"request": request})
}

// Webhook handles the gateway's asynchronous payment-captured
// notification. The signature is computed over the raw body, so it must
// be read before any JSON binding.
func (uc *PaymentUseCase) Webhook(c *gin.Context) {
	ctx := c.Request.Context()

	rawBody, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read webhook body"})
		return
	}
	signature := c.GetHeader("X-Razorpay-Signature")

	status, appErr := uc.finalizer.HandleWebhook(ctx, rawBody, signature)
	if appErr != nil {
		uc.logger.Error(ctx, "webhook handling failed", logger.Fields{"error": appErr.Error(), "status": status})
		c.JSON(status, gin.H{"error": appErr.Message})
		return
	}

	c.Status(status)
}

// SettleTechnicianDue marks a pending TechnicianDue as paid, closing the
// cash-settlement ledger so a due never sits write-only.
func (uc *PaymentUseCase) SettleTechnicianDue(c *gin.Context) {
	ctx := c.Request.Context()

	dueID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		appError := coreErrors.UsecaseError("invalid technician due id")
		c.JSON(appError.HTTPStatus(), gin.H{"error": appError.Message})
		return
	}

	due, appErr := uc.finalizer.SettleTechnicianDue(ctx, dueID)
	if appErr != nil {
		uc.logger.Error(ctx, "settle technician due failed", logger.Fields{"error": appErr.Error()})
		c.JSON(appErr.HTTPStatus(), gin.H{"error": appErr.Message})
		return
	}

	c.JSON(http.StatusOK, gin.H{"technician_due": due})
}
