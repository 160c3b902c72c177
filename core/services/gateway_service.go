package services

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/resqnow/dispatch-core/core/config"
	coreErrors "github.com/resqnow/dispatch-core/core/errors"
	"github.com/resqnow/dispatch-core/core/logger"
)

// GatewayOrderNotes carries the metadata the gateway echoes back on the
// webhook event, letting the Payment Finalizer backfill a missing Payment
// row without another database round trip to discover whose job this was.
type GatewayOrderNotes struct {
	RequestID string `json:"requestId"`
	UserID    string `json:"userId"`
	Type      string `json:"type"`
}

// CreateOrderRequest is the payload sent to create a payment order.
type CreateOrderRequest struct {
	AmountMinorUnits int64             `json:"amount"`
	Currency         string            `json:"currency"`
	Receipt          string            `json:"receipt"`
	PaymentCapture   int               `json:"payment_capture"`
	Notes            GatewayOrderNotes `json:"notes"`
}

// OrderResponse is the gateway's order-creation response.
type OrderResponse struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

// IGatewayService is the external payment-provider collaborator: order
// creation and the two HMAC signature checks (client confirm, webhook).
type IGatewayService interface {
	CreateOrder(ctx context.Context, req CreateOrderRequest) (*OrderResponse, error)
	// VerifyClientSignature checks HMAC_SHA256(orderID+"|"+paymentID, keySecret).
	VerifyClientSignature(orderID, paymentID, signature string) bool
	// VerifyWebhookSignature checks HMAC_SHA256(rawBody, webhookSecret).
	VerifyWebhookSignature(rawBody []byte, signature string) bool
	// Configured reports whether gateway credentials are present; callers
	// must surface a 503 "Payment gateway is not configured" otherwise.
	Configured() bool
}

// GatewayService hand-rolls the external payment-gateway integration:
// a plain *http.Client and a shared doRequest helper, no REST-client
// library.
type GatewayService struct {
	keyID         string
	keySecret     string
	webhookSecret string
	baseURL       string
	logger        logger.Logger
	client        *http.Client
}

// NewGatewayService builds a GatewayService from env configuration.
func NewGatewayService(cfg *config.AppConfig, logger logger.Logger) IGatewayService {
	return &GatewayService{
		keyID:         cfg.GatewayKeyID,
		keySecret:     cfg.GatewayKeySecret,
		webhookSecret: cfg.GatewayWebhookSecret,
		baseURL:       cfg.GatewayBaseURL,
		logger:        logger,
		client:        &http.Client{Timeout: 10 * time.Second},
	}
}

// Configured reports whether the three gateway secrets required for
// production use are all present.
func (s *GatewayService) Configured() bool {
	return s.keyID != "" && s.keySecret != "" && s.webhookSecret != ""
}

// CreateOrder creates a payment order for the given amount and returns the
// gateway's order id.
func (s *GatewayService) CreateOrder(ctx context.Context, req CreateOrderRequest) (*OrderResponse, error) {
	if !s.Configured() {
		return nil, coreErrors.GatewayUnconfiguredError("payment gateway is not configured")
	}

	url := fmt.Sprintf("%s/orders", s.baseURL)

	body, err := json.Marshal(req)
	if err != nil {
		s.logger.Error(ctx, "failed to marshal gateway order request", logger.Fields{"error": err.Error()})
		return nil, err
	}

	resp, err := s.doRequest(ctx, http.MethodPost, url, body)
	if err != nil {
		return nil, err
	}

	var order OrderResponse
	if err := json.Unmarshal(resp, &order); err != nil {
		s.logger.Error(ctx, "failed to unmarshal gateway order response", logger.Fields{"error": err.Error()})
		return nil, err
	}

	s.logger.Info(ctx, "gateway order created", logger.Fields{"order_id": order.ID, "amount": order.Amount})
	return &order, nil
}

// VerifyClientSignature recomputes HMAC_SHA256(orderID+"|"+paymentID,
// keySecret) and compares it in constant time against the client-supplied
// signature.
func (s *GatewayService) VerifyClientSignature(orderID, paymentID, signature string) bool {
	mac := hmac.New(sha256.New, []byte(s.keySecret))
	mac.Write([]byte(orderID + "|" + paymentID))
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// VerifyWebhookSignature recomputes HMAC_SHA256(rawBody, webhookSecret) and
// compares it in constant time against the webhook-supplied signature.
func (s *GatewayService) VerifyWebhookSignature(rawBody []byte, signature string) bool {
	mac := hmac.New(sha256.New, []byte(s.webhookSecret))
	mac.Write(rawBody)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

func (s *GatewayService) doRequest(ctx context.Context, method, url string, body []byte) ([]byte, error) {
	var req *http.Request
	var err error

	if body != nil {
		req, err = http.NewRequestWithContext(ctx, method, url, bytes.NewBuffer(body))
	} else {
		req, err = http.NewRequestWithContext(ctx, method, url, nil)
	}
	if err != nil {
		s.logger.Error(ctx, "failed to create gateway HTTP request", logger.Fields{"error": err.Error(), "method": method, "url": url})
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Api-Key", s.keyID)

	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.Error(ctx, "failed to execute gateway HTTP request", logger.Fields{"error": err.Error(), "method": method, "url": url})
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		s.logger.Error(ctx, "failed to read gateway HTTP response body", logger.Fields{"error": err.Error()})
		return nil, err
	}

	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("gateway returned status %d: %s", resp.StatusCode, string(respBody))
	}

	return respBody, nil
}
