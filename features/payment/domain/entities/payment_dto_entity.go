package entities

import (
	pricingEntities "github.com/resqnow/dispatch-core/features/pricing/domain/entities"
)

// QuoteRequest asks the Payment Finalizer to recompute a breakdown without
// persisting anything.
type QuoteRequest struct {
	CouponCode string `json:"coupon_code" validate:"omitempty"`
}

// QuoteResponse is the Quote operation's output: a breakdown plus the
// coupon decision that produced its discount fields.
type QuoteResponse struct {
	pricingEntities.PaymentBreakdown
	Coupon CouponDecision `json:"coupon"`
}

// CreateOrderRequest asks the Finalizer to open a gateway order for a
// request, reserving any applicable coupon.
type CreateOrderRequest struct {
	CouponCode string `json:"coupon_code" validate:"omitempty"`
}

// CreateOrderResponse returns the gateway order alongside the breakdown
// the client should render as its payment summary.
type CreateOrderResponse struct {
	OrderID   string                           `json:"order_id"`
	Currency  string                           `json:"currency"`
	Amount    int64                            `json:"amount"`
	Breakdown pricingEntities.PaymentBreakdown `json:"breakdown"`
}

// ConfirmRequest is the client-side payment-success callback payload.
type ConfirmRequest struct {
	OrderID   string `json:"order_id" validate:"required"`
	PaymentID string `json:"payment_id" validate:"required"`
	Signature string `json:"signature" validate:"required"`
}

// ConfirmResponse reports whether the payment was finalized synchronously
// or deferred to the asynchronous webhook.
type ConfirmResponse struct {
	ImmediateFinalization bool        `json:"immediate_finalization"`
	Message               string      `json:"message,omitempty"`
	Request               interface{} `json:"request,omitempty"`
}

// CashPaymentRequest settles a request's payment by cash collected by the
// technician in person.
type CashPaymentRequest struct {
	CouponCode string `json:"coupon_code" validate:"omitempty"`
}

// WebhookEvent is the gateway's asynchronous payment-captured notification.
type WebhookEvent struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity struct {
				ID      string `json:"id"`
				OrderID string `json:"order_id"`
				Notes   struct {
					RequestID string `json:"requestId"`
					UserID    string `json:"userId"`
				} `json:"notes"`
			} `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}
