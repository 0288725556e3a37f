package handler

import (
	"context"
	"encoding/json"
	"net/http"

	apperrors "unistay/pkg/errors"
	httputil "unistay/pkg/http"
	"unistay/pkg/logger"
	"unistay/pkg/middleware"
	"unistay/pkg/model"

	"github.com/julienschmidt/httprouter"
)

const WebhookPath = "/api/payments/webhook"

// Events that confirm a payment. Anything else is acknowledged and ignored.
const (
	EventPaymentCaptured = "payment.captured"
	EventOrderPaid       = "order.paid"
)

// PaymentConfirmer moves the booking that owns orderID to paid. It must be
// idempotent: gateways redeliver webhooks.
type PaymentConfirmer interface {
	ConfirmPayment(ctx context.Context, orderID, paymentID string) (*model.Booking, error)
}

type WebhookPayload struct {
	Event     string `json:"event"`
	OrderID   string `json:"order_id"`
	PaymentID string `json:"payment_id"`
}

type WebhookHandler struct {
	confirmer PaymentConfirmer
	secret    string
	log       *logger.Logger
}

func NewWebhookHandler(confirmer PaymentConfirmer, secret string, log *logger.Logger) *WebhookHandler {
	return &WebhookHandler{
		confirmer: confirmer,
		secret:    secret,
		log:       log,
	}
}

func (h *WebhookHandler) Receive(w http.ResponseWriter, r *http.Request) {
	var payload WebhookPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		h.writeError(w, "Receive", apperrors.InvalidInput("Invalid webhook payload"))
		return
	}

	if payload.Event != EventPaymentCaptured && payload.Event != EventOrderPaid {
		h.log.Debug("Ignoring payment webhook", "event", payload.Event, "order_id", payload.OrderID)
		if err := httputil.WriteMessage(w, "Event ignored", nil); err != nil {
			h.log.Error("failed to write message response", "handler", "Receive", "operation", "WriteMessage", "error", err)
		}
		return
	}

	if payload.OrderID == "" || payload.PaymentID == "" {
		h.writeError(w, "Receive", apperrors.InvalidInput("order_id and payment_id are required"))
		return
	}

	booking, err := h.confirmer.ConfirmPayment(r.Context(), payload.OrderID, payload.PaymentID)
	if err != nil {
		h.log.Warn("Payment webhook not applied",
			"request_id", logger.RequestID(r.Context()),
			"event", payload.Event,
			"order_id", payload.OrderID,
			"error", err,
		)
		h.writeError(w, "Receive", err)
		return
	}

	if err := httputil.WriteMessage(w, "Payment confirmed", map[string]any{"booking_id": booking.ID, "status": booking.Status}); err != nil {
		h.log.Error("failed to write message response", "handler", "Receive", "operation", "WriteMessage", "error", err)
	}
}

func (h *WebhookHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (h *WebhookHandler) RegisterRoutes(router *httprouter.Router) {
	router.Handler(http.MethodPost, WebhookPath,
		middleware.WebhookSignatureVerification(h.secret, h.log)(http.HandlerFunc(h.Receive)))
}
