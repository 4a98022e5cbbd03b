package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"storefront-backend/models"
	"storefront-backend/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v80"
	"go.uber.org/zap"
)

// PaymentConfirmer runs the shared payment-confirmation cascade.
type PaymentConfirmer interface {
	Confirm(ctx context.Context, evt models.PaymentConfirmed) error
}

// WebhookOrderRecorder persists an order reconstructed from webhook
// metadata (the provider-B path, where no order exists at checkout).
type WebhookOrderRecorder interface {
	RecordWebhookOrder(ctx context.Context, snap services.OrderSnapshot, transactionID string, rawPayload []byte) (*models.Order, error)
}

// StripeWebhookParser verifies and parses a Stripe webhook request.
type StripeWebhookParser interface {
	ParseWebhook(r *http.Request) (stripe.Event, error)
}

// WebhookController receives asynchronous payment events from both
// providers. The handlers are deliberately separate code paths: the
// redirect provider confirms a pre-existing pending order, while the
// intent provider creates the order at webhook time from metadata.
type WebhookController struct {
	confirmer PaymentConfirmer
	recorder  WebhookOrderRecorder
	stripe    StripeWebhookParser
	logger    *zap.Logger
}

// NewWebhookController creates a new WebhookController.
func NewWebhookController(confirmer PaymentConfirmer, recorder WebhookOrderRecorder, stripeParser StripeWebhookParser, logger *zap.Logger) *WebhookController {
	return &WebhookController{confirmer: confirmer, recorder: recorder, stripe: stripeParser, logger: logger}
}

// infinitePayWebhookPayload is the body the redirect provider POSTs on
// payment confirmation. No signature is available; correctness relies
// on resolving order_nsu against our own ledger and ignoring any
// amounts in the payload.
type infinitePayWebhookPayload struct {
	OrderNSU       string          `json:"order_nsu"`
	TransactionNSU string          `json:"transaction_nsu"`
	Metadata       json.RawMessage `json:"metadata,omitempty"`
}

// HandleInfinitePay handles POST /webhooks/infinitepay. A non-2xx
// response makes the provider retry, so transient failures return 500
// while malformed or unknown payloads return 4xx.
func (wc *WebhookController) HandleInfinitePay(c *gin.Context) {
	var payload infinitePayWebhookPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid webhook payload"})
		return
	}

	orderID, err := uuid.Parse(payload.OrderNSU)
	if err != nil {
		wc.logger.Warn("Webhook with malformed order_nsu", zap.String("order_nsu", payload.OrderNSU))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order_nsu"})
		return
	}

	raw, _ := json.Marshal(payload)

	confirmErr := wc.confirmer.Confirm(c.Request.Context(), models.PaymentConfirmed{
		OrderID:               orderID,
		ProviderTransactionID: payload.TransactionNSU,
		RawPayload:            raw,
	})
	if confirmErr != nil {
		if errors.Is(confirmErr, services.ErrOrderNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
			return
		}
		wc.logger.Error("Webhook confirmation failed",
			zap.String("order_id", orderID.String()),
			zap.Error(confirmErr),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "confirmation failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "received"})
}

// HandleStripe handles POST /webhooks/stripe. The raw body is verified
// against the webhook secret before anything is trusted. Only
// payment_intent.succeeded is handled; the cart snapshot, user and
// attribution were attached to the intent's metadata at creation time.
func (wc *WebhookController) HandleStripe(c *gin.Context) {
	event, err := wc.stripe.ParseWebhook(c.Request)
	if err != nil {
		wc.logger.Warn("Stripe webhook signature verification failed", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid webhook"})
		return
	}

	if event.Type != "payment_intent.succeeded" {
		wc.logger.Info("Unhandled webhook event type", zap.String("event_type", string(event.Type)))
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}

	var pi stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
		wc.logger.Error("Failed to unmarshal payment intent", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payment intent"})
		return
	}

	snap, err := snapshotFromMetadata(pi.Metadata)
	if err != nil {
		wc.logger.Warn("Missing or malformed metadata in payment intent",
			zap.String("payment_intent_id", pi.ID),
			zap.Error(err),
		)
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid metadata"})
		return
	}

	rawPayload, _ := json.Marshal(event)

	order, err := wc.recorder.RecordWebhookOrder(c.Request.Context(), snap, pi.ID, rawPayload)
	if err != nil {
		wc.logger.Error("Failed to record order from webhook",
			zap.String("payment_intent_id", pi.ID),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to record order"})
		return
	}

	if err := wc.confirmer.Confirm(c.Request.Context(), models.PaymentConfirmed{
		OrderID:               order.ID,
		ProviderTransactionID: pi.ID,
		RawPayload:            rawPayload,
	}); err != nil {
		wc.logger.Error("Webhook confirmation failed",
			zap.String("order_id", order.ID.String()),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "confirmation failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "received"})
}

// snapshotFromMetadata rebuilds the frozen cart from the metadata
// written at payment-intent creation.
func snapshotFromMetadata(metadata map[string]string) (services.OrderSnapshot, error) {
	var snap services.OrderSnapshot

	userID, err := uuid.Parse(metadata["user_id"])
	if err != nil {
		return snap, errors.New("missing or invalid user_id")
	}

	var items []models.CartItem
	if err := json.Unmarshal([]byte(metadata["items"]), &items); err != nil || len(items) == 0 {
		return snap, errors.New("missing or invalid items")
	}

	snap.UserID = userID
	snap.UserEmail = metadata["user_email"]
	snap.Items = items
	snap.AffiliateCode = metadata["affiliate_code"]

	if v := metadata["discount_amount"]; v != "" {
		if discount, err := strconv.Atoi(v); err == nil && discount > 0 {
			snap.DiscountAmount = discount
		}
	}
	if v := metadata["coupon_id"]; v != "" {
		if couponID, err := uuid.Parse(v); err == nil {
			snap.CouponID = &couponID
		}
	}

	return snap, nil
}
