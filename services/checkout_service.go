package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"storefront-backend/models"
	"storefront-backend/repository"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v80"
	"go.uber.org/zap"
)

// ServiceError represents a typed error with an HTTP status code.
type ServiceError struct {
	StatusCode int
	Message    string
}

func (e *ServiceError) Error() string {
	return e.Message
}

// PaymentIntentCreator creates a Stripe payment intent carrying order
// metadata.
type PaymentIntentCreator interface {
	CreatePaymentIntent(amount int64, currency string, metadata map[string]string) (*stripe.PaymentIntent, error)
}

// RedirectCheckoutCreator creates a hosted checkout at the redirect
// based provider and returns the URL the customer is sent to.
type RedirectCheckoutCreator interface {
	CreateCheckout(ctx context.Context, order *models.Order) (string, error)
}

// CheckoutRequest is the validated cart a customer submits.
type CheckoutRequest struct {
	Items           []models.CartItem       `json:"items" binding:"required,min=1,dive"`
	ShippingAddress *models.ShippingAddress `json:"shipping_address,omitempty"`
	CouponCode      string                  `json:"coupon_code,omitempty"`
	PaymentMethod   string                  `json:"payment_method" binding:"required,oneof=infinitepay stripe"`
}

// CheckoutResponse carries whichever session handle the provider
// returned: a redirect URL (provider A) or a client secret (provider B).
type CheckoutResponse struct {
	OrderID      string `json:"order_id,omitempty"`
	RedirectURL  string `json:"redirect_url,omitempty"`
	ClientSecret string `json:"client_secret,omitempty"`
}

// OrderSnapshot is the frozen cart a provider-B webhook reconstructs
// an order from: it was serialized into the payment intent metadata at
// checkout time, not read from a pre-existing order row.
type OrderSnapshot struct {
	UserID         uuid.UUID
	UserEmail      string
	Items          []models.CartItem
	CouponID       *uuid.UUID
	DiscountAmount int
	AffiliateCode  string
}

// CheckoutService turns a cart plus an authenticated identity into a
// persisted order and a payment-provider session.
type CheckoutService struct {
	orders      repository.OrderRepository
	products    repository.ProductRepository
	affiliates  repository.AffiliateRepository
	commissions repository.CommissionRepository
	coupons     repository.CouponRepository
	stripe      PaymentIntentCreator
	infinitepay RedirectCheckoutCreator
	currency    string
	minAmount   int
	logger      *zap.Logger
}

// NewCheckoutService creates a new CheckoutService.
func NewCheckoutService(
	orders repository.OrderRepository,
	products repository.ProductRepository,
	affiliates repository.AffiliateRepository,
	commissions repository.CommissionRepository,
	coupons repository.CouponRepository,
	stripeClient PaymentIntentCreator,
	infinitepayClient RedirectCheckoutCreator,
	currency string,
	minAmount int,
	logger *zap.Logger,
) *CheckoutService {
	if minAmount <= 0 {
		minAmount = DefaultMinOrderAmount
	}
	return &CheckoutService{
		orders:      orders,
		products:    products,
		affiliates:  affiliates,
		commissions: commissions,
		coupons:     coupons,
		stripe:      stripeClient,
		infinitepay: infinitepayClient,
		currency:    currency,
		minAmount:   minAmount,
		logger:      logger,
	}
}

// Checkout validates the cart, persists the order for the redirect
// provider path, accrues a pending commission when an affiliate is
// attributed, and obtains a provider session. The affiliate code comes
// from the attribution cookie and is passed in explicitly.
func (s *CheckoutService) Checkout(ctx context.Context, userID uuid.UUID, userEmail string, req *CheckoutRequest, affiliateCode string) (*CheckoutResponse, *ServiceError) {
	if len(req.Items) == 0 {
		return nil, &ServiceError{StatusCode: 400, Message: "Cart is empty"}
	}
	for _, item := range req.Items {
		if item.Quantity < 1 || item.Price < 1 {
			return nil, &ServiceError{StatusCode: 400, Message: "Invalid item price or quantity"}
		}
	}

	lines, err := s.buildPricingLines(ctx, req.Items)
	if err != nil {
		s.logger.Error("Failed to load products for pricing", zap.Error(err))
		return nil, &ServiceError{StatusCode: 500, Message: "Failed to price cart"}
	}

	total := OrderTotal(lines)

	var couponID *uuid.UUID
	discount := 0
	if req.CouponCode != "" {
		coupon, svcErr := s.validateCoupon(ctx, req.CouponCode)
		if svcErr != nil {
			return nil, svcErr
		}
		discount = DiscountFor(string(coupon.Type), coupon.Value, total)
		couponID = &coupon.ID
	}

	payable := total - discount
	if payable < s.minAmount {
		return nil, &ServiceError{StatusCode: 400, Message: fmt.Sprintf("Order total below minimum of %d", s.minAmount)}
	}

	affiliate := s.resolveAffiliate(ctx, affiliateCode, userID)

	var resp *CheckoutResponse
	var svcErr *ServiceError
	switch req.PaymentMethod {
	case models.PaymentMethodStripe:
		resp, svcErr = s.checkoutStripe(ctx, userID, userEmail, req, couponID, discount, payable, affiliateCode)
	default:
		resp, svcErr = s.checkoutInfinitePay(ctx, userID, userEmail, req, lines, couponID, discount, payable, affiliate)
	}
	if svcErr != nil {
		return nil, svcErr
	}

	if couponID != nil {
		// Best-effort: a failed counter bump must not fail the checkout.
		if err := s.coupons.IncrementUsedCount(ctx, req.CouponCode); err != nil {
			s.logger.Warn("Failed to increment coupon usage", zap.String("code", req.CouponCode), zap.Error(err))
		}
	}

	return resp, nil
}

// checkoutInfinitePay persists the order in pending state and asks the
// provider for the hosted-checkout redirect URL. The webhook flips the
// order to paid later.
func (s *CheckoutService) checkoutInfinitePay(ctx context.Context, userID uuid.UUID, userEmail string, req *CheckoutRequest, lines []PricingLine, couponID *uuid.UUID, discount, payable int, affiliate *models.Affiliate) (*CheckoutResponse, *ServiceError) {
	order := &models.Order{
		ID:              uuid.New(),
		UserID:          userID,
		CustomerEmail:   userEmail,
		Amount:          payable,
		Status:          models.OrderStatusPending,
		PaymentMethod:   models.PaymentMethodInfinitePay,
		CouponID:        couponID,
		DiscountAmount:  discount,
		ShippingAddress: req.ShippingAddress,
		OrderItems:      snapshotItems(req.Items),
	}

	if err := s.orders.Create(ctx, order); err != nil {
		s.logger.Error("Failed to create order", zap.String("user_id", userID.String()), zap.Error(err))
		return nil, &ServiceError{StatusCode: 500, Message: "Failed to create order"}
	}

	s.createPendingCommission(ctx, order.ID, lines, affiliate)

	redirectURL, err := s.infinitepay.CreateCheckout(ctx, order)
	if err != nil {
		// Accepted inconsistency: the pending order stays behind and is
		// never billed; it is safe to leave orphaned.
		s.logger.Error("Payment provider checkout failed",
			zap.String("order_id", order.ID.String()),
			zap.Error(err),
		)
		return nil, &ServiceError{StatusCode: 502, Message: "Payment provider unavailable"}
	}

	if err := s.orders.SetProviderSession(ctx, order.ID, redirectURL); err != nil {
		s.logger.Warn("Failed to persist provider session", zap.String("order_id", order.ID.String()), zap.Error(err))
	}

	return &CheckoutResponse{OrderID: order.ID.String(), RedirectURL: redirectURL}, nil
}

// checkoutStripe writes nothing: the cart snapshot travels inside the
// payment intent metadata and the order is reconstructed by the
// webhook once the intent succeeds.
func (s *CheckoutService) checkoutStripe(ctx context.Context, userID uuid.UUID, userEmail string, req *CheckoutRequest, couponID *uuid.UUID, discount, payable int, affiliateCode string) (*CheckoutResponse, *ServiceError) {
	itemsJSON, err := json.Marshal(req.Items)
	if err != nil {
		return nil, &ServiceError{StatusCode: 500, Message: "Failed to serialize cart"}
	}

	metadata := map[string]string{
		"user_id":         userID.String(),
		"user_email":      userEmail,
		"items":           string(itemsJSON),
		"discount_amount": fmt.Sprintf("%d", discount),
	}
	if couponID != nil {
		metadata["coupon_id"] = couponID.String()
	}
	if affiliateCode != "" {
		metadata["affiliate_code"] = affiliateCode
	}

	pi, err := s.stripe.CreatePaymentIntent(int64(payable), s.currency, metadata)
	if err != nil {
		s.logger.Error("Failed to create payment intent", zap.String("user_id", userID.String()), zap.Error(err))
		return nil, &ServiceError{StatusCode: 502, Message: "Payment provider unavailable"}
	}

	return &CheckoutResponse{ClientSecret: pi.ClientSecret}, nil
}

// RecordWebhookOrder persists the order a provider-B webhook carries
// in its metadata. Idempotent on the provider transaction id: a retry
// returns the already-recorded order without creating anything.
func (s *CheckoutService) RecordWebhookOrder(ctx context.Context, snap OrderSnapshot, transactionID string, rawPayload []byte) (*models.Order, error) {
	if existing, err := s.orders.FindByTransactionID(ctx, transactionID); err == nil {
		return existing, nil
	}

	lines, err := s.buildPricingLines(ctx, snap.Items)
	if err != nil {
		return nil, fmt.Errorf("price webhook cart: %w", err)
	}
	payable := OrderTotal(lines) - snap.DiscountAmount

	order := &models.Order{
		ID:                    uuid.New(),
		UserID:                snap.UserID,
		CustomerEmail:         snap.UserEmail,
		Amount:                payable,
		Status:                models.OrderStatusPending,
		PaymentMethod:         models.PaymentMethodStripe,
		ExternalTransactionID: transactionID,
		ProviderPayload:       string(rawPayload),
		CouponID:              snap.CouponID,
		DiscountAmount:        snap.DiscountAmount,
		OrderItems:            snapshotItems(snap.Items),
	}

	if err := s.orders.Create(ctx, order); err != nil {
		// A concurrent delivery may have won the insert; fall back to it.
		if existing, findErr := s.orders.FindByTransactionID(ctx, transactionID); findErr == nil {
			return existing, nil
		}
		return nil, fmt.Errorf("create webhook order: %w", err)
	}

	affiliate := s.resolveAffiliate(ctx, snap.AffiliateCode, snap.UserID)
	s.createPendingCommission(ctx, order.ID, lines, affiliate)

	return order, nil
}

// resolveAffiliate looks up the attributed affiliate, discarding the
// attribution when the code is unknown, the affiliate is not active,
// or the affiliate is the purchaser (self-referral is disallowed).
func (s *CheckoutService) resolveAffiliate(ctx context.Context, code string, purchaser uuid.UUID) *models.Affiliate {
	if code == "" {
		return nil
	}
	affiliate, err := s.affiliates.FindByCode(ctx, code)
	if err != nil {
		s.logger.Debug("Attribution code did not resolve", zap.String("code", code))
		return nil
	}
	if affiliate.Status != models.AffiliateStatusActive {
		return nil
	}
	if affiliate.UserID == purchaser {
		s.logger.Info("Discarding self-referral attribution",
			zap.String("affiliate_id", affiliate.ID.String()),
			zap.String("user_id", purchaser.String()),
		)
		return nil
	}
	return affiliate
}

// createPendingCommission accrues the commission for an attributed
// order. Best-effort: losing the referral must not roll back the sale.
func (s *CheckoutService) createPendingCommission(ctx context.Context, orderID uuid.UUID, lines []PricingLine, affiliate *models.Affiliate) {
	if affiliate == nil {
		return
	}
	amount := TotalCommission(lines)
	if amount <= 0 {
		return
	}
	commission := &models.Commission{
		ID:          uuid.New(),
		AffiliateID: affiliate.ID,
		OrderID:     orderID,
		Amount:      amount,
		Status:      models.CommissionStatusPending,
		Description: fmt.Sprintf("Referral commission for order %s", orderID),
	}
	if err := s.commissions.Create(ctx, commission); err != nil {
		s.logger.Warn("Failed to create pending commission",
			zap.String("order_id", orderID.String()),
			zap.String("affiliate_id", affiliate.ID.String()),
			zap.Error(err),
		)
	}
}

// buildPricingLines joins cart lines with each product's affiliate
// rate. Prices stay the cart snapshot; the product record is only
// authoritative for the rate.
func (s *CheckoutService) buildPricingLines(ctx context.Context, items []models.CartItem) ([]PricingLine, error) {
	ids := make([]uuid.UUID, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ProductID)
	}
	products, err := s.products.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	rates := make(map[uuid.UUID]*int, len(products))
	for i := range products {
		rates[products[i].ID] = products[i].AffiliateRate
	}

	lines := make([]PricingLine, 0, len(items))
	for _, item := range items {
		lines = append(lines, PricingLine{
			UnitPrice:     item.Price,
			Quantity:      item.Quantity,
			AffiliateRate: rates[item.ProductID],
		})
	}
	return lines, nil
}

// validateCoupon checks activity, expiry and usage limit.
func (s *CheckoutService) validateCoupon(ctx context.Context, code string) (*models.Coupon, *ServiceError) {
	coupon, err := s.coupons.FindByCode(ctx, code)
	if err != nil {
		return nil, &ServiceError{StatusCode: 400, Message: "Coupon not found or inactive"}
	}
	if coupon.ExpiresAt != nil && time.Now().After(*coupon.ExpiresAt) {
		return nil, &ServiceError{StatusCode: 400, Message: "Coupon has expired"}
	}
	if coupon.UsageLimit > 0 && coupon.UsedCount >= coupon.UsageLimit {
		return nil, &ServiceError{StatusCode: 400, Message: "Coupon usage limit reached"}
	}
	return coupon, nil
}

func snapshotItems(items []models.CartItem) []models.OrderItem {
	snapshots := make([]models.OrderItem, 0, len(items))
	for _, item := range items {
		snapshots = append(snapshots, models.OrderItem{
			ID:          uuid.New(),
			ProductID:   item.ProductID,
			ProductName: item.Name,
			Price:       item.Price,
			Quantity:    item.Quantity,
			Image:       item.Image,
		})
	}
	return snapshots
}
