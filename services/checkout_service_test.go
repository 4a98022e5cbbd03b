package services_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"storefront-backend/models"
	"storefront-backend/services"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type checkoutFixture struct {
	svc         *services.CheckoutService
	orders      *memOrderRepo
	products    *memProductRepo
	affiliates  *memAffiliateRepo
	commissions *memCommissionRepo
	coupons     *memCouponRepo
	stripe      *mockStripe
	infinitepay *mockRedirectProvider
}

func newCheckoutFixture(products []*models.Product, affiliates []*models.Affiliate, coupons []*models.Coupon) *checkoutFixture {
	f := &checkoutFixture{
		orders:      newMemOrderRepo(),
		products:    newMemProductRepo(products...),
		affiliates:  newMemAffiliateRepo(affiliates...),
		commissions: newMemCommissionRepo(),
		coupons:     newMemCouponRepo(coupons...),
		stripe:      &mockStripe{},
		infinitepay: &mockRedirectProvider{url: "https://pay.example/checkout/abc"},
	}
	f.svc = services.NewCheckoutService(
		f.orders, f.products, f.affiliates, f.commissions, f.coupons,
		f.stripe, f.infinitepay, "brl", 100, zap.NewNop(),
	)
	return f
}

func testProduct(price int, rate *int) *models.Product {
	stock := 10
	return &models.Product{
		ID:            uuid.New(),
		Name:          "Test Product",
		Stock:         &stock,
		AffiliateRate: rate,
	}
}

func cartFor(p *models.Product, price, qty int) []models.CartItem {
	return []models.CartItem{{
		ProductID: p.ID,
		Name:      p.Name,
		Price:     price,
		Quantity:  qty,
	}}
}

func TestCheckout_BelowMinimumRejectedBeforeAnyWrite(t *testing.T) {
	p := testProduct(50, nil)
	f := newCheckoutFixture([]*models.Product{p}, nil, nil)

	req := &services.CheckoutRequest{
		Items:         cartFor(p, 50, 1),
		PaymentMethod: models.PaymentMethodInfinitePay,
	}
	resp, svcErr := f.svc.Checkout(context.Background(), uuid.New(), "buyer@example.com", req, "")

	require.NotNil(t, svcErr)
	assert.Equal(t, 400, svcErr.StatusCode)
	assert.Nil(t, resp)
	assert.Equal(t, 0, f.orders.createCalls)
	assert.Equal(t, 0, f.infinitepay.calls)
}

func TestCheckout_InvalidQuantityRejected(t *testing.T) {
	p := testProduct(1000, nil)
	f := newCheckoutFixture([]*models.Product{p}, nil, nil)

	req := &services.CheckoutRequest{
		Items:         cartFor(p, 1000, 0),
		PaymentMethod: models.PaymentMethodInfinitePay,
	}
	_, svcErr := f.svc.Checkout(context.Background(), uuid.New(), "buyer@example.com", req, "")

	require.NotNil(t, svcErr)
	assert.Equal(t, 400, svcErr.StatusCode)
}

func TestCheckout_InfinitePayCreatesPendingOrder(t *testing.T) {
	p := testProduct(1000, nil)
	f := newCheckoutFixture([]*models.Product{p}, nil, nil)

	req := &services.CheckoutRequest{
		Items:         cartFor(p, 1000, 2),
		PaymentMethod: models.PaymentMethodInfinitePay,
	}
	resp, svcErr := f.svc.Checkout(context.Background(), uuid.New(), "buyer@example.com", req, "")

	require.Nil(t, svcErr)
	assert.Equal(t, "https://pay.example/checkout/abc", resp.RedirectURL)
	require.NotEmpty(t, resp.OrderID)

	order, err := f.orders.FindByID(context.Background(), uuid.MustParse(resp.OrderID))
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPending, order.Status)
	assert.Equal(t, 2000, order.Amount)
	assert.Equal(t, models.PaymentMethodInfinitePay, order.PaymentMethod)
}

func TestCheckout_AttributionCreatesPendingCommission(t *testing.T) {
	p := testProduct(1000, intPtr(20))
	affiliate := &models.Affiliate{
		ID:     uuid.New(),
		UserID: uuid.New(),
		Code:   "AF-PARTNER1",
		Status: models.AffiliateStatusActive,
	}
	f := newCheckoutFixture([]*models.Product{p}, []*models.Affiliate{affiliate}, nil)

	req := &services.CheckoutRequest{
		Items:         cartFor(p, 1000, 2),
		PaymentMethod: models.PaymentMethodInfinitePay,
	}
	resp, svcErr := f.svc.Checkout(context.Background(), uuid.New(), "buyer@example.com", req, "AF-PARTNER1")

	require.Nil(t, svcErr)
	commission := f.commissions.forOrder(uuid.MustParse(resp.OrderID))
	require.NotNil(t, commission)
	assert.Equal(t, affiliate.ID, commission.AffiliateID)
	assert.Equal(t, 400, commission.Amount)
	assert.Equal(t, models.CommissionStatusPending, commission.Status)
}

func TestCheckout_SelfReferralDiscarded(t *testing.T) {
	p := testProduct(1000, intPtr(20))
	buyer := uuid.New()
	affiliate := &models.Affiliate{
		ID:     uuid.New(),
		UserID: buyer,
		Code:   "AF-SELF",
		Status: models.AffiliateStatusActive,
	}
	f := newCheckoutFixture([]*models.Product{p}, []*models.Affiliate{affiliate}, nil)

	req := &services.CheckoutRequest{
		Items:         cartFor(p, 1000, 1),
		PaymentMethod: models.PaymentMethodInfinitePay,
	}
	resp, svcErr := f.svc.Checkout(context.Background(), buyer, "buyer@example.com", req, "AF-SELF")

	require.Nil(t, svcErr)
	assert.Nil(t, f.commissions.forOrder(uuid.MustParse(resp.OrderID)))
}

func TestCheckout_SuspendedAffiliateDiscarded(t *testing.T) {
	p := testProduct(1000, nil)
	affiliate := &models.Affiliate{
		ID:     uuid.New(),
		UserID: uuid.New(),
		Code:   "AF-GONE",
		Status: models.AffiliateStatusSuspended,
	}
	f := newCheckoutFixture([]*models.Product{p}, []*models.Affiliate{affiliate}, nil)

	req := &services.CheckoutRequest{
		Items:         cartFor(p, 1000, 1),
		PaymentMethod: models.PaymentMethodInfinitePay,
	}
	resp, svcErr := f.svc.Checkout(context.Background(), uuid.New(), "buyer@example.com", req, "AF-GONE")

	require.Nil(t, svcErr)
	assert.Nil(t, f.commissions.forOrder(uuid.MustParse(resp.OrderID)))
}

func TestCheckout_CommissionFailureDoesNotFailCheckout(t *testing.T) {
	p := testProduct(1000, intPtr(20))
	affiliate := &models.Affiliate{
		ID:     uuid.New(),
		UserID: uuid.New(),
		Code:   "AF-PARTNER1",
		Status: models.AffiliateStatusActive,
	}
	f := newCheckoutFixture([]*models.Product{p}, []*models.Affiliate{affiliate}, nil)
	f.commissions.failCreate = true

	req := &services.CheckoutRequest{
		Items:         cartFor(p, 1000, 1),
		PaymentMethod: models.PaymentMethodInfinitePay,
	}
	resp, svcErr := f.svc.Checkout(context.Background(), uuid.New(), "buyer@example.com", req, "AF-PARTNER1")

	require.Nil(t, svcErr)
	assert.NotEmpty(t, resp.RedirectURL)
}

func TestCheckout_ProviderFailureLeavesPendingOrder(t *testing.T) {
	p := testProduct(1000, nil)
	f := newCheckoutFixture([]*models.Product{p}, nil, nil)
	f.infinitepay.err = errors.New("connection refused")

	req := &services.CheckoutRequest{
		Items:         cartFor(p, 1000, 1),
		PaymentMethod: models.PaymentMethodInfinitePay,
	}
	resp, svcErr := f.svc.Checkout(context.Background(), uuid.New(), "buyer@example.com", req, "")

	require.NotNil(t, svcErr)
	assert.Equal(t, 502, svcErr.StatusCode)
	assert.Nil(t, resp)
	// The pending order stays behind; it is never billed.
	assert.Equal(t, 1, f.orders.createCalls)
}

func TestCheckout_PriceSnapshotSurvivesProductChange(t *testing.T) {
	p := testProduct(1000, nil)
	f := newCheckoutFixture([]*models.Product{p}, nil, nil)

	req := &services.CheckoutRequest{
		Items:         cartFor(p, 1000, 2),
		PaymentMethod: models.PaymentMethodInfinitePay,
	}
	resp, svcErr := f.svc.Checkout(context.Background(), uuid.New(), "buyer@example.com", req, "")
	require.Nil(t, svcErr)

	// Catalog price changes after the sale must not touch the order.
	f.products.products[p.ID].Price = 9999

	order, err := f.orders.FindByID(context.Background(), uuid.MustParse(resp.OrderID))
	require.NoError(t, err)
	assert.Equal(t, 2000, order.Amount)
	require.Len(t, order.OrderItems, 1)
	assert.Equal(t, 1000, order.OrderItems[0].Price)
}

func TestCheckout_CouponDiscountApplied(t *testing.T) {
	p := testProduct(1000, nil)
	coupon := &models.Coupon{
		ID:       uuid.New(),
		Code:     "welcome10",
		Type:     models.CouponTypePercentage,
		Value:    10,
		IsActive: true,
	}
	f := newCheckoutFixture([]*models.Product{p}, nil, []*models.Coupon{coupon})

	req := &services.CheckoutRequest{
		Items:         cartFor(p, 1000, 1),
		CouponCode:    "welcome10",
		PaymentMethod: models.PaymentMethodInfinitePay,
	}
	resp, svcErr := f.svc.Checkout(context.Background(), uuid.New(), "buyer@example.com", req, "")

	require.Nil(t, svcErr)
	order, err := f.orders.FindByID(context.Background(), uuid.MustParse(resp.OrderID))
	require.NoError(t, err)
	assert.Equal(t, 900, order.Amount)
	assert.Equal(t, 100, order.DiscountAmount)
	require.NotNil(t, order.CouponID)
	assert.Equal(t, coupon.ID, *order.CouponID)
	assert.Equal(t, 1, f.coupons.coupons["welcome10"].UsedCount)
}

func TestCheckout_UnknownCouponRejected(t *testing.T) {
	p := testProduct(1000, nil)
	f := newCheckoutFixture([]*models.Product{p}, nil, nil)

	req := &services.CheckoutRequest{
		Items:         cartFor(p, 1000, 1),
		CouponCode:    "nope",
		PaymentMethod: models.PaymentMethodInfinitePay,
	}
	_, svcErr := f.svc.Checkout(context.Background(), uuid.New(), "buyer@example.com", req, "")

	require.NotNil(t, svcErr)
	assert.Equal(t, 400, svcErr.StatusCode)
	assert.Equal(t, 0, f.orders.createCalls)
}

func TestCheckout_StripeWritesNothing(t *testing.T) {
	p := testProduct(1000, nil)
	f := newCheckoutFixture([]*models.Product{p}, nil, nil)

	userID := uuid.New()
	req := &services.CheckoutRequest{
		Items:         cartFor(p, 1000, 2),
		PaymentMethod: models.PaymentMethodStripe,
	}
	resp, svcErr := f.svc.Checkout(context.Background(), userID, "buyer@example.com", req, "AF-PARTNER1")

	require.Nil(t, svcErr)
	assert.Equal(t, "pi_test_secret", resp.ClientSecret)
	assert.Empty(t, resp.OrderID)
	// The order is reconstructed by the webhook, never written here.
	assert.Equal(t, 0, f.orders.createCalls)
	assert.Equal(t, int64(2000), f.stripe.lastAmount)
	assert.Equal(t, userID.String(), f.stripe.lastMetadata["user_id"])
	assert.Equal(t, "AF-PARTNER1", f.stripe.lastMetadata["affiliate_code"])
	assert.Contains(t, f.stripe.lastMetadata["items"], p.ID.String())
}

// rendezvousOrderRepo holds the first two transaction-id lookups at a
// barrier so both released callers see no existing order and race into
// Create. Later lookups (the losing caller's fallback) pass through.
type rendezvousOrderRepo struct {
	*memOrderRepo
	arrivals int32
	barrier  sync.WaitGroup
}

func (r *rendezvousOrderRepo) FindByTransactionID(ctx context.Context, transactionID string) (*models.Order, error) {
	if atomic.AddInt32(&r.arrivals, 1) <= 2 {
		order, err := r.memOrderRepo.FindByTransactionID(ctx, transactionID)
		r.barrier.Done()
		r.barrier.Wait()
		return order, err
	}
	return r.memOrderRepo.FindByTransactionID(ctx, transactionID)
}

func TestRecordWebhookOrder_ConcurrentDuplicateCreatesOneOrder(t *testing.T) {
	p := testProduct(1000, nil)
	orders := &rendezvousOrderRepo{memOrderRepo: newMemOrderRepo()}
	orders.barrier.Add(2)

	f := newCheckoutFixture([]*models.Product{p}, nil, nil)
	svc := services.NewCheckoutService(
		orders, f.products, f.affiliates, f.commissions, f.coupons,
		f.stripe, f.infinitepay, "brl", 100, zap.NewNop(),
	)

	snap := services.OrderSnapshot{
		UserID:    uuid.New(),
		UserEmail: "buyer@example.com",
		Items:     cartFor(p, 1000, 1),
	}

	results := make(chan *models.Order, 2)
	for i := 0; i < 2; i++ {
		go func() {
			order, err := svc.RecordWebhookOrder(context.Background(), snap, "pi_same", []byte(`{}`))
			assert.NoError(t, err)
			results <- order
		}()
	}
	first, second := <-results, <-results

	// Both inserts were attempted; the unique transaction-id index let
	// only one through and the loser fell back to the winner's row.
	assert.Equal(t, 2, orders.createCalls)
	assert.Len(t, orders.orders, 1)
	assert.Equal(t, first.ID, second.ID)
}

func TestRecordWebhookOrder_IdempotentOnTransactionID(t *testing.T) {
	p := testProduct(1000, intPtr(20))
	affiliate := &models.Affiliate{
		ID:     uuid.New(),
		UserID: uuid.New(),
		Code:   "AF-PARTNER1",
		Status: models.AffiliateStatusActive,
	}
	f := newCheckoutFixture([]*models.Product{p}, []*models.Affiliate{affiliate}, nil)

	snap := services.OrderSnapshot{
		UserID:        uuid.New(),
		UserEmail:     "buyer@example.com",
		Items:         cartFor(p, 1000, 2),
		AffiliateCode: "AF-PARTNER1",
	}

	first, err := f.svc.RecordWebhookOrder(context.Background(), snap, "pi_abc", []byte(`{}`))
	require.NoError(t, err)
	second, err := f.svc.RecordWebhookOrder(context.Background(), snap, "pi_abc", []byte(`{}`))
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1, f.orders.createCalls)

	commission := f.commissions.forOrder(first.ID)
	require.NotNil(t, commission)
	assert.Equal(t, 400, commission.Amount)
}
