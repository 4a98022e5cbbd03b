package services_test

import (
	"context"
	"errors"
	"sync"

	"storefront-backend/models"
	"storefront-backend/sender"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v80"
	"gorm.io/gorm"
)

// --- In-memory order repository ---

type memOrderRepo struct {
	mu          sync.Mutex
	orders      map[uuid.UUID]*models.Order
	createCalls int
	failCreate  bool
}

func newMemOrderRepo() *memOrderRepo {
	return &memOrderRepo{orders: make(map[uuid.UUID]*models.Order)}
}

func (m *memOrderRepo) Create(_ context.Context, order *models.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createCalls++
	if m.failCreate {
		return errors.New("insert failed")
	}
	if order.ExternalTransactionID != "" {
		for _, o := range m.orders {
			if o.ExternalTransactionID == order.ExternalTransactionID {
				return errors.New("duplicate key value violates unique constraint \"uniq_orders_external_txn\"")
			}
		}
	}
	cp := *order
	m.orders[order.ID] = &cp
	return nil
}

func (m *memOrderRepo) FindByID(_ context.Context, id uuid.UUID) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *memOrderRepo) FindByTransactionID(_ context.Context, transactionID string) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.orders {
		if o.ExternalTransactionID == transactionID {
			cp := *o
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memOrderRepo) FindByUserID(_ context.Context, userID uuid.UUID, _, _ int) ([]models.Order, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Order
	for _, o := range m.orders {
		if o.UserID == userID {
			out = append(out, *o)
		}
	}
	return out, int64(len(out)), nil
}

func (m *memOrderRepo) MarkPaid(_ context.Context, id uuid.UUID, transactionID string, rawPayload string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok || o.Status != models.OrderStatusPending {
		return false, nil
	}
	o.Status = models.OrderStatusPaid
	o.ExternalTransactionID = transactionID
	o.ProviderPayload = rawPayload
	return true, nil
}

func (m *memOrderRepo) MarkDelivered(_ context.Context, id, userID uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok || o.UserID != userID || o.Status != models.OrderStatusPaid {
		return false, nil
	}
	o.Status = models.OrderStatusDelivered
	return true, nil
}

func (m *memOrderRepo) SetProviderSession(_ context.Context, id uuid.UUID, session string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if o, ok := m.orders[id]; ok {
		o.ProviderSession = session
	}
	return nil
}

// --- In-memory product repository ---

type memProductRepo struct {
	mu       sync.Mutex
	products map[uuid.UUID]*models.Product
}

func newMemProductRepo(products ...*models.Product) *memProductRepo {
	repo := &memProductRepo{products: make(map[uuid.UUID]*models.Product)}
	for _, p := range products {
		repo.products[p.ID] = p
	}
	return repo
}

func (m *memProductRepo) FindByID(_ context.Context, id uuid.UUID) (*models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memProductRepo) FindByIDs(_ context.Context, ids []uuid.UUID) ([]models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Product
	for _, id := range ids {
		if p, ok := m.products[id]; ok {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (m *memProductRepo) DecrementStock(_ context.Context, id uuid.UUID, quantity int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok || p.IsStockUnlimited {
		return false, nil
	}
	if p.Stock != nil {
		*p.Stock -= quantity
	}
	return true, nil
}

// --- In-memory affiliate repository ---

type memAffiliateRepo struct {
	mu         sync.Mutex
	affiliates map[uuid.UUID]*models.Affiliate
}

func newMemAffiliateRepo(affiliates ...*models.Affiliate) *memAffiliateRepo {
	repo := &memAffiliateRepo{affiliates: make(map[uuid.UUID]*models.Affiliate)}
	for _, a := range affiliates {
		repo.affiliates[a.ID] = a
	}
	return repo
}

func (m *memAffiliateRepo) Create(_ context.Context, affiliate *models.Affiliate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.affiliates {
		if a.UserID == affiliate.UserID {
			return errors.New("duplicate key value violates unique constraint")
		}
	}
	cp := *affiliate
	m.affiliates[affiliate.ID] = &cp
	return nil
}

func (m *memAffiliateRepo) FindByCode(_ context.Context, code string) (*models.Affiliate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.affiliates {
		if a.Code == code {
			cp := *a
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memAffiliateRepo) FindByUserID(_ context.Context, userID uuid.UUID) (*models.Affiliate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.affiliates {
		if a.UserID == userID {
			cp := *a
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memAffiliateRepo) CreditEarnings(_ context.Context, id uuid.UUID, amount int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.affiliates[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	a.Balance += amount
	a.TotalEarnings += amount
	return nil
}

func (m *memAffiliateRepo) balanceOf(id uuid.UUID) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.affiliates[id]; ok {
		return a.Balance
	}
	return 0
}

// --- In-memory commission repository ---

type memCommissionRepo struct {
	mu          sync.Mutex
	commissions map[uuid.UUID]*models.Commission
	failCreate  bool
}

func newMemCommissionRepo() *memCommissionRepo {
	return &memCommissionRepo{commissions: make(map[uuid.UUID]*models.Commission)}
}

func (m *memCommissionRepo) Create(_ context.Context, commission *models.Commission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failCreate {
		return errors.New("insert failed")
	}
	for _, c := range m.commissions {
		if c.AffiliateID == commission.AffiliateID && c.OrderID == commission.OrderID {
			return errors.New("duplicate key value violates unique constraint")
		}
	}
	cp := *commission
	m.commissions[commission.ID] = &cp
	return nil
}

func (m *memCommissionRepo) FindByOrderID(_ context.Context, orderID uuid.UUID) (*models.Commission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.commissions {
		if c.OrderID == orderID {
			cp := *c
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memCommissionRepo) MarkPaid(_ context.Context, id uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.commissions[id]
	if !ok || c.Status != models.CommissionStatusPending {
		return false, nil
	}
	c.Status = models.CommissionStatusPaid
	return true, nil
}

func (m *memCommissionRepo) forOrder(orderID uuid.UUID) *models.Commission {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.commissions {
		if c.OrderID == orderID {
			cp := *c
			return &cp
		}
	}
	return nil
}

// --- In-memory coupon repository ---

type memCouponRepo struct {
	mu      sync.Mutex
	coupons map[string]*models.Coupon
}

func newMemCouponRepo(coupons ...*models.Coupon) *memCouponRepo {
	repo := &memCouponRepo{coupons: make(map[string]*models.Coupon)}
	for _, c := range coupons {
		repo.coupons[c.Code] = c
	}
	return repo
}

func (m *memCouponRepo) Create(_ context.Context, coupon *models.Coupon) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.coupons[coupon.Code]; exists {
		return errors.New("duplicate key value violates unique constraint")
	}
	cp := *coupon
	m.coupons[coupon.Code] = &cp
	return nil
}

func (m *memCouponRepo) FindByCode(_ context.Context, code string) (*models.Coupon, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.coupons[code]
	if !ok || !c.IsActive {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *memCouponRepo) FindFeatured(_ context.Context) (*models.Coupon, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.coupons {
		if c.IsFeatured && c.IsActive {
			cp := *c
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memCouponRepo) IncrementUsedCount(_ context.Context, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.coupons[code]; ok {
		c.UsedCount++
	}
	return nil
}

// --- Payment provider mocks ---

type mockStripe struct {
	mu           sync.Mutex
	lastMetadata map[string]string
	lastAmount   int64
	calls        int
	err          error
}

func (m *mockStripe) CreatePaymentIntent(amount int64, currency string, metadata map[string]string) (*stripe.PaymentIntent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	m.lastAmount = amount
	m.lastMetadata = metadata
	return &stripe.PaymentIntent{ID: "pi_test", ClientSecret: "pi_test_secret"}, nil
}

type mockRedirectProvider struct {
	url   string
	err   error
	calls int
}

func (m *mockRedirectProvider) CreateCheckout(_ context.Context, _ *models.Order) (string, error) {
	m.calls++
	if m.err != nil {
		return "", m.err
	}
	return m.url, nil
}

// --- Fan-out mocks ---

type mockEventProducer struct {
	mu     sync.Mutex
	events []models.OrderEvent
}

func (m *mockEventProducer) PublishOrderEvent(event models.OrderEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}

func (m *mockEventProducer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.events)
}

type mockEmailSender struct {
	mu    sync.Mutex
	sent  []string
	calls int
}

func (m *mockEmailSender) SendEmail(_ context.Context, to, _, _ string) (sender.SendResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.sent = append(m.sent, to)
	return sender.SendResult{MessageID: "test"}, nil
}
