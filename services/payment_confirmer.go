package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"storefront-backend/models"
	"storefront-backend/repository"
	"storefront-backend/sender"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ErrOrderNotFound is returned when a webhook references an order this
// ledger has never seen; the handler maps it to a 404 so the provider
// can retry an early delivery.
var ErrOrderNotFound = errors.New("order not found")

// OrderEventPublisher publishes order lifecycle events to the broker.
type OrderEventPublisher interface {
	PublishOrderEvent(event models.OrderEvent) error
}

// TopicPublisher publishes raw messages to a fan-out topic (SNS).
type TopicPublisher interface {
	Publish(ctx context.Context, topicArn string, message []byte) error
}

// PaymentConfirmer runs the provider-independent side of payment
// confirmation. Both webhook handlers reduce their payloads to a
// PaymentConfirmed event and hand it here, so the cascade exists once.
type PaymentConfirmer struct {
	orders      repository.OrderRepository
	products    repository.ProductRepository
	stock       *StockService
	commissions *CommissionService
	events      OrderEventPublisher
	sns         TopicPublisher
	snsTopicArn string
	email       sender.EmailSender
	logger      *zap.Logger
}

// NewPaymentConfirmer creates a new PaymentConfirmer. The events, sns
// and email collaborators are optional; nil disables that fan-out.
func NewPaymentConfirmer(
	orders repository.OrderRepository,
	products repository.ProductRepository,
	stock *StockService,
	commissions *CommissionService,
	events OrderEventPublisher,
	sns TopicPublisher,
	snsTopicArn string,
	email sender.EmailSender,
	logger *zap.Logger,
) *PaymentConfirmer {
	return &PaymentConfirmer{
		orders:      orders,
		products:    products,
		stock:       stock,
		commissions: commissions,
		events:      events,
		sns:         sns,
		snsTopicArn: snsTopicArn,
		email:       email,
		logger:      logger,
	}
}

// Confirm transitions the order to paid exactly once and runs the paid
// cascade: stock decrement, commission settlement, event fan-out and
// confirmation email. The idempotency check is the very first step, so
// a provider retry never reapplies side effects. Each cascade step is
// fault-isolated: its failure is logged and the others still run,
// because the payment itself is already recorded and cannot be rolled
// back at this layer.
func (p *PaymentConfirmer) Confirm(ctx context.Context, evt models.PaymentConfirmed) error {
	order, err := p.orders.FindByID(ctx, evt.OrderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrOrderNotFound
		}
		return fmt.Errorf("load order %s: %w", evt.OrderID, err)
	}

	if order.Status != models.OrderStatusPending {
		p.logger.Info("Skipping duplicate payment confirmation",
			zap.String("order_id", order.ID.String()),
			zap.String("status", order.Status),
		)
		return nil
	}

	applied, err := p.orders.MarkPaid(ctx, order.ID, evt.ProviderTransactionID, string(evt.RawPayload))
	if err != nil {
		return fmt.Errorf("mark order %s paid: %w", order.ID, err)
	}
	if !applied {
		// A concurrent delivery won the status flip; it owns the cascade.
		p.logger.Info("Order confirmed concurrently, skipping cascade",
			zap.String("order_id", order.ID.String()),
		)
		return nil
	}

	order.Status = models.OrderStatusPaid
	p.logger.Info("Order paid",
		zap.String("order_id", order.ID.String()),
		zap.String("transaction_id", evt.ProviderTransactionID),
		zap.Int("amount", order.Amount),
	)

	p.stock.DecrementForOrder(ctx, order)

	if err := p.commissions.SettleForOrder(ctx, order.ID); err != nil {
		p.logger.Error("Commission settlement failed",
			zap.String("order_id", order.ID.String()),
			zap.Error(err),
		)
	}

	p.publishOrderPaid(ctx, order)
	p.sendConfirmationEmail(ctx, order)

	return nil
}

// publishOrderPaid fans the paid event out to Kafka and SNS,
// best-effort on both legs.
func (p *PaymentConfirmer) publishOrderPaid(ctx context.Context, order *models.Order) {
	event := models.OrderEvent{
		Type:      "order.paid",
		OrderID:   order.ID.String(),
		UserID:    order.UserID.String(),
		Amount:    order.Amount,
		Timestamp: time.Now().UTC(),
	}

	if p.events != nil {
		if err := p.events.PublishOrderEvent(event); err != nil {
			p.logger.Error("Failed to publish order event to Kafka",
				zap.String("order_id", event.OrderID),
				zap.Error(err),
			)
		}
	}

	if p.sns != nil && p.snsTopicArn != "" {
		payload := []byte(fmt.Sprintf(
			`{"type":%q,"order_id":%q,"user_id":%q,"amount":%d}`,
			event.Type, event.OrderID, event.UserID, event.Amount,
		))
		if err := p.sns.Publish(ctx, p.snsTopicArn, payload); err != nil {
			p.logger.Error("Failed to publish order event to SNS",
				zap.String("order_id", event.OrderID),
				zap.Error(err),
			)
		}
	}
}

// sendConfirmationEmail sends the order confirmation with download
// links for digital items. Failures are swallowed: the payment is
// already recorded and the provider must still see success.
func (p *PaymentConfirmer) sendConfirmationEmail(ctx context.Context, order *models.Order) {
	if p.email == nil || order.CustomerEmail == "" {
		return
	}

	subject := fmt.Sprintf("Order %s confirmed", order.ID)
	body := p.buildConfirmationBody(ctx, order)

	if _, err := p.email.SendEmail(ctx, order.CustomerEmail, subject, body); err != nil {
		p.logger.Error("Failed to send confirmation email",
			zap.String("order_id", order.ID.String()),
			zap.Error(err),
		)
	}
}

func (p *PaymentConfirmer) buildConfirmationBody(ctx context.Context, order *models.Order) string {
	downloads := p.downloadLinks(ctx, order)

	var b strings.Builder
	b.WriteString("<h2>Thank you for your purchase!</h2>")
	b.WriteString("<ul>")
	for _, item := range order.OrderItems {
		b.WriteString(fmt.Sprintf("<li>%s &times; %d</li>", item.ProductName, item.Quantity))
		if url, ok := downloads[item.ProductID]; ok {
			b.WriteString(fmt.Sprintf(`<li><a href="%s">Download %s</a></li>`, url, item.ProductName))
		}
	}
	b.WriteString("</ul>")
	b.WriteString(fmt.Sprintf("<p>Total: %d</p>", order.Amount))
	return b.String()
}

func (p *PaymentConfirmer) downloadLinks(ctx context.Context, order *models.Order) map[uuid.UUID]string {
	links := make(map[uuid.UUID]string)
	ids := make([]uuid.UUID, 0, len(order.OrderItems))
	for _, item := range order.OrderItems {
		ids = append(ids, item.ProductID)
	}
	products, err := p.products.FindByIDs(ctx, ids)
	if err != nil {
		p.logger.Warn("Failed to load products for download links",
			zap.String("order_id", order.ID.String()),
			zap.Error(err),
		)
		return links
	}
	for i := range products {
		if products[i].DownloadURL != "" {
			links[products[i].ID] = products[i].DownloadURL
		}
	}
	return links
}
