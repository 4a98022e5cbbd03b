package services

import (
	"context"

	"storefront-backend/models"
	"storefront-backend/repository"

	"go.uber.org/zap"
)

// StockService applies inventory decrements for paid orders.
type StockService struct {
	products repository.ProductRepository
	logger   *zap.Logger
}

// NewStockService creates a new StockService.
func NewStockService(products repository.ProductRepository, logger *zap.Logger) *StockService {
	return &StockService{products: products, logger: logger}
}

// DecrementForOrder reduces stock for every item of a paid order.
// Each line is isolated: a failure on one product is logged and the
// rest still run, since the payment is already captured. Missing and
// unlimited-stock products are skipped. A resulting negative stock is
// a data-integrity warning, never an error.
func (s *StockService) DecrementForOrder(ctx context.Context, order *models.Order) {
	for _, item := range order.OrderItems {
		applied, err := s.products.DecrementStock(ctx, item.ProductID, item.Quantity)
		if err != nil {
			s.logger.Error("Stock decrement failed",
				zap.String("order_id", order.ID.String()),
				zap.String("product_id", item.ProductID.String()),
				zap.Error(err),
			)
			continue
		}
		if !applied {
			s.logger.Debug("Stock decrement skipped (missing or unlimited product)",
				zap.String("product_id", item.ProductID.String()),
			)
			continue
		}

		product, err := s.products.FindByID(ctx, item.ProductID)
		if err != nil {
			continue
		}
		if product.Stock != nil && *product.Stock < 0 {
			s.logger.Warn("Product stock went negative after paid order",
				zap.String("order_id", order.ID.String()),
				zap.String("product_id", item.ProductID.String()),
				zap.Int("stock", *product.Stock),
			)
		}
	}
}
