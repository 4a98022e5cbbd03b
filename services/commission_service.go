package services

import (
	"context"

	"storefront-backend/models"
	"storefront-backend/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CommissionService settles pending commissions once their order's
// payment is confirmed.
type CommissionService struct {
	commissions repository.CommissionRepository
	affiliates  repository.AffiliateRepository
	logger      *zap.Logger
}

// NewCommissionService creates a new CommissionService.
func NewCommissionService(commissions repository.CommissionRepository, affiliates repository.AffiliateRepository, logger *zap.Logger) *CommissionService {
	return &CommissionService{commissions: commissions, affiliates: affiliates, logger: logger}
}

// SettleForOrder flips the order's commission from pending to paid and
// credits the affiliate. No-op when the order has no commission or the
// commission is already non-pending, which makes webhook retries safe:
// the conditional flip can succeed at most once, so the affiliate is
// credited at most once.
func (s *CommissionService) SettleForOrder(ctx context.Context, orderID uuid.UUID) error {
	commission, err := s.commissions.FindByOrderID(ctx, orderID)
	if err != nil {
		s.logger.Debug("No commission for order", zap.String("order_id", orderID.String()))
		return nil
	}
	if commission.Status != models.CommissionStatusPending {
		s.logger.Info("Commission already settled, skipping",
			zap.String("commission_id", commission.ID.String()),
			zap.String("status", commission.Status),
		)
		return nil
	}

	applied, err := s.commissions.MarkPaid(ctx, commission.ID)
	if err != nil {
		return err
	}
	if !applied {
		// Lost the race against a concurrent webhook delivery.
		s.logger.Info("Commission settled concurrently, skipping credit",
			zap.String("commission_id", commission.ID.String()),
		)
		return nil
	}

	if err := s.affiliates.CreditEarnings(ctx, commission.AffiliateID, commission.Amount); err != nil {
		s.logger.Error("Failed to credit affiliate earnings",
			zap.String("commission_id", commission.ID.String()),
			zap.String("affiliate_id", commission.AffiliateID.String()),
			zap.Int("amount", commission.Amount),
			zap.Error(err),
		)
		return err
	}

	s.logger.Info("Commission settled",
		zap.String("commission_id", commission.ID.String()),
		zap.String("affiliate_id", commission.AffiliateID.String()),
		zap.Int("amount", commission.Amount),
	)
	return nil
}
