package service

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/Shadowdev1174/Inventory-POS-WebApp/internal/domain"
)

// CreateRefund returns part or all of a sale item: the refund record, the
// stock restore, the RETURN ledger entry, and the sale status flip commit
// together in the store.
func (s *Service) CreateRefund(ctx context.Context, req domain.RefundRequest) (*domain.Refund, error) {
	actor, err := s.requireAdmin(ctx)
	if err != nil {
		return nil, err
	}

	if req.Quantity < 1 {
		return nil, domain.Invalid("quantity", "must be at least 1")
	}
	reason := strings.ToUpper(strings.TrimSpace(req.Reason))
	if !isRefundReason(reason) {
		return nil, domain.Invalid("reason", "must be one of DEFECTIVE, WRONG_ITEM, CUSTOMER_REQUEST, DAMAGED, OTHER")
	}

	refund, err := s.repo.CreateRefund(ctx, domain.Refund{
		ID:          uuid.NewString(),
		SaleItemID:  strings.TrimSpace(req.SaleItemID),
		Quantity:    req.Quantity,
		Reason:      reason,
		Notes:       strings.TrimSpace(req.Notes),
		ProcessedBy: actor.Username,
	})
	if err != nil {
		return nil, err
	}

	s.invalidateCatalog(ctx)
	s.log.Info().
		Str("actor", actor.Username).
		Str("sale_id", refund.SaleID).
		Int("quantity", refund.Quantity).
		Str("amount", refund.Amount.StringFixed(2)).
		Str("reason", refund.Reason).
		Msg("refund processed")
	return refund, nil
}

func (s *Service) ListRefunds(ctx context.Context, saleID string) ([]domain.Refund, error) {
	if _, err := s.requireActor(ctx); err != nil {
		return nil, err
	}
	return s.repo.ListRefunds(ctx, strings.TrimSpace(saleID))
}
