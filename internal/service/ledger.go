package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Shadowdev1174/Inventory-POS-WebApp/internal/domain"
)

// RecordMovement applies a manual stock movement and its ledger entry in one
// transaction. SALE entries are written by the checkout engine only.
func (s *Service) RecordMovement(ctx context.Context, req domain.MovementRequest) (*domain.MovementResult, error) {
	actor, err := s.requireAdmin(ctx)
	if err != nil {
		return nil, err
	}

	kind := strings.ToUpper(strings.TrimSpace(req.Kind))
	quantity := req.Quantity
	switch kind {
	case domain.MovementIn, domain.MovementOut, domain.MovementReturn:
		if quantity == 0 {
			return nil, domain.Invalid("quantity", "must not be zero")
		}
		quantity = absInt(quantity)
	case domain.MovementAdjustment:
		// The quantity is the absolute stock level to set, not a delta.
		if quantity < 0 {
			return nil, domain.Invalid("quantity", "adjustment target must not be negative")
		}
	case domain.MovementSale:
		return nil, domain.Invalid("kind", "SALE movements are recorded by checkout")
	default:
		return nil, domain.Invalid("kind", "must be one of IN, OUT, ADJUSTMENT, RETURN")
	}
	if quantity > domain.MaxStockQuantity {
		return nil, domain.Invalid("quantity", "must not exceed %d", domain.MaxStockQuantity)
	}

	movement, product, err := s.repo.ApplyMovement(ctx, domain.StockMovement{
		ID:        uuid.NewString(),
		ProductID: strings.TrimSpace(req.ProductID),
		Kind:      kind,
		Quantity:  quantity,
		Reason:    strings.TrimSpace(req.Reason),
		Reference: strings.TrimSpace(req.Reference),
		CreatedBy: actor.Username,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		return nil, err
	}

	s.invalidateCatalog(ctx)
	s.log.Info().
		Str("actor", actor.Username).
		Str("sku", product.SKU).
		Str("kind", kind).
		Int("quantity", quantity).
		Int("stock", product.StockQuantity).
		Msg("stock movement recorded")
	return &domain.MovementResult{Movement: *movement, Product: *product}, nil
}

func (s *Service) ListMovements(ctx context.Context, productID string, limit int) ([]domain.StockMovement, error) {
	if _, err := s.requireActor(ctx); err != nil {
		return nil, err
	}
	if limit < 1 {
		limit = 100
	}
	if limit > 500 {
		limit = 500
	}
	return s.repo.ListMovements(ctx, strings.TrimSpace(productID), limit)
}

// ReconcileStock replays a product's full movement history and reports the
// drift between the replayed quantity and the stored one. IN and RETURN add,
// OUT and SALE subtract, ADJUSTMENT resets the running level.
func (s *Service) ReconcileStock(ctx context.Context, productID string) (*domain.StockReconciliation, error) {
	if _, err := s.requireAdmin(ctx); err != nil {
		return nil, err
	}

	product, err := s.repo.GetProductByID(ctx, productID)
	if err != nil {
		return nil, err
	}

	movements, err := s.repo.ListMovements(ctx, productID, 0)
	if err != nil {
		return nil, err
	}

	// Movements arrive newest first; replay needs chronological order.
	expected := 0
	for i := len(movements) - 1; i >= 0; i-- {
		m := movements[i]
		switch m.Kind {
		case domain.MovementIn, domain.MovementReturn:
			expected += m.Quantity
		case domain.MovementOut, domain.MovementSale:
			expected -= m.Quantity
		case domain.MovementAdjustment:
			expected = m.Quantity
		}
	}

	report := domain.StockReconciliation{
		ProductID:     product.ID,
		Recorded:      product.StockQuantity,
		Expected:      expected,
		Drift:         product.StockQuantity - expected,
		MovementCount: len(movements),
	}
	report.Consistent = report.Drift == 0
	if !report.Consistent {
		s.log.Warn().
			Str("sku", product.SKU).
			Int("recorded", report.Recorded).
			Int("expected", report.Expected).
			Msg("stock drift detected")
	}
	return &report, nil
}
