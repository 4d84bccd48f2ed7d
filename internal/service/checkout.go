package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/Shadowdev1174/Inventory-POS-WebApp/internal/domain"
	"github.com/Shadowdev1174/Inventory-POS-WebApp/internal/store"
)

// Checkout converts the caller's cart into a completed sale. A conflicted
// transaction (concurrent checkout touching the same stock or counter) is
// retried once before the conflict is surfaced.
func (s *Service) Checkout(ctx context.Context, req domain.CheckoutRequest) (*domain.CheckoutResult, error) {
	actor, err := s.requireActor(ctx)
	if err != nil {
		return nil, err
	}

	method := strings.ToUpper(strings.TrimSpace(req.PaymentMethod))
	if !isSupportedPaymentMethod(method) {
		return nil, domain.Invalid("payment_method", "must be one of CASH, CARD, MOBILE, CHECK")
	}

	params := domain.CheckoutParams{
		Cashier:       actor.Username,
		PaymentMethod: method,
		AmountPaid:    domain.Money(req.AmountPaid),
		Notes:         strings.TrimSpace(req.Notes),
	}

	sale, err := s.repo.Checkout(ctx, params)
	if errors.Is(err, store.ErrConflict) {
		s.log.Warn().Str("cashier", actor.Username).Msg("checkout conflicted, retrying once")
		sale, err = s.repo.Checkout(ctx, params)
	}
	if err != nil {
		return nil, err
	}

	s.invalidateCatalog(ctx)
	s.log.Info().
		Str("cashier", actor.Username).
		Str("sale_number", sale.SaleNumber).
		Str("method", sale.PaymentMethod).
		Str("total", sale.TotalAmount.StringFixed(2)).
		Msg("checkout completed")

	return &domain.CheckoutResult{
		SaleID:     sale.ID,
		SaleNumber: sale.SaleNumber,
		Subtotal:   sale.Subtotal,
		Tax:        sale.TaxAmount,
		Total:      sale.TotalAmount,
		AmountPaid: sale.AmountPaid,
		Change:     sale.ChangeAmount,
		Status:     sale.Status,
		CreatedAt:  sale.CreatedAt,
	}, nil
}

func (s *Service) GetSale(ctx context.Context, id string) (*domain.Sale, error) {
	if _, err := s.requireActor(ctx); err != nil {
		return nil, err
	}
	return s.repo.GetSaleByID(ctx, id)
}

func (s *Service) GetSaleByNumber(ctx context.Context, saleNumber string) (*domain.Sale, error) {
	if _, err := s.requireActor(ctx); err != nil {
		return nil, err
	}
	return s.repo.GetSaleByNumber(ctx, strings.ToUpper(strings.TrimSpace(saleNumber)))
}

func (s *Service) ListSales(ctx context.Context, query domain.SalesQuery) ([]domain.Sale, error) {
	if _, err := s.requireActor(ctx); err != nil {
		return nil, err
	}

	if query.Day != "" {
		if _, err := time.Parse("2006-01-02", query.Day); err != nil {
			return nil, domain.Invalid("date", "must be formatted YYYY-MM-DD")
		}
	}
	if query.Limit < 1 {
		query.Limit = 50
	}
	if query.Limit > 200 {
		query.Limit = 200
	}
	if query.Offset < 0 {
		query.Offset = 0
	}
	return s.repo.ListSales(ctx, query)
}

func (s *Service) Receipt(ctx context.Context, saleID string) (*domain.Receipt, error) {
	sale, err := s.GetSale(ctx, saleID)
	if err != nil {
		return nil, err
	}

	return &domain.Receipt{
		SaleNumber:    sale.SaleNumber,
		Cashier:       sale.Cashier,
		Lines:         sale.Items,
		Subtotal:      sale.Subtotal,
		Tax:           sale.TaxAmount,
		Total:         sale.TotalAmount,
		PaymentMethod: sale.PaymentMethod,
		AmountPaid:    sale.AmountPaid,
		Change:        sale.ChangeAmount,
		IssuedAt:      sale.CreatedAt,
	}, nil
}

// DailySummary reports the given day's sales; an empty date means today.
func (s *Service) DailySummary(ctx context.Context, date string) (*domain.SalesSummary, error) {
	if _, err := s.requireActor(ctx); err != nil {
		return nil, err
	}

	day := time.Now().UTC()
	if date != "" {
		parsed, err := time.Parse("2006-01-02", date)
		if err != nil {
			return nil, domain.Invalid("date", "must be formatted YYYY-MM-DD")
		}
		day = parsed
	}
	return s.repo.GetDailySummary(ctx, day)
}
