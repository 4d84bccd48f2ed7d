package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Shadowdev1174/Inventory-POS-WebApp/internal/domain"
	"github.com/Shadowdev1174/Inventory-POS-WebApp/internal/store"
)

func (s *Service) AddToCart(ctx context.Context, req domain.AddToCartRequest) (*domain.CartItem, error) {
	actor, err := s.requireActor(ctx)
	if err != nil {
		return nil, err
	}
	if req.Quantity < 1 {
		return nil, domain.Invalid("quantity", "must be at least 1")
	}
	if req.Quantity > domain.MaxStockQuantity {
		return nil, domain.Invalid("quantity", "must not exceed %d", domain.MaxStockQuantity)
	}

	return s.repo.AddCartItem(ctx, domain.CartItem{
		ID:        uuid.NewString(),
		Username:  actor.Username,
		ProductID: strings.TrimSpace(req.ProductID),
		Quantity:  req.Quantity,
		CreatedAt: time.Now().UTC(),
	})
}

// UpdateCartItem re-validates the new quantity against live stock. A
// quantity of zero or less removes the line and returns nil.
func (s *Service) UpdateCartItem(ctx context.Context, cartItemID string, quantity int) (*domain.CartItem, error) {
	actor, err := s.requireActor(ctx)
	if err != nil {
		return nil, err
	}

	if quantity <= 0 {
		if err := s.repo.DeleteCartItem(ctx, actor.Username, cartItemID); err != nil {
			return nil, err
		}
		return nil, nil
	}
	if quantity > domain.MaxStockQuantity {
		return nil, domain.Invalid("quantity", "must not exceed %d", domain.MaxStockQuantity)
	}
	return s.repo.UpdateCartItemQuantity(ctx, actor.Username, cartItemID, quantity)
}

func (s *Service) RemoveFromCart(ctx context.Context, cartItemID string) error {
	actor, err := s.requireActor(ctx)
	if err != nil {
		return err
	}
	return s.repo.DeleteCartItem(ctx, actor.Username, cartItemID)
}

func (s *Service) ClearCart(ctx context.Context) error {
	actor, err := s.requireActor(ctx)
	if err != nil {
		return err
	}
	return s.repo.ClearCart(ctx, actor.Username)
}

// Cart recomputes the summary from live selling prices on every call; no
// totals are stored on the cart rows themselves.
func (s *Service) Cart(ctx context.Context) (*domain.CartSummary, error) {
	actor, err := s.requireActor(ctx)
	if err != nil {
		return nil, err
	}

	items, err := s.repo.ListCartItems(ctx, actor.Username)
	if err != nil {
		return nil, err
	}

	summary := domain.CartSummary{
		Lines:    make([]domain.CartLine, 0, len(items)),
		Subtotal: decimal.Zero,
		Tax:      decimal.Zero,
		Total:    decimal.Zero,
	}
	for _, item := range items {
		product, err := s.repo.GetProductByID(ctx, item.ProductID)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
		// A line whose product vanished or was archived stays visible so
		// the cashier can see what blocks checkout and remove it.
		if err != nil || !product.Sellable() {
			line := domain.CartLine{
				CartItemID:  item.ID,
				ProductID:   item.ProductID,
				Quantity:    item.Quantity,
				LineTotal:   decimal.Zero,
				Unavailable: true,
			}
			if product != nil {
				line.ProductName = product.Name
				line.SKU = product.SKU
			}
			summary.Lines = append(summary.Lines, line)
			continue
		}
		lineTotal := domain.Money(product.SellingPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
		summary.Lines = append(summary.Lines, domain.CartLine{
			CartItemID:  item.ID,
			ProductID:   product.ID,
			ProductName: product.Name,
			SKU:         product.SKU,
			UnitPrice:   product.SellingPrice,
			Quantity:    item.Quantity,
			LineTotal:   lineTotal,
			InStock:     product.StockQuantity,
		})
		summary.ItemCount += item.Quantity
		summary.Subtotal = summary.Subtotal.Add(lineTotal)
	}
	summary.Tax = domain.TaxOn(summary.Subtotal)
	summary.Total = summary.Subtotal.Add(summary.Tax)
	return &summary, nil
}
