package cache

import (
	"context"
	"time"

	"github.com/Shadowdev1174/Inventory-POS-WebApp/internal/domain"
)

// CatalogCache fronts the active-product listings. Implementations are
// best-effort: a miss or an error always falls through to the repository.
type CatalogCache interface {
	GetProducts(ctx context.Context, key string) ([]domain.Product, bool, error)
	SetProducts(ctx context.Context, key string, products []domain.Product, ttl time.Duration) error
	Invalidate(ctx context.Context) error
}

type NoopCatalogCache struct{}

func (NoopCatalogCache) GetProducts(_ context.Context, _ string) ([]domain.Product, bool, error) {
	return nil, false, nil
}

func (NoopCatalogCache) SetProducts(_ context.Context, _ string, _ []domain.Product, _ time.Duration) error {
	return nil
}

func (NoopCatalogCache) Invalidate(_ context.Context) error {
	return nil
}
