package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Shadowdev1174/Inventory-POS-WebApp/internal/domain"
	"github.com/Shadowdev1174/Inventory-POS-WebApp/internal/store"
)

func (s *Service) CreateCategory(ctx context.Context, req domain.CategoryCreateRequest) (*domain.Category, error) {
	actor, err := s.requireAdmin(ctx)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.Invalid("name", "is required")
	}

	now := time.Now().UTC()
	created, err := s.repo.CreateCategory(ctx, domain.Category{
		ID:          uuid.NewString(),
		Name:        name,
		Description: strings.TrimSpace(req.Description),
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().Str("actor", actor.Username).Str("category", created.Name).Msg("category created")
	return created, nil
}

func (s *Service) ListCategories(ctx context.Context) ([]domain.Category, error) {
	return s.repo.ListCategories(ctx)
}

func (s *Service) CreateSupplier(ctx context.Context, req domain.SupplierCreateRequest) (*domain.Supplier, error) {
	actor, err := s.requireAdmin(ctx)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.Invalid("name", "is required")
	}

	now := time.Now().UTC()
	created, err := s.repo.CreateSupplier(ctx, domain.Supplier{
		ID:            uuid.NewString(),
		Name:          name,
		ContactPerson: strings.TrimSpace(req.ContactPerson),
		Email:         strings.TrimSpace(req.Email),
		Phone:         strings.TrimSpace(req.Phone),
		Address:       strings.TrimSpace(req.Address),
		CreatedAt:     now,
		UpdatedAt:     now,
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().Str("actor", actor.Username).Str("supplier", created.Name).Msg("supplier created")
	return created, nil
}

func (s *Service) ListSuppliers(ctx context.Context) ([]domain.Supplier, error) {
	return s.repo.ListSuppliers(ctx)
}

// ListProducts serves the active catalog, through the cache when warm.
func (s *Service) ListProducts(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, error) {
	key := fmt.Sprintf("products:%s:%s:%t", strings.ToLower(strings.TrimSpace(filter.Search)), filter.CategoryID, filter.LowStock)
	if cached, ok, err := s.catalog.GetProducts(ctx, key); err != nil {
		s.log.Warn().Err(err).Msg("catalog cache read failed")
	} else if ok {
		return cached, nil
	}

	products, err := s.repo.ListActiveProducts(ctx, filter)
	if err != nil {
		return nil, err
	}
	if err := s.catalog.SetProducts(ctx, key, products, s.cacheTTL); err != nil {
		s.log.Warn().Err(err).Msg("catalog cache write failed")
	}
	return products, nil
}

func (s *Service) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	return s.repo.GetProductByID(ctx, id)
}

func (s *Service) ListAllProducts(ctx context.Context) ([]domain.Product, error) {
	if _, err := s.requireAdmin(ctx); err != nil {
		return nil, err
	}
	return s.repo.ListAllProducts(ctx)
}

func (s *Service) ListArchivedProducts(ctx context.Context) ([]domain.Product, error) {
	if _, err := s.requireAdmin(ctx); err != nil {
		return nil, err
	}
	return s.repo.ListDeletedProducts(ctx)
}

func (s *Service) LowStockReport(ctx context.Context) ([]domain.Product, error) {
	return s.repo.ListActiveProducts(ctx, domain.ProductFilter{LowStock: true})
}

func (s *Service) InventoryValue(ctx context.Context) (*domain.InventoryValue, error) {
	if _, err := s.requireAdmin(ctx); err != nil {
		return nil, err
	}
	return s.repo.GetInventoryValue(ctx)
}

func (s *Service) CreateProduct(ctx context.Context, req domain.ProductCreateRequest) (*domain.Product, error) {
	actor, err := s.requireAdmin(ctx)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.Invalid("name", "is required")
	}
	if err := validatePrice("cost_price", req.CostPrice); err != nil {
		return nil, err
	}
	if err := validatePrice("selling_price", req.SellingPrice); err != nil {
		return nil, err
	}
	if req.StockQuantity < 0 || req.StockQuantity > domain.MaxStockQuantity {
		return nil, domain.Invalid("stock_quantity", "must be between 0 and %d", domain.MaxStockQuantity)
	}
	if req.MinimumStock < 0 {
		return nil, domain.Invalid("minimum_stock", "must not be negative")
	}

	category, err := s.repo.GetCategoryByID(ctx, strings.TrimSpace(req.CategoryID))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domain.Invalid("category_id", "unknown category")
		}
		return nil, err
	}
	supplierID := strings.TrimSpace(req.SupplierID)
	if supplierID != "" {
		if _, err := s.repo.GetSupplierByID(ctx, supplierID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, domain.Invalid("supplier_id", "unknown supplier")
			}
			return nil, err
		}
	}

	now := time.Now().UTC()
	product := domain.Product{
		ID:           uuid.NewString(),
		Name:         name,
		Description:  strings.TrimSpace(req.Description),
		CategoryID:   category.ID,
		SupplierID:   supplierID,
		SKU:          strings.ToUpper(strings.TrimSpace(req.SKU)),
		Barcode:      strings.TrimSpace(req.Barcode),
		CostPrice:    domain.Money(req.CostPrice),
		SellingPrice: domain.Money(req.SellingPrice),
		MinimumStock: req.MinimumStock,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	// Initial stock enters through the ledger so a replay reconstructs it;
	// the store writes product and seed movement in one atomic create.
	var seed *domain.StockMovement
	if req.StockQuantity > 0 {
		seed = &domain.StockMovement{
			ID:        uuid.NewString(),
			ProductID: product.ID,
			Kind:      domain.MovementIn,
			Quantity:  req.StockQuantity,
			Reason:    "initial stock",
			CreatedBy: actor.Username,
			CreatedAt: now,
		}
	}

	created, err := s.createWithSKU(ctx, product, category.Name, seed)
	if err != nil {
		return nil, err
	}

	s.invalidateCatalog(ctx)
	s.log.Info().Str("actor", actor.Username).Str("sku", created.SKU).Str("product", created.Name).Msg("product created")
	return created, nil
}

// createWithSKU inserts the product, generating a category-prefixed SKU when
// none was supplied (e.g. BEV-0004) and stepping past collisions.
func (s *Service) createWithSKU(ctx context.Context, product domain.Product, categoryName string, seed *domain.StockMovement) (*domain.Product, error) {
	if product.SKU != "" {
		return s.repo.CreateProduct(ctx, product, seed)
	}

	count, err := s.repo.CountProductsInCategory(ctx, product.CategoryID)
	if err != nil {
		return nil, err
	}

	prefix := skuPrefix(categoryName)
	for attempt := 0; attempt < 25; attempt++ {
		product.SKU = fmt.Sprintf("%s-%04d", prefix, count+1+attempt)
		created, err := s.repo.CreateProduct(ctx, product, seed)
		if err == nil {
			return created, nil
		}
		if errors.Is(err, store.ErrInvalidInput) && strings.Contains(err.Error(), "sku") {
			continue
		}
		return nil, err
	}
	return nil, fmt.Errorf("%w: could not allocate a free sku", store.ErrInvalidInput)
}

func skuPrefix(categoryName string) string {
	letters := make([]rune, 0, 3)
	for _, r := range strings.ToUpper(categoryName) {
		if r >= 'A' && r <= 'Z' {
			letters = append(letters, r)
		}
		if len(letters) == 3 {
			break
		}
	}
	for len(letters) < 3 {
		letters = append(letters, 'X')
	}
	return string(letters)
}

func validatePrice(field string, price decimal.Decimal) error {
	if price.IsNegative() {
		return domain.Invalid(field, "must not be negative")
	}
	if price.GreaterThan(domain.MaxPrice) {
		return domain.Invalid(field, "must not exceed %s", domain.MaxPrice.StringFixed(2))
	}
	return nil
}

func (s *Service) UpdateProduct(ctx context.Context, id string, req domain.ProductUpdateRequest) (*domain.Product, error) {
	actor, err := s.requireAdmin(ctx)
	if err != nil {
		return nil, err
	}

	existing, err := s.repo.GetProductByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing.Deleted {
		return nil, store.ErrNotFound
	}

	updated := *existing
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, domain.Invalid("name", "is required")
		}
		updated.Name = name
	}
	if req.Description != nil {
		updated.Description = strings.TrimSpace(*req.Description)
	}
	if req.CategoryID != nil {
		if _, err := s.repo.GetCategoryByID(ctx, *req.CategoryID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, domain.Invalid("category_id", "unknown category")
			}
			return nil, err
		}
		updated.CategoryID = *req.CategoryID
	}
	if req.SupplierID != nil {
		supplierID := strings.TrimSpace(*req.SupplierID)
		if supplierID != "" {
			if _, err := s.repo.GetSupplierByID(ctx, supplierID); err != nil {
				if errors.Is(err, store.ErrNotFound) {
					return nil, domain.Invalid("supplier_id", "unknown supplier")
				}
				return nil, err
			}
		}
		updated.SupplierID = supplierID
	}
	if req.Barcode != nil {
		updated.Barcode = strings.TrimSpace(*req.Barcode)
	}
	if req.CostPrice != nil {
		if err := validatePrice("cost_price", *req.CostPrice); err != nil {
			return nil, err
		}
		updated.CostPrice = domain.Money(*req.CostPrice)
	}
	if req.SellingPrice != nil {
		if err := validatePrice("selling_price", *req.SellingPrice); err != nil {
			return nil, err
		}
		updated.SellingPrice = domain.Money(*req.SellingPrice)
	}
	if req.MinimumStock != nil {
		if *req.MinimumStock < 0 {
			return nil, domain.Invalid("minimum_stock", "must not be negative")
		}
		updated.MinimumStock = *req.MinimumStock
	}
	if req.Active != nil {
		updated.Active = *req.Active
	}
	updated.UpdatedAt = time.Now().UTC()

	saved, err := s.repo.UpdateProduct(ctx, updated)
	if err != nil {
		return nil, err
	}

	s.invalidateCatalog(ctx)
	s.log.Info().Str("actor", actor.Username).Str("sku", saved.SKU).Msg("product updated")
	return saved, nil
}

func (s *Service) ArchiveProduct(ctx context.Context, id string) (*domain.Product, error) {
	actor, err := s.requireAdmin(ctx)
	if err != nil {
		return nil, err
	}

	archived, err := s.repo.SoftDeleteProduct(ctx, id, actor.Username, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	s.invalidateCatalog(ctx)
	s.log.Info().Str("actor", actor.Username).Str("sku", archived.SKU).Msg("product archived")
	return archived, nil
}

func (s *Service) RestoreProduct(ctx context.Context, id string) (*domain.Product, error) {
	actor, err := s.requireAdmin(ctx)
	if err != nil {
		return nil, err
	}

	restored, err := s.repo.RestoreProduct(ctx, id)
	if err != nil {
		return nil, err
	}

	s.invalidateCatalog(ctx)
	s.log.Info().Str("actor", actor.Username).Str("sku", restored.SKU).Msg("product restored")
	return restored, nil
}

// PurgeProduct permanently removes an already-archived product.
func (s *Service) PurgeProduct(ctx context.Context, id string) error {
	actor, err := s.requireAdmin(ctx)
	if err != nil {
		return err
	}

	if err := s.repo.HardDeleteProduct(ctx, id); err != nil {
		return err
	}

	s.invalidateCatalog(ctx)
	s.log.Info().Str("actor", actor.Username).Str("product_id", id).Msg("product purged")
	return nil
}
