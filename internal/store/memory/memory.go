// Package memory implements the repository against in-process maps. It backs
// the dev mode (no DATABASE_URL) and the test suites. Every write runs in a
// single critical section that validates fully before mutating, so a failed
// operation leaves no partial state behind.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Shadowdev1174/Inventory-POS-WebApp/internal/domain"
	"github.com/Shadowdev1174/Inventory-POS-WebApp/internal/store"
)

type Store struct {
	mu          sync.RWMutex
	categories  map[string]domain.Category
	suppliers   map[string]domain.Supplier
	products    map[string]domain.Product
	movements   []domain.StockMovement
	cartItems   map[string]domain.CartItem
	sales       map[string]domain.Sale
	saleItems   map[string][]domain.SaleItem
	payments    map[string][]domain.PaymentRecord
	refunds     []domain.Refund
	users       map[string]domain.UserAccount
	saleCounter int64
}

func New() *Store {
	return &Store{
		categories: make(map[string]domain.Category),
		suppliers:  make(map[string]domain.Supplier),
		products:   make(map[string]domain.Product),
		cartItems:  make(map[string]domain.CartItem),
		sales:      make(map[string]domain.Sale),
		saleItems:  make(map[string][]domain.SaleItem),
		payments:   make(map[string][]domain.PaymentRecord),
		users:      make(map[string]domain.UserAccount),
	}
}

// NewSeeded returns a store pre-loaded with a small demo catalog and two
// login accounts (admin/admin123, cashier/cashier123) for local development.
func NewSeeded() *Store {
	s := New()
	now := time.Now().UTC()

	beverages := domain.Category{ID: uuid.NewString(), Name: "Beverages", CreatedAt: now, UpdatedAt: now}
	snacks := domain.Category{ID: uuid.NewString(), Name: "Snacks", CreatedAt: now, UpdatedAt: now}
	s.categories[beverages.ID] = beverages
	s.categories[snacks.ID] = snacks

	seed := []domain.Product{
		{Name: "Bottled Water 500ml", CategoryID: beverages.ID, SKU: "BEV-0001", Barcode: "4800000000011",
			CostPrice: dec("6.00"), SellingPrice: dec("10.00"), StockQuantity: 120, MinimumStock: 24},
		{Name: "Iced Tea 330ml", CategoryID: beverages.ID, SKU: "BEV-0002", Barcode: "4800000000028",
			CostPrice: dec("12.00"), SellingPrice: dec("20.00"), StockQuantity: 60, MinimumStock: 12},
		{Name: "Potato Chips 60g", CategoryID: snacks.ID, SKU: "SNA-0001", Barcode: "4800000000035",
			CostPrice: dec("18.00"), SellingPrice: dec("30.00"), StockQuantity: 40, MinimumStock: 10},
	}
	for _, p := range seed {
		p.ID = uuid.NewString()
		p.Active = true
		p.CreatedAt = now
		p.UpdatedAt = now
		s.products[p.ID] = p
		s.movements = append(s.movements, domain.StockMovement{
			ID:        uuid.NewString(),
			ProductID: p.ID,
			Kind:      domain.MovementIn,
			Quantity:  p.StockQuantity,
			Reason:    "initial stock",
			CreatedBy: "system",
			CreatedAt: now,
		})
	}

	s.users["admin"] = domain.UserAccount{Username: "admin", Password: "admin123", Role: domain.RoleAdmin, Active: true, CreatedAt: now}
	s.users["cashier"] = domain.UserAccount{Username: "cashier", Password: "cashier123", Role: domain.RoleCashier, Active: true, CreatedAt: now}
	return s
}

func dec(v string) decimal.Decimal {
	d, _ := decimal.NewFromString(v)
	return d
}

func (s *Store) CreateCategory(_ context.Context, category domain.Category) (*domain.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.categories {
		if strings.EqualFold(existing.Name, category.Name) {
			return nil, fmt.Errorf("%w: category name already exists", store.ErrInvalidInput)
		}
	}
	s.categories[category.ID] = category
	out := category
	return &out, nil
}

func (s *Store) ListCategories(_ context.Context) ([]domain.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]domain.Category, 0, len(s.categories))
	for _, c := range s.categories {
		result = append(result, c)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (s *Store) GetCategoryByID(_ context.Context, id string) (*domain.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.categories[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	out := c
	return &out, nil
}

func (s *Store) CreateSupplier(_ context.Context, supplier domain.Supplier) (*domain.Supplier, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.suppliers[supplier.ID] = supplier
	out := supplier
	return &out, nil
}

func (s *Store) ListSuppliers(_ context.Context) ([]domain.Supplier, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]domain.Supplier, 0, len(s.suppliers))
	for _, sup := range s.suppliers {
		result = append(result, sup)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (s *Store) GetSupplierByID(_ context.Context, id string) (*domain.Supplier, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sup, ok := s.suppliers[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	out := sup
	return &out, nil
}

func (s *Store) CreateProduct(_ context.Context, product domain.Product, seed *domain.StockMovement) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.categories[product.CategoryID]; !ok {
		return nil, fmt.Errorf("%w: unknown category", store.ErrInvalidInput)
	}
	for _, existing := range s.products {
		if strings.EqualFold(existing.SKU, product.SKU) {
			return nil, fmt.Errorf("%w: sku already exists", store.ErrInvalidInput)
		}
	}
	product.StockQuantity = 0
	if seed != nil {
		product.StockQuantity = seed.Quantity
		s.movements = append(s.movements, *seed)
	}
	s.products[product.ID] = product
	out := product
	return &out, nil
}

func (s *Store) UpdateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.products[product.ID]
	if !ok || current.Deleted {
		return nil, store.ErrNotFound
	}
	// Stock is owned by the movement ledger and checkout, never by updates.
	product.StockQuantity = current.StockQuantity
	s.products[product.ID] = product
	out := product
	return &out, nil
}

func (s *Store) GetProductByID(_ context.Context, id string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.products[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	out := p
	return &out, nil
}

func (s *Store) ListActiveProducts(_ context.Context, filter domain.ProductFilter) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	search := strings.ToLower(strings.TrimSpace(filter.Search))
	result := make([]domain.Product, 0, len(s.products))
	for _, p := range s.products {
		if !p.Sellable() {
			continue
		}
		if filter.CategoryID != "" && p.CategoryID != filter.CategoryID {
			continue
		}
		if filter.LowStock && !p.LowStock() {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(p.Name), search) &&
			!strings.Contains(strings.ToLower(p.SKU), search) &&
			!strings.Contains(strings.ToLower(p.Barcode), search) {
			continue
		}
		result = append(result, p)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (s *Store) ListAllProducts(_ context.Context) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]domain.Product, 0, len(s.products))
	for _, p := range s.products {
		if p.Deleted {
			continue
		}
		result = append(result, p)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (s *Store) ListDeletedProducts(_ context.Context) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]domain.Product, 0)
	for _, p := range s.products {
		if p.Deleted {
			result = append(result, p)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (s *Store) CountProductsInCategory(_ context.Context, categoryID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, p := range s.products {
		if p.CategoryID == categoryID {
			count++
		}
	}
	return count, nil
}

func (s *Store) SoftDeleteProduct(_ context.Context, id string, deletedBy string, at time.Time) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok || p.Deleted {
		return nil, store.ErrNotFound
	}
	p.Deleted = true
	p.DeletedAt = &at
	p.DeletedBy = deletedBy
	p.Active = false
	p.UpdatedAt = at
	s.products[id] = p
	out := p
	return &out, nil
}

func (s *Store) RestoreProduct(_ context.Context, id string) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok || !p.Deleted {
		return nil, store.ErrNotFound
	}
	p.Deleted = false
	p.DeletedAt = nil
	p.DeletedBy = ""
	p.Active = true
	p.UpdatedAt = time.Now().UTC()
	s.products[id] = p
	out := p
	return &out, nil
}

func (s *Store) HardDeleteProduct(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return store.ErrNotFound
	}
	if !p.Deleted {
		return fmt.Errorf("%w: product must be archived before permanent delete", store.ErrInvalidInput)
	}
	delete(s.products, id)
	return nil
}

func (s *Store) ApplyMovement(_ context.Context, movement domain.StockMovement) (*domain.StockMovement, *domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[movement.ProductID]
	if !ok {
		return nil, nil, store.ErrNotFound
	}

	next := p.StockQuantity
	switch movement.Kind {
	case domain.MovementIn, domain.MovementReturn:
		next = p.StockQuantity + movement.Quantity
	case domain.MovementOut:
		if movement.Quantity > p.StockQuantity {
			return nil, nil, &domain.InsufficientStockError{
				ProductID:   p.ID,
				ProductName: p.Name,
				Requested:   movement.Quantity,
				Available:   p.StockQuantity,
			}
		}
		next = p.StockQuantity - movement.Quantity
	case domain.MovementAdjustment:
		next = movement.Quantity
	case domain.MovementSale:
		// Audit entry only. Checkout already moved the stock.
	default:
		return nil, nil, fmt.Errorf("%w: unknown movement kind %q", store.ErrInvalidInput, movement.Kind)
	}
	if next > domain.MaxStockQuantity {
		return nil, nil, fmt.Errorf("%w: stock would exceed %d", store.ErrInvalidInput, domain.MaxStockQuantity)
	}

	p.StockQuantity = next
	p.UpdatedAt = movement.CreatedAt
	s.products[p.ID] = p
	s.movements = append(s.movements, movement)

	outMove := movement
	outProduct := p
	return &outMove, &outProduct, nil
}

func (s *Store) ListMovements(_ context.Context, productID string, limit int) ([]domain.StockMovement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]domain.StockMovement, 0)
	for i := len(s.movements) - 1; i >= 0; i-- {
		m := s.movements[i]
		if productID != "" && m.ProductID != productID {
			continue
		}
		result = append(result, m)
		if limit > 0 && len(result) >= limit {
			break
		}
	}
	return result, nil
}

func (s *Store) AddCartItem(_ context.Context, item domain.CartItem) (*domain.CartItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[item.ProductID]
	if !ok || !p.Sellable() {
		return nil, store.ErrNotFound
	}

	combined := item.Quantity
	var existingID string
	for id, ci := range s.cartItems {
		if ci.Username == item.Username && ci.ProductID == item.ProductID {
			combined += ci.Quantity
			existingID = id
			break
		}
	}
	if combined > p.StockQuantity {
		return nil, &domain.InsufficientStockError{
			ProductID:   p.ID,
			ProductName: p.Name,
			Requested:   combined,
			Available:   p.StockQuantity,
		}
	}

	if existingID != "" {
		ci := s.cartItems[existingID]
		ci.Quantity = combined
		s.cartItems[existingID] = ci
		out := ci
		return &out, nil
	}
	s.cartItems[item.ID] = item
	out := item
	return &out, nil
}

func (s *Store) GetCartItem(_ context.Context, username string, cartItemID string) (*domain.CartItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ci, ok := s.cartItems[cartItemID]
	if !ok || ci.Username != username {
		return nil, store.ErrNotFound
	}
	out := ci
	return &out, nil
}

func (s *Store) ListCartItems(_ context.Context, username string) ([]domain.CartItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cartItemsLocked(username), nil
}

func (s *Store) cartItemsLocked(username string) []domain.CartItem {
	result := make([]domain.CartItem, 0)
	for _, ci := range s.cartItems {
		if ci.Username == username {
			result = append(result, ci)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result
}

func (s *Store) UpdateCartItemQuantity(_ context.Context, username string, cartItemID string, quantity int) (*domain.CartItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ci, ok := s.cartItems[cartItemID]
	if !ok || ci.Username != username {
		return nil, store.ErrNotFound
	}
	p, ok := s.products[ci.ProductID]
	if !ok || !p.Sellable() {
		return nil, store.ErrNotFound
	}
	if quantity > p.StockQuantity {
		return nil, &domain.InsufficientStockError{
			ProductID:   p.ID,
			ProductName: p.Name,
			Requested:   quantity,
			Available:   p.StockQuantity,
		}
	}
	ci.Quantity = quantity
	s.cartItems[cartItemID] = ci
	out := ci
	return &out, nil
}

func (s *Store) DeleteCartItem(_ context.Context, username string, cartItemID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ci, ok := s.cartItems[cartItemID]
	if !ok || ci.Username != username {
		return store.ErrNotFound
	}
	delete(s.cartItems, cartItemID)
	return nil
}

func (s *Store) ClearCart(_ context.Context, username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, ci := range s.cartItems {
		if ci.Username == username {
			delete(s.cartItems, id)
		}
	}
	return nil
}

// Checkout validates the whole cart, then commits the sale, the stock
// decrements, the audit movements, and the cart wipe in one critical section.
func (s *Store) Checkout(_ context.Context, params domain.CheckoutParams) (*domain.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cart := s.cartItemsLocked(params.Cashier)
	if len(cart) == 0 {
		return nil, domain.ErrEmptyCart
	}

	subtotal := decimal.Zero
	for _, ci := range cart {
		p, ok := s.products[ci.ProductID]
		if !ok || !p.Sellable() {
			return nil, store.ErrNotFound
		}
		if ci.Quantity > p.StockQuantity {
			return nil, &domain.InsufficientStockError{
				ProductID:   p.ID,
				ProductName: p.Name,
				Requested:   ci.Quantity,
				Available:   p.StockQuantity,
			}
		}
		subtotal = subtotal.Add(domain.Money(p.SellingPrice.Mul(decimal.NewFromInt(int64(ci.Quantity)))))
	}

	tax := domain.TaxOn(subtotal)
	total := subtotal.Add(tax)

	paid := params.AmountPaid
	change := decimal.Zero
	if params.PaymentMethod == domain.PaymentCash {
		if paid.LessThanOrEqual(decimal.Zero) {
			return nil, domain.ErrInvalidPaymentAmount
		}
		if paid.LessThan(total) {
			return nil, &domain.InsufficientPaymentError{Total: total, AmountPaid: paid}
		}
		change = domain.Money(paid.Sub(total))
	} else {
		paid = total
	}

	now := time.Now().UTC()
	s.saleCounter++
	sale := domain.Sale{
		ID:             uuid.NewString(),
		SaleNumber:     domain.FormatSaleNumber(s.saleCounter),
		Cashier:        params.Cashier,
		Subtotal:       subtotal,
		TaxAmount:      tax,
		DiscountAmount: decimal.Zero,
		TotalAmount:    total,
		PaymentMethod:  params.PaymentMethod,
		AmountPaid:     paid,
		ChangeAmount:   change,
		Status:         domain.SaleCompleted,
		Notes:          params.Notes,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	items := make([]domain.SaleItem, 0, len(cart))
	for _, ci := range cart {
		p := s.products[ci.ProductID]
		lineTotal := domain.Money(p.SellingPrice.Mul(decimal.NewFromInt(int64(ci.Quantity))))
		items = append(items, domain.SaleItem{
			ID:          uuid.NewString(),
			SaleID:      sale.ID,
			ProductID:   p.ID,
			ProductName: p.Name,
			SKU:         p.SKU,
			Quantity:    ci.Quantity,
			UnitPrice:   p.SellingPrice,
			Discount:    decimal.Zero,
			LineTotal:   lineTotal,
		})

		p.StockQuantity -= ci.Quantity
		p.UpdatedAt = now
		s.products[p.ID] = p
		s.movements = append(s.movements, domain.StockMovement{
			ID:        uuid.NewString(),
			ProductID: p.ID,
			Kind:      domain.MovementSale,
			Quantity:  ci.Quantity,
			Reason:    "sale",
			Reference: sale.SaleNumber,
			CreatedBy: params.Cashier,
			CreatedAt: now,
		})
		delete(s.cartItems, ci.ID)
	}

	payment := domain.PaymentRecord{
		ID:        uuid.NewString(),
		SaleID:    sale.ID,
		Method:    params.PaymentMethod,
		Amount:    paid,
		Reference: sale.SaleNumber,
		CreatedAt: now,
	}

	s.sales[sale.ID] = sale
	s.saleItems[sale.ID] = items
	s.payments[sale.ID] = []domain.PaymentRecord{payment}

	out := sale
	out.Items = append([]domain.SaleItem(nil), items...)
	out.Payments = []domain.PaymentRecord{payment}
	return &out, nil
}

func (s *Store) GetSaleByID(_ context.Context, id string) (*domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sale, ok := s.sales[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	out := sale
	out.Items = append([]domain.SaleItem(nil), s.saleItems[id]...)
	out.Payments = append([]domain.PaymentRecord(nil), s.payments[id]...)
	return &out, nil
}

func (s *Store) GetSaleByNumber(_ context.Context, saleNumber string) (*domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for id, sale := range s.sales {
		if sale.SaleNumber == saleNumber {
			out := sale
			out.Items = append([]domain.SaleItem(nil), s.saleItems[id]...)
			out.Payments = append([]domain.PaymentRecord(nil), s.payments[id]...)
			return &out, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) ListSales(_ context.Context, query domain.SalesQuery) ([]domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	search := strings.ToLower(strings.TrimSpace(query.Search))
	result := make([]domain.Sale, 0, len(s.sales))
	for _, sale := range s.sales {
		if query.Cashier != "" && sale.Cashier != query.Cashier {
			continue
		}
		if query.Day != "" && sale.CreatedAt.UTC().Format("2006-01-02") != query.Day {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(sale.SaleNumber), search) &&
			!strings.Contains(strings.ToLower(sale.Cashier), search) {
			continue
		}
		result = append(result, sale)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })

	if query.Offset > 0 {
		if query.Offset >= len(result) {
			return []domain.Sale{}, nil
		}
		result = result[query.Offset:]
	}
	if query.Limit > 0 && len(result) > query.Limit {
		result = result[:query.Limit]
	}
	return result, nil
}

func (s *Store) GetDailySummary(_ context.Context, day time.Time) (*domain.SalesSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	date := day.UTC().Format("2006-01-02")
	summary := domain.SalesSummary{
		Date:           date,
		GrossRevenue:   decimal.Zero,
		TaxCollected:   decimal.Zero,
		RefundedAmount: decimal.Zero,
	}
	for _, sale := range s.sales {
		if sale.CreatedAt.UTC().Format("2006-01-02") != date {
			continue
		}
		if sale.Status != domain.SaleCompleted && sale.Status != domain.SaleRefunded {
			continue
		}
		summary.SaleCount++
		summary.GrossRevenue = summary.GrossRevenue.Add(sale.TotalAmount)
		summary.TaxCollected = summary.TaxCollected.Add(sale.TaxAmount)
	}
	for _, refund := range s.refunds {
		if refund.CreatedAt.UTC().Format("2006-01-02") == date {
			summary.RefundedAmount = summary.RefundedAmount.Add(refund.Amount)
		}
	}
	return &summary, nil
}

// CreateRefund checks the refundable quantity, records the refund, restores
// stock with a RETURN movement, and flips the sale to REFUNDED once every
// item is fully returned.
func (s *Store) CreateRefund(_ context.Context, refund domain.Refund) (*domain.Refund, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var item *domain.SaleItem
	var saleID string
	for sid, items := range s.saleItems {
		for i := range items {
			if items[i].ID == refund.SaleItemID {
				item = &items[i]
				saleID = sid
			}
		}
	}
	if item == nil {
		return nil, store.ErrNotFound
	}
	sale, ok := s.sales[saleID]
	if !ok {
		return nil, store.ErrNotFound
	}
	if sale.Status != domain.SaleCompleted && sale.Status != domain.SaleRefunded {
		return nil, fmt.Errorf("%w: sale is %s", store.ErrInvalidInput, sale.Status)
	}

	already := 0
	for _, r := range s.refunds {
		if r.SaleItemID == refund.SaleItemID {
			already += r.Quantity
		}
	}
	remaining := item.Quantity - already
	if refund.Quantity > remaining {
		return nil, &domain.InvalidQuantityError{Requested: refund.Quantity, Remaining: remaining}
	}

	perUnit := item.LineTotal.Div(decimal.NewFromInt(int64(item.Quantity)))
	now := time.Now().UTC()
	refund.SaleID = saleID
	refund.Amount = domain.Money(perUnit.Mul(decimal.NewFromInt(int64(refund.Quantity))))
	refund.CreatedAt = now
	s.refunds = append(s.refunds, refund)

	if p, ok := s.products[item.ProductID]; ok {
		p.StockQuantity += refund.Quantity
		p.UpdatedAt = now
		s.products[p.ID] = p
	}
	s.movements = append(s.movements, domain.StockMovement{
		ID:        uuid.NewString(),
		ProductID: item.ProductID,
		Kind:      domain.MovementReturn,
		Quantity:  refund.Quantity,
		Reason:    refund.Reason,
		Reference: sale.SaleNumber,
		CreatedBy: refund.ProcessedBy,
		CreatedAt: now,
	})

	if s.fullyRefundedLocked(saleID) {
		sale.Status = domain.SaleRefunded
		sale.UpdatedAt = now
		s.sales[saleID] = sale
	}

	out := refund
	return &out, nil
}

func (s *Store) fullyRefundedLocked(saleID string) bool {
	refunded := make(map[string]int)
	for _, r := range s.refunds {
		if r.SaleID == saleID {
			refunded[r.SaleItemID] += r.Quantity
		}
	}
	for _, item := range s.saleItems[saleID] {
		if refunded[item.ID] < item.Quantity {
			return false
		}
	}
	return true
}

func (s *Store) ListRefunds(_ context.Context, saleID string) ([]domain.Refund, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]domain.Refund, 0)
	for i := len(s.refunds) - 1; i >= 0; i-- {
		r := s.refunds[i]
		if saleID != "" && r.SaleID != saleID {
			continue
		}
		result = append(result, r)
	}
	return result, nil
}

func (s *Store) GetInventoryValue(_ context.Context) (*domain.InventoryValue, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	value := domain.InventoryValue{
		TotalCost:   decimal.Zero,
		TotalRetail: decimal.Zero,
	}
	for _, p := range s.products {
		if p.Deleted {
			continue
		}
		qty := decimal.NewFromInt(int64(p.StockQuantity))
		value.ProductCount++
		value.TotalUnits += p.StockQuantity
		value.TotalCost = value.TotalCost.Add(domain.Money(p.CostPrice.Mul(qty)))
		value.TotalRetail = value.TotalRetail.Add(domain.Money(p.SellingPrice.Mul(qty)))
	}
	return &value, nil
}

func (s *Store) CreateUser(_ context.Context, user domain.UserAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.users[user.Username]; exists {
		return fmt.Errorf("%w: username already exists", store.ErrInvalidInput)
	}
	s.users[user.Username] = user
	return nil
}

func (s *Store) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]domain.UserAccount, 0, len(s.users))
	for _, u := range s.users {
		result = append(result, u)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Username < result[j].Username })
	return result, nil
}

func (s *Store) UpdateUserPassword(_ context.Context, username string, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[username]
	if !ok {
		return store.ErrNotFound
	}
	u.Password = password
	s.users[username] = u
	return nil
}
