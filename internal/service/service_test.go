package service_test

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/Shadowdev1174/Inventory-POS-WebApp/internal/domain"
	"github.com/Shadowdev1174/Inventory-POS-WebApp/internal/service"
	"github.com/Shadowdev1174/Inventory-POS-WebApp/internal/store"
	"github.com/Shadowdev1174/Inventory-POS-WebApp/internal/store/memory"
)

type fixture struct {
	svc     *service.Service
	admin   context.Context
	cashier context.Context
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repo := memory.New()
	svc := service.New(repo, nil, zerolog.Nop(), 0)
	return &fixture{
		svc:     svc,
		admin:   service.WithActor(context.Background(), domain.Actor{Username: "admin", Role: domain.RoleAdmin}),
		cashier: service.WithActor(context.Background(), domain.Actor{Username: "cashier", Role: domain.RoleCashier}),
	}
}

func (f *fixture) category(t *testing.T, name string) *domain.Category {
	t.Helper()
	category, err := f.svc.CreateCategory(f.admin, domain.CategoryCreateRequest{Name: name})
	if err != nil {
		t.Fatalf("create category %s: %v", name, err)
	}
	return category
}

func (f *fixture) product(t *testing.T, categoryID string, name string, price string, stock int) *domain.Product {
	t.Helper()
	product, err := f.svc.CreateProduct(f.admin, domain.ProductCreateRequest{
		Name:          name,
		CategoryID:    categoryID,
		CostPrice:     dec(t, "1.00"),
		SellingPrice:  dec(t, price),
		StockQuantity: stock,
		MinimumStock:  2,
	})
	if err != nil {
		t.Fatalf("create product %s: %v", name, err)
	}
	return product
}

func dec(t *testing.T, v string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(v)
	if err != nil {
		t.Fatalf("bad decimal %q: %v", v, err)
	}
	return d
}

func assertMoney(t *testing.T, got decimal.Decimal, want string, label string) {
	t.Helper()
	if got.StringFixed(2) != want {
		t.Fatalf("%s = %s, want %s", label, got.StringFixed(2), want)
	}
}

func TestCheckoutCashHappyPath(t *testing.T) {
	f := newFixture(t)
	cat := f.category(t, "Beverages")
	product := f.product(t, cat.ID, "Cola", "10.00", 10)

	if _, err := f.svc.AddToCart(f.cashier, domain.AddToCartRequest{ProductID: product.ID, Quantity: 2}); err != nil {
		t.Fatalf("add to cart: %v", err)
	}

	result, err := f.svc.Checkout(f.cashier, domain.CheckoutRequest{
		PaymentMethod: "cash",
		AmountPaid:    dec(t, "30.00"),
	})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}

	if result.SaleNumber != "INV-000001" {
		t.Fatalf("sale number = %s, want INV-000001", result.SaleNumber)
	}
	assertMoney(t, result.Subtotal, "20.00", "subtotal")
	assertMoney(t, result.Tax, "2.00", "tax")
	assertMoney(t, result.Total, "22.00", "total")
	assertMoney(t, result.AmountPaid, "30.00", "amount paid")
	assertMoney(t, result.Change, "8.00", "change")
	if result.Status != domain.SaleCompleted {
		t.Fatalf("status = %s, want %s", result.Status, domain.SaleCompleted)
	}

	after, err := f.svc.GetProduct(f.cashier, product.ID)
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if after.StockQuantity != 8 {
		t.Fatalf("stock = %d, want 8", after.StockQuantity)
	}

	cart, err := f.svc.Cart(f.cashier)
	if err != nil {
		t.Fatalf("cart: %v", err)
	}
	if len(cart.Lines) != 0 {
		t.Fatalf("cart still has %d lines after checkout", len(cart.Lines))
	}

	movements, err := f.svc.ListMovements(f.cashier, product.ID, 10)
	if err != nil {
		t.Fatalf("list movements: %v", err)
	}
	if movements[0].Kind != domain.MovementSale || movements[0].Reference != result.SaleNumber {
		t.Fatalf("newest movement = %s/%s, want SALE/%s", movements[0].Kind, movements[0].Reference, result.SaleNumber)
	}
}

func TestCheckoutNumbersAreSequential(t *testing.T) {
	f := newFixture(t)
	cat := f.category(t, "Beverages")
	product := f.product(t, cat.ID, "Cola", "10.00", 50)

	for i, want := range []string{"INV-000001", "INV-000002", "INV-000003"} {
		if _, err := f.svc.AddToCart(f.cashier, domain.AddToCartRequest{ProductID: product.ID, Quantity: 1}); err != nil {
			t.Fatalf("add to cart %d: %v", i, err)
		}
		result, err := f.svc.Checkout(f.cashier, domain.CheckoutRequest{PaymentMethod: "CARD"})
		if err != nil {
			t.Fatalf("checkout %d: %v", i, err)
		}
		if result.SaleNumber != want {
			t.Fatalf("sale %d number = %s, want %s", i, result.SaleNumber, want)
		}
	}
}

// Twenty tills check out at once; every sale must get a distinct gap-free
// number and the stock must land exactly n lower.
func TestCheckoutConcurrentSaleNumbers(t *testing.T) {
	f := newFixture(t)
	cat := f.category(t, "Beverages")
	product := f.product(t, cat.ID, "Cola", "10.00", 1000)

	const n = 20
	numbers := make([]string, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ctx := service.WithActor(context.Background(), domain.Actor{
				Username: fmt.Sprintf("till-%02d", i),
				Role:     domain.RoleCashier,
			})
			if _, err := f.svc.AddToCart(ctx, domain.AddToCartRequest{ProductID: product.ID, Quantity: 1}); err != nil {
				errs[i] = err
				return
			}
			result, err := f.svc.Checkout(ctx, domain.CheckoutRequest{PaymentMethod: "CARD"})
			if err != nil {
				errs[i] = err
				return
			}
			numbers[i] = result.SaleNumber
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("checkout %d: %v", i, err)
		}
	}
	sort.Strings(numbers)
	for i, got := range numbers {
		if want := fmt.Sprintf("INV-%06d", i+1); got != want {
			t.Fatalf("sale numbers have a gap: slot %d = %s, want %s", i, got, want)
		}
	}

	after, err := f.svc.GetProduct(f.cashier, product.ID)
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if after.StockQuantity != 1000-n {
		t.Fatalf("stock = %d, want %d", after.StockQuantity, 1000-n)
	}
}

func TestCheckoutInsufficientStock(t *testing.T) {
	f := newFixture(t)
	cat := f.category(t, "Beverages")
	product := f.product(t, cat.ID, "Cola", "10.00", 5)

	if _, err := f.svc.AddToCart(f.cashier, domain.AddToCartRequest{ProductID: product.ID, Quantity: 5}); err != nil {
		t.Fatalf("add to cart: %v", err)
	}
	// Stock drops to 3 after the cart was built.
	if _, err := f.svc.RecordMovement(f.admin, domain.MovementRequest{ProductID: product.ID, Kind: "OUT", Quantity: 2, Reason: "damage"}); err != nil {
		t.Fatalf("record movement: %v", err)
	}

	_, err := f.svc.Checkout(f.cashier, domain.CheckoutRequest{PaymentMethod: "CASH", AmountPaid: dec(t, "100.00")})
	var stockErr *domain.InsufficientStockError
	if !errors.As(err, &stockErr) {
		t.Fatalf("checkout err = %v, want InsufficientStockError", err)
	}
	if stockErr.Requested != 5 || stockErr.Available != 3 || stockErr.Shortfall() != 2 {
		t.Fatalf("stock error = %+v, want requested 5 available 3", stockErr)
	}

	// The failed checkout must leave the cart and stock untouched.
	cart, err := f.svc.Cart(f.cashier)
	if err != nil {
		t.Fatalf("cart: %v", err)
	}
	if len(cart.Lines) != 1 || cart.Lines[0].Quantity != 5 {
		t.Fatalf("cart changed after failed checkout: %+v", cart.Lines)
	}
	after, _ := f.svc.GetProduct(f.cashier, product.ID)
	if after.StockQuantity != 3 {
		t.Fatalf("stock = %d, want 3", after.StockQuantity)
	}
}

func TestCheckoutInsufficientPayment(t *testing.T) {
	f := newFixture(t)
	cat := f.category(t, "Beverages")
	product := f.product(t, cat.ID, "Cola", "10.00", 10)

	if _, err := f.svc.AddToCart(f.cashier, domain.AddToCartRequest{ProductID: product.ID, Quantity: 2}); err != nil {
		t.Fatalf("add to cart: %v", err)
	}

	_, err := f.svc.Checkout(f.cashier, domain.CheckoutRequest{PaymentMethod: "CASH", AmountPaid: dec(t, "15.00")})
	var payErr *domain.InsufficientPaymentError
	if !errors.As(err, &payErr) {
		t.Fatalf("checkout err = %v, want InsufficientPaymentError", err)
	}
	assertMoney(t, payErr.Shortage(), "7.00", "shortage")
}

func TestCheckoutInvalidPaymentAmount(t *testing.T) {
	f := newFixture(t)
	cat := f.category(t, "Beverages")
	product := f.product(t, cat.ID, "Cola", "10.00", 10)

	if _, err := f.svc.AddToCart(f.cashier, domain.AddToCartRequest{ProductID: product.ID, Quantity: 1}); err != nil {
		t.Fatalf("add to cart: %v", err)
	}

	_, err := f.svc.Checkout(f.cashier, domain.CheckoutRequest{PaymentMethod: "CASH", AmountPaid: decimal.Zero})
	if !errors.Is(err, domain.ErrInvalidPaymentAmount) {
		t.Fatalf("checkout err = %v, want ErrInvalidPaymentAmount", err)
	}
}

func TestCheckoutNonCashForcesExactPayment(t *testing.T) {
	f := newFixture(t)
	cat := f.category(t, "Beverages")
	product := f.product(t, cat.ID, "Cola", "10.00", 10)

	if _, err := f.svc.AddToCart(f.cashier, domain.AddToCartRequest{ProductID: product.ID, Quantity: 1}); err != nil {
		t.Fatalf("add to cart: %v", err)
	}

	// The tendered amount is ignored for card payments.
	result, err := f.svc.Checkout(f.cashier, domain.CheckoutRequest{PaymentMethod: "CARD", AmountPaid: dec(t, "999.00")})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	assertMoney(t, result.AmountPaid, "11.00", "amount paid")
	assertMoney(t, result.Change, "0.00", "change")
}

func TestCheckoutEmptyCart(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Checkout(f.cashier, domain.CheckoutRequest{PaymentMethod: "CASH", AmountPaid: dec(t, "10.00")})
	if !errors.Is(err, domain.ErrEmptyCart) {
		t.Fatalf("checkout err = %v, want ErrEmptyCart", err)
	}
}

func TestCheckoutUnknownPaymentMethod(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Checkout(f.cashier, domain.CheckoutRequest{PaymentMethod: "BARTER"})
	var validation *domain.ValidationError
	if !errors.As(err, &validation) || validation.Field != "payment_method" {
		t.Fatalf("checkout err = %v, want payment_method validation error", err)
	}
}

func TestCheckoutAtomicityAcrossLines(t *testing.T) {
	f := newFixture(t)
	cat := f.category(t, "Beverages")
	first := f.product(t, cat.ID, "Cola", "10.00", 10)
	second := f.product(t, cat.ID, "Iced Tea", "20.00", 5)

	if _, err := f.svc.AddToCart(f.cashier, domain.AddToCartRequest{ProductID: first.ID, Quantity: 2}); err != nil {
		t.Fatalf("add first: %v", err)
	}
	if _, err := f.svc.AddToCart(f.cashier, domain.AddToCartRequest{ProductID: second.ID, Quantity: 5}); err != nil {
		t.Fatalf("add second: %v", err)
	}
	if _, err := f.svc.RecordMovement(f.admin, domain.MovementRequest{ProductID: second.ID, Kind: "OUT", Quantity: 3, Reason: "damage"}); err != nil {
		t.Fatalf("record movement: %v", err)
	}

	_, err := f.svc.Checkout(f.cashier, domain.CheckoutRequest{PaymentMethod: "CASH", AmountPaid: dec(t, "500.00")})
	var stockErr *domain.InsufficientStockError
	if !errors.As(err, &stockErr) {
		t.Fatalf("checkout err = %v, want InsufficientStockError", err)
	}

	// No sale, and the first line's stock is untouched.
	sales, err := f.svc.ListSales(f.cashier, domain.SalesQuery{})
	if err != nil {
		t.Fatalf("list sales: %v", err)
	}
	if len(sales) != 0 {
		t.Fatalf("found %d sales after failed checkout, want 0", len(sales))
	}
	after, _ := f.svc.GetProduct(f.cashier, first.ID)
	if after.StockQuantity != 10 {
		t.Fatalf("first product stock = %d, want 10", after.StockQuantity)
	}
}

func checkoutOne(t *testing.T, f *fixture, productID string, qty int) *domain.Sale {
	t.Helper()
	if _, err := f.svc.AddToCart(f.cashier, domain.AddToCartRequest{ProductID: productID, Quantity: qty}); err != nil {
		t.Fatalf("add to cart: %v", err)
	}
	result, err := f.svc.Checkout(f.cashier, domain.CheckoutRequest{PaymentMethod: "CASH", AmountPaid: dec(t, "1000.00")})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	sale, err := f.svc.GetSale(f.cashier, result.SaleID)
	if err != nil {
		t.Fatalf("get sale: %v", err)
	}
	return sale
}

func TestRefundPartialThenFull(t *testing.T) {
	f := newFixture(t)
	cat := f.category(t, "Beverages")
	product := f.product(t, cat.ID, "Cola", "10.00", 10)
	sale := checkoutOne(t, f, product.ID, 3)

	refund, err := f.svc.CreateRefund(f.admin, domain.RefundRequest{
		SaleItemID: sale.Items[0].ID,
		Quantity:   1,
		Reason:     "defective",
	})
	if err != nil {
		t.Fatalf("refund: %v", err)
	}
	assertMoney(t, refund.Amount, "10.00", "refund amount")
	if refund.Reason != domain.RefundDefective {
		t.Fatalf("reason = %s, want %s", refund.Reason, domain.RefundDefective)
	}

	after, _ := f.svc.GetProduct(f.cashier, product.ID)
	if after.StockQuantity != 8 {
		t.Fatalf("stock after partial refund = %d, want 8", after.StockQuantity)
	}
	reloaded, _ := f.svc.GetSale(f.cashier, sale.ID)
	if reloaded.Status != domain.SaleCompleted {
		t.Fatalf("status after partial refund = %s, want %s", reloaded.Status, domain.SaleCompleted)
	}

	if _, err := f.svc.CreateRefund(f.admin, domain.RefundRequest{
		SaleItemID: sale.Items[0].ID,
		Quantity:   2,
		Reason:     "CUSTOMER_REQUEST",
	}); err != nil {
		t.Fatalf("second refund: %v", err)
	}
	reloaded, _ = f.svc.GetSale(f.cashier, sale.ID)
	if reloaded.Status != domain.SaleRefunded {
		t.Fatalf("status after full refund = %s, want %s", reloaded.Status, domain.SaleRefunded)
	}
	after, _ = f.svc.GetProduct(f.cashier, product.ID)
	if after.StockQuantity != 10 {
		t.Fatalf("stock after full refund = %d, want 10", after.StockQuantity)
	}
}

func TestRefundCapsAtRemainingQuantity(t *testing.T) {
	f := newFixture(t)
	cat := f.category(t, "Beverages")
	product := f.product(t, cat.ID, "Cola", "10.00", 10)
	sale := checkoutOne(t, f, product.ID, 3)

	if _, err := f.svc.CreateRefund(f.admin, domain.RefundRequest{
		SaleItemID: sale.Items[0].ID, Quantity: 2, Reason: "DAMAGED",
	}); err != nil {
		t.Fatalf("first refund: %v", err)
	}

	_, err := f.svc.CreateRefund(f.admin, domain.RefundRequest{
		SaleItemID: sale.Items[0].ID, Quantity: 2, Reason: "DAMAGED",
	})
	var qtyErr *domain.InvalidQuantityError
	if !errors.As(err, &qtyErr) {
		t.Fatalf("refund err = %v, want InvalidQuantityError", err)
	}
	if qtyErr.Requested != 2 || qtyErr.Remaining != 1 {
		t.Fatalf("quantity error = %+v, want requested 2 remaining 1", qtyErr)
	}
}

func TestRefundRequiresAdmin(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.CreateRefund(f.cashier, domain.RefundRequest{SaleItemID: "x", Quantity: 1, Reason: "OTHER"})
	if !errors.Is(err, service.ErrAdminRequired) {
		t.Fatalf("refund err = %v, want ErrAdminRequired", err)
	}
}

func TestAdjustmentSetsAbsoluteLevel(t *testing.T) {
	f := newFixture(t)
	cat := f.category(t, "Beverages")
	product := f.product(t, cat.ID, "Cola", "10.00", 10)

	result, err := f.svc.RecordMovement(f.admin, domain.MovementRequest{
		ProductID: product.ID, Kind: "ADJUSTMENT", Quantity: 42, Reason: "physical count",
	})
	if err != nil {
		t.Fatalf("adjustment: %v", err)
	}
	if result.Product.StockQuantity != 42 {
		t.Fatalf("stock = %d, want 42", result.Product.StockQuantity)
	}
}

func TestOutMovementUnderflow(t *testing.T) {
	f := newFixture(t)
	cat := f.category(t, "Beverages")
	product := f.product(t, cat.ID, "Cola", "10.00", 3)

	_, err := f.svc.RecordMovement(f.admin, domain.MovementRequest{
		ProductID: product.ID, Kind: "OUT", Quantity: 5, Reason: "damage",
	})
	var stockErr *domain.InsufficientStockError
	if !errors.As(err, &stockErr) {
		t.Fatalf("movement err = %v, want InsufficientStockError", err)
	}
	if stockErr.Shortfall() != 2 {
		t.Fatalf("shortfall = %d, want 2", stockErr.Shortfall())
	}
}

func TestSaleMovementRejectedFromLedgerAPI(t *testing.T) {
	f := newFixture(t)
	cat := f.category(t, "Beverages")
	product := f.product(t, cat.ID, "Cola", "10.00", 3)

	_, err := f.svc.RecordMovement(f.admin, domain.MovementRequest{
		ProductID: product.ID, Kind: "SALE", Quantity: 1,
	})
	var validation *domain.ValidationError
	if !errors.As(err, &validation) || validation.Field != "kind" {
		t.Fatalf("movement err = %v, want kind validation error", err)
	}
}

func TestReconcileStockConsistentHistory(t *testing.T) {
	f := newFixture(t)
	cat := f.category(t, "Beverages")
	product := f.product(t, cat.ID, "Cola", "10.00", 10)

	if _, err := f.svc.RecordMovement(f.admin, domain.MovementRequest{ProductID: product.ID, Kind: "IN", Quantity: 5, Reason: "restock"}); err != nil {
		t.Fatalf("in: %v", err)
	}
	if _, err := f.svc.RecordMovement(f.admin, domain.MovementRequest{ProductID: product.ID, Kind: "OUT", Quantity: 3, Reason: "damage"}); err != nil {
		t.Fatalf("out: %v", err)
	}
	checkoutOne(t, f, product.ID, 2)
	if _, err := f.svc.RecordMovement(f.admin, domain.MovementRequest{ProductID: product.ID, Kind: "ADJUSTMENT", Quantity: 7, Reason: "count"}); err != nil {
		t.Fatalf("adjustment: %v", err)
	}

	report, err := f.svc.ReconcileStock(f.admin, product.ID)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if !report.Consistent || report.Drift != 0 {
		t.Fatalf("report = %+v, want consistent with zero drift", report)
	}
	if report.Recorded != 7 || report.Expected != 7 {
		t.Fatalf("recorded/expected = %d/%d, want 7/7", report.Recorded, report.Expected)
	}
	// initial IN, restock, damage, sale, adjustment
	if report.MovementCount != 5 {
		t.Fatalf("movement count = %d, want 5", report.MovementCount)
	}
}

// Creating a product with opening stock writes the IN movement in the same
// store call, so a fresh product already replays cleanly.
func TestCreateProductSeedsOpeningMovement(t *testing.T) {
	f := newFixture(t)
	cat := f.category(t, "Beverages")
	product := f.product(t, cat.ID, "Cola", "10.00", 7)

	if product.StockQuantity != 7 {
		t.Fatalf("stock = %d, want 7", product.StockQuantity)
	}
	movements, err := f.svc.ListMovements(f.admin, product.ID, 10)
	if err != nil {
		t.Fatalf("list movements: %v", err)
	}
	if len(movements) != 1 || movements[0].Kind != domain.MovementIn || movements[0].Quantity != 7 {
		t.Fatalf("movements = %+v, want single IN of 7", movements)
	}

	report, err := f.svc.ReconcileStock(f.admin, product.ID)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if !report.Consistent || report.Recorded != 7 || report.Expected != 7 {
		t.Fatalf("report = %+v, want consistent 7/7", report)
	}
}

func TestArchiveRestorePurge(t *testing.T) {
	f := newFixture(t)
	cat := f.category(t, "Beverages")
	product := f.product(t, cat.ID, "Cola", "10.00", 10)

	archived, err := f.svc.ArchiveProduct(f.admin, product.ID)
	if err != nil {
		t.Fatalf("archive: %v", err)
	}
	if !archived.Deleted || archived.DeletedAt == nil || archived.DeletedBy != "admin" {
		t.Fatalf("archive did not record tombstone: %+v", archived)
	}

	active, err := f.svc.ListProducts(f.cashier, domain.ProductFilter{})
	if err != nil {
		t.Fatalf("list products: %v", err)
	}
	if len(active) != 0 {
		t.Fatalf("archived product still listed as active")
	}
	if _, err := f.svc.AddToCart(f.cashier, domain.AddToCartRequest{ProductID: product.ID, Quantity: 1}); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("add archived to cart err = %v, want ErrNotFound", err)
	}

	restored, err := f.svc.RestoreProduct(f.admin, product.ID)
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if restored.Deleted || !restored.Active {
		t.Fatalf("restore did not reactivate: %+v", restored)
	}

	// Purge only applies to archived products.
	if err := f.svc.PurgeProduct(f.admin, product.ID); !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("purge active product err = %v, want ErrInvalidInput", err)
	}
	if _, err := f.svc.ArchiveProduct(f.admin, product.ID); err != nil {
		t.Fatalf("re-archive: %v", err)
	}
	if err := f.svc.PurgeProduct(f.admin, product.ID); err != nil {
		t.Fatalf("purge: %v", err)
	}
	if _, err := f.svc.GetProduct(f.cashier, product.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("get purged product err = %v, want ErrNotFound", err)
	}
}

func TestSKUGeneration(t *testing.T) {
	f := newFixture(t)
	cat := f.category(t, "Beverages")

	first := f.product(t, cat.ID, "Cola", "10.00", 1)
	if first.SKU != "BEV-0001" {
		t.Fatalf("first sku = %s, want BEV-0001", first.SKU)
	}
	second := f.product(t, cat.ID, "Iced Tea", "20.00", 1)
	if second.SKU != "BEV-0002" {
		t.Fatalf("second sku = %s, want BEV-0002", second.SKU)
	}

	short := f.category(t, "IT")
	padded := f.product(t, short.ID, "Cable", "5.00", 1)
	if padded.SKU != "ITX-0001" {
		t.Fatalf("padded sku = %s, want ITX-0001", padded.SKU)
	}
}

func TestPriceCap(t *testing.T) {
	f := newFixture(t)
	cat := f.category(t, "Beverages")

	_, err := f.svc.CreateProduct(f.admin, domain.ProductCreateRequest{
		Name:         "Gold Bar",
		CategoryID:   cat.ID,
		SellingPrice: dec(t, "1000000.01"),
	})
	var validation *domain.ValidationError
	if !errors.As(err, &validation) || validation.Field != "selling_price" {
		t.Fatalf("create err = %v, want selling_price validation error", err)
	}
}

func TestCartTotals(t *testing.T) {
	f := newFixture(t)
	cat := f.category(t, "Beverages")
	cola := f.product(t, cat.ID, "Cola", "10.00", 10)
	tea := f.product(t, cat.ID, "Iced Tea", "25.50", 10)

	if _, err := f.svc.AddToCart(f.cashier, domain.AddToCartRequest{ProductID: cola.ID, Quantity: 2}); err != nil {
		t.Fatalf("add cola: %v", err)
	}
	if _, err := f.svc.AddToCart(f.cashier, domain.AddToCartRequest{ProductID: tea.ID, Quantity: 1}); err != nil {
		t.Fatalf("add tea: %v", err)
	}

	cart, err := f.svc.Cart(f.cashier)
	if err != nil {
		t.Fatalf("cart: %v", err)
	}
	if cart.ItemCount != 3 {
		t.Fatalf("item count = %d, want 3", cart.ItemCount)
	}
	assertMoney(t, cart.Subtotal, "45.50", "subtotal")
	assertMoney(t, cart.Tax, "4.55", "tax")
	assertMoney(t, cart.Total, "50.05", "total")
}

// A product archived after it entered a cart stays visible in the summary,
// flagged and priced at zero, so the cashier can remove just that line.
func TestCartFlagsUnavailableLines(t *testing.T) {
	f := newFixture(t)
	cat := f.category(t, "Beverages")
	cola := f.product(t, cat.ID, "Cola", "10.00", 10)
	tea := f.product(t, cat.ID, "Iced Tea", "5.00", 10)

	if _, err := f.svc.AddToCart(f.cashier, domain.AddToCartRequest{ProductID: cola.ID, Quantity: 1}); err != nil {
		t.Fatalf("add cola: %v", err)
	}
	if _, err := f.svc.AddToCart(f.cashier, domain.AddToCartRequest{ProductID: tea.ID, Quantity: 2}); err != nil {
		t.Fatalf("add tea: %v", err)
	}
	if _, err := f.svc.ArchiveProduct(f.admin, tea.ID); err != nil {
		t.Fatalf("archive tea: %v", err)
	}

	cart, err := f.svc.Cart(f.cashier)
	if err != nil {
		t.Fatalf("cart: %v", err)
	}
	if len(cart.Lines) != 2 {
		t.Fatalf("cart has %d lines, want 2", len(cart.Lines))
	}
	var dead *domain.CartLine
	for i := range cart.Lines {
		if cart.Lines[i].ProductID == tea.ID {
			dead = &cart.Lines[i]
		}
	}
	if dead == nil || !dead.Unavailable {
		t.Fatalf("archived line not flagged unavailable: %+v", cart.Lines)
	}
	assertMoney(t, dead.LineTotal, "0.00", "dead line total")

	// Totals count only the sellable line.
	if cart.ItemCount != 1 {
		t.Fatalf("item count = %d, want 1", cart.ItemCount)
	}
	assertMoney(t, cart.Subtotal, "10.00", "subtotal")
	assertMoney(t, cart.Total, "11.00", "total")

	if err := f.svc.RemoveFromCart(f.cashier, dead.CartItemID); err != nil {
		t.Fatalf("remove dead line: %v", err)
	}
	cart, err = f.svc.Cart(f.cashier)
	if err != nil {
		t.Fatalf("cart after removal: %v", err)
	}
	if len(cart.Lines) != 1 || cart.Lines[0].Unavailable {
		t.Fatalf("cart after removal = %+v, want one sellable line", cart.Lines)
	}
}

func TestAddToCartMergesLines(t *testing.T) {
	f := newFixture(t)
	cat := f.category(t, "Beverages")
	product := f.product(t, cat.ID, "Cola", "10.00", 5)

	if _, err := f.svc.AddToCart(f.cashier, domain.AddToCartRequest{ProductID: product.ID, Quantity: 2}); err != nil {
		t.Fatalf("first add: %v", err)
	}
	item, err := f.svc.AddToCart(f.cashier, domain.AddToCartRequest{ProductID: product.ID, Quantity: 2})
	if err != nil {
		t.Fatalf("second add: %v", err)
	}
	if item.Quantity != 4 {
		t.Fatalf("merged quantity = %d, want 4", item.Quantity)
	}

	// A third add would push past the available stock.
	_, err = f.svc.AddToCart(f.cashier, domain.AddToCartRequest{ProductID: product.ID, Quantity: 2})
	var stockErr *domain.InsufficientStockError
	if !errors.As(err, &stockErr) {
		t.Fatalf("third add err = %v, want InsufficientStockError", err)
	}
}

func TestUpdateCartItemZeroRemovesLine(t *testing.T) {
	f := newFixture(t)
	cat := f.category(t, "Beverages")
	product := f.product(t, cat.ID, "Cola", "10.00", 5)

	item, err := f.svc.AddToCart(f.cashier, domain.AddToCartRequest{ProductID: product.ID, Quantity: 2})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	updated, err := f.svc.UpdateCartItem(f.cashier, item.ID, 0)
	if err != nil {
		t.Fatalf("update to zero: %v", err)
	}
	if updated != nil {
		t.Fatalf("update to zero returned %+v, want nil", updated)
	}
	cart, _ := f.svc.Cart(f.cashier)
	if len(cart.Lines) != 0 {
		t.Fatalf("cart still has lines after zero update")
	}
}

func TestUpdateProductPreservesStock(t *testing.T) {
	f := newFixture(t)
	cat := f.category(t, "Beverages")
	product := f.product(t, cat.ID, "Cola", "10.00", 10)

	newPrice := dec(t, "12.00")
	updated, err := f.svc.UpdateProduct(f.admin, product.ID, domain.ProductUpdateRequest{SellingPrice: &newPrice})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.StockQuantity != 10 {
		t.Fatalf("stock = %d after price update, want 10", updated.StockQuantity)
	}
	assertMoney(t, updated.SellingPrice, "12.00", "selling price")
}

func TestDailySummary(t *testing.T) {
	f := newFixture(t)
	cat := f.category(t, "Beverages")
	product := f.product(t, cat.ID, "Cola", "10.00", 20)

	sale := checkoutOne(t, f, product.ID, 2)
	if _, err := f.svc.CreateRefund(f.admin, domain.RefundRequest{
		SaleItemID: sale.Items[0].ID, Quantity: 1, Reason: "OTHER",
	}); err != nil {
		t.Fatalf("refund: %v", err)
	}

	summary, err := f.svc.DailySummary(f.admin, "")
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if summary.SaleCount != 1 {
		t.Fatalf("sale count = %d, want 1", summary.SaleCount)
	}
	assertMoney(t, summary.GrossRevenue, "22.00", "gross revenue")
	assertMoney(t, summary.TaxCollected, "2.00", "tax collected")
	assertMoney(t, summary.RefundedAmount, "10.00", "refunded amount")
}

func TestSalesListFilters(t *testing.T) {
	f := newFixture(t)
	cat := f.category(t, "Beverages")
	product := f.product(t, cat.ID, "Cola", "10.00", 50)

	for i := 0; i < 3; i++ {
		checkoutOne(t, f, product.ID, 1)
	}

	byNumber, err := f.svc.ListSales(f.cashier, domain.SalesQuery{Search: "INV-000002"})
	if err != nil {
		t.Fatalf("list by number: %v", err)
	}
	if len(byNumber) != 1 || byNumber[0].SaleNumber != "INV-000002" {
		t.Fatalf("search by number returned %+v", byNumber)
	}

	if _, err := f.svc.ListSales(f.cashier, domain.SalesQuery{Day: "not-a-date"}); err == nil {
		t.Fatal("bad date accepted")
	}

	limited, err := f.svc.ListSales(f.cashier, domain.SalesQuery{Limit: 2})
	if err != nil {
		t.Fatalf("limited list: %v", err)
	}
	if len(limited) != 2 {
		t.Fatalf("limited list returned %d sales, want 2", len(limited))
	}
}

func TestAdminGates(t *testing.T) {
	f := newFixture(t)

	if _, err := f.svc.CreateCategory(f.cashier, domain.CategoryCreateRequest{Name: "X"}); !errors.Is(err, service.ErrAdminRequired) {
		t.Fatalf("create category as cashier err = %v, want ErrAdminRequired", err)
	}
	if _, err := f.svc.InventoryValue(f.cashier); !errors.Is(err, service.ErrAdminRequired) {
		t.Fatalf("inventory value as cashier err = %v, want ErrAdminRequired", err)
	}
	if _, err := f.svc.ReconcileStock(f.cashier, "x"); !errors.Is(err, service.ErrAdminRequired) {
		t.Fatalf("reconcile as cashier err = %v, want ErrAdminRequired", err)
	}
	if _, err := f.svc.Cart(context.Background()); !errors.Is(err, service.ErrUnauthenticated) {
		t.Fatalf("cart without actor err = %v, want ErrUnauthenticated", err)
	}
}
