package store

import (
	"context"
	"errors"
	"time"

	"github.com/Shadowdev1174/Inventory-POS-WebApp/internal/domain"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("serialization conflict")
	ErrInvalidInput = errors.New("invalid input")
)

type Repository interface {
	CreateCategory(ctx context.Context, category domain.Category) (*domain.Category, error)
	ListCategories(ctx context.Context) ([]domain.Category, error)
	GetCategoryByID(ctx context.Context, id string) (*domain.Category, error)
	CreateSupplier(ctx context.Context, supplier domain.Supplier) (*domain.Supplier, error)
	ListSuppliers(ctx context.Context) ([]domain.Supplier, error)
	GetSupplierByID(ctx context.Context, id string) (*domain.Supplier, error)
	// CreateProduct inserts the product and, when seed is non-nil, the
	// opening IN movement in the same atomic write; the stored stock
	// quantity comes from the seed so ledger replay matches from day one.
	CreateProduct(ctx context.Context, product domain.Product, seed *domain.StockMovement) (*domain.Product, error)
	UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	GetProductByID(ctx context.Context, id string) (*domain.Product, error)
	ListActiveProducts(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, error)
	ListAllProducts(ctx context.Context) ([]domain.Product, error)
	ListDeletedProducts(ctx context.Context) ([]domain.Product, error)
	CountProductsInCategory(ctx context.Context, categoryID string) (int, error)
	SoftDeleteProduct(ctx context.Context, id string, deletedBy string, at time.Time) (*domain.Product, error)
	RestoreProduct(ctx context.Context, id string) (*domain.Product, error)
	HardDeleteProduct(ctx context.Context, id string) error
	ApplyMovement(ctx context.Context, movement domain.StockMovement) (*domain.StockMovement, *domain.Product, error)
	ListMovements(ctx context.Context, productID string, limit int) ([]domain.StockMovement, error)
	AddCartItem(ctx context.Context, item domain.CartItem) (*domain.CartItem, error)
	GetCartItem(ctx context.Context, username string, cartItemID string) (*domain.CartItem, error)
	ListCartItems(ctx context.Context, username string) ([]domain.CartItem, error)
	UpdateCartItemQuantity(ctx context.Context, username string, cartItemID string, quantity int) (*domain.CartItem, error)
	DeleteCartItem(ctx context.Context, username string, cartItemID string) error
	ClearCart(ctx context.Context, username string) error
	Checkout(ctx context.Context, params domain.CheckoutParams) (*domain.Sale, error)
	GetSaleByID(ctx context.Context, id string) (*domain.Sale, error)
	GetSaleByNumber(ctx context.Context, saleNumber string) (*domain.Sale, error)
	ListSales(ctx context.Context, query domain.SalesQuery) ([]domain.Sale, error)
	GetDailySummary(ctx context.Context, day time.Time) (*domain.SalesSummary, error)
	CreateRefund(ctx context.Context, refund domain.Refund) (*domain.Refund, error)
	ListRefunds(ctx context.Context, saleID string) ([]domain.Refund, error)
	GetInventoryValue(ctx context.Context) (*domain.InventoryValue, error)
	CreateUser(ctx context.Context, user domain.UserAccount) error
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
	UpdateUserPassword(ctx context.Context, username string, password string) error
}
