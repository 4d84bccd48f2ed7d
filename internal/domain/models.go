package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	MovementIn         = "IN"
	MovementOut        = "OUT"
	MovementAdjustment = "ADJUSTMENT"
	MovementSale       = "SALE"
	MovementReturn     = "RETURN"
)

const (
	PaymentCash   = "CASH"
	PaymentCard   = "CARD"
	PaymentMobile = "MOBILE"
	PaymentCheck  = "CHECK"
)

const (
	SalePending   = "PENDING"
	SaleCompleted = "COMPLETED"
	SaleCancelled = "CANCELLED"
	SaleRefunded  = "REFUNDED"
)

const (
	RefundDefective       = "DEFECTIVE"
	RefundWrongItem       = "WRONG_ITEM"
	RefundCustomerRequest = "CUSTOMER_REQUEST"
	RefundDamaged         = "DAMAGED"
	RefundOther           = "OTHER"
)

const (
	RoleAdmin   = "admin"
	RoleCashier = "cashier"
)

type Actor struct {
	Username string `json:"username"`
	Role     string `json:"role"`
}

type Category struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type Supplier struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	ContactPerson string    `json:"contact_person,omitempty"`
	Email         string    `json:"email,omitempty"`
	Phone         string    `json:"phone,omitempty"`
	Address       string    `json:"address,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type Product struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Description   string          `json:"description,omitempty"`
	CategoryID    string          `json:"category_id"`
	SupplierID    string          `json:"supplier_id,omitempty"`
	SKU           string          `json:"sku"`
	Barcode       string          `json:"barcode,omitempty"`
	CostPrice     decimal.Decimal `json:"cost_price"`
	SellingPrice  decimal.Decimal `json:"selling_price"`
	StockQuantity int             `json:"stock_quantity"`
	MinimumStock  int             `json:"minimum_stock"`
	Active        bool            `json:"active"`
	Deleted       bool            `json:"deleted"`
	DeletedAt     *time.Time      `json:"deleted_at,omitempty"`
	DeletedBy     string          `json:"deleted_by,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// LowStock reports whether the product is at or below its reorder threshold.
func (p Product) LowStock() bool {
	return p.StockQuantity <= p.MinimumStock
}

// Sellable reports whether the product may appear in the catalog and carts.
func (p Product) Sellable() bool {
	return p.Active && !p.Deleted
}

type StockMovement struct {
	ID        string    `json:"id"`
	ProductID string    `json:"product_id"`
	Kind      string    `json:"kind"`
	Quantity  int       `json:"quantity"`
	Reason    string    `json:"reason,omitempty"`
	Reference string    `json:"reference,omitempty"`
	CreatedBy string    `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
}

type CartItem struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	ProductID string    `json:"product_id"`
	Quantity  int       `json:"quantity"`
	CreatedAt time.Time `json:"created_at"`
}

type CartLine struct {
	CartItemID  string          `json:"cart_item_id"`
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	SKU         string          `json:"sku"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Quantity    int             `json:"quantity"`
	LineTotal   decimal.Decimal `json:"line_total"`
	InStock     int             `json:"in_stock"`
	// Unavailable marks a line whose product was archived or removed after
	// it entered the cart; it contributes nothing to the totals and blocks
	// checkout until the cashier removes it.
	Unavailable bool `json:"unavailable,omitempty"`
}

type CartSummary struct {
	Lines     []CartLine      `json:"lines"`
	ItemCount int             `json:"item_count"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	Tax       decimal.Decimal `json:"tax"`
	Total     decimal.Decimal `json:"total"`
}

type Sale struct {
	ID             string          `json:"id"`
	SaleNumber     string          `json:"sale_number"`
	Cashier        string          `json:"cashier"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	TaxAmount      decimal.Decimal `json:"tax_amount"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	PaymentMethod  string          `json:"payment_method"`
	AmountPaid     decimal.Decimal `json:"amount_paid"`
	ChangeAmount   decimal.Decimal `json:"change_amount"`
	Status         string          `json:"status"`
	Notes          string          `json:"notes,omitempty"`
	Items          []SaleItem      `json:"items,omitempty"`
	Payments       []PaymentRecord `json:"payments,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

type SaleItem struct {
	ID          string          `json:"id"`
	SaleID      string          `json:"sale_id"`
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	SKU         string          `json:"sku"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Discount    decimal.Decimal `json:"discount"`
	LineTotal   decimal.Decimal `json:"line_total"`
}

type PaymentRecord struct {
	ID        string          `json:"id"`
	SaleID    string          `json:"sale_id"`
	Method    string          `json:"method"`
	Amount    decimal.Decimal `json:"amount"`
	Reference string          `json:"reference,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

type Refund struct {
	ID          string          `json:"id"`
	SaleID      string          `json:"sale_id"`
	SaleItemID  string          `json:"sale_item_id"`
	Quantity    int             `json:"quantity"`
	Amount      decimal.Decimal `json:"amount"`
	Reason      string          `json:"reason"`
	Notes       string          `json:"notes,omitempty"`
	ProcessedBy string          `json:"processed_by"`
	CreatedAt   time.Time       `json:"created_at"`
}

type UserAccount struct {
	Username  string    `json:"username"`
	Password  string    `json:"-"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Role        string `json:"role"`
	ExpiresAt   string `json:"expires_at"`
}

type CategoryCreateRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type SupplierCreateRequest struct {
	Name          string `json:"name"`
	ContactPerson string `json:"contact_person"`
	Email         string `json:"email"`
	Phone         string `json:"phone"`
	Address       string `json:"address"`
}

type ProductCreateRequest struct {
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	CategoryID    string          `json:"category_id"`
	SupplierID    string          `json:"supplier_id"`
	SKU           string          `json:"sku"`
	Barcode       string          `json:"barcode"`
	CostPrice     decimal.Decimal `json:"cost_price"`
	SellingPrice  decimal.Decimal `json:"selling_price"`
	StockQuantity int             `json:"stock_quantity"`
	MinimumStock  int             `json:"minimum_stock"`
}

type ProductUpdateRequest struct {
	Name         *string          `json:"name,omitempty"`
	Description  *string          `json:"description,omitempty"`
	CategoryID   *string          `json:"category_id,omitempty"`
	SupplierID   *string          `json:"supplier_id,omitempty"`
	Barcode      *string          `json:"barcode,omitempty"`
	CostPrice    *decimal.Decimal `json:"cost_price,omitempty"`
	SellingPrice *decimal.Decimal `json:"selling_price,omitempty"`
	MinimumStock *int             `json:"minimum_stock,omitempty"`
	Active       *bool            `json:"active,omitempty"`
}

type ProductFilter struct {
	Search     string
	CategoryID string
	LowStock   bool
}

type MovementRequest struct {
	ProductID string `json:"product_id"`
	Kind      string `json:"kind"`
	Quantity  int    `json:"quantity"`
	Reason    string `json:"reason"`
	Reference string `json:"reference"`
}

type MovementResult struct {
	Movement StockMovement `json:"movement"`
	Product  Product       `json:"product"`
}

type AddToCartRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type UpdateCartItemRequest struct {
	Quantity int `json:"quantity"`
}

type CheckoutRequest struct {
	PaymentMethod string          `json:"payment_method"`
	AmountPaid    decimal.Decimal `json:"amount_paid"`
	Notes         string          `json:"notes"`
}

type CheckoutParams struct {
	Cashier       string
	PaymentMethod string
	AmountPaid    decimal.Decimal
	Notes         string
}

type CheckoutResult struct {
	SaleID     string          `json:"sale_id"`
	SaleNumber string          `json:"sale_number"`
	Subtotal   decimal.Decimal `json:"subtotal"`
	Tax        decimal.Decimal `json:"tax"`
	Total      decimal.Decimal `json:"total"`
	AmountPaid decimal.Decimal `json:"amount_paid"`
	Change     decimal.Decimal `json:"change"`
	Status     string          `json:"status"`
	CreatedAt  time.Time       `json:"created_at"`
}

type RefundRequest struct {
	SaleItemID string `json:"sale_item_id"`
	Quantity   int    `json:"quantity"`
	Reason     string `json:"reason"`
	Notes      string `json:"notes"`
}

type SalesQuery struct {
	Search  string
	Cashier string
	Day     string
	Limit   int
	Offset  int
}

type SalesSummary struct {
	Date           string          `json:"date"`
	SaleCount      int             `json:"sale_count"`
	GrossRevenue   decimal.Decimal `json:"gross_revenue"`
	TaxCollected   decimal.Decimal `json:"tax_collected"`
	RefundedAmount decimal.Decimal `json:"refunded_amount"`
}

type InventoryValue struct {
	ProductCount int             `json:"product_count"`
	TotalUnits   int             `json:"total_units"`
	TotalCost    decimal.Decimal `json:"total_cost"`
	TotalRetail  decimal.Decimal `json:"total_retail"`
}

type StockReconciliation struct {
	ProductID     string `json:"product_id"`
	Recorded      int    `json:"recorded"`
	Expected      int    `json:"expected"`
	Drift         int    `json:"drift"`
	MovementCount int    `json:"movement_count"`
	Consistent    bool   `json:"consistent"`
}

type Receipt struct {
	SaleNumber    string          `json:"sale_number"`
	Cashier       string          `json:"cashier"`
	Lines         []SaleItem      `json:"lines"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	Tax           decimal.Decimal `json:"tax"`
	Total         decimal.Decimal `json:"total"`
	PaymentMethod string          `json:"payment_method"`
	AmountPaid    decimal.Decimal `json:"amount_paid"`
	Change        decimal.Decimal `json:"change"`
	IssuedAt      time.Time       `json:"issued_at"`
}
