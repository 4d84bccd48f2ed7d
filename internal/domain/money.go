package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// TaxRate is the flat sales tax applied to every cart and checkout.
var TaxRate = decimal.NewFromFloat(0.10)

// MaxPrice is the upper bound accepted for cost and selling prices.
var MaxPrice = decimal.NewFromInt(1_000_000)

// MaxStockQuantity is the upper bound accepted for stock levels and
// movement quantities.
const MaxStockQuantity = 100_000

// Money rounds an amount to the two decimal places every stored value carries.
func Money(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// TaxOn returns the tax owed on a subtotal, rounded to cents.
func TaxOn(subtotal decimal.Decimal) decimal.Decimal {
	return Money(subtotal.Mul(TaxRate))
}

// FormatSaleNumber renders a counter value as a receipt number, e.g. INV-000001.
func FormatSaleNumber(n int64) string {
	return fmt.Sprintf("INV-%06d", n)
}
