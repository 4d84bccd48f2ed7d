package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrEmptyCart            = errors.New("cart is empty")
	ErrInvalidPaymentAmount = errors.New("invalid payment amount")
)

// InsufficientStockError names the product that could not cover a requested
// quantity so callers can surface the exact shortfall.
type InsufficientStockError struct {
	ProductID   string
	ProductName string
	Requested   int
	Available   int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s: requested %d, available %d",
		e.ProductName, e.Requested, e.Available)
}

func (e *InsufficientStockError) Shortfall() int {
	return e.Requested - e.Available
}

// InsufficientPaymentError reports a cash payment that does not cover the total.
type InsufficientPaymentError struct {
	Total      decimal.Decimal
	AmountPaid decimal.Decimal
}

func (e *InsufficientPaymentError) Error() string {
	return fmt.Sprintf("amount paid %s does not cover total %s",
		e.AmountPaid.StringFixed(2), e.Total.StringFixed(2))
}

func (e *InsufficientPaymentError) Shortage() decimal.Decimal {
	return Money(e.Total.Sub(e.AmountPaid))
}

// InvalidQuantityError reports a refund quantity above what remains refundable
// on a sale item.
type InvalidQuantityError struct {
	Requested int
	Remaining int
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("invalid quantity %d: only %d refundable", e.Requested, e.Remaining)
}

// ValidationError reports a rejected input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func Invalid(field string, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}
