package catalog

import (
	"github.com/shopspring/decimal"

	pkgerrors "github.com/stockroom-labs/stockroom-backend/pkg/errors"
)

var centsPerUnit = decimal.NewFromInt(100)

// DisplayPrice renders a cent amount as a two-decimal currency string.
// All arithmetic stays in integer cents; decimals exist only at the edges.
func DisplayPrice(cents int) string {
	return decimal.NewFromInt(int64(cents)).Div(centsPerUnit).StringFixed(2)
}

// ParsePrice converts a currency string like "12.50" into integer cents.
// Amounts with sub-cent precision or negative values are rejected.
func ParsePrice(value string) (int, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "invalid price").
			WithDetails(map[string]any{"price": value})
	}
	cents := d.Mul(centsPerUnit)
	if !cents.IsInteger() {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "price has sub-cent precision").
			WithDetails(map[string]any{"price": value})
	}
	if cents.IsNegative() {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "price must not be negative").
			WithDetails(map[string]any{"price": value})
	}
	return int(cents.IntPart()), nil
}
