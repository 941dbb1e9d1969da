package enums

import "fmt"

// InventoryTransactionType classifies entries in the append-only inventory ledger.
type InventoryTransactionType string

const (
	InventoryTransactionReserve    InventoryTransactionType = "reserve"
	InventoryTransactionRelease    InventoryTransactionType = "release"
	InventoryTransactionSale       InventoryTransactionType = "sale"
	InventoryTransactionOutOfStock InventoryTransactionType = "out_of_stock"
	InventoryTransactionRestock    InventoryTransactionType = "restock"
)

var validInventoryTransactionTypes = []InventoryTransactionType{
	InventoryTransactionReserve,
	InventoryTransactionRelease,
	InventoryTransactionSale,
	InventoryTransactionOutOfStock,
	InventoryTransactionRestock,
}

// String implements fmt.Stringer.
func (t InventoryTransactionType) String() string {
	return string(t)
}

// IsValid reports whether the value is a known ledger entry type.
func (t InventoryTransactionType) IsValid() bool {
	for _, candidate := range validInventoryTransactionTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseInventoryTransactionType converts raw input into an InventoryTransactionType.
func ParseInventoryTransactionType(value string) (InventoryTransactionType, error) {
	for _, candidate := range validInventoryTransactionTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid inventory transaction type %q", value)
}
