package enums

import "fmt"

// OrderStatus tracks the lifecycle of a settled order.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusFulfilled  OrderStatus = "fulfilled"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCompleted  OrderStatus = "completed"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusProcessing,
	OrderStatusFulfilled,
	OrderStatusShipped,
	OrderStatusDelivered,
	OrderStatusCompleted,
}

// orderStatusNext maps each status to its single permitted successor.
// Completed is terminal and never reverted.
var orderStatusNext = map[OrderStatus]OrderStatus{
	OrderStatusPending:    OrderStatusProcessing,
	OrderStatusProcessing: OrderStatusFulfilled,
	OrderStatusFulfilled:  OrderStatusShipped,
	OrderStatusShipped:    OrderStatusDelivered,
	OrderStatusDelivered:  OrderStatusCompleted,
}

// String implements fmt.Stringer.
func (s OrderStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known OrderStatus.
func (s OrderStatus) IsValid() bool {
	for _, candidate := range validOrderStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition is allowed from s.
func (s OrderStatus) IsTerminal() bool {
	_, ok := orderStatusNext[s]
	return !ok && s.IsValid()
}

// CanAdvanceTo reports whether next is the immediate successor of s.
func (s OrderStatus) CanAdvanceTo(next OrderStatus) bool {
	successor, ok := orderStatusNext[s]
	return ok && successor == next
}

// Next returns the successor status, or s itself when terminal.
func (s OrderStatus) Next() OrderStatus {
	if successor, ok := orderStatusNext[s]; ok {
		return successor
	}
	return s
}

// ParseOrderStatus converts raw input into an OrderStatus.
func ParseOrderStatus(value string) (OrderStatus, error) {
	for _, candidate := range validOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order status %q", value)
}
