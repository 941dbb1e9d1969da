package enums

import "testing"

func TestOrderStatusSequence(t *testing.T) {
	sequence := []OrderStatus{
		OrderStatusPending,
		OrderStatusProcessing,
		OrderStatusFulfilled,
		OrderStatusShipped,
		OrderStatusDelivered,
		OrderStatusCompleted,
	}
	for i := 0; i < len(sequence)-1; i++ {
		if !sequence[i].CanAdvanceTo(sequence[i+1]) {
			t.Fatalf("%s should advance to %s", sequence[i], sequence[i+1])
		}
	}
}

func TestOrderStatusNoSkipOrRevert(t *testing.T) {
	if OrderStatusPending.CanAdvanceTo(OrderStatusFulfilled) {
		t.Fatal("skipping processing must be disallowed")
	}
	if OrderStatusShipped.CanAdvanceTo(OrderStatusProcessing) {
		t.Fatal("reverting must be disallowed")
	}
	if OrderStatusCompleted.CanAdvanceTo(OrderStatusPending) {
		t.Fatal("completed is terminal")
	}
	if !OrderStatusCompleted.IsTerminal() {
		t.Fatal("completed should be terminal")
	}
	if OrderStatusPending.IsTerminal() {
		t.Fatal("pending is not terminal")
	}
}

func TestParseInventoryTransactionType(t *testing.T) {
	typ, err := ParseInventoryTransactionType("out_of_stock")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if typ != InventoryTransactionOutOfStock {
		t.Fatalf("unexpected type %s", typ)
	}
	if _, err := ParseInventoryTransactionType("SALE"); err == nil {
		t.Fatal("uppercase input should be rejected")
	}
}
