package db

import (
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestIsUniqueViolation(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", Message: `duplicate key value violates unique constraint "idx_cart_items_cart_item"`}

	if !IsUniqueViolation(pgErr, "") {
		t.Fatal("expected unique violation by SQLSTATE")
	}
	if !IsUniqueViolation(errors.New(`duplicate key value violates unique constraint "users_email_key"`), "users_email_key") {
		t.Fatal("expected unique violation by constraint name")
	}
	if !IsUniqueViolation(errors.New("UNIQUE constraint failed: cart_items.cart_id, cart_items.item_id"), "") {
		t.Fatal("expected sqlite unique violation to match")
	}
	if IsUniqueViolation(errors.New("some other failure"), "") {
		t.Fatal("unexpected match")
	}
	if IsUniqueViolation(nil, "") {
		t.Fatal("nil error must not match")
	}
}
