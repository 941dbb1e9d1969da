package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestMetadataForKnownCodes(t *testing.T) {
	meta := MetadataFor(CodeInsufficientStock)
	if meta.HTTPStatus != http.StatusConflict {
		t.Fatalf("expected 409 for insufficient stock, got %d", meta.HTTPStatus)
	}
	if meta.Retryable {
		t.Fatal("insufficient stock must not be marked retryable")
	}

	meta = MetadataFor(CodeTxExhausted)
	if meta.HTTPStatus != http.StatusServiceUnavailable || !meta.Retryable {
		t.Fatalf("unexpected metadata for exhausted retries: %+v", meta)
	}
}

func TestMetadataForUnknownFallsBackToInternal(t *testing.T) {
	meta := MetadataFor(Code("SOMETHING_ELSE"))
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("expected internal fallback, got %d", meta.HTTPStatus)
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := fmt.Errorf("root cause")
	err := Wrap(CodeDependency, cause, "query failed")

	typed := As(fmt.Errorf("outer: %w", err))
	if typed == nil {
		t.Fatal("expected typed error through wrapping")
	}
	if typed.Code() != CodeDependency {
		t.Fatalf("unexpected code %s", typed.Code())
	}
	if typed.Unwrap() != cause {
		t.Fatal("expected original cause preserved")
	}
}

func TestHasCode(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", New(CodeEmptyCart, "nothing to settle"))
	if !HasCode(err, CodeEmptyCart) {
		t.Fatal("expected empty cart code to be detected")
	}
	if HasCode(err, CodeOverRelease) {
		t.Fatal("unexpected code match")
	}
}

func TestDumpSurfacesPGCode(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "40001", Message: "serialization failure"}
	dump := Dump(fmt.Errorf("tx failed: %w", pgErr))
	if dump.PGCode != "40001" {
		t.Fatalf("expected pg code 40001, got %q", dump.PGCode)
	}
	if PGCode(pgErr) != "40001" {
		t.Fatal("PGCode should extract SQLSTATE")
	}
}
