package db

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/stockroom-labs/stockroom-backend/pkg/config"
	pkgerrors "github.com/stockroom-labs/stockroom-backend/pkg/errors"
)

type executorModel struct {
	ID    uuid.UUID `gorm:"type:uuid;primaryKey"`
	Value int
}

func newTestClient(t *testing.T) *Client {
	t.Helper()
	dsn := "file:executor_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(&executorModel{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return NewFromConn(conn)
}

func fastConfig() config.ExecutorConfig {
	return config.ExecutorConfig{
		MaxAttempts:    5,
		AttemptTimeout: 2 * time.Second,
		BackoffInitial: time.Millisecond,
		BackoffMax:     5 * time.Millisecond,
	}
}

func TestExecuteCommits(t *testing.T) {
	client := newTestClient(t)
	exec, err := NewExecutor(client, fastConfig(), nil, nil)
	if err != nil {
		t.Fatalf("new executor: %v", err)
	}

	id := uuid.New()
	if err := exec.Execute(context.Background(), "insert", func(tx *gorm.DB) error {
		return tx.Create(&executorModel{ID: id, Value: 1}).Error
	}); err != nil {
		t.Fatalf("execute: %v", err)
	}

	var row executorModel
	if err := client.DB().First(&row, "id = ?", id).Error; err != nil {
		t.Fatalf("load row: %v", err)
	}
	if row.Value != 1 {
		t.Fatalf("unexpected value %d", row.Value)
	}
}

func TestExecuteRetriesTransientThenSucceeds(t *testing.T) {
	client := newTestClient(t)
	exec, err := NewExecutor(client, fastConfig(), nil, nil)
	if err != nil {
		t.Fatalf("new executor: %v", err)
	}

	id := uuid.New()
	attempts := 0
	err = exec.Execute(context.Background(), "flaky-insert", func(tx *gorm.DB) error {
		attempts++
		if attempts < 3 {
			return &pgconn.PgError{Code: "40001", Message: "serialization failure"}
		}
		return tx.Create(&executorModel{ID: id, Value: attempts}).Error
	})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts)
	}

	// The aborted attempts must leave no rows behind.
	var count int64
	if err := client.DB().Model(&executorModel{}).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected exactly one committed row, got %d", count)
	}
}

func TestExecuteFatalPropagatesWithoutRetry(t *testing.T) {
	client := newTestClient(t)
	exec, err := NewExecutor(client, fastConfig(), nil, nil)
	if err != nil {
		t.Fatalf("new executor: %v", err)
	}

	attempts := 0
	err = exec.Execute(context.Background(), "bad-input", func(tx *gorm.DB) error {
		attempts++
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if attempts != 1 {
		t.Fatalf("fatal errors must not retry, got %d attempts", attempts)
	}
	if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation code, got %v", err)
	}
}

func TestExecuteExhaustsRetries(t *testing.T) {
	client := newTestClient(t)
	cfg := fastConfig()
	cfg.MaxAttempts = 3
	exec, err := NewExecutor(client, cfg, nil, nil)
	if err != nil {
		t.Fatalf("new executor: %v", err)
	}

	attempts := 0
	err = exec.Execute(context.Background(), "always-conflicts", func(tx *gorm.DB) error {
		attempts++
		return &pgconn.PgError{Code: "40P01", Message: "deadlock detected"}
	})
	if err == nil {
		t.Fatal("expected terminal error")
	}
	if attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts)
	}
	if !IsRetriesExhausted(err) {
		t.Fatalf("expected exhausted classification, got %v", err)
	}
}

func TestExecuteRespectsContextCancellation(t *testing.T) {
	client := newTestClient(t)
	exec, err := NewExecutor(client, fastConfig(), nil, nil)
	if err != nil {
		t.Fatalf("new executor: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = exec.Execute(ctx, "canceled", func(tx *gorm.DB) error {
		return &pgconn.PgError{Code: "40001"}
	})
	if err == nil {
		t.Fatal("expected error from canceled context")
	}
	if IsRetriesExhausted(err) {
		t.Fatal("cancellation should not be reported as exhaustion")
	}
}

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want Class
	}{
		{"serialization", &pgconn.PgError{Code: "40001"}, ClassTransient},
		{"deadlock", &pgconn.PgError{Code: "40P01"}, ClassTransient},
		{"connection", &pgconn.PgError{Code: "08006"}, ClassTransient},
		{"statement timeout", &pgconn.PgError{Code: "57014"}, ClassTransient},
		{"deadline", context.DeadlineExceeded, ClassTransient},
		{"unique violation", &pgconn.PgError{Code: "23505"}, ClassFatal},
		{"not found", gorm.ErrRecordNotFound, ClassFatal},
		{"business rule", pkgerrors.New(pkgerrors.CodeInsufficientStock, "short"), ClassFatal},
		{"unknown", context.Canceled, ClassFatal},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Classify(tc.err); got != tc.want {
				t.Fatalf("Classify(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}
