package db

import (
	"context"
	"errors"
	"strings"

	pkgerrors "github.com/stockroom-labs/stockroom-backend/pkg/errors"
)

// Class buckets a transaction failure for the retry loop.
type Class int

const (
	// ClassFatal covers business-rule violations, integrity faults and
	// anything unrecognized. Retrying these would repeat the same failure.
	ClassFatal Class = iota
	// ClassTransient covers contention and infrastructure failures that are
	// expected to succeed on retry.
	ClassTransient
)

// SQLSTATE codes treated as transient. Everything not listed here falls back
// to fatal; classification is by structured code, not message matching.
var transientSQLStates = map[string]struct{}{
	"40001": {}, // serialization_failure
	"40P01": {}, // deadlock_detected
	"08000": {}, // connection_exception
	"08003": {}, // connection_does_not_exist
	"08006": {}, // connection_failure
	"57014": {}, // query_canceled (statement timeout)
}

// Classify decides whether err is worth retrying inside the Executor.
func Classify(err error) Class {
	if err == nil {
		return ClassFatal
	}

	// Typed business errors are terminal no matter what wrapped them.
	// Retryable codes (dependency wraps around driver errors) defer to the
	// SQLSTATE inspection below.
	if typed := pkgerrors.As(err); typed != nil {
		if !pkgerrors.MetadataFor(typed.Code()).Retryable {
			return ClassFatal
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return ClassTransient
	}

	if code := pkgerrors.PGCode(err); code != "" {
		if _, ok := transientSQLStates[code]; ok {
			return ClassTransient
		}
		return ClassFatal
	}

	// sqlite (used by the test databases) reports writer contention without
	// a SQLSTATE; its busy/locked errors are the moral equivalent of 40001.
	if msg := err.Error(); strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "database table is locked") {
		return ClassTransient
	}

	return ClassFatal
}

// IsUniqueViolation reports whether err references a unique constraint. When
// constraintName is provided the helper looks for it in the error text.
func IsUniqueViolation(err error, constraintName string) bool {
	if err == nil {
		return false
	}
	if pkgerrors.PGCode(err) == "23505" {
		if constraintName == "" {
			return true
		}
		return strings.Contains(err.Error(), constraintName)
	}
	msg := err.Error()
	if constraintName != "" {
		return strings.Contains(msg, constraintName)
	}
	return strings.Contains(msg, "duplicate key value") ||
		strings.Contains(msg, "UNIQUE constraint failed")
}
