package database

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
)

// Common timeout durations for database operations
const (
	// ShortTimeout for single document reads and writes
	ShortTimeout = 5 * time.Second

	// MediumTimeout for connection setup, index builds and multi-document queries
	MediumTimeout = 10 * time.Second

	// LongTimeout for seeding and maintenance commands
	LongTimeout = 30 * time.Second
)

// WithShortTimeout creates a background context with ShortTimeout
func WithShortTimeout() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), ShortTimeout)
}

// WithMediumTimeout creates a background context with MediumTimeout
func WithMediumTimeout() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), MediumTimeout)
}

// WithLongTimeout creates a background context with LongTimeout
func WithLongTimeout() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), LongTimeout)
}

// writeConflictCode is the server code for WriteConflict
const writeConflictCode = 112

// isTransactionConflict reports errors that mean another writer got there
// first: transient transaction errors, write conflicts and duplicate keys
// raised by the unique pick indexes
func isTransactionConflict(err error) bool {
	if err == nil {
		return false
	}
	if mongo.IsDuplicateKeyError(err) {
		return true
	}
	var se mongo.ServerError
	if errors.As(err, &se) {
		return se.HasErrorLabel("TransientTransactionError") || se.HasErrorCode(writeConflictCode)
	}
	return false
}
