// Package store is the gorm-backed persistence layer.
package store

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"medconnect-server/internal/apperr"
)

// errNotFound is returned by deletes and guarded updates that touched no row.
var errNotFound = gorm.ErrRecordNotFound

// Store wraps a gorm connection. Every method scopes its query to ctx.
type Store struct {
	db *gorm.DB
}

// New creates a Store over db.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// DB exposes the underlying connection for migrations and health checks.
func (s *Store) DB() *gorm.DB {
	return s.db
}

// Transaction runs fn with a Store bound to a single database transaction.
// The transaction is rolled back when fn returns an error.
func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx})
	})
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *Store) conn(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx)
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// wrap classifies gorm errors. what names the resource for messages.
func wrap(err error, what string) error {
	if err == nil {
		return nil
	}
	if isNotFound(err) {
		return apperr.NotFound(what + " not found")
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return apperr.Conflict(what + " already exists")
	}
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return err
	}
	return apperr.Internal("database error on "+what, err)
}
