package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

var ErrDBNotReady = errors.New("database not initialized")

// Transactor runs fn inside a database transaction. Repositories bound to tx with
// WithTx see the same transaction; returning an error rolls everything back.
type Transactor interface {
	Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type transactor struct {
	db *gorm.DB
}

func NewTransactor(db *gorm.DB) Transactor {
	return &transactor{db: db}
}

func (t *transactor) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if t.db == nil {
		return ErrDBNotReady
	}
	return t.db.WithContext(ctx).Transaction(fn)
}
