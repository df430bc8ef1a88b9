// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"

	"github.com/tkhr/ecopoints/internal/models"
)

// Domain errors returned by Store implementations. The web layer maps these
// to HTTP statuses with errors.Is.
var (
	ErrInvalidUserID       = errors.New("userID must be exactly 9 digits")
	ErrDuplicateUser       = errors.New("userID already exists")
	ErrUserNotFound        = errors.New("user not found")
	ErrItemNotFound        = errors.New("item not found")
	ErrInsufficientBalance = errors.New("not enough points")
	ErrNonPositivePoints   = errors.New("points must be positive")
)

// Store defines the interface for rewards storage operations.
// This abstraction allows swapping storage backends (SQLite, PostgreSQL, etc.)
// without changing the web layer.
type Store interface {
	// CreateUser persists a new user with a zero balance. The external ID
	// must be exactly 9 digits and not already registered. The user.ID and
	// user.CreatedAt fields are populated by the store when unset.
	CreateUser(ctx context.Context, user *models.User) error

	// GetUserByExternalID retrieves a user by their 9-digit external ID.
	// Returns nil, nil if no such user exists.
	GetUserByExternalID(ctx context.Context, externalID string) (*models.User, error)

	// ListUsersByRank returns all users ordered by the ranking key:
	// points descending, older accounts first.
	ListUsersByRank(ctx context.Context) ([]*models.User, error)

	// SeedItems inserts each default item unless an item with the same name
	// already exists. Idempotent; never updates an existing price.
	SeedItems(ctx context.Context, defaults []models.Item) error

	// GetItemByName retrieves a catalog item by name.
	// Returns nil, nil if no such item exists.
	GetItemByName(ctx context.Context, name string) (*models.Item, error)

	// ListItems returns the full catalog in seed order.
	ListItems(ctx context.Context) ([]*models.Item, error)

	// Purchase atomically debits the item's price from the user's balance
	// and appends the matching buy entry to the ledger. Either both writes
	// persist or neither. Returns ErrItemNotFound or ErrInsufficientBalance
	// without touching any state.
	Purchase(ctx context.Context, userID, itemName string) (*models.Transaction, error)

	// Recycle atomically credits points to the user's balance and appends
	// the matching recycle entry. Returns ErrNonPositivePoints for amounts
	// of zero or less.
	Recycle(ctx context.Context, userID string, points int64) (*models.Transaction, error)

	// ListTransactions returns the user's ledger entries, newest first.
	ListTransactions(ctx context.Context, userID string) ([]*models.Transaction, error)

	// Close releases any resources held by the store.
	Close() error
}
