// Package store provides data storage interfaces and implementations.
package store

import (
	"context"
	"errors"

	"github.com/dkoval/items-api/internal/model"
)

// Store errors.
var (
	ErrNotFound = errors.New("item not found")
	ErrNilItem  = errors.New("item cannot be nil")
)

// Store defines the interface for item storage operations.
type Store interface {
	// List returns all items from the store in insertion order.
	List(ctx context.Context) ([]model.Item, error)

	// Get retrieves an item by its ID.
	Get(ctx context.Context, id int64) (*model.Item, error)

	// Create adds a new item to the store and returns the created item with
	// the next sequential ID assigned.
	Create(ctx context.Context, item *model.Item) (*model.Item, error)

	// Update replaces the name and price of an existing item; the ID and the
	// item's position in the collection are unchanged.
	Update(ctx context.Context, id int64, item *model.Item) (*model.Item, error)

	// Delete removes an item from the store by its ID.
	Delete(ctx context.Context, id int64) error
}
