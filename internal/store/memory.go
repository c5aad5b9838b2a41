package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/dkoval/items-api/internal/model"
)

// MemoryStore implements Store with an in-memory ordered collection.
//
// Items are kept in insertion order. IDs are assigned from a counter that
// starts at 1 and only ever increases, so an ID is never reused within the
// process lifetime, even after the item is deleted. The mutex serializes all
// access because net/http serves requests concurrently.
type MemoryStore struct {
	mu     sync.RWMutex
	items  []model.Item
	nextID int64
}

// NewMemoryStore creates a new empty MemoryStore instance.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		items:  make([]model.Item, 0),
		nextID: 1,
	}
}

// List returns all items from the store in insertion order.
func (s *MemoryStore) List(ctx context.Context) ([]model.Item, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("list items: %w", ctx.Err())
	default:
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]model.Item, len(s.items))
	copy(items, s.items)

	return items, nil
}

// Get retrieves an item by its ID.
func (s *MemoryStore) Get(ctx context.Context, id int64) (*model.Item, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("get item: %w", ctx.Err())
	default:
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	idx := s.indexOf(id)
	if idx < 0 {
		return nil, ErrNotFound
	}

	item := s.items[idx]
	return &item, nil
}

// Create adds a new item to the store and returns the created item with the
// next sequential ID assigned. Any ID on the input is ignored.
func (s *MemoryStore) Create(ctx context.Context, item *model.Item) (*model.Item, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("create item: %w", ctx.Err())
	default:
	}

	if item == nil {
		return nil, fmt.Errorf("create item: %w", ErrNilItem)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	newItem := model.Item{
		ID:    s.nextID,
		Name:  item.Name,
		Price: item.Price,
	}
	s.nextID++

	s.items = append(s.items, newItem)

	return &newItem, nil
}

// Update replaces the name and price of an existing item in place.
func (s *MemoryStore) Update(ctx context.Context, id int64, item *model.Item) (*model.Item, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("update item: %w", ctx.Err())
	default:
	}

	if item == nil {
		return nil, fmt.Errorf("update item: %w", ErrNilItem)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(id)
	if idx < 0 {
		return nil, ErrNotFound
	}

	s.items[idx].Name = item.Name
	s.items[idx].Price = item.Price

	updated := s.items[idx]
	return &updated, nil
}

// Delete removes an item from the store by its ID. The order of the
// remaining items is preserved and the ID is not reused.
func (s *MemoryStore) Delete(ctx context.Context, id int64) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("delete item: %w", ctx.Err())
	default:
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(id)
	if idx < 0 {
		return ErrNotFound
	}

	s.items = append(s.items[:idx], s.items[idx+1:]...)

	return nil
}

// indexOf returns the position of the item with the given ID, or -1.
// Callers must hold the mutex.
func (s *MemoryStore) indexOf(id int64) int {
	for i := range s.items {
		if s.items[i].ID == id {
			return i
		}
	}
	return -1
}
