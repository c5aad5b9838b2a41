package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/dkoval/items-api/internal/model"
	"github.com/dkoval/items-api/internal/store"
)

// mockStore implements store.Store for testing
type mockStore struct {
	items     map[int64]model.Item
	nextID    int64
	listErr   error
	getErr    error
	createErr error
	updateErr error
	deleteErr error
}

func newMockStore() *mockStore {
	return &mockStore{
		items:  make(map[int64]model.Item),
		nextID: 1,
	}
}

func (m *mockStore) List(_ context.Context) ([]model.Item, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	items := make([]model.Item, 0, len(m.items))
	for id := int64(1); id < m.nextID; id++ {
		if item, exists := m.items[id]; exists {
			items = append(items, item)
		}
	}
	return items, nil
}

func (m *mockStore) Get(_ context.Context, id int64) (*model.Item, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	item, exists := m.items[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	return &item, nil
}

func (m *mockStore) Create(_ context.Context, item *model.Item) (*model.Item, error) {
	if m.createErr != nil {
		return nil, m.createErr
	}
	newItem := model.Item{ID: m.nextID, Name: item.Name, Price: item.Price}
	m.nextID++
	m.items[newItem.ID] = newItem
	return &newItem, nil
}

func (m *mockStore) Update(_ context.Context, id int64, item *model.Item) (*model.Item, error) {
	if m.updateErr != nil {
		return nil, m.updateErr
	}
	existing, exists := m.items[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	existing.Name = item.Name
	existing.Price = item.Price
	m.items[id] = existing
	return &existing, nil
}

func (m *mockStore) Delete(_ context.Context, id int64) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	if _, exists := m.items[id]; !exists {
		return store.ErrNotFound
	}
	delete(m.items, id)
	return nil
}

// recordingPublisher captures published events for assertions.
type recordingPublisher struct {
	events []model.ItemEvent
}

func (p *recordingPublisher) Publish(event model.ItemEvent) {
	p.events = append(p.events, event)
}

// newTestRouter builds a router with handler routes registered, so that
// mux.Vars is populated the same way as in production.
func newTestRouter(s store.Store, events EventPublisher) *mux.Router {
	h := NewRESTHandler(s, zap.NewNop(), events)
	router := mux.NewRouter()
	h.RegisterRoutes(router)
	return router
}

func decodeError(t *testing.T, body *bytes.Buffer) model.ErrorResponse {
	t.Helper()
	var resp model.ErrorResponse
	if err := json.NewDecoder(body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	return resp
}

func TestNewRESTHandler(t *testing.T) {
	// Act
	h := NewRESTHandler(newMockStore(), zap.NewNop(), nil)

	// Assert
	if h == nil {
		t.Fatal("NewRESTHandler() returned nil")
	}
	if h.store == nil {
		t.Error("store should not be nil")
	}
	if h.logger == nil {
		t.Error("logger should not be nil")
	}
}

func TestRESTHandler_ListItems(t *testing.T) {
	tests := []struct {
		name      string
		path      string
		seed      []model.Item
		wantCount int
	}{
		{"empty store via api path", "/api/items", nil, 0},
		{"empty store via root path", "/", nil, 0},
		{
			"populated store",
			"/api/items",
			[]model.Item{{Name: "A", Price: 1}, {Name: "B", Price: 2}},
			2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			ms := newMockStore()
			for i := range tt.seed {
				if _, err := ms.Create(context.Background(), &tt.seed[i]); err != nil {
					t.Fatalf("seed Create() error: %v", err)
				}
			}
			router := newTestRouter(ms, nil)

			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			rr := httptest.NewRecorder()

			// Act
			router.ServeHTTP(rr, req)

			// Assert
			if rr.Code != http.StatusOK {
				t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
			}
			if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("Content-Type = %s, want application/json", ct)
			}
			if cl := rr.Header().Get("Content-Length"); cl != strconv.Itoa(rr.Body.Len()) {
				t.Errorf("Content-Length = %s, want %d", cl, rr.Body.Len())
			}

			var items []model.Item
			if err := json.NewDecoder(rr.Body).Decode(&items); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if items == nil {
				t.Fatal("body should be a JSON array, not null")
			}
			if len(items) != tt.wantCount {
				t.Errorf("len(items) = %d, want %d", len(items), tt.wantCount)
			}
		})
	}
}

func TestRESTHandler_GetItem(t *testing.T) {
	// Arrange
	ms := newMockStore()
	created, err := ms.Create(context.Background(), &model.Item{Name: "Widget", Price: 9.99})
	if err != nil {
		t.Fatalf("seed Create() error: %v", err)
	}
	router := newTestRouter(ms, nil)

	tests := []struct {
		name       string
		path       string
		wantStatus int
		wantError  string
	}{
		{"existing item", "/api/items/1", http.StatusOK, ""},
		{"missing item", "/api/items/999", http.StatusNotFound, "Item not found"},
		{"non-integer id", "/api/items/abc", http.StatusBadRequest, "Invalid ID"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Act
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			// Assert
			if rr.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rr.Code, tt.wantStatus)
			}

			if tt.wantError != "" {
				resp := decodeError(t, rr.Body)
				if resp.Error != tt.wantError {
					t.Errorf("error = %q, want %q", resp.Error, tt.wantError)
				}
				return
			}

			var item model.Item
			if err := json.NewDecoder(rr.Body).Decode(&item); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if item != *created {
				t.Errorf("item = %+v, want %+v", item, *created)
			}
		})
	}
}

func TestRESTHandler_CreateItem(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantError  string
	}{
		{
			name:       "valid item",
			body:       `{"name":"Widget","price":9.99}`,
			wantStatus: http.StatusCreated,
		},
		{
			name:       "client-sent id is overwritten",
			body:       `{"id":77,"name":"Widget","price":9.99}`,
			wantStatus: http.StatusCreated,
		},
		{
			name:       "empty body",
			body:       "",
			wantStatus: http.StatusBadRequest,
			wantError:  "Invalid item data",
		},
		{
			name:       "malformed json",
			body:       `{"name":`,
			wantStatus: http.StatusBadRequest,
			wantError:  "Invalid item data",
		},
		{
			name:       "missing name",
			body:       `{"price":1}`,
			wantStatus: http.StatusBadRequest,
			wantError:  "Invalid item data",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			ms := newMockStore()
			pub := &recordingPublisher{}
			router := newTestRouter(ms, pub)

			req := httptest.NewRequest(http.MethodPost, "/api/items", strings.NewReader(tt.body))
			rr := httptest.NewRecorder()

			// Act
			router.ServeHTTP(rr, req)

			// Assert
			if rr.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", rr.Code, tt.wantStatus, rr.Body.String())
			}

			if tt.wantError != "" {
				resp := decodeError(t, rr.Body)
				if resp.Error != tt.wantError {
					t.Errorf("error = %q, want %q", resp.Error, tt.wantError)
				}
				if len(pub.events) != 0 {
					t.Errorf("published %d events, want 0", len(pub.events))
				}
				return
			}

			var item model.Item
			if err := json.NewDecoder(rr.Body).Decode(&item); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if item.ID != 1 {
				t.Errorf("ID = %d, want 1", item.ID)
			}
			if item.Name != "Widget" || item.Price != 9.99 {
				t.Errorf("item = %+v, want Widget/9.99", item)
			}

			if len(pub.events) != 1 {
				t.Fatalf("published %d events, want 1", len(pub.events))
			}
			if pub.events[0].Type != model.EventItemCreated {
				t.Errorf("event type = %s, want %s", pub.events[0].Type, model.EventItemCreated)
			}
		})
	}
}

func TestRESTHandler_UpdateItem(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		body       string
		wantStatus int
		wantError  string
	}{
		{
			name:       "valid update",
			path:       "/api/items/1",
			body:       `{"name":"Widget2","price":5.0}`,
			wantStatus: http.StatusOK,
		},
		{
			name:       "non-integer id",
			path:       "/api/items/abc",
			body:       `{"name":"Widget2","price":5.0}`,
			wantStatus: http.StatusBadRequest,
			wantError:  "Invalid ID",
		},
		{
			name:       "missing item",
			path:       "/api/items/999",
			body:       `{"name":"Widget2","price":5.0}`,
			wantStatus: http.StatusNotFound,
			wantError:  "Item not found",
		},
		{
			name:       "invalid body",
			path:       "/api/items/1",
			body:       `{"price":5.0}`,
			wantStatus: http.StatusBadRequest,
			wantError:  "Invalid item data",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			ms := newMockStore()
			if _, err := ms.Create(context.Background(), &model.Item{Name: "Widget", Price: 9.99}); err != nil {
				t.Fatalf("seed Create() error: %v", err)
			}
			pub := &recordingPublisher{}
			router := newTestRouter(ms, pub)

			req := httptest.NewRequest(http.MethodPut, tt.path, strings.NewReader(tt.body))
			rr := httptest.NewRecorder()

			// Act
			router.ServeHTTP(rr, req)

			// Assert
			if rr.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", rr.Code, tt.wantStatus, rr.Body.String())
			}

			if tt.wantError != "" {
				resp := decodeError(t, rr.Body)
				if resp.Error != tt.wantError {
					t.Errorf("error = %q, want %q", resp.Error, tt.wantError)
				}
				return
			}

			var item model.Item
			if err := json.NewDecoder(rr.Body).Decode(&item); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			want := model.Item{ID: 1, Name: "Widget2", Price: 5.0}
			if item != want {
				t.Errorf("item = %+v, want %+v", item, want)
			}

			if len(pub.events) != 1 || pub.events[0].Type != model.EventItemUpdated {
				t.Errorf("events = %+v, want one %s event", pub.events, model.EventItemUpdated)
			}
		})
	}
}

func TestRESTHandler_DeleteItem(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		wantStatus int
		wantError  string
	}{
		{"existing item", "/api/items/1", http.StatusOK, ""},
		{"missing item", "/api/items/999", http.StatusNotFound, "Item not found"},
		{"non-integer id", "/api/items/abc", http.StatusBadRequest, "Invalid ID"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			ms := newMockStore()
			if _, err := ms.Create(context.Background(), &model.Item{Name: "Widget", Price: 9.99}); err != nil {
				t.Fatalf("seed Create() error: %v", err)
			}
			pub := &recordingPublisher{}
			router := newTestRouter(ms, pub)

			req := httptest.NewRequest(http.MethodDelete, tt.path, nil)
			rr := httptest.NewRecorder()

			// Act
			router.ServeHTTP(rr, req)

			// Assert
			if rr.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rr.Code, tt.wantStatus)
			}

			if tt.wantError != "" {
				resp := decodeError(t, rr.Body)
				if resp.Error != tt.wantError {
					t.Errorf("error = %q, want %q", resp.Error, tt.wantError)
				}
				return
			}

			var resp model.MessageResponse
			if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if resp.Message != "Item deleted" {
				t.Errorf("message = %q, want %q", resp.Message, "Item deleted")
			}

			if len(pub.events) != 1 || pub.events[0].Type != model.EventItemDeleted {
				t.Errorf("events = %+v, want one %s event", pub.events, model.EventItemDeleted)
			}
		})
	}
}

func TestRESTHandler_StoreFailure(t *testing.T) {
	// Arrange
	ms := newMockStore()
	ms.listErr = errors.New("boom")
	router := newTestRouter(ms, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/items", nil)
	rr := httptest.NewRecorder()

	// Act
	router.ServeHTTP(rr, req)

	// Assert - internal details stay out of the body
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusInternalServerError)
	}

	resp := decodeError(t, rr.Body)
	if resp.Error != "Internal server error" {
		t.Errorf("error = %q, want %q", resp.Error, "Internal server error")
	}
}

func TestRESTHandler_HealthCheck(t *testing.T) {
	// Arrange
	router := newTestRouter(newMockStore(), nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()

	// Act
	router.ServeHTTP(rr, req)

	// Assert
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}

	var resp HealthResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Status != "healthy" {
		t.Errorf("status = %s, want healthy", resp.Status)
	}
	if resp.Version != Version {
		t.Errorf("version = %s, want %s", resp.Version, Version)
	}
}
