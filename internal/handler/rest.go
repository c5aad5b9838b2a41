package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/dkoval/items-api/internal/model"
	"github.com/dkoval/items-api/internal/store"
)

// Version is the application version.
const Version = "1.0.0"

// Client-facing error and confirmation messages. These are part of the wire
// contract and must not change without versioning the API.
const (
	msgInvalidID       = "Invalid ID"
	msgItemNotFound    = "Item not found"
	msgInvalidItemData = "Invalid item data"
	msgItemDeleted     = "Item deleted"
	msgInternalError   = "Internal server error"
)

// EventPublisher receives an event for every successful mutation of the
// item collection.
type EventPublisher interface {
	Publish(event model.ItemEvent)
}

// RESTHandler handles REST API requests for items.
type RESTHandler struct {
	store  store.Store
	logger *zap.Logger
	events EventPublisher
}

// NewRESTHandler creates a new RESTHandler instance. The events publisher
// may be nil, in which case mutations are not broadcast.
func NewRESTHandler(s store.Store, logger *zap.Logger, events EventPublisher) *RESTHandler {
	return &RESTHandler{
		store:  s,
		logger: logger,
		events: events,
	}
}

// RegisterRoutes registers the REST API routes with the router.
func (h *RESTHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/health", h.HealthCheck).Methods(http.MethodGet)
	router.HandleFunc("/", h.ListItems).Methods(http.MethodGet)
	router.HandleFunc("/api/items", h.ListItems).Methods(http.MethodGet)
	router.HandleFunc("/api/items", h.CreateItem).Methods(http.MethodPost)
	router.HandleFunc("/api/items/{id}", h.GetItem).Methods(http.MethodGet)
	router.HandleFunc("/api/items/{id}", h.UpdateItem).Methods(http.MethodPut)
	router.HandleFunc("/api/items/{id}", h.DeleteItem).Methods(http.MethodDelete)
}

// HealthCheck handles GET /health requests.
func (h *RESTHandler) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	response := HealthResponse{
		Status:  "healthy",
		Version: Version,
	}
	h.writeJSON(w, http.StatusOK, response)
}

// ListItems handles GET / and GET /api/items requests.
func (h *RESTHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	items, err := h.store.List(ctx)
	if err != nil {
		h.logger.Error("failed to list items", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, msgInternalError)
		return
	}

	h.writeJSON(w, http.StatusOK, items)
}

// GetItem handles GET /api/items/{id} requests.
func (h *RESTHandler) GetItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, ok := h.parseID(w, r)
	if !ok {
		return
	}

	item, err := h.store.Get(ctx, id)
	if err != nil {
		h.handleStoreError(w, err, "get item")
		return
	}

	h.writeJSON(w, http.StatusOK, item)
}

// CreateItem handles POST /api/items requests. Any ID in the body is
// ignored; the store assigns the next sequential one.
func (h *RESTHandler) CreateItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	input, ok := h.decodeItem(w, r)
	if !ok {
		return
	}

	item, err := h.store.Create(ctx, input)
	if err != nil {
		h.handleStoreError(w, err, "create item")
		return
	}

	h.publish(model.EventItemCreated, *item)
	h.writeJSON(w, http.StatusCreated, item)
}

// UpdateItem handles PUT /api/items/{id} requests. Only name and price are
// replaced; the ID is fixed.
func (h *RESTHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, ok := h.parseID(w, r)
	if !ok {
		return
	}

	// Look up before reading the body so a missing item reports 404 even
	// when the body is also invalid.
	if _, err := h.store.Get(ctx, id); err != nil {
		h.handleStoreError(w, err, "update item")
		return
	}

	input, ok := h.decodeItem(w, r)
	if !ok {
		return
	}

	item, err := h.store.Update(ctx, id, input)
	if err != nil {
		h.handleStoreError(w, err, "update item")
		return
	}

	h.publish(model.EventItemUpdated, *item)
	h.writeJSON(w, http.StatusOK, item)
}

// DeleteItem handles DELETE /api/items/{id} requests.
func (h *RESTHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, ok := h.parseID(w, r)
	if !ok {
		return
	}

	item, err := h.store.Get(ctx, id)
	if err != nil {
		h.handleStoreError(w, err, "delete item")
		return
	}

	if err := h.store.Delete(ctx, id); err != nil {
		h.handleStoreError(w, err, "delete item")
		return
	}

	h.publish(model.EventItemDeleted, *item)
	h.writeJSON(w, http.StatusOK, model.NewMessageResponse(msgItemDeleted))
}

// parseID extracts and parses the {id} path segment. On failure it writes
// the 400 response and reports false.
func (h *RESTHandler) parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := mux.Vars(r)["id"]

	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		h.logger.Warn("invalid item id", zap.String("id", raw))
		h.writeError(w, http.StatusBadRequest, msgInvalidID)
		return 0, false
	}

	return id, true
}

// decodeItem reads and validates an item payload from the request body. On
// failure it writes the 400 response and reports false.
func (h *RESTHandler) decodeItem(w http.ResponseWriter, r *http.Request) (*model.Item, bool) {
	var input model.Item
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		h.logger.Warn("invalid request body", zap.Error(err))
		h.writeError(w, http.StatusBadRequest, msgInvalidItemData)
		return nil, false
	}

	if err := input.Validate(); err != nil {
		h.logger.Warn("validation failed", zap.Error(err))
		h.writeError(w, http.StatusBadRequest, msgInvalidItemData)
		return nil, false
	}

	return &input, true
}

// publish broadcasts an item event when a publisher is wired in.
func (h *RESTHandler) publish(eventType string, item model.Item) {
	if h.events == nil {
		return
	}
	h.events.Publish(model.NewItemEvent(eventType, item))
}

// handleStoreError maps store errors to HTTP responses.
func (h *RESTHandler) handleStoreError(w http.ResponseWriter, err error, operation string) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		h.writeError(w, http.StatusNotFound, msgItemNotFound)
	default:
		h.logger.Error("store operation failed", zap.String("operation", operation), zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, msgInternalError)
	}
}

// writeJSON writes a pretty-printed JSON response with the given status
// code. Content-Length is set from the marshalled body.
func (h *RESTHandler) writeJSON(w http.ResponseWriter, status int, data any) {
	WriteJSON(w, h.logger, status, data)
}

// writeError writes an error response with the given status code and message.
func (h *RESTHandler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, model.NewErrorResponse(message))
}

// WriteJSON serializes data as indented JSON and writes it with the given
// status code, Content-Type and Content-Length. It is shared with the
// router's 404/405 fallback handlers.
func WriteJSON(w http.ResponseWriter, logger *zap.Logger, status int, data any) {
	body, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		logger.Error("failed to encode response", zap.Error(err))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	body = append(body, '\n')

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(status)

	if _, err := w.Write(body); err != nil {
		logger.Error("failed to write response", zap.Error(err))
	}
}
