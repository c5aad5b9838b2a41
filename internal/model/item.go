// Package model defines data structures used throughout the application.
package model

import "errors"

// Validation errors for Item.
var (
	ErrEmptyName = errors.New("name cannot be empty")
)

// Item represents a record in the item collection. The ID is assigned by
// the server on create and never changes afterwards.
type Item struct {
	ID    int64   `json:"id"`
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

// Validate checks if the Item has valid field values.
func (i *Item) Validate() error {
	if i.Name == "" {
		return ErrEmptyName
	}

	return nil
}

// ErrorResponse is the wire shape of every error body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// NewErrorResponse creates an error response with the given message.
func NewErrorResponse(msg string) ErrorResponse {
	return ErrorResponse{Error: msg}
}

// MessageResponse is the wire shape of informational bodies, such as the
// delete confirmation.
type MessageResponse struct {
	Message string `json:"message"`
}

// NewMessageResponse creates a message response with the given text.
func NewMessageResponse(msg string) MessageResponse {
	return MessageResponse{Message: msg}
}

// Event types published on the watch stream.
const (
	EventItemCreated = "created"
	EventItemUpdated = "updated"
	EventItemDeleted = "deleted"
)

// ItemEvent represents a change to the item collection, as sent to
// watch-stream subscribers.
type ItemEvent struct {
	Type string `json:"type"`
	Item Item   `json:"item"`
}

// NewItemEvent creates an event of the given type for an item.
func NewItemEvent(eventType string, item Item) ItemEvent {
	return ItemEvent{
		Type: eventType,
		Item: item,
	}
}
