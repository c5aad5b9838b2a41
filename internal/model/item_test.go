package model

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestItem_Validate(t *testing.T) {
	tests := []struct {
		name    string
		item    Item
		wantErr error
	}{
		{
			name:    "valid item",
			item:    Item{Name: "Widget", Price: 9.99},
			wantErr: nil,
		},
		{
			name:    "valid item with zero price",
			item:    Item{Name: "Free Item"},
			wantErr: nil,
		},
		{
			name:    "empty name",
			item:    Item{Price: 1.0},
			wantErr: ErrEmptyName,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Act
			err := tt.item.Validate()

			// Assert
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestItem_JSONShape(t *testing.T) {
	// Arrange
	item := Item{ID: 1, Name: "Widget", Price: 9.99}

	// Act
	data, err := json.Marshal(item)

	// Assert
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	want := `{"id":1,"name":"Widget","price":9.99}`
	if string(data) != want {
		t.Errorf("Marshal() = %s, want %s", data, want)
	}
}

func TestNewErrorResponse(t *testing.T) {
	// Act
	resp := NewErrorResponse("Invalid ID")

	// Assert
	if resp.Error != "Invalid ID" {
		t.Errorf("Error = %s, want Invalid ID", resp.Error)
	}

	data, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if string(data) != `{"error":"Invalid ID"}` {
		t.Errorf("Marshal() = %s, want {\"error\":\"Invalid ID\"}", data)
	}
}

func TestNewMessageResponse(t *testing.T) {
	// Act
	resp := NewMessageResponse("Item deleted")

	// Assert
	if resp.Message != "Item deleted" {
		t.Errorf("Message = %s, want Item deleted", resp.Message)
	}
}

func TestNewItemEvent(t *testing.T) {
	// Arrange
	item := Item{ID: 5, Name: "Gadget", Price: 1.25}

	// Act
	event := NewItemEvent(EventItemCreated, item)

	// Assert
	if event.Type != EventItemCreated {
		t.Errorf("Type = %s, want %s", event.Type, EventItemCreated)
	}
	if event.Item != item {
		t.Errorf("Item = %+v, want %+v", event.Item, item)
	}
}
