package main

import (
	"testing"
)

func TestInitLogger(t *testing.T) {
	tests := []struct {
		name    string
		level   string
		wantErr bool
	}{
		{"debug level", "debug", false},
		{"info level", "info", false},
		{"warn level", "warn", false},
		{"error level", "error", false},
		{"invalid level defaults to info", "invalid", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Act
			logger, err := initLogger(tt.level)

			// Assert
			if tt.wantErr {
				if err == nil {
					t.Error("initLogger() expected error, got nil")
				}
				return
			}

			if err != nil {
				t.Fatalf("initLogger() error = %v", err)
			}
			if logger == nil {
				t.Error("initLogger() returned nil logger")
			}
		})
	}
}
