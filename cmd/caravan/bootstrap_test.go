package main

import (
	"testing"

	"github.com/modfoundry/caravan/pkg/caravan/config"
	"github.com/modfoundry/caravan/pkg/caravan/logging"
)

func TestParseRotationConfig(t *testing.T) {
	tests := []struct {
		name     string
		input    config.RotationConfig
		expected logging.RotationConfig
	}{
		{
			name: "default values",
			input: config.RotationConfig{
				MaxSize:    "10MB",
				MaxAge:     30,
				MaxBackups: 5,
				Daily:      true,
			},
			expected: logging.RotationConfig{
				MaxSize:    10 * 1000 * 1000,
				MaxAge:     30,
				MaxBackups: 5,
				Daily:      true,
			},
		},
		{
			name: "binary size suffix",
			input: config.RotationConfig{
				MaxSize:    "1GiB",
				MaxAge:     7,
				MaxBackups: 3,
			},
			expected: logging.RotationConfig{
				MaxSize:    1024 * 1024 * 1024,
				MaxAge:     7,
				MaxBackups: 3,
			},
		},
		{
			name: "empty size leaves default",
			input: config.RotationConfig{
				MaxAge: 14,
			},
			expected: logging.RotationConfig{
				MaxAge: 14,
			},
		},
		{
			name: "malformed size leaves default",
			input: config.RotationConfig{
				MaxSize: "lots",
			},
			expected: logging.RotationConfig{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseRotationConfig(tt.input)
			if got != tt.expected {
				t.Errorf("parseRotationConfig(%+v) = %+v, want %+v", tt.input, got, tt.expected)
			}
		})
	}
}
