package main

import (
	"testing"

	"github.com/modfoundry/caravan/pkg/caravan/preset"
)

func TestParseSelections(t *testing.T) {
	tests := []struct {
		name    string
		input   []string
		want    []preset.Selection
		wantErr bool
	}{
		{
			name:  "empty",
			input: nil,
			want:  []preset.Selection{},
		},
		{
			name:  "plain ids",
			input: []string{"0", "3"},
			want: []preset.Selection{
				{SourceID: 0},
				{SourceID: 3},
			},
		},
		{
			name:  "id with rename",
			input: []string{"2=PvP build"},
			want: []preset.Selection{
				{SourceID: 2, Name: "PvP build"},
			},
		},
		{
			name:  "rename keeps equals sign in name",
			input: []string{"1=a=b"},
			want: []preset.Selection{
				{SourceID: 1, Name: "a=b"},
			},
		},
		{
			name:    "non-numeric id",
			input:   []string{"first"},
			wantErr: true,
		},
		{
			name:    "missing id",
			input:   []string{"=name"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseSelections(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("parseSelections(%v) expected error, got %v", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseSelections(%v) unexpected error: %v", tt.input, err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("parseSelections(%v) = %v, want %v", tt.input, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("selection %d = %+v, want %+v", i, got[i], tt.want[i])
				}
			}
		})
	}
}
