package preset

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(filepath.Join(t.TempDir(), "SaveData"), ".cpreset", "SaveData")
}

func seedStore(t *testing.T, s *Store, opts *OptionsData, dataIDs ...int32) {
	t.Helper()
	require.NoError(t, s.save(opts))
	for _, id := range dataIDs {
		require.NoError(t, s.writeDataFile(id, []byte("data for preset")))
	}
}

func TestLoadMissingRegistry(t *testing.T) {
	s := newTestStore(t)

	opts, err := s.Load()
	require.NoError(t, err)
	assert.Empty(t, opts.Names)
	assert.Equal(t, uint8(1), opts.Version)
}

func TestLoadMalformedRegistry(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, os.MkdirAll(s.dir, 0o755))
	require.NoError(t, os.WriteFile(s.OptionsPath(), []byte{1, 2}, 0o644))

	_, err := s.Load()
	require.Error(t, err)
}

func TestListMergesRegistryAndDisk(t *testing.T) {
	s := newTestStore(t)
	seedStore(t, s, &OptionsData{
		Version:       1,
		CurrentPreset: 0,
		Names:         map[int32]string{0: "Casual", 2: "No data"},
	}, 0, 5)

	entries, err := s.List()
	require.NoError(t, err)

	require.Len(t, entries, 3)
	assert.Equal(t, Entry{ID: 0, Name: "Casual", HasDataFile: true}, entries[0])
	assert.Equal(t, Entry{ID: 2, Name: "No data", HasDataFile: false}, entries[1])
	// Data file with no registry row gets the positional default name.
	assert.Equal(t, Entry{ID: 5, Name: "Preset 6", HasDataFile: true}, entries[2])
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "Custom", DisplayName(0, "Custom"))
	assert.Equal(t, "Preset 1", DisplayName(0, ""))
	assert.Equal(t, "Preset 8", DisplayName(7, "   "))
}

func TestParseDataFileName(t *testing.T) {
	tests := []struct {
		name string
		id   int32
		ok   bool
	}{
		{"PresetOptions_0.data", 0, true},
		{"PresetOptions_42.data", 42, true},
		{"PresetOptions_-1.data", 0, false},
		{"PresetOptions_x.data", 0, false},
		{"Options.data", 0, false},
		{"PresetOptions_7.bak", 0, false},
	}

	for _, tt := range tests {
		id, ok := parseDataFileName(tt.name)
		assert.Equal(t, tt.ok, ok, tt.name)
		if tt.ok {
			assert.Equal(t, tt.id, id, tt.name)
		}
	}
}

func TestNextIDSpansRegistryAndDisk(t *testing.T) {
	opts := &OptionsData{Names: map[int32]string{0: "a", 3: "b"}}
	assert.Equal(t, int32(4), nextID(opts, nil))
	assert.Equal(t, int32(8), nextID(opts, []int32{7}))
	assert.Equal(t, int32(0), nextID(NewOptionsData(), nil))
}

func TestUniqueName(t *testing.T) {
	used := map[string]struct{}{"casual": {}, "casual (2)": {}}

	assert.Equal(t, "Speedrun", uniqueName("Speedrun", used))
	assert.Equal(t, "Casual (3)", uniqueName("Casual", used))
	// Batch-internal collision with the name just assigned.
	assert.Equal(t, "Speedrun (2)", uniqueName("Speedrun", used))
	// Collision matching is trimmed and case-insensitive.
	assert.Equal(t, "SPEEDRUN (3)", uniqueName("  SPEEDRUN", used))
}
