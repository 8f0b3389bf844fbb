package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input   string
		want    Level
		wantErr bool
	}{
		{"debug", LevelDebug, false},
		{"info", LevelInfo, false},
		{"warn", LevelWarn, false},
		{"warning", LevelWarn, false},
		{"error", LevelError, false},
		{"ERROR", LevelError, false},
		{"verbose", LevelInfo, true},
		{"", LevelInfo, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseLevel(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidLevel)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLevelString(t *testing.T) {
	assert.Equal(t, "debug", LevelDebug.String())
	assert.Equal(t, "info", LevelInfo.String())
	assert.Equal(t, "warn", LevelWarn.String())
	assert.Equal(t, "error", LevelError.String())
}

func TestGetBeforeInitIsSilent(t *testing.T) {
	logger := Get("uninitialized-component")
	require.NotNil(t, logger)

	// Must not panic.
	logger.Info("discarded")
	logger.With("k", "v").Debug("also discarded")
}

func TestInitWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.log")

	err := Init(Config{Level: "debug", Path: path})
	require.NoError(t, err)
	defer func() { require.NoError(t, Close()) }()

	Get("migrate").Info("export finished", "files", 3)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "export finished")
	assert.Contains(t, string(data), "migrate")
}

func TestComponentLevelOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.log")

	err := Init(Config{
		Level:      "info",
		Path:       path,
		Components: map[string]string{"staging": "error"},
	})
	require.NoError(t, err)
	defer func() { require.NoError(t, Close()) }()

	Get("staging").Info("suppressed")
	Get("staging").Error("reported")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "suppressed")
	assert.Contains(t, string(data), "reported")
}

func TestInitRejectsBadLevel(t *testing.T) {
	err := Init(Config{Level: "loud", Path: filepath.Join(t.TempDir(), "x.log")})
	assert.ErrorIs(t, err, ErrInvalidLevel)
}

func TestCloseIdempotent(t *testing.T) {
	require.NoError(t, Close())
	require.NoError(t, Close())
}

func TestWithAddsContext(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.log")

	require.NoError(t, Init(Config{Level: "info", Path: path}))
	defer func() { require.NoError(t, Close()) }()

	Get("install").With("tag", "v1.2.3").Info("resolved")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), "v1.2.3"))
}
