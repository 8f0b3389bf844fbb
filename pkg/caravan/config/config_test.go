package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testHost(t *testing.T) StaticHost {
	t.Helper()
	return StaticHost{
		Profile:  filepath.Join(t.TempDir(), "profile"),
		LocalLow: filepath.Join(t.TempDir(), "locallow"),
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	host := testHost(t)
	cfg, err := LoadWithHost(host)
	require.NoError(t, err)

	assert.Equal(t, host.Profile, cfg.Game.ProfileDir)
	assert.Equal(t, host.LocalLow, cfg.Game.LocalLowDir)
	assert.Equal(t, DefaultSaveDataDir, cfg.Game.SaveDataDir)
	assert.Equal(t, DefaultMagic, cfg.Archive.Magic)
	assert.Equal(t, DefaultLegacyMagic, cfg.Archive.LegacyMagic)
	assert.Equal(t, DefaultExtension, cfg.Archive.Extension)
	assert.Equal(t, DefaultPresetExtension, cfg.Presets.Extension)
	assert.Equal(t, DefaultMigrationInclude, cfg.Migration.Include)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.NotEmpty(t, cfg.Release.AssetPatterns["steam"])
}

func TestLoadFromFile(t *testing.T) {
	configHome := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", configHome)

	dir := filepath.Join(configHome, AppName)
	require.NoError(t, os.MkdirAll(dir, 0o755))

	yaml := `
game:
  profile_dir: /custom/profile
  savedata_dir: Saves
archive:
  magic: TESTMAG1
logging:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	cfg, err := LoadWithHost(testHost(t))
	require.NoError(t, err)

	assert.Equal(t, "/custom/profile", cfg.Game.ProfileDir)
	assert.Equal(t, "Saves", cfg.Game.SaveDataDir)
	assert.Equal(t, "TESTMAG1", cfg.Archive.Magic)
	assert.Equal(t, "debug", cfg.Logging.Level)
	// Untouched keys keep their defaults.
	assert.Equal(t, DefaultLegacyMagic, cfg.Archive.LegacyMagic)
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("CARAVAN_GAME_SAVEDATA_DIR", "EnvSaves")

	cfg, err := LoadWithHost(testHost(t))
	require.NoError(t, err)

	assert.Equal(t, "EnvSaves", cfg.Game.SaveDataDir)
}

func TestDerivedPaths(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	host := testHost(t)
	cfg, err := LoadWithHost(host)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(host.Profile, "SaveData"), cfg.SaveDataPath())
	assert.Equal(t, filepath.Join(host.LocalLow, DefaultLocalLowScope), cfg.LocalLowScopePath())
	assert.Contains(t, cfg.MigrationsDir(), "migrations")
	assert.Contains(t, cfg.PreservedDir(), "preserved_save_data")
}

func TestMigrationOutputDirOverride(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("CARAVAN_MIGRATION_OUTPUT_DIR", "/exports")

	cfg, err := LoadWithHost(testHost(t))
	require.NoError(t, err)

	assert.Equal(t, "/exports", cfg.MigrationsDir())
}

func TestWriteDefault(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	require.NoError(t, WriteDefault())

	dir, err := ConfigDir()
	require.NoError(t, err)
	data, err := os.ReadFile(filepath.Join(dir, "config.yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "profile_dir")

	// Second call must not overwrite an existing file.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("# custom"), 0o644))
	require.NoError(t, WriteDefault())
	data, err = os.ReadFile(filepath.Join(dir, "config.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "# custom", string(data))
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	got, err := ExpandPath("~/archives")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "archives"), got)

	got, err = ExpandPath("/absolute/path")
	require.NoError(t, err)
	assert.Equal(t, "/absolute/path", got)
}
