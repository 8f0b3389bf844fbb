// Package config loads the application configuration from file and
// environment and resolves the platform directories every other package
// works against. The loaded *Config is passed explicitly to the packages
// that need it; there is no package-level configuration state.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/spf13/viper"
)

// GameConfig locates the managed profile and the engine data it owns.
type GameConfig struct {
	// ProfileDir overrides the platform default profile location.
	ProfileDir string `mapstructure:"profile_dir"`

	// LocalLowDir overrides the platform default engine data root.
	LocalLowDir string `mapstructure:"locallow_dir"`

	// LocalLowScope is the subdirectory under LocalLowDir that belongs
	// to this game and may be migrated.
	LocalLowScope string `mapstructure:"locallow_scope"`

	// SaveDataDir is the save data directory relative to the profile.
	SaveDataDir string `mapstructure:"savedata_dir"`

	// ExeMarker is the file whose presence identifies a game install.
	ExeMarker string `mapstructure:"exe_marker"`

	// RequiredFiles must exist in an extracted release before it is
	// promoted into the profile.
	RequiredFiles []string `mapstructure:"required_files"`
}

// MigrationConfig controls what a migration archive carries.
type MigrationConfig struct {
	// Include holds regexes matched against forward-slash profile
	// relative paths.
	Include []string `mapstructure:"include"`

	// OutputDir is where export writes archives when no explicit path
	// is given. Empty means <data dir>/migrations.
	OutputDir string `mapstructure:"output_dir"`
}

// ArchiveConfig names the container format dialect.
type ArchiveConfig struct {
	Magic           string `mapstructure:"magic"`
	LegacyMagic     string `mapstructure:"legacy_magic"`
	Extension       string `mapstructure:"extension"`
	LegacyExtension string `mapstructure:"legacy_extension"`
}

// PresetConfig controls preset archive import and export.
type PresetConfig struct {
	Extension   string `mapstructure:"extension"`
	ArchiveRoot string `mapstructure:"archive_root"`
}

// ReleaseConfig locates mod releases and optional patcher downloads.
type ReleaseConfig struct {
	APIBase             string            `mapstructure:"api_base"`
	Owner               string            `mapstructure:"owner"`
	Repo                string            `mapstructure:"repo"`
	AssetPatterns       map[string]string `mapstructure:"asset_patterns"`
	PatcherManifestURL  string            `mapstructure:"patcher_manifest_url"`
	PatcherBaseURL      string            `mapstructure:"patcher_base_url"`
	SafePatcherPattern  string            `mapstructure:"safe_patcher_pattern"`
	ConnectTimeoutSecs  int               `mapstructure:"connect_timeout_secs"`
	DownloadTimeoutSecs int               `mapstructure:"download_timeout_secs"`
}

// RotationConfig configures log file rotation.
type RotationConfig struct {
	MaxSize    string `mapstructure:"max_size"`
	MaxAge     int    `mapstructure:"max_age"`
	MaxBackups int    `mapstructure:"max_backups"`
	Daily      bool   `mapstructure:"daily"`
}

// LoggingConfig configures application logging.
type LoggingConfig struct {
	Level      string            `mapstructure:"level"`
	Path       string            `mapstructure:"path"`
	Rotation   RotationConfig    `mapstructure:"rotation"`
	Components map[string]string `mapstructure:"components"`
}

// Config is the full application configuration.
type Config struct {
	Game      GameConfig      `mapstructure:"game"`
	Migration MigrationConfig `mapstructure:"migration"`
	Archive   ArchiveConfig   `mapstructure:"archive"`
	Presets   PresetConfig    `mapstructure:"presets"`
	Release   ReleaseConfig   `mapstructure:"release"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// Load loads configuration from file and environment variables using the
// platform default host.
//
// Config file locations (in order of precedence):
//   - $XDG_CONFIG_HOME/caravan/config.yaml
//   - $HOME/.config/caravan/config.yaml
//
// Environment variables are prefixed with CARAVAN_ (e.g.
// CARAVAN_GAME_PROFILE_DIR).
func Load() (*Config, error) {
	return load(DefaultHost{}, "")
}

// LoadFile is Load with an explicit config file instead of the search
// paths.
func LoadFile(path string) (*Config, error) {
	return load(DefaultHost{}, path)
}

// LoadWithHost is Load with an explicit Host for directory resolution.
func LoadWithHost(host Host) (*Config, error) {
	return load(host, "")
}

func load(host Host, file string) (*Config, error) {
	v := viper.New()

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get user home directory: %w", err)
	}

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")

		if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
			v.AddConfigPath(filepath.Join(xdgConfigHome, AppName))
		}
		v.AddConfigPath(filepath.Join(homeDir, ".config", AppName))
	}

	v.SetEnvPrefix("CARAVAN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// No config file is fine; defaults apply.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.resolve(host, homeDir); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("game.profile_dir", "")
	v.SetDefault("game.locallow_dir", "")
	v.SetDefault("game.locallow_scope", DefaultLocalLowScope)
	v.SetDefault("game.savedata_dir", DefaultSaveDataDir)
	v.SetDefault("game.exe_marker", DefaultExeMarker)
	v.SetDefault("game.required_files", DefaultRequiredFiles)

	v.SetDefault("migration.include", DefaultMigrationInclude)
	v.SetDefault("migration.output_dir", "")

	v.SetDefault("archive.magic", DefaultMagic)
	v.SetDefault("archive.legacy_magic", DefaultLegacyMagic)
	v.SetDefault("archive.extension", DefaultExtension)
	v.SetDefault("archive.legacy_extension", DefaultLegacyExtension)

	v.SetDefault("presets.extension", DefaultPresetExtension)
	v.SetDefault("presets.archive_root", DefaultPresetArchiveRoot)

	v.SetDefault("release.api_base", DefaultReleaseAPIBase)
	v.SetDefault("release.owner", DefaultReleaseOwner)
	v.SetDefault("release.repo", DefaultReleaseRepo)
	v.SetDefault("release.asset_patterns", DefaultAssetPatterns)
	v.SetDefault("release.patcher_manifest_url", "")
	v.SetDefault("release.patcher_base_url", "")
	v.SetDefault("release.safe_patcher_pattern", DefaultSafePatcherPattern)
	v.SetDefault("release.connect_timeout_secs", DefaultConnectTimeoutSecs)
	v.SetDefault("release.download_timeout_secs", DefaultDownloadTimeoutSecs)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.path", "")
	v.SetDefault("logging.rotation.max_size", "10MB")
	v.SetDefault("logging.rotation.max_age", 30)
	v.SetDefault("logging.rotation.max_backups", 5)
	v.SetDefault("logging.rotation.daily", true)
	v.SetDefault("logging.components", map[string]string{
		"migrate": "info",
		"preset":  "info",
		"install": "info",
		"staging": "info",
	})
}

// resolve fills empty directory settings from the host and expands ~.
func (c *Config) resolve(host Host, homeDir string) error {
	var err error

	if c.Game.ProfileDir == "" {
		c.Game.ProfileDir, err = host.ProfileDir()
		if err != nil {
			return fmt.Errorf("resolving profile directory: %w", err)
		}
	}
	if c.Game.LocalLowDir == "" {
		c.Game.LocalLowDir, err = host.LocalLowDir()
		if err != nil {
			return fmt.Errorf("resolving engine data directory: %w", err)
		}
	}

	for _, p := range []*string{&c.Game.ProfileDir, &c.Game.LocalLowDir, &c.Migration.OutputDir, &c.Logging.Path} {
		if strings.HasPrefix(*p, "~") {
			*p = filepath.Join(homeDir, (*p)[1:])
		}
	}

	return nil
}

// SaveDataPath is the absolute save data directory inside the profile.
func (c *Config) SaveDataPath() string {
	return filepath.Join(c.Game.ProfileDir, filepath.FromSlash(c.Game.SaveDataDir))
}

// LocalLowScopePath is the absolute engine data subtree migrations own.
func (c *Config) LocalLowScopePath() string {
	return filepath.Join(c.Game.LocalLowDir, filepath.FromSlash(c.Game.LocalLowScope))
}

// MigrationsDir is where export writes archives by default.
func (c *Config) MigrationsDir() string {
	if c.Migration.OutputDir != "" {
		return c.Migration.OutputDir
	}
	return filepath.Join(DataDir(), "migrations")
}

// PreservedDir holds save data kept across an uninstall.
func (c *Config) PreservedDir() string {
	return filepath.Join(DataDir(), "preserved_save_data")
}

// DownloadCacheDir holds previously downloaded release assets.
func (c *Config) DownloadCacheDir() string {
	return filepath.Join(xdg.CacheHome, AppName, "downloads")
}

// ImportBackupsDir holds the per-import backups taken before a migration
// import mutates the profile.
func (c *Config) ImportBackupsDir() string {
	return filepath.Join(DataDir(), "migration-import-backups")
}

// ConfigDir returns the configuration directory path.
func ConfigDir() (string, error) {
	if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
		return filepath.Join(xdgConfigHome, AppName), nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(homeDir, ".config", AppName), nil
}

// DataDir returns $XDG_DATA_HOME/caravan/ for migrations, backups, and
// preserved save data.
func DataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// StateDir returns $XDG_STATE_HOME/caravan/ for log files.
func StateDir() string {
	return filepath.Join(xdg.StateHome, AppName)
}

// DefaultLogPath returns the default log file path.
func DefaultLogPath() string {
	return filepath.Join(StateDir(), AppName+".log")
}

// EnsureDataDir creates the data directory if it doesn't exist.
func EnsureDataDir() error {
	if err := os.MkdirAll(DataDir(), 0o755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}
	return nil
}

// EnsureConfigDir creates the config directory if it doesn't exist.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	return nil
}

// WriteDefault writes a default config file if none exists.
// Returns nil if a config file already exists.
func WriteDefault() error {
	if err := EnsureConfigDir(); err != nil {
		return err
	}

	configDir, err := ConfigDir()
	if err != nil {
		return err
	}

	configPath := filepath.Join(configDir, "config.yaml")

	if _, err := os.Stat(configPath); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("failed to check config file: %w", err)
	}

	defaultConfig := fmt.Sprintf(`# Caravan configuration

# Game profile locations. Empty values use the platform defaults.
game:
  profile_dir: ""
  locallow_dir: ""
  locallow_scope: %s
  savedata_dir: %s
  exe_marker: %s

# What a migration archive carries, as regexes over profile-relative paths.
migration:
  include:
    - "^SaveData/"
    - "^Settings\\.json$"
    - "^CustomKeybinds\\.json$"
  output_dir: ""

# Container format identification.
archive:
  magic: %s
  legacy_magic: %s
  extension: %s
  legacy_extension: %s

# Preset archives.
presets:
  extension: %s
  archive_root: %s

# Release source.
release:
  owner: %s
  repo: %s

# Logging configuration
logging:
  # Log level: debug, info, warn, error
  level: info
  # Log file path (empty means use default: $XDG_STATE_HOME/caravan/caravan.log)
  path: ""
  rotation:
    max_size: 10MB
    max_age: 30       # days
    max_backups: 5
    daily: true
`, DefaultLocalLowScope, DefaultSaveDataDir, DefaultExeMarker,
		DefaultMagic, DefaultLegacyMagic, DefaultExtension, DefaultLegacyExtension,
		DefaultPresetExtension, DefaultPresetArchiveRoot,
		DefaultReleaseOwner, DefaultReleaseRepo)

	if err := os.WriteFile(configPath, []byte(defaultConfig), 0o644); err != nil {
		return fmt.Errorf("failed to write default config: %w", err)
	}

	return nil
}

// ExpandPath expands ~ in a path to the user's home directory.
func ExpandPath(path string) (string, error) {
	if !strings.HasPrefix(path, "~") {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(homeDir, path[1:]), nil
}
