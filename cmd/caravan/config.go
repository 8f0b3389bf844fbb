package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/modfoundry/caravan/pkg/caravan/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long: `Manage caravan configuration settings.

Configuration is loaded from:
  1. $XDG_CONFIG_HOME/caravan/config.yaml (if set)
  2. ~/.config/caravan/config.yaml

Environment variables can override config file settings using the
CARAVAN_ prefix:
  CARAVAN_GAME_PROFILE_DIR=/path/to/profile
  CARAVAN_LOGGING_LEVEL=debug`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  `Display the current configuration settings from all sources.`,
	RunE:  runConfigShow,
}

var configEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Edit configuration file",
	Long: `Open the configuration file in your default editor.

The editor is determined by:
  1. $VISUAL environment variable
  2. $EDITOR environment variable
  3. Falls back to 'vi'

If the config file doesn't exist, a default one will be created first.`,
	RunE: runConfigEdit,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create default configuration file",
	Long:  `Create a default configuration file if one doesn't exist.`,
	RunE:  runConfigInit,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show configuration file path",
	Long:  `Display the path to the configuration file.`,
	RunE:  runConfigPath,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configEditCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathCmd)
	rootCmd.AddCommand(configCmd)
}

// runConfigShow displays the current configuration.
func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if getJSON() {
		return printJSON(cfg)
	}

	fmt.Println("Current Configuration:")
	fmt.Println("----------------------")
	fmt.Printf("game.profile_dir:        %s\n", cfg.Game.ProfileDir)
	fmt.Printf("game.locallow_dir:       %s\n", cfg.Game.LocalLowDir)
	fmt.Printf("game.locallow_scope:     %s\n", cfg.Game.LocalLowScope)
	fmt.Printf("game.savedata_dir:       %s\n", cfg.Game.SaveDataDir)
	fmt.Printf("migration.include:       %v\n", cfg.Migration.Include)
	fmt.Printf("migration.output_dir:    %s\n", cfg.MigrationsDir())
	fmt.Printf("archive.extension:       %s\n", cfg.Archive.Extension)
	fmt.Printf("presets.extension:       %s\n", cfg.Presets.Extension)
	fmt.Printf("release.owner/repo:      %s/%s\n", cfg.Release.Owner, cfg.Release.Repo)
	fmt.Printf("logging.level:           %s\n", cfg.Logging.Level)

	// Show any environment overrides
	fmt.Println("\nEnvironment Overrides:")
	fmt.Println("----------------------")
	anyOverrides := false
	for _, env := range os.Environ() {
		if strings.HasPrefix(env, "CARAVAN_") {
			fmt.Println(env)
			anyOverrides = true
		}
	}
	if !anyOverrides {
		fmt.Println("(none)")
	}

	return nil
}

// runConfigEdit opens the config file in an editor.
func runConfigEdit(cmd *cobra.Command, args []string) error {
	if err := config.WriteDefault(); err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}

	configDir, err := config.ConfigDir()
	if err != nil {
		return fmt.Errorf("failed to get config directory: %w", err)
	}
	configPath := filepath.Join(configDir, "config.yaml")

	editor := os.Getenv("VISUAL")
	if editor == "" {
		editor = os.Getenv("EDITOR")
	}
	if editor == "" {
		editor = "vi"
	}

	editorCmd := exec.Command(editor, configPath)
	editorCmd.Stdin = os.Stdin
	editorCmd.Stdout = os.Stdout
	editorCmd.Stderr = os.Stderr

	if err := editorCmd.Run(); err != nil {
		return fmt.Errorf("editor command failed: %w", err)
	}

	return nil
}

// runConfigInit creates a default config file.
func runConfigInit(cmd *cobra.Command, args []string) error {
	configDir, err := config.ConfigDir()
	if err != nil {
		return fmt.Errorf("failed to get config directory: %w", err)
	}
	configPath := filepath.Join(configDir, "config.yaml")

	if _, err := os.Stat(configPath); err == nil {
		printInfo("Config file already exists: %s", configPath)
		printInfo("Use 'caravan config edit' to modify it.")
		return nil
	}

	if err := config.WriteDefault(); err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}

	printInfo("Created default config file: %s", configPath)
	return nil
}

// runConfigPath shows the config file path.
func runConfigPath(cmd *cobra.Command, args []string) error {
	configDir, err := config.ConfigDir()
	if err != nil {
		return fmt.Errorf("failed to get config directory: %w", err)
	}
	fmt.Println(filepath.Join(configDir, "config.yaml"))
	return nil
}
