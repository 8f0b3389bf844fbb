package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/modfoundry/caravan/pkg/caravan/config"
	"github.com/modfoundry/caravan/pkg/caravan/logging"
)

var (
	cfgFile string
	rootCmd = &cobra.Command{
		Use:   "caravan",
		Short: "Manage game mod installs, presets, and save data migrations",
		Long: `Caravan installs and updates the game mod, moves save data between
machines through encrypted migration archives, and shares preset
configurations as portable archive files.

Every operation that replaces files on disk stages the new state next to
the target and promotes it in one step, so a failure never leaves a
half-written installation behind.

Examples:
  caravan install                    # Install the latest mod release
  caravan export -E backup           # Export save data, encrypted
  caravan import backup.caravan      # Apply a migration archive
  caravan presets list               # List presets in the profile
  caravan savedata import ~/OldGame  # Copy save data from another install`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

func init() {
	cobra.OnInitialize(initLogging)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.config/caravan/config.yaml)")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "output JSON format")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "minimal output")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "debug output")

	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("quiet", rootCmd.PersistentFlags().Lookup("quiet"))
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

// loadConfig loads the configuration, honoring the --config flag.
func loadConfig() (*config.Config, error) {
	if cfgFile != "" {
		return config.LoadFile(cfgFile)
	}
	return config.Load()
}

// initLogging wires the file logger before any command runs. Console
// output stays off unless --verbose asks for it.
func initLogging() {
	cfg, err := loadConfig()
	if err != nil {
		// Commands report the load failure themselves.
		return
	}

	logCfg := logging.Config{
		Level:      cfg.Logging.Level,
		Path:       cfg.Logging.Path,
		Rotation:   parseRotationConfig(cfg.Logging.Rotation),
		Components: cfg.Logging.Components,
	}
	if getVerbose() {
		logCfg.Level = "debug"
		logCfg.ConsoleLevel = "debug"
	}

	if err := logging.Init(logCfg); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: logging unavailable: %v\n", err)
	}
}

// Execute runs the root command.
func Execute() error {
	defer func() { _ = logging.Close() }()

	err := rootCmd.Execute()
	if err != nil {
		printError("%v", err)
	}
	return err
}

// getJSON returns true if JSON output is requested.
func getJSON() bool {
	return viper.GetBool("json")
}

// getVerbose returns true if verbose mode is enabled.
func getVerbose() bool {
	return viper.GetBool("verbose")
}

// getQuiet returns true if quiet mode is enabled.
func getQuiet() bool {
	return viper.GetBool("quiet")
}

// printInfo prints a message if quiet mode is not enabled.
func printInfo(format string, args ...interface{}) {
	if !getQuiet() {
		fmt.Printf(format+"\n", args...)
	}
}

// printError prints an error message to stderr.
func printError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
}

// printJSON writes v as indented JSON to stdout.
func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
