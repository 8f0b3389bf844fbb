package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/modfoundry/caravan/pkg/caravan/config"
)

var savedataCmd = &cobra.Command{
	Use:   "savedata",
	Short: "Move save data between game installations on this machine",
	Long: `The savedata commands copy save data from another installation of the
game, identified by its directory, into the managed profile. "import"
replaces the profile's save data wholesale; "merge" only brings the
presets over and leaves everything else alone.`,
}

var savedataPreviewCmd = &cobra.Command{
	Use:   "preview <game-dir>",
	Short: "Show what another installation's save data holds",
	Args:  cobra.ExactArgs(1),
	RunE:  runSavedataPreview,
}

var savedataImportCmd = &cobra.Command{
	Use:   "import <game-dir>",
	Short: "Replace the profile's save data with another installation's",
	Args:  cobra.ExactArgs(1),
	RunE:  runSavedataImport,
}

var savedataMergeCmd = &cobra.Command{
	Use:   "merge <game-dir>",
	Short: "Merge another installation's presets into the profile",
	Args:  cobra.ExactArgs(1),
	RunE:  runSavedataMerge,
}

var savedataPreservedCmd = &cobra.Command{
	Use:   "preserved",
	Short: "Show save data preserved by the last uninstall",
	RunE:  runSavedataPreserved,
}

func init() {
	savedataCmd.AddCommand(savedataPreviewCmd)
	savedataCmd.AddCommand(savedataImportCmd)
	savedataCmd.AddCommand(savedataMergeCmd)
	savedataCmd.AddCommand(savedataPreservedCmd)
	rootCmd.AddCommand(savedataCmd)
}

func resolveGameDir(arg string) (string, error) {
	return config.ExpandPath(arg)
}

func runSavedataPreview(_ *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	inst, err := newInstallerFromConfig(cfg)
	if err != nil {
		return err
	}

	gameDir, err := resolveGameDir(args[0])
	if err != nil {
		return err
	}

	preview, err := inst.PreviewSaveData(gameDir)
	if err != nil {
		return err
	}

	if getJSON() {
		return printJSON(preview)
	}

	printInfo("%s", titleStyle.Render(fmt.Sprintf("%s save data", gameDir)))
	printField("Files", "%d", preview.Files)
	printField("Presets", "%d", len(preview.Presets))
	printPresetEntries(preview.Presets)
	return nil
}

func runSavedataImport(_ *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	inst, err := newInstallerFromConfig(cfg)
	if err != nil {
		return err
	}

	gameDir, err := resolveGameDir(args[0])
	if err != nil {
		return err
	}

	n, err := inst.ImportSaveData(gameDir)
	if err != nil {
		return err
	}

	if getJSON() {
		return printJSON(map[string]interface{}{"files": n})
	}
	printSuccess("Imported %d save data file(s)", n)
	return nil
}

func runSavedataMerge(_ *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	inst, err := newInstallerFromConfig(cfg)
	if err != nil {
		return err
	}

	gameDir, err := resolveGameDir(args[0])
	if err != nil {
		return err
	}

	n, err := inst.MergePresets(gameDir)
	if err != nil {
		return err
	}

	if getJSON() {
		return printJSON(map[string]interface{}{"merged": n})
	}
	printSuccess("Merged %d preset(s)", n)
	return nil
}

func runSavedataPreserved(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	inst, err := newInstallerFromConfig(cfg)
	if err != nil {
		return err
	}

	ok, n, err := inst.PreservedStatus()
	if err != nil {
		return err
	}

	if getJSON() {
		return printJSON(map[string]interface{}{"available": ok, "files": n})
	}
	if !ok {
		printInfo("No preserved save data")
		return nil
	}
	printInfo("Preserved save data available: %d file(s) at %s", n, cfg.PreservedDir())
	return nil
}
