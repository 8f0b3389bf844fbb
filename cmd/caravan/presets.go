package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/modfoundry/caravan/pkg/caravan/config"
	"github.com/modfoundry/caravan/pkg/caravan/preset"
)

var presetsCmd = &cobra.Command{
	Use:   "presets",
	Short: "Manage preset configurations",
	Long: `Presets are named option configurations stored in the game's save
data. They can be exported as portable archives and imported into
another installation, where they are assigned fresh slots so nothing
already there is overwritten.`,
}

var presetsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List presets in the profile",
	RunE:  runPresetsList,
}

var presetsExportOutput string

var presetsExportCmd = &cobra.Command{
	Use:   "export <id>...",
	Short: "Export presets to an archive",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runPresetsExport,
}

var presetsImportSelect []string

var presetsImportCmd = &cobra.Command{
	Use:   "import <archive>",
	Short: "Import presets from an archive",
	Long: `Import copies presets out of a preset archive into the profile.
Without --select every preset in the archive is imported. With
--select, each value is a source id, optionally with a new name:

  caravan presets import friend.cpreset --select 0 --select "2=PvP build"`,
	Args: cobra.ExactArgs(1),
	RunE: runPresetsImport,
}

var presetsInspectCmd = &cobra.Command{
	Use:   "inspect <archive>",
	Short: "Show what a preset archive holds",
	Args:  cobra.ExactArgs(1),
	RunE:  runPresetsInspect,
}

var presetsMergePreservedCmd = &cobra.Command{
	Use:   "merge-preserved",
	Short: "Merge presets kept by the last uninstall into the profile",
	RunE:  runPresetsMergePreserved,
}

func init() {
	presetsExportCmd.Flags().StringVarP(&presetsExportOutput, "output", "o", "presets", "archive output path")
	presetsImportCmd.Flags().StringArrayVarP(&presetsImportSelect, "select", "s", nil, "preset to import, as id or id=name (repeatable)")

	presetsCmd.AddCommand(presetsListCmd)
	presetsCmd.AddCommand(presetsExportCmd)
	presetsCmd.AddCommand(presetsImportCmd)
	presetsCmd.AddCommand(presetsInspectCmd)
	presetsCmd.AddCommand(presetsMergePreservedCmd)
	rootCmd.AddCommand(presetsCmd)
}

// profileStore opens the preset store inside the configured profile.
func profileStore() (*preset.Store, *config.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	return preset.NewStore(cfg.SaveDataPath(), cfg.Presets.Extension, cfg.Presets.ArchiveRoot), cfg, nil
}

func printPresetEntries(entries []preset.Entry) {
	for _, e := range entries {
		marker := ""
		if !e.HasDataFile {
			marker = labelStyle.Render("  (no data file)")
		}
		printInfo("  %3d  %s%s", e.ID, preset.DisplayName(e.ID, e.Name), marker)
	}
}

func runPresetsList(_ *cobra.Command, _ []string) error {
	store, _, err := profileStore()
	if err != nil {
		return err
	}

	entries, err := store.List()
	if err != nil {
		return err
	}

	if getJSON() {
		return printJSON(entries)
	}
	if len(entries) == 0 {
		printInfo("No presets found")
		return nil
	}

	printInfo("%s", titleStyle.Render(fmt.Sprintf("Presets (%d)", len(entries))))
	printPresetEntries(entries)
	return nil
}

func runPresetsExport(_ *cobra.Command, args []string) error {
	store, _, err := profileStore()
	if err != nil {
		return err
	}

	ids := make([]int32, 0, len(args))
	for _, arg := range args {
		id, err := strconv.ParseInt(arg, 10, 32)
		if err != nil {
			return fmt.Errorf("invalid preset id %q", arg)
		}
		ids = append(ids, int32(id))
	}

	path, err := store.ExportSelected(ids, presetsExportOutput)
	if err != nil {
		return err
	}

	if getJSON() {
		return printJSON(map[string]interface{}{"path": path, "presets": len(ids)})
	}
	printSuccess("Exported %d preset(s) to %s", len(ids), path)
	return nil
}

// parseSelections parses --select values of the form "id" or "id=name".
func parseSelections(values []string) ([]preset.Selection, error) {
	selections := make([]preset.Selection, 0, len(values))
	for _, v := range values {
		idPart, name, _ := strings.Cut(v, "=")
		id, err := strconv.ParseInt(strings.TrimSpace(idPart), 10, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid selection %q, want id or id=name", v)
		}
		selections = append(selections, preset.Selection{SourceID: int32(id), Name: name})
	}
	return selections, nil
}

func runPresetsImport(_ *cobra.Command, args []string) error {
	store, _, err := profileStore()
	if err != nil {
		return err
	}

	selections, err := parseSelections(presetsImportSelect)
	if err != nil {
		return err
	}

	imported, err := store.ImportFromArchive(args[0], selections)
	if err != nil {
		return err
	}

	if getJSON() {
		return printJSON(imported)
	}

	printSuccess("Imported %d preset(s)", len(imported))
	printPresetEntries(imported)
	return nil
}

func runPresetsInspect(_ *cobra.Command, args []string) error {
	store, _, err := profileStore()
	if err != nil {
		return err
	}

	entries, err := store.InspectArchive(args[0])
	if err != nil {
		return err
	}

	if getJSON() {
		return printJSON(entries)
	}

	printInfo("%s", titleStyle.Render(fmt.Sprintf("%s (%d presets)", args[0], len(entries))))
	printPresetEntries(entries)
	return nil
}

func runPresetsMergePreserved(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	inst, err := newInstallerFromConfig(cfg)
	if err != nil {
		return err
	}

	n, err := inst.MergePreservedPresets()
	if err != nil {
		return err
	}

	if getJSON() {
		return printJSON(map[string]interface{}{"merged": n})
	}
	printSuccess("Merged %d preserved preset(s)", n)
	return nil
}
