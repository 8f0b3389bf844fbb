package main

import (
	"github.com/spf13/cobra"
)

var uninstallPreserve bool

var uninstallCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "Remove the mod and reset the profile",
	Long: `Uninstall resets the game profile to an empty state. By default the
save data and settings a migration would carry are preserved first;
a later "caravan install --restore-preserved" brings them back, and
"caravan presets merge-preserved" merges just the presets into a new
profile.

Use --preserve=false to drop everything, including earlier preserved
data.`,
	RunE: runUninstall,
}

func init() {
	uninstallCmd.Flags().BoolVar(&uninstallPreserve, "preserve", true, "preserve save data for a later install")
	rootCmd.AddCommand(uninstallCmd)
}

func runUninstall(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	inst, err := newInstallerFromConfig(cfg)
	if err != nil {
		return err
	}

	res, err := inst.Uninstall(uninstallPreserve)
	if err != nil {
		return err
	}

	if getJSON() {
		return printJSON(res)
	}

	if res.Removed {
		printSuccess("Profile reset")
	} else {
		printInfo("Nothing was installed at %s", res.Path)
	}
	if res.PreservedFiles > 0 {
		printField("Preserved", "%d files", res.PreservedFiles)
	}
	return nil
}
