package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/modfoundry/caravan/pkg/caravan/migrate"
)

var (
	exportEncrypt  bool
	exportPassword string
)

var exportCmd = &cobra.Command{
	Use:   "export [output]",
	Short: "Export save data and settings to a migration archive",
	Long: `Export collects the profile files worth carrying to another machine
(save data, settings, keybinds) together with the engine-level data the
game keeps outside the profile, and packs them into a single archive.

Without an output path the archive is written to the migrations
directory with a timestamped name. With --encrypt the archive payload
is sealed with the given password and can only be opened with it.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runExport,
}

func init() {
	exportCmd.Flags().BoolVarP(&exportEncrypt, "encrypt", "E", false, "encrypt the archive with a password")
	exportCmd.Flags().StringVarP(&exportPassword, "password", "p", "", "password for --encrypt")
	rootCmd.AddCommand(exportCmd)
}

func runExport(_ *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	m, err := migrate.New(cfg)
	if err != nil {
		return err
	}

	opts := migrate.ExportOptions{
		Encrypt:  exportEncrypt,
		Password: exportPassword,
	}
	if len(args) > 0 {
		opts.OutputPath = args[0]
	}

	res, err := m.Export(opts)
	if err != nil {
		if errors.Is(err, migrate.ErrNothingToExport) {
			printInfo("Nothing to export: no save data or settings found in %s", cfg.Game.ProfileDir)
			return nil
		}
		return err
	}

	if getJSON() {
		return printJSON(res)
	}

	printSuccess("Migration archive written")
	printField("Archive", "%s", res.Path)
	printField("Profile", "%d files", res.ProfileFiles)
	printField("Engine", "%d files", res.EngineFiles)
	printField("Encrypted", "%t", res.Encrypted)
	return nil
}
