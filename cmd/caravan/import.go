package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/modfoundry/caravan/pkg/caravan/container"
	"github.com/modfoundry/caravan/pkg/caravan/migrate"
)

var importPassword string

var importCmd = &cobra.Command{
	Use:   "import <archive>",
	Short: "Apply a migration archive to this installation",
	Long: `Import unpacks a migration archive into the profile and engine data
locations. The current state of every file about to be replaced is
backed up first; if applying the archive fails partway, the backup is
restored and the installation is left as it was.

Encrypted archives need the password they were exported with.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	importCmd.Flags().StringVarP(&importPassword, "password", "p", "", "password for encrypted archives")
	rootCmd.AddCommand(importCmd)
}

func runImport(_ *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	m, err := migrate.New(cfg)
	if err != nil {
		return err
	}

	res, err := m.Import(args[0], importPassword)
	if err != nil {
		if errors.Is(err, container.ErrDecrypt) && importPassword == "" {
			return fmt.Errorf("archive is encrypted, pass the password with --password")
		}
		if errors.Is(err, migrate.ErrNothingToImport) {
			return fmt.Errorf("archive %s holds no migratable files", args[0])
		}
		return err
	}

	if getJSON() {
		return printJSON(res)
	}

	printSuccess("Migration archive applied")
	printField("Profile", "%d files", res.ProfileFiles)
	printField("Engine", "%d files", res.EngineFiles)
	printField("Encrypted", "%t", res.Encrypted)
	return nil
}
