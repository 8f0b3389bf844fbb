package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/modfoundry/caravan/pkg/caravan/container"
	"github.com/modfoundry/caravan/pkg/caravan/migrate"
)

var validatePassword string

var validateCmd = &cobra.Command{
	Use:   "validate <archive>",
	Short: "Check a migration archive without applying it",
	Long: `Validate opens a migration archive, checks the password on encrypted
archives, and verifies every entry decompresses cleanly. Nothing on
disk is touched.`,
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

func init() {
	validateCmd.Flags().StringVarP(&validatePassword, "password", "p", "", "password for encrypted archives")
	rootCmd.AddCommand(validateCmd)
}

func runValidate(_ *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	m, err := migrate.New(cfg)
	if err != nil {
		return err
	}

	encrypted, err := m.ValidatePassword(args[0], validatePassword)
	if err != nil {
		if errors.Is(err, container.ErrDecrypt) {
			if validatePassword == "" {
				return fmt.Errorf("archive is encrypted, pass the password with --password")
			}
			return fmt.Errorf("wrong password or corrupted archive")
		}
		return err
	}

	if getJSON() {
		return printJSON(map[string]interface{}{"valid": true, "encrypted": encrypted})
	}

	printSuccess("Archive is valid")
	printField("Encrypted", "%t", encrypted)
	return nil
}
