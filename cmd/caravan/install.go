package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/modfoundry/caravan/pkg/caravan/config"
	"github.com/modfoundry/caravan/pkg/caravan/install"
)

var (
	installTag      string
	installPlatform string
	installRestore  bool
)

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Install or update the mod",
	Long: `Install downloads a mod release and installs it into the game
profile. The release extracts into a staging directory first and only
replaces the current installation once every required file is present,
so a failed download or a broken release leaves the existing
installation untouched.

Downloaded releases are cached; reinstalling the same version works
offline.`,
	RunE: runInstall,
}

func init() {
	installCmd.Flags().StringVarP(&installTag, "tag", "t", "", "release tag (default: latest)")
	installCmd.Flags().StringVarP(&installPlatform, "platform", "P", "steam", "game platform (steam, epic)")
	installCmd.Flags().BoolVarP(&installRestore, "restore-preserved", "r", false, "restore save data preserved by a previous uninstall")
	rootCmd.AddCommand(installCmd)
}

// newInstallerFromConfig builds the installer shared by the install,
// uninstall, and save data commands.
func newInstallerFromConfig(cfg *config.Config) (*install.Installer, error) {
	return install.New(cfg)
}

func runInstall(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	inst, err := newInstallerFromConfig(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	res, err := inst.Install(ctx, install.Options{
		Tag:              installTag,
		Platform:         installPlatform,
		RestorePreserved: installRestore,
	}, consoleProgress())
	if err != nil {
		if errors.Is(err, install.ErrUnreachable) {
			return fmt.Errorf("release server unreachable, check your connection or use a cached version")
		}
		return err
	}

	if getJSON() {
		return printJSON(res)
	}

	printSuccess("Installed %s", res.Tag)
	printField("Platform", "%s", res.Platform)
	printField("Path", "%s", res.Path)
	if res.Restored > 0 {
		printField("Restored", "%d preserved files", res.Restored)
	}
	return nil
}
