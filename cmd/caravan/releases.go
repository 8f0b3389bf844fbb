package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var releasesCmd = &cobra.Command{
	Use:   "releases",
	Short: "List published mod releases",
	RunE:  runReleases,
}

func init() {
	rootCmd.AddCommand(releasesCmd)
}

func runReleases(_ *cobra.Command, _ []string) error {
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

	releases, err := inst.Client().Releases(ctx)
	if err != nil {
		return err
	}

	if getJSON() {
		return printJSON(releases)
	}
	if len(releases) == 0 {
		printInfo("No releases published")
		return nil
	}

	printInfo("%s", titleStyle.Render(fmt.Sprintf("Releases (%d)", len(releases))))
	for i, r := range releases {
		tag := r.TagName
		if i == 0 {
			tag += labelStyle.Render("  (latest)")
		}
		when := ""
		if !r.PublishedAt.IsZero() {
			when = labelStyle.Render("  " + humanize.Time(r.PublishedAt))
		}
		printInfo("  %s%s", tag, when)
	}
	return nil
}
