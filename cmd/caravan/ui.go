package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/modfoundry/caravan/pkg/caravan/progress"
)

// Color constants using the ANSI 256-color palette.
const (
	colorPrimary = lipgloss.Color("39")
	colorSuccess = lipgloss.Color("42")
	colorDanger  = lipgloss.Color("196")
	colorMuted   = lipgloss.Color("245")
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(colorPrimary)
	labelStyle   = lipgloss.NewStyle().Foreground(colorMuted)
	successStyle = lipgloss.NewStyle().Foreground(colorSuccess)
	dangerStyle  = lipgloss.NewStyle().Foreground(colorDanger)
)

// printField prints an aligned label/value pair.
func printField(label, format string, args ...interface{}) {
	if getQuiet() {
		return
	}
	fmt.Printf("  %s %s\n", labelStyle.Render(fmt.Sprintf("%-12s", label+":")), fmt.Sprintf(format, args...))
}

// printSuccess prints a completion line.
func printSuccess(format string, args ...interface{}) {
	if !getQuiet() {
		fmt.Println(successStyle.Render(fmt.Sprintf(format, args...)))
	}
}

// stageLabels maps progress stages to the line shown for each.
var stageLabels = map[progress.Stage]string{
	progress.StageResolving:   "Resolving release",
	progress.StageDownloading: "Downloading",
	progress.StageExtracting:  "Extracting",
	progress.StagePatchers:    "Syncing patchers",
	progress.StageRestoring:   "Restoring save data",
}

// consoleProgress renders install progress to stderr, one updating line
// per run. It stays silent under --quiet and --json.
func consoleProgress() progress.Emitter {
	if getQuiet() || getJSON() {
		return progress.Nop()
	}

	var lastLen int
	return progress.Func(func(e progress.Event) {
		switch e.Stage {
		case progress.StageComplete:
			fmt.Fprintf(os.Stderr, "\r%*s\r", lastLen, "")
			return
		case progress.StageFailed:
			fmt.Fprintf(os.Stderr, "\r%*s\r%s\n", lastLen, "", dangerStyle.Render("Install failed"))
			return
		}

		label := stageLabels[e.Stage]
		line := fmt.Sprintf("%s  %3d%%", label, e.Percent)
		switch {
		case e.Stage == progress.StageDownloading && e.HasTotal:
			line += fmt.Sprintf("  %s / %s", humanize.IBytes(e.Downloaded), humanize.IBytes(e.Total))
		case e.Stage == progress.StageDownloading && e.Downloaded > 0:
			line += fmt.Sprintf("  %s", humanize.IBytes(e.Downloaded))
		case e.Stage == progress.StageExtracting && e.Entries > 0:
			line += fmt.Sprintf("  %d/%d files", e.Current, e.Entries)
		}

		pad := lastLen - len(line)
		if pad < 0 {
			pad = 0
		}
		fmt.Fprintf(os.Stderr, "\r%s%*s", line, pad, "")
		lastLen = len(line)
	})
}
