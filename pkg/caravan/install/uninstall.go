package install

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/modfoundry/caravan/pkg/caravan/fsutil"
	"github.com/modfoundry/caravan/pkg/caravan/preset"
	"github.com/modfoundry/caravan/pkg/caravan/staging"
)

// UninstallResult summarizes a finished uninstall.
type UninstallResult struct {
	Path           string
	Removed        bool
	PreservedFiles int
}

// Uninstall resets the profile directory. With preserveSaveData the
// files a migration would carry are copied aside first and can be
// restored by a later install or merged into a new profile.
func (i *Installer) Uninstall(preserveSaveData bool) (*UninstallResult, error) {
	preservedDir := i.cfg.PreservedDir()

	// Each uninstall owns the preserved set; earlier leftovers go.
	if err := os.RemoveAll(preservedDir); err != nil {
		return nil, fmt.Errorf("clearing %s: %w", preservedDir, err)
	}

	count := 0
	if preserveSaveData {
		if err := os.MkdirAll(preservedDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating %s: %w", preservedDir, err)
		}

		files, err := i.mig.MatchedProfileFiles()
		if err != nil {
			return nil, err
		}
		for _, f := range files {
			if err := fsutil.CopyFile(f.Abs, filepath.Join(preservedDir, filepath.FromSlash(f.Rel))); err != nil {
				return nil, fmt.Errorf("preserving %s: %w", f.Rel, err)
			}
			count++
		}
	}

	removed := fsutil.Exists(i.cfg.Game.ProfileDir)

	// Promote an empty tree over the profile so a failed reset cannot
	// leave it half-deleted.
	err := staging.Run(i.cfg.Game.ProfileDir, func(string) error { return nil }, nil)
	if err != nil {
		return nil, err
	}

	i.log.Info("profile uninstalled",
		"path", i.cfg.Game.ProfileDir,
		"preserved", count)

	return &UninstallResult{
		Path:           i.cfg.Game.ProfileDir,
		Removed:        removed,
		PreservedFiles: count,
	}, nil
}

// PreservedStatus reports whether preserved save data from an earlier
// uninstall is available, and how many files it holds.
func (i *Installer) PreservedStatus() (bool, int, error) {
	n, err := fsutil.CountFiles(i.cfg.PreservedDir())
	if err != nil {
		return false, 0, err
	}
	return n > 0, n, nil
}

// MergePreservedPresets imports the presets from the preserved save
// data into the current profile instead of overwriting it.
func (i *Installer) MergePreservedPresets() (int, error) {
	src := filepath.Join(i.cfg.PreservedDir(), filepath.FromSlash(i.cfg.Game.SaveDataDir))
	if !fsutil.Exists(src) {
		return 0, fmt.Errorf("no preserved save data to merge")
	}

	store := preset.NewStore(i.cfg.SaveDataPath(), i.cfg.Presets.Extension, i.cfg.Presets.ArchiveRoot)
	return store.ImportFromDir(src)
}
