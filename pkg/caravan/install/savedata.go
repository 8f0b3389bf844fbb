package install

import (
	"fmt"
	"path/filepath"

	"github.com/modfoundry/caravan/pkg/caravan/fsutil"
	"github.com/modfoundry/caravan/pkg/caravan/preset"
	"github.com/modfoundry/caravan/pkg/caravan/staging"
)

// SaveDataPreview describes what an ImportSaveData would bring over.
type SaveDataPreview struct {
	Files   int
	Presets []preset.Entry
}

// validateGameDir checks that dir is a game installation with save data
// and returns its save data path.
func (i *Installer) validateGameDir(dir string) (string, error) {
	marker := filepath.Join(dir, filepath.FromSlash(i.cfg.Game.ExeMarker))
	if !fsutil.Exists(marker) {
		return "", fmt.Errorf("%s does not look like a game installation (missing %s)", dir, i.cfg.Game.ExeMarker)
	}

	saveData := filepath.Join(dir, filepath.FromSlash(i.cfg.Game.SaveDataDir))
	if !fsutil.Exists(saveData) {
		return "", fmt.Errorf("%s has no %s directory", dir, i.cfg.Game.SaveDataDir)
	}
	return saveData, nil
}

// PreviewSaveData reports what another game installation's save data
// holds without mutating anything.
func (i *Installer) PreviewSaveData(gameDir string) (*SaveDataPreview, error) {
	src, err := i.validateGameDir(gameDir)
	if err != nil {
		return nil, err
	}

	files, err := fsutil.CountFiles(src)
	if err != nil {
		return nil, err
	}

	store := preset.NewStore(src, i.cfg.Presets.Extension, i.cfg.Presets.ArchiveRoot)
	entries, err := store.List()
	if err != nil {
		return nil, err
	}

	return &SaveDataPreview{Files: files, Presets: entries}, nil
}

// ImportSaveData replaces the profile's save data with a copy of
// another game installation's, through the staged protocol. It returns
// the number of files brought over.
func (i *Installer) ImportSaveData(gameDir string) (int, error) {
	src, err := i.validateGameDir(gameDir)
	if err != nil {
		return 0, err
	}

	copied := 0
	err = staging.Run(i.cfg.SaveDataPath(), func(stagingDir string) error {
		copied, err = fsutil.CopyTree(src, stagingDir)
		return err
	}, nil)
	if err != nil {
		return 0, err
	}

	i.log.Info("save data imported", "source", src, "files", copied)
	return copied, nil
}

// MergePresets imports the presets from another game installation into
// the profile's registry without touching the rest of its save data.
func (i *Installer) MergePresets(gameDir string) (int, error) {
	src, err := i.validateGameDir(gameDir)
	if err != nil {
		return 0, err
	}

	store := preset.NewStore(i.cfg.SaveDataPath(), i.cfg.Presets.Extension, i.cfg.Presets.ArchiveRoot)
	return store.ImportFromDir(src)
}
