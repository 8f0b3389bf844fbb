package install

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modfoundry/caravan/pkg/caravan/preset"
)

// fakeGameDir lays out another installation with save data and one
// preset.
func fakeGameDir(t *testing.T, inst *Installer) string {
	t.Helper()

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "Game.exe"), "exe")

	saveData := filepath.Join(dir, "SaveData")
	writeFile(t, filepath.Join(saveData, "slot0.sav"), "save")

	store := preset.NewStore(saveData, inst.cfg.Presets.Extension, inst.cfg.Presets.ArchiveRoot)
	opts := preset.NewOptionsData()
	opts.Names[0] = "Casual"
	require.NoError(t, os.WriteFile(store.OptionsPath(), opts.Encode(), 0o644))
	require.NoError(t, os.WriteFile(store.DataFilePath(0), []byte("payload"), 0o644))

	return dir
}

func TestPreviewSaveData(t *testing.T) {
	cfg := testConfig(t)
	inst := newInstaller(t, cfg)
	gameDir := fakeGameDir(t, inst)

	preview, err := inst.PreviewSaveData(gameDir)
	require.NoError(t, err)

	assert.Equal(t, 3, preview.Files)
	require.Len(t, preview.Presets, 1)
	assert.Equal(t, "Casual", preview.Presets[0].Name)
}

func TestPreviewSaveDataRejectsNonGameDir(t *testing.T) {
	cfg := testConfig(t)
	inst := newInstaller(t, cfg)

	_, err := inst.PreviewSaveData(t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Game.exe")
}

func TestPreviewSaveDataRequiresSaveData(t *testing.T) {
	cfg := testConfig(t)
	inst := newInstaller(t, cfg)

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "Game.exe"), "exe")

	_, err := inst.PreviewSaveData(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SaveData")
}

func TestImportSaveDataReplacesProfileSaveData(t *testing.T) {
	cfg := testConfig(t)
	inst := newInstaller(t, cfg)
	gameDir := fakeGameDir(t, inst)

	// Existing save data that the import must replace wholesale.
	writeFile(t, filepath.Join(cfg.SaveDataPath(), "old.sav"), "old")

	n, err := inst.ImportSaveData(gameDir)
	require.NoError(t, err)

	assert.Equal(t, 3, n)
	assert.FileExists(t, filepath.Join(cfg.SaveDataPath(), "slot0.sav"))
	assert.NoFileExists(t, filepath.Join(cfg.SaveDataPath(), "old.sav"))
}

func TestMergePresetsKeepsExistingSaveData(t *testing.T) {
	cfg := testConfig(t)
	inst := newInstaller(t, cfg)
	gameDir := fakeGameDir(t, inst)

	writeFile(t, filepath.Join(cfg.SaveDataPath(), "old.sav"), "old")

	dst := preset.NewStore(cfg.SaveDataPath(), cfg.Presets.Extension, cfg.Presets.ArchiveRoot)
	opts := preset.NewOptionsData()
	opts.Names[0] = "Casual"
	require.NoError(t, os.WriteFile(dst.OptionsPath(), opts.Encode(), 0o644))
	require.NoError(t, os.WriteFile(dst.DataFilePath(0), []byte("mine"), 0o644))

	n, err := inst.MergePresets(gameDir)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// Unrelated save data survives a merge.
	assert.FileExists(t, filepath.Join(cfg.SaveDataPath(), "old.sav"))

	entries, err := dst.List()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "Casual", entries[0].Name)
	assert.Equal(t, "Casual (2)", entries[1].Name)
}
