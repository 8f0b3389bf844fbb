package install

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/adrg/xdg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modfoundry/caravan/pkg/caravan/config"
	"github.com/modfoundry/caravan/pkg/caravan/preset"
	"github.com/modfoundry/caravan/pkg/caravan/progress"
	"github.com/modfoundry/caravan/pkg/caravan/zipio"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()

	// Keep the download cache and preserved data inside the sandbox.
	t.Setenv("XDG_DATA_HOME", t.TempDir())
	t.Setenv("XDG_CACHE_HOME", t.TempDir())
	xdg.Reload()

	cfg := &config.Config{}
	cfg.Game.ProfileDir = filepath.Join(t.TempDir(), "profile")
	cfg.Game.LocalLowDir = filepath.Join(t.TempDir(), "locallow")
	cfg.Game.LocalLowScope = "Caravan"
	cfg.Game.SaveDataDir = "SaveData"
	cfg.Game.ExeMarker = "Game.exe"
	cfg.Game.RequiredFiles = []string{"BepInEx/core/BepInEx.dll"}
	cfg.Migration.Include = []string{`^SaveData/`, `^Settings\.json$`}
	cfg.Archive = config.ArchiveConfig{
		Magic:           "CRVDATA1",
		LegacyMagic:     "SNRDATA1",
		Extension:       ".caravan",
		LegacyExtension: ".snrsave",
	}
	cfg.Presets.Extension = ".cpreset"
	cfg.Presets.ArchiveRoot = "SaveData"
	return cfg
}

func newInstaller(t *testing.T, cfg *config.Config) *Installer {
	t.Helper()
	inst, err := New(cfg)
	require.NoError(t, err)
	return inst
}

// releaseZip builds the asset a normal release would carry.
func releaseZip(t *testing.T, extra ...zipio.Entry) []byte {
	t.Helper()
	entries := append([]zipio.Entry{
		{Name: "BepInEx/core/BepInEx.dll", Data: []byte("loader")},
		{Name: "winhttp.dll", Data: []byte("proxy")},
		{Name: "doorstop_config.ini", Data: []byte("enabled=true")},
	}, extra...)
	data, err := zipio.PackBytes(entries)
	require.NoError(t, err)
	return data
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestInstallEndToEnd(t *testing.T) {
	cfg := testConfig(t)
	srv := newReleaseServer(t, releaseZip(t))
	cfg.Release = testReleaseConfig(srv.URL)

	inst := newInstaller(t, cfg)

	var events []progress.Event
	res, err := inst.Install(context.Background(), Options{Platform: "steam"}, progress.Func(func(e progress.Event) {
		events = append(events, e)
	}))
	require.NoError(t, err)

	assert.Equal(t, "v1.2.0", res.Tag)
	assert.Equal(t, cfg.Game.ProfileDir, res.Path)
	assert.Equal(t, 0, res.Restored)

	data, err := os.ReadFile(filepath.Join(cfg.Game.ProfileDir, "BepInEx", "core", "BepInEx.dll"))
	require.NoError(t, err)
	assert.Equal(t, "loader", string(data))

	require.NotEmpty(t, events)
	assert.Equal(t, progress.StageResolving, events[0].Stage)
	last := events[len(events)-1]
	assert.Equal(t, progress.StageComplete, last.Stage)
	assert.Equal(t, 100, last.Percent)
	for _, e := range events {
		if e.Stage == progress.StageExtracting {
			assert.GreaterOrEqual(t, e.Percent, 80)
			assert.LessOrEqual(t, e.Percent, 98)
		}
	}

	// The asset is cached for later installs.
	assert.FileExists(t, filepath.Join(cfg.DownloadCacheDir(), "v1.2.0", "steam.zip"))
}

func TestInstallByTag(t *testing.T) {
	cfg := testConfig(t)
	srv := newReleaseServer(t, releaseZip(t))
	cfg.Release = testReleaseConfig(srv.URL)

	inst := newInstaller(t, cfg)
	res, err := inst.Install(context.Background(), Options{Tag: "v1.1.0", Platform: "steam"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "v1.1.0", res.Tag)
}

func TestInstallUsesCachedAsset(t *testing.T) {
	cfg := testConfig(t)
	srv := newReleaseServer(t, []byte("not a zip at all"))
	cfg.Release = testReleaseConfig(srv.URL)

	// Pre-seed the cache; the broken asset endpoint must never be hit.
	cachePath := filepath.Join(cfg.DownloadCacheDir(), "v1.2.0", "steam.zip")
	require.NoError(t, os.MkdirAll(filepath.Dir(cachePath), 0o755))
	require.NoError(t, os.WriteFile(cachePath, releaseZip(t), 0o644))

	inst := newInstaller(t, cfg)
	res, err := inst.Install(context.Background(), Options{Platform: "steam"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "v1.2.0", res.Tag)
}

func TestInstallValidationFailureKeepsProfile(t *testing.T) {
	cfg := testConfig(t)
	// Asset misses the required loader file.
	broken, err := zipio.PackBytes([]zipio.Entry{
		{Name: "readme.txt", Data: []byte("nothing here")},
	})
	require.NoError(t, err)
	srv := newReleaseServer(t, broken)
	cfg.Release = testReleaseConfig(srv.URL)

	sentinel := filepath.Join(cfg.Game.ProfileDir, "Settings.json")
	writeFile(t, sentinel, `{"keep":true}`)

	inst := newInstaller(t, cfg)

	var failed bool
	_, err = inst.Install(context.Background(), Options{Platform: "steam"}, progress.Func(func(e progress.Event) {
		failed = failed || e.Stage == progress.StageFailed
	}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BepInEx/core/BepInEx.dll")
	assert.True(t, failed)

	// The previous installation is untouched.
	data, readErr := os.ReadFile(sentinel)
	require.NoError(t, readErr)
	assert.Equal(t, `{"keep":true}`, string(data))
}

func TestInstallRestoresPreserved(t *testing.T) {
	cfg := testConfig(t)
	srv := newReleaseServer(t, releaseZip(t))
	cfg.Release = testReleaseConfig(srv.URL)

	writeFile(t, filepath.Join(cfg.PreservedDir(), "SaveData", "slot0.sav"), "save")
	writeFile(t, filepath.Join(cfg.PreservedDir(), "Settings.json"), "{}")

	inst := newInstaller(t, cfg)
	res, err := inst.Install(context.Background(), Options{Platform: "steam", RestorePreserved: true}, nil)
	require.NoError(t, err)

	assert.Equal(t, 2, res.Restored)
	assert.FileExists(t, filepath.Join(cfg.Game.ProfileDir, "SaveData", "slot0.sav"))
	assert.FileExists(t, filepath.Join(cfg.Game.ProfileDir, "Settings.json"))
}

func TestInstallSyncsPatchers(t *testing.T) {
	cfg := testConfig(t)

	mux := http.NewServeMux()
	var srv *httptest.Server
	asset := releaseZip(t)
	mux.HandleFunc("/repos/modfoundry/caravan-mod/releases", func(w http.ResponseWriter, r *http.Request) {
		body := `[{"tag_name":"v1.0.0","prerelease":false,"assets":[` +
			`{"name":"mod-steam.zip","browser_download_url":"` + srv.URL + `/assets/steam.zip"}]}]`
		_, _ = w.Write([]byte(body))
	})
	mux.HandleFunc("/assets/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(asset)
	})
	mux.HandleFunc("/patchers/manifest.json", func(w http.ResponseWriter, r *http.Request) {
		// Patcher.exe: md5("patch") so the hash check passes.
		// Evil name escapes the profile and must be skipped.
		_, _ = w.Write([]byte(`{
			"windows": ["Patcher.exe", "../evil.exe", "Tampered.exe"],
			"hashes": {
				"Patcher.exe": "e5c5e6dae38b284e8cf0bd1fb0efac03",
				"Tampered.exe": "00000000000000000000000000000000"
			}
		}`))
	})
	mux.HandleFunc("/patchers/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("patch"))
	})

	srv = httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	cfg.Release = testReleaseConfig(srv.URL)
	cfg.Release.PatcherManifestURL = srv.URL + "/patchers/manifest.json"
	cfg.Release.PatcherBaseURL = srv.URL + "/patchers"
	cfg.Release.SafePatcherPattern = config.DefaultSafePatcherPattern

	inst := newInstaller(t, cfg)
	_, err := inst.Install(context.Background(), Options{Platform: "steam"}, nil)
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(cfg.Game.ProfileDir, "Patcher.exe"))
	assert.NoFileExists(t, filepath.Join(filepath.Dir(cfg.Game.ProfileDir), "evil.exe"))
	assert.NoFileExists(t, filepath.Join(cfg.Game.ProfileDir, "Tampered.exe"))
}

func TestUninstallPreservesSaveData(t *testing.T) {
	cfg := testConfig(t)
	inst := newInstaller(t, cfg)

	writeFile(t, filepath.Join(cfg.Game.ProfileDir, "SaveData", "slot0.sav"), "save")
	writeFile(t, filepath.Join(cfg.Game.ProfileDir, "Settings.json"), "{}")
	writeFile(t, filepath.Join(cfg.Game.ProfileDir, "winhttp.dll"), "proxy")

	res, err := inst.Uninstall(true)
	require.NoError(t, err)

	assert.True(t, res.Removed)
	assert.Equal(t, 2, res.PreservedFiles)
	assert.FileExists(t, filepath.Join(cfg.PreservedDir(), "SaveData", "slot0.sav"))
	assert.FileExists(t, filepath.Join(cfg.PreservedDir(), "Settings.json"))
	assert.NoFileExists(t, filepath.Join(cfg.PreservedDir(), "winhttp.dll"))

	// The profile is reset to an empty tree.
	entries, err := os.ReadDir(cfg.Game.ProfileDir)
	require.NoError(t, err)
	assert.Empty(t, entries)

	ok, n, err := inst.PreservedStatus()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 2, n)
}

func TestUninstallWithoutPreserve(t *testing.T) {
	cfg := testConfig(t)
	inst := newInstaller(t, cfg)

	writeFile(t, filepath.Join(cfg.Game.ProfileDir, "SaveData", "slot0.sav"), "save")
	writeFile(t, filepath.Join(cfg.PreservedDir(), "stale.txt"), "old")

	res, err := inst.Uninstall(false)
	require.NoError(t, err)

	assert.True(t, res.Removed)
	assert.Equal(t, 0, res.PreservedFiles)

	// An earlier preserved set does not survive a plain uninstall.
	ok, n, err := inst.PreservedStatus()
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Zero(t, n)
}

func TestUninstallMissingProfile(t *testing.T) {
	cfg := testConfig(t)
	inst := newInstaller(t, cfg)

	res, err := inst.Uninstall(false)
	require.NoError(t, err)
	assert.False(t, res.Removed)
}

func TestMergePreservedPresets(t *testing.T) {
	cfg := testConfig(t)
	inst := newInstaller(t, cfg)

	src := preset.NewStore(filepath.Join(cfg.PreservedDir(), "SaveData"), cfg.Presets.Extension, cfg.Presets.ArchiveRoot)
	require.NoError(t, os.MkdirAll(filepath.Join(cfg.PreservedDir(), "SaveData"), 0o755))
	opts := preset.NewOptionsData()
	opts.Names[0] = "Speedrun"
	require.NoError(t, os.WriteFile(src.OptionsPath(), opts.Encode(), 0o644))
	require.NoError(t, os.WriteFile(src.DataFilePath(0), []byte("payload"), 0o644))

	n, err := inst.MergePreservedPresets()
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	dst := preset.NewStore(cfg.SaveDataPath(), cfg.Presets.Extension, cfg.Presets.ArchiveRoot)
	entries, err := dst.List()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Speedrun", entries[0].Name)
}

func TestMergePreservedPresetsWithoutData(t *testing.T) {
	cfg := testConfig(t)
	inst := newInstaller(t, cfg)

	_, err := inst.MergePreservedPresets()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no preserved save data")
}
