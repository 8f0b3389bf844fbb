package install

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/modfoundry/caravan/pkg/caravan/config"
	"github.com/modfoundry/caravan/pkg/caravan/fsutil"
	"github.com/modfoundry/caravan/pkg/caravan/logging"
	"github.com/modfoundry/caravan/pkg/caravan/migrate"
	"github.com/modfoundry/caravan/pkg/caravan/progress"
	"github.com/modfoundry/caravan/pkg/caravan/staging"
	"github.com/modfoundry/caravan/pkg/caravan/zipio"
)

// Progress percentages at stage boundaries. Download fills 0-80,
// extraction 80-98, patchers 98-99, preserved restore 99-100.
const (
	pctDownloaded = 80
	pctExtracted  = 98
	pctPatchers   = 99
	pctDone       = 100
)

// Installer installs, uninstalls, and manages save data for one
// configured game profile.
type Installer struct {
	cfg         *config.Config
	client      *Client
	mig         *migrate.Migrator
	safePatcher *regexp.Regexp
	log         *logging.Logger
}

// New builds an Installer from the configuration.
func New(cfg *config.Config) (*Installer, error) {
	mig, err := migrate.New(cfg)
	if err != nil {
		return nil, err
	}

	pattern := cfg.Release.SafePatcherPattern
	if pattern == "" {
		pattern = config.DefaultSafePatcherPattern
	}
	safePatcher, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("compiling patcher name pattern: %w", err)
	}

	return &Installer{
		cfg:         cfg,
		client:      NewClient(cfg.Release),
		mig:         mig,
		safePatcher: safePatcher,
		log:         logging.Get("install"),
	}, nil
}

// Client exposes the release client for listing commands.
func (i *Installer) Client() *Client { return i.client }

// Options controls an install.
type Options struct {
	// Tag selects a release; empty means the latest.
	Tag string

	// Platform picks the release asset (e.g. "steam", "epic").
	Platform string

	// RestorePreserved copies save data preserved by a previous
	// uninstall into the new installation.
	RestorePreserved bool
}

// Result summarizes a finished install.
type Result struct {
	Tag      string
	Platform string
	Path     string
	Restored int
}

// Install resolves, downloads, and installs a release into the profile.
// The profile is only replaced after the new tree extracts and validates
// completely; a failure at any point leaves the previous installation in
// place.
func (i *Installer) Install(ctx context.Context, opts Options, emit progress.Emitter) (*Result, error) {
	if emit == nil {
		emit = progress.Nop()
	}

	res, err := i.install(ctx, opts, emit)
	if err != nil {
		emit.Emit(progress.Event{Stage: progress.StageFailed, Message: err.Error()})
		return nil, err
	}

	emit.Emit(progress.Event{Stage: progress.StageComplete, Percent: pctDone, Message: res.Tag})
	return res, nil
}

func (i *Installer) install(ctx context.Context, opts Options, emit progress.Emitter) (*Result, error) {
	emit.Emit(progress.Event{Stage: progress.StageResolving, Message: opts.Tag})

	var (
		rel *Release
		err error
	)
	if opts.Tag == "" {
		rel, err = i.client.Latest(ctx)
	} else {
		rel, err = i.client.ByTag(ctx, opts.Tag)
	}
	if err != nil {
		return nil, err
	}

	asset, err := i.client.AssetFor(rel, opts.Platform)
	if err != nil {
		return nil, err
	}

	archivePath, err := i.fetchAsset(ctx, rel, asset, opts.Platform, emit)
	if err != nil {
		return nil, err
	}

	zipBytes, err := os.ReadFile(archivePath)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", archivePath, err)
	}

	restored := 0
	populate := func(stagingDir string) error {
		_, err := zipio.Unpack(zipBytes, stagingDir, func(current, total int) {
			pct := pctDownloaded
			if total > 0 {
				pct += (pctExtracted - pctDownloaded) * current / total
			}
			emit.Emit(progress.Event{
				Stage:   progress.StageExtracting,
				Percent: pct,
				Current: current,
				Entries: total,
			})
		})
		if err != nil {
			return err
		}

		emit.Emit(progress.Event{Stage: progress.StagePatchers, Percent: pctExtracted})
		i.syncPatchers(ctx, stagingDir)

		if opts.RestorePreserved {
			emit.Emit(progress.Event{Stage: progress.StageRestoring, Percent: pctPatchers})
			restored, err = i.restorePreserved(stagingDir)
			if err != nil {
				return err
			}
		}
		return nil
	}

	validate := func(stagingDir string) error {
		for _, required := range i.cfg.Game.RequiredFiles {
			path := filepath.Join(stagingDir, filepath.FromSlash(required))
			if !fsutil.Exists(path) {
				return fmt.Errorf("required file %s missing from release", required)
			}
		}
		return nil
	}

	if err := staging.Run(i.cfg.Game.ProfileDir, populate, validate); err != nil {
		return nil, err
	}

	i.log.Info("release installed",
		"tag", rel.TagName,
		"platform", opts.Platform,
		"path", i.cfg.Game.ProfileDir,
		"restored", restored)

	return &Result{
		Tag:      rel.TagName,
		Platform: opts.Platform,
		Path:     i.cfg.Game.ProfileDir,
		Restored: restored,
	}, nil
}

// fetchAsset downloads the release asset, reusing a cached copy when one
// exists from an earlier run.
func (i *Installer) fetchAsset(ctx context.Context, rel *Release, asset *Asset, platform string, emit progress.Emitter) (string, error) {
	cachePath := filepath.Join(i.cfg.DownloadCacheDir(), rel.TagName, platform+".zip")

	if fsutil.Exists(cachePath) {
		i.log.Debug("using cached release asset", "path", cachePath)
		emit.Emit(progress.Event{Stage: progress.StageDownloading, Percent: pctDownloaded})
		return cachePath, nil
	}

	onChunk := func(downloaded, total uint64, hasTotal bool) {
		pct := 0
		if hasTotal && total > 0 {
			pct = int(uint64(pctDownloaded) * downloaded / total)
		}
		emit.Emit(progress.Event{
			Stage:      progress.StageDownloading,
			Percent:    pct,
			Downloaded: downloaded,
			Total:      total,
			HasTotal:   hasTotal,
		})
	}

	if err := i.client.Download(ctx, asset.BrowserDownloadURL, cachePath, onChunk); err != nil {
		return "", err
	}
	return cachePath, nil
}

// restorePreserved copies preserved save data into the staged tree.
func (i *Installer) restorePreserved(stagingDir string) (int, error) {
	preserved := i.cfg.PreservedDir()
	if !fsutil.Exists(preserved) {
		return 0, nil
	}

	n, err := fsutil.CopyTree(preserved, stagingDir)
	if err != nil {
		return 0, fmt.Errorf("restoring preserved save data: %w", err)
	}
	return n, nil
}
