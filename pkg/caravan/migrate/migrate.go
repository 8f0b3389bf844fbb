// Package migrate builds and applies migration archives: a container
// wrapped zip carrying the profile files worth keeping plus the game
// engine's own data subtree, moved between machines in one file.
package migrate

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/charlievieth/fastwalk"

	"github.com/modfoundry/caravan/pkg/caravan/config"
	"github.com/modfoundry/caravan/pkg/caravan/container"
	"github.com/modfoundry/caravan/pkg/caravan/fsutil"
	"github.com/modfoundry/caravan/pkg/caravan/logging"
)

// Archive entry prefixes.
const (
	profilePrefix = "profile/"
	enginePrefix  = "locallow/"
)

var (
	// ErrNothingToExport is returned when no profile or engine files
	// match the migration rules.
	ErrNothingToExport = errors.New("no files to migrate")

	// ErrNothingToImport is returned when an archive holds no entries
	// this installation accepts.
	ErrNothingToImport = errors.New("archive contains no importable files")
)

// Rules is the compiled allowlist of profile-relative paths a migration
// carries.
type Rules struct {
	include []*regexp.Regexp
}

// CompileRules compiles the configured include patterns.
func CompileRules(patterns []string) (*Rules, error) {
	r := &Rules{include: make([]*regexp.Regexp, 0, len(patterns))}
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("compiling migration pattern %q: %w", p, err)
		}
		r.include = append(r.include, re)
	}
	return r, nil
}

// MatchProfile reports whether a forward-slash profile-relative path is
// carried by migrations.
func (r *Rules) MatchProfile(rel string) bool {
	for _, re := range r.include {
		if re.MatchString(rel) {
			return true
		}
	}
	return false
}

// Migrator runs migration exports and imports against one configuration.
type Migrator struct {
	cfg    *config.Config
	rules  *Rules
	format container.Format
	log    *logging.Logger
}

// New compiles the configured rules into a Migrator.
func New(cfg *config.Config) (*Migrator, error) {
	rules, err := CompileRules(cfg.Migration.Include)
	if err != nil {
		return nil, err
	}
	return &Migrator{
		cfg:   cfg,
		rules: rules,
		format: container.Format{
			Magic:       cfg.Archive.Magic,
			LegacyMagic: cfg.Archive.LegacyMagic,
		},
		log: logging.Get("migrate"),
	}, nil
}

// Rules exposes the compiled allowlist for callers that preserve save
// data outside a migration.
func (m *Migrator) Rules() *Rules { return m.rules }

// ProfileFile is one profile file matched by the migration rules.
type ProfileFile struct {
	Abs string
	Rel string // forward-slash, relative to the profile directory
}

// MatchedProfileFiles lists the profile files a migration would carry,
// for callers that preserve save data through other paths.
func (m *Migrator) MatchedProfileFiles() ([]ProfileFile, error) {
	refs, err := m.collectProfileFiles()
	if err != nil {
		return nil, err
	}
	files := make([]ProfileFile, len(refs))
	for i, r := range refs {
		files[i] = ProfileFile{Abs: r.abs, Rel: r.rel}
	}
	return files, nil
}

// checkExtension accepts the configured and the legacy archive
// extension, case-insensitively.
func (m *Migrator) checkExtension(path string) error {
	ext := filepath.Ext(path)
	if strings.EqualFold(ext, m.cfg.Archive.Extension) || strings.EqualFold(ext, m.cfg.Archive.LegacyExtension) {
		return nil
	}
	return fmt.Errorf("unsupported archive extension %q", ext)
}

// fileRef is one file selected for export.
type fileRef struct {
	abs string
	rel string // forward-slash, relative to its root
}

// collectProfileFiles walks the profile directory and keeps the files
// the rules allow.
func (m *Migrator) collectProfileFiles() ([]fileRef, error) {
	return collectMatching(m.cfg.Game.ProfileDir, m.rules.MatchProfile)
}

// collectEngineFiles takes the whole scoped engine data subtree.
func (m *Migrator) collectEngineFiles() ([]fileRef, error) {
	return collectMatching(m.cfg.LocalLowScopePath(), func(string) bool { return true })
}

func collectMatching(root string, match func(rel string) bool) ([]fileRef, error) {
	if !fsutil.Exists(root) {
		return nil, nil
	}

	var (
		mu    sync.Mutex
		files []fileRef
	)

	conf := fastwalk.Config{Follow: false}
	err := fastwalk.Walk(&conf, root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if !match(rel) {
			return nil
		}

		mu.Lock()
		files = append(files, fileRef{abs: path, rel: rel})
		mu.Unlock()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", root, err)
	}
	return files, nil
}
