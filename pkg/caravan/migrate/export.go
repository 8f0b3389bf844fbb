package migrate

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/modfoundry/caravan/pkg/caravan/container"
	"github.com/modfoundry/caravan/pkg/caravan/zipio"
)

// ExportOptions controls a migration export.
type ExportOptions struct {
	// OutputPath is where the archive is written. Empty picks a
	// timestamped name under the configured migrations directory.
	OutputPath string

	// Encrypt wraps the archive payload with password-derived
	// encryption. Password must be non-empty when set.
	Encrypt  bool
	Password string
}

// ExportResult summarizes a finished export.
type ExportResult struct {
	Path         string
	ProfileFiles int
	EngineFiles  int
	Encrypted    bool
}

// Export collects the migratable files, packs them, wraps them in the
// container format, and writes the archive.
func (m *Migrator) Export(opts ExportOptions) (*ExportResult, error) {
	if opts.Encrypt && opts.Password == "" {
		return nil, container.ErrEmptyPassword
	}

	profile, err := m.collectProfileFiles()
	if err != nil {
		return nil, err
	}
	engine, err := m.collectEngineFiles()
	if err != nil {
		return nil, err
	}
	if len(profile) == 0 && len(engine) == 0 {
		return nil, ErrNothingToExport
	}

	entries := make([]zipio.Entry, 0, len(profile)+len(engine))
	for _, f := range profile {
		entries = append(entries, zipio.Entry{Name: profilePrefix + f.rel, Path: f.abs})
	}
	for _, f := range engine {
		entries = append(entries, zipio.Entry{Name: enginePrefix + f.rel, Path: f.abs})
	}

	zipBytes, err := zipio.PackBytes(entries)
	if err != nil {
		return nil, err
	}

	var sealed []byte
	if opts.Encrypt {
		sealed, err = m.format.SealWithPassword(zipBytes, opts.Password)
		if err != nil {
			return nil, err
		}
	} else {
		sealed = m.format.Seal(zipBytes)
	}

	outPath, err := m.resolveOutputPath(opts.OutputPath)
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(outPath, sealed, 0o644); err != nil {
		return nil, fmt.Errorf("writing %s: %w", outPath, err)
	}

	m.log.Info("migration exported",
		"path", outPath,
		"profile_files", len(profile),
		"engine_files", len(engine),
		"encrypted", opts.Encrypt)

	return &ExportResult{
		Path:         outPath,
		ProfileFiles: len(profile),
		EngineFiles:  len(engine),
		Encrypted:    opts.Encrypt,
	}, nil
}

// resolveOutputPath applies the default location and enforces the
// configured extension. It creates the parent directory.
func (m *Migrator) resolveOutputPath(outPath string) (string, error) {
	if outPath == "" {
		name := fmt.Sprintf("caravan-migration-%s%s",
			time.Now().Format("20060102-150405"), m.cfg.Archive.Extension)
		outPath = filepath.Join(m.cfg.MigrationsDir(), name)
	} else if m.checkExtension(outPath) != nil {
		outPath += m.cfg.Archive.Extension
	}

	dir := filepath.Dir(outPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating %s: %w", dir, err)
	}
	return outPath, nil
}
