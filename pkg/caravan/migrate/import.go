package migrate

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/modfoundry/caravan/pkg/caravan/fsutil"
	"github.com/modfoundry/caravan/pkg/caravan/zipio"
)

// ImportResult summarizes a finished import.
type ImportResult struct {
	ProfileFiles int
	EngineFiles  int
	Encrypted    bool
}

// plannedEntry maps one archive entry to its destination on disk.
type plannedEntry struct {
	file    *zip.File
	dest    string
	profile bool
}

// Import applies a migration archive to this installation. Before any
// destination is touched, every profile file about to be replaced and
// the whole scoped engine subtree are backed up; a failure mid-apply
// rolls both back.
func (m *Migrator) Import(archivePath, password string) (*ImportResult, error) {
	if err := m.checkExtension(archivePath); err != nil {
		return nil, err
	}

	raw, err := os.ReadFile(archivePath)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", archivePath, err)
	}

	payload, encrypted, err := m.format.Open(raw, password)
	if err != nil {
		return nil, err
	}

	zr, err := zipio.Open(payload)
	if err != nil {
		return nil, err
	}

	plan, err := m.buildPlan(zr)
	if err != nil {
		return nil, err
	}
	if len(plan) == 0 {
		return nil, ErrNothingToImport
	}

	backupRoot := filepath.Join(m.cfg.ImportBackupsDir(),
		fmt.Sprintf("import-%s-%s", time.Now().Format("20060102-150405"), uuid.NewString()[:8]))

	if err := m.backupCurrentState(plan, backupRoot); err != nil {
		_ = os.RemoveAll(backupRoot)
		return nil, err
	}

	if err := m.clearCurrentState(plan); err != nil {
		return nil, m.rollback(err, backupRoot, nil)
	}

	written, applyErr := applyPlan(plan)
	if applyErr != nil {
		return nil, m.rollback(applyErr, backupRoot, written)
	}

	if err := os.RemoveAll(backupRoot); err != nil {
		m.log.Warn("could not remove import backup", "path", backupRoot, "error", err)
	}

	result := &ImportResult{Encrypted: encrypted}
	for _, p := range plan {
		if p.profile {
			result.ProfileFiles++
		} else {
			result.EngineFiles++
		}
	}

	m.log.Info("migration imported",
		"archive", archivePath,
		"profile_files", result.ProfileFiles,
		"engine_files", result.EngineFiles)

	return result, nil
}

// buildPlan maps archive entries to destinations. Unsafe paths abort;
// entries outside the known prefixes or failing the profile rules are
// skipped silently.
func (m *Migrator) buildPlan(zr *zip.Reader) ([]plannedEntry, error) {
	var plan []plannedEntry

	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}

		clean, ok := zipio.SanitizeEntryName(f.Name)
		if !ok {
			return nil, fmt.Errorf("unsafe archive entry path %q", f.Name)
		}

		switch {
		case strings.HasPrefix(clean, profilePrefix):
			rel := clean[len(profilePrefix):]
			if !m.rules.MatchProfile(rel) {
				continue
			}
			plan = append(plan, plannedEntry{
				file:    f,
				dest:    filepath.Join(m.cfg.Game.ProfileDir, filepath.FromSlash(rel)),
				profile: true,
			})

		case strings.HasPrefix(clean, enginePrefix):
			rel := clean[len(enginePrefix):]
			plan = append(plan, plannedEntry{
				file: f,
				dest: filepath.Join(m.cfg.LocalLowScopePath(), filepath.FromSlash(rel)),
			})
		}
	}

	return plan, nil
}

// backupCurrentState copies every profile file the plan will replace and
// the whole scoped engine subtree under backupRoot.
func (m *Migrator) backupCurrentState(plan []plannedEntry, backupRoot string) error {
	for _, p := range plan {
		if !p.profile || !fsutil.Exists(p.dest) {
			continue
		}
		rel, err := filepath.Rel(m.cfg.Game.ProfileDir, p.dest)
		if err != nil {
			return err
		}
		if err := fsutil.CopyFile(p.dest, filepath.Join(backupRoot, "profile", rel)); err != nil {
			return fmt.Errorf("backing up %s: %w", p.dest, err)
		}
	}

	scope := m.cfg.LocalLowScopePath()
	if fsutil.Exists(scope) {
		if _, err := fsutil.CopyTree(scope, filepath.Join(backupRoot, "locallow")); err != nil {
			return fmt.Errorf("backing up %s: %w", scope, err)
		}
	}

	return nil
}

// clearCurrentState removes the files the plan replaces: each planned
// profile destination and the scoped engine subtree as a whole.
func (m *Migrator) clearCurrentState(plan []plannedEntry) error {
	for _, p := range plan {
		if !p.profile {
			continue
		}
		if err := os.Remove(p.dest); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("removing %s: %w", p.dest, err)
		}
	}

	touchesEngine := false
	for _, p := range plan {
		if !p.profile {
			touchesEngine = true
			break
		}
	}
	if touchesEngine {
		if err := os.RemoveAll(m.cfg.LocalLowScopePath()); err != nil {
			return fmt.Errorf("removing %s: %w", m.cfg.LocalLowScopePath(), err)
		}
	}

	return nil
}

// applyPlan writes planned entries and returns the paths written so far,
// whether it succeeds or not.
func applyPlan(plan []plannedEntry) ([]string, error) {
	var written []string

	for _, p := range plan {
		if err := os.MkdirAll(filepath.Dir(p.dest), 0o755); err != nil {
			return written, fmt.Errorf("creating %s: %w", filepath.Dir(p.dest), err)
		}

		rc, err := p.file.Open()
		if err != nil {
			return written, fmt.Errorf("opening archive entry %s: %w", p.file.Name, err)
		}

		out, err := os.Create(p.dest)
		if err != nil {
			_ = rc.Close()
			return written, fmt.Errorf("creating %s: %w", p.dest, err)
		}

		_, copyErr := io.Copy(out, rc)
		closeErr := out.Close()
		_ = rc.Close()

		written = append(written, p.dest)
		if copyErr != nil {
			return written, fmt.Errorf("writing %s: %w", p.dest, copyErr)
		}
		if closeErr != nil {
			return written, fmt.Errorf("closing %s: %w", p.dest, closeErr)
		}
	}

	return written, nil
}

// rollback undoes a failed import: files written by the attempt are
// removed and the backups are copied back. When the restore itself fails
// the backup is kept and the returned error names its location for
// manual recovery.
func (m *Migrator) rollback(cause error, backupRoot string, written []string) error {
	for _, path := range written {
		_ = os.Remove(path)
	}

	if restoreErr := m.restoreBackup(backupRoot); restoreErr != nil {
		m.log.Error("restoring previous state failed; backup kept for manual recovery",
			"backup", backupRoot, "error", restoreErr)
		return fmt.Errorf("import failed (%v) and restoring the previous state also failed (%v); backup kept at %s", cause, restoreErr, backupRoot)
	}

	if err := os.RemoveAll(backupRoot); err != nil {
		m.log.Warn("could not remove import backup after restore", "path", backupRoot, "error", err)
	}
	return cause
}

func (m *Migrator) restoreBackup(backupRoot string) error {
	profileBackup := filepath.Join(backupRoot, "profile")
	if fsutil.Exists(profileBackup) {
		if _, err := fsutil.CopyTree(profileBackup, m.cfg.Game.ProfileDir); err != nil {
			return err
		}
	}

	engineBackup := filepath.Join(backupRoot, "locallow")
	if fsutil.Exists(engineBackup) {
		scope := m.cfg.LocalLowScopePath()
		if err := os.RemoveAll(scope); err != nil {
			return err
		}
		if _, err := fsutil.CopyTree(engineBackup, scope); err != nil {
			return err
		}
	}

	return nil
}
