package staging

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(b)
}

func TestRunReplacesExistingTarget(t *testing.T) {
	target := filepath.Join(t.TempDir(), "profile")
	writeFile(t, filepath.Join(target, "old.txt"), "old state")

	err := Run(target, func(stagingDir string) error {
		writeFile(t, filepath.Join(stagingDir, "new.txt"), "new state")
		return nil
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, "new state", readFile(t, filepath.Join(target, "new.txt")))

	_, err = os.Stat(filepath.Join(target, "old.txt"))
	assert.True(t, os.IsNotExist(err))

	stagingDir, backupDir := Paths(target)
	_, err = os.Stat(stagingDir)
	assert.True(t, os.IsNotExist(err), "staging dir must be gone")
	_, err = os.Stat(backupDir)
	assert.True(t, os.IsNotExist(err), "backup dir must be gone")
}

func TestRunCreatesMissingTarget(t *testing.T) {
	target := filepath.Join(t.TempDir(), "fresh")

	err := Run(target, func(stagingDir string) error {
		writeFile(t, filepath.Join(stagingDir, "a.txt"), "content")
		return nil
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, "content", readFile(t, filepath.Join(target, "a.txt")))
}

func TestRunPopulateFailureLeavesTargetUntouched(t *testing.T) {
	target := filepath.Join(t.TempDir(), "profile")
	writeFile(t, filepath.Join(target, "keep.txt"), "original")

	boom := errors.New("disk full")
	err := Run(target, func(string) error { return boom }, nil)
	require.ErrorIs(t, err, boom)

	assert.Equal(t, "original", readFile(t, filepath.Join(target, "keep.txt")))

	stagingDir, _ := Paths(target)
	_, statErr := os.Stat(stagingDir)
	assert.True(t, os.IsNotExist(statErr))
}

func TestRunValidateFailureLeavesTargetUntouched(t *testing.T) {
	target := filepath.Join(t.TempDir(), "profile")
	writeFile(t, filepath.Join(target, "keep.txt"), "original")

	err := Run(target,
		func(stagingDir string) error {
			writeFile(t, filepath.Join(stagingDir, "bad.txt"), "incomplete")
			return nil
		},
		func(string) error { return errors.New("missing required file") },
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validating")

	assert.Equal(t, "original", readFile(t, filepath.Join(target, "keep.txt")))
}

func TestRunCleansStaleSiblings(t *testing.T) {
	target := filepath.Join(t.TempDir(), "profile")
	stagingDir, backupDir := Paths(target)
	writeFile(t, filepath.Join(stagingDir, "stale.txt"), "left over")
	writeFile(t, filepath.Join(backupDir, "stale.txt"), "left over")

	err := Run(target, func(sd string) error {
		// A fresh staging dir: the stale file must already be gone.
		_, statErr := os.Stat(filepath.Join(sd, "stale.txt"))
		assert.True(t, os.IsNotExist(statErr))
		writeFile(t, filepath.Join(sd, "new.txt"), "done")
		return nil
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, "done", readFile(t, filepath.Join(target, "new.txt")))
}

func TestRunLockConflict(t *testing.T) {
	target := filepath.Join(t.TempDir(), "profile")
	writeFile(t, target+lockSuffix, "123\n2026-01-01T00:00:00Z\n")
	now := time.Now()
	require.NoError(t, os.Chtimes(target+lockSuffix, now, now))

	err := Run(target, func(string) error { return nil }, nil)
	assert.ErrorIs(t, err, ErrLocked)
}

func TestRunBreaksStaleLock(t *testing.T) {
	target := filepath.Join(t.TempDir(), "profile")
	lockPath := target + lockSuffix
	writeFile(t, lockPath, "123\n2026-01-01T00:00:00Z\n")
	old := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(lockPath, old, old))

	err := Run(target, func(stagingDir string) error {
		writeFile(t, filepath.Join(stagingDir, "a.txt"), "x")
		return nil
	}, nil)
	require.NoError(t, err)

	_, statErr := os.Stat(lockPath)
	assert.True(t, os.IsNotExist(statErr), "lock must be released")
}

func TestRunReleasesLockOnFailure(t *testing.T) {
	target := filepath.Join(t.TempDir(), "profile")

	err := Run(target, func(string) error { return errors.New("nope") }, nil)
	require.Error(t, err)

	err = Run(target, func(stagingDir string) error {
		writeFile(t, filepath.Join(stagingDir, "a.txt"), "x")
		return nil
	}, nil)
	require.NoError(t, err)
}

func TestCommitErrorMessage(t *testing.T) {
	base := errors.New("rename failed")

	restored := &CommitError{Target: "/p", Backup: "/p._backup", Restored: true, Err: base}
	assert.Contains(t, restored.Error(), "previous state restored")
	assert.ErrorIs(t, restored, base)

	unrestored := &CommitError{Target: "/p", Backup: "/p._backup", Restored: false, Err: base}
	assert.Contains(t, unrestored.Error(), "backup retained at /p._backup")
}
