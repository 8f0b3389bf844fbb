// Package staging implements the transaction protocol every destructive
// directory mutation in caravan goes through: build the replacement in a
// sibling staging directory, validate it, then swap it into place with a
// backup of the previous state held until the swap succeeds.
package staging

import (
	"fmt"
	"os"

	"github.com/modfoundry/caravan/pkg/caravan/logging"
)

// Sibling suffixes next to the target path.
const (
	stagingSuffix = "._staging"
	backupSuffix  = "._backup"
)

// CommitError reports a failed swap of the staged directory into place.
// Restored records whether the previous target state was put back; when
// it is false the backup directory still holds the old state and manual
// recovery is needed.
type CommitError struct {
	Target   string
	Backup   string
	Restored bool
	Err      error
}

func (e *CommitError) Error() string {
	if e.Restored {
		return fmt.Sprintf("committing staged changes to %s failed (previous state restored): %v", e.Target, e.Err)
	}
	return fmt.Sprintf("committing staged changes to %s failed and restoring the previous state also failed; backup retained at %s: %v", e.Target, e.Backup, e.Err)
}

func (e *CommitError) Unwrap() error { return e.Err }

// Paths returns the staging and backup sibling paths for target.
func Paths(target string) (staging, backup string) {
	return target + stagingSuffix, target + backupSuffix
}

// Run executes one staged mutation of target.
//
// The populate callback fills the empty staging directory; validate, if
// non-nil, checks the populated staging directory before anything at the
// target is touched. A failure in either leaves target untouched. After
// validation the swap is: move target aside as backup, move staging into
// place, drop the backup. If moving staging into place fails the backup
// is moved back.
//
// A per-target lock file serializes concurrent runs against the same
// target; a second caller gets ErrLocked instead of corrupting state.
func Run(target string, populate, validate func(stagingDir string) error) error {
	log := logging.Get("staging")

	release, err := acquireLock(target)
	if err != nil {
		return err
	}
	defer release()

	stagingDir, backupDir := Paths(target)

	// Leftovers from an interrupted run are stale by definition: a
	// staging dir was never promoted, a backup was never dropped.
	if err := os.RemoveAll(stagingDir); err != nil {
		return fmt.Errorf("removing stale staging directory %s: %w", stagingDir, err)
	}
	if err := os.RemoveAll(backupDir); err != nil {
		return fmt.Errorf("removing stale backup directory %s: %w", backupDir, err)
	}

	if err := os.MkdirAll(stagingDir, 0o755); err != nil {
		return fmt.Errorf("creating staging directory %s: %w", stagingDir, err)
	}

	if err := populate(stagingDir); err != nil {
		_ = os.RemoveAll(stagingDir)
		return fmt.Errorf("staging changes for %s: %w", target, err)
	}

	if validate != nil {
		if err := validate(stagingDir); err != nil {
			_ = os.RemoveAll(stagingDir)
			return fmt.Errorf("validating staged changes for %s: %w", target, err)
		}
	}

	targetExisted := false
	if _, err := os.Stat(target); err == nil {
		targetExisted = true
		if err := os.Rename(target, backupDir); err != nil {
			_ = os.RemoveAll(stagingDir)
			return fmt.Errorf("moving %s aside: %w", target, err)
		}
	} else if !os.IsNotExist(err) {
		_ = os.RemoveAll(stagingDir)
		return fmt.Errorf("checking %s: %w", target, err)
	}

	if err := os.Rename(stagingDir, target); err != nil {
		// The rename may have left a partial target in place.
		_ = os.RemoveAll(target)

		restored := true
		if targetExisted {
			if rerr := os.Rename(backupDir, target); rerr != nil {
				restored = false
				log.Error("restore after failed commit also failed",
					"target", target, "backup", backupDir, "error", rerr)
			}
		}
		return &CommitError{Target: target, Backup: backupDir, Restored: restored, Err: err}
	}

	if targetExisted {
		if err := os.RemoveAll(backupDir); err != nil {
			log.Warn("could not remove backup after successful commit",
				"backup", backupDir, "error", err)
		}
	}

	log.Debug("staged mutation committed", "target", target)
	return nil
}
