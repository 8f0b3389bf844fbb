package staging

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/modfoundry/caravan/pkg/caravan/logging"
)

const (
	lockSuffix = ".lock"

	// staleAfter is how old a lock file may be before it is presumed
	// abandoned by a crashed process and broken.
	staleAfter = 10 * time.Minute
)

// ErrLocked is returned when another operation holds the target's lock.
var ErrLocked = errors.New("another operation is already running against this path")

// acquireLock takes the per-target lock file. The returned release
// function removes it.
func acquireLock(target string) (func(), error) {
	lockPath := target + lockSuffix

	for attempt := 0; attempt < 2; attempt++ {
		f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err == nil {
			fmt.Fprintf(f, "%d\n%s\n", os.Getpid(), time.Now().Format(time.RFC3339))
			if cerr := f.Close(); cerr != nil {
				_ = os.Remove(lockPath)
				return nil, fmt.Errorf("writing lock file %s: %w", lockPath, cerr)
			}
			return func() { _ = os.Remove(lockPath) }, nil
		}
		if !os.IsExist(err) {
			return nil, fmt.Errorf("creating lock file %s: %w", lockPath, err)
		}

		info, statErr := os.Stat(lockPath)
		if statErr != nil {
			if os.IsNotExist(statErr) {
				continue // released between our attempts, retry
			}
			return nil, fmt.Errorf("checking lock file %s: %w", lockPath, statErr)
		}

		if time.Since(info.ModTime()) < staleAfter {
			return nil, fmt.Errorf("%w: %s", ErrLocked, lockPath)
		}

		logging.Get("staging").Warn("breaking stale lock", "path", lockPath, "age", time.Since(info.ModTime()))
		if rmErr := os.Remove(lockPath); rmErr != nil && !os.IsNotExist(rmErr) {
			return nil, fmt.Errorf("removing stale lock file %s: %w", lockPath, rmErr)
		}
	}

	return nil, fmt.Errorf("%w: %s", ErrLocked, lockPath)
}
