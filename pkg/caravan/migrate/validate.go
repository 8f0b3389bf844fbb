package migrate

import (
	"fmt"
	"io"
	"os"

	"github.com/modfoundry/caravan/pkg/caravan/zipio"
)

// ValidatePassword verifies that an archive opens and fully decodes with
// the given password without writing anything. It returns whether the
// archive payload was encrypted.
func (m *Migrator) ValidatePassword(archivePath, password string) (bool, error) {
	if err := m.checkExtension(archivePath); err != nil {
		return false, err
	}

	raw, err := os.ReadFile(archivePath)
	if err != nil {
		return false, fmt.Errorf("reading %s: %w", archivePath, err)
	}

	payload, encrypted, err := m.format.Open(raw, password)
	if err != nil {
		return encrypted, err
	}

	zr, err := zipio.Open(payload)
	if err != nil {
		return encrypted, err
	}

	// Pull every entry through its reader so CRC mismatches surface.
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			return encrypted, fmt.Errorf("opening archive entry %s: %w", f.Name, err)
		}
		_, copyErr := io.Copy(io.Discard, rc)
		_ = rc.Close()
		if copyErr != nil {
			return encrypted, fmt.Errorf("reading archive entry %s: %w", f.Name, copyErr)
		}
	}

	return encrypted, nil
}
