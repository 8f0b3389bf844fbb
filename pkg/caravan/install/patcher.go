package install

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// patcherManifest is the JSON document listing companion patcher
// executables shipped next to the mod, with their expected hashes.
type patcherManifest struct {
	Windows []string          `json:"windows"`
	Hashes  map[string]string `json:"hashes"`
}

// syncPatchers downloads the companion patchers into the staging
// directory. The whole step is best-effort: a missing manifest, an
// unsafe name, or a hash mismatch skips the file and never fails the
// install.
func (i *Installer) syncPatchers(ctx context.Context, stagingDir string) {
	if i.cfg.Release.PatcherManifestURL == "" {
		return
	}

	var manifest patcherManifest
	if err := i.client.getJSON(ctx, i.cfg.Release.PatcherManifestURL, &manifest); err != nil {
		i.log.Warn("patcher manifest unavailable", "error", err)
		return
	}

	for _, name := range manifest.Windows {
		if !i.safePatcher.MatchString(name) {
			i.log.Warn("skipping patcher with unsafe name", "name", name)
			continue
		}

		dest := filepath.Join(stagingDir, name)
		srcURL := strings.TrimSuffix(i.cfg.Release.PatcherBaseURL, "/") + "/" + name

		if err := i.client.Download(ctx, srcURL, dest, nil); err != nil {
			i.log.Warn("patcher download failed", "name", name, "error", err)
			continue
		}

		if want := manifest.Hashes[name]; want != "" {
			got, err := fileMD5(dest)
			if err != nil || !strings.EqualFold(got, want) {
				i.log.Warn("patcher hash mismatch, discarding", "name", name, "want", want, "got", got)
				_ = os.Remove(dest)
				continue
			}
		}

		i.log.Debug("patcher synced", "name", name)
	}
}

func fileMD5(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := md5.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hashing %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
