// Package zipio packs and unpacks zip archives with defense against
// hostile entry paths. Every archive entry name is sanitized before it
// touches the filesystem; a single bad entry aborts the whole unpack.
package zipio

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// Entry describes one file to place in an archive. Exactly one of Path
// (a file on disk) or Data (in-memory content) supplies the bytes.
type Entry struct {
	// Name is the archive path, forward-slash separated.
	Name string

	// Path is the source file on disk. Ignored when Data is non-nil.
	Path string

	// Data is in-memory content for the entry.
	Data []byte
}

// Pack writes a deflate-compressed zip archive containing entries to w.
func Pack(w io.Writer, entries []Entry) error {
	zw := zip.NewWriter(w)

	for _, e := range entries {
		name := strings.ReplaceAll(e.Name, "\\", "/")
		header := &zip.FileHeader{
			Name:   name,
			Method: zip.Deflate,
		}

		fw, err := zw.CreateHeader(header)
		if err != nil {
			return fmt.Errorf("creating entry %s: %w", name, err)
		}

		if e.Data != nil {
			if _, err := fw.Write(e.Data); err != nil {
				return fmt.Errorf("writing entry %s: %w", name, err)
			}
			continue
		}

		src, err := os.Open(e.Path)
		if err != nil {
			return fmt.Errorf("opening %s: %w", e.Path, err)
		}
		_, err = io.Copy(fw, src)
		closeErr := src.Close()
		if err != nil {
			return fmt.Errorf("writing entry %s: %w", name, err)
		}
		if closeErr != nil {
			return fmt.Errorf("closing %s: %w", e.Path, closeErr)
		}
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("finalizing archive: %w", err)
	}
	return nil
}

// PackBytes is Pack into a fresh byte slice.
func PackBytes(entries []Entry) ([]byte, error) {
	var buf bytes.Buffer
	if err := Pack(&buf, entries); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Open returns a zip reader over in-memory archive bytes.
func Open(data []byte) (*zip.Reader, error) {
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("reading archive: %w", err)
	}
	return r, nil
}

// SanitizeEntryName normalizes an archive entry name to a safe relative
// path. It returns ok=false for names that would escape the extraction
// root: absolute paths, parent traversal, or drive-letter prefixes.
func SanitizeEntryName(name string) (string, bool) {
	name = strings.ReplaceAll(name, "\\", "/")
	if name == "" || strings.HasPrefix(name, "/") {
		return "", false
	}
	if strings.Contains(name, ":") {
		return "", false
	}

	clean := path.Clean(name)
	if clean == ".." || strings.HasPrefix(clean, "../") || clean == "." {
		return "", false
	}
	return clean, true
}

// ProgressFunc receives (current, total) entry counts during an unpack.
// Current is 1-based; the first and last entries are always reported.
type ProgressFunc func(current, total int)

// Unpack extracts archive bytes into dest, creating it if needed. It
// returns the number of entries written. Any entry with an unsafe path
// fails the whole operation before that entry is written.
func Unpack(data []byte, dest string, onProgress ProgressFunc) (int, error) {
	r, err := Open(data)
	if err != nil {
		return 0, err
	}

	if err := os.MkdirAll(dest, 0o755); err != nil {
		return 0, fmt.Errorf("creating %s: %w", dest, err)
	}

	total := len(r.File)
	prog := newThrottle(total, onProgress)
	created := make(map[string]struct{})
	written := 0

	for i, f := range r.File {
		clean, ok := SanitizeEntryName(f.Name)
		if !ok {
			return written, fmt.Errorf("unsafe archive entry path %q", f.Name)
		}

		target := filepath.Join(dest, filepath.FromSlash(clean))

		if f.FileInfo().IsDir() {
			if err := ensureDir(target, created); err != nil {
				return written, err
			}
			prog.step(i)
			continue
		}

		if err := ensureDir(filepath.Dir(target), created); err != nil {
			return written, err
		}
		if err := extractFile(f, target); err != nil {
			return written, err
		}

		written++
		prog.step(i)
	}

	return written, nil
}

func ensureDir(dir string, created map[string]struct{}) error {
	if _, ok := created[dir]; ok {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}
	created[dir] = struct{}{}
	return nil
}

func extractFile(f *zip.File, target string) error {
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("opening entry %s: %w", f.Name, err)
	}
	defer rc.Close()

	out, err := os.Create(target)
	if err != nil {
		return fmt.Errorf("creating %s: %w", target, err)
	}

	if _, err := io.Copy(out, rc); err != nil {
		_ = out.Close()
		return fmt.Errorf("extracting %s: %w", f.Name, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", target, err)
	}
	return nil
}
