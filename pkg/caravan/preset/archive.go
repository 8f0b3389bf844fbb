package preset

import (
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/modfoundry/caravan/pkg/caravan/zipio"
)

// ExportSelected writes the selected presets as a preset archive at
// outPath, appending the configured extension when missing. The archive
// carries a rewritten registry whose current preset is guaranteed to be
// one of the exported ids. It returns the final archive path.
func (s *Store) ExportSelected(ids []int32, outPath string) (string, error) {
	if len(ids) == 0 {
		return "", fmt.Errorf("no presets selected for export")
	}

	opts, err := s.Load()
	if err != nil {
		return "", err
	}

	sorted := append([]int32(nil), ids...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	exported := &OptionsData{
		Version: opts.Version,
		Names:   make(map[int32]string, len(sorted)),
	}

	var entries []zipio.Entry
	for _, id := range sorted {
		name, known := opts.Names[id]
		dataPath := s.DataFilePath(id)
		_, statErr := os.Stat(dataPath)
		hasData := statErr == nil

		if !known && !hasData {
			return "", fmt.Errorf("unknown preset id %d", id)
		}

		exported.Names[id] = name
		if hasData {
			entries = append(entries, zipio.Entry{
				Name: path.Join(s.archiveRoot, dataFileName(id)),
				Path: dataPath,
			})
		}
	}

	// The current preset must resolve inside the archive.
	exported.CurrentPreset = sorted[0]
	for _, id := range sorted {
		if id == opts.CurrentPreset {
			exported.CurrentPreset = id
			break
		}
	}

	entries = append(entries, zipio.Entry{
		Name: path.Join(s.archiveRoot, OptionsFileName),
		Data: exported.Encode(),
	})

	if !strings.EqualFold(filepath.Ext(outPath), s.ext) {
		outPath += s.ext
	}

	data, err := zipio.PackBytes(entries)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return "", fmt.Errorf("creating %s: %w", filepath.Dir(outPath), err)
	}
	if err := os.WriteFile(outPath, data, 0o644); err != nil {
		return "", fmt.Errorf("writing %s: %w", outPath, err)
	}

	s.log.Info("exported presets", "count", len(sorted), "path", outPath)
	return outPath, nil
}

// archiveContents is what a preset archive holds after safe decoding.
type archiveContents struct {
	opts *OptionsData
	data map[int32][]byte
}

// readArchive loads and decodes a preset archive. The registry entry is
// located by file name, case-insensitively, anywhere in the archive; a
// missing registry is an error.
func (s *Store) readArchive(archivePath string) (*archiveContents, error) {
	ext := filepath.Ext(archivePath)
	if !strings.EqualFold(ext, s.ext) && !strings.EqualFold(ext, ".zip") {
		return nil, fmt.Errorf("unrecognized preset archive extension %q", ext)
	}

	raw, err := os.ReadFile(archivePath)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", archivePath, err)
	}

	zr, err := zipio.Open(raw)
	if err != nil {
		return nil, err
	}

	contents := &archiveContents{data: make(map[int32][]byte)}

	for _, f := range zr.File {
		clean, ok := zipio.SanitizeEntryName(f.Name)
		if !ok {
			return nil, fmt.Errorf("unsafe archive entry path %q", f.Name)
		}
		base := path.Base(clean)

		switch {
		case strings.EqualFold(base, OptionsFileName):
			if contents.opts != nil {
				continue
			}
			payload, err := readZipEntry(f.Open, base)
			if err != nil {
				return nil, err
			}
			contents.opts, err = ParseOptions(payload)
			if err != nil {
				return nil, fmt.Errorf("parsing archive registry: %w", err)
			}

		default:
			id, ok := parseDataFileName(base)
			if !ok {
				continue
			}
			if _, dup := contents.data[id]; dup {
				continue
			}
			payload, err := readZipEntry(f.Open, base)
			if err != nil {
				return nil, err
			}
			contents.data[id] = payload
		}
	}

	if contents.opts == nil {
		return nil, fmt.Errorf("archive %s contains no %s", archivePath, OptionsFileName)
	}
	return contents, nil
}

func readZipEntry(open func() (io.ReadCloser, error), name string) ([]byte, error) {
	rc, err := open()
	if err != nil {
		return nil, fmt.Errorf("opening archive entry %s: %w", name, err)
	}
	defer rc.Close()

	payload, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("reading archive entry %s: %w", name, err)
	}
	return payload, nil
}

// InspectArchive lists the presets an archive holds without mutating
// anything.
func (s *Store) InspectArchive(archivePath string) ([]Entry, error) {
	contents, err := s.readArchive(archivePath)
	if err != nil {
		return nil, err
	}

	var entries []Entry
	seen := make(map[int32]bool)
	for id, name := range contents.opts.Names {
		_, hasData := contents.data[id]
		entries = append(entries, Entry{ID: id, Name: DisplayName(id, name), HasDataFile: hasData})
		seen[id] = true
	}
	for id := range contents.data {
		if !seen[id] {
			entries = append(entries, Entry{ID: id, Name: DisplayName(id, ""), HasDataFile: true})
		}
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].ID < entries[j].ID })
	return entries, nil
}
