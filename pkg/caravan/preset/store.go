package preset

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/modfoundry/caravan/pkg/caravan/logging"
)

// File names inside a save data directory.
const (
	OptionsFileName = "Options.data"

	dataFilePrefix = "PresetOptions_"
	dataFileSuffix = ".data"
)

// Store manages the preset registry of one save data directory.
type Store struct {
	dir string

	// ext is the preset archive extension (".cpreset"); plain ".zip"
	// archives are accepted too.
	ext string

	// archiveRoot is the directory prefix entries carry inside preset
	// archives.
	archiveRoot string

	log *logging.Logger
}

// NewStore returns a store over the save data directory dir. Archives it
// reads and writes use ext and archiveRoot.
func NewStore(dir, ext, archiveRoot string) *Store {
	return &Store{
		dir:         dir,
		ext:         ext,
		archiveRoot: archiveRoot,
		log:         logging.Get("preset"),
	}
}

// OptionsPath is the path of the registry record.
func (s *Store) OptionsPath() string {
	return filepath.Join(s.dir, OptionsFileName)
}

// DataFilePath is the path of the data file for a preset id.
func (s *Store) DataFilePath(id int32) string {
	return filepath.Join(s.dir, dataFileName(id))
}

func dataFileName(id int32) string {
	return fmt.Sprintf("%s%d%s", dataFilePrefix, id, dataFileSuffix)
}

// parseDataFileName extracts the preset id from a data file name.
func parseDataFileName(name string) (int32, bool) {
	if !strings.HasPrefix(name, dataFilePrefix) || !strings.HasSuffix(name, dataFileSuffix) {
		return 0, false
	}
	middle := name[len(dataFilePrefix) : len(name)-len(dataFileSuffix)]
	id, err := strconv.ParseInt(middle, 10, 32)
	if err != nil || id < 0 {
		return 0, false
	}
	return int32(id), true
}

// Load reads the registry. A missing record yields an empty registry; a
// present but malformed one is an error.
func (s *Store) Load() (*OptionsData, error) {
	data, err := os.ReadFile(s.OptionsPath())
	if err != nil {
		if os.IsNotExist(err) {
			return NewOptionsData(), nil
		}
		return nil, fmt.Errorf("reading %s: %w", s.OptionsPath(), err)
	}

	opts, err := ParseOptions(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", s.OptionsPath(), err)
	}
	return opts, nil
}

// save writes the registry atomically.
func (s *Store) save(o *OptionsData) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", s.dir, err)
	}

	path := s.OptionsPath()
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, o.Encode(), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replacing %s: %w", path, err)
	}
	return nil
}

// Entry describes one preset as shown to the user.
type Entry struct {
	ID          int32
	Name        string
	HasDataFile bool
}

// DisplayName is the name shown for a preset, substituting the default
// positional name when the stored one is blank.
func DisplayName(id int32, name string) string {
	if strings.TrimSpace(name) == "" {
		return fmt.Sprintf("Preset %d", id+1)
	}
	return name
}

// List returns every known preset in ascending id order. Presets are
// known from the registry and from data files on disk, either alone is
// enough.
func (s *Store) List() ([]Entry, error) {
	opts, err := s.Load()
	if err != nil {
		return nil, err
	}

	diskIDs, err := s.diskIDs()
	if err != nil {
		return nil, err
	}

	onDisk := make(map[int32]bool, len(diskIDs))
	for _, id := range diskIDs {
		onDisk[id] = true
	}

	seen := make(map[int32]bool)
	var entries []Entry
	for id, name := range opts.Names {
		entries = append(entries, Entry{ID: id, Name: DisplayName(id, name), HasDataFile: onDisk[id]})
		seen[id] = true
	}
	for _, id := range diskIDs {
		if !seen[id] {
			entries = append(entries, Entry{ID: id, Name: DisplayName(id, ""), HasDataFile: true})
		}
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].ID < entries[j].ID })
	return entries, nil
}

// diskIDs scans the save data directory for preset data files.
func (s *Store) diskIDs() ([]int32, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading %s: %w", s.dir, err)
	}

	var ids []int32
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if id, ok := parseDataFileName(e.Name()); ok {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// nextID returns the first id above every registry and on-disk id.
func nextID(opts *OptionsData, diskIDs []int32) int32 {
	next := int32(0)
	for id := range opts.Names {
		if id >= next {
			next = id + 1
		}
	}
	for _, id := range diskIDs {
		if id >= next {
			next = id + 1
		}
	}
	return next
}

// normalizeName is the collision key for preset names.
func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// uniqueName disambiguates requested against used names by appending a
// parenthesized counter, and records the result in used.
func uniqueName(requested string, used map[string]struct{}) string {
	requested = strings.TrimSpace(requested)
	candidate := requested
	for n := 2; ; n++ {
		key := normalizeName(candidate)
		if _, taken := used[key]; !taken {
			used[key] = struct{}{}
			return candidate
		}
		candidate = fmt.Sprintf("%s (%d)", requested, n)
	}
}
