package preset

import (
	"fmt"
	"os"
	"sort"
)

// Selection picks one preset out of an import source, optionally giving
// it a new name.
type Selection struct {
	SourceID int32
	Name     string
}

// sourcePreset is one preset pulled out of an import source.
type sourcePreset struct {
	name string // requested name after fallbacks, may still be blank
	data []byte // nil when the source has no data file
}

// ImportFromArchive copies the selected presets out of a preset archive
// into this store. An empty selection imports everything the archive
// holds. It returns the presets as created, with their assigned ids.
func (s *Store) ImportFromArchive(archivePath string, selections []Selection) ([]Entry, error) {
	contents, err := s.readArchive(archivePath)
	if err != nil {
		return nil, err
	}

	explicit := len(selections) > 0
	if !explicit {
		selections = selectAll(contents)
	}

	seen := make(map[int32]bool, len(selections))
	sources := make([]sourcePreset, 0, len(selections))
	for _, sel := range selections {
		if explicit {
			// An explicit selection must resolve to a complete preset
			// in the archive; repeated ids import once.
			if sel.SourceID < 0 {
				return nil, fmt.Errorf("invalid source preset id %d", sel.SourceID)
			}
			if seen[sel.SourceID] {
				continue
			}
			seen[sel.SourceID] = true
			if _, ok := contents.opts.Names[sel.SourceID]; !ok {
				return nil, fmt.Errorf("source preset id %d not found in the archive registry", sel.SourceID)
			}
			if _, ok := contents.data[sel.SourceID]; !ok {
				return nil, fmt.Errorf("source preset id %d has no data file in the archive", sel.SourceID)
			}
		}

		name := sel.Name
		if name == "" {
			name = contents.opts.Names[sel.SourceID]
		}
		sources = append(sources, sourcePreset{
			name: name,
			data: contents.data[sel.SourceID],
		})
	}

	imported, err := s.importPresets(sources)
	if err != nil {
		return nil, err
	}

	s.log.Info("imported presets from archive", "count", len(imported), "archive", archivePath)
	return imported, nil
}

// selectAll orders every preset in an archive by source id.
func selectAll(contents *archiveContents) []Selection {
	seen := make(map[int32]bool)
	var ids []int32
	for id := range contents.opts.Names {
		ids = append(ids, id)
		seen[id] = true
	}
	for id := range contents.data {
		if !seen[id] {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	selections := make([]Selection, len(ids))
	for i, id := range ids {
		selections[i] = Selection{SourceID: id}
	}
	return selections
}

// ImportFromDir copies every preset from another save data directory
// into this store. It returns the number of presets imported.
func (s *Store) ImportFromDir(srcDir string) (int, error) {
	src := NewStore(srcDir, s.ext, s.archiveRoot)

	srcOpts, err := src.Load()
	if err != nil {
		return 0, err
	}
	diskIDs, err := src.diskIDs()
	if err != nil {
		return 0, err
	}

	seen := make(map[int32]bool)
	var ids []int32
	for id := range srcOpts.Names {
		ids = append(ids, id)
		seen[id] = true
	}
	for _, id := range diskIDs {
		if !seen[id] {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	if len(ids) == 0 {
		return 0, fmt.Errorf("no presets found in %s", srcDir)
	}

	sources := make([]sourcePreset, 0, len(ids))
	for _, id := range ids {
		sp := sourcePreset{name: srcOpts.Names[id]}
		data, err := os.ReadFile(src.DataFilePath(id))
		if err == nil {
			sp.data = data
		} else if !os.IsNotExist(err) {
			return 0, fmt.Errorf("reading %s: %w", src.DataFilePath(id), err)
		}
		sources = append(sources, sp)
	}

	imported, err := s.importPresets(sources)
	if err != nil {
		return 0, err
	}

	s.log.Info("merged presets from directory", "count", len(imported), "source", srcDir)
	return len(imported), nil
}

// importPresets assigns fresh ids to sources, writes their data files,
// and rewrites the registry once at the end. Names are disambiguated
// against existing presets and against each other within the batch.
func (s *Store) importPresets(sources []sourcePreset) ([]Entry, error) {
	opts, err := s.Load()
	if err != nil {
		return nil, err
	}
	diskIDs, err := s.diskIDs()
	if err != nil {
		return nil, err
	}

	used := make(map[string]struct{}, len(opts.Names))
	for _, name := range opts.Names {
		used[normalizeName(name)] = struct{}{}
	}

	id := nextID(opts, diskIDs)
	imported := make([]Entry, 0, len(sources))

	for _, src := range sources {
		requested := src.name
		if requested == "" {
			requested = DisplayName(id, "")
		}
		name := uniqueName(requested, used)

		hasData := src.data != nil
		if hasData {
			if err := s.writeDataFile(id, src.data); err != nil {
				return nil, err
			}
		}

		opts.Names[id] = name
		imported = append(imported, Entry{ID: id, Name: name, HasDataFile: hasData})
		id++
	}

	// A dangling current preset points at the first import instead.
	if _, ok := opts.Names[opts.CurrentPreset]; !ok && len(imported) > 0 {
		opts.CurrentPreset = imported[0].ID
	}

	if err := s.save(opts); err != nil {
		return nil, err
	}
	return imported, nil
}

func (s *Store) writeDataFile(id int32, data []byte) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", s.dir, err)
	}

	path := s.DataFilePath(id)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replacing %s: %w", path, err)
	}
	return nil
}
