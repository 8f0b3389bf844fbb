// Package preset reads and writes the game's preset registry: the
// Options.data record mapping preset ids to names, plus the sibling
// PresetOptions_<id>.data files holding each preset's contents.
package preset

import (
	"fmt"
	"sort"
	"time"

	"github.com/modfoundry/caravan/pkg/caravan/codec"
)

// Options.data layout:
//
//	[version:u8][seed:u8][checksum:u8][currentPreset:i32 LE][count:i32 LE]
//	count x ([id:i32 LE][name:varstring])
//
// The checksum is seed squared, truncated to a byte. The seed is drawn
// from the clock on every write, so two encodings of the same record
// usually differ even though both verify.

// ChecksumError reports a record whose checksum byte does not match its
// seed.
type ChecksumError struct {
	Seed byte
	Got  byte
	Want byte
}

func (e *ChecksumError) Error() string {
	return fmt.Sprintf("options record checksum mismatch: seed %d expects %d, found %d", e.Seed, e.Want, e.Got)
}

// OptionsData is the decoded preset registry.
type OptionsData struct {
	Version       uint8
	CurrentPreset int32
	Names         map[int32]string
}

// NewOptionsData returns an empty registry at the current version.
func NewOptionsData() *OptionsData {
	return &OptionsData{Version: 1, Names: make(map[int32]string)}
}

// ParseOptions decodes an Options.data record. Entries with negative ids
// are dropped; a negative entry count or a short record is an error.
func ParseOptions(data []byte) (*OptionsData, error) {
	r := codec.NewReader(data)

	version, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	seed, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	checksum, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	if want := seed * seed; checksum != want {
		return nil, &ChecksumError{Seed: seed, Got: checksum, Want: want}
	}

	current, err := r.ReadInt32()
	if err != nil {
		return nil, err
	}
	count, err := r.ReadInt32()
	if err != nil {
		return nil, err
	}
	if count < 0 {
		return nil, fmt.Errorf("options record declares negative preset count %d", count)
	}

	o := &OptionsData{
		Version:       version,
		CurrentPreset: current,
		Names:         make(map[int32]string, count),
	}

	for i := int32(0); i < count; i++ {
		id, err := r.ReadInt32()
		if err != nil {
			return nil, err
		}
		name, err := r.ReadString()
		if err != nil {
			return nil, err
		}
		if id < 0 {
			continue
		}
		o.Names[id] = name
	}

	return o, nil
}

// Encode serializes the registry. Entries are written in ascending id
// order and the version is clamped to at least 1.
func (o *OptionsData) Encode() []byte {
	version := o.Version
	if version < 1 {
		version = 1
	}
	seed := newSeed()

	ids := make([]int32, 0, len(o.Names))
	for id := range o.Names {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	buf := []byte{version, seed, seed * seed}
	buf = codec.AppendInt32(buf, o.CurrentPreset)
	buf = codec.AppendInt32(buf, int32(len(ids)))
	for _, id := range ids {
		buf = codec.AppendInt32(buf, id)
		buf = codec.AppendString(buf, o.Names[id])
	}
	return buf
}

// newSeed returns a checksum seed in [0, 15).
func newSeed() byte {
	return byte(time.Now().Nanosecond() % 15)
}
