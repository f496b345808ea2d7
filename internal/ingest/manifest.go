package ingest

import (
	"errors"
	"io/fs"
	"os"

	"samarth-go/internal/state"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Manifest overrides classification per file and supplies a state to
// district mapping.
//
//	datasets:
//	  - file: crop_maize.csv
//	    kind: crop
//	    crop_type: maize
//	states:
//	  Karnataka: [Udupi, Mysore]
type Manifest struct {
	Datasets []ManifestEntry     `yaml:"datasets"`
	States   map[string][]string `yaml:"states"`
}

// ManifestEntry describes one file. Empty fields keep the detected value.
type ManifestEntry struct {
	File           string `yaml:"file"`
	Kind           string `yaml:"kind"`
	Granularity    string `yaml:"granularity"`
	CropType       string `yaml:"crop_type"`
	LocationColumn string `yaml:"location_column"`
	State          string `yaml:"state"`
	Skip           bool   `yaml:"skip"`
}

// ReadManifest parses path. A missing file yields an empty manifest.
func ReadManifest(path string) (*Manifest, error) {
	m := &Manifest{}
	if path == "" {
		return m, nil
	}
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return m, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "read manifest %s", path)
	}
	if err := yaml.Unmarshal(raw, m); err != nil {
		return nil, eris.Wrapf(err, "parse manifest %s", path)
	}
	return m, nil
}

// entry returns the override for file, matched case-insensitively
func (m *Manifest) entry(file string) *ManifestEntry {
	if m == nil {
		return nil
	}
	for i := range m.Datasets {
		if state.Key(m.Datasets[i].File) == state.Key(file) {
			return &m.Datasets[i]
		}
	}
	return nil
}
