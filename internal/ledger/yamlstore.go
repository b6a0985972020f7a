package ledger

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// DefaultYAMLFile is the ledger file name used when config names none.
const DefaultYAMLFile = "controlnumbers.yaml"

// YAMLStore persists control numbers as a tagged id/value list:
//
//	- id: ISA
//	  value: 42
//	- id: ST
//	  value: 17
//
// A missing file is an empty ledger. Writes go to a temporary file in the
// same directory which is then renamed over the target, so a reader never
// sees a half-written ledger.
type YAMLStore struct {
	Path string
}

type yamlEntry struct {
	ID    string `yaml:"id"`
	Value int    `yaml:"value"`
}

// NewYAMLStore returns a store backed by path.
func NewYAMLStore(path string) *YAMLStore {
	return &YAMLStore{Path: path}
}

// Load reads the ledger file.
func (s *YAMLStore) Load() (map[string]int, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]int{}, nil
		}
		return nil, errors.Wrapf(err, "read ledger file %s", s.Path)
	}

	var entries []yamlEntry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, errors.Wrapf(err, "parse ledger file %s", s.Path)
	}

	values := make(map[string]int, len(entries))
	for _, e := range entries {
		if e.ID == "" {
			return nil, errors.Errorf("ledger file %s: entry with empty id", s.Path)
		}
		if _, dup := values[e.ID]; dup {
			return nil, errors.Errorf("ledger file %s: duplicate id %q", s.Path, e.ID)
		}
		values[e.ID] = e.Value
	}
	return values, nil
}

// Save atomically replaces the ledger file with values.
func (s *YAMLStore) Save(values map[string]int) error {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	entries := make([]yamlEntry, 0, len(keys))
	for _, k := range keys {
		entries = append(entries, yamlEntry{ID: k, Value: values[k]})
	}

	data, err := yaml.Marshal(entries)
	if err != nil {
		return errors.Wrap(err, "encode ledger")
	}

	dir := filepath.Dir(s.Path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrapf(err, "create ledger directory %s", dir)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.Path)+".*.tmp")
	if err != nil {
		return errors.Wrap(err, "create temporary ledger file")
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.Wrapf(err, "write %s", tmpName)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return errors.Wrapf(err, "sync %s", tmpName)
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrapf(err, "close %s", tmpName)
	}
	if err := os.Rename(tmpName, s.Path); err != nil {
		return errors.Wrapf(err, "replace ledger file %s", s.Path)
	}
	return nil
}
