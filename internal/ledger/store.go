package ledger

import (
	"strings"

	"github.com/pkg/errors"
)

// Backend names accepted by OpenStore.
const (
	BackendYAML   = "yaml"
	BackendSQLite = "sqlite"
)

// OpenStore opens the configured backend. The returned close function is
// never nil.
func OpenStore(backend, path string) (Store, func() error, error) {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "", BackendYAML:
		if path == "" {
			path = DefaultYAMLFile
		}
		return NewYAMLStore(path), func() error { return nil }, nil
	case BackendSQLite:
		if path == "" {
			return nil, nil, errors.New("sqlite ledger requires a path")
		}
		s, err := OpenSQLiteStore(path)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	default:
		return nil, nil, errors.Errorf("unknown ledger backend %q (want yaml or sqlite)", backend)
	}
}

// MemoryStore is a Store held in process memory. Dry runs seed it from the
// real store so issued numbers look right without touching disk.
type MemoryStore struct {
	Values map[string]int
	Saves  int
}

// NewMemoryStore returns a store seeded with a copy of values.
func NewMemoryStore(values map[string]int) *MemoryStore {
	return &MemoryStore{Values: clone(values)}
}

// Load returns a copy of the held values.
func (m *MemoryStore) Load() (map[string]int, error) {
	return clone(m.Values), nil
}

// Save replaces the held values.
func (m *MemoryStore) Save(values map[string]int) error {
	m.Values = clone(values)
	m.Saves++
	return nil
}
