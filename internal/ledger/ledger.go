// =============================================================================
// EDI Generator - Control Number Ledger
// =============================================================================
//
// Control numbers identify envelope segments and service lines and must keep
// increasing across files and across runs. The ledger hands them out from an
// in-memory working set and persists the whole set once, at the end of a
// successful assembly.
//
// FAILURE MODEL:
//   - Next() only touches the working set.
//   - Save() writes the working set to the Store in one operation.
//   - If Save() fails, or is never called, the Store still holds the values
//     from before the run. The numbers handed out during the failed run are
//     never written to any output, so nothing issued is ever reused. A crash
//     after output leaves the sink but before Save cannot happen because
//     assemblers save before returning output.
//
// CONCURRENCY:
//   A Ledger and its Store are single-writer. Runs sharing a store must be
//   serialized by the caller (one process, or an external lock).
//
// =============================================================================

package ledger

import (
	"sort"
	"strconv"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Uninitialized is returned by Peek for a key that was never issued.
const Uninitialized = -1

// Provider is the capability the assemblers depend on.
type Provider interface {
	// Peek returns the last issued value for key, or Uninitialized.
	Peek(key string) int

	// Next issues and returns the next value for key.
	Next(key string) int

	// Save durably records every value issued so far.
	Save() error
}

// Store is the durable backing of a Ledger.
type Store interface {
	// Load returns the persisted key -> last issued value map. A store that
	// has never been written returns an empty map.
	Load() (map[string]int, error)

	// Save replaces the persisted map with values in one operation.
	Save(values map[string]int) error
}

// Ledger is the reference Provider: a working set over a Store.
type Ledger struct {
	store   Store
	durable map[string]int
	working map[string]int
	logger  logrus.FieldLogger
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithLogger sets the logger used for save diagnostics.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(l *Ledger) { l.logger = logger }
}

// New loads the store and returns a ledger ready to issue numbers.
func New(store Store, opts ...Option) (*Ledger, error) {
	values, err := store.Load()
	if err != nil {
		return nil, errors.Wrap(err, "load control numbers")
	}
	l := &Ledger{
		store:   store,
		durable: clone(values),
		working: clone(values),
		logger:  discardLogger(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Peek returns the last issued value for key, or Uninitialized.
func (l *Ledger) Peek(key string) int {
	if v, ok := l.working[key]; ok {
		return v
	}
	return Uninitialized
}

// Next returns Peek(key)+1, or 1 for a new key, and records it in the
// working set.
func (l *Ledger) Next(key string) int {
	next := 1
	if v, ok := l.working[key]; ok {
		next = v + 1
	}
	l.working[key] = next
	return next
}

// Save persists the working set. On failure the working set is reset to the
// last durable state so a later Save can never record numbers that belonged
// to the failed run.
func (l *Ledger) Save() error {
	snapshot := clone(l.working)
	if err := l.store.Save(snapshot); err != nil {
		l.logger.WithError(err).Error("control number save failed; discarding this run's increments")
		l.working = clone(l.durable)
		return errors.Wrap(err, "save control numbers")
	}
	l.durable = snapshot
	l.logger.WithField("keys", len(snapshot)).Debug("control numbers saved")
	return nil
}

// Discard drops every increment made since the last successful Save.
func (l *Ledger) Discard() {
	l.working = clone(l.durable)
}

// Keys returns the issued keys in sorted order.
func (l *Ledger) Keys() []string {
	keys := make([]string, 0, len(l.working))
	for k := range l.working {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Format renders an issued value as a field: zero-padded to width when width
// is greater than one, and prefixed with key when withPrefix is set.
func Format(key string, value, width int, withPrefix bool) string {
	s := strconv.Itoa(value)
	if width > 1 {
		for len(s) < width {
			s = "0" + s
		}
	}
	if withPrefix {
		return key + s
	}
	return s
}

func clone(m map[string]int) map[string]int {
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func discardLogger() logrus.FieldLogger {
	logger := logrus.New()
	logger.SetOutput(nopWriter{})
	return logger
}

type nopWriter struct{}

func (nopWriter) Write(p []byte) (int, error) { return len(p), nil }
