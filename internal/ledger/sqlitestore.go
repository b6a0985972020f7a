package ledger

import (
	"database/sql"

	// sqlite3 driver
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

// SQLiteStore keeps control numbers in a single-table SQLite database. Save
// runs in one transaction and never lowers a stored value, so a stale
// working set cannot roll a key backwards.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLiteStore opens (creating if needed) the database at path.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, errors.Wrapf(err, "open ledger database %s", path)
	}
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS control_numbers (
			id         TEXT PRIMARY KEY,
			value      INTEGER NOT NULL,
			updated_at TEXT NOT NULL DEFAULT (datetime('now'))
		)`)
	return errors.Wrap(err, "migrate ledger database")
}

// Load returns every stored key.
func (s *SQLiteStore) Load() (map[string]int, error) {
	rows, err := s.db.Query(`SELECT id, value FROM control_numbers`)
	if err != nil {
		return nil, errors.Wrap(err, "query control numbers")
	}
	defer rows.Close()

	values := map[string]int{}
	for rows.Next() {
		var (
			id    string
			value int
		)
		if err := rows.Scan(&id, &value); err != nil {
			return nil, errors.Wrap(err, "scan control number")
		}
		values[id] = value
	}
	return values, errors.Wrap(rows.Err(), "read control numbers")
}

// Save upserts every key in one transaction.
func (s *SQLiteStore) Save(values map[string]int) error {
	tx, err := s.db.Begin()
	if err != nil {
		return errors.Wrap(err, "begin ledger transaction")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.Prepare(`
		INSERT INTO control_numbers (id, value) VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET value = excluded.value, updated_at = datetime('now')
		WHERE excluded.value > control_numbers.value`)
	if err != nil {
		return errors.Wrap(err, "prepare ledger upsert")
	}
	defer stmt.Close()

	for id, value := range values {
		if _, err := stmt.Exec(id, value); err != nil {
			return errors.Wrapf(err, "upsert control number %s", id)
		}
	}
	return errors.Wrap(tx.Commit(), "commit ledger transaction")
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
