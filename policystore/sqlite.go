package policystore

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// SQLiteBackend keeps one row per agent. Save replaces the table inside a
// single transaction.
type SQLiteBackend struct {
	path string
}

var _ Backend = &SQLiteBackend{}

func NewSQLiteBackend(path string) *SQLiteBackend {
	return &SQLiteBackend{path: path}
}

const schema = `
CREATE TABLE IF NOT EXISTS policies (
    agent_id INTEGER PRIMARY KEY,
    policy BLOB NOT NULL
);`

func (b *SQLiteBackend) open() (*sql.DB, error) {
	db, err := sql.Open("sqlite", b.path+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

func (b *SQLiteBackend) Load() (Policies, bool, error) {
	// opening would create the file
	if _, err := os.Stat(b.path); errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	db, err := b.open()
	if err != nil {
		return nil, false, err
	}
	defer db.Close()

	rows, err := db.Query("SELECT agent_id, policy FROM policies")
	if err != nil {
		return nil, false, fmt.Errorf("query policies: %w", err)
	}
	defer rows.Close()

	out := make(Policies)
	for rows.Next() {
		var id int
		var blob []byte
		if err := rows.Scan(&id, &blob); err != nil {
			return nil, false, fmt.Errorf("scan policy: %w", err)
		}
		out[id] = blob
	}
	if err := rows.Err(); err != nil {
		return nil, false, err
	}
	return out, true, nil
}

func (b *SQLiteBackend) Save(p Policies) error {
	if dir := filepath.Dir(b.path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	db, err := b.open()
	if err != nil {
		return err
	}
	defer db.Close()

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM policies"); err != nil {
		return fmt.Errorf("clear policies: %w", err)
	}
	stmt, err := tx.Prepare("INSERT INTO policies (agent_id, policy) VALUES (?, ?)")
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()
	for id, blob := range p {
		if _, err := stmt.Exec(id, []byte(blob)); err != nil {
			return fmt.Errorf("insert policy %d: %w", id, err)
		}
	}
	return tx.Commit()
}
