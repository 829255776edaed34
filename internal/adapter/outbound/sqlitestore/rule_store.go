// Package sqlitestore implements outbound.RuleTextStore backed by
// modernc.org/sqlite (SPEC_FULL.md §3), selected via rule_source.driver:
// sqlite (with rule_source.dsn as the database path). The driver is registered by its blank import and
// used through database/sql, the same pattern as cmd/query-kb/main.go in
// the retrieval pack's theRebelliousNerd-codenerd repo (sql.Open("sqlite", path)).
package sqlitestore

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/aegis-policy/aegis/internal/port/outbound"
)

const schema = `
CREATE TABLE IF NOT EXISTS rules (
	name TEXT PRIMARY KEY,
	text TEXT NOT NULL,
	doc TEXT NOT NULL DEFAULT '',
	attr_docs TEXT NOT NULL DEFAULT '{}'
);
`

// Store is a SQLite-backed outbound.RuleTextStore.
type Store struct {
	db *sql.DB
}

// Open creates (if needed) and connects to a SQLite rule database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite rule store: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create rules table: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database connection.
func (s *Store) Close() error { return s.db.Close() }

// LoadRules returns every persisted rule, ordered by name.
func (s *Store) LoadRules() ([]outbound.RuleSpec, error) {
	rows, err := s.db.Query(`SELECT name, text, doc, attr_docs FROM rules ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("query rules: %w", err)
	}
	defer rows.Close()

	var out []outbound.RuleSpec
	for rows.Next() {
		var spec outbound.RuleSpec
		var attrDocsJSON string
		if err := rows.Scan(&spec.Name, &spec.Text, &spec.Doc, &attrDocsJSON); err != nil {
			return nil, fmt.Errorf("scan rule row: %w", err)
		}
		spec.AttrDocs, err = decodeAttrDocs(attrDocsJSON)
		if err != nil {
			return nil, err
		}
		out = append(out, spec)
	}
	return out, rows.Err()
}

// SaveRule upserts one rule by name.
func (s *Store) SaveRule(spec outbound.RuleSpec) error {
	encoded, err := encodeAttrDocs(spec.AttrDocs)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(
		`INSERT INTO rules (name, text, doc, attr_docs) VALUES (?, ?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET text=excluded.text, doc=excluded.doc, attr_docs=excluded.attr_docs`,
		spec.Name, spec.Text, spec.Doc, encoded,
	)
	if err != nil {
		return fmt.Errorf("save rule %q: %w", spec.Name, err)
	}
	return nil
}

// DeleteRule removes a rule by name. Deleting an absent name is not an error.
func (s *Store) DeleteRule(name string) error {
	if _, err := s.db.Exec(`DELETE FROM rules WHERE name = ?`, name); err != nil {
		return fmt.Errorf("delete rule %q: %w", name, err)
	}
	return nil
}

var _ outbound.RuleTextStore = (*Store)(nil)
