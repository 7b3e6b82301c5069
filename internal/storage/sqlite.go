package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/matsen/bibpage/internal/record"
	_ "modernc.org/sqlite"
)

// DB wraps a SQLite database connection.
type DB struct {
	db *sql.DB
}

// selectEntryFields contains the standard field list for SELECT queries.
const selectEntryFields = `pos, bib_type, key, author, author_list_json, title,
	url, doi, journal, date, file, note`

// OpenDB opens or creates a SQLite database at the given path.
func OpenDB(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite doesn't support concurrent writes

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &DB{db: db}, nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.db.Close()
}

// createSchema creates the database schema if it doesn't exist.
// Entries are keyed by source position because citation keys may repeat.
func createSchema(db *sql.DB) error {
	schema := `
		CREATE TABLE IF NOT EXISTS entries (
			pos INTEGER PRIMARY KEY,
			bib_type TEXT NOT NULL,
			key TEXT NOT NULL,
			author TEXT NOT NULL,
			author_list_json TEXT NOT NULL,
			title TEXT NOT NULL,
			url TEXT,
			doi TEXT,
			journal TEXT,
			date TEXT,
			file TEXT,
			note TEXT
		);

		CREATE INDEX IF NOT EXISTS idx_entries_key ON entries(key);
		CREATE INDEX IF NOT EXISTS idx_entries_doi ON entries(doi) WHERE doi IS NOT NULL;

		-- Full-text search over display fields (standalone, not external content)
		CREATE VIRTUAL TABLE IF NOT EXISTS entries_fts USING fts5(
			pos UNINDEXED,
			title,
			author,
			journal,
			note
		);
	`

	_, err := db.Exec(schema)
	return err
}

// ReplaceAll clears the database and stores coll in order.
// It returns the number of entries stored.
func (d *DB) ReplaceAll(coll record.Collection) (int, error) {
	tx, err := d.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM entries"); err != nil {
		return 0, fmt.Errorf("clearing entries table: %w", err)
	}
	if _, err := tx.Exec("DELETE FROM entries_fts"); err != nil {
		return 0, fmt.Errorf("clearing entries_fts table: %w", err)
	}

	entryStmt, err := tx.Prepare(`
		INSERT INTO entries (
			pos, bib_type, key, author, author_list_json, title,
			url, doi, journal, date, file, note
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("preparing entries insert: %w", err)
	}
	defer entryStmt.Close()

	ftsStmt, err := tx.Prepare(`
		INSERT INTO entries_fts (pos, title, author, journal, note)
		VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("preparing fts insert: %w", err)
	}
	defer ftsStmt.Close()

	for i, e := range coll {
		authorsJSON, err := json.Marshal(e.AuthorList)
		if err != nil {
			return 0, fmt.Errorf("encoding authors for %s: %w", e.Key, err)
		}

		_, err = entryStmt.Exec(
			i, e.BibType, e.Key, e.Author, string(authorsJSON), e.Title,
			nullable(e.URL), nullable(e.DOI), nullable(e.Journal),
			nullable(e.Date), nullable(e.File), nullable(e.Note),
		)
		if err != nil {
			return 0, fmt.Errorf("inserting entry %s: %w", e.Key, err)
		}

		_, err = ftsStmt.Exec(i, e.Title, e.Author, record.Str(e.Journal), record.Str(e.Note))
		if err != nil {
			return 0, fmt.Errorf("inserting fts for %s: %w", e.Key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing: %w", err)
	}
	return len(coll), nil
}

// RebuildFromJSONL clears the database and rebuilds it from a JSONL file.
func (d *DB) RebuildFromJSONL(jsonlPath string) (int, error) {
	coll, err := ReadJSONL(jsonlPath)
	if err != nil {
		return 0, fmt.Errorf("reading JSONL: %w", err)
	}
	return d.ReplaceAll(coll)
}

// GetByKey returns every entry with the given citation key, in source order.
func (d *DB) GetByKey(key string) (record.Collection, error) {
	rows, err := d.db.Query(`SELECT `+selectEntryFields+` FROM entries WHERE key = ? ORDER BY pos`, key)
	if err != nil {
		return nil, fmt.Errorf("getting %s: %w", key, err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

// Search performs a full-text search over title, author, journal and note.
// A limit of zero or less returns all matches.
func (d *DB) Search(query string, limit int) (record.Collection, error) {
	ftsQuery := prepareFTSQuery(query)
	if ftsQuery == "" {
		return record.Collection{}, nil
	}

	rows, err := d.db.Query(`
		SELECT `+selectEntryFields+`
		FROM entries
		WHERE pos IN (SELECT pos FROM entries_fts WHERE entries_fts MATCH ?)
		ORDER BY pos
		LIMIT ?`, ftsQuery, sqlLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("searching: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

// SearchField searches a single field: title, author, journal or note.
func (d *DB) SearchField(field, value string, limit int) (record.Collection, error) {
	switch field {
	case "title", "author", "journal", "note":
	default:
		return nil, fmt.Errorf("unknown search field: %s", field)
	}

	ftsQuery := prepareFTSQuery(value)
	if ftsQuery == "" {
		return record.Collection{}, nil
	}

	rows, err := d.db.Query(`
		SELECT `+selectEntryFields+`
		FROM entries
		WHERE pos IN (SELECT pos FROM entries_fts WHERE entries_fts MATCH ?)
		ORDER BY pos
		LIMIT ?`, field+" : ("+ftsQuery+")", sqlLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("searching %s: %w", field, err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

// ListAll returns all entries in source order, optionally limited.
func (d *DB) ListAll(limit int) (record.Collection, error) {
	rows, err := d.db.Query(`SELECT `+selectEntryFields+` FROM entries ORDER BY pos LIMIT ?`, sqlLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("listing entries: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

// Count returns the total number of entries.
func (d *DB) Count() (int, error) {
	var count int
	err := d.db.QueryRow("SELECT COUNT(*) FROM entries").Scan(&count)
	return count, err
}

// scanner interface for sql.Row and sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanEntry(s scanner) (record.Entry, error) {
	var e record.Entry
	var pos int
	var authorsJSON string
	var url, doi, journal, date, file, note sql.NullString

	err := s.Scan(
		&pos, &e.BibType, &e.Key, &e.Author, &authorsJSON, &e.Title,
		&url, &doi, &journal, &date, &file, &note,
	)
	if err != nil {
		return record.Entry{}, err
	}

	if err := json.Unmarshal([]byte(authorsJSON), &e.AuthorList); err != nil {
		return record.Entry{}, fmt.Errorf("parsing authors JSON for %s: %w", e.Key, err)
	}

	e.URL = fromNullable(url)
	e.DOI = fromNullable(doi)
	e.Journal = fromNullable(journal)
	e.Date = fromNullable(date)
	e.File = fromNullable(file)
	e.Note = fromNullable(note)

	return e, nil
}

func scanEntries(rows *sql.Rows) (record.Collection, error) {
	coll := record.Collection{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		coll = append(coll, e)
	}
	return coll, rows.Err()
}

// nullable converts an optional field to sql.NullString. An empty but
// present value stays non-NULL.
func nullable(p *string) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}

func fromNullable(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

// sqlLimit maps "no limit" to SQLite's -1.
func sqlLimit(limit int) int {
	if limit <= 0 {
		return -1
	}
	return limit
}

// prepareFTSQuery escapes special characters for FTS5 queries.
func prepareFTSQuery(query string) string {
	query = strings.TrimSpace(query)
	if query == "" {
		return query
	}

	// If query contains special chars, quote it
	if strings.ContainsAny(query, "\"*+-:(){}[]^~") {
		query = strings.ReplaceAll(query, "\"", "\"\"")
		return "\"" + query + "\""
	}

	return query
}
