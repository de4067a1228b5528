// Package server implements the development backend: the HTTP API the sync
// pipeline talks to, over a SQLite entry collection and a filesystem blob
// store. Production deployments point the pipeline at a hosted backend with
// the same surface; this one exists for local work and end-to-end tests.
package server

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/aldenvall/inkpress/internal/apperr"
	"github.com/aldenvall/inkpress/internal/models"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS entries (
	slug         TEXT PRIMARY KEY,
	title        TEXT NOT NULL DEFAULT '',
	description  TEXT NOT NULL DEFAULT '',
	body         TEXT NOT NULL DEFAULT '',
	storage_id   TEXT NOT NULL DEFAULT '',
	file_url     TEXT NOT NULL DEFAULT '',
	publish_date TEXT NOT NULL DEFAULT '',
	published    INTEGER NOT NULL DEFAULT 0,
	featured     INTEGER NOT NULL DEFAULT 0,
	tags         TEXT NOT NULL DEFAULT '[]',
	category     TEXT NOT NULL DEFAULT '',
	page_count   INTEGER NOT NULL DEFAULT 0,
	file_size    INTEGER NOT NULL DEFAULT 0,
	checksum     TEXT NOT NULL DEFAULT '',
	synced_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_entries_published_date
	ON entries(published, publish_date DESC);
`

// Store wraps a sql.DB with entry-collection operations.
type Store struct {
	conn *sql.DB
}

// OpenStore opens (or creates) the SQLite database and applies the schema.
func OpenStore(dsn string) (*Store, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("server: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("server: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("server: apply schema: %w", err)
	}
	return &Store{conn: conn}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

// Upsert inserts or replaces the record keyed by its slug and reports which
// of the two happened.
func (s *Store) Upsert(rec models.Record) (string, error) {
	tx, err := s.conn.Begin()
	if err != nil {
		return "", fmt.Errorf("server: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	var exists int
	action := models.ActionCreated
	if err := tx.QueryRow(`SELECT 1 FROM entries WHERE slug = ?`, rec.Slug).Scan(&exists); err == nil {
		action = models.ActionUpdated
	}

	tagsJSON, _ := json.Marshal(rec.Tags)
	syncedAt := rec.SyncedAt
	if syncedAt.IsZero() {
		syncedAt = time.Now().UTC()
	}

	_, err = tx.Exec(`
		INSERT INTO entries (slug, title, description, body, storage_id, file_url,
			publish_date, published, featured, tags, category, page_count,
			file_size, checksum, synced_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(slug) DO UPDATE SET
			title        = excluded.title,
			description  = excluded.description,
			body         = excluded.body,
			storage_id   = excluded.storage_id,
			file_url     = excluded.file_url,
			publish_date = excluded.publish_date,
			published    = excluded.published,
			featured     = excluded.featured,
			tags         = excluded.tags,
			category     = excluded.category,
			page_count   = excluded.page_count,
			file_size    = excluded.file_size,
			checksum     = excluded.checksum,
			synced_at    = excluded.synced_at
	`, rec.Slug, rec.Title, rec.Description, rec.Body, rec.StorageID, rec.FileURL,
		rec.PublishDate, rec.Published, rec.Featured, string(tagsJSON), rec.Category,
		rec.PageCount, rec.FileSize, rec.Checksum, syncedAt)
	if err != nil {
		return "", fmt.Errorf("server: upsert entry: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("server: commit: %w", err)
	}
	return action, nil
}

const recordColumns = `slug, title, description, body, storage_id, file_url,
	publish_date, published, featured, tags, category, page_count, file_size,
	checksum, synced_at`

func scanRecord(row interface{ Scan(...any) error }) (models.Record, error) {
	var rec models.Record
	var tagsJSON string
	err := row.Scan(&rec.Slug, &rec.Title, &rec.Description, &rec.Body,
		&rec.StorageID, &rec.FileURL, &rec.PublishDate, &rec.Published,
		&rec.Featured, &tagsJSON, &rec.Category, &rec.PageCount, &rec.FileSize,
		&rec.Checksum, &rec.SyncedAt)
	if err != nil {
		return rec, err
	}
	_ = json.Unmarshal([]byte(tagsJSON), &rec.Tags)
	return rec, nil
}

// Get returns the record for slug, or apperr.ErrNotFound.
func (s *Store) Get(slug string) (*models.Record, error) {
	row := s.conn.QueryRow(`SELECT `+recordColumns+` FROM entries WHERE slug = ?`, slug)
	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("server: get entry: %w", err)
	}
	return &rec, nil
}

// List returns records in descending publish-date order, optionally only
// published ones.
func (s *Store) List(publishedOnly bool) ([]models.Record, error) {
	query := `SELECT ` + recordColumns + ` FROM entries`
	if publishedOnly {
		query += ` WHERE published = 1`
	}
	query += ` ORDER BY publish_date DESC, slug ASC`

	rows, err := s.conn.Query(query)
	if err != nil {
		return nil, fmt.Errorf("server: list entries: %w", err)
	}
	defer rows.Close()

	var out []models.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Slugs returns every stored slug.
func (s *Store) Slugs() ([]string, error) {
	rows, err := s.conn.Query(`SELECT slug FROM entries ORDER BY slug`)
	if err != nil {
		return nil, fmt.Errorf("server: list slugs: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var slug string
		if err := rows.Scan(&slug); err != nil {
			return nil, err
		}
		out = append(out, slug)
	}
	return out, rows.Err()
}

// Delete removes the record for slug and reports whether one existed.
func (s *Store) Delete(slug string) (bool, error) {
	res, err := s.conn.Exec(`DELETE FROM entries WHERE slug = ?`, slug)
	if err != nil {
		return false, fmt.Errorf("server: delete entry: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}
