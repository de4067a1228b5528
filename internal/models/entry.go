// Package models defines the domain types for inkpress.
package models

import "time"

// Entry represents one journal source file parsed from the content directory.
// Body holds the markdown exactly as authored; the transpiled Typst form is
// never stored.
type Entry struct {
	Slug        string    `json:"slug"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Body        string    `json:"body"`
	PublishDate string    `json:"publishDate,omitempty"`
	Published   bool      `json:"published"`
	Featured    bool      `json:"featured,omitempty"`
	Tags        []string  `json:"tags,omitempty"`
	Category    string    `json:"category,omitempty"`
	Checksum    string    `json:"checksum"`
	SourcePath  string    `json:"-"`
	Diagrams    []Diagram `json:"-"`
}

// Diagram is one extracted mermaid block. Hash is the hex SHA-256 of the
// trimmed source text and doubles as the dedup key and cache filename stem.
type Diagram struct {
	Hash   string
	Source string
}

// Record is the remote representation of an entry as stored by the backend.
type Record struct {
	Slug        string    `json:"slug"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Body        string    `json:"body"`
	StorageID   string    `json:"storageId,omitempty"`
	FileURL     string    `json:"fileUrl,omitempty"`
	PublishDate string    `json:"publishDate,omitempty"`
	Published   bool      `json:"published"`
	Featured    bool      `json:"featured,omitempty"`
	Tags        []string  `json:"tags,omitempty"`
	Category    string    `json:"category,omitempty"`
	PageCount   int       `json:"pageCount,omitempty"`
	FileSize    int64     `json:"fileSize,omitempty"`
	Checksum    string    `json:"checksum,omitempty"`
	SyncedAt    time.Time `json:"syncedAt,omitempty"`
}

// Actions reported by the backend for mutating operations.
const (
	ActionCreated  = "created"
	ActionUpdated  = "updated"
	ActionDeleted  = "deleted"
	ActionNotFound = "not_found"
)

// Result records the outcome of one entry's sync pipeline.
type Result struct {
	Slug   string
	Action string // ActionCreated or ActionUpdated
	Err    error
}

// Summary is the per-run accounting printed at the end of a sync. Every
// attempted entry lands in exactly one bucket.
type Summary struct {
	Created int
	Updated int
	Deleted int
	Errors  []Result
}
