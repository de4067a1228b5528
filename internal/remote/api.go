// Package remote speaks to the journal backend: an opaque entry collection
// plus blob storage behind an HTTP API.
package remote

import (
	"context"

	"github.com/aldenvall/inkpress/internal/models"
)

// UpsertResult reports what an upsert did.
type UpsertResult struct {
	Action string `json:"action"` // models.ActionCreated or models.ActionUpdated
	ID     string `json:"id"`
}

// RemoveResult reports what a removal did.
type RemoveResult struct {
	Action string `json:"action"` // models.ActionDeleted or models.ActionNotFound
}

// API is the backend surface the sync pipeline consumes. The pipeline
// depends on this interface rather than the concrete *Client so tests can
// substitute a fake.
type API interface {
	// GenerateUploadURL requests a fresh upload destination for one blob.
	GenerateUploadURL(ctx context.Context) (string, error)
	// UploadPDF PUTs data to an upload destination and returns the storage ID.
	UploadPDF(ctx context.Context, uploadURL string, data []byte) (string, error)
	// DeleteBlob removes a stored blob.
	DeleteBlob(ctx context.Context, storageID string) error
	// GetEntry returns the record for slug, or nil when none exists.
	GetEntry(ctx context.Context, slug string) (*models.Record, error)
	// UpsertEntry inserts or patches the record keyed by its slug.
	UpsertEntry(ctx context.Context, rec models.Record) (UpsertResult, error)
	// RemoveEntry deletes the record for slug.
	RemoveEntry(ctx context.Context, slug string) (RemoveResult, error)
	// ListEntries returns records, optionally only published ones, in
	// descending publish-date order.
	ListEntries(ctx context.Context, publishedOnly bool) ([]models.Record, error)
	// ListSlugs returns every slug the backend knows.
	ListSlugs(ctx context.Context) ([]string, error)
}

var _ API = (*Client)(nil)
