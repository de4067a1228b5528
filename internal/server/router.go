package server

import (
	"github.com/go-chi/chi/v5"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
func NewRouter(h *Handler, authEnabled bool, token string) chi.Router {
	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Blob storage.
	r.Post("/upload-url", h.GenerateUploadURL)
	r.Put("/blobs/{id}", h.PutBlob)
	r.Get("/blobs/{id}", h.GetBlob)
	r.Delete("/blobs/{id}", h.DeleteBlob)

	// Entry collection.
	r.Get("/entries", h.ListEntries)
	r.Put("/entries/{slug}", h.UpsertEntry)
	r.Get("/entries/{slug}", h.GetEntry)
	r.Delete("/entries/{slug}", h.DeleteEntry)
	r.Get("/slugs", h.ListSlugs)

	return r
}
