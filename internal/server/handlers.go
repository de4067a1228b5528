package server

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/aldenvall/inkpress/internal/apperr"
	"github.com/aldenvall/inkpress/internal/models"
)

// Handler holds API route handlers.
type Handler struct {
	store *Store
	blobs *BlobStore
	// publicURL is the base URL clients can reach this server on; upload
	// URLs and file URLs are minted against it.
	publicURL string
}

// NewHandler creates a new Handler.
func NewHandler(store *Store, blobs *BlobStore, publicURL string) *Handler {
	return &Handler{store: store, blobs: blobs, publicURL: publicURL}
}

// GenerateUploadURL handles POST /api/upload-url. Each call mints a fresh
// destination; the upload itself happens with a PUT to the returned URL.
func (h *Handler) GenerateUploadURL(w http.ResponseWriter, r *http.Request) {
	id := h.blobs.NewID()
	writeJSON(w, http.StatusOK, map[string]string{
		"url": h.publicURL + "/api/blobs/" + id,
	})
}

// PutBlob handles PUT /api/blobs/{id}.
func (h *Handler) PutBlob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	r.Body = http.MaxBytesReader(w, r.Body, 50<<20)
	data, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read body"))
		return
	}
	if len(data) == 0 {
		writeJSON(w, http.StatusBadRequest, errorBody("empty body"))
		return
	}
	if err := h.blobs.Put(id, data); err != nil {
		slog.Error("put blob failed", slog.String("id", id), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"storageId": id})
}

// GetBlob handles GET /api/blobs/{id}.
func (h *Handler) GetBlob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	data, err := h.blobs.Get(id)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		} else {
			slog.Error("get blob failed", slog.String("id", id), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// DeleteBlob handles DELETE /api/blobs/{id}.
func (h *Handler) DeleteBlob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.blobs.Delete(id); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		} else {
			slog.Error("delete blob failed", slog.String("id", id), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"action": models.ActionDeleted})
}

// UpsertEntry handles PUT /api/entries/{slug}. The slug in the URL wins over
// any slug in the body.
func (h *Handler) UpsertEntry(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	r.Body = http.MaxBytesReader(w, r.Body, 10<<20)

	var rec models.Record
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	rec.Slug = slug
	if rec.StorageID != "" {
		rec.FileURL = h.publicURL + "/api/blobs/" + rec.StorageID
	}

	action, err := h.store.Upsert(rec)
	if err != nil {
		slog.Error("upsert entry failed", slog.String("slug", slug), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"action": action, "id": slug})
}

// GetEntry handles GET /api/entries/{slug}.
func (h *Handler) GetEntry(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	rec, err := h.store.Get(slug)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		} else {
			slog.Error("get entry failed", slog.String("slug", slug), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// DeleteEntry handles DELETE /api/entries/{slug}. Deleting an absent entry
// is not an error; the response says which case occurred.
func (h *Handler) DeleteEntry(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	existed, err := h.store.Delete(slug)
	if err != nil {
		slog.Error("delete entry failed", slog.String("slug", slug), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	action := models.ActionDeleted
	if !existed {
		action = models.ActionNotFound
	}
	writeJSON(w, http.StatusOK, map[string]string{"action": action})
}

// ListEntries handles GET /api/entries with an optional published=true filter.
func (h *Handler) ListEntries(w http.ResponseWriter, r *http.Request) {
	publishedOnly := r.URL.Query().Get("published") == "true"
	recs, err := h.store.List(publishedOnly)
	if err != nil {
		slog.Error("list entries failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	if recs == nil {
		recs = []models.Record{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": recs})
}

// ListSlugs handles GET /api/slugs.
func (h *Handler) ListSlugs(w http.ResponseWriter, r *http.Request) {
	slugs, err := h.store.Slugs()
	if err != nil {
		slog.Error("list slugs failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	if slugs == nil {
		slugs = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"slugs": slugs})
}
