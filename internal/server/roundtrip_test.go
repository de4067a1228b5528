package server

import (
	"context"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/aldenvall/inkpress/internal/models"
	"github.com/aldenvall/inkpress/internal/remote"
)

// The sync client and the dev backend speak the same surface; this drives the
// one through the other.
func TestClientAgainstRouter(t *testing.T) {
	dbFile, err := os.CreateTemp("", "inkpress-rt-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	store, err := OpenStore(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })

	blobs, err := NewBlobStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	// An empty public URL makes minted upload URLs relative, which the
	// client resolves against its own base.
	h := NewHandler(store, blobs, "")
	root := chi.NewRouter()
	root.Mount("/api", NewRouter(h, false, ""))

	srv := httptest.NewServer(root)
	defer srv.Close()

	ctx := context.Background()
	c := remote.NewClient(srv.URL, "")

	uploadURL, err := c.GenerateUploadURL(ctx)
	if err != nil {
		t.Fatal(err)
	}
	storageID, err := c.UploadPDF(ctx, uploadURL, []byte("%PDF"))
	if err != nil {
		t.Fatal(err)
	}
	if storageID == "" {
		t.Fatal("empty storage id")
	}

	up, err := c.UpsertEntry(ctx, models.Record{
		Slug:      "round-trip",
		Title:     "Round Trip",
		StorageID: storageID,
		Published: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	if up.Action != models.ActionCreated {
		t.Errorf("upsert action = %q", up.Action)
	}

	rec, err := c.GetEntry(ctx, "round-trip")
	if err != nil {
		t.Fatal(err)
	}
	if rec == nil || rec.Title != "Round Trip" || rec.StorageID != storageID {
		t.Errorf("record = %+v", rec)
	}

	slugs, err := c.ListSlugs(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(slugs) != 1 || slugs[0] != "round-trip" {
		t.Errorf("slugs = %v", slugs)
	}

	if err := c.DeleteBlob(ctx, storageID); err != nil {
		t.Fatal(err)
	}
	rm, err := c.RemoveEntry(ctx, "round-trip")
	if err != nil {
		t.Fatal(err)
	}
	if rm.Action != models.ActionDeleted {
		t.Errorf("remove action = %q", rm.Action)
	}

	rm, err = c.RemoveEntry(ctx, "round-trip")
	if err != nil {
		t.Fatal(err)
	}
	if rm.Action != models.ActionNotFound {
		t.Errorf("second remove action = %q", rm.Action)
	}

	absent, err := c.GetEntry(ctx, "round-trip")
	if err != nil || absent != nil {
		t.Errorf("after delete: rec=%+v err=%v", absent, err)
	}
}
