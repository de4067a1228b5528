package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aldenvall/inkpress/internal/diagram"
	"github.com/aldenvall/inkpress/internal/models"
	"github.com/aldenvall/inkpress/internal/remote"
	"github.com/aldenvall/inkpress/internal/typst"
)

// fakeAPI is an in-memory backend double recording every call.
type fakeAPI struct {
	mu       sync.Mutex
	existing map[string]models.Record
	upserts  []models.Record
	blobDels []string
	removed  []string
	slugs    []string
	slugsErr error
	uploads  atomic.Int32
}

var _ remote.API = (*fakeAPI)(nil)

func (f *fakeAPI) GenerateUploadURL(ctx context.Context) (string, error) {
	n := f.uploads.Add(1)
	return fmt.Sprintf("/up/%d", n), nil
}

func (f *fakeAPI) UploadPDF(ctx context.Context, uploadURL string, data []byte) (string, error) {
	return "blob-" + strings.TrimPrefix(uploadURL, "/up/"), nil
}

func (f *fakeAPI) DeleteBlob(ctx context.Context, storageID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.blobDels = append(f.blobDels, storageID)
	return nil
}

func (f *fakeAPI) GetEntry(ctx context.Context, slug string) (*models.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if rec, ok := f.existing[slug]; ok {
		cp := rec
		return &cp, nil
	}
	return nil, nil
}

func (f *fakeAPI) UpsertEntry(ctx context.Context, rec models.Record) (remote.UpsertResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	action := models.ActionCreated
	if _, ok := f.existing[rec.Slug]; ok {
		action = models.ActionUpdated
	}
	f.upserts = append(f.upserts, rec)
	return remote.UpsertResult{Action: action, ID: rec.Slug}, nil
}

func (f *fakeAPI) RemoveEntry(ctx context.Context, slug string) (remote.RemoveResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, slug)
	return remote.RemoveResult{Action: models.ActionDeleted}, nil
}

func (f *fakeAPI) ListEntries(ctx context.Context, publishedOnly bool) ([]models.Record, error) {
	return nil, nil
}

func (f *fakeAPI) ListSlugs(ctx context.Context) ([]string, error) {
	if f.slugsErr != nil {
		return nil, f.slugsErr
	}
	return f.slugs, nil
}

type testEnv struct {
	p       *Pipeline
	api     *fakeAPI
	renders *atomic.Int32
}

func newTestEnv(t *testing.T, api *fakeAPI, files map[string]string) *testEnv {
	t.Helper()

	contentDir := t.TempDir()
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(contentDir, name), []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	workDir := t.TempDir()

	var renders atomic.Int32
	renderer := diagram.New("mmdc", filepath.Join(workDir, "diagrams"), logger)
	renderer.Run = func(ctx context.Context, name string, args ...string) error {
		renders.Add(1)
		return os.WriteFile(args[3], []byte("png"), 0o644)
	}

	compiler := typst.NewCompiler("typst", workDir)
	compiler.Run = func(ctx context.Context, name string, args ...string) error {
		if strings.Contains(args[1], "bad") {
			return errors.New("compile failed")
		}
		return os.WriteFile(args[2], []byte("%PDF"), 0o644)
	}

	return &testEnv{
		p: &Pipeline{
			ContentDir: contentDir,
			DiagramDir: "diagrams",
			Renderer:   renderer,
			Compiler:   compiler,
			API:        api,
			Workers:    2,
			Logger:     logger,
		},
		api:     api,
		renders: &renders,
	}
}

func TestRunCreatesEntries(t *testing.T) {
	api := &fakeAPI{}
	env := newTestEnv(t, api, map[string]string{
		"2024-01-01-alpha.md": "---\ntitle: Alpha\npublished: true\n---\nHello **world**\n",
		"2024-01-02-beta.md":  "---\ntitle: Beta\n---\nSecond entry\n",
	})

	sum, err := env.p.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if sum.Created != 2 || sum.Updated != 0 || len(sum.Errors) != 0 {
		t.Fatalf("summary = %+v", sum)
	}
	if len(api.upserts) != 2 {
		t.Fatalf("upserts = %d", len(api.upserts))
	}
	for _, rec := range api.upserts {
		if rec.StorageID == "" {
			t.Errorf("%s: storage id empty", rec.Slug)
		}
		if rec.Checksum == "" {
			t.Errorf("%s: checksum empty", rec.Slug)
		}
		if rec.FileSize == 0 {
			t.Errorf("%s: file size zero", rec.Slug)
		}
		if rec.SyncedAt.IsZero() {
			t.Errorf("%s: synced_at zero", rec.Slug)
		}
	}
}

func TestRunUpdateDeletesStaleBlob(t *testing.T) {
	api := &fakeAPI{existing: map[string]models.Record{
		"alpha": {Slug: "alpha", StorageID: "old-blob"},
	}}
	env := newTestEnv(t, api, map[string]string{
		"2024-01-01-alpha.md": "---\ntitle: Alpha\n---\nrevised\n",
	})

	sum, err := env.p.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if sum.Updated != 1 || sum.Created != 0 {
		t.Fatalf("summary = %+v", sum)
	}
	if len(api.blobDels) != 1 || api.blobDels[0] != "old-blob" {
		t.Errorf("stale blob deletes = %v", api.blobDels)
	}
}

func TestRunEntryFailureIsolation(t *testing.T) {
	api := &fakeAPI{}
	env := newTestEnv(t, api, map[string]string{
		"2024-01-01-bad.md":  "---\ntitle: Bad\n---\nwill not compile\n",
		"2024-01-02-good.md": "---\ntitle: Good\n---\nfine\n",
	})

	sum, err := env.p.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if sum.Created != 1 {
		t.Errorf("created = %d, want 1", sum.Created)
	}
	if len(sum.Errors) != 1 || sum.Errors[0].Slug != "bad" {
		t.Errorf("errors = %+v", sum.Errors)
	}
	if len(api.upserts) != 1 || api.upserts[0].Slug != "good" {
		t.Errorf("upserts = %+v", api.upserts)
	}
}

func TestRunDuplicateSlug(t *testing.T) {
	api := &fakeAPI{}
	env := newTestEnv(t, api, map[string]string{
		"2024-01-01-alpha.md": "---\ntitle: First\n---\na\n",
		"2024-01-02-other.md": "---\nslug: alpha\n---\nb\n",
	})

	sum, err := env.p.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if sum.Created != 1 || len(sum.Errors) != 1 {
		t.Fatalf("summary = %+v", sum)
	}
	if !strings.Contains(sum.Errors[0].Err.Error(), "alpha") {
		t.Errorf("error should name the slug: %v", sum.Errors[0].Err)
	}
}

func TestRunSweepRemovesOrphans(t *testing.T) {
	api := &fakeAPI{
		existing: map[string]models.Record{
			"ghost": {Slug: "ghost", StorageID: "ghost-blob"},
		},
		slugs: []string{"alpha", "ghost"},
	}
	env := newTestEnv(t, api, map[string]string{
		"2024-01-01-alpha.md": "---\ntitle: Alpha\n---\na\n",
	})

	sum, err := env.p.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if sum.Deleted != 1 {
		t.Errorf("deleted = %d, want 1", sum.Deleted)
	}
	if len(api.removed) != 1 || api.removed[0] != "ghost" {
		t.Errorf("removed = %v", api.removed)
	}
	found := false
	for _, id := range api.blobDels {
		if id == "ghost-blob" {
			found = true
		}
	}
	if !found {
		t.Errorf("orphan blob not deleted: %v", api.blobDels)
	}
}

func TestRunSweepSkippedWhenListingFails(t *testing.T) {
	api := &fakeAPI{slugsErr: errors.New("backend down")}
	env := newTestEnv(t, api, map[string]string{
		"2024-01-01-alpha.md": "---\ntitle: Alpha\n---\na\n",
	})

	sum, err := env.p.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if sum.Deleted != 0 || len(api.removed) != 0 {
		t.Errorf("sweep ran despite listing failure: %+v removed=%v", sum, api.removed)
	}
	if sum.Created != 1 {
		t.Errorf("per-entry work should still stand: %+v", sum)
	}
}

func TestRunBoundedConcurrency(t *testing.T) {
	files := make(map[string]string, 6)
	for i := 0; i < 6; i++ {
		files[fmt.Sprintf("2024-01-0%d-entry%d.md", i+1, i)] = fmt.Sprintf("---\ntitle: Entry %d\n---\nbody\n", i)
	}
	api := &fakeAPI{}
	env := newTestEnv(t, api, files)

	var mu sync.Mutex
	inflight, peak := 0, 0
	env.p.Compiler.Run = func(ctx context.Context, name string, args ...string) error {
		mu.Lock()
		inflight++
		if inflight > peak {
			peak = inflight
		}
		mu.Unlock()

		time.Sleep(20 * time.Millisecond)

		mu.Lock()
		inflight--
		mu.Unlock()
		return os.WriteFile(args[2], []byte("%PDF"), 0o644)
	}

	sum, err := env.p.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if sum.Created != 6 {
		t.Fatalf("summary = %+v", sum)
	}
	if peak > env.p.Workers {
		t.Errorf("peak concurrency = %d, want <= %d", peak, env.p.Workers)
	}
}

func TestRunSharedDiagramRenderedOnce(t *testing.T) {
	diagramBody := "---\ntitle: T\n---\n\n```mermaid\ngraph TD\nA-->B\n```\n"
	api := &fakeAPI{}
	env := newTestEnv(t, api, map[string]string{
		"2024-01-01-one.md": diagramBody,
		"2024-01-02-two.md": diagramBody,
	})

	sum, err := env.p.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if sum.Created != 2 {
		t.Fatalf("summary = %+v", sum)
	}
	if got := env.renders.Load(); got != 1 {
		t.Errorf("renders = %d, want 1 for identical blocks", got)
	}
}
