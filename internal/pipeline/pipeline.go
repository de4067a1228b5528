// Package pipeline orchestrates one sync run end to end: parse all sources,
// render diagrams as a batch, fan out the per-entry convert/compile/upload
// work under a bounded pool, and finish with the deletion sweep.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/aldenvall/inkpress/internal/diagram"
	"github.com/aldenvall/inkpress/internal/models"
	"github.com/aldenvall/inkpress/internal/remote"
	"github.com/aldenvall/inkpress/internal/source"
	"github.com/aldenvall/inkpress/internal/typst"
)

// Pipeline wires the stages of a sync run together.
type Pipeline struct {
	ContentDir string
	// DiagramDir is the diagram image directory relative to the compile
	// workdir; the converter embeds image paths against it.
	DiagramDir string
	Renderer   *diagram.Renderer
	Compiler   *typst.Compiler
	API        remote.API
	Workers    int
	Logger     *slog.Logger
}

// Run executes one full sync. Per-entry failures land in the summary's
// error bucket and never abort siblings; only being unable to read the
// content directory at all is a run-level error.
func (p *Pipeline) Run(ctx context.Context) (models.Summary, error) {
	var sum models.Summary

	paths, err := source.List(p.ContentDir)
	if err != nil {
		return sum, err
	}

	entries := p.parseAll(paths, &sum)

	// All diagrams across all files render as one deduplicated batch, and
	// the pool fully drains before any conversion starts.
	var blocks []models.Diagram
	for _, e := range entries {
		blocks = append(blocks, e.Diagrams...)
	}
	rendered := p.Renderer.RenderAll(ctx, blocks)

	results := make([]models.Result, len(entries))
	var g errgroup.Group
	g.SetLimit(p.Workers)
	for i, e := range entries {
		i, e := i, e
		g.Go(func() error {
			results[i] = p.processEntry(ctx, e, rendered)
			return nil
		})
	}
	_ = g.Wait()

	local := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		local[e.Slug] = struct{}{}
	}
	for _, r := range results {
		switch {
		case r.Err != nil:
			p.Logger.Error("sync: entry failed",
				slog.String("slug", r.Slug),
				slog.String("error", r.Err.Error()))
			sum.Errors = append(sum.Errors, r)
		case r.Action == models.ActionCreated:
			sum.Created++
			p.Logger.Info("sync: created", slog.String("slug", r.Slug))
		default:
			sum.Updated++
			p.Logger.Info("sync: updated", slog.String("slug", r.Slug))
		}
	}

	p.sweep(ctx, local, &sum)
	return sum, nil
}

// parseAll reads and parses every source file. Parse failures join the
// error bucket immediately; the rest of the run continues without them.
func (p *Pipeline) parseAll(paths []string, sum *models.Summary) []*models.Entry {
	var entries []*models.Entry
	seen := make(map[string]string, len(paths))

	for _, path := range paths {
		name := filepath.Base(path)
		data, err := os.ReadFile(path)
		if err != nil {
			sum.Errors = append(sum.Errors, models.Result{Slug: name, Err: err})
			p.Logger.Error("sync: read failed", slog.String("file", name), slog.String("error", err.Error()))
			continue
		}
		e, err := source.ParseFile(path, data)
		if err != nil {
			sum.Errors = append(sum.Errors, models.Result{Slug: name, Err: err})
			p.Logger.Error("sync: parse failed", slog.String("file", name), slog.String("error", err.Error()))
			continue
		}
		if prev, dup := seen[e.Slug]; dup {
			err := fmt.Errorf("slug %q already used by %s", e.Slug, prev)
			sum.Errors = append(sum.Errors, models.Result{Slug: name, Err: err})
			p.Logger.Error("sync: duplicate slug", slog.String("file", name), slog.String("error", err.Error()))
			continue
		}
		seen[e.Slug] = name
		entries = append(entries, e)
	}
	return entries
}

// processEntry runs one entry's strictly sequential pipeline: convert,
// compile, upload, upsert, and drop the superseded blob. Any failure is
// recorded on the result and stops only this entry.
func (p *Pipeline) processEntry(ctx context.Context, e *models.Entry, rendered map[string]bool) models.Result {
	res := models.Result{Slug: e.Slug}

	converted := typst.Convert(e.Body, typst.Options{
		DiagramDir: p.DiagramDir,
		Rendered:   rendered,
	})
	doc := typst.Document(e.Title, e.PublishDate, converted)

	pdfPath, err := p.Compiler.Compile(ctx, doc, e.Slug)
	if err != nil {
		res.Err = err
		return res
	}
	pdf, err := os.ReadFile(pdfPath)
	if err != nil {
		res.Err = fmt.Errorf("read pdf: %w", err)
		return res
	}

	uploadURL, err := p.API.GenerateUploadURL(ctx)
	if err != nil {
		res.Err = err
		return res
	}
	storageID, err := p.API.UploadPDF(ctx, uploadURL, pdf)
	if err != nil {
		res.Err = err
		return res
	}

	prev, err := p.API.GetEntry(ctx, e.Slug)
	if err != nil {
		res.Err = err
		return res
	}

	up, err := p.API.UpsertEntry(ctx, models.Record{
		Slug:        e.Slug,
		Title:       e.Title,
		Description: e.Description,
		Body:        e.Body,
		StorageID:   storageID,
		PublishDate: e.PublishDate,
		Published:   e.Published,
		Featured:    e.Featured,
		Tags:        e.Tags,
		Category:    e.Category,
		FileSize:    int64(len(pdf)),
		Checksum:    e.Checksum,
		SyncedAt:    time.Now().UTC(),
	})
	if err != nil {
		res.Err = err
		return res
	}
	res.Action = up.Action

	// The storage pointer changed, so the previous PDF is now orphaned.
	// Losing this delete leaks a blob but never corrupts the record.
	if prev != nil && prev.StorageID != "" && prev.StorageID != storageID {
		if err := p.API.DeleteBlob(ctx, prev.StorageID); err != nil {
			p.Logger.Warn("sync: stale blob not deleted",
				slog.String("slug", e.Slug),
				slog.String("error", err.Error()))
		}
	}
	return res
}

// sweep removes remote entries that no longer have a local source file. It
// runs once, after the fan-out has fully drained. A failed listing skips
// the sweep outright; the per-entry work already stands.
func (p *Pipeline) sweep(ctx context.Context, local map[string]struct{}, sum *models.Summary) {
	slugs, err := p.API.ListSlugs(ctx)
	if err != nil {
		p.Logger.Warn("sweep: listing remote slugs failed, skipping",
			slog.String("error", err.Error()))
		return
	}

	for _, slug := range slugs {
		if _, ok := local[slug]; ok {
			continue
		}
		rec, err := p.API.GetEntry(ctx, slug)
		if err == nil && rec != nil && rec.StorageID != "" {
			if err := p.API.DeleteBlob(ctx, rec.StorageID); err != nil {
				p.Logger.Warn("sweep: blob delete failed",
					slog.String("slug", slug),
					slog.String("error", err.Error()))
			}
		}
		if _, err := p.API.RemoveEntry(ctx, slug); err != nil {
			p.Logger.Warn("sweep: remove failed",
				slog.String("slug", slug),
				slog.String("error", err.Error()))
			continue
		}
		sum.Deleted++
		p.Logger.Info("sweep: deleted", slog.String("slug", slug))
	}
}
