// Package diagram renders mermaid blocks to images through the external
// mermaid CLI, deduplicated by content hash, cached on disk, and bounded to
// a fixed number of concurrent renders.
package diagram

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/aldenvall/inkpress/internal/models"
)

// Runner executes an external command. Tests substitute it for the real
// mermaid binary.
type Runner func(ctx context.Context, name string, args ...string) error

// CommandRunner is the production Runner backed by os/exec.
func CommandRunner(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("%s timed out: %w", name, ctx.Err())
		}
		return fmt.Errorf("%s: %w: %s", name, err, bytes.TrimSpace(out))
	}
	return nil
}

// Renderer renders diagram blocks into Dir, one image per content hash.
// The directory is a cache: an existing image means the block was rendered
// on an earlier run and the subprocess is never spawned for it. Nothing
// evicts the cache; it only grows.
type Renderer struct {
	Bin     string
	Dir     string
	Workers int
	Timeout time.Duration
	Run     Runner
	Logger  *slog.Logger
}

// New returns a Renderer with the default pool size and per-render timeout.
func New(bin, dir string, logger *slog.Logger) *Renderer {
	return &Renderer{
		Bin:     bin,
		Dir:     dir,
		Workers: 4,
		Timeout: 30 * time.Second,
		Run:     CommandRunner,
		Logger:  logger,
	}
}

// ImagePath returns where the rendered image for hash lives.
func (r *Renderer) ImagePath(hash string) string {
	return filepath.Join(r.Dir, hash+".png")
}

// RenderAll renders every unique block exactly once and returns a complete
// hash-to-success map. It returns only after the whole pool has drained, so
// callers can treat the map as a barrier. A failed render never aborts its
// siblings.
func (r *Renderer) RenderAll(ctx context.Context, blocks []models.Diagram) map[string]bool {
	results := make(map[string]bool, len(blocks))
	if err := os.MkdirAll(r.Dir, 0o755); err != nil {
		r.Logger.Warn("diagram: cache dir", slog.String("error", err.Error()))
		return results
	}

	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(r.Workers)

	seen := make(map[string]struct{}, len(blocks))
	for _, d := range blocks {
		if _, dup := seen[d.Hash]; dup {
			continue
		}
		seen[d.Hash] = struct{}{}

		if _, err := os.Stat(r.ImagePath(d.Hash)); err == nil {
			results[d.Hash] = true
			r.Logger.Debug("diagram: cache hit", slog.String("hash", d.Hash))
			continue
		}

		d := d
		g.Go(func() error {
			ok := r.renderOne(ctx, d)
			mu.Lock()
			results[d.Hash] = ok
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// renderOne writes the diagram source to a temp file and invokes the
// external CLI under the configured timeout. The temp file is removed on
// every path; a failed render also removes any partial image so it cannot
// masquerade as a cache hit next run.
func (r *Renderer) renderOne(ctx context.Context, d models.Diagram) bool {
	tmp, err := os.CreateTemp("", "inkpress-diagram-*.mmd")
	if err != nil {
		r.Logger.Warn("diagram: create temp", slog.String("error", err.Error()))
		return false
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(d.Source); err != nil {
		tmp.Close()
		r.Logger.Warn("diagram: write temp", slog.String("error", err.Error()))
		return false
	}
	if err := tmp.Close(); err != nil {
		return false
	}

	out := r.ImagePath(d.Hash)
	cctx, cancel := context.WithTimeout(ctx, r.Timeout)
	defer cancel()

	if err := r.Run(cctx, r.Bin, "-i", tmp.Name(), "-o", out); err != nil {
		_ = os.Remove(out)
		r.Logger.Warn("diagram: render failed",
			slog.String("hash", d.Hash),
			slog.String("error", err.Error()))
		return false
	}
	return true
}
