package source

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aldenvall/inkpress/internal/checksum"
)

func TestParseFileDerivesFromFilename(t *testing.T) {
	raw := []byte("---\ntitle: Hello World\npublished: true\ntags:\n  - go\n---\n\nBody text.\n")
	e, err := ParseFile("/content/2024-03-10-hello-world.md", raw)
	if err != nil {
		t.Fatal(err)
	}
	if e.Slug != "hello-world" {
		t.Errorf("slug = %q, want hello-world", e.Slug)
	}
	if e.PublishDate != "2024-03-10" {
		t.Errorf("publishDate = %q, want 2024-03-10", e.PublishDate)
	}
	if e.Title != "Hello World" {
		t.Errorf("title = %q", e.Title)
	}
	if !e.Published {
		t.Error("published = false, want true")
	}
	if len(e.Tags) != 1 || e.Tags[0] != "go" {
		t.Errorf("tags = %v", e.Tags)
	}
	if e.Body != "Body text.\n" {
		t.Errorf("body = %q", e.Body)
	}
	if e.Checksum != checksum.Sum(raw) {
		t.Error("checksum does not cover raw bytes")
	}
}

func TestParseFileFrontmatterOverrides(t *testing.T) {
	raw := []byte("---\nslug: custom-slug\npublishDate: 2023-01-01\n---\nbody")
	e, err := ParseFile("/content/2024-03-10-original.md", raw)
	if err != nil {
		t.Fatal(err)
	}
	if e.Slug != "custom-slug" {
		t.Errorf("slug = %q, want custom-slug", e.Slug)
	}
	if e.PublishDate != "2023-01-01" {
		t.Errorf("publishDate = %q, want 2023-01-01", e.PublishDate)
	}
}

func TestParseFileNoFrontmatter(t *testing.T) {
	raw := []byte("# Heading\n\nJust prose.\n")
	e, err := ParseFile("/content/plain-note.md", raw)
	if err != nil {
		t.Fatal(err)
	}
	if e.Slug != "plain-note" {
		t.Errorf("slug = %q", e.Slug)
	}
	if e.Title != "Plain note" {
		t.Errorf("title = %q, want Plain note", e.Title)
	}
	if e.PublishDate != "" {
		t.Errorf("publishDate = %q, want empty", e.PublishDate)
	}
	if e.Body != string(raw) {
		t.Errorf("body = %q", e.Body)
	}
}

func TestParseFileMalformedYAMLFallsBack(t *testing.T) {
	raw := []byte("---\ntitle: \"unterminated\n---\nbody\n")
	e, err := ParseFile("/content/2024-01-01-broken.md", raw)
	if err != nil {
		t.Fatal(err)
	}
	// The whole text becomes the body and the filename supplies the rest.
	if e.Slug != "broken" {
		t.Errorf("slug = %q", e.Slug)
	}
	if e.Title != "Broken" {
		t.Errorf("title = %q", e.Title)
	}
	if !strings.Contains(e.Body, "---") {
		t.Errorf("body should retain the raw text, got %q", e.Body)
	}
}

func TestExtractDiagramsDedupesByContent(t *testing.T) {
	body := "intro\n\n```mermaid\ngraph TD\nA-->B\n```\n\nmiddle\n\n```mermaid\ngraph TD\nA-->B\n```\n\nend\n"
	out, diagrams := extractDiagrams(body)
	if len(diagrams) != 1 {
		t.Fatalf("diagrams = %d, want 1", len(diagrams))
	}
	tok := DiagramToken(diagrams[0].Hash)
	if strings.Count(out, tok) != 2 {
		t.Errorf("token should appear twice, got %q", out)
	}
	if diagrams[0].Source != "graph TD\nA-->B" {
		t.Errorf("source = %q", diagrams[0].Source)
	}
	if strings.Contains(out, "```mermaid") {
		t.Error("mermaid fence left in body")
	}
}

func TestListReturnsSortedMarkdownOnly(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.md", "a.md", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "sub"), 0o755); err != nil {
		t.Fatal(err)
	}

	paths, err := List(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(paths) != 2 {
		t.Fatalf("paths = %v, want 2 entries", paths)
	}
	if filepath.Base(paths[0]) != "a.md" || filepath.Base(paths[1]) != "b.md" {
		t.Errorf("paths not sorted: %v", paths)
	}
}
