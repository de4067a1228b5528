// Package source loads journal entries from the content directory: it
// sanitizes frontmatter, splits it from the markdown body, and extracts
// mermaid diagram blocks for out-of-band rendering.
package source

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"

	"github.com/aldenvall/inkpress/internal/checksum"
	"github.com/aldenvall/inkpress/internal/models"
)

var (
	datePrefixRe = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2})-(.+)$`)
	mermaidRe    = regexp.MustCompile("(?s)```mermaid[ \t]*\n(.*?)\n```")
)

// DiagramToken returns the placeholder embedded in an entry body in place of
// the mermaid block with the given hash. The control-character framing keeps
// tokens clear of both the escaping and the structural phases of conversion,
// and out of anything an author could plausibly type.
func DiagramToken(hash string) string {
	return "\x01dgm:" + hash + "\x01"
}

// frontmatter mirrors the recognized fields of an entry's YAML block.
type frontmatter struct {
	Title       string   `yaml:"title"`
	Slug        string   `yaml:"slug"`
	Description string   `yaml:"description"`
	Tags        []string `yaml:"tags"`
	PublishDate string   `yaml:"publishDate"`
	Published   bool     `yaml:"published"`
	Featured    bool     `yaml:"featured"`
	Category    string   `yaml:"category"`
}

// List returns the sorted absolute paths of every .md file directly in dir.
func List(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("source: read dir %s: %w", dir, err)
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".md") {
			continue
		}
		out = append(out, filepath.Join(dir, e.Name()))
	}
	sort.Strings(out)
	return out, nil
}

// ParseFile turns one raw source file into an Entry. The slug comes from an
// explicit frontmatter override when present, otherwise from the filename
// minus any YYYY-MM-DD- prefix; the publish date likewise falls back to the
// filename prefix. The checksum covers the full raw bytes, frontmatter
// included.
func ParseFile(path string, data []byte) (*models.Entry, error) {
	sanitized := Sanitize(string(data))
	fm, body := splitFrontmatter(sanitized)

	stem := strings.TrimSuffix(filepath.Base(path), ".md")
	dateFromName := ""
	slug := stem
	if m := datePrefixRe.FindStringSubmatch(stem); m != nil {
		dateFromName, slug = m[1], m[2]
	}
	if fm.Slug != "" {
		slug = fm.Slug
	}
	if slug == "" {
		return nil, fmt.Errorf("source: %s: cannot derive slug", path)
	}

	publishDate := fm.PublishDate
	if publishDate == "" {
		publishDate = dateFromName
	}
	title := fm.Title
	if title == "" {
		title = titleFromSlug(slug)
	}

	body, diagrams := extractDiagrams(body)

	return &models.Entry{
		Slug:        slug,
		Title:       title,
		Description: fm.Description,
		Body:        body,
		PublishDate: publishDate,
		Published:   fm.Published,
		Featured:    fm.Featured,
		Tags:        fm.Tags,
		Category:    fm.Category,
		Checksum:    checksum.Sum(data),
		SourcePath:  path,
		Diagrams:    diagrams,
	}, nil
}

// splitFrontmatter separates the YAML block (between leading --- delimiters)
// from the markdown body. Missing or unparsable frontmatter falls back to
// treating the whole input as body.
func splitFrontmatter(text string) (frontmatter, string) {
	const delim = "---"
	var fm frontmatter

	trimmed := strings.TrimLeft(text, "\n\r")
	if !strings.HasPrefix(trimmed, delim) {
		return fm, text
	}
	rest := trimmed[len(delim):]
	idx := strings.Index(rest, "\n"+delim)
	if idx < 0 {
		return fm, text
	}

	yamlBlock := rest[:idx]
	body := strings.TrimLeft(rest[idx+1+len(delim):], "\n\r")

	if err := yaml.Unmarshal([]byte(yamlBlock), &fm); err != nil {
		return frontmatter{}, text
	}
	return fm, body
}

// extractDiagrams replaces every ```mermaid fence with a placeholder token
// and returns the blocks for batched rendering. Byte-identical blocks (after
// trimming) share a hash and therefore a token.
func extractDiagrams(body string) (string, []models.Diagram) {
	seen := make(map[string]struct{})
	var diagrams []models.Diagram

	out := mermaidRe.ReplaceAllStringFunc(body, func(block string) string {
		m := mermaidRe.FindStringSubmatch(block)
		src := strings.TrimSpace(m[1])
		hash := checksum.Sum([]byte(src))
		if _, dup := seen[hash]; !dup {
			seen[hash] = struct{}{}
			diagrams = append(diagrams, models.Diagram{Hash: hash, Source: src})
		}
		return DiagramToken(hash)
	})
	return out, diagrams
}

// titleFromSlug derives a display title when frontmatter omits one.
func titleFromSlug(slug string) string {
	title := strings.ReplaceAll(slug, "-", " ")
	runes := []rune(title)
	if len(runes) > 0 {
		runes[0] = unicode.ToUpper(runes[0])
	}
	return string(runes)
}
