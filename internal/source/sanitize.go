package source

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	keyLineRe = regexp.MustCompile(`^(\s*)([A-Za-z_][A-Za-z0-9_-]*):[ \t]*(.*)$`)
	numberRe  = regexp.MustCompile(`^-?\d+(\.\d+)?$`)
	dateRe    = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}([ T]\d{2}:\d{2}(:\d{2})?(\.\d+)?(Z|[+-]\d{2}:?\d{2})?)?$`)
)

// yamlUnsafe lists the characters whose presence in a bare scalar can change
// its meaning to a YAML parser, plus typographic punctuation that trips the
// resolver in practice.
const yamlUnsafe = ":{}[],&*#?|<>=!%@`-–—‘’“”"

// Sanitize rewrites the YAML frontmatter block of raw so that scalar values
// containing YAML-significant characters are double-quoted. Values that are
// already valid (quoted strings, numbers, booleans, null, dates, inline
// collections) pass through, as do comments, list items, blank lines, and
// lines without a key. Input without a frontmatter block is returned
// unchanged.
func Sanitize(raw string) string {
	lines := strings.Split(raw, "\n")
	if len(lines) == 0 || strings.TrimRight(lines[0], " \t\r") != "---" {
		return raw
	}

	end := -1
	for i := 1; i < len(lines); i++ {
		if strings.TrimRight(lines[i], " \t\r") == "---" {
			end = i
			break
		}
	}
	if end < 0 {
		return raw
	}

	for i := 1; i < end; i++ {
		lines[i] = sanitizeLine(lines[i])
	}
	return strings.Join(lines, "\n")
}

func sanitizeLine(line string) string {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" || strings.HasPrefix(trimmed, "#") || strings.HasPrefix(trimmed, "- ") {
		return line
	}

	m := keyLineRe.FindStringSubmatch(line)
	if m == nil {
		return line
	}
	indent, key, value := m[1], m[2], m[3]
	if value == "" {
		return line
	}

	if !needsQuoting(value) {
		return line
	}
	return indent + key + ": " + strconv.Quote(strings.TrimSpace(value))
}

func needsQuoting(value string) bool {
	trimmed := strings.TrimSpace(value)

	// Already quoted.
	if len(trimmed) >= 2 {
		if (trimmed[0] == '"' && trimmed[len(trimmed)-1] == '"') ||
			(trimmed[0] == '\'' && trimmed[len(trimmed)-1] == '\'') {
			return false
		}
	}
	// Valid plain scalars.
	switch trimmed {
	case "true", "false", "null", "~":
		return false
	}
	if numberRe.MatchString(trimmed) || dateRe.MatchString(trimmed) {
		return false
	}
	// Inline collections.
	if (strings.HasPrefix(trimmed, "[") && strings.HasSuffix(trimmed, "]")) ||
		(strings.HasPrefix(trimmed, "{") && strings.HasSuffix(trimmed, "}")) {
		return false
	}

	if trimmed != value {
		return true
	}
	if strings.ContainsAny(value, yamlUnsafe) {
		return true
	}
	// Emoji and anything else outside the basic multilingual plane.
	for _, r := range value {
		if r > 0xFFFF {
			return true
		}
	}
	return false
}
