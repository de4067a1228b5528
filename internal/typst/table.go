package typst

import "strings"

// convertTables rewrites pipe tables into #table directives. Every column
// gets the same 1fr width; the header row count decides the column count
// and body rows are padded or truncated to fit, which is as much validation
// as malformed tables get.
func convertTables(s string) string {
	lines := strings.Split(s, "\n")
	var out []string
	for i := 0; i < len(lines); {
		if !isTableRow(lines[i]) || i+1 >= len(lines) || !isTableSeparator(lines[i+1]) {
			out = append(out, lines[i])
			i++
			continue
		}
		header := splitRow(lines[i])
		j := i + 2
		var body [][]string
		for j < len(lines) && isTableRow(lines[j]) && !isTableSeparator(lines[j]) {
			body = append(body, splitRow(lines[j]))
			j++
		}
		out = append(out, renderTable(header, body)...)
		i = j
	}
	return strings.Join(out, "\n")
}

func isTableRow(line string) bool {
	return strings.HasPrefix(strings.TrimSpace(line), "|")
}

func isTableSeparator(line string) bool {
	t := strings.TrimSpace(line)
	if !strings.HasPrefix(t, "|") || !strings.Contains(t, "-") {
		return false
	}
	for _, r := range t {
		switch r {
		case '|', '-', ':', ' ', '\t':
		default:
			return false
		}
	}
	return true
}

func splitRow(line string) []string {
	t := strings.TrimSpace(line)
	t = strings.TrimPrefix(t, "|")
	t = strings.TrimSuffix(t, "|")
	cells := strings.Split(t, "|")
	for i := range cells {
		cells[i] = strings.TrimSpace(cells[i])
	}
	return cells
}

func renderTable(header []string, body [][]string) []string {
	n := len(header)
	widths := make([]string, n)
	for i := range widths {
		widths[i] = "1fr"
	}

	lines := []string{
		"#table(",
		"  columns: (" + strings.Join(widths, ", ") + "),",
	}

	hdr := make([]string, n)
	for i, c := range header {
		hdr[i] = "[*" + escapeCell(c) + "*]"
	}
	lines = append(lines, "  "+strings.Join(hdr, ", ")+",")

	for _, row := range body {
		cells := make([]string, n)
		for i := 0; i < n; i++ {
			c := ""
			if i < len(row) {
				c = row[i]
			}
			cells[i] = "[" + escapeCell(c) + "]"
		}
		lines = append(lines, "  "+strings.Join(cells, ", ")+",")
	}
	return append(lines, ")")
}

// escapeCell handles the one reserved character the body-wide escape phase
// leaves alone. A balanced count of asterisks is converted emphasis and
// stays; an unpaired one would swallow the rest of the cell as bold.
func escapeCell(c string) string {
	if strings.Count(c, "*")%2 == 1 {
		return strings.ReplaceAll(c, "*", `\*`)
	}
	return c
}
