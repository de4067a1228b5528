package typst

import "strings"

// titleEscaper covers the markup characters that may occur in titles and
// descriptions interpolated into content blocks.
var titleEscaper = strings.NewReplacer(
	"\\", `\\`, "#", `\#`, "$", `\$`, "_", `\_`, "@", `\@`, "*", `\*`, "[", `\[`, "]", `\]`,
)

// Document wraps a converted body in the journal's standard preamble so the
// compiled PDF is presentable on its own: page setup, title block, and an
// optional date line.
func Document(title, date, body string) string {
	var b strings.Builder
	b.WriteString("#set page(margin: 2cm)\n")
	b.WriteString("#set text(size: 11pt)\n")
	b.WriteString("#set heading(numbering: none)\n\n")
	b.WriteString("#align(center)[#text(size: 20pt, weight: \"bold\")[" + titleEscaper.Replace(title) + "]]\n")
	if date != "" {
		b.WriteString("#align(center)[#text(fill: luma(100))[" + titleEscaper.Replace(date) + "]]\n")
	}
	b.WriteString("#v(1em)\n\n")
	b.WriteString(body)
	if !strings.HasSuffix(body, "\n") {
		b.WriteString("\n")
	}
	return b.String()
}
