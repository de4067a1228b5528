package typst

import (
	"strings"
	"testing"
)

func TestDocumentPreamble(t *testing.T) {
	got := Document("My Title", "2024-03-10", "body text")
	for _, want := range []string{
		"#set page(margin: 2cm)",
		"#set text(size: 11pt)",
		"#set heading(numbering: none)",
		`#align(center)[#text(size: 20pt, weight: "bold")[My Title]]`,
		"#align(center)[#text(fill: luma(100))[2024-03-10]]",
		"#v(1em)",
		"body text",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("document missing %q:\n%s", want, got)
		}
	}
	if !strings.HasSuffix(got, "\n") {
		t.Error("document should end with a newline")
	}
}

func TestDocumentOmitsEmptyDate(t *testing.T) {
	got := Document("T", "", "b")
	if strings.Contains(got, "luma(100)") {
		t.Errorf("date line present for empty date: %q", got)
	}
}

func TestDocumentEscapesTitle(t *testing.T) {
	got := Document("Costs: $5 #hashtag *stars*", "", "b")
	if !strings.Contains(got, `Costs: \$5 \#hashtag \*stars\*`) {
		t.Errorf("title not escaped: %q", got)
	}
}
