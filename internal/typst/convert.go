// Package typst converts the journal's markdown subset into Typst source
// and drives the external Typst compiler.
package typst

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"path"
	"regexp"
	"strings"
)

// Options carries the per-run context a conversion needs.
type Options struct {
	// DiagramDir is the directory, relative to the compiled document,
	// holding rendered diagram images.
	DiagramDir string
	// Rendered maps diagram hash to render success for this run.
	Rendered map[string]bool
}

var (
	fencedCodeRe = regexp.MustCompile("(?s)```[^\n]*\n.*?\n```")
	inlineCodeRe = regexp.MustCompile("`[^`\n]+`")
	emphasisRe   = regexp.MustCompile(`_[^\s_](?:[^_\n]*[^\s_])?_`)
	blockMathRe  = regexp.MustCompile(`(?s)\$\$.*?\$\$`)
	inlineMathRe = regexp.MustCompile(`\$[^\s$](?:[^$\n]*[^\s$])?\$`)

	diagramTokenRe = regexp.MustCompile("\x01dgm:([0-9a-f]+)\x01")

	reH3         = regexp.MustCompile(`(?m)^### (.+)$`)
	reH2         = regexp.MustCompile(`(?m)^## (.+)$`)
	reH1         = regexp.MustCompile(`(?m)^# (.+)$`)
	reBoldItalic = regexp.MustCompile(`\*\*\*([^*]+)\*\*\*`)
	reBold       = regexp.MustCompile(`\*\*([^*]+)\*\*`)
	reBoldUnder  = regexp.MustCompile(`__([^_\n]+)__`)
	reLink       = regexp.MustCompile(`(?m)(^|[^!])\[([^\]]*)\]\(([^)\s]+)\)`)
	reUnordered  = regexp.MustCompile(`(?m)^([ \t]*)- (.+)$`)
	reOrdered    = regexp.MustCompile(`(?m)^([ \t]*)\d+\. (.+)$`)
	reQuote      = regexp.MustCompile(`(?m)^> ?(.*)$`)
	reRule       = regexp.MustCompile(`(?m)^---+[ \t]*$`)
	reImage      = regexp.MustCompile(`!\[([^\]]*)\]\(([^)\s]+)\)`)
)

// escaper neutralizes the characters Typst treats as markup when they occur
// in plain prose.
var escaper = strings.NewReplacer("$", `\$`, "_", `\_`, "@", `\@`)

// Convert rewrites a markdown body (diagram blocks already tokenized) into
// Typst source. The phases run in a fixed order: protect sensitive spans,
// escape reserved characters, restore emphasis, substitute diagram tokens,
// apply structural conversions with math spans translated at their token
// sites, and finally restore code spans verbatim — Typst shares the
// backtick fence syntax, so a restored code span is already a valid raw
// block with its language tag intact. Code spans stay protected through the
// structural phase so line-level rules cannot re-match fence interiors.
func Convert(body string, opts Options) string {
	p := newProtector()

	// Protect, in priority order.
	s := p.protect(body, spanCode, fencedCodeRe)
	s = p.protect(s, spanCode, inlineCodeRe)
	// Double-underscore bold folds into the asterisk form before the
	// emphasis pass can mistake its interior for _emphasis_.
	s = reBoldUnder.ReplaceAllString(s, "**$1**")
	s = p.protect(s, spanEmphasis, emphasisRe)
	s = p.protect(s, spanBlockMath, blockMathRe)
	s = p.protect(s, spanInlineMath, inlineMathRe)

	// Escape reserved characters in the remaining prose.
	s = escaper.Replace(s)

	// Emphasis comes back before the structural phase; restored _x_ spans
	// are already valid Typst.
	s = p.restore(s, spanEmphasis)

	// Diagram embeds go in before structural conversion so their own syntax
	// is not mangled by it.
	s = substituteDiagrams(s, opts)

	// Structural conversions, most specific first.
	s = reH3.ReplaceAllString(s, "=== $1")
	s = reH2.ReplaceAllString(s, "== $1")
	s = reH1.ReplaceAllString(s, "= $1")

	s = reBoldItalic.ReplaceAllString(s, "*_${1}_*")
	s = reBold.ReplaceAllString(s, "*$1*")

	// Two passes: the leading-character capture cannot see adjacent links
	// in one sweep.
	s = reLink.ReplaceAllString(s, `$1#link("$3")[$2]`)
	s = reLink.ReplaceAllString(s, `$1#link("$3")[$2]`)

	// Math spans are translated at their token sites. Re-matching restored
	// dollars by regex would also pick up escaped \$ prose, so the tokens
	// themselves are the anchor.
	s = p.substituteMath(s)

	s = convertLists(s)
	s = reQuote.ReplaceAllString(s, "#quote(block: true)[$1]")
	s = reRule.ReplaceAllString(s, "#line(length: 100%)")
	s = reImage.ReplaceAllStringFunc(s, convertImage)
	s = convertTables(s)

	// Code spans come back last, verbatim.
	s = p.restore(s, spanCode)
	return s
}

type spanKind int

const (
	spanCode spanKind = iota
	spanEmphasis
	spanBlockMath
	spanInlineMath
)

type span struct {
	token string
	text  string
	kind  spanKind
}

// protector implements the protect/restore half of the pipeline. Tokens are
// framed with a control character and carry a per-conversion random nonce,
// so no author-typed text can collide with them and no later phase can
// alter them.
type protector struct {
	nonce string
	spans []span
}

func newProtector() *protector {
	var b [6]byte
	_, _ = rand.Read(b[:])
	return &protector{nonce: hex.EncodeToString(b[:])}
}

func (p *protector) protect(s string, kind spanKind, re *regexp.Regexp) string {
	return re.ReplaceAllStringFunc(s, func(m string) string {
		token := fmt.Sprintf("\x02%s-%d\x02", p.nonce, len(p.spans))
		p.spans = append(p.spans, span{token: token, text: m, kind: kind})
		return token
	})
}

// restore substitutes the original text back for every span of the given
// kinds. Later spans are restored first, and the sweep repeats while it
// makes progress, so a span nested inside another (inline code inside
// emphasis, say) surfaces on a following pass.
func (p *protector) restore(s string, kinds ...spanKind) string {
	want := make(map[spanKind]bool, len(kinds))
	for _, k := range kinds {
		want[k] = true
	}
	for {
		replaced := false
		for i := len(p.spans) - 1; i >= 0; i-- {
			sp := p.spans[i]
			if !want[sp.kind] || !strings.Contains(s, sp.token) {
				continue
			}
			s = strings.ReplaceAll(s, sp.token, sp.text)
			replaced = true
		}
		if !replaced {
			return s
		}
	}
}

// substituteMath replaces every protected math token with its Typst form:
// spaced dollars for display math, tight dollars for inline. A math span
// can itself hold earlier protected spans (a paired underscore inside
// $a_b + c_d$ reads as emphasis to the protector), so the interior is
// restored before translation.
func (p *protector) substituteMath(s string) string {
	for _, sp := range p.spans {
		if !strings.Contains(s, sp.token) {
			continue
		}
		switch sp.kind {
		case spanBlockMath:
			inner := strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(sp.text, "$$"), "$$"))
			inner = p.restore(inner, spanEmphasis, spanCode)
			s = strings.ReplaceAll(s, sp.token, "$ "+ConvertMath(inner)+" $")
		case spanInlineMath:
			inner := strings.TrimSuffix(strings.TrimPrefix(sp.text, "$"), "$")
			inner = p.restore(inner, spanEmphasis, spanCode)
			s = strings.ReplaceAll(s, sp.token, "$"+ConvertMath(inner)+"$")
		}
	}
	return s
}

// substituteDiagrams replaces each diagram token with an image embed, or a
// visible notice block when that hash failed to render.
func substituteDiagrams(s string, opts Options) string {
	return diagramTokenRe.ReplaceAllStringFunc(s, func(tok string) string {
		hash := diagramTokenRe.FindStringSubmatch(tok)[1]
		if opts.Rendered[hash] {
			img := path.Join(opts.DiagramDir, hash+".png")
			return fmt.Sprintf("#figure(image(%q, width: 100%%))", img)
		}
		return "#block(stroke: 1pt + red, inset: 8pt, width: 100%)[Diagram could not be rendered.]"
	})
}

// convertLists rewrites list items, recomputing nesting from leading
// whitespace at two spaces per level. Typst keeps the dash marker for
// unordered items; ordered items use the plus marker.
func convertLists(s string) string {
	s = reUnordered.ReplaceAllStringFunc(s, func(m string) string {
		g := reUnordered.FindStringSubmatch(m)
		return strings.Repeat("  ", len(g[1])/2) + "- " + g[2]
	})
	s = reOrdered.ReplaceAllStringFunc(s, func(m string) string {
		g := reOrdered.FindStringSubmatch(m)
		return strings.Repeat("  ", len(g[1])/2) + "+ " + g[2]
	})
	return s
}

func convertImage(m string) string {
	g := reImage.FindStringSubmatch(m)
	alt, src := g[1], g[2]
	if alt == "" {
		return fmt.Sprintf("#figure(image(%q))", src)
	}
	return fmt.Sprintf("#figure(image(%q), caption: [%s])", src, alt)
}
