package typst

import (
	"regexp"
	"strings"
)

// The math translation is a fixed substitution table over the LaTeX subset
// the journal actually uses, not a LaTeX parser. Anything outside the table
// passes through untouched and is the author's problem.

var matrixRe = regexp.MustCompile(`(?s)\\begin\{([pb])matrix\}(.*?)\\end\{[pb]matrix\}`)

var mathRules = []struct {
	re   *regexp.Regexp
	repl string
}{
	{regexp.MustCompile(`\\textbf\{([^{}]*)\}`), `bold($1)`},
	{regexp.MustCompile(`\\mathbf\{([^{}]*)\}`), `bold($1)`},
	{regexp.MustCompile(`\\textit\{([^{}]*)\}`), `italic($1)`},
	{regexp.MustCompile(`\\mathit\{([^{}]*)\}`), `italic($1)`},
	{regexp.MustCompile(`\\mathrm\{([^{}]*)\}`), `upright($1)`},
	{regexp.MustCompile(`\\text\{([^{}]*)\}`), `upright($1)`},
	{regexp.MustCompile(`\\frac\{([^{}]*)\}\{([^{}]*)\}`), `frac($1, $2)`},
	{regexp.MustCompile(`\\sqrt\{([^{}]*)\}`), `sqrt($1)`},
	{regexp.MustCompile(`_\{([^{}]*)\}`), `_($1)`},
	{regexp.MustCompile(`\^\{([^{}]*)\}`), `^($1)`},
	{regexp.MustCompile(`\\infty\b`), `infinity`},
	{regexp.MustCompile(`\\int\b`), `integral`},
	{regexp.MustCompile(`\\sum\b`), `sum`},
	{regexp.MustCompile(`\\prod\b`), `product`},
	{regexp.MustCompile(`\\cdot\b`), `dot`},
	{regexp.MustCompile(`\\times\b`), `times`},
	{regexp.MustCompile(`\\pm\b`), `plus.minus`},
	{regexp.MustCompile(`\\leq\b`), `<=`},
	{regexp.MustCompile(`\\le\b`), `<=`},
	{regexp.MustCompile(`\\geq\b`), `>=`},
	{regexp.MustCompile(`\\ge\b`), `>=`},
	{regexp.MustCompile(`\\neq\b`), `!=`},
	{regexp.MustCompile(`\\ne\b`), `!=`},
	{regexp.MustCompile(`\\approx\b`), `approx`},
	{regexp.MustCompile(`\\Leftrightarrow\b`), `<=>`},
	{regexp.MustCompile(`\\Rightarrow\b`), `=>`},
	{regexp.MustCompile(`\\rightarrow\b`), `->`},
	{regexp.MustCompile(`\\leftarrow\b`), `<-`},
	{regexp.MustCompile(`\\to\b`), `->`},
	{regexp.MustCompile(`\\,`), ` `},
}

var (
	funcNameRe = regexp.MustCompile(`\\(sin|cos|tan|cot|sec|csc|log|ln|exp|min|max|lim|arg|det|gcd)\b`)
	greekRe    = regexp.MustCompile(`\\(alpha|beta|gamma|delta|epsilon|zeta|eta|theta|iota|kappa|lambda|mu|nu|xi|pi|rho|sigma|tau|upsilon|phi|chi|psi|omega|Gamma|Delta|Theta|Lambda|Xi|Pi|Sigma|Upsilon|Phi|Psi|Omega)\b`)
	diffRe     = regexp.MustCompile(`\bd([xyz])\b`)
)

// ConvertMath rewrites the interior of a math span from LaTeX notation to
// Typst notation.
func ConvertMath(s string) string {
	s = matrixRe.ReplaceAllStringFunc(s, convertMatrix)
	for _, r := range mathRules {
		s = r.re.ReplaceAllString(s, r.repl)
	}
	s = funcNameRe.ReplaceAllString(s, "$1")
	s = greekRe.ReplaceAllString(s, "$1")
	s = diffRe.ReplaceAllString(s, "dif $1")
	return s
}

// convertMatrix maps a p/bmatrix environment onto Typst's mat() with the
// matching delimiter: rows split on \\, columns on &.
func convertMatrix(m string) string {
	g := matrixRe.FindStringSubmatch(m)
	delim := "("
	if g[1] == "b" {
		delim = "["
	}
	var rows []string
	for _, row := range strings.Split(g[2], `\\`) {
		row = strings.TrimSpace(row)
		if row == "" {
			continue
		}
		cells := strings.Split(row, "&")
		for i := range cells {
			cells[i] = strings.TrimSpace(cells[i])
		}
		rows = append(rows, strings.Join(cells, ", "))
	}
	return `mat(delim: "` + delim + `", ` + strings.Join(rows, "; ") + `)`
}
