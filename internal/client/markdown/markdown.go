// Package markdown renders note content to HTML for the preview mode.
// Math spans are protected from the Markdown pass: $$...$$ blocks and
// $...$ inline spans are swapped for placeholders before rendering and
// restored afterwards wrapped in math containers, so the math source
// survives untouched for a client-side math renderer.
package markdown

import (
	"fmt"
	"html"
	"regexp"
	"strings"

	md "gitlab.com/golang-commonmark/markdown"
)

var (
	blockMathRe = regexp.MustCompile(`(?s)\$\$(.+?)\$\$`)
	// Inline math must hug its delimiters: "$x_1$" is math, "$5 and
	// $10" is prose.
	inlineMathRe = regexp.MustCompile(`\$([^$\s](?:[^$\n]*[^$\s])?)\$`)
)

// Renderer is a stateless Markdown renderer. The zero value is not
// usable; construct with New.
type Renderer struct {
	md *md.Markdown
}

func New() *Renderer {
	return &Renderer{
		md: md.New(
			md.HTML(false),
			md.Linkify(true),
			md.Typographer(false),
		),
	}
}

// Render converts src to HTML. Block math is checked before inline math
// so a $$...$$ span is never misread as two inline spans.
func (r *Renderer) Render(src string) string {
	protected, spans := protectMath(src)
	out := r.md.RenderToString([]byte(protected))
	return restoreMath(out, spans)
}

type mathSpan struct {
	placeholder string
	html        string
}

// protectMath replaces every math span with an opaque placeholder token
// that the Markdown pass leaves alone.
func protectMath(src string) (string, []mathSpan) {
	var spans []mathSpan

	replace := func(s string, re *regexp.Regexp, block bool) string {
		return re.ReplaceAllStringFunc(s, func(m string) string {
			inner := re.FindStringSubmatch(m)[1]
			tag := "span"
			class := "math-inline"
			if block {
				tag = "div"
				class = "math-block"
			}
			// The token must pass through the Markdown renderer as
			// plain text: letters and digits only.
			span := mathSpan{
				placeholder: fmt.Sprintf("QNMATHTOKEN%dX", len(spans)),
				html:        fmt.Sprintf("<%s class=%q>%s</%s>", tag, class, html.EscapeString(inner), tag),
			}
			spans = append(spans, span)
			return span.placeholder
		})
	}

	src = replace(src, blockMathRe, true)
	src = replace(src, inlineMathRe, false)
	return src, spans
}

func restoreMath(out string, spans []mathSpan) string {
	for _, s := range spans {
		out = strings.Replace(out, s.placeholder, s.html, 1)
	}
	return out
}
