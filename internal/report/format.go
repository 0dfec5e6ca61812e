// Package report turns raw analysis text into display markup and a
// verification badge. Everything here is a pure function of the text.
package report

import (
	"html"
	"regexp"
)

// space matches the same characters as a JavaScript \s: ASCII whitespace,
// vertical tab, Unicode space separators, line/paragraph separators and BOM.
const space = `[\s\v\p{Zs}\x{2028}\x{2029}\x{FEFF}]`

var (
	emphasisPattern = regexp.MustCompile(`\*\*(.*?)\*\*`)
	bulletPattern   = regexp.MustCompile(`\*` + space)
	strongPattern   = regexp.MustCompile(`(<strong>.*?</strong>)`)
	headingPattern  = regexp.MustCompile(`##` + space + `(.*?)(\n|$)`)
)

const headingReplacement = `<span style="font-style: italic; font-weight: bold;">$1</span><br>`

// FormatAnalysis renders analysis text as markup. The rules run in a fixed
// order and later rules match markup produced by earlier ones, so the output
// is not idempotent: call it once per result.
func FormatAnalysis(text string) string {
	out := html.EscapeString(text)
	out = emphasisPattern.ReplaceAllString(out, "<strong>$1</strong>")
	out = bulletPattern.ReplaceAllString(out, "<br>")
	out = strongPattern.ReplaceAllString(out, "<br><br>$1")
	out = headingPattern.ReplaceAllString(out, headingReplacement)
	return out
}
