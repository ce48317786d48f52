package extract

import (
	"html"
	"regexp"
	"strings"

	"github.com/Jereff77/SPHCFDIs/internal/models"
)

var (
	tagPattern        = regexp.MustCompile(`<[^>]+>`)
	leadingCSSNumeric = regexp.MustCompile(`^[a-zA-Z-]+\s*:\s*\d+%?\s*;?\s*`)
	leadingCSSPair    = regexp.MustCompile(`^[a-zA-Z-]+\s*-\s*[a-zA-Z-]+\s*:\s*[^;:]+[;:]?\s*`)
	barePercent       = regexp.MustCompile(`\b\d+%\s*`)
	residualChars     = regexp.MustCompile(`[<>"&]`)
	// Includes non-breaking spaces, which entity decoding leaves behind.
	whitespaceRuns = regexp.MustCompile(`[\s\p{Zs}]+`)
)

// cssProperties are stripped wherever they survive tag removal in table-based
// bank templates. "dth" is the tail of a broken "width" attribute that shows
// up mid-text once tags are gone; property order matters so that
// background-color is consumed before background.
var cssProperties = []string{
	"text-align", "vertical-align", "text-decoration", "font-weight",
	"font-size", "font-family", "color", "background-color", "background",
	"padding", "margin", "border", "display", "width", "height", "dth",
}

var cssPropPatterns = compileCSSPropPatterns()

func compileCSSPropPatterns() []*regexp.Regexp {
	patterns := make([]*regexp.Regexp, 0, len(cssProperties))
	for _, prop := range cssProperties {
		patterns = append(patterns, regexp.MustCompile(`(?i)\b`+regexp.QuoteMeta(prop)+`\s*:\s*[^;:]+[;:]?\s*`))
	}
	return patterns
}

// SelectBody picks the part field extraction runs on, preferring HTML since
// the bank templates carry the labeled fields there.
func SelectBody(msg *models.InboundMessage) string {
	if strings.TrimSpace(msg.BodyHTML) != "" {
		return msg.BodyHTML
	}
	return msg.BodyText
}

// LooksLikeHTML reports whether a body needs markup cleanup before the
// extraction regexes can run on it.
func LooksLikeHTML(body string) bool {
	lower := strings.ToLower(body)
	trimmed := strings.TrimSpace(lower)
	return strings.Contains(lower, "<!doctype html") ||
		strings.Contains(lower, "<html") ||
		strings.Contains(lower, "<td>") ||
		strings.Contains(lower, "<table") ||
		strings.Contains(lower, "<div") ||
		strings.HasPrefix(trimmed, "<!doctype")
}

// NormalizeBody prepares a message body for field extraction. Plain text
// bodies pass through untouched so tab-delimited layouts keep their shape.
func NormalizeBody(body string) string {
	if LooksLikeHTML(body) {
		return CleanHTMLText(body)
	}
	return body
}

// CleanHTMLText strips markup and residual CSS from an HTML body. The step
// order is load-bearing: entities must be decoded before tags are removed,
// and CSS residue only becomes visible once tags are gone.
func CleanHTMLText(text string) string {
	if text == "" {
		return ""
	}

	text = html.UnescapeString(text)
	text = tagPattern.ReplaceAllString(text, "")
	text = leadingCSSNumeric.ReplaceAllString(text, "")
	text = leadingCSSPair.ReplaceAllString(text, "")
	for _, re := range cssPropPatterns {
		text = re.ReplaceAllString(text, "")
	}
	text = barePercent.ReplaceAllString(text, "")
	text = residualChars.ReplaceAllString(text, "")
	text = whitespaceRuns.ReplaceAllString(text, " ")

	return strings.TrimSpace(text)
}
