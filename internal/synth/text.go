package synth

import (
	"html"
	"regexp"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/microcosm-cc/bluemonday"
)

var (
	htmlTag = regexp.MustCompile(`</?([a-zA-Z][a-zA-Z0-9]*)(\s[^>]*)?/?>`)

	// Element names treated as markup. Anything else in angle brackets,
	// such as <Enter> or <Passphrase>, is prose.
	htmlElements = map[string]bool{
		"a": true, "abbr": true, "b": true, "blockquote": true, "br": true,
		"code": true, "del": true, "div": true, "em": true, "h1": true,
		"h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
		"hr": true, "i": true, "img": true, "kbd": true, "li": true,
		"ol": true, "p": true, "pre": true, "s": true, "small": true,
		"span": true, "strong": true, "sub": true, "sup": true, "table": true,
		"tbody": true, "td": true, "th": true, "thead": true, "tr": true,
		"u": true, "ul": true, "script": true, "style": true, "iframe": true,
	}

	sanitizer = bluemonday.UGCPolicy()

	mdConverter = converter.NewConverter(
		converter.WithPlugins(
			base.NewBasePlugin(),
			commonmark.NewCommonmarkPlugin(),
		),
	)
)

// normalizeText trims free text from a workflow. Text that carries HTML is
// sanitized and converted to Markdown; plain Markdown passes through.
func normalizeText(s string) string {
	s = strings.TrimSpace(s)
	if s == "" || !hasMarkup(s) {
		return s
	}

	clean := sanitizer.Sanitize(escapeProseTags(s))
	md, err := mdConverter.ConvertString(clean)
	if err != nil {
		return strings.TrimSpace(html.UnescapeString(htmlTag.ReplaceAllStringFunc(clean, stripElement)))
	}
	return strings.TrimSpace(md)
}

func isElement(tag string) bool {
	m := htmlTag.FindStringSubmatch(tag)
	return m != nil && htmlElements[strings.ToLower(m[1])]
}

func hasMarkup(s string) bool {
	for _, tag := range htmlTag.FindAllString(s, -1) {
		if isElement(tag) {
			return true
		}
	}
	return false
}

// escapeProseTags keeps bracketed words the sanitizer would drop as unknown
// elements
func escapeProseTags(s string) string {
	return htmlTag.ReplaceAllStringFunc(s, func(tag string) string {
		if isElement(tag) {
			return tag
		}
		return html.EscapeString(tag)
	})
}

func stripElement(tag string) string {
	if isElement(tag) {
		return ""
	}
	return tag
}
