// Package markdown turns submitted blog content into safe HTML.
//
// Submissions arrive either as HTML from a rich editor or as markdown typed
// by hand. Both forms are sanitized before storage and again at render time.
package markdown

import (
	"bytes"
	"html/template"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	htmlrenderer "github.com/yuin/goldmark/renderer/html"
)

const wordsPerMinute = 200

var markdownEngine = goldmark.New(
	goldmark.WithExtensions(
		extension.GFM,
		extension.Table,
		extension.Strikethrough,
		extension.TaskList,
		extension.Linkify,
		extension.Typographer,
	),
	goldmark.WithRendererOptions(
		htmlrenderer.WithHardWraps(),
		htmlrenderer.WithXHTML(),
	),
)

var (
	htmlTagPattern = regexp.MustCompile(`(?i)<[a-z][\s\S]*>`)
	anyTagPattern  = regexp.MustCompile(`(?s)<[^>]*>`)
	spacePattern   = regexp.MustCompile(`\s+`)
)

var ugcPolicy = func() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.RequireNoFollowOnLinks(true)
	p.AddTargetBlankToFullyQualifiedLinks(true)
	p.AllowAttrs("class").Matching(regexp.MustCompile(`^language-[\w-]+$`)).OnElements("code")
	return p
}()

var stripPolicy = bluemonday.StrictPolicy()

// LooksLikeHTML reports whether content contains at least one HTML tag.
func LooksLikeHTML(content string) bool {
	return htmlTagPattern.MatchString(content)
}

// Sanitize strips scripts, event handlers, and other unsafe markup while
// keeping ordinary formatting.
func Sanitize(content string) string {
	return ugcPolicy.Sanitize(content)
}

// ToHTML converts markdown to HTML without sanitizing.
func ToHTML(source string) (string, error) {
	var buf bytes.Buffer
	if err := markdownEngine.Convert([]byte(source), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Render produces display-ready HTML. HTML content is sanitized as is and
// anything else is treated as markdown first.
func Render(content string) template.HTML {
	content = strings.TrimSpace(content)
	if content == "" {
		return ""
	}
	if LooksLikeHTML(content) {
		return template.HTML(Sanitize(content))
	}
	out, err := ToHTML(content)
	if err != nil {
		return template.HTML("<p>" + template.HTMLEscapeString(content) + "</p>")
	}
	return template.HTML(Sanitize(out))
}

// PlainText removes all markup and collapses whitespace.
func PlainText(content string) string {
	text := content
	if !LooksLikeHTML(text) {
		if out, err := ToHTML(text); err == nil {
			text = out
		}
	}
	text = anyTagPattern.ReplaceAllString(text, " ")
	text = stripPolicy.Sanitize(text)
	text = strings.NewReplacer("&amp;", "&", "&lt;", "<", "&gt;", ">", "&#34;", `"`, "&#39;", "'", "&nbsp;", " ").Replace(text)
	return strings.TrimSpace(spacePattern.ReplaceAllString(text, " "))
}

// WordCount counts whitespace separated words of the plain text.
func WordCount(content string) int {
	return len(strings.Fields(PlainText(content)))
}

// ReadingTime returns an estimate such as "3 min read", never less than one minute.
func ReadingTime(content string) string {
	minutes := int(math.Ceil(float64(WordCount(content)) / wordsPerMinute))
	if minutes < 1 {
		minutes = 1
	}
	return strconv.Itoa(minutes) + " min read"
}

// Excerpt returns up to maxRunes of plain text, cut on a word boundary.
func Excerpt(content string, maxRunes int) string {
	text := PlainText(content)
	if maxRunes <= 0 || utf8.RuneCountInString(text) <= maxRunes {
		return text
	}
	runes := []rune(text)
	cut := string(runes[:maxRunes])
	if i := strings.LastIndexByte(cut, ' '); i > maxRunes/2 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, " ,.;:") + "…"
}
