package message

import (
	"regexp"
	"strings"
)

// PreviewMaxLen is the maximum preview length before the ellipsis marker.
const PreviewMaxLen = 100

var (
	htmlTagPattern = regexp.MustCompile(`<[^>]*>`)
	spacePattern   = regexp.MustCompile(`\s+`)
)

// Preview builds the short list-view text for a message: plain body when
// present, otherwise HTML with tags stripped, otherwise empty. Whitespace is
// collapsed to single spaces and the result is truncated to maxLen characters
// with a trailing ellipsis only when truncation actually occurred. The cut
// never lands inside a multibyte rune.
func Preview(plain, html string, maxLen int) string {
	text := plain
	if text == "" && html != "" {
		text = StripHTML(html)
	}
	text = strings.TrimSpace(spacePattern.ReplaceAllString(text, " "))
	if runes := []rune(text); len(runes) > maxLen {
		return string(runes[:maxLen]) + "..."
	}
	return text
}

// StripHTML removes tags and decodes the handful of entities that show up in
// mail bodies, producing a rough plain-text rendering.
func StripHTML(html string) string {
	if html == "" {
		return ""
	}

	result := html
	for _, tag := range []string{"<br>", "<br/>", "<br />", "</p>", "</div>", "</li>"} {
		result = strings.ReplaceAll(result, tag, " ")
	}
	result = htmlTagPattern.ReplaceAllString(result, "")

	replacer := strings.NewReplacer(
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
		"&#39;", "'",
		"&nbsp;", " ",
	)
	return strings.TrimSpace(replacer.Replace(result))
}
