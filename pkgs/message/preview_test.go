package message

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestPreviewStripsTags(t *testing.T) {
	got := Preview("", "<p>Hello <b>World</b></p>", 50)

	assert.Equal(t, "Hello World", got)
	assert.NotContains(t, got, "<")
	assert.False(t, strings.HasSuffix(got, "..."))
}

func TestPreviewTruncation(t *testing.T) {
	body := strings.Repeat("a", 150)
	got := Preview(body, "", PreviewMaxLen)

	assert.Len(t, got, 103)
	assert.True(t, strings.HasSuffix(got, "..."))
}

func TestPreviewTruncationMultibyte(t *testing.T) {
	body := strings.Repeat("世", 150)
	got := Preview(body, "", PreviewMaxLen)

	assert.True(t, utf8.ValidString(got), "truncation must not split a rune")
	assert.True(t, strings.HasSuffix(got, "世..."))
	assert.Equal(t, PreviewMaxLen, utf8.RuneCountInString(strings.TrimSuffix(got, "...")))
}

func TestPreviewMultibyteUnderLimitUntouched(t *testing.T) {
	// 60 runes is within the limit even though it is 180 bytes.
	body := strings.Repeat("世", 60)
	got := Preview(body, "", PreviewMaxLen)

	assert.Equal(t, body, got)
	assert.False(t, strings.HasSuffix(got, "..."))
}

func TestPreviewNoEllipsisAtExactLength(t *testing.T) {
	body := strings.Repeat("b", PreviewMaxLen)
	got := Preview(body, "", PreviewMaxLen)

	assert.Len(t, got, PreviewMaxLen)
	assert.False(t, strings.HasSuffix(got, "..."))
}

func TestPreviewCollapsesWhitespace(t *testing.T) {
	got := Preview("hello\r\n\t  world\n\n again", "", 50)
	assert.Equal(t, "hello world again", got)
}

func TestPreviewPrefersPlainOverHTML(t *testing.T) {
	got := Preview("plain text", "<p>html text</p>", 50)
	assert.Equal(t, "plain text", got)
}

func TestPreviewEmptyBodies(t *testing.T) {
	assert.Equal(t, "", Preview("", "", 50))
}

func TestStripHTMLEntities(t *testing.T) {
	got := StripHTML("a &amp; b &lt;c&gt; &quot;d&quot; &nbsp;e")
	assert.Equal(t, `a & b <c> "d"  e`, got)
}
