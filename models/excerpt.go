package models

import (
	"strings"

	"golang.org/x/net/html"
)

const (
	ExcerptLength = 160
	ExcerptSuffix = "..."

	// EmptyEditorContent is what the rich text editor submits when nothing was typed
	EmptyEditorContent = "<p></p>"
)

// BlankContent reports post content with nothing in it. Markup without text,
// such as a lone image, is content.
func BlankContent(content string) bool {
	trimmed := strings.TrimSpace(content)
	return trimmed == "" || trimmed == EmptyEditorContent
}

// StripMarkup returns the text content of an HTML fragment: tags are removed,
// entities decoded, text nodes concatenated as-is.
func StripMarkup(content string) string {
	var b strings.Builder
	z := html.NewTokenizer(strings.NewReader(content))
	for {
		switch z.Next() {
		case html.ErrorToken:
			// io.EOF or malformed input; either way what was read so far is the text
			return b.String()
		case html.TextToken:
			b.Write(z.Text())
		}
	}
}

// BuildExcerpt derives the summary shown on post cards: the first
// ExcerptLength characters of the plain text followed by ExcerptSuffix.
func BuildExcerpt(content string) string {
	text := []rune(StripMarkup(content))
	if len(text) > ExcerptLength {
		text = text[:ExcerptLength]
	}
	return string(text) + ExcerptSuffix
}
