package indexer

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Preprocess prepares extracted text for embedding. Words hyphenated across a
// line break are rejoined, control characters and U+FFFD are dropped, and runs
// of whitespace collapse to a single space.
func Preprocess(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = rejoinHyphenated(text)
	clean := strings.Map(func(r rune) rune {
		switch {
		case r == unicode.ReplacementChar:
			return -1
		case unicode.IsSpace(r):
			return ' '
		case unicode.IsControl(r):
			return -1
		}
		return r
	}, text)
	return strings.Join(strings.Fields(clean), " ")
}

// rejoinHyphenated turns "infor-\nmation" into "information".
func rejoinHyphenated(text string) string {
	if !strings.Contains(text, "-\n") {
		return text
	}
	var b strings.Builder
	b.Grow(len(text))
	for {
		i := strings.Index(text, "-\n")
		if i < 0 {
			b.WriteString(text)
			return b.String()
		}
		if isLetterBefore(text[:i]) && isLetterAfter(text[i+2:]) {
			b.WriteString(text[:i])
		} else {
			b.WriteString(text[:i+2])
		}
		text = text[i+2:]
	}
}

func isLetterBefore(s string) bool {
	r, size := utf8.DecodeLastRuneInString(s)
	return size > 0 && unicode.IsLetter(r)
}

func isLetterAfter(s string) bool {
	r, size := utf8.DecodeRuneInString(s)
	return size > 0 && unicode.IsLower(r)
}
