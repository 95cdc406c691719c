package report

import (
	"strings"
	"unicode/utf8"
)

const (
	// MinParagraphLength is the shortest paragraph, in characters, that counts
	// as substantial.
	MinParagraphLength = 60
	// MinParagraphsPerSection is how many substantial paragraphs a generated
	// section needs to be accepted.
	MinParagraphsPerSection = 2
)

// IsSubstantial is the anti-summary guard: it reports whether at least
// MinParagraphsPerSection text items are MinParagraphLength characters or
// longer. Structured blocks never count.
func IsSubstantial(items []ContentItem) bool {
	n := 0
	for _, it := range items {
		if !it.IsText() {
			continue
		}
		if utf8.RuneCountInString(strings.TrimSpace(it.Text)) >= MinParagraphLength {
			n++
		}
	}
	return n >= MinParagraphsPerSection
}
