package transcript

import (
	"strings"
	"unicode/utf8"
)

// SentenceSeparator is the boundary Chunk splits on. It is a heuristic:
// abbreviations, decimals and list markers are not treated specially.
const SentenceSeparator = ". "

// Chunk splits text into ordered segments of at most maxChars characters,
// cutting only at sentence boundaries. A single sentence longer than the
// budget becomes its own oversized chunk. Text without any separator is
// returned as one chunk whatever its size; empty text yields no chunks.
func Chunk(text string, maxChars int) []string {
	units := strings.Split(text, SentenceSeparator)
	sepLen := utf8.RuneCountInString(SentenceSeparator)

	var chunks []string
	var current strings.Builder
	currentLen := 0

	for i, unit := range units {
		unitLen := utf8.RuneCountInString(unit)
		if currentLen > 0 && currentLen+unitLen+sepLen > maxChars {
			chunks = appendTrimmed(chunks, current.String())
			current.Reset()
			currentLen = 0
		}

		current.WriteString(unit)
		currentLen += unitLen
		// The last unit had no separator after it in the source.
		if i < len(units)-1 {
			current.WriteString(SentenceSeparator)
			currentLen += sepLen
		}
	}

	return appendTrimmed(chunks, current.String())
}

func appendTrimmed(chunks []string, s string) []string {
	if s = strings.TrimSpace(s); s != "" {
		chunks = append(chunks, s)
	}
	return chunks
}
