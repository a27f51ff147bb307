package fileparse

import "strings"

// maxChunkLen caps one retrieval chunk; longer runs of sentences are
// grouped up to this size
const maxChunkLen = 400

// minSentenceLen filters out fragments too short to carry a fact
const minSentenceLen = 15

// Chunks splits extracted text into retrieval-sized pieces. Sentences
// shorter than minSentenceLen runes are dropped; the rest are kept whole
// and grouped until a chunk approaches maxChunkLen.
func Chunks(text string) []string {
	var chunks []string
	var current strings.Builder

	flush := func() {
		chunk := strings.TrimSpace(current.String())
		if chunk != "" {
			chunks = append(chunks, chunk)
		}
		current.Reset()
	}

	for _, sentence := range sentences(text) {
		if len([]rune(sentence)) < minSentenceLen {
			continue
		}
		if current.Len() > 0 && len([]rune(current.String()))+len([]rune(sentence)) > maxChunkLen {
			flush()
		}
		if current.Len() > 0 {
			current.WriteString(" ")
		}
		current.WriteString(sentence)
	}
	flush()

	return chunks
}

// sentences splits text at sentence-ending punctuation and line breaks
func sentences(text string) []string {
	var result []string
	var current strings.Builder

	flush := func() {
		s := strings.TrimSpace(current.String())
		if s != "" {
			result = append(result, s)
		}
		current.Reset()
	}

	for _, r := range text {
		switch r {
		case '\n':
			flush()
		case '.', '!', '?':
			current.WriteRune(r)
			flush()
		default:
			current.WriteRune(r)
		}
	}
	flush()

	return result
}
