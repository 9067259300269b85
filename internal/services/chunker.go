package services

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	defaultChunkSize    = 1000
	defaultChunkOverlap = 200
)

var sentenceEnd = regexp.MustCompile(`[.!?]+\s+`)

// TextChunker splits rubric documents into overlapping passages for embedding.
type TextChunker interface {
	Chunk(text string) []string
}

type textChunker struct {
	maxRunes int
	overlap  int
}

// NewTextChunker builds a chunker. Non-positive sizes fall back to defaults and
// an overlap that would swallow a whole chunk is reduced to a quarter of it.
func NewTextChunker(maxRunes, overlap int) TextChunker {
	if maxRunes <= 0 {
		maxRunes = defaultChunkSize
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= maxRunes {
		overlap = maxRunes / 4
	}
	return &textChunker{maxRunes: maxRunes, overlap: overlap}
}

// Chunk packs paragraphs, and the sentences of over-long paragraphs, into
// passages of at most maxRunes runes plus the carried-over overlap.
func (tc *textChunker) Chunk(text string) []string {
	var units []string
	for _, para := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		if utf8.RuneCountInString(para) <= tc.maxRunes {
			units = append(units, para)
			continue
		}
		units = append(units, splitSentences(para)...)
	}

	var chunks []string
	var current strings.Builder
	currentRunes := 0

	flush := func() {
		if currentRunes == 0 {
			return
		}
		chunk := current.String()
		chunks = append(chunks, chunk)
		current.Reset()
		currentRunes = 0

		if tail := lastRunes(chunk, tc.overlap); tail != "" {
			current.WriteString(tail)
			currentRunes = utf8.RuneCountInString(tail)
		}
	}

	for _, unit := range units {
		n := utf8.RuneCountInString(unit)
		if currentRunes > 0 && currentRunes+n+1 > tc.maxRunes+tc.overlap {
			flush()
		}
		if currentRunes > 0 {
			current.WriteString("\n")
			currentRunes++
		}
		current.WriteString(unit)
		currentRunes += n
	}

	// A trailing buffer that is only overlap repeats the previous chunk.
	if currentRunes > 0 && (len(chunks) == 0 || currentRunes > tc.overlap) {
		chunks = append(chunks, current.String())
	}

	return chunks
}

func splitSentences(text string) []string {
	var out []string
	last := 0
	for _, loc := range sentenceEnd.FindAllStringIndex(text, -1) {
		if s := strings.TrimSpace(text[last:loc[1]]); s != "" {
			out = append(out, s)
		}
		last = loc[1]
	}
	if s := strings.TrimSpace(text[last:]); s != "" {
		out = append(out, s)
	}
	return out
}

func lastRunes(text string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[len(runes)-n:])
}
