package chunker

import (
	"strings"

	"bookrag/internal/rag_service/rag/interfaces"
	"bookrag/internal/rag_service/rag/schema"
)

const (
	// DefaultWindowLength is the target chunk length in characters.
	DefaultWindowLength = 900
	// DefaultOverlap is how many characters consecutive chunks share.
	DefaultOverlap = 150

	minWindowLength     = 200
	boundarySearchSpan  = 200
	minSpaceCutDistance = 50
)

// Chunker splits a document's title, description and body into overlapping
// character windows so each book yields multiple embeddings. It is a pure
// function of the document text: no I/O, deterministic output.
type Chunker struct {
	windowLength int
	overlap      int
}

// New creates a Chunker. The window length is floored at 200 characters and
// the overlap is clamped to [0, windowLength-1] so the cursor always moves
// forward.
func New(windowLength, overlap int) *Chunker {
	if windowLength < minWindowLength {
		windowLength = minWindowLength
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap > windowLength-1 {
		overlap = windowLength - 1
	}
	return &Chunker{windowLength: windowLength, overlap: overlap}
}

// Chunk produces the ordered chunk sequence for a document. Sections are
// processed as TITLE, DESCRIPTION, BODY and indices are assigned densely
// across all three, so title chunks always precede body chunks.
func (c *Chunker) Chunk(doc *schema.Document) []schema.TextChunk {
	if doc == nil {
		return nil
	}
	var chunks []schema.TextChunk
	index := 0
	index = c.appendSection(&chunks, index, schema.SourceTitle, doc.Title)
	index = c.appendSection(&chunks, index, schema.SourceDescription, doc.Description)
	c.appendSection(&chunks, index, schema.SourceBody, doc.Body)
	return chunks
}

func (c *Chunker) appendSection(accumulator *[]schema.TextChunk, index int, source schema.ChunkSource, raw string) int {
	if raw == "" {
		return index
	}
	for _, piece := range c.split(raw) {
		normalized := normalize(piece)
		if normalized == "" {
			continue
		}
		*accumulator = append(*accumulator, schema.TextChunk{Index: index, Source: source, Text: normalized})
		index++
	}
	return index
}

// split cuts the raw text into windows of up to windowLength runes,
// preferring sentence boundaries near the cut point. Empty pieces are
// filtered by the caller after normalization.
func (c *Chunker) split(text string) []string {
	runes := []rune(text)
	if len(runes) <= c.windowLength {
		return []string{text}
	}
	var pieces []string
	start := 0
	for start < len(runes) {
		preferredEnd := start + c.windowLength
		if preferredEnd > len(runes) {
			preferredEnd = len(runes)
		}
		end := preferredEnd
		if preferredEnd < len(runes) {
			end = findBoundary(runes, start, preferredEnd)
		}
		if end < start+1 {
			end = start + 1
		}
		pieces = append(pieces, string(runes[start:end]))
		if end >= len(runes) {
			break
		}
		// Step back by the overlap, but never behind the previous start:
		// forward progress is guaranteed even with large overlap on a
		// short remainder.
		nextStart := end - c.overlap
		if nextStart <= start {
			nextStart = start + 1
		}
		start = nextStart
	}
	return pieces
}

// findBoundary looks backward from the preferred cut for up to 200 runes for
// a sentence boundary. Failing that, it falls back to the nearest space at
// least 50 runes into the window, and finally to the raw character cut.
func findBoundary(runes []rune, start, preferredEnd int) int {
	searchStart := preferredEnd - boundarySearchSpan
	if searchStart < start {
		searchStart = start
	}
	for i := preferredEnd; i > searchStart; i-- {
		if isBoundaryRune(runes[i-1]) {
			return i
		}
	}
	for i := preferredEnd - 1; i >= 0; i-- {
		if runes[i] == ' ' {
			if i > start+minSpaceCutDistance {
				return i
			}
			break
		}
	}
	return preferredEnd
}

func isBoundaryRune(r rune) bool {
	return r == '.' || r == '!' || r == '?' || r == ';' || r == ':' || r == '\n'
}

// normalize collapses whitespace runs to single spaces and trims the ends.
func normalize(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

var _ interfaces.Chunker = (*Chunker)(nil)
