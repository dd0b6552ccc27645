// Package chunker provides a boundary-aware text chunking processor.
package chunker

import (
	"context"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/custodia-labs/quarry/internal/core/domain"
	"github.com/custodia-labs/quarry/internal/core/ports/driven"
)

// Ensure Processor implements the interface.
var _ driven.PostProcessor = (*Processor)(nil)

// DefaultChunkSize is the default number of characters per chunk.
const DefaultChunkSize = domain.DefaultChunkSize

// DefaultChunkOverlap is the default number of overlapping characters.
const DefaultChunkOverlap = domain.DefaultChunkOverlap

// boundaries lists cut points in order of preference.
var boundaries = []string{"\n\n", "\n", ". ", "! ", "? ", " "}

// Processor splits document content into overlapping chunks.
type Processor struct {
	chunkSize int
	overlap   int
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithChunkSize sets the chunk size in characters.
func WithChunkSize(size int) Option {
	return func(p *Processor) {
		if size > 0 {
			p.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between chunks in characters.
// Overlap may exceed the chunk size; chunking still makes progress.
func WithOverlap(overlap int) Option {
	return func(p *Processor) {
		if overlap >= 0 {
			p.overlap = overlap
		}
	}
}

// New creates a new chunker processor with the given options.
func New(opts ...Option) *Processor {
	p := &Processor{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "chunker"
}

// Process splits the document content into chunks.
// Input chunks are ignored; this processor creates new chunks from document content.
func (p *Processor) Process(_ context.Context, doc *domain.Document, _ []domain.Chunk) ([]domain.Chunk, error) {
	spans := Split(doc.Content, p.chunkSize, p.overlap)
	if len(spans) == 0 {
		return nil, nil
	}

	chunks := make([]domain.Chunk, 0, len(spans))
	for i, span := range spans {
		chunks = append(chunks, domain.Chunk{
			ID:         domain.ChunkID(doc.ID, i),
			DocumentID: doc.ID,
			Content:    doc.Content[span.Start:span.End],
			Position:   i,
			Span:       span,
		})
	}
	return chunks, nil
}

// Split returns the trimmed spans of text covered by each chunk, in order.
//
// A window of size bytes is cut at the last preferred boundary found in its
// back half, or at the window edge when there is none. The next window starts
// overlap bytes before the window edge, but never after the cut (no text is
// skipped) and never at or before the current start (every pass moves forward).
// The next start is therefore min(start+size-overlap, cut), not the max of the
// two: when a boundary cut lands before the overlap point, a max would resume
// past the cut and drop the text between them.
// Whitespace-only chunks are dropped.
func Split(text string, size, overlap int) []domain.Span {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 {
		overlap = 0
	}

	var spans []domain.Span
	start := 0
	for start < len(text) {
		end := len(text)
		next := end
		if end-start > size {
			end = cutPoint(text, start, size)
			next = alignRune(text, min(start+size-overlap, end))
			if next <= start {
				next = end
			}
		}

		if span, ok := trimSpan(text, start, end); ok {
			spans = append(spans, span)
		}
		if end == len(text) {
			break
		}
		start = next
	}
	return spans
}

// cutPoint finds where the window starting at start should end.
func cutPoint(text string, start, size int) int {
	windowEnd := start + size
	half := start + size/2
	back := text[half:windowEnd]

	for _, b := range boundaries {
		if i := strings.LastIndex(back, b); i >= 0 {
			return half + i + len(b)
		}
	}
	if cut := alignRune(text, windowEnd); cut > start {
		return cut
	}
	_, w := utf8.DecodeRuneInString(text[start:])
	return start + w
}

// alignRune moves i back to the start of the rune containing it.
func alignRune(text string, i int) int {
	if i >= len(text) {
		return len(text)
	}
	for i > 0 && !utf8.RuneStart(text[i]) {
		i--
	}
	return i
}

func trimSpan(text string, start, end int) (domain.Span, bool) {
	seg := text[start:end]
	left := len(seg) - len(strings.TrimLeftFunc(seg, unicode.IsSpace))
	right := len(strings.TrimRightFunc(seg, unicode.IsSpace))
	if left >= right {
		return domain.Span{}, false
	}
	return domain.Span{Start: start + left, End: start + right}, true
}
