package chunk

import (
	"context"
	"strings"
	"time"
)

// TextChunkerOptions configures the plain-text chunker behavior
type TextChunkerOptions struct {
	MaxChunkTokens int // Maximum tokens per chunk (default: DefaultMaxChunkTokens)
}

// TextChunker splits plain prose (OCR output, .txt transcripts, anything
// without markdown structure) into passages by paragraph boundaries. It
// has no headers to key off, so every passage carries the same flat
// metadata.
type TextChunker struct {
	options TextChunkerOptions
}

// NewTextChunker creates a new text chunker with default options
func NewTextChunker() *TextChunker {
	return NewTextChunkerWithOptions(TextChunkerOptions{})
}

// NewTextChunkerWithOptions creates a new text chunker with custom options
func NewTextChunkerWithOptions(opts TextChunkerOptions) *TextChunker {
	if opts.MaxChunkTokens == 0 {
		opts.MaxChunkTokens = DefaultMaxChunkTokens
	}
	return &TextChunker{options: opts}
}

// Close releases chunker resources. TextChunker is stateless.
func (c *TextChunker) Close() {}

// SupportedExtensions returns file extensions this chunker handles
func (c *TextChunker) SupportedExtensions() []string {
	return []string{".txt", ".text"}
}

// Chunk splits plain text into passages, grouping paragraphs up to the
// configured token budget.
func (c *TextChunker) Chunk(ctx context.Context, file *FileInput) ([]*Chunk, error) {
	content := string(file.Content)
	if strings.TrimSpace(content) == "" {
		return nil, nil
	}

	paragraphs := strings.Split(content, "\n\n")
	now := time.Now()

	var chunks []*Chunk
	var current strings.Builder
	startLine := 1
	lineCount := 0

	flush := func() {
		if current.Len() == 0 {
			return
		}
		text := current.String()
		chunks = append(chunks, &Chunk{
			ID:          generateChunkID(file.Path, text),
			FilePath:    file.Path,
			Content:     text,
			ContentType: ContentTypeText,
			StartLine:   startLine,
			EndLine:     startLine + lineCount,
			Metadata:    map[string]string{"header_path": "", "header_level": "0"},
			CreatedAt:   now,
			UpdatedAt:   now,
		})
		current.Reset()
		startLine += lineCount
		lineCount = 0
	}

	for _, para := range paragraphs {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}

		paraLines := strings.Count(para, "\n") + 1
		paraTokens := estimateTokens(para)
		currentTokens := estimateTokens(current.String())

		if current.Len() > 0 && currentTokens+paraTokens > c.options.MaxChunkTokens {
			flush()
		}

		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(para)
		lineCount += paraLines + 1
	}
	flush()

	return chunks, nil
}
