package pdf

import (
	"bytes"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/rs/zerolog"
)

// maxSourceTextSize caps the text sent with an extraction request.
const maxSourceTextSize = 1 * 1024 * 1024

// TextExtractor pulls the plain-text layer out of a source document so
// the extraction model sees it alongside the raw bytes. Extraction is
// best effort: image-only and non-PDF sources yield an empty string.
type TextExtractor struct {
	log zerolog.Logger
}

// NewTextExtractor creates a new source text extractor.
func NewTextExtractor(log zerolog.Logger) *TextExtractor {
	return &TextExtractor{log: log.With().Str("component", "text").Logger()}
}

// Text returns the document's text layer, or "" when there is none.
func (t *TextExtractor) Text(doc []byte) (text string) {
	defer func() {
		// The underlying parser can panic on malformed input; a source
		// without a text layer is not an error.
		if r := recover(); r != nil {
			t.log.Debug().Interface("panic", r).Msg("text extraction panicked")
			text = ""
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(doc), int64(len(doc)))
	if err != nil {
		t.log.Debug().Err(err).Msg("source has no readable text layer")
		return ""
	}

	var builder strings.Builder
	total := 0

	for pageNum := 1; pageNum <= reader.NumPage(); pageNum++ {
		page := reader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}

		content, err := page.GetPlainText(nil)
		if err != nil {
			// Continue with other pages even if one fails.
			continue
		}

		if total+len(content) > maxSourceTextSize {
			remaining := maxSourceTextSize - total
			if remaining > 0 {
				builder.WriteString(content[:remaining])
			}
			break
		}

		builder.WriteString(content)
		total += len(content)

		if pageNum < reader.NumPage() {
			builder.WriteString("\n\n")
		}
	}

	return strings.TrimSpace(builder.String())
}
