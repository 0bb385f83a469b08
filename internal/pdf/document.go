// Package pdf implements the document side of the fill pipeline: the
// named-field inspector, the two fill paths, the coordinate transform
// and best-effort source text extraction. All document access goes
// through pdfcpu with relaxed validation so slightly broken forms from
// the wild still open.
package pdf

import (
	"bytes"
	"errors"
	"fmt"
	"unicode/utf16"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// ErrDocumentRead indicates that the input bytes could not be parsed
// as a PDF document.
var ErrDocumentRead = errors.New("cannot read document")

// readContext parses document bytes into a pdfcpu context.
func readContext(doc []byte) (*model.Context, error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	ctx, err := api.ReadContext(bytes.NewReader(doc), conf)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDocumentRead, err)
	}

	if err := ctx.EnsurePageCount(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDocumentRead, err)
	}

	return ctx, nil
}

// PageCount returns the number of pages in the document.
func PageCount(doc []byte) (int, error) {
	ctx, err := readContext(doc)
	if err != nil {
		return 0, err
	}
	return ctx.PageCount, nil
}

// pageDims returns the physical size of every page in points.
func pageDims(ctx *model.Context) ([]types.Dim, error) {
	dims, err := ctx.PageDims()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDocumentRead, err)
	}
	return dims, nil
}

// pdfTextString encodes a value as a UTF-16BE hex literal so non-ASCII
// values survive the round trip through any viewer.
func pdfTextString(s string) types.HexLiteral {
	bs := make([]byte, 0, 2+2*len(s))
	bs = append(bs, 0xFE, 0xFF)
	for _, u := range utf16.Encode([]rune(s)) {
		bs = append(bs, byte(u>>8), byte(u))
	}
	return types.NewHexLiteral(bs)
}
