package pdf

import (
	"bytes"
	"fmt"
	"testing"
)

// buildPDF assembles numbered objects into a document with a computed
// xref table. Object i in the slice becomes object number i+1; the
// first object must be the catalog.
func buildPDF(objects []string) []byte {
	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")

	offsets := make([]int, len(objects)+1)
	for i, obj := range objects {
		offsets[i+1] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for i := 1; i <= len(objects); i++ {
		fmt.Fprintf(&buf, "%010d 00000 n \n", offsets[i])
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return buf.Bytes()
}

func contentStream(ops string) string {
	return fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(ops), ops)
}

// formPDF builds a one-page document carrying an AcroForm with a text
// field (firstName) and a checkbox (subscribe) whose on state is /Ja,
// the shape European forms in the wild use.
func formPDF(t *testing.T) []byte {
	t.Helper()
	appearance := "<< /Type /XObject /Subtype /Form /BBox [0 0 20 20] /Length 0 >>\nstream\n\nendstream"
	return buildPDF([]string{
		"<< /Type /Catalog /Pages 2 0 R /AcroForm << /Fields [4 0 R 5 0 R] /DR << /Font << /Helv 6 0 R >> >> /DA (/Helv 0 Tf 0 g) >> >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Annots [4 0 R 5 0 R] /Contents 9 0 R /Resources << /Font << /Helv 6 0 R >> >> >>",
		"<< /Type /Annot /Subtype /Widget /FT /Tx /T (firstName) /Rect [100 700 300 720] /P 3 0 R /DA (/Helv 10 Tf 0 g) >>",
		"<< /Type /Annot /Subtype /Widget /FT /Btn /T (subscribe) /Rect [100 650 120 670] /P 3 0 R /V /Off /AS /Off /AP << /N << /Ja 7 0 R /Off 8 0 R >> >> >>",
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>",
		appearance,
		appearance,
		contentStream("BT /Helv 12 Tf 72 760 Td (Application) Tj ET"),
	})
}

// plainPDF builds a one-page document with no interactive fields.
func plainPDF(t *testing.T) []byte {
	t.Helper()
	return buildPDF([]string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Contents 4 0 R /Resources << /Font << /Helv 5 0 R >> >> >>",
		contentStream("BT /Helv 12 Tf 72 720 Td (Hello) Tj ET"),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>",
	})
}
