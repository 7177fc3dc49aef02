// -----------------------------------------------------------------------
// PDF Reader Interface - per-page text and embedded images
// -----------------------------------------------------------------------

package interfaces

import (
	"context"
)

// PDFPage is the raw content of one page, in document order
type PDFPage struct {
	Number int      // 1-based
	Text   string   // untrimmed page text
	Images [][]byte // encoded image bytes in extraction order
}

// PDFReader decodes a PDF into pages. It fails as a whole when the
// document cannot be opened; no partial pages are returned.
type PDFReader interface {
	Read(ctx context.Context, pdf []byte) ([]PDFPage, error)
}
