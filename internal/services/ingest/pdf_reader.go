// -----------------------------------------------------------------------
// PDF Reader - page text via ledongthuc/pdf, embedded images via pdfcpu
// -----------------------------------------------------------------------

package ingest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/ternarybob/arbor"

	"github.com/senpaisaul/multimodal-rag/internal/interfaces"
)

// ErrDecode is returned when a document cannot be opened or parsed
var ErrDecode = errors.New("pdf could not be decoded")

// Reader implements interfaces.PDFReader
type Reader struct {
	logger arbor.ILogger
}

// Compile-time interface assertion
var _ interfaces.PDFReader = (*Reader)(nil)

// NewReader creates a PDF reader
func NewReader(logger arbor.ILogger) *Reader {
	return &Reader{logger: logger}
}

// Read decodes every page of the document. Any failure is wrapped in ErrDecode
// and no pages are returned.
func (r *Reader) Read(ctx context.Context, data []byte) ([]interfaces.PDFPage, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty document", ErrDecode)
	}

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	pdfCtx, err := api.ReadContext(bytes.NewReader(data), conf)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	pageCount := pdfCtx.PageCount

	texts, err := pageTexts(data, pageCount)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	images, err := pageImages(data, conf)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	pages := make([]interfaces.PDFPage, 0, pageCount)
	for n := 1; n <= pageCount; n++ {
		pages = append(pages, interfaces.PDFPage{
			Number: n,
			Text:   texts[n-1],
			Images: images[n],
		})
	}

	r.logger.Debug().
		Int("pages", pageCount).
		Int("bytes", len(data)).
		Msg("PDF decoded")

	return pages, nil
}

// pageTexts extracts the plain text of each page. The text library panics on
// some malformed content streams, so panics are converted to errors.
func pageTexts(data []byte, pageCount int) (texts []string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			texts = nil
			err = fmt.Errorf("text extraction panicked: %v", rec)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to open text layer: %w", err)
	}

	texts = make([]string, pageCount)
	n := reader.NumPage()
	if n > pageCount {
		n = pageCount
	}
	for i := 1; i <= n; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i, err)
		}
		texts[i-1] = text
	}
	return texts, nil
}

// pageImages returns the encoded images per 1-based page number, ordered by object number
func pageImages(data []byte, conf *model.Configuration) (map[int][][]byte, error) {
	extracted, err := api.ExtractImagesRaw(bytes.NewReader(data), nil, conf)
	if err != nil {
		return nil, fmt.Errorf("failed to extract images: %w", err)
	}

	var all []model.Image
	for _, byObj := range extracted {
		for _, img := range byObj {
			all = append(all, img)
		}
	}
	sort.SliceStable(all, func(i, j int) bool {
		if all[i].PageNr != all[j].PageNr {
			return all[i].PageNr < all[j].PageNr
		}
		return all[i].ObjNr < all[j].ObjNr
	})

	images := make(map[int][][]byte)
	for _, img := range all {
		if img.Reader == nil {
			continue
		}
		raw, err := io.ReadAll(img)
		if err != nil {
			return nil, fmt.Errorf("page %d image %d: %w", img.PageNr, img.ObjNr, err)
		}
		if len(raw) == 0 {
			continue
		}
		images[img.PageNr] = append(images[img.PageNr], raw)
	}
	return images, nil
}
