package interfaces

import (
	"github.com/senpaisaul/multimodal-rag/internal/models"
)

// RenderedChart is the output of a ChartRenderer
type RenderedChart struct {
	Data     []byte
	MIMEType string
}

// ChartRenderer draws a chart of the given kind
type ChartRenderer interface {
	Render(kind models.ChartKind, points []models.DataPoint, title, xLabel, yLabel string) (RenderedChart, error)
}

// TranscriptService renders a session's conversation history as a PDF
type TranscriptService interface {
	ConvertMarkdownToPDF(markdown, title string) ([]byte, error)
}
