package report

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/senpaisaul/multimodal-rag/internal/models"
)

func TestConvertMarkdownToPDF(t *testing.T) {
	service := NewService(arbor.NewLogger())

	tests := []struct {
		name     string
		markdown string
	}{
		{"basic", "# Title\n\nSome paragraph text.\n\n- Item 1\n- Item 2"},
		{"empty", ""},
		{"table and code", "# Header\n\n| Col 1 | Col 2 |\n|-------|-------|\n| Val 1 | Val 2 |\n\n```go\nfunc main() {}\n```"},
		{"emphasis", "Normal **Bold** *Italic* ***BoldItalic*** `code`"},
		{"unicode", "Revenue rose to €12m, a new high"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pdfBytes, err := service.ConvertMarkdownToPDF(tt.markdown, "Doc")
			require.NoError(t, err)
			require.NotEmpty(t, pdfBytes)
			assert.Equal(t, "%PDF", string(pdfBytes[:4]))
		})
	}
}

func TestTranscriptMarkdown(t *testing.T) {
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	doc := models.DocumentInfo{Name: "report_q2.pdf", SHA256: "abcdef0123456789abcdef", Pages: 4}

	empty := TranscriptMarkdown(doc, "ses_1", created, nil)
	assert.Contains(t, empty, "# Transcript: report\\_q2.pdf")
	assert.Contains(t, empty, "| Pages | 4 |")
	assert.Contains(t, empty, "| SHA-256 | abcdef0123456789 |")
	assert.Contains(t, empty, "No questions asked yet")

	md := TranscriptMarkdown(doc, "ses_1", created, []models.Turn{
		{Question: "What was revenue?", Answer: "Revenue grew 10% in Q2.", Grounded: true, Timestamp: created},
		{Question: "Plot revenue", Chart: "Revenue by quarter", Grounded: true, Timestamp: created},
		{Question: "Who is the CEO?", Answer: "No relevant information found in the document.", Timestamp: created},
		{Question: "Chart costs", Error: "no data points available for graph", Timestamp: created},
	})
	assert.Contains(t, md, "## 1. What was revenue?")
	assert.Contains(t, md, "Revenue grew 10% in Q2.")
	assert.Contains(t, md, "**Chart:** Revenue by quarter")
	assert.Contains(t, md, "*Not grounded in the document.*")
	assert.Contains(t, md, "**Error:** no data points available for graph")

	pdfBytes, err := NewService(arbor.NewLogger()).ConvertMarkdownToPDF(md, "Transcript")
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(pdfBytes[:4]))
}
