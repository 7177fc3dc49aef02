package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/senpaisaul/multimodal-rag/internal/models"
	"github.com/senpaisaul/multimodal-rag/internal/services/chat"
)

func TestChartFileName(t *testing.T) {
	name := chartFileName("Revenue by Quarter (2024)")
	assert.True(t, strings.HasPrefix(name, "revenue-by-quarter-2024-"), name)
	assert.True(t, strings.HasSuffix(name, ".pdf"))

	assert.True(t, strings.HasPrefix(chartFileName("   "), "chart-"))
}

func TestFormatAnswer(t *testing.T) {
	answer := &chat.Answer{
		Text:     "Revenue was 20.",
		Grounded: true,
		Sources: []models.ContentRecord{
			models.NewTextRecord("a", 2),
			models.NewTextRecord("b", 2),
			models.NewTextRecord("c", 5),
		},
	}
	out := formatAnswer(answer, "")
	assert.Contains(t, out, "Revenue was 20.")
	assert.Contains(t, out, "**Pages:** 2, 5")
	assert.NotContains(t, out, "Not found")

	refused := formatAnswer(&chat.Answer{Text: chat.CannotFindMessage}, "")
	assert.Contains(t, refused, "Not found in the document")

	chart := formatAnswer(&chat.Answer{Chart: &models.Chart{
		Kind: models.ChartKindBar,
		Spec: models.GraphSpec{DataPoints: []models.DataPoint{{1, 2}}},
	}}, "/tmp/chart.pdf")
	assert.Contains(t, chart, "Untitled chart")
	assert.Contains(t, chart, "bar (1 points)")
	assert.Contains(t, chart, "/tmp/chart.pdf")
}

func TestFormatRecords(t *testing.T) {
	records := []models.ContentRecord{
		models.NewTextRecord("first", 1),
		{Text: "chart fact", Page: 2, Modality: models.ModalityVision, ImageType: models.ImageTypeChart, Confidence: models.ConfidenceHigh},
		models.NewTextRecord("third", 3),
	}

	out := formatRecords(records, 2)
	assert.Contains(t, out, "## Records (3)")
	assert.Contains(t, out, "[p2 vision/chart/high] chart fact")
	assert.Contains(t, out, "... 1 more")
	assert.NotContains(t, out, "third")

	assert.Contains(t, formatRecords(nil, 10), "No records.")
}
