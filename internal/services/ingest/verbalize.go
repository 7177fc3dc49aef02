package ingest

import (
	"strconv"
	"strings"

	"github.com/senpaisaul/multimodal-rag/internal/models"
)

// Verbalize renders a vision fact as the sentence that gets indexed.
// Empty fields are left out; the output is deterministic for a given fact.
//
//	On page 2, Revenue by quarter. Trend: increasing. X-axis: Quarter. Y-axis: Revenue. Data points: [[1, 10], [2, 20]].
func Verbalize(fact models.VisionFact) string {
	var b strings.Builder
	b.WriteString("On page ")
	b.WriteString(strconv.Itoa(fact.Page))
	b.WriteString(", ")
	b.WriteString(strings.TrimSuffix(strings.TrimSpace(fact.Description), "."))
	b.WriteString(".")

	field := func(label, value string) {
		value = strings.TrimSuffix(strings.TrimSpace(value), ".")
		if value == "" {
			return
		}
		b.WriteString(" ")
		b.WriteString(label)
		b.WriteString(": ")
		b.WriteString(value)
		b.WriteString(".")
	}

	field("Trend", fact.Trend)
	field("X-axis", fact.XLabel)
	field("Y-axis", fact.YLabel)
	if len(fact.DataPoints) > 0 {
		field("Data points", FormatPoints(fact.DataPoints))
	}

	return b.String()
}

// FormatPoints renders points as [[x, y], ...] using the shortest float form
func FormatPoints(points []models.DataPoint) string {
	var b strings.Builder
	b.WriteString("[")
	for i, p := range points {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString("[")
		b.WriteString(strconv.FormatFloat(p[0], 'g', -1, 64))
		b.WriteString(", ")
		b.WriteString(strconv.FormatFloat(p[1], 'g', -1, 64))
		b.WriteString("]")
	}
	b.WriteString("]")
	return b.String()
}
