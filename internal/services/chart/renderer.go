// -----------------------------------------------------------------------
// Chart Renderer - line and bar charts drawn as single-page PDFs
// -----------------------------------------------------------------------

package chart

import (
	"bytes"
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/go-pdf/fpdf"
	"github.com/ternarybob/arbor"

	"github.com/senpaisaul/multimodal-rag/internal/interfaces"
	"github.com/senpaisaul/multimodal-rag/internal/models"
)

// MIMEType of every rendered chart
const MIMEType = "application/pdf"

// plot area on an A4 landscape page, mm
const (
	plotLeft   = 35.0
	plotTop    = 30.0
	plotWidth  = 225.0
	plotHeight = 135.0
	tickCount  = 5
)

// Renderer implements interfaces.ChartRenderer with fpdf
type Renderer struct {
	logger arbor.ILogger
}

// Compile-time assertion
var _ interfaces.ChartRenderer = (*Renderer)(nil)

// NewRenderer creates a chart renderer
func NewRenderer(logger arbor.ILogger) *Renderer {
	return &Renderer{logger: logger}
}

// Render draws points as a connected line (ChartKindLine) or as bars centred on each x (anything else)
func (r *Renderer) Render(kind models.ChartKind, points []models.DataPoint, title, xLabel, yLabel string) (interfaces.RenderedChart, error) {
	if len(points) == 0 {
		return interfaces.RenderedChart{}, fmt.Errorf("no data points to render")
	}
	for i, p := range points {
		if math.IsNaN(p[0]) || math.IsNaN(p[1]) || math.IsInf(p[0], 0) || math.IsInf(p[1], 0) {
			return interfaces.RenderedChart{}, fmt.Errorf("data point %d is not finite", i)
		}
	}

	pdf := fpdf.New("L", "mm", "A4", "")
	pdf.SetTitle(title, true)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	barWidth := 0.0
	xmin, xmax, ymin, ymax := bounds(points)
	if kind != models.ChartKindLine {
		barWidth = 0.8 * minGap(points)
		xmin -= barWidth / 2
		xmax += barWidth / 2
		ymin = math.Min(ymin, 0)
		ymax = math.Max(ymax, 0)
	}
	xmin, xmax = pad(xmin, xmax)
	ymin, ymax = pad(ymin, ymax)

	sx := func(x float64) float64 { return plotLeft + (x-xmin)/(xmax-xmin)*plotWidth }
	sy := func(y float64) float64 { return plotTop + plotHeight - (y-ymin)/(ymax-ymin)*plotHeight }

	// title
	pdf.SetFont("Helvetica", "B", 14)
	pdf.SetXY(plotLeft, 12)
	pdf.CellFormat(plotWidth, 8, tr(title), "", 0, "C", false, 0, "")

	// axes and ticks
	pdf.SetDrawColor(60, 60, 60)
	pdf.SetLineWidth(0.3)
	pdf.Line(plotLeft, plotTop+plotHeight, plotLeft+plotWidth, plotTop+plotHeight)
	pdf.Line(plotLeft, plotTop, plotLeft, plotTop+plotHeight)

	pdf.SetFont("Helvetica", "", 8)
	for i := 0; i <= tickCount; i++ {
		xv := xmin + (xmax-xmin)*float64(i)/tickCount
		x := sx(xv)
		pdf.Line(x, plotTop+plotHeight, x, plotTop+plotHeight+1.5)
		pdf.SetXY(x-10, plotTop+plotHeight+2)
		pdf.CellFormat(20, 4, tick(xv), "", 0, "C", false, 0, "")

		yv := ymin + (ymax-ymin)*float64(i)/tickCount
		y := sy(yv)
		pdf.Line(plotLeft-1.5, y, plotLeft, y)
		pdf.SetXY(plotLeft-22, y-2)
		pdf.CellFormat(20, 4, tick(yv), "", 0, "R", false, 0, "")
	}

	// axis labels
	pdf.SetFont("Helvetica", "", 10)
	pdf.SetXY(plotLeft, plotTop+plotHeight+9)
	pdf.CellFormat(plotWidth, 5, tr(xLabel), "", 0, "C", false, 0, "")
	if yLabel != "" {
		cx, cy := plotLeft-26, plotTop+plotHeight/2
		pdf.TransformBegin()
		pdf.TransformRotate(90, cx, cy)
		pdf.Text(cx-pdf.GetStringWidth(tr(yLabel))/2, cy, tr(yLabel))
		pdf.TransformEnd()
	}

	// data
	pdf.SetDrawColor(31, 119, 180)
	pdf.SetFillColor(31, 119, 180)
	if kind == models.ChartKindLine {
		pdf.SetLineWidth(0.6)
		for i := 1; i < len(points); i++ {
			pdf.Line(sx(points[i-1][0]), sy(points[i-1][1]), sx(points[i][0]), sy(points[i][1]))
		}
		for _, p := range points {
			pdf.Circle(sx(p[0]), sy(p[1]), 0.8, "F")
		}
	} else {
		base := sy(0)
		for _, p := range points {
			left := sx(p[0] - barWidth/2)
			right := sx(p[0] + barWidth/2)
			top := sy(p[1])
			pdf.Rect(left, math.Min(top, base), right-left, math.Abs(base-top), "F")
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return interfaces.RenderedChart{}, fmt.Errorf("failed to generate chart PDF: %w", err)
	}

	r.logger.Debug().
		Str("kind", string(kind)).
		Int("points", len(points)).
		Int("bytes", buf.Len()).
		Msg("Chart rendered")

	return interfaces.RenderedChart{Data: buf.Bytes(), MIMEType: MIMEType}, nil
}

func bounds(points []models.DataPoint) (xmin, xmax, ymin, ymax float64) {
	xmin, xmax = points[0][0], points[0][0]
	ymin, ymax = points[0][1], points[0][1]
	for _, p := range points[1:] {
		xmin, xmax = math.Min(xmin, p[0]), math.Max(xmax, p[0])
		ymin, ymax = math.Min(ymin, p[1]), math.Max(ymax, p[1])
	}
	return
}

// minGap is the smallest distance between distinct x values, 1 when there is only one
func minGap(points []models.DataPoint) float64 {
	xs := make([]float64, len(points))
	for i, p := range points {
		xs[i] = p[0]
	}
	sort.Float64s(xs)
	gap := math.Inf(1)
	for i := 1; i < len(xs); i++ {
		if d := xs[i] - xs[i-1]; d > 0 && d < gap {
			gap = d
		}
	}
	if math.IsInf(gap, 1) {
		return 1
	}
	return gap
}

// pad widens a degenerate range and adds a 5% margin
func pad(lo, hi float64) (float64, float64) {
	if hi == lo {
		delta := math.Max(math.Abs(lo)*0.1, 1)
		return lo - delta, hi + delta
	}
	m := (hi - lo) * 0.05
	return lo - m, hi + m
}

func tick(v float64) string {
	if math.Abs(v) < 1e-9 {
		v = 0
	}
	return strconv.FormatFloat(v, 'g', 4, 64)
}
