package schemas

import (
	"strings"

	"github.com/senpaisaul/multimodal-rag/internal/models"
)

// VisionFactPayload is the reply shape requested from the vision model.
// The page is never taken from the reply; it is injected by the caller.
type VisionFactPayload struct {
	ImageType   string      `json:"image_type" validate:"required,oneof=chart table diagram text other"`
	Description string      `json:"description" validate:"required,notblank"`
	XLabel      string      `json:"x_label"`
	YLabel      string      `json:"y_label"`
	DataPoints  [][]float64 `json:"data_points" validate:"omitempty,dive,len=2"`
	Trend       string      `json:"trend"`
	Confidence  string      `json:"confidence" validate:"required,oneof=high medium low"`
}

// ToFact builds the fact for the given page
func (p VisionFactPayload) ToFact(page int) models.VisionFact {
	return models.VisionFact{
		Page:        page,
		ImageType:   models.ImageType(p.ImageType),
		Description: strings.TrimSpace(p.Description),
		XLabel:      strings.TrimSpace(p.XLabel),
		YLabel:      strings.TrimSpace(p.YLabel),
		DataPoints:  toDataPoints(p.DataPoints),
		Trend:       strings.TrimSpace(p.Trend),
		Confidence:  models.Confidence(p.Confidence),
	}
}

// GraphSpecPayload is the reply shape requested for chart synthesis.
// Emptiness of data_points is checked by the caller so it can report it distinctly.
type GraphSpecPayload struct {
	GraphType  string      `json:"graph_type"`
	Title      string      `json:"title"`
	XLabel     string      `json:"x_label"`
	YLabel     string      `json:"y_label"`
	DataPoints [][]float64 `json:"data_points" validate:"omitempty,dive,len=2"`
}

// ToSpec builds the GraphSpec. Unknown or missing graph types become bar.
func (p GraphSpecPayload) ToSpec() models.GraphSpec {
	graphType := models.GraphType(strings.ToLower(strings.TrimSpace(p.GraphType)))
	switch graphType {
	case models.GraphTypeLine, models.GraphTypeBar, models.GraphTypeScatter:
	default:
		graphType = models.GraphTypeBar
	}
	return models.GraphSpec{
		GraphType:  graphType,
		Title:      p.Title,
		XLabel:     p.XLabel,
		YLabel:     p.YLabel,
		DataPoints: toDataPoints(p.DataPoints),
	}
}

func toDataPoints(raw [][]float64) []models.DataPoint {
	points := make([]models.DataPoint, 0, len(raw))
	for _, pair := range raw {
		if len(pair) != 2 {
			continue
		}
		points = append(points, models.DataPoint{pair[0], pair[1]})
	}
	return points
}
