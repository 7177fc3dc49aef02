package models

// ImageType classifies what an analysed image shows
type ImageType string

const (
	ImageTypeChart   ImageType = "chart"
	ImageTypeTable   ImageType = "table"
	ImageTypeDiagram ImageType = "diagram"
	ImageTypeText    ImageType = "text"
	ImageTypeOther   ImageType = "other"
)

// Confidence is the vision model's self-reported certainty
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// FallbackDescription is the description given to images whose analysis could not be parsed
const FallbackDescription = "Image detected but could not be parsed reliably."

// DataPoint is an (x, y) pair
type DataPoint [2]float64

// VisionFact is the structured reading of one image. Values are treated as read-only once built.
type VisionFact struct {
	Page        int         `json:"page"`
	ImageType   ImageType   `json:"image_type"`
	Description string      `json:"description"`
	XLabel      string      `json:"x_label,omitempty"`
	YLabel      string      `json:"y_label,omitempty"`
	DataPoints  []DataPoint `json:"data_points"`
	Trend       string      `json:"trend,omitempty"`
	Confidence  Confidence  `json:"confidence"`
}

// FactResult is the outcome of analysing an image: either a valid fact or a fallback with the reason
type FactResult struct {
	Fact     VisionFact
	Fallback bool
	Reason   string
}

// ValidFact wraps a successfully parsed fact
func ValidFact(fact VisionFact) FactResult {
	return FactResult{Fact: fact}
}

// FallbackFact builds the low-confidence placeholder for an image that could not be read
func FallbackFact(page int, reason string) FactResult {
	return FactResult{
		Fact: VisionFact{
			Page:        page,
			ImageType:   ImageTypeOther,
			Description: FallbackDescription,
			DataPoints:  []DataPoint{},
			Confidence:  ConfidenceLow,
		},
		Fallback: true,
		Reason:   reason,
	}
}

// Indexable reports whether the fact may enter the index
func (r FactResult) Indexable() bool {
	return !r.Fallback && r.Fact.Confidence != ConfidenceLow
}
