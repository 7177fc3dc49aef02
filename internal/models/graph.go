package models

// GraphType is the chart type requested by the model
type GraphType string

const (
	GraphTypeLine    GraphType = "line"
	GraphTypeBar     GraphType = "bar"
	GraphTypeScatter GraphType = "scatter"
)

// ChartKind is what actually gets drawn. Only line and bar are rendered.
type ChartKind string

const (
	ChartKindLine ChartKind = "line"
	ChartKindBar  ChartKind = "bar"
)

// GraphSpec is a chart request synthesised from retrieved context
type GraphSpec struct {
	GraphType  GraphType   `json:"graph_type"`
	Title      string      `json:"title"`
	XLabel     string      `json:"x_label"`
	YLabel     string      `json:"y_label"`
	DataPoints []DataPoint `json:"data_points"`
}

// Kind maps the requested type to a renderable kind: line stays line, everything else is a bar chart
func (g GraphSpec) Kind() ChartKind {
	if g.GraphType == GraphTypeLine {
		return ChartKindLine
	}
	return ChartKindBar
}

// Chart is a rendered GraphSpec
type Chart struct {
	Spec     GraphSpec `json:"spec"`
	Kind     ChartKind `json:"kind"`
	Data     []byte    `json:"-"`
	MIMEType string    `json:"mime_type"`
}
