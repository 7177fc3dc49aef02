// -----------------------------------------------------------------------
// Graph Synthesizer - retrieved context to a validated, rendered chart
// -----------------------------------------------------------------------

package graph

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/senpaisaul/multimodal-rag/internal/interfaces"
	"github.com/senpaisaul/multimodal-rag/internal/models"
	"github.com/senpaisaul/multimodal-rag/internal/schemas"
)

var (
	// ErrNoDataPoints is returned when the model produced no data to plot
	ErrNoDataPoints = errors.New("no data points available for graph")

	// ErrInvalidSpec is returned when the model's reply is not a valid chart specification
	ErrInvalidSpec = errors.New("invalid graph specification")
)

// DefaultPrompt asks for a GraphSpec; {context} and {query} are substituted
const DefaultPrompt = `Return STRICT JSON only.

{
 "graph_type": "line|bar|scatter",
 "title": "",
 "x_label": "",
 "y_label": "",
 "data_points": [[x,y]]
}

Use only numbers that appear in the context. If the context has no numeric data, return an empty data_points list.

Context:
{context}

Query:
{query}`

// Synthesizer asks a text completion for a chart and renders it
type Synthesizer struct {
	llm      interfaces.LLMService
	renderer interfaces.ChartRenderer
	prompt   string
	schema   map[string]interface{}
	logger   arbor.ILogger
}

// NewSynthesizer creates a graph synthesizer
func NewSynthesizer(llm interfaces.LLMService, renderer interfaces.ChartRenderer, logger arbor.ILogger) *Synthesizer {
	return &Synthesizer{
		llm:      llm,
		renderer: renderer,
		prompt:   DefaultPrompt,
		schema:   schemas.MustSchemaMap(schemas.GraphSpecSchema),
		logger:   logger,
	}
}

// SetPrompt replaces the prompt template. Empty keeps the current one.
func (s *Synthesizer) SetPrompt(prompt string) {
	if prompt != "" {
		s.prompt = prompt
	}
}

// Spec asks the model for a chart specification and validates it.
// Errors wrap ErrInvalidSpec or ErrNoDataPoints; completion errors are returned as-is.
func (s *Synthesizer) Spec(ctx context.Context, contextText, query string) (models.GraphSpec, error) {
	prompt := strings.NewReplacer("{context}", contextText, "{query}", query).Replace(s.prompt)

	raw, err := s.llm.CompleteJSON(ctx, []interfaces.Message{{Role: "user", Content: prompt}}, s.schema)
	if err != nil {
		return models.GraphSpec{}, fmt.Errorf("graph completion failed: %w", err)
	}

	parsed := schemas.Parse[schemas.GraphSpecPayload](raw)
	if !parsed.OK() {
		return models.GraphSpec{}, fmt.Errorf("%w (%s): %v", ErrInvalidSpec, parsed.Status, parsed.Err)
	}

	spec := parsed.Value.ToSpec()
	if len(spec.DataPoints) == 0 {
		return models.GraphSpec{}, ErrNoDataPoints
	}
	return spec, nil
}

// Synthesize builds a chart for query from contextText. Line specs render as line charts,
// every other type as a bar chart. The chart is returned, never displayed or saved.
func (s *Synthesizer) Synthesize(ctx context.Context, contextText, query string) (*models.Chart, error) {
	start := time.Now()

	spec, err := s.Spec(ctx, contextText, query)
	if err != nil {
		s.logger.Warn().Err(err).Str("query", query).Msg("Graph synthesis failed")
		return nil, err
	}

	kind := spec.Kind()
	rendered, err := s.renderer.Render(kind, spec.DataPoints, spec.Title, spec.XLabel, spec.YLabel)
	if err != nil {
		return nil, fmt.Errorf("failed to render chart: %w", err)
	}

	s.logger.Info().
		Str("graph_type", string(spec.GraphType)).
		Str("kind", string(kind)).
		Int("points", len(spec.DataPoints)).
		Dur("duration", time.Since(start)).
		Msg("Chart synthesized")

	return &models.Chart{
		Spec:     spec,
		Kind:     kind,
		Data:     rendered.Data,
		MIMEType: rendered.MIMEType,
	}, nil
}
