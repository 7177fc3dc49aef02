package graph

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/senpaisaul/multimodal-rag/internal/interfaces"
	"github.com/senpaisaul/multimodal-rag/internal/models"
	"github.com/senpaisaul/multimodal-rag/internal/services/chart"
)

type fakeLLM struct {
	reply  string
	err    error
	prompt string
}

func (f *fakeLLM) Complete(ctx context.Context, messages []interfaces.Message) (string, error) {
	return f.CompleteJSON(ctx, messages, nil)
}

func (f *fakeLLM) CompleteJSON(ctx context.Context, messages []interfaces.Message, schema map[string]interface{}) (string, error) {
	f.prompt = messages[len(messages)-1].Content
	return f.reply, f.err
}

func (f *fakeLLM) Model() string { return "fake/text" }

type recordingRenderer struct {
	kind   models.ChartKind
	points []models.DataPoint
	labels [3]string
	calls  int
}

func (r *recordingRenderer) Render(kind models.ChartKind, points []models.DataPoint, title, xLabel, yLabel string) (interfaces.RenderedChart, error) {
	r.calls++
	r.kind, r.points, r.labels = kind, points, [3]string{title, xLabel, yLabel}
	return interfaces.RenderedChart{Data: []byte("%PDF-fake"), MIMEType: "application/pdf"}, nil
}

func TestSynthesize_RendersKinds(t *testing.T) {
	tests := []struct {
		graphType string
		want      models.ChartKind
	}{
		{"line", models.ChartKindLine},
		{"bar", models.ChartKindBar},
		{"scatter", models.ChartKindBar},
		{"pie", models.ChartKindBar},
		{"", models.ChartKindBar},
	}

	for _, tt := range tests {
		t.Run(tt.graphType, func(t *testing.T) {
			reply := `{"graph_type":"` + tt.graphType + `","title":"Revenue","x_label":"Quarter","y_label":"USD","data_points":[[1,10],[2,20]]}`
			llm := &fakeLLM{reply: reply}
			renderer := &recordingRenderer{}
			s := NewSynthesizer(llm, renderer, arbor.NewLogger())

			c, err := s.Synthesize(context.Background(), "Revenue grew from 10 to 20.", "plot revenue")
			require.NoError(t, err)
			assert.Equal(t, tt.want, c.Kind)
			assert.Equal(t, tt.want, renderer.kind)
			assert.Equal(t, []models.DataPoint{{1, 10}, {2, 20}}, renderer.points)
			assert.Equal(t, [3]string{"Revenue", "Quarter", "USD"}, renderer.labels)
			assert.Equal(t, "application/pdf", c.MIMEType)
		})
	}
}

func TestSynthesize_PromptCarriesContextAndQuery(t *testing.T) {
	llm := &fakeLLM{reply: `{"graph_type":"line","data_points":[[1,2]]}`}
	s := NewSynthesizer(llm, &recordingRenderer{}, arbor.NewLogger())

	_, err := s.Synthesize(context.Background(), "CTX-BODY", "QUERY-BODY")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(llm.prompt, "Return STRICT JSON only."))
	assert.Contains(t, llm.prompt, "Context:\nCTX-BODY")
	assert.Contains(t, llm.prompt, "Query:\nQUERY-BODY")
}

func TestSynthesize_MissingLabelsDefaultToEmpty(t *testing.T) {
	renderer := &recordingRenderer{}
	s := NewSynthesizer(&fakeLLM{reply: `{"graph_type":"bar","data_points":[[1,2]]}`}, renderer, arbor.NewLogger())

	_, err := s.Synthesize(context.Background(), "c", "q")
	require.NoError(t, err)
	assert.Equal(t, [3]string{"", "", ""}, renderer.labels)
}

func TestSynthesize_NoDataPoints(t *testing.T) {
	for _, reply := range []string{
		`{"graph_type":"line","title":"Nothing","data_points":[]}`,
		`{"graph_type":"line","title":"Nothing"}`,
	} {
		renderer := &recordingRenderer{}
		s := NewSynthesizer(&fakeLLM{reply: reply}, renderer, arbor.NewLogger())

		c, err := s.Synthesize(context.Background(), "The company has offices in Berlin.", "plot revenue")
		assert.ErrorIs(t, err, ErrNoDataPoints)
		assert.Nil(t, c)
		assert.Equal(t, 0, renderer.calls)
	}
}

func TestSynthesize_InvalidSpecPropagates(t *testing.T) {
	tests := []struct {
		name  string
		reply string
	}{
		{"malformed", "here is your chart"},
		{"wrong type", `{"graph_type":"line","data_points":"lots"}`},
		{"bad pair", `{"graph_type":"line","data_points":[[1,2,3]]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSynthesizer(&fakeLLM{reply: tt.reply}, &recordingRenderer{}, arbor.NewLogger())
			_, err := s.Synthesize(context.Background(), "c", "q")
			assert.ErrorIs(t, err, ErrInvalidSpec)
		})
	}
}

func TestSynthesize_CompletionErrorPropagates(t *testing.T) {
	boom := errors.New("503 unavailable")
	s := NewSynthesizer(&fakeLLM{err: boom}, &recordingRenderer{}, arbor.NewLogger())

	_, err := s.Synthesize(context.Background(), "c", "q")
	assert.ErrorIs(t, err, boom)
}

func TestSynthesize_WithPDFRenderer(t *testing.T) {
	llm := &fakeLLM{reply: "```json\n{\"graph_type\":\"line\",\"title\":\"Revenue\",\"data_points\":[[1,10],[2,20]]}\n```"}
	s := NewSynthesizer(llm, chart.NewRenderer(arbor.NewLogger()), arbor.NewLogger())

	c, err := s.Synthesize(context.Background(), "c", "q")
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(c.Data[:4]))
	assert.Equal(t, "Revenue", c.Spec.Title)
}
