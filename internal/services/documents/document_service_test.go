package documents

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/senpaisaul/multimodal-rag/internal/common"
	"github.com/senpaisaul/multimodal-rag/internal/interfaces"
	"github.com/senpaisaul/multimodal-rag/internal/models"
	"github.com/senpaisaul/multimodal-rag/internal/services/chart"
	"github.com/senpaisaul/multimodal-rag/internal/services/chat"
	"github.com/senpaisaul/multimodal-rag/internal/services/embeddings"
	"github.com/senpaisaul/multimodal-rag/internal/services/events"
	"github.com/senpaisaul/multimodal-rag/internal/services/graph"
	"github.com/senpaisaul/multimodal-rag/internal/services/index"
	"github.com/senpaisaul/multimodal-rag/internal/services/ingest"
	"github.com/senpaisaul/multimodal-rag/internal/services/report"
	"github.com/senpaisaul/multimodal-rag/internal/session"
)

type pagesReader struct {
	pages map[string][]interfaces.PDFPage
}

func (r *pagesReader) Read(ctx context.Context, pdf []byte) ([]interfaces.PDFPage, error) {
	pages, ok := r.pages[string(pdf)]
	if !ok {
		return nil, errors.Join(ingest.ErrDecode, errors.New("not a pdf"))
	}
	return pages, nil
}

type noVision struct{}

func (noVision) Analyze(ctx context.Context, image []byte, page int) (models.FactResult, bool) {
	return models.FactResult{}, false
}

type replyLLM struct{ reply string }

func (l *replyLLM) Complete(ctx context.Context, messages []interfaces.Message) (string, error) {
	return l.reply, nil
}

func (l *replyLLM) CompleteJSON(ctx context.Context, messages []interfaces.Message, schema map[string]interface{}) (string, error) {
	return l.reply, nil
}

func (l *replyLLM) Model() string { return "fake/text" }

type memoryRegistry struct {
	mu   sync.Mutex
	docs []models.DocumentRecord
}

func (m *memoryRegistry) SaveDocument(ctx context.Context, doc *models.DocumentRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs = append(m.docs, *doc)
	return nil
}

func (m *memoryRegistry) GetDocument(ctx context.Context, id string) (*models.DocumentRecord, error) {
	return nil, errors.New("not implemented")
}

func (m *memoryRegistry) GetDocumentBySHA256(ctx context.Context, sha string) (*models.DocumentRecord, error) {
	return nil, errors.New("not implemented")
}

func (m *memoryRegistry) ListDocuments(ctx context.Context, limit int) ([]models.DocumentRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.DocumentRecord(nil), m.docs...), nil
}

var testPDFs = map[string][]interfaces.PDFPage{
	"revenue.pdf": {
		{Number: 1, Text: "Revenue grew from 10 in Q1 to 20 in Q2."},
		{Number: 2, Text: "Costs stayed flat at 5 per quarter."},
	},
	"blank.pdf": {
		{Number: 1, Text: "   "},
	},
}

func newTestService(t *testing.T, qaReply, graphReply string, registry interfaces.DocumentStorage) *Service {
	t.Helper()
	logger := arbor.NewLogger()

	ing, err := ingest.NewIngestor(&pagesReader{pages: testPDFs}, noVision{}, &common.IngestConfig{ChunkSize: 200, ChunkOverlap: 20}, nil, logger)
	require.NoError(t, err)

	indexer := index.NewService(embeddings.NewLocalEmbedder(128), nil, &common.RetrievalConfig{TopK: 4}, logger)
	synth := graph.NewSynthesizer(&replyLLM{reply: graphReply}, chart.NewRenderer(logger), logger)
	chatService := chat.NewChatService(&replyLLM{reply: qaReply}, indexer, synth, nil, logger)

	eventService := events.NewService(logger)
	t.Cleanup(func() { _ = eventService.Close() })

	return NewService(ing, indexer, chatService, session.NewManager(logger), registry, report.NewService(logger), eventService, logger)
}

func TestLoad_ReplacesSession(t *testing.T) {
	registry := &memoryRegistry{}
	s := newTestService(t, "Revenue was 20.", "", registry)
	ctx := context.Background()

	_, err := s.Current()
	assert.ErrorIs(t, err, session.ErrNoSession)

	first, err := s.Load(ctx, "revenue.pdf", []byte("revenue.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "revenue.pdf", first.Document.Name)
	assert.Equal(t, 2, first.Document.Pages)
	assert.Len(t, first.Document.SHA256, 64)
	assert.Equal(t, 2, first.Records[models.ModalityText])
	assert.Equal(t, 0, first.Records[models.ModalityVision])
	assert.Equal(t, "local/hash-v1@128", first.Model)

	second, err := s.Load(ctx, "again.pdf", []byte("revenue.pdf"))
	require.NoError(t, err)
	assert.NotEqual(t, first.SessionID, second.SessionID)

	current, err := s.Current()
	require.NoError(t, err)
	assert.Equal(t, second.SessionID, current.SessionID)

	history, err := s.History(ctx, 0)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, first.Document.SHA256, history[0].SHA256)
	assert.Equal(t, 2, history[1].TextRecords)
}

func TestLoad_FailureKeepsCurrentSession(t *testing.T) {
	s := newTestService(t, "", "", nil)
	ctx := context.Background()

	loaded, err := s.Load(ctx, "revenue.pdf", []byte("revenue.pdf"))
	require.NoError(t, err)

	_, err = s.Load(ctx, "garbage.pdf", []byte("garbage"))
	assert.ErrorIs(t, err, ingest.ErrDecode)
	assert.True(t, IsClientError(err))

	_, err = s.Load(ctx, "blank.pdf", []byte("blank.pdf"))
	assert.ErrorIs(t, err, index.ErrEmptyCorpus)
	assert.True(t, IsClientError(err))

	current, err := s.Current()
	require.NoError(t, err)
	assert.Equal(t, loaded.SessionID, current.SessionID)

	history, err := s.History(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestAsk_RecordsTurns(t *testing.T) {
	s := newTestService(t, "Revenue was 20 in Q2.", `{"graph_type":"line","title":"Revenue","data_points":[[1,10],[2,20]]}`, nil)
	ctx := context.Background()

	_, err := s.Ask(ctx, "What was revenue?", nil)
	assert.ErrorIs(t, err, session.ErrNoSession)

	_, err = s.Load(ctx, "revenue.pdf", []byte("revenue.pdf"))
	require.NoError(t, err)

	answer, err := s.Ask(ctx, "What was revenue in Q2?", nil)
	require.NoError(t, err)
	assert.Equal(t, "Revenue was 20 in Q2.", answer.Text)

	plotted, err := s.Ask(ctx, "Plot revenue", nil)
	require.NoError(t, err)
	require.NotNil(t, plotted.Chart)

	current, err := s.Current()
	require.NoError(t, err)
	assert.Equal(t, 2, current.Turns)

	pdf, err := s.Transcript()
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(pdf[:4]))
}

func TestAsk_FailedQuestionIsRecorded(t *testing.T) {
	s := newTestService(t, "", `{"graph_type":"bar","data_points":[]}`, nil)
	ctx := context.Background()

	_, err := s.Load(ctx, "revenue.pdf", []byte("revenue.pdf"))
	require.NoError(t, err)

	_, err = s.Ask(ctx, "Plot the headcount", nil)
	assert.ErrorIs(t, err, graph.ErrNoDataPoints)

	current, err := s.Current()
	require.NoError(t, err)
	assert.Equal(t, 1, current.Turns)
}

func TestRecordsAndClear(t *testing.T) {
	s := newTestService(t, "", "", nil)
	ctx := context.Background()

	_, err := s.Records(nil)
	assert.ErrorIs(t, err, session.ErrNoSession)

	_, err = s.Load(ctx, "revenue.pdf", []byte("revenue.pdf"))
	require.NoError(t, err)

	all, err := s.Records(nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	vision := models.ModalityVision
	none, err := s.Records(&vision)
	require.NoError(t, err)
	assert.Empty(t, none)

	require.NoError(t, s.Clear(ctx))
	assert.ErrorIs(t, s.Clear(ctx), session.ErrNoSession)
	_, err = s.Transcript()
	assert.ErrorIs(t, err, session.ErrNoSession)
}

func TestPlot_ForcesGraphPath(t *testing.T) {
	s := newTestService(t, "not a chart", `{"graph_type":"scatter","title":"Revenue","data_points":[[1,10],[2,20]]}`, nil)
	ctx := context.Background()

	_, err := s.Plot(ctx, "Revenue per quarter", nil)
	assert.ErrorIs(t, err, session.ErrNoSession)

	_, err = s.Load(ctx, "revenue.pdf", []byte("revenue.pdf"))
	require.NoError(t, err)

	// no plot keyword, still charted
	answer, err := s.Plot(ctx, "Revenue per quarter", nil)
	require.NoError(t, err)
	require.NotNil(t, answer.Chart)
	assert.Equal(t, chat.QueryTypeGraph, answer.Type)
	assert.Equal(t, models.ChartKindBar, answer.Chart.Kind)

	current, err := s.Current()
	require.NoError(t, err)
	assert.Equal(t, 1, current.Turns)
}
