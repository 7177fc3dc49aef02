package documents

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/senpaisaul/multimodal-rag/internal/common"
	"github.com/senpaisaul/multimodal-rag/internal/interfaces"
	"github.com/senpaisaul/multimodal-rag/internal/models"
	"github.com/senpaisaul/multimodal-rag/internal/services/chat"
	"github.com/senpaisaul/multimodal-rag/internal/services/index"
	"github.com/senpaisaul/multimodal-rag/internal/services/ingest"
	"github.com/senpaisaul/multimodal-rag/internal/services/report"
	"github.com/senpaisaul/multimodal-rag/internal/session"
)

// Summary describes the loaded document and its index
type Summary struct {
	SessionID string                  `json:"session_id"`
	Document  models.DocumentInfo     `json:"document"`
	Records   map[models.Modality]int `json:"records"`
	Model     string                  `json:"embedding_model"`
	Turns     int                     `json:"turns"`
	CreatedAt time.Time               `json:"created_at"`
}

// LoadResult is returned by a successful Load
type LoadResult struct {
	Summary
	ImagesSeen     int   `json:"images_seen"`
	ImagesSkipped  int   `json:"images_skipped"`
	ImagesDropped  int   `json:"images_dropped"`
	ProcessingTime int64 `json:"processing_time_ms"`
}

// Service loads documents into sessions and answers questions against the current one
type Service struct {
	ingestor    *ingest.Ingestor
	indexer     *index.Service
	chat        *chat.ChatService
	sessions    *session.Manager
	registry    interfaces.DocumentStorage
	transcripts interfaces.TranscriptService
	events      interfaces.EventService
	logger      arbor.ILogger
}

// NewService creates a new document service. registry and events may be nil.
func NewService(
	ingestor *ingest.Ingestor,
	indexer *index.Service,
	chatService *chat.ChatService,
	sessions *session.Manager,
	registry interfaces.DocumentStorage,
	transcripts interfaces.TranscriptService,
	events interfaces.EventService,
	logger arbor.ILogger,
) *Service {
	return &Service{
		ingestor:    ingestor,
		indexer:     indexer,
		chat:        chatService,
		sessions:    sessions,
		registry:    registry,
		transcripts: transcripts,
		events:      events,
		logger:      logger,
	}
}

// Load ingests pdf, builds its index and replaces the current session.
// On any failure the current session is left as it was.
func (s *Service) Load(ctx context.Context, name string, pdf []byte) (*LoadResult, error) {
	start := time.Now()
	sum := sha256.Sum256(pdf)
	sessionID := common.NewSessionID()

	result, err := s.ingestor.Ingest(ctx, pdf, sessionID)
	if err != nil {
		return nil, err
	}

	idx, err := s.indexer.BuildNamespace(ctx, sessionID, result.Records)
	if err != nil {
		return nil, err
	}

	doc := models.DocumentInfo{
		Name:      name,
		SHA256:    hex.EncodeToString(sum[:]),
		SizeBytes: int64(len(pdf)),
		Pages:     result.Pages,
	}
	sess := session.New(sessionID, doc, idx)
	s.sessions.Replace(sess)

	counts := models.CountByModality(idx.Records())
	s.publish(ctx, interfaces.EventIndexBuilt, map[string]interface{}{
		"session_id": sessionID,
		"records":    idx.Len(),
		"text":       counts[models.ModalityText],
		"vision":     counts[models.ModalityVision],
	})

	s.register(ctx, sess, counts)

	s.logger.Info().
		Str("session_id", sessionID).
		Str("document", name).
		Int("pages", result.Pages).
		Int("records", idx.Len()).
		Dur("duration", time.Since(start)).
		Msg("Document loaded")

	return &LoadResult{
		Summary:        summarize(sess),
		ImagesSeen:     result.ImagesSeen,
		ImagesSkipped:  result.ImagesSkipped,
		ImagesDropped:  result.ImagesDropped,
		ProcessingTime: time.Since(start).Milliseconds(),
	}, nil
}

// Current summarises the loaded document
func (s *Service) Current() (*Summary, error) {
	sess, err := s.sessions.Current()
	if err != nil {
		return nil, err
	}
	summary := summarize(sess)
	return &summary, nil
}

// Clear tears down the current session
func (s *Service) Clear(ctx context.Context) error {
	sess, err := s.sessions.Current()
	if err != nil {
		return err
	}
	if err := s.sessions.Clear(); err != nil {
		return err
	}
	s.publish(ctx, interfaces.EventSessionCleared, map[string]interface{}{"session_id": sess.ID})
	return nil
}

// Ask answers a question against the current session and records the turn.
// Failed questions are recorded too, with their error.
func (s *Service) Ask(ctx context.Context, question string, modality *models.Modality) (*chat.Answer, error) {
	return s.answer(ctx, question, modality, s.chat.Ask)
}

// Plot renders a chart for question regardless of how it is phrased, recording the turn like Ask
func (s *Service) Plot(ctx context.Context, question string, modality *models.Modality) (*chat.Answer, error) {
	return s.answer(ctx, question, modality, s.chat.Plot)
}

type answerFunc func(ctx context.Context, idx *index.Index, question string, modality *models.Modality) (*chat.Answer, error)

func (s *Service) answer(ctx context.Context, question string, modality *models.Modality, fn answerFunc) (*chat.Answer, error) {
	sess, done, err := s.sessions.Acquire()
	if err != nil {
		return nil, err
	}

	answer, err := fn(ctx, sess.Index, question, modality)
	done()

	turn := models.Turn{Question: question, Timestamp: time.Now()}
	switch {
	case err != nil:
		turn.Error = err.Error()
	case answer.Chart != nil:
		turn.Chart = answer.Chart.Spec.Title
		if turn.Chart == "" {
			turn.Chart = "untitled chart"
		}
		turn.Grounded = answer.Grounded
	default:
		turn.Answer = answer.Text
		turn.Grounded = answer.Grounded
	}
	if addErr := s.sessions.AddTurn(sess.ID, turn); addErr != nil {
		s.logger.Debug().Str("session_id", sess.ID).Msg("Session replaced while answering, turn not recorded")
	}

	return answer, err
}

// Records lists the indexed records of the current session, optionally filtered by modality
func (s *Service) Records(modality *models.Modality) ([]models.ContentRecord, error) {
	sess, err := s.sessions.Current()
	if err != nil {
		return nil, err
	}
	records := sess.Index.Records()
	if modality != nil {
		records = models.FilterByModality(records, *modality)
	}
	return records, nil
}

// Transcript renders the current session's history as a PDF
func (s *Service) Transcript() ([]byte, error) {
	sess, err := s.sessions.Current()
	if err != nil {
		return nil, err
	}
	markdown := report.TranscriptMarkdown(sess.Document, sess.ID, sess.CreatedAt, sess.History())
	return s.transcripts.ConvertMarkdownToPDF(markdown, "Transcript: "+sess.Document.Name)
}

// History lists registered uploads, newest first
func (s *Service) History(ctx context.Context, limit int) ([]models.DocumentRecord, error) {
	if s.registry == nil {
		return []models.DocumentRecord{}, nil
	}
	return s.registry.ListDocuments(ctx, limit)
}

// IsClientError reports whether err was caused by the uploaded document or the question
// rather than by the service
func IsClientError(err error) bool {
	return errors.Is(err, ingest.ErrDecode) ||
		errors.Is(err, index.ErrEmptyCorpus) ||
		errors.Is(err, session.ErrNoSession)
}

func (s *Service) register(ctx context.Context, sess *session.Session, counts map[models.Modality]int) {
	if s.registry == nil {
		return
	}
	if prev, err := s.registry.GetDocumentBySHA256(ctx, sess.Document.SHA256); err == nil {
		s.logger.Info().
			Str("document", sess.Document.Name).
			Str("previous_id", prev.ID).
			Str("previous_session", prev.SessionID).
			Msg("Document was uploaded before, re-indexing")
	}
	record := &models.DocumentRecord{
		ID:            common.NewDocumentID(),
		SessionID:     sess.ID,
		Name:          sess.Document.Name,
		SHA256:        sess.Document.SHA256,
		SizeBytes:     sess.Document.SizeBytes,
		Pages:         sess.Document.Pages,
		TextRecords:   counts[models.ModalityText],
		VisionRecords: counts[models.ModalityVision],
		CreatedAt:     sess.CreatedAt,
	}
	if err := s.registry.SaveDocument(ctx, record); err != nil {
		s.logger.Warn().Err(err).Str("session_id", sess.ID).Msg("Failed to register document")
	}
}

func (s *Service) publish(ctx context.Context, eventType interfaces.EventType, payload map[string]interface{}) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, interfaces.Event{Type: eventType, Payload: payload}); err != nil {
		s.logger.Warn().Err(err).Str("event", string(eventType)).Msg("Failed to publish event")
	}
}

func summarize(sess *session.Session) Summary {
	return Summary{
		SessionID: sess.ID,
		Document:  sess.Document,
		Records:   models.CountByModality(sess.Index.Records()),
		Model:     sess.Index.Model(),
		Turns:     len(sess.History()),
		CreatedAt: sess.CreatedAt,
	}
}
