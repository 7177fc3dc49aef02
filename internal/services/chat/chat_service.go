package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/senpaisaul/multimodal-rag/internal/interfaces"
	"github.com/senpaisaul/multimodal-rag/internal/models"
	"github.com/senpaisaul/multimodal-rag/internal/services/graph"
	"github.com/senpaisaul/multimodal-rag/internal/services/index"
)

// Answer is the outcome of one question
type Answer struct {
	Question string                 `json:"question"`
	Type     QueryType              `json:"type"`
	Text     string                 `json:"answer,omitempty"`
	Grounded bool                   `json:"grounded"`
	Sources  []models.ContentRecord `json:"sources"`
	Chart    *models.Chart          `json:"-"`
}

// ChatService answers questions against a built index
type ChatService struct {
	llm       interfaces.LLMService
	retriever *index.Service
	graph     *graph.Synthesizer
	prompts   *Prompts
	logger    arbor.ILogger
}

// NewChatService creates a new chat service. A nil prompts uses the defaults.
func NewChatService(
	llm interfaces.LLMService,
	retriever *index.Service,
	synthesizer *graph.Synthesizer,
	prompts *Prompts,
	logger arbor.ILogger,
) *ChatService {
	if prompts == nil {
		prompts = DefaultPrompts()
	}
	return &ChatService{
		llm:       llm,
		retriever: retriever,
		graph:     synthesizer,
		prompts:   prompts,
		logger:    logger,
	}
}

// Ask classifies the question, retrieves context and answers it as text or as a chart.
// An explicit modality overrides the one inferred from the question.
func (s *ChatService) Ask(ctx context.Context, idx *index.Index, question string, modality *models.Modality) (*Answer, error) {
	classification := ClassifyQuery(question)
	if modality == nil {
		modality = classification.Modality
	}

	s.logger.Debug().
		Str("question", question).
		Str("type", string(classification.Type)).
		Str("modality", modalityString(modality)).
		Msg("Processing question")

	if classification.Type == QueryTypeGraph {
		return s.Plot(ctx, idx, question, modality)
	}
	return s.Answer(ctx, idx, question, modality)
}

// Answer runs the grounded QA path. When retrieval returns nothing the model is not called.
func (s *ChatService) Answer(ctx context.Context, idx *index.Index, question string, modality *models.Modality) (*Answer, error) {
	start := time.Now()

	records, err := s.retriever.Retrieve(ctx, idx, question, modality)
	if err != nil {
		return nil, err
	}

	answer := &Answer{Question: question, Type: QueryTypeAnswer, Sources: records}
	if len(records) == 0 {
		answer.Text = NoInformationMessage
		return answer, nil
	}

	messages := []interfaces.Message{
		{Role: "system", Content: s.prompts.QASystem},
		{Role: "user", Content: substitute(s.prompts.QAUser, index.FormatContext(records), question)},
	}

	reply, err := s.llm.Complete(ctx, messages)
	if err != nil {
		return nil, fmt.Errorf("answer completion failed: %w", err)
	}

	answer.Text = strings.TrimSpace(reply)
	answer.Grounded = answer.Text != "" && !strings.Contains(answer.Text, CannotFindMessage)

	s.logger.Info().
		Int("sources", len(records)).
		Bool("grounded", answer.Grounded).
		Dur("duration", time.Since(start)).
		Msg("Question answered")

	return answer, nil
}

// Plot runs the graph path: retrieve, then synthesize a chart from the retrieved context.
// Errors from the synthesizer, such as graph.ErrNoDataPoints, are returned unchanged.
func (s *ChatService) Plot(ctx context.Context, idx *index.Index, question string, modality *models.Modality) (*Answer, error) {
	records, err := s.retriever.Retrieve(ctx, idx, question, modality)
	if err != nil {
		return nil, err
	}

	answer := &Answer{Question: question, Type: QueryTypeGraph, Sources: records}
	if len(records) == 0 {
		answer.Text = NoInformationMessage
		return answer, nil
	}

	chart, err := s.graph.Synthesize(ctx, index.FormatContext(records), question)
	if err != nil {
		return nil, err
	}

	answer.Chart = chart
	answer.Text = chart.Spec.Title
	answer.Grounded = true
	return answer, nil
}

func substitute(template, contextText, query string) string {
	return strings.NewReplacer("{context}", contextText, "{query}", query).Replace(template)
}

func modalityString(m *models.Modality) string {
	if m == nil {
		return "any"
	}
	return string(*m)
}
