package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/senpaisaul/multimodal-rag/internal/models"
	"github.com/senpaisaul/multimodal-rag/internal/services/chat"
	"github.com/senpaisaul/multimodal-rag/internal/services/documents"
)

// QueryRequest is the body of POST /api/query
type QueryRequest struct {
	Question string `json:"question"`
	Modality string `json:"modality,omitempty"`
	Plot     bool   `json:"plot,omitempty"` // force a chart whatever the wording
}

// QueryResponse is a text answer
type QueryResponse struct {
	Success  bool                   `json:"success"`
	Type     chat.QueryType         `json:"type"`
	Answer   string                 `json:"answer"`
	Grounded bool                   `json:"grounded"`
	Sources  []models.ContentRecord `json:"sources"`
}

// ChartResponse is a chart answer for clients that ask for JSON
type ChartResponse struct {
	Success  bool                   `json:"success"`
	Type     chat.QueryType         `json:"type"`
	Title    string                 `json:"title"`
	Kind     models.ChartKind       `json:"kind"`
	Spec     models.GraphSpec       `json:"spec"`
	MIMEType string                 `json:"mime_type"`
	Data     []byte                 `json:"data"` // base64 in JSON
	Sources  []models.ContentRecord `json:"sources"`
}

type ChatHandler struct {
	documentService *documents.Service
	logger          arbor.ILogger
}

func NewChatHandler(documentService *documents.Service, logger arbor.ILogger) *ChatHandler {
	return &ChatHandler{
		documentService: documentService,
		logger:          logger,
	}
}

// QueryHandler answers a question about the current document. Graph requests return
// the chart PDF directly, or base64 JSON when the client sends Accept: application/json.
func (h *ChatHandler) QueryHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.Question = strings.TrimSpace(req.Question)
	if req.Question == "" {
		WriteError(w, http.StatusBadRequest, "question is required")
		return
	}

	modality, err := parseOptionalModality(req.Modality)
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	ask := h.documentService.Ask
	if req.Plot {
		ask = h.documentService.Plot
	}

	answer, err := ask(r.Context(), req.Question, modality)
	if err != nil {
		status := StatusForError(err)
		if status == http.StatusInternalServerError {
			h.logger.Error().Err(err).Str("question", req.Question).Msg("Failed to answer question")
		}
		WriteError(w, status, err.Error())
		return
	}

	if answer.Chart == nil {
		WriteJSON(w, http.StatusOK, QueryResponse{
			Success:  true,
			Type:     answer.Type,
			Answer:   answer.Text,
			Grounded: answer.Grounded,
			Sources:  answer.Sources,
		})
		return
	}

	if wantsJSON(r) {
		WriteJSON(w, http.StatusOK, ChartResponse{
			Success:  true,
			Type:     answer.Type,
			Title:    answer.Chart.Spec.Title,
			Kind:     answer.Chart.Kind,
			Spec:     answer.Chart.Spec,
			MIMEType: answer.Chart.MIMEType,
			Data:     answer.Chart.Data,
			Sources:  answer.Sources,
		})
		return
	}

	w.Header().Set("Content-Type", answer.Chart.MIMEType)
	w.Header().Set("Content-Disposition", `inline; filename="chart.pdf"`)
	w.WriteHeader(http.StatusOK)
	w.Write(answer.Chart.Data)
}

func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}
