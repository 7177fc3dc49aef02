package handlers

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"

	"github.com/ternarybob/arbor"

	"github.com/senpaisaul/multimodal-rag/internal/services/documents"
)

const multipartMemory = 32 << 20

type DocumentHandler struct {
	documentService *documents.Service
	maxUploadBytes  int64
	logger          arbor.ILogger
}

func NewDocumentHandler(documentService *documents.Service, maxUploadMB int, logger arbor.ILogger) *DocumentHandler {
	if maxUploadMB <= 0 {
		maxUploadMB = 50
	}
	return &DocumentHandler{
		documentService: documentService,
		maxUploadBytes:  int64(maxUploadMB) << 20,
		logger:          logger,
	}
}

// DocumentsHandler routes /api/documents: POST uploads, GET lists the registry
func (h *DocumentHandler) DocumentsHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.UploadHandler(w, r)
	case http.MethodGet:
		h.ListHandler(w, r)
	default:
		WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// UploadHandler accepts a multipart "file" field or a raw application/pdf body,
// indexes it and makes it the current document
func (h *DocumentHandler) UploadHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)

	name, data, err := h.readUpload(r)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			WriteError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("Upload exceeds %d bytes", h.maxUploadBytes))
			return
		}
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.documentService.Load(r.Context(), name, data)
	if err != nil {
		if documents.IsClientError(err) {
			h.logger.Warn().Err(err).Str("document", name).Msg("Document rejected")
		} else {
			h.logger.Error().Err(err).Str("document", name).Msg("Failed to load document")
		}
		WriteError(w, StatusForError(err), err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"result":  result,
	})
}

// ListHandler returns registered uploads, newest first
func (h *DocumentHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	docs, err := h.documentService.History(r.Context(), LimitParam(r, 50))
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list documents")
		WriteError(w, http.StatusInternalServerError, "Failed to list documents")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"documents": docs,
		"count":     len(docs),
	})
}

// CurrentHandler returns (GET) or tears down (DELETE) the current session
func (h *DocumentHandler) CurrentHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		summary, err := h.documentService.Current()
		if err != nil {
			WriteError(w, StatusForError(err), err.Error())
			return
		}
		WriteJSON(w, http.StatusOK, summary)
	case http.MethodDelete:
		if err := h.documentService.Clear(r.Context()); err != nil {
			WriteError(w, StatusForError(err), err.Error())
			return
		}
		WriteSuccess(w, "Session cleared")
	default:
		WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// RecordsHandler lists the indexed records, optionally filtered by ?modality=text|vision
func (h *DocumentHandler) RecordsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	modality, err := ModalityParam(r)
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	records, err := h.documentService.Records(modality)
	if err != nil {
		WriteError(w, StatusForError(err), err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"records": records,
		"count":   len(records),
	})
}

// TranscriptHandler returns the session's question history as a PDF
func (h *DocumentHandler) TranscriptHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	pdf, err := h.documentService.Transcript()
	if err != nil {
		status := StatusForError(err)
		if status == http.StatusInternalServerError {
			h.logger.Error().Err(err).Msg("Failed to render transcript")
		}
		WriteError(w, status, err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="transcript.pdf"`)
	w.WriteHeader(http.StatusOK)
	w.Write(pdf)
}

func (h *DocumentHandler) readUpload(r *http.Request) (string, []byte, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	var (
		name = r.URL.Query().Get("name")
		data []byte
		err  error
	)

	switch mediaType {
	case "multipart/form-data":
		if err := r.ParseMultipartForm(multipartMemory); err != nil {
			return "", nil, err
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			return "", nil, fmt.Errorf("multipart field \"file\" is required")
		}
		defer file.Close()
		if name == "" {
			name = filepath.Base(header.Filename)
		}
		data, err = io.ReadAll(file)
		if err != nil {
			return "", nil, err
		}
	case "application/pdf", "application/octet-stream":
		data, err = io.ReadAll(r.Body)
		if err != nil {
			return "", nil, err
		}
	default:
		return "", nil, fmt.Errorf("unsupported content type %q (use multipart/form-data or application/pdf)", mediaType)
	}

	if len(data) == 0 {
		return "", nil, fmt.Errorf("uploaded document is empty")
	}
	if name == "" {
		name = "upload.pdf"
	}
	return name, data, nil
}
