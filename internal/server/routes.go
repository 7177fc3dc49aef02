package server

import (
	"net/http"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// WebSocket route (ingest progress)
	mux.HandleFunc("/ws", s.app.WSHandler.HandleWebSocket)

	// API routes - Documents
	mux.HandleFunc("/api/documents", s.handleDocumentsRoute)                       // GET (history), POST (upload)
	mux.HandleFunc("/api/documents/current", s.handleCurrentDocumentRoute)         // GET (summary), DELETE (clear)
	mux.HandleFunc("/api/records", s.app.DocumentHandler.RecordsHandler)           // GET ?modality=
	mux.HandleFunc("/api/transcript.pdf", s.app.DocumentHandler.TranscriptHandler) // GET

	// API routes - Questions
	mux.HandleFunc("/api/query", s.app.ChatHandler.QueryHandler) // POST

	// API routes - System
	mux.HandleFunc("/api/version", s.app.APIHandler.VersionHandler)
	mux.HandleFunc("/api/health", s.app.APIHandler.HealthHandler)

	// 404 for unmatched API routes
	mux.HandleFunc("/api/", s.app.APIHandler.NotFoundHandler)
	mux.HandleFunc("/", s.app.APIHandler.NotFoundHandler)

	return mux
}

// handleDocumentsRoute routes /api/documents by method
func (s *Server) handleDocumentsRoute(w http.ResponseWriter, r *http.Request) {
	RouteResourceCollection(w, r, s.app.DocumentHandler.ListHandler, s.app.DocumentHandler.UploadHandler)
}

// handleCurrentDocumentRoute routes /api/documents/current by method
func (s *Server) handleCurrentDocumentRoute(w http.ResponseWriter, r *http.Request) {
	RouteByMethod(w, r, MethodRouter{
		http.MethodGet:    s.app.DocumentHandler.CurrentHandler,
		http.MethodDelete: s.app.DocumentHandler.CurrentHandler,
	})
}
