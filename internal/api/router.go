// internal/api/router.go
package api

import "net/http"

// RegisterRoutes mounts every API route on mux.
func RegisterRoutes(mux *http.ServeMux, h *Handler) {
	// Dialogs
	mux.HandleFunc("POST /api/dialogs", h.createDialog)
	mux.HandleFunc("GET /api/dialogs/{conversationID}", h.getDialog)
	mux.HandleFunc("GET /api/dialogs/{conversationID}/messages", h.listMessages)
	mux.HandleFunc("POST /api/dialogs/{conversationID}/messages", h.postMessage)

	// Conversations & export
	mux.HandleFunc("GET /api/conversations", h.listConversations)
	mux.HandleFunc("GET /api/conversations/{conversationID}/export", h.exportConversation)
	mux.HandleFunc("GET /api/conversations/{conversationID}/transcript", h.conversationTranscript)
	mux.HandleFunc("GET /api/export/all", h.exportAll)

	// Estimation
	mux.HandleFunc("POST /api/estimation", h.estimate)
	mux.HandleFunc("POST /api/estimation/export", h.exportEstimation)

	// Models & settings
	mux.HandleFunc("GET /api/models", h.listModels)
	mux.HandleFunc("POST /api/models/refresh", h.refreshModels)
	mux.HandleFunc("GET /api/config", h.getConfig)
	mux.HandleFunc("PUT /api/config", h.updateConfig)
}
