// internal/api/handler.go
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/socratic-tutor/backend/internal/infrastructure/config"
	"github.com/socratic-tutor/backend/internal/llm"
	"github.com/socratic-tutor/backend/internal/logger"
	"github.com/socratic-tutor/backend/internal/service"
	"github.com/socratic-tutor/backend/internal/store"
)

// maxFormMemory bounds the in-memory part of a multipart form; larger files
// spill to disk.
const maxFormMemory = 32 << 20

// Handler holds all dependencies needed by HTTP handlers.
type Handler struct {
	conversations *service.ConversationService
	estimations   *service.EstimationService
	exports       *service.ExportService
	catalog       *llm.Catalog
	settings      *config.SettingsStore
	logger        *slog.Logger
}

type Deps struct {
	Conversations *service.ConversationService
	Estimations   *service.EstimationService
	Exports       *service.ExportService
	Catalog       *llm.Catalog
	Settings      *config.SettingsStore
	Logger        *slog.Logger
}

func NewHandler(d Deps) *Handler {
	return &Handler{
		conversations: d.Conversations,
		estimations:   d.Estimations,
		exports:       d.Exports,
		catalog:       d.Catalog,
		settings:      d.Settings,
		logger:        d.Logger,
	}
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

// respondJSON writes a JSON response with the given status code.
func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, ErrorResponse{Error: message})
}

// decodeJSON reads the request body into v. On failure it writes a 400 and
// returns false.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

// handleError maps err to a status code and writes it. Returns true if an
// error was handled (caller should return).
func (h *Handler) handleError(w http.ResponseWriter, err error, entity string) bool {
	if err == nil {
		return false
	}
	status, message := h.classify(err, entity)
	respondError(w, status, message)
	return true
}

func (h *Handler) classify(err error, entity string) (int, string) {
	var validation *service.ValidationError
	var gatewayErr *llm.Error

	switch {
	case errors.As(err, &validation):
		return http.StatusBadRequest, validation.Error()
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, entity + " not found"
	case errors.Is(err, config.ErrInvalidSettings):
		return http.StatusBadRequest, err.Error()
	case errors.As(err, &gatewayErr):
		h.logger.Warn("model request failed", "kind", gatewayErr.Kind, logger.Err(err))
		return gatewayStatus(gatewayErr.Kind), logger.Redact(gatewayErr.Message)
	}
	h.logger.Error("request failed", "entity", entity, logger.Err(err))
	return http.StatusInternalServerError, "internal error"
}

func gatewayStatus(kind llm.Kind) int {
	switch kind {
	case llm.KindAuth:
		return http.StatusUnauthorized
	case llm.KindTransient:
		return http.StatusServiceUnavailable
	}
	return http.StatusBadGateway
}
