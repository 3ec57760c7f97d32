package api

import (
	"net/http"

	"github.com/socratic-tutor/backend/internal/llm"
)

type ModelsResponse struct {
	Models []llm.Model `json:"models"`
}

// listModels godoc
// @Summary      List available models
// @Description  Served from a cache; refresh=true asks the provider again.
// @Tags         Settings
// @Produce      json
// @Param        refresh  query     bool  false  "Bypass the cache"
// @Success      200  {object}  ModelsResponse
// @Failure      401  {object}  ErrorResponse
// @Failure      502  {object}  ErrorResponse
// @Failure      503  {object}  ErrorResponse
// @Router       /api/models [get]
func (h *Handler) listModels(w http.ResponseWriter, r *http.Request) {
	var (
		models []llm.Model
		err    error
	)
	if r.URL.Query().Get("refresh") == "true" {
		models, err = h.catalog.Refresh(r.Context())
	} else {
		models, err = h.catalog.Models(r.Context())
	}
	if h.handleError(w, err, "models") {
		return
	}
	respondJSON(w, http.StatusOK, ModelsResponse{Models: models})
}

// refreshModels godoc
// @Summary      Refresh the model list
// @Tags         Settings
// @Produce      json
// @Success      200  {object}  ModelsResponse
// @Failure      401  {object}  ErrorResponse
// @Failure      502  {object}  ErrorResponse
// @Failure      503  {object}  ErrorResponse
// @Router       /api/models/refresh [post]
func (h *Handler) refreshModels(w http.ResponseWriter, r *http.Request) {
	models, err := h.catalog.Refresh(r.Context())
	if h.handleError(w, err, "models") {
		return
	}
	respondJSON(w, http.StatusOK, ModelsResponse{Models: models})
}

// getConfig godoc
// @Summary      Get settings
// @Description  The admin settings document: model.name, prompt_template, estimation_template and any extra keys.
// @Tags         Settings
// @Produce      json
// @Success      200  {object}  map[string]any
// @Router       /api/config [get]
func (h *Handler) getConfig(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.settings.Document())
}

// updateConfig godoc
// @Summary      Update settings
// @Description  Merges the body into the settings document and saves it. Credentials are never stored.
// @Description  Conversations that already exist keep the prompt they were created with.
// @Tags         Settings
// @Accept       json
// @Produce      json
// @Param        body  body      map[string]any  true  "Partial settings"
// @Success      200   {object}  map[string]any
// @Failure      400   {object}  ErrorResponse
// @Router       /api/config [put]
func (h *Handler) updateConfig(w http.ResponseWriter, r *http.Request) {
	var patch map[string]any
	if !decodeJSON(w, r, &patch) {
		return
	}
	doc, err := h.settings.Update(patch)
	if h.handleError(w, err, "settings") {
		return
	}
	h.logger.Info("settings updated")
	respondJSON(w, http.StatusOK, doc)
}
