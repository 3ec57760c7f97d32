package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/socratic-tutor/backend/internal/domain/conversation"
	"github.com/socratic-tutor/backend/internal/export"
)

// ── Request / Response types ────────────────────────────────────────────────

type ListConversationsResponse struct {
	Conversations []conversation.Summary `json:"conversations"`
}

// ── Handlers ────────────────────────────────────────────────────────────────

// listConversations godoc
// @Summary      List conversations
// @Description  Oldest first, each with a snippet of its first student message.
// @Tags         Conversations
// @Produce      json
// @Success      200  {object}  ListConversationsResponse
// @Failure      500  {object}  ErrorResponse
// @Router       /api/conversations [get]
func (h *Handler) listConversations(w http.ResponseWriter, r *http.Request) {
	list, err := h.conversations.List(r.Context())
	if h.handleError(w, err, "conversations") {
		return
	}
	respondJSON(w, http.StatusOK, ListConversationsResponse{Conversations: list})
}

// exportConversation godoc
// @Summary      Export a conversation
// @Description  Returns the stored record together with its plain-text transcript.
// @Tags         Conversations
// @Produce      json
// @Param        conversationID  path      string  true  "Conversation ID"
// @Success      200  {object}  service.ConversationExport
// @Failure      404  {object}  ErrorResponse
// @Router       /api/conversations/{conversationID}/export [get]
func (h *Handler) exportConversation(w http.ResponseWriter, r *http.Request) {
	out, err := h.exports.Conversation(r.Context(), r.PathValue("conversationID"))
	if h.handleError(w, err, "conversation") {
		return
	}
	respondJSON(w, http.StatusOK, out)
}

// conversationTranscript godoc
// @Summary      Conversation transcript
// @Tags         Conversations
// @Produce      plain
// @Param        conversationID  path      string  true  "Conversation ID"
// @Success      200  {string}  string
// @Failure      404  {object}  ErrorResponse
// @Router       /api/conversations/{conversationID}/transcript [get]
func (h *Handler) conversationTranscript(w http.ResponseWriter, r *http.Request) {
	conversationID := r.PathValue("conversationID")
	text, err := h.exports.Transcript(r.Context(), conversationID)
	if h.handleError(w, err, "conversation") {
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", attachment("conversation_"+conversationID+".txt"))
	w.Write([]byte(text))
}

// exportAll godoc
// @Summary      Export everything
// @Description  XLSX workbook with one sheet of conversations and one of estimations.
// @Tags         Conversations
// @Produce      application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Success      200  {file}    file
// @Failure      500  {object}  ErrorResponse
// @Router       /api/export/all [get]
func (h *Handler) exportAll(w http.ResponseWriter, r *http.Request) {
	data, err := h.exports.Workbook(r.Context())
	if h.handleError(w, err, "export") {
		return
	}
	name := fmt.Sprintf("conversation_export_%s.xlsx", time.Now().UTC().Format("20060102_150405"))
	w.Header().Set("Content-Type", export.WorkbookContentType)
	w.Header().Set("Content-Disposition", attachment(name))
	w.Write(data)
}

func attachment(filename string) string {
	return fmt.Sprintf("attachment; filename=%q", filename)
}
