package api

import (
	"errors"
	"net/http"

	"github.com/socratic-tutor/backend/internal/domain/conversation"
	"github.com/socratic-tutor/backend/internal/service"
)

// ── Request / Response types ────────────────────────────────────────────────

type CreateDialogResponse struct {
	ConversationID string                     `json:"conversation_id"`
	Conversation   *conversation.Conversation `json:"conversation"`
}

type MessagesResponse struct {
	Messages []conversation.Turn `json:"messages"`
}

type PostMessageRequest struct {
	Message string `json:"message"`
}

// PostMessageResponse carries the stored user turn and, when the model
// answered, the assistant turn. On failure AssistantMessage is null,
// Failed is true and Error says why.
type PostMessageResponse struct {
	UserMessage      conversation.Turn  `json:"user_message"`
	AssistantMessage *conversation.Turn `json:"assistant_message"`
	Failed           bool               `json:"failed,omitempty"`
	Error            string             `json:"error,omitempty"`
}

// ── Handlers ────────────────────────────────────────────────────────────────

// createDialog godoc
// @Summary      Start a conversation
// @Description  Creates a conversation for a task. The tutor prompt in effect right now is frozen into it.
// @Tags         Dialogs
// @Accept       multipart/form-data
// @Produce      json
// @Param        task            formData  string  false  "Task text"
// @Param        task_image      formData  file    false  "Task image"
// @Param        solution_image  formData  file    false  "Reference solution image"
// @Success      201  {object}  CreateDialogResponse
// @Failure      400  {object}  ErrorResponse
// @Failure      500  {object}  ErrorResponse
// @Router       /api/dialogs [post]
func (h *Handler) createDialog(w http.ResponseWriter, r *http.Request) {
	if !parseForm(w, r) {
		return
	}

	files, closeFiles, err := formFiles(r, "task_image", "solution_image")
	if err != nil {
		respondError(w, http.StatusBadRequest, "cannot read uploaded file")
		return
	}
	defer closeFiles()

	c, err := h.conversations.Create(r.Context(), service.CreateRequest{
		Task:          r.FormValue("task"),
		TaskImage:     files["task_image"],
		SolutionImage: files["solution_image"],
	})
	if h.handleError(w, err, "conversation") {
		return
	}

	respondJSON(w, http.StatusCreated, CreateDialogResponse{ConversationID: c.ID, Conversation: c})
}

// getDialog godoc
// @Summary      Get a conversation
// @Tags         Dialogs
// @Produce      json
// @Param        conversationID  path      string  true  "Conversation ID"
// @Success      200  {object}  conversation.Conversation
// @Failure      404  {object}  ErrorResponse
// @Router       /api/dialogs/{conversationID} [get]
func (h *Handler) getDialog(w http.ResponseWriter, r *http.Request) {
	c, err := h.conversations.Get(r.Context(), r.PathValue("conversationID"))
	if h.handleError(w, err, "conversation") {
		return
	}
	respondJSON(w, http.StatusOK, c)
}

// listMessages godoc
// @Summary      List conversation turns
// @Tags         Dialogs
// @Produce      json
// @Param        conversationID  path      string  true  "Conversation ID"
// @Success      200  {object}  MessagesResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /api/dialogs/{conversationID}/messages [get]
func (h *Handler) listMessages(w http.ResponseWriter, r *http.Request) {
	msgs, err := h.conversations.Messages(r.Context(), r.PathValue("conversationID"))
	if h.handleError(w, err, "conversation") {
		return
	}
	respondJSON(w, http.StatusOK, MessagesResponse{Messages: msgs})
}

// postMessage godoc
// @Summary      Send a student message
// @Description  Stores the message, asks the model for the tutor's reply and stores it.
// @Description  If the model fails the student message stays in history and the response
// @Description  carries it with failed=true and no assistant message.
// @Tags         Dialogs
// @Accept       json
// @Produce      json
// @Param        conversationID  path      string              true  "Conversation ID"
// @Param        body            body      PostMessageRequest  true  "Message"
// @Success      200  {object}  PostMessageResponse
// @Failure      400  {object}  ErrorResponse
// @Failure      401  {object}  PostMessageResponse  "credential missing or rejected"
// @Failure      404  {object}  ErrorResponse
// @Failure      502  {object}  PostMessageResponse  "model provider error"
// @Failure      503  {object}  PostMessageResponse  "model unreachable"
// @Router       /api/dialogs/{conversationID}/messages [post]
func (h *Handler) postMessage(w http.ResponseWriter, r *http.Request) {
	var req PostMessageRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	res, err := h.conversations.SendTurn(r.Context(), r.PathValue("conversationID"), req.Message)

	var genErr *service.GenerationError
	if errors.As(err, &genErr) {
		status, message := h.classify(genErr.Err, "conversation")
		respondJSON(w, status, PostMessageResponse{
			UserMessage: genErr.UserTurn,
			Failed:      true,
			Error:       message,
		})
		return
	}
	if h.handleError(w, err, "conversation") {
		return
	}

	respondJSON(w, http.StatusOK, PostMessageResponse{
		UserMessage:      res.User,
		AssistantMessage: res.Assistant,
	})
}

// ── Form helpers ────────────────────────────────────────────────────────────

// parseForm accepts multipart and urlencoded bodies.
func parseForm(w http.ResponseWriter, r *http.Request) bool {
	err := r.ParseMultipartForm(maxFormMemory)
	if err == nil || errors.Is(err, http.ErrNotMultipart) {
		return true
	}
	respondError(w, http.StatusBadRequest, "invalid form data")
	return false
}

// formFile returns the named upload, or nil when the field is absent or has
// no file name. The returned func closes the file and is always safe to call.
func formFile(r *http.Request, field string) (*service.FileInput, func(), error) {
	noop := func() {}
	if r.MultipartForm == nil {
		return nil, noop, nil
	}
	headers := r.MultipartForm.File[field]
	if len(headers) == 0 || headers[0].Filename == "" {
		return nil, noop, nil
	}
	f, err := headers[0].Open()
	if err != nil {
		return nil, noop, err
	}
	return &service.FileInput{Name: headers[0].Filename, Body: f}, func() { f.Close() }, nil
}

// formFiles opens several uploads at once. On error nothing stays open.
func formFiles(r *http.Request, fields ...string) (map[string]*service.FileInput, func(), error) {
	files := make(map[string]*service.FileInput, len(fields))
	var closers []func()
	closeAll := func() {
		for _, c := range closers {
			c()
		}
	}
	for _, field := range fields {
		in, closeFn, err := formFile(r, field)
		if err != nil {
			closeAll()
			return nil, func() {}, err
		}
		closers = append(closers, closeFn)
		files[field] = in
	}
	return files, closeAll, nil
}
