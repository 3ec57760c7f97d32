// internal/service/conversation.go
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/socratic-tutor/backend/internal/domain/conversation"
	"github.com/socratic-tutor/backend/internal/id"
	"github.com/socratic-tutor/backend/internal/infrastructure/config"
	"github.com/socratic-tutor/backend/internal/keylock"
	"github.com/socratic-tutor/backend/internal/llm"
	"github.com/socratic-tutor/backend/internal/logger"
	"github.com/socratic-tutor/backend/internal/prompt"
	"github.com/socratic-tutor/backend/internal/store"
	"github.com/socratic-tutor/backend/internal/upload"
)

// SettingsSource supplies the current admin settings.
type SettingsSource interface {
	Snapshot() config.Settings
}

// ImageStore saves uploaded images. Remove drops everything saved for an
// owner and is used to undo the uploads of a request that failed.
type ImageStore interface {
	Save(owner, slot, filename string, r io.Reader) (upload.Ref, error)
	Remove(owner string) error
}

// FileInput is an uploaded file. A nil *FileInput means "not provided".
type FileInput struct {
	Name string
	Body io.Reader
}

type CreateRequest struct {
	Task          string
	TaskImage     *FileInput
	SolutionImage *FileInput
}

// TurnResult is the outcome of one chat exchange. Assistant is nil when the
// model did not answer.
type TurnResult struct {
	User      conversation.Turn  `json:"user_message"`
	Assistant *conversation.Turn `json:"assistant_message"`
}

// ConversationService runs tutoring conversations: it freezes the prompt at
// creation, stores every user message before asking the model, and makes at
// most one model call per message.
type ConversationService struct {
	store    store.Store
	gateway  llm.Gateway
	images   ImageStore
	settings SettingsSource
	logger   *slog.Logger

	locks *keylock.Map
}

func NewConversationService(s store.Store, gw llm.Gateway, images ImageStore, settings SettingsSource, logger *slog.Logger) *ConversationService {
	return &ConversationService{
		store:    s,
		gateway:  gw,
		images:   images,
		settings: settings,
		logger:   logger,
		locks:    keylock.New(),
	}
}

// Create starts a conversation with the tutor prompt as configured right now.
// Later settings changes do not affect it. When Create fails, no upload of the
// request is left on disk.
func (cs *ConversationService) Create(ctx context.Context, req CreateRequest) (_ *conversation.Conversation, err error) {
	settings := cs.settings.Snapshot()
	if strings.TrimSpace(settings.PromptTemplate) == "" {
		cs.logger.Warn("creating conversation with an empty prompt template")
	}

	convID := id.New()
	params := conversation.NewParams{
		ID:             convID,
		PromptTemplate: settings.PromptTemplate,
		Task:           req.Task,
	}

	if req.TaskImage != nil || req.SolutionImage != nil {
		defer func() {
			if err != nil {
				discardUploads(cs.images, cs.logger, convID)
			}
		}()
	}

	if req.TaskImage != nil {
		ref, err := saveUpload(cs.images, convID, "task", "task_image", req.TaskImage)
		if err != nil {
			return nil, err
		}
		params.TaskImage, params.TaskImageOriginalName = ref.Path, ref.OriginalName
	}
	if req.SolutionImage != nil {
		ref, err := saveUpload(cs.images, convID, "solution", "solution_image", req.SolutionImage)
		if err != nil {
			return nil, err
		}
		params.SolutionImage, params.SolutionImageOriginalName = ref.Path, ref.OriginalName
	}

	c, err := cs.store.CreateConversation(ctx, params)
	if err != nil {
		return nil, err
	}
	cs.logger.Info("conversation created",
		"conversation_id", c.ID,
		"has_task_image", c.TaskImage != "",
		"has_solution_image", c.SolutionImage != "")
	return c, nil
}

func saveUpload(images ImageStore, owner, slot, field string, f *FileInput) (upload.Ref, error) {
	ref, err := images.Save(owner, slot, f.Name, f.Body)
	if err != nil {
		if errors.Is(err, upload.ErrNotAnImage) || errors.Is(err, upload.ErrTooLarge) {
			return upload.Ref{}, &ValidationError{Field: field, Message: err.Error(), Cause: err}
		}
		return upload.Ref{}, fmt.Errorf("saving %s: %w", field, err)
	}
	return ref, nil
}

func discardUploads(images ImageStore, log *slog.Logger, owner string) {
	if err := images.Remove(owner); err != nil {
		log.Warn("failed to remove uploads of a failed request", "owner", owner, logger.Err(err))
	}
}

// SendTurn records the student's message, asks the model for the tutor's
// reply and records it.
//
// The user turn is stored before the model is called and is never rolled
// back. When the model fails, the result carries the stored user turn and the
// error is a *GenerationError wrapping the gateway error.
//
// Calls for the same conversation are serialized for the whole exchange, so
// every reply is generated from a complete history.
func (cs *ConversationService) SendTurn(ctx context.Context, conversationID, text string) (*TurnResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, invalid("message", "message cannot be empty")
	}

	unlock := cs.locks.Lock(conversationID)
	defer unlock()

	userTurn, err := cs.store.AppendTurn(ctx, conversationID, conversation.RoleUser, text)
	if err != nil {
		return nil, err
	}
	result := &TurnResult{User: userTurn}

	// From here on the user turn is stored; the exchange completes or fails
	// explicitly even if the caller goes away mid-way.
	c, err := cs.store.GetConversation(context.WithoutCancel(ctx), conversationID)
	if err != nil {
		return result, err
	}

	rendered := prompt.Render(c.PromptTemplate, prompt.ChatVocabulary, prompt.ConversationBindings(c))
	model := cs.settings.Snapshot().ModelName()

	reply, err := cs.gateway.Generate(ctx, rendered, model)
	if err != nil {
		cs.logger.Error("tutor reply failed",
			"conversation_id", conversationID,
			"model", model,
			logger.Err(err))
		return result, &GenerationError{ConversationID: conversationID, UserTurn: userTurn, Err: err}
	}

	assistantTurn, err := cs.store.AppendTurn(context.WithoutCancel(ctx), conversationID, conversation.RoleAssistant, reply)
	if err != nil {
		return result, fmt.Errorf("storing reply: %w", err)
	}
	result.Assistant = &assistantTurn
	return result, nil
}

func (cs *ConversationService) Get(ctx context.Context, conversationID string) (*conversation.Conversation, error) {
	return cs.store.GetConversation(ctx, conversationID)
}

func (cs *ConversationService) List(ctx context.Context) ([]conversation.Summary, error) {
	return cs.store.ListConversations(ctx)
}

// Messages returns the turns of a conversation in order.
func (cs *ConversationService) Messages(ctx context.Context, conversationID string) ([]conversation.Turn, error) {
	c, err := cs.store.GetConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	return c.Messages, nil
}
