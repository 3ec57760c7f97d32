package store

import (
	"context"
	"errors"

	"github.com/socratic-tutor/backend/internal/domain/conversation"
	"github.com/socratic-tutor/backend/internal/domain/estimation"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrCorrupt       = errors.New("corrupt record")
)

// Store persists conversations and estimation events.
//
// A conversation record is the source of truth for its turns. Every lifecycle
// change is also written to an append-only event log, which is only read back
// for recovery. Returned values are copies.
type Store interface {
	// CreateConversation allocates an id when p.ID is empty and stores a
	// conversation with no turns.
	CreateConversation(ctx context.Context, p conversation.NewParams) (*conversation.Conversation, error)

	// AppendTurn adds a turn to the end of a conversation. Returns ErrNotFound
	// for unknown ids.
	AppendTurn(ctx context.Context, conversationID string, role conversation.Role, content string) (conversation.Turn, error)

	GetConversation(ctx context.Context, conversationID string) (*conversation.Conversation, error)

	// ListConversations returns summaries ordered by creation time, oldest
	// first. Unreadable records are skipped.
	ListConversations(ctx context.Context) ([]conversation.Summary, error)

	LogEstimation(ctx context.Context, ev *estimation.Event) error

	// ListEstimations returns events ordered by creation time, oldest first.
	ListEstimations(ctx context.Context) ([]*estimation.Event, error)

	Close() error
}
