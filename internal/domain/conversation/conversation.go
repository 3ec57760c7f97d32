package conversation

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/socratic-tutor/backend/internal/id"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem:
		return true
	}
	return false
}

// Label is the speaker name used in dialogue renderings and transcripts.
func (r Role) Label() string {
	switch r {
	case RoleUser:
		return "Ученик"
	case RoleAssistant:
		return "Учитель"
	case RoleSystem:
		return "Система"
	}
	return string(r)
}

// ErrInvalidRole is returned when a turn is appended with an unknown role.
var ErrInvalidRole = errors.New("invalid role")

// Turn is one message in a conversation.
type Turn struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"timestamp"`
}

// Conversation is the durable record of one tutoring dialogue.
//
// PromptTemplate is a copy of the tutor prompt taken at creation time. It and the
// task fields never change afterwards; only Messages grows.
type Conversation struct {
	ID                        string    `json:"id"`
	CreatedAt                 time.Time `json:"created_at"`
	PromptTemplate            string    `json:"prompt_template"`
	Task                      string    `json:"task"`
	TaskImage                 string    `json:"task_image,omitempty"`
	TaskImageOriginalName     string    `json:"task_image_original_name,omitempty"`
	SolutionImage             string    `json:"solution_image,omitempty"`
	SolutionImageOriginalName string    `json:"solution_image_original_name,omitempty"`
	Messages                  []Turn    `json:"messages"`
}

// NewParams describes a conversation to be created. ID may be left empty.
type NewParams struct {
	ID                        string
	PromptTemplate            string
	Task                      string
	TaskImage                 string
	TaskImageOriginalName     string
	SolutionImage             string
	SolutionImageOriginalName string
}

// New builds a conversation with no turns.
func New(p NewParams, now time.Time) (*Conversation, error) {
	convID := p.ID
	if convID == "" {
		convID = id.New()
	}
	if !id.Valid(convID) {
		return nil, fmt.Errorf("invalid conversation id %q", convID)
	}
	return &Conversation{
		ID:                        convID,
		CreatedAt:                 now.UTC(),
		PromptTemplate:            p.PromptTemplate,
		Task:                      p.Task,
		TaskImage:                 p.TaskImage,
		TaskImageOriginalName:     p.TaskImageOriginalName,
		SolutionImage:             p.SolutionImage,
		SolutionImageOriginalName: p.SolutionImageOriginalName,
		Messages:                  []Turn{},
	}, nil
}

// Append adds a turn at the end of the conversation.
func (c *Conversation) Append(role Role, content string, at time.Time) (Turn, error) {
	if !role.Valid() {
		return Turn{}, fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}
	turn := Turn{Role: role, Content: content, CreatedAt: at.UTC()}
	c.Messages = append(c.Messages, turn)
	return turn, nil
}

// Clone returns a deep copy so callers can't reach into a stored record.
func (c *Conversation) Clone() *Conversation {
	cp := *c
	cp.Messages = make([]Turn, len(c.Messages))
	copy(cp.Messages, c.Messages)
	return &cp
}

// ── Listing ────────────────────────────────────────────────────────────────

const snippetLength = 80

// Summary is the listing view of a conversation.
type Summary struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Snippet   string    `json:"first_user_message"`
}

// Summary returns the listing view, with the first user message shortened.
func (c *Conversation) Summary() Summary {
	return Summary{
		ID:        c.ID,
		CreatedAt: c.CreatedAt,
		Snippet:   c.firstUserSnippet(),
	}
}

func (c *Conversation) firstUserSnippet() string {
	for _, t := range c.Messages {
		if t.Role == RoleUser {
			return Snippet(t.Content)
		}
	}
	return ""
}

// Snippet collapses whitespace in text and shortens it for listings.
func Snippet(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= snippetLength {
		return text
	}
	return string(runes[:snippetLength-1]) + "…"
}
