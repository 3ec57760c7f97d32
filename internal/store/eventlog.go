package store

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/socratic-tutor/backend/internal/domain/conversation"
	"github.com/socratic-tutor/backend/internal/domain/estimation"
)

type EventType string

const (
	EventConversationCreated EventType = "conversation_created"
	EventMessageAppended     EventType = "message_appended"
	EventEstimationPerformed EventType = "estimation_performed"
)

// LogEntry is one line of the event log.
type LogEntry struct {
	Event          EventType `json:"event"`
	ConversationID string    `json:"conversation_id,omitempty"`
	Timestamp      time.Time `json:"timestamp"`

	// conversation_created
	PromptTemplate            string `json:"prompt_template,omitempty"`
	Task                      string `json:"task,omitempty"`
	TaskImage                 string `json:"task_image,omitempty"`
	TaskImageOriginalName     string `json:"task_image_original_name,omitempty"`
	SolutionImage             string `json:"solution_image,omitempty"`
	SolutionImageOriginalName string `json:"solution_image_original_name,omitempty"`

	// message_appended
	Role    conversation.Role `json:"role,omitempty"`
	Content string            `json:"content,omitempty"`

	// estimation_performed
	Estimation *estimation.Event `json:"estimation,omitempty"`
}

func createdEntry(c *conversation.Conversation) LogEntry {
	return LogEntry{
		Event:                     EventConversationCreated,
		ConversationID:            c.ID,
		Timestamp:                 c.CreatedAt,
		PromptTemplate:            c.PromptTemplate,
		Task:                      c.Task,
		TaskImage:                 c.TaskImage,
		TaskImageOriginalName:     c.TaskImageOriginalName,
		SolutionImage:             c.SolutionImage,
		SolutionImageOriginalName: c.SolutionImageOriginalName,
	}
}

func appendedEntry(conversationID string, t conversation.Turn) LogEntry {
	return LogEntry{
		Event:          EventMessageAppended,
		ConversationID: conversationID,
		Timestamp:      t.CreatedAt,
		Role:           t.Role,
		Content:        t.Content,
	}
}

func estimationEntry(ev *estimation.Event) LogEntry {
	return LogEntry{
		Event:      EventEstimationPerformed,
		Timestamp:  ev.CreatedAt,
		Estimation: ev,
	}
}

// EventLog is an append-only JSON Lines file.
type EventLog struct {
	path string

	mu   sync.Mutex
	file *os.File
}

// OpenEventLog opens (creating if needed) the log at path for appending.
func OpenEventLog(path string) (*EventLog, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening event log: %w", err)
	}
	return &EventLog{path: path, file: f}, nil
}

func (l *EventLog) Path() string {
	return l.path
}

// Append writes one entry and syncs it to disk.
func (l *EventLog) Append(e LogEntry) error {
	line, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encoding log entry: %w", err)
	}
	line = append(line, '\n')

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return errors.New("event log is closed")
	}
	if _, err := l.file.Write(line); err != nil {
		return fmt.Errorf("writing log entry: %w", err)
	}
	return l.file.Sync()
}

func (l *EventLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

// ── Reading and replay ──────────────────────────────────────────────────────

// ReadEntries decodes every line of r. Lines that fail to decode are skipped
// and reported in the returned error; the decoded entries are still returned.
func ReadEntries(r io.Reader) ([]LogEntry, error) {
	var (
		entries []LogEntry
		errs    *multierror.Error
	)
	br := bufio.NewReader(r)
	for lineNo := 1; ; lineNo++ {
		line, readErr := br.ReadBytes('\n')
		if len(bytes.TrimSpace(line)) > 0 {
			var e LogEntry
			if err := json.Unmarshal(line, &e); err != nil {
				errs = multierror.Append(errs, fmt.Errorf("line %d: %w", lineNo, err))
			} else {
				entries = append(entries, e)
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return entries, multierror.Append(errs, readErr).ErrorOrNil()
		}
	}
	return entries, errs.ErrorOrNil()
}

// Replay rebuilds every conversation found in entries, in log order.
// message_appended entries for conversations without a created entry are
// reported as errors and skipped.
func Replay(entries []LogEntry) (map[string]*conversation.Conversation, error) {
	out := make(map[string]*conversation.Conversation)
	var errs *multierror.Error

	for _, e := range entries {
		switch e.Event {
		case EventConversationCreated:
			c, err := conversation.New(conversation.NewParams{
				ID:                        e.ConversationID,
				PromptTemplate:            e.PromptTemplate,
				Task:                      e.Task,
				TaskImage:                 e.TaskImage,
				TaskImageOriginalName:     e.TaskImageOriginalName,
				SolutionImage:             e.SolutionImage,
				SolutionImageOriginalName: e.SolutionImageOriginalName,
			}, e.Timestamp)
			if err != nil {
				errs = multierror.Append(errs, err)
				continue
			}
			out[c.ID] = c
		case EventMessageAppended:
			c, ok := out[e.ConversationID]
			if !ok {
				errs = multierror.Append(errs, fmt.Errorf("conversation %s: turn before creation", e.ConversationID))
				continue
			}
			if _, err := c.Append(e.Role, e.Content, e.Timestamp); err != nil {
				errs = multierror.Append(errs, fmt.Errorf("conversation %s: %w", e.ConversationID, err))
			}
		}
	}
	return out, errs.ErrorOrNil()
}

// ReplayConversation rebuilds a single conversation from entries.
func ReplayConversation(entries []LogEntry, conversationID string) (*conversation.Conversation, error) {
	var own []LogEntry
	for _, e := range entries {
		if e.ConversationID == conversationID {
			own = append(own, e)
		}
	}
	convs, err := Replay(own)
	c, ok := convs[conversationID]
	if !ok {
		if err != nil {
			return nil, err
		}
		return nil, ErrNotFound
	}
	return c, err
}
