package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/socratic-tutor/backend/internal/domain/conversation"
	"github.com/socratic-tutor/backend/internal/domain/estimation"
	"github.com/socratic-tutor/backend/internal/id"
	"github.com/socratic-tutor/backend/internal/keylock"
	"github.com/socratic-tutor/backend/internal/logger"
)

const (
	conversationsDir = "conversations"
	estimationsDir   = "estimations"
	logFileName      = "conversations.log"
)

// FileStore keeps one JSON document per conversation and per estimation under
// dataDir, next to a shared JSONL event log:
//
//	<dataDir>/conversations/<id>.json
//	<dataDir>/estimations/<id>.json
//	<dataDir>/conversations.log
//
// Writes to one conversation are serialized; different conversations proceed
// in parallel. The log entry is written before the record, so a crash between
// the two leaves a record that Recover can rebuild.
type FileStore struct {
	dir    string
	log    *EventLog
	locks  *keylock.Map
	logger *slog.Logger
	now    func() time.Time
}

var _ Store = (*FileStore)(nil)

func NewFileStore(dataDir string, logger *slog.Logger) (*FileStore, error) {
	for _, sub := range []string{conversationsDir, estimationsDir} {
		if err := os.MkdirAll(filepath.Join(dataDir, sub), 0o755); err != nil {
			return nil, fmt.Errorf("creating %s dir: %w", sub, err)
		}
	}
	el, err := OpenEventLog(filepath.Join(dataDir, logFileName))
	if err != nil {
		return nil, err
	}
	return &FileStore{
		dir:    dataDir,
		log:    el,
		locks:  keylock.New(),
		logger: logger,
		now:    time.Now,
	}, nil
}

func (s *FileStore) Close() error {
	return s.log.Close()
}

// LogPath returns the location of the event log.
func (s *FileStore) LogPath() string {
	return s.log.Path()
}

// ============================================================================
// Conversations
// ============================================================================

func (s *FileStore) CreateConversation(ctx context.Context, p conversation.NewParams) (*conversation.Conversation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c, err := conversation.New(p, s.now())
	if err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(c.ID)
	defer unlock()

	path := s.conversationPath(c.ID)
	if _, err := os.Stat(path); err == nil {
		return nil, fmt.Errorf("conversation %s: %w", c.ID, ErrAlreadyExists)
	}

	if err := s.log.Append(createdEntry(c)); err != nil {
		return nil, err
	}
	if err := writeJSONAtomic(path, c); err != nil {
		return nil, fmt.Errorf("writing conversation %s: %w", c.ID, err)
	}
	return c.Clone(), nil
}

func (s *FileStore) AppendTurn(ctx context.Context, conversationID string, role conversation.Role, content string) (conversation.Turn, error) {
	if err := ctx.Err(); err != nil {
		return conversation.Turn{}, err
	}
	if !role.Valid() {
		return conversation.Turn{}, fmt.Errorf("%w: %q", conversation.ErrInvalidRole, role)
	}
	if !id.Valid(conversationID) {
		return conversation.Turn{}, ErrNotFound
	}

	unlock := s.locks.Lock(conversationID)
	defer unlock()

	c, err := s.readConversation(conversationID)
	if err != nil {
		return conversation.Turn{}, err
	}

	turn, err := c.Append(role, content, s.now())
	if err != nil {
		return conversation.Turn{}, err
	}
	if err := s.log.Append(appendedEntry(c.ID, turn)); err != nil {
		return conversation.Turn{}, err
	}
	if err := writeJSONAtomic(s.conversationPath(c.ID), c); err != nil {
		return conversation.Turn{}, fmt.Errorf("writing conversation %s: %w", c.ID, err)
	}
	return turn, nil
}

func (s *FileStore) GetConversation(ctx context.Context, conversationID string) (*conversation.Conversation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !id.Valid(conversationID) {
		return nil, ErrNotFound
	}
	return s.readConversation(conversationID)
}

func (s *FileStore) ListConversations(ctx context.Context) ([]conversation.Summary, error) {
	names, err := recordNames(filepath.Join(s.dir, conversationsDir))
	if err != nil {
		return nil, err
	}

	summaries := make([]conversation.Summary, 0, len(names))
	var skipped *multierror.Error
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		c, err := s.readConversation(name)
		if err != nil {
			skipped = multierror.Append(skipped, fmt.Errorf("%s: %w", name, err))
			continue
		}
		summaries = append(summaries, c.Summary())
	}
	if err := skipped.ErrorOrNil(); err != nil {
		s.logger.Warn("skipped unreadable conversations", "count", len(skipped.Errors), logger.Err(err))
	}

	sort.Slice(summaries, func(i, j int) bool {
		if !summaries[i].CreatedAt.Equal(summaries[j].CreatedAt) {
			return summaries[i].CreatedAt.Before(summaries[j].CreatedAt)
		}
		return summaries[i].ID < summaries[j].ID
	})
	return summaries, nil
}

func (s *FileStore) conversationPath(conversationID string) string {
	return filepath.Join(s.dir, conversationsDir, conversationID+".json")
}

func (s *FileStore) readConversation(conversationID string) (*conversation.Conversation, error) {
	var c conversation.Conversation
	if err := readJSON(s.conversationPath(conversationID), &c); err != nil {
		return nil, err
	}
	if c.ID != conversationID {
		return nil, fmt.Errorf("%w: id mismatch in %s", ErrCorrupt, conversationID)
	}
	if c.Messages == nil {
		c.Messages = []conversation.Turn{}
	}
	return &c, nil
}

// ============================================================================
// Estimations
// ============================================================================

func (s *FileStore) LogEstimation(ctx context.Context, ev *estimation.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if ev.ID == "" {
		ev.ID = estimation.NewEventID()
	}
	if !id.Valid(ev.ID) {
		return fmt.Errorf("invalid estimation id %q", ev.ID)
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = s.now().UTC()
	}

	path := filepath.Join(s.dir, estimationsDir, ev.ID+".json")
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("estimation %s: %w", ev.ID, ErrAlreadyExists)
	}
	if err := s.log.Append(estimationEntry(ev)); err != nil {
		return err
	}
	return writeJSONAtomic(path, ev)
}

func (s *FileStore) ListEstimations(ctx context.Context) ([]*estimation.Event, error) {
	dir := filepath.Join(s.dir, estimationsDir)
	names, err := recordNames(dir)
	if err != nil {
		return nil, err
	}

	events := make([]*estimation.Event, 0, len(names))
	var skipped *multierror.Error
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var ev estimation.Event
		if err := readJSON(filepath.Join(dir, name+".json"), &ev); err != nil {
			skipped = multierror.Append(skipped, fmt.Errorf("%s: %w", name, err))
			continue
		}
		events = append(events, &ev)
	}
	if err := skipped.ErrorOrNil(); err != nil {
		s.logger.Warn("skipped unreadable estimations", "count", len(skipped.Errors), logger.Err(err))
	}

	sort.Slice(events, func(i, j int) bool {
		if !events[i].CreatedAt.Equal(events[j].CreatedAt) {
			return events[i].CreatedAt.Before(events[j].CreatedAt)
		}
		return events[i].ID < events[j].ID
	})
	return events, nil
}

// ============================================================================
// Recovery
// ============================================================================

// Recover rebuilds one conversation record from the event log and overwrites
// the materialized record with it.
func (s *FileStore) Recover(ctx context.Context, conversationID string) (*conversation.Conversation, error) {
	entries, readErr := s.readLog()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if readErr != nil {
		s.logger.Warn("event log has unreadable lines", logger.Err(readErr))
	}

	c, err := ReplayConversation(entries, conversationID)
	if c == nil {
		return nil, err
	}

	unlock := s.locks.Lock(conversationID)
	defer unlock()
	if err := writeJSONAtomic(s.conversationPath(conversationID), c); err != nil {
		return nil, err
	}
	return c.Clone(), err
}

// RecoverAll rebuilds every conversation found in the event log. It returns
// the number of records written; per-conversation problems are aggregated.
func (s *FileStore) RecoverAll(ctx context.Context) (int, error) {
	entries, readErr := s.readLog()
	var errs *multierror.Error
	if readErr != nil {
		errs = multierror.Append(errs, readErr)
	}

	convs, err := Replay(entries)
	if err != nil {
		errs = multierror.Append(errs, err)
	}

	ids := make([]string, 0, len(convs))
	for convID := range convs {
		ids = append(ids, convID)
	}
	sort.Strings(ids)

	written := 0
	for _, convID := range ids {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		unlock := s.locks.Lock(convID)
		err := writeJSONAtomic(s.conversationPath(convID), convs[convID])
		unlock()
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("%s: %w", convID, err))
			continue
		}
		written++
	}
	return written, errs.ErrorOrNil()
}

func (s *FileStore) readLog() ([]LogEntry, error) {
	f, err := os.Open(s.log.Path())
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadEntries(f)
}

// ============================================================================
// Files
// ============================================================================

// recordNames lists the ids of the *.json documents in dir, sorted.
func recordNames(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var names []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		names = append(names, strings.TrimSuffix(name, ".json"))
	}
	sort.Strings(names)
	return names, nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrNotFound
		}
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrCorrupt, filepath.Base(path), err)
	}
	return nil
}

// writeJSONAtomic replaces path with the encoded value via a temp file and rename.
func writeJSONAtomic(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
