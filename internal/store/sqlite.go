// internal/store/sqlite.go
package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hashicorp/go-multierror"
	migrate "github.com/rubenv/sql-migrate"
	_ "modernc.org/sqlite"

	"github.com/socratic-tutor/backend/internal/domain/conversation"
	"github.com/socratic-tutor/backend/internal/domain/estimation"
	"github.com/socratic-tutor/backend/internal/id"
	"github.com/socratic-tutor/backend/internal/logger"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Fixed width so that text ordering matches time ordering.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteStore keeps conversations, turns, estimations and the event log in a
// single SQLite database. Every write runs in one transaction together with
// its log entry.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
	now    func() time.Time
}

var _ Store = (*SQLiteStore)(nil)

func NewSQLite(dbPath string, logger *slog.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	// One writer keeps appends to the same conversation ordered.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, err
	}

	src := &migrate.EmbedFileSystemMigrationSource{FileSystem: migrationFiles, Root: "migrations"}
	n, err := migrate.Exec(db, "sqlite3", src, migrate.Up)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating %s: %w", dbPath, err)
	}
	if n > 0 {
		logger.Info("applied migrations", "count", n, "path", dbPath)
	}

	return &SQLiteStore{db: db, logger: logger, now: time.Now}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ============================================================================
// Conversations
// ============================================================================

func (s *SQLiteStore) CreateConversation(ctx context.Context, p conversation.NewParams) (*conversation.Conversation, error) {
	c, err := conversation.New(p, s.now())
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var found int
	if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM conversations WHERE id = ?", c.ID).Scan(&found); err != nil {
		return nil, err
	}
	if found > 0 {
		return nil, fmt.Errorf("conversation %s: %w", c.ID, ErrAlreadyExists)
	}

	if err := insertEvent(ctx, tx, createdEntry(c)); err != nil {
		return nil, err
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO conversations (id, created_at, prompt_template, task, task_image,
			task_image_original_name, solution_image, solution_image_original_name)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, formatTime(c.CreatedAt), c.PromptTemplate, c.Task, c.TaskImage,
		c.TaskImageOriginalName, c.SolutionImage, c.SolutionImageOriginalName,
	)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *SQLiteStore) AppendTurn(ctx context.Context, conversationID string, role conversation.Role, content string) (conversation.Turn, error) {
	if !role.Valid() {
		return conversation.Turn{}, fmt.Errorf("%w: %q", conversation.ErrInvalidRole, role)
	}
	if !id.Valid(conversationID) {
		return conversation.Turn{}, ErrNotFound
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return conversation.Turn{}, err
	}
	defer tx.Rollback()

	var found int
	err = tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM conversations WHERE id = ?", conversationID).Scan(&found)
	if err != nil {
		return conversation.Turn{}, err
	}
	if found == 0 {
		return conversation.Turn{}, ErrNotFound
	}

	var next int
	err = tx.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(position) + 1, 0) FROM turns WHERE conversation_id = ?", conversationID,
	).Scan(&next)
	if err != nil {
		return conversation.Turn{}, err
	}

	turn := conversation.Turn{Role: role, Content: content, CreatedAt: s.now().UTC()}
	if err := insertEvent(ctx, tx, appendedEntry(conversationID, turn)); err != nil {
		return conversation.Turn{}, err
	}
	_, err = tx.ExecContext(ctx,
		"INSERT INTO turns (conversation_id, position, role, content, created_at) VALUES (?, ?, ?, ?, ?)",
		conversationID, next, string(role), content, formatTime(turn.CreatedAt),
	)
	if err != nil {
		return conversation.Turn{}, err
	}

	if err := tx.Commit(); err != nil {
		return conversation.Turn{}, err
	}
	return turn, nil
}

func (s *SQLiteStore) GetConversation(ctx context.Context, conversationID string) (*conversation.Conversation, error) {
	var (
		c       conversation.Conversation
		created string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, created_at, prompt_template, task, task_image, task_image_original_name,
			solution_image, solution_image_original_name
		FROM conversations WHERE id = ?`, conversationID,
	).Scan(&c.ID, &created, &c.PromptTemplate, &c.Task, &c.TaskImage, &c.TaskImageOriginalName,
		&c.SolutionImage, &c.SolutionImageOriginalName)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if c.CreatedAt, err = parseTime(created); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT role, content, created_at FROM turns WHERE conversation_id = ? ORDER BY position", conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	c.Messages = []conversation.Turn{}
	for rows.Next() {
		var (
			t  conversation.Turn
			at string
		)
		if err := rows.Scan(&t.Role, &t.Content, &at); err != nil {
			return nil, err
		}
		if t.CreatedAt, err = parseTime(at); err != nil {
			return nil, err
		}
		c.Messages = append(c.Messages, t)
	}
	return &c, rows.Err()
}

func (s *SQLiteStore) ListConversations(ctx context.Context) ([]conversation.Summary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.created_at,
			(SELECT t.content FROM turns t
			 WHERE t.conversation_id = c.id AND t.role = 'user'
			 ORDER BY t.position LIMIT 1)
		FROM conversations c
		ORDER BY c.created_at, c.id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	summaries := []conversation.Summary{}
	var skipped *multierror.Error
	for rows.Next() {
		var (
			sum     conversation.Summary
			created string
			first   sql.NullString
		)
		if err := rows.Scan(&sum.ID, &created, &first); err != nil {
			return nil, err
		}
		if sum.CreatedAt, err = parseTime(created); err != nil {
			skipped = multierror.Append(skipped, fmt.Errorf("%s: %w", sum.ID, err))
			continue
		}
		if first.Valid {
			sum.Snippet = conversation.Snippet(first.String)
		}
		summaries = append(summaries, sum)
	}
	if err := skipped.ErrorOrNil(); err != nil {
		s.logger.Warn("skipped unreadable conversations", "count", len(skipped.Errors), logger.Err(err))
	}
	return summaries, rows.Err()
}

// ============================================================================
// Estimations
// ============================================================================

func (s *SQLiteStore) LogEstimation(ctx context.Context, ev *estimation.Event) error {
	if ev.ID == "" {
		ev.ID = estimation.NewEventID()
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = s.now().UTC()
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := insertEvent(ctx, tx, estimationEntry(ev)); err != nil {
		return err
	}

	var score sql.NullInt64
	if ev.Score.Parsed {
		score = sql.NullInt64{Int64: int64(ev.Score.Value), Valid: true}
	}
	_, err = tx.ExecContext(ctx,
		"INSERT INTO estimations (id, created_at, score, payload) VALUES (?, ?, ?, ?)",
		ev.ID, formatTime(ev.CreatedAt), score, string(payload),
	)
	if err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLiteStore) ListEstimations(ctx context.Context) ([]*estimation.Event, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, payload FROM estimations ORDER BY created_at, id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := []*estimation.Event{}
	var skipped *multierror.Error
	for rows.Next() {
		var evID, payload string
		if err := rows.Scan(&evID, &payload); err != nil {
			return nil, err
		}
		var ev estimation.Event
		if err := json.Unmarshal([]byte(payload), &ev); err != nil {
			skipped = multierror.Append(skipped, fmt.Errorf("%s: %w: %v", evID, ErrCorrupt, err))
			continue
		}
		events = append(events, &ev)
	}
	if err := skipped.ErrorOrNil(); err != nil {
		s.logger.Warn("skipped unreadable estimations", "count", len(skipped.Errors), logger.Err(err))
	}
	return events, rows.Err()
}

// ============================================================================
// Event log
// ============================================================================

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertEvent(ctx context.Context, ex execer, e LogEntry) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return err
	}
	var convID sql.NullString
	if e.ConversationID != "" {
		convID = sql.NullString{String: e.ConversationID, Valid: true}
	}
	_, err = ex.ExecContext(ctx,
		"INSERT INTO events (event, conversation_id, created_at, payload) VALUES (?, ?, ?, ?)",
		string(e.Event), convID, formatTime(e.Timestamp), string(payload),
	)
	return err
}

// Entries returns the event log in write order. Undecodable rows are skipped
// and reported in the error.
func (s *SQLiteStore) Entries(ctx context.Context) ([]LogEntry, error) {
	return s.entries(ctx, "SELECT seq, payload FROM events ORDER BY seq")
}

// ReplayConversation rebuilds one conversation from the event log alone.
func (s *SQLiteStore) ReplayConversation(ctx context.Context, conversationID string) (*conversation.Conversation, error) {
	entries, err := s.entries(ctx,
		"SELECT seq, payload FROM events WHERE conversation_id = ? ORDER BY seq", conversationID)
	if err != nil && len(entries) == 0 {
		return nil, err
	}
	return ReplayConversation(entries, conversationID)
}

func (s *SQLiteStore) entries(ctx context.Context, query string, args ...any) ([]LogEntry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var (
		out  []LogEntry
		errs *multierror.Error
	)
	for rows.Next() {
		var (
			seq     int64
			payload string
		)
		if err := rows.Scan(&seq, &payload); err != nil {
			return out, err
		}
		var e LogEntry
		if err := json.Unmarshal([]byte(payload), &e); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("event %d: %w", seq, err))
			continue
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return out, err
	}
	return out, errs.ErrorOrNil()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, errors.Join(ErrCorrupt, err)
	}
	return t, nil
}
