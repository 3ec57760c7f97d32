// internal/service/export.go
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/socratic-tutor/backend/internal/domain/conversation"
	"github.com/socratic-tutor/backend/internal/export"
	"github.com/socratic-tutor/backend/internal/logger"
	"github.com/socratic-tutor/backend/internal/store"
	"github.com/socratic-tutor/backend/internal/worker"
)

const exportWorkers = 4

// ConversationExport is a stored conversation together with its transcript.
type ConversationExport struct {
	Conversation *conversation.Conversation `json:"conversation"`
	Transcript   string                     `json:"transcript"`
}

// ExportService reads from the store only.
type ExportService struct {
	store  store.Store
	logger *slog.Logger
	now    func() time.Time
}

func NewExportService(s store.Store, logger *slog.Logger) *ExportService {
	return &ExportService{store: s, logger: logger, now: time.Now}
}

func (xs *ExportService) Conversation(ctx context.Context, conversationID string) (*ConversationExport, error) {
	c, err := xs.store.GetConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	return &ConversationExport{Conversation: c, Transcript: export.Transcript(c)}, nil
}

func (xs *ExportService) Transcript(ctx context.Context, conversationID string) (string, error) {
	c, err := xs.store.GetConversation(ctx, conversationID)
	if err != nil {
		return "", err
	}
	return export.Transcript(c), nil
}

// Workbook exports every readable conversation and estimation as XLSX.
// Conversations keep listing order; ones that fail to load are left out and
// logged.
func (xs *ExportService) Workbook(ctx context.Context) ([]byte, error) {
	summaries, err := xs.store.ListConversations(ctx)
	if err != nil {
		return nil, err
	}

	ids := make([]string, len(summaries))
	for i, s := range summaries {
		ids[i] = s.ID
	}

	type loaded struct {
		conv *conversation.Conversation
		err  error
	}
	results := worker.Map(exportWorkers, ids, func(convID string) loaded {
		c, err := xs.store.GetConversation(ctx, convID)
		return loaded{conv: c, err: err}
	})

	convs := make([]*conversation.Conversation, 0, len(ids))
	var skipped *multierror.Error
	for _, convID := range ids {
		r := results[convID]
		if r.err != nil {
			skipped = multierror.Append(skipped, fmt.Errorf("%s: %w", convID, r.err))
			continue
		}
		convs = append(convs, r.conv)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := skipped.ErrorOrNil(); err != nil {
		xs.logger.Warn("conversations left out of export", "count", len(skipped.Errors), logger.Err(err))
	}

	events, err := xs.store.ListEstimations(ctx)
	if err != nil {
		return nil, err
	}
	return export.Workbook(convs, events)
}

// EstimationReport renders a graded result as an HTML page. score may be
// empty.
func (xs *ExportService) EstimationReport(score, feedback string) ([]byte, error) {
	page, err := export.EstimationReport(export.Report{
		Score:       score,
		Feedback:    feedback,
		GeneratedAt: xs.now(),
	})
	if errors.Is(err, export.ErrEmptyFeedback) {
		return nil, &ValidationError{Field: "feedback", Message: "feedback is empty", Cause: err}
	}
	return page, err
}
