package service_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/socratic-tutor/backend/internal/domain/conversation"
	"github.com/socratic-tutor/backend/internal/export"
	"github.com/socratic-tutor/backend/internal/infrastructure/config"
	"github.com/socratic-tutor/backend/internal/logger"
	"github.com/socratic-tutor/backend/internal/service"
	"github.com/socratic-tutor/backend/internal/store"
)

func TestExport_Conversation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.settings.set(func(s *config.Settings) { s.PromptTemplate = "Ты учитель." })
	f.gateway.Reply = "Что известно?"

	c, err := f.conversations.Create(ctx, service.CreateRequest{Task: "x+1=2"})
	require.NoError(t, err)
	_, err = f.conversations.SendTurn(ctx, c.ID, "Не знаю")
	require.NoError(t, err)

	want := "Промпт:\nТы учитель.\n\nДиалог:\nУченик: Не знаю\n\nУчитель: Что известно?"

	out, err := f.exports.Conversation(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, c.ID, out.Conversation.ID)
	assert.Len(t, out.Conversation.Messages, 2)
	assert.Equal(t, want, out.Transcript)

	text, err := f.exports.Transcript(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, want, text)
}

func TestExport_UnknownConversation(t *testing.T) {
	f := newFixture(t)

	_, err := f.exports.Transcript(context.Background(), "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestExport_Workbook(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.settings.set(func(s *config.Settings) { s.EstimationTemplate = "{{student_work}}" })
	f.gateway.Reply = "score: 5"

	for _, task := range []string{"a", "b", "c"} {
		_, err := f.conversations.Create(ctx, service.CreateRequest{Task: task})
		require.NoError(t, err)
	}
	_, err := f.estimations.Estimate(ctx, service.EstimateRequest{StudentWork: "4"})
	require.NoError(t, err)

	data, err := f.exports.Workbook(ctx)
	require.NoError(t, err)

	wb, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer wb.Close()

	rows, err := wb.GetRows(export.SheetConversations)
	require.NoError(t, err)
	assert.Len(t, rows, 4)

	rows, err = wb.GetRows(export.SheetEstimations)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "5", rows[1][7])
}

func TestExport_WorkbookSkipsCorruptConversation(t *testing.T) {
	dataDir := t.TempDir()
	st, err := store.NewFileStore(dataDir, logger.Discard())
	require.NoError(t, err)
	defer st.Close()

	ctx := context.Background()
	_, err = st.CreateConversation(ctx, conversation.NewParams{ID: "good"})
	require.NoError(t, err)
	_, err = st.CreateConversation(ctx, conversation.NewParams{ID: "bad"})
	require.NoError(t, err)

	xs := service.NewExportService(st, logger.Discard())
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "conversations", "bad.json"), []byte("{"), 0o644))

	data, err := xs.Workbook(ctx)
	require.NoError(t, err)

	wb, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer wb.Close()

	rows, err := wb.GetRows(export.SheetConversations)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "good", rows[1][0])
}

func TestExport_EstimationReport(t *testing.T) {
	f := newFixture(t)

	page, err := f.exports.EstimationReport("4", "**Хорошо**")
	require.NoError(t, err)
	assert.Contains(t, string(page), "<strong>Хорошо</strong>")

	_, err = f.exports.EstimationReport("4", "   ")
	require.Error(t, err)
	assert.True(t, service.IsValidation(err))
}
