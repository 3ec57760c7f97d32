package export_test

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/socratic-tutor/backend/internal/domain/conversation"
	"github.com/socratic-tutor/backend/internal/domain/estimation"
	"github.com/socratic-tutor/backend/internal/export"
)

var created = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

func sampleConversation(t *testing.T) *conversation.Conversation {
	t.Helper()
	c, err := conversation.New(conversation.NewParams{
		ID:                    "c1",
		PromptTemplate:        "Ты учитель.\n{{dialogue_turns}}",
		Task:                  "x+1=2",
		TaskImage:             "c1/task.png",
		TaskImageOriginalName: "задача.png",
	}, created)
	require.NoError(t, err)
	_, err = c.Append(conversation.RoleUser, "Не знаю", created.Add(time.Minute))
	require.NoError(t, err)
	_, err = c.Append(conversation.RoleAssistant, "Что известно?", created.Add(2*time.Minute))
	require.NoError(t, err)
	return c
}

func TestTranscript(t *testing.T) {
	c := sampleConversation(t)

	want := "Промпт:\nТы учитель.\n{{dialogue_turns}}\n\n" +
		"Диалог:\nУченик: Не знаю\n\nУчитель: Что известно?"
	assert.Equal(t, want, export.Transcript(c))
	assert.Equal(t, export.Transcript(c), export.Transcript(c))
}

func TestTranscript_Empty(t *testing.T) {
	c, err := conversation.New(conversation.NewParams{}, created)
	require.NoError(t, err)
	assert.Equal(t, "Диалог:\n"+export.EmptyDialogue, export.Transcript(c))

	c.PromptTemplate = "P"
	assert.Equal(t, "Промпт:\nP\n\nДиалог:\n"+export.EmptyDialogue, export.Transcript(c))
}

func TestWorkbook(t *testing.T) {
	c := sampleConversation(t)
	events := []*estimation.Event{
		{ID: "e1", CreatedAt: created, Model: "m", Task: "2+2", StudentWork: "4", Response: "Score: 5", Score: estimation.Parsed(5)},
		{ID: "e2", CreatedAt: created, Response: "hmm", Score: estimation.Unparsed},
	}

	data, err := export.Workbook([]*conversation.Conversation{c}, events)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{export.SheetConversations, export.SheetEstimations}, f.GetSheetList())

	rows, err := f.GetRows(export.SheetConversations)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "ID", rows[0][0])
	assert.Equal(t, "c1", rows[1][0])
	assert.Equal(t, "2024-05-01T10:00:00Z", rows[1][1])
	assert.Equal(t, "c1/task.png (задача.png)", rows[1][3])
	assert.Equal(t, "2", rows[1][5])
	assert.Equal(t, export.Transcript(c), rows[1][6])

	rows, err = f.GetRows(export.SheetEstimations)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "5", rows[1][7])
	assert.Equal(t, "Score: 5", rows[1][8])
	assert.Equal(t, "e2", rows[2][0])
}

func TestWorkbook_ClampsLongCells(t *testing.T) {
	c, err := conversation.New(conversation.NewParams{ID: "long", Task: strings.Repeat("я", 40000)}, created)
	require.NoError(t, err)

	data, err := export.Workbook([]*conversation.Conversation{c}, nil)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()
	v, err := f.GetCellValue(export.SheetConversations, "C2")
	require.NoError(t, err)
	assert.Equal(t, 32767, len([]rune(v)))
}

func TestEstimationReport(t *testing.T) {
	page, err := export.EstimationReport(export.Report{
		Score:       "4",
		Feedback:    "**Хорошо.** Проверь <script>alert(1)</script> шаг 2.\n\n- пункт",
		GeneratedAt: created,
	})
	require.NoError(t, err)

	html := string(page)
	assert.Contains(t, html, "Оценка: <b>4</b>")
	assert.Contains(t, html, "Дата: 01.05.2024 10:00:00")
	assert.Contains(t, html, "<strong>Хорошо.</strong>")
	assert.Contains(t, html, "<li>пункт</li>")
	assert.NotContains(t, html, "<script>")
}

func TestEstimationReport_ListItemsHaveNoLineBreaks(t *testing.T) {
	page, err := export.EstimationReport(export.Report{
		Score:       "3",
		Feedback:    "Замечания:\n\n- шаг 1\n- шаг 2\n- шаг 3",
		GeneratedAt: created,
	})
	require.NoError(t, err)

	html := string(page)
	assert.Contains(t, html, "<li>шаг 1</li>")
	assert.Contains(t, html, "<li>шаг 2</li>")
	assert.Contains(t, html, "<li>шаг 3</li>")
	assert.NotContains(t, html, "<br />")
}

func TestEstimationReport_NoScore(t *testing.T) {
	page, err := export.EstimationReport(export.Report{Feedback: "ok", GeneratedAt: created})
	require.NoError(t, err)
	assert.NotContains(t, string(page), "Оценка:")
}

func TestEstimationReport_EmptyFeedback(t *testing.T) {
	_, err := export.EstimationReport(export.Report{Score: "3", Feedback: "  \n"})
	assert.ErrorIs(t, err, export.ErrEmptyFeedback)
}
