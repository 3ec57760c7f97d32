package export

import (
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"github.com/socratic-tutor/backend/internal/domain/conversation"
	"github.com/socratic-tutor/backend/internal/domain/estimation"
)

const (
	SheetConversations = "Conversations"
	SheetEstimations   = "Estimations"

	WorkbookContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	// Excel refuses cells longer than this.
	maxCellChars = 32767
)

var (
	conversationHeader = []any{"ID", "Created", "Task", "Task image", "Solution image", "Turns", "Transcript"}
	estimationHeader   = []any{"ID", "Timestamp", "Model", "Task", "Task image", "Student work", "Student work image", "Score", "Response"}
)

// Workbook builds an XLSX document with one row per conversation and one row
// per estimation. Rows keep the order of the input slices.
func Workbook(convs []*conversation.Conversation, events []*estimation.Event) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetConversations); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(SheetEstimations); err != nil {
		return nil, err
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}

	rows := make([][]any, 0, len(convs))
	for _, c := range convs {
		rows = append(rows, []any{
			c.ID,
			formatTimestamp(c.CreatedAt),
			c.Task,
			imageCell(c.TaskImage, c.TaskImageOriginalName),
			imageCell(c.SolutionImage, c.SolutionImageOriginalName),
			len(c.Messages),
			Transcript(c),
		})
	}
	if err := writeSheet(f, SheetConversations, conversationHeader, rows, bold); err != nil {
		return nil, err
	}

	rows = rows[:0]
	for _, ev := range events {
		var score any = ""
		if ev.Score.Parsed {
			score = ev.Score.Value
		}
		rows = append(rows, []any{
			ev.ID,
			formatTimestamp(ev.CreatedAt),
			ev.Model,
			ev.Task,
			imageCell(ev.TaskImage, ev.TaskImageOriginalName),
			ev.StudentWork,
			imageCell(ev.StudentWorkImage, ev.StudentWorkImageOriginal),
			score,
			ev.Response,
		})
	}
	if err := writeSheet(f, SheetEstimations, estimationHeader, rows, bold); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("writing workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeSheet(f *excelize.File, sheet string, header []any, rows [][]any, headerStyle int) error {
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	if err := f.SetRowStyle(sheet, 1, 1, headerStyle); err != nil {
		return err
	}
	for i, row := range rows {
		for j, v := range row {
			if s, ok := v.(string); ok {
				row[j] = clampCell(s)
			}
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	return nil
}

func imageCell(ref, original string) string {
	switch {
	case ref == "":
		return ""
	case original == "":
		return ref
	}
	return fmt.Sprintf("%s (%s)", ref, original)
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func clampCell(s string) string {
	if utf8.RuneCountInString(s) <= maxCellChars {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxCellChars-1]) + "…"
}
