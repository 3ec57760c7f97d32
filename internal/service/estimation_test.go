package service_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/socratic-tutor/backend/internal/domain/estimation"
	"github.com/socratic-tutor/backend/internal/infrastructure/config"
	"github.com/socratic-tutor/backend/internal/llm"
	"github.com/socratic-tutor/backend/internal/prompt"
	"github.com/socratic-tutor/backend/internal/service"
)

const gradingTemplate = "Task: {{task}}\nWork: {{student_work}}\n{{student_work_image}}"

func TestEstimate_ParsesScore(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.settings.set(func(s *config.Settings) { s.EstimationTemplate = gradingTemplate })
	f.gateway.Reply = "Хорошо, но шаг 2 неверен.\nScore: 4"

	res, err := f.estimations.Estimate(ctx, service.EstimateRequest{Task: "2+2", StudentWork: "4"})
	require.NoError(t, err)
	assert.Equal(t, estimation.Parsed(4), res.Score)
	assert.Equal(t, f.gateway.Reply, res.Feedback)
	assert.NotEmpty(t, res.EstimationID)

	require.Equal(t, 1, f.gateway.Calls())
	assert.Equal(t, "Task: 2+2\nWork: 4\n", f.gateway.Prompts[0].Text())

	events, err := f.estimations.List(ctx)
	require.NoError(t, err)
	require.Len(t, events, 1)
	ev := events[0]
	assert.Equal(t, res.EstimationID, ev.ID)
	assert.Equal(t, gradingTemplate, ev.PromptTemplate)
	assert.Equal(t, "Task: 2+2\nWork: 4\n", ev.Prompt)
	assert.Equal(t, config.DefaultModel, ev.Model)
	assert.Equal(t, estimation.Parsed(4), ev.Score)
	assert.False(t, ev.CreatedAt.IsZero())
}

func TestEstimate_UnparsedScoreIsStillLogged(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.settings.set(func(s *config.Settings) { s.EstimationTemplate = gradingTemplate })
	f.gateway.Reply = "Отличная работа!"

	res, err := f.estimations.Estimate(ctx, service.EstimateRequest{StudentWork: "x=1"})
	require.NoError(t, err)
	assert.Equal(t, estimation.Unparsed, res.Score)
	assert.Equal(t, "Отличная работа!", res.Feedback)

	events, err := f.estimations.List(ctx)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.False(t, events[0].Score.Parsed)
}

func TestEstimate_MissingTemplate(t *testing.T) {
	f := newFixture(t)

	_, err := f.estimations.Estimate(context.Background(), service.EstimateRequest{StudentWork: "4"})
	require.Error(t, err)
	assert.True(t, service.IsValidation(err))
	assert.Zero(t, f.gateway.Calls())
}

func TestEstimate_FailureLogsNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.settings.set(func(s *config.Settings) { s.EstimationTemplate = gradingTemplate })
	f.gateway.GenerateFunc = func(context.Context, prompt.Rendered, string) (string, error) {
		return "", llm.NewError(llm.KindAuth, "key rejected", llm.ErrNoCredential)
	}

	_, err := f.estimations.Estimate(ctx, service.EstimateRequest{StudentWork: "4"})
	require.Error(t, err)
	assert.True(t, llm.IsAuth(err))

	events, err := f.estimations.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestEstimate_RejectedUploadLeavesNoFiles(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.settings.set(func(s *config.Settings) { s.EstimationTemplate = gradingTemplate })

	_, err := f.estimations.Estimate(ctx, service.EstimateRequest{
		TaskImage:        pngFile("task.png"),
		StudentWorkImage: &service.FileInput{Name: "work.txt", Body: strings.NewReader("not an image")},
	})
	require.Error(t, err)
	assert.True(t, service.IsValidation(err))
	assert.Zero(t, f.gateway.Calls())
	assert.Empty(t, f.storedFiles(t))
}

func TestEstimate_FailureRemovesUploads(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.settings.set(func(s *config.Settings) { s.EstimationTemplate = gradingTemplate })
	f.gateway.GenerateFunc = func(context.Context, prompt.Rendered, string) (string, error) {
		return "", llm.NewError(llm.KindTransient, "provider unavailable", nil)
	}

	_, err := f.estimations.Estimate(ctx, service.EstimateRequest{
		TaskImage:        pngFile("task.png"),
		StudentWorkImage: pngFile("work.png"),
	})
	require.Error(t, err)
	assert.True(t, llm.IsTransient(err))
	assert.Equal(t, 1, f.gateway.Calls())

	events, err := f.estimations.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, events)
	assert.Empty(t, f.storedFiles(t))
}

func TestEstimate_ModelOverride(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.settings.set(func(s *config.Settings) {
		s.EstimationTemplate = gradingTemplate
		s.Model.Name = "configured"
	})

	var gotModel string
	f.gateway.GenerateFunc = func(_ context.Context, _ prompt.Rendered, model string) (string, error) {
		gotModel = model
		return "score: 5", nil
	}

	_, err := f.estimations.Estimate(ctx, service.EstimateRequest{StudentWork: "4", Model: "override"})
	require.NoError(t, err)
	assert.Equal(t, "override", gotModel)

	_, err = f.estimations.Estimate(ctx, service.EstimateRequest{StudentWork: "4"})
	require.NoError(t, err)
	assert.Equal(t, "configured", gotModel)
}

func TestEstimate_StoresImagesUnderEstimation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.settings.set(func(s *config.Settings) { s.EstimationTemplate = gradingTemplate })
	f.gateway.Reply = "score: 3"

	res, err := f.estimations.Estimate(ctx, service.EstimateRequest{
		Task:             "draw a square",
		TaskImage:        pngFile("task.png"),
		StudentWorkImage: pngFile("photo.png"),
	})
	require.NoError(t, err)

	events, err := f.estimations.List(ctx)
	require.NoError(t, err)
	require.Len(t, events, 1)
	ev := events[0]
	assert.Equal(t, "estimations/"+res.EstimationID+"/task.png", ev.TaskImage)
	assert.Equal(t, "estimations/"+res.EstimationID+"/student_work.png", ev.StudentWorkImage)
	assert.Equal(t, "photo.png", ev.StudentWorkImageOriginal)

	// The placed image comes first, the unplaced task image is attached after.
	assert.Equal(t, []string{ev.StudentWorkImage, ev.TaskImage}, f.gateway.Prompts[0].Images())
}
