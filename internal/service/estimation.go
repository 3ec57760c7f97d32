// internal/service/estimation.go
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/socratic-tutor/backend/internal/domain/estimation"
	"github.com/socratic-tutor/backend/internal/llm"
	"github.com/socratic-tutor/backend/internal/logger"
	"github.com/socratic-tutor/backend/internal/prompt"
	"github.com/socratic-tutor/backend/internal/store"
)

// EstimateRequest is a piece of student work to grade. Every field is
// optional; whatever is given is bound into the estimation template.
type EstimateRequest struct {
	Task             string
	TaskImage        *FileInput
	StudentWork      string
	StudentWorkImage *FileInput
	Model            string // overrides the configured model when set
}

type EstimateResult struct {
	EstimationID string           `json:"estimation_id"`
	Score        estimation.Score `json:"score"`
	Feedback     string           `json:"feedback"`
}

// EstimationService grades student work in one model call per request.
type EstimationService struct {
	store    store.Store
	gateway  llm.Gateway
	images   ImageStore
	settings SettingsSource
	logger   *slog.Logger
	now      func() time.Time
}

func NewEstimationService(s store.Store, gw llm.Gateway, images ImageStore, settings SettingsSource, logger *slog.Logger) *EstimationService {
	return &EstimationService{
		store:    s,
		gateway:  gw,
		images:   images,
		settings: settings,
		logger:   logger,
		now:      time.Now,
	}
}

// Estimate renders the estimation template, asks the model and pulls a score
// out of the reply. A reply without a readable score is still a success: the
// score is unparsed and the full reply is returned as feedback. Every
// answered request is logged as an estimation event. Failed model calls are
// not, and their uploads are removed.
func (es *EstimationService) Estimate(ctx context.Context, req EstimateRequest) (_ *EstimateResult, err error) {
	settings := es.settings.Snapshot()
	tmpl := settings.EstimationTemplate
	if strings.TrimSpace(tmpl) == "" {
		return nil, invalid("estimation_template", "estimation template is not configured")
	}
	model := req.Model
	if model == "" {
		model = settings.ModelName()
	}

	ev := &estimation.Event{
		ID:             estimation.NewEventID(),
		Model:          model,
		PromptTemplate: tmpl,
		Task:           req.Task,
		StudentWork:    req.StudentWork,
	}

	owner := "estimations/" + ev.ID
	if req.TaskImage != nil || req.StudentWorkImage != nil {
		defer func() {
			if err != nil {
				discardUploads(es.images, es.logger, owner)
			}
		}()
	}

	if req.TaskImage != nil {
		ref, err := saveUpload(es.images, owner, "task", "task_image", req.TaskImage)
		if err != nil {
			return nil, err
		}
		ev.TaskImage, ev.TaskImageOriginalName = ref.Path, ref.OriginalName
	}
	if req.StudentWorkImage != nil {
		ref, err := saveUpload(es.images, owner, "student_work", "student_work_image", req.StudentWorkImage)
		if err != nil {
			return nil, err
		}
		ev.StudentWorkImage, ev.StudentWorkImageOriginal = ref.Path, ref.OriginalName
	}

	rendered := prompt.Render(tmpl, prompt.EstimationVocabulary, prompt.Bindings{
		prompt.Task:             prompt.Text(ev.Task),
		prompt.TaskImage:        prompt.Image(ev.TaskImage),
		prompt.StudentWork:      prompt.Text(ev.StudentWork),
		prompt.StudentWorkImage: prompt.Image(ev.StudentWorkImage),
	})
	ev.Prompt = rendered.Text()

	reply, err := es.gateway.Generate(ctx, rendered, model)
	if err != nil {
		es.logger.Error("estimation failed",
			"estimation_id", ev.ID,
			"model", model,
			logger.Err(err))
		return nil, err
	}

	ev.Response = reply
	ev.Score = estimation.ExtractScore(reply)
	ev.CreatedAt = es.now().UTC()

	if err := es.store.LogEstimation(context.WithoutCancel(ctx), ev); err != nil {
		return nil, fmt.Errorf("logging estimation: %w", err)
	}

	if ev.Score.Parsed && !ev.Score.InRange() {
		es.logger.Warn("score out of range",
			"estimation_id", ev.ID,
			"score", ev.Score.Value)
	}
	es.logger.Info("estimation completed",
		"estimation_id", ev.ID,
		"score", ev.Score.String())

	return &EstimateResult{
		EstimationID: ev.ID,
		Score:        ev.Score,
		Feedback:     reply,
	}, nil
}

// List returns every logged estimation, oldest first.
func (es *EstimationService) List(ctx context.Context) ([]*estimation.Event, error) {
	return es.store.ListEstimations(ctx)
}
