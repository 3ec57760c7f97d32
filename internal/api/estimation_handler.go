package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/socratic-tutor/backend/internal/export"
	"github.com/socratic-tutor/backend/internal/service"
)

// ── Request / Response types ────────────────────────────────────────────────

// ExportEstimationRequest is an estimation result to render. Score may be a
// number, a string or null.
type ExportEstimationRequest struct {
	Score    any    `json:"score" swaggertype:"string"`
	Feedback string `json:"feedback"`
}

// ── Handlers ────────────────────────────────────────────────────────────────

// estimate godoc
// @Summary      Grade student work
// @Description  Renders the estimation template, asks the model and extracts a score from the reply.
// @Description  score is null when the reply has no readable score; feedback is the full reply.
// @Tags         Estimation
// @Accept       multipart/form-data
// @Produce      json
// @Param        task                formData  string  false  "Task text"
// @Param        task_image          formData  file    false  "Task image"
// @Param        student_work        formData  string  false  "Student's answer"
// @Param        student_work_image  formData  file    false  "Photo of the student's work"
// @Param        model               formData  string  false  "Model override"
// @Success      200  {object}  service.EstimateResult
// @Failure      400  {object}  ErrorResponse  "template not configured or bad upload"
// @Failure      401  {object}  ErrorResponse
// @Failure      502  {object}  ErrorResponse
// @Failure      503  {object}  ErrorResponse
// @Router       /api/estimation [post]
func (h *Handler) estimate(w http.ResponseWriter, r *http.Request) {
	if !parseForm(w, r) {
		return
	}

	files, closeFiles, err := formFiles(r, "task_image", "student_work_image")
	if err != nil {
		respondError(w, http.StatusBadRequest, "cannot read uploaded file")
		return
	}
	defer closeFiles()

	res, err := h.estimations.Estimate(r.Context(), service.EstimateRequest{
		Task:             r.FormValue("task"),
		TaskImage:        files["task_image"],
		StudentWork:      r.FormValue("student_work"),
		StudentWorkImage: files["student_work_image"],
		Model:            r.FormValue("model"),
	})
	if h.handleError(w, err, "estimation") {
		return
	}
	respondJSON(w, http.StatusOK, res)
}

// exportEstimation godoc
// @Summary      Download an estimation report
// @Description  Renders score and markdown feedback as a standalone HTML page.
// @Tags         Estimation
// @Accept       json
// @Produce      html
// @Param        body  body      ExportEstimationRequest  true  "Estimation result"
// @Success      200   {file}    file
// @Failure      400   {object}  ErrorResponse  "feedback is empty"
// @Router       /api/estimation/export [post]
func (h *Handler) exportEstimation(w http.ResponseWriter, r *http.Request) {
	var req ExportEstimationRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	page, err := h.exports.EstimationReport(scoreText(req.Score), req.Feedback)
	if h.handleError(w, err, "estimation") {
		return
	}

	name := fmt.Sprintf("estimation_%s.html", time.Now().UTC().Format("20060102_150405"))
	w.Header().Set("Content-Type", export.ReportContentType)
	w.Header().Set("Content-Disposition", attachment(name))
	w.Write(page)
}

func scoreText(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case float64:
		return fmt.Sprintf("%g", s)
	}
	return fmt.Sprint(v)
}
