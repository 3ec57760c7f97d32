package estimation

import (
	"time"

	"github.com/socratic-tutor/backend/internal/id"
)

// Event records one grading request and its outcome. Events are written once and never updated.
type Event struct {
	ID                       string    `json:"id"`
	CreatedAt                time.Time `json:"timestamp"`
	Model                    string    `json:"model"`
	PromptTemplate           string    `json:"prompt_template"`
	Prompt                   string    `json:"prompt"`
	Task                     string    `json:"task"`
	TaskImage                string    `json:"task_image,omitempty"`
	TaskImageOriginalName    string    `json:"task_image_original_name,omitempty"`
	StudentWork              string    `json:"student_work"`
	StudentWorkImage         string    `json:"student_work_image,omitempty"`
	StudentWorkImageOriginal string    `json:"student_work_image_original_name,omitempty"`
	Response                 string    `json:"response"`
	Score                    Score     `json:"score"`
}

// NewEventID returns an identifier for a new estimation.
func NewEventID() string {
	return id.New()
}
