package prompt

import (
	"strings"

	"github.com/socratic-tutor/backend/internal/domain/conversation"
)

type ValueKind int

const (
	KindText ValueKind = iota
	KindImage
)

// Value is a binding: plain text or a reference to a stored image.
type Value struct {
	Kind  ValueKind
	Text  string
	Image string
}

func Text(s string) Value {
	return Value{Kind: KindText, Text: s}
}

// Image binds an image reference. An empty reference renders as nothing.
func Image(ref string) Value {
	return Value{Kind: KindImage, Image: ref}
}

// Bindings maps placeholder names to values. Absent names render as empty text.
type Bindings map[string]Value

type PartType string

const (
	PartText  PartType = "text"
	PartImage PartType = "image"
)

// Part is one span of a rendered prompt.
type Part struct {
	Type     PartType `json:"type"`
	Text     string   `json:"text,omitempty"`
	ImageRef string   `json:"image_ref,omitempty"`
}

// Rendered is an ordered multimodal prompt. Adjacent text is merged and
// empty spans are dropped.
type Rendered struct {
	Parts []Part `json:"parts"`
}

func (r *Rendered) appendText(s string) {
	if s == "" {
		return
	}
	if n := len(r.Parts); n > 0 && r.Parts[n-1].Type == PartText {
		r.Parts[n-1].Text += s
		return
	}
	r.Parts = append(r.Parts, Part{Type: PartText, Text: s})
}

func (r *Rendered) appendImage(ref string) {
	if ref == "" {
		return
	}
	r.Parts = append(r.Parts, Part{Type: PartImage, ImageRef: ref})
}

// Text returns the concatenated text parts.
func (r Rendered) Text() string {
	var b strings.Builder
	for _, p := range r.Parts {
		if p.Type == PartText {
			b.WriteString(p.Text)
		}
	}
	return b.String()
}

// Images returns the image references in prompt order.
func (r Rendered) Images() []string {
	var refs []string
	for _, p := range r.Parts {
		if p.Type == PartImage {
			refs = append(refs, p.ImageRef)
		}
	}
	return refs
}

// DialogueTurns formats turns as "<Label>: <content>" blocks separated by a blank line.
func DialogueTurns(turns []conversation.Turn) string {
	lines := make([]string, 0, len(turns))
	for _, t := range turns {
		lines = append(lines, t.Role.Label()+": "+t.Content)
	}
	return strings.TrimSpace(strings.Join(lines, "\n\n"))
}

// ConversationBindings builds the tutor prompt bindings for c. Dialogue turns
// come from the full current turn sequence.
func ConversationBindings(c *conversation.Conversation) Bindings {
	return Bindings{
		Task:             Text(c.Task),
		TaskImage:        Image(c.TaskImage),
		SolutionImage:    Image(c.SolutionImage),
		DialogueTurnsKey: Text(DialogueTurns(c.Messages)),
	}
}
