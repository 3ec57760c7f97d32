// Package prompt renders tutor and grading templates into multimodal prompts.
//
// A template is plain text with {{name}} placeholders drawn from a fixed
// vocabulary. Anything else, including unknown names, Jinja blocks and unclosed
// braces, is kept verbatim so a broken template degrades instead of failing.
package prompt

import (
	"strings"
)

const (
	openDelim  = "{{"
	closeDelim = "}}"
)

// Vocabulary is the closed set of placeholder names a template may use.
type Vocabulary map[string]struct{}

func NewVocabulary(names ...string) Vocabulary {
	v := make(Vocabulary, len(names))
	for _, n := range names {
		v[n] = struct{}{}
	}
	return v
}

func (v Vocabulary) Has(name string) bool {
	_, ok := v[name]
	return ok
}

// Placeholder names.
const (
	Task             = "task"
	TaskImage        = "task_image"
	SolutionImage    = "solution_image"
	DialogueTurnsKey = "dialogue_turns"
	StudentWork      = "student_work"
	StudentWorkImage = "student_work_image"
)

var (
	// ChatVocabulary is recognized in tutor prompts.
	ChatVocabulary = NewVocabulary(Task, TaskImage, SolutionImage, DialogueTurnsKey)

	// EstimationVocabulary is recognized in grading prompts.
	EstimationVocabulary = NewVocabulary(Task, TaskImage, StudentWork, StudentWorkImage)
)

// imageOrder fixes the order in which unplaced images are attached.
var imageOrder = []string{TaskImage, SolutionImage, StudentWorkImage}

type tokenKind int

const (
	tokenLiteral tokenKind = iota
	tokenSlot
)

type token struct {
	kind tokenKind
	text string // literal text, or the slot name
}

// Template is a compiled template: a list of literal segments and named slots.
type Template struct {
	tokens []token
	slots  map[string]bool
}

// Compile splits src into literals and slots. It never fails.
func Compile(src string, vocab Vocabulary) *Template {
	t := &Template{slots: make(map[string]bool)}

	var lit strings.Builder
	rest := src
	for {
		start := strings.Index(rest, openDelim)
		if start < 0 {
			lit.WriteString(rest)
			break
		}
		end := strings.Index(rest[start+len(openDelim):], closeDelim)
		if end < 0 {
			lit.WriteString(rest)
			break
		}
		end += start + len(openDelim)

		name := strings.TrimSpace(rest[start+len(openDelim) : end])
		if !vocab.Has(name) {
			// Not ours: emit the opening brace and rescan after it, so "{{{{task}}"
			// still finds the inner placeholder.
			lit.WriteString(rest[:start+1])
			rest = rest[start+1:]
			continue
		}

		lit.WriteString(rest[:start])
		if lit.Len() > 0 {
			t.tokens = append(t.tokens, token{kind: tokenLiteral, text: lit.String()})
			lit.Reset()
		}
		t.tokens = append(t.tokens, token{kind: tokenSlot, text: name})
		t.slots[name] = true
		rest = rest[end+len(closeDelim):]
	}
	if lit.Len() > 0 {
		t.tokens = append(t.tokens, token{kind: tokenLiteral, text: lit.String()})
	}
	return t
}

// Uses reports whether the template contains the named slot.
func (t *Template) Uses(name string) bool {
	return t.slots[name]
}

// Render evaluates the template against bindings. Missing bindings render as
// empty text. Image values become image parts at the slot position; bound
// images whose slot does not appear in the template are appended at the end.
func (t *Template) Render(b Bindings) Rendered {
	var r Rendered
	for _, tok := range t.tokens {
		if tok.kind == tokenLiteral {
			r.appendText(tok.text)
			continue
		}
		v, ok := b[tok.text]
		if !ok {
			continue
		}
		switch v.Kind {
		case KindImage:
			r.appendImage(v.Image)
		default:
			r.appendText(v.Text)
		}
	}

	for _, name := range imageOrder {
		if t.slots[name] {
			continue
		}
		if v, ok := b[name]; ok && v.Kind == KindImage {
			r.appendImage(v.Image)
		}
	}
	return r
}

// Render compiles and renders src in one step.
func Render(src string, vocab Vocabulary, b Bindings) Rendered {
	return Compile(src, vocab).Render(b)
}
