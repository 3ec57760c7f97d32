package service

import (
	"errors"
	"fmt"

	"github.com/socratic-tutor/backend/internal/domain/conversation"
)

// ValidationError reports bad or missing input. Nothing is persisted when
// it is returned.
type ValidationError struct {
	Field   string
	Message string
	Cause   error
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return e.Cause
}

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// GenerationError means the user's turn was stored but no reply was produced.
type GenerationError struct {
	ConversationID string
	UserTurn       conversation.Turn
	Err            error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("conversation %s: no reply generated: %v", e.ConversationID, e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}
