package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// Kind classifies gateway failures by how the caller should react.
type Kind string

const (
	// KindAuth means the credential is missing or rejected. Never retried.
	KindAuth Kind = "auth"
	// KindTransient covers network failures, timeouts, rate limits and 5xx.
	KindTransient Kind = "transient"
	// KindProvider is an error payload from the endpoint, or an unusable reply.
	KindProvider Kind = "provider"
)

// ErrNoCredential is the cause of the auth error returned when no API key is configured.
var ErrNoCredential = errors.New("no API credential configured")

// Error is a classified gateway failure.
type Error struct {
	Kind       Kind
	Message    string // human readable, safe to show to users
	StatusCode int    // HTTP status code if applicable
	Model      string
	Cause      error
}

func (e *Error) Error() string {
	var parts []string
	parts = append(parts, string(e.Kind))
	if e.StatusCode > 0 {
		parts = append(parts, fmt.Sprintf("HTTP %d", e.StatusCode))
	}
	if e.Model != "" {
		parts = append(parts, fmt.Sprintf("model=%s", e.Model))
	}
	parts = append(parts, e.Message)

	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", strings.Join(parts, " "), e.Cause)
	}
	return strings.Join(parts, " ")
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func NewError(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// ClassifyError turns an error from the OpenAI client into an *Error.
// Errors that are already classified are returned unchanged.
func ClassifyError(err error, model string) *Error {
	if err == nil {
		return nil
	}

	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr
	}

	classified := classify(err)
	classified.Model = model
	return classified
}

func classify(err error) *Error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		msg := apiErr.Message
		if msg == "" {
			msg = http.StatusText(apiErr.HTTPStatusCode)
		}
		return &Error{Kind: kindForStatus(apiErr.HTTPStatusCode), Message: msg, StatusCode: apiErr.HTTPStatusCode, Cause: err}
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode > 0 {
		return &Error{
			Kind:       kindForStatus(reqErr.HTTPStatusCode),
			Message:    http.StatusText(reqErr.HTTPStatusCode),
			StatusCode: reqErr.HTTPStatusCode,
			Cause:      err,
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return NewError(KindTransient, "request timed out", err)
	}
	if errors.Is(err, context.Canceled) {
		return NewError(KindTransient, "request canceled", err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return NewError(KindTransient, "network error", err)
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return NewError(KindTransient, "connection failed", err)
	}

	return NewError(KindProvider, "unexpected response from model provider", err)
}

func kindForStatus(code int) Kind {
	switch {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return KindAuth
	case code == http.StatusRequestTimeout || code == http.StatusTooManyRequests || code >= 500:
		return KindTransient
	}
	return KindProvider
}

func kindOf(err error) (Kind, bool) {
	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr.Kind, true
	}
	return "", false
}

func IsAuth(err error) bool {
	k, ok := kindOf(err)
	return ok && k == KindAuth
}

func IsTransient(err error) bool {
	k, ok := kindOf(err)
	return ok && k == KindTransient
}

func IsProvider(err error) bool {
	k, ok := kindOf(err)
	return ok && k == KindProvider
}
