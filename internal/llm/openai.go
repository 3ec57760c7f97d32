package llm

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/socratic-tutor/backend/internal/logger"
	"github.com/socratic-tutor/backend/internal/prompt"
)

// Config holds configuration for creating an OpenAIClient.
type Config struct {
	BaseURL      string // e.g. "https://generativelanguage.googleapis.com/v1beta/openai"
	APIKey       string // read from the environment only
	DefaultModel string // used when Generate is called without a model
	Timeout      time.Duration
	MaxTokens    int // 0 leaves the provider default
}

// OpenAIClient is a Gateway over any OpenAI-compatible chat completions API.
type OpenAIClient struct {
	client       *openai.Client
	hasKey       bool
	defaultModel string
	maxTokens    int
	images       ImageLoader
	logger       *slog.Logger
}

var _ Gateway = (*OpenAIClient)(nil)

func NewOpenAIClient(cfg Config, images ImageLoader, logger *slog.Logger) (*OpenAIClient, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	clientConfig.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	if cfg.Timeout > 0 {
		clientConfig.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}

	return &OpenAIClient{
		client:       openai.NewClientWithConfig(clientConfig),
		hasKey:       cfg.APIKey != "",
		defaultModel: cfg.DefaultModel,
		maxTokens:    cfg.MaxTokens,
		images:       images,
		logger:       logger.With("component", "llm"),
	}, nil
}

func (c *OpenAIClient) ListModels(ctx context.Context) ([]Model, error) {
	if !c.hasKey {
		return nil, NewError(KindAuth, "API key is not configured", ErrNoCredential)
	}

	list, err := c.client.ListModels(ctx)
	if err != nil {
		llmErr := ClassifyError(err, "")
		c.logger.Error("listing models failed", "kind", llmErr.Kind, logger.Err(err))
		return nil, llmErr
	}

	models := make([]Model, 0, len(list.Models))
	for _, m := range list.Models {
		models = append(models, Model{
			Name:        m.ID,
			DisplayName: strings.TrimPrefix(m.ID, "models/"),
			OwnedBy:     m.OwnedBy,
		})
	}
	sort.Slice(models, func(i, j int) bool { return models[i].Name < models[j].Name })
	return models, nil
}

// Generate sends p as a single user message. Image parts are inlined as data
// URLs at their position in the prompt; images that cannot be loaded are
// skipped with a warning.
func (c *OpenAIClient) Generate(ctx context.Context, p prompt.Rendered, model string) (string, error) {
	if model == "" {
		model = c.defaultModel
	}
	if !c.hasKey {
		return "", &Error{Kind: KindAuth, Message: "API key is not configured", Model: model, Cause: ErrNoCredential}
	}

	msg := c.buildMessage(p)
	req := openai.ChatCompletionRequest{
		Model:    model,
		Messages: []openai.ChatCompletionMessage{msg},
	}
	if c.maxTokens > 0 {
		req.MaxTokens = c.maxTokens
	}

	c.logger.Debug("LLM request",
		"model", model,
		"prompt_len", len(p.Text()),
		"images", len(p.Images()))

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		llmErr := ClassifyError(err, model)
		c.logger.Error("LLM request failed",
			"model", model,
			"kind", llmErr.Kind,
			"elapsed", time.Since(start),
			logger.Err(err))
		return "", llmErr
	}

	if len(resp.Choices) == 0 {
		return "", &Error{Kind: KindProvider, Message: "model returned no choices", Model: model}
	}
	content := resp.Choices[0].Message.Content
	if strings.TrimSpace(content) == "" {
		return "", &Error{
			Kind:    KindProvider,
			Message: fmt.Sprintf("model returned an empty reply (finish reason %q)", resp.Choices[0].FinishReason),
			Model:   model,
		}
	}

	c.logger.Info("LLM request completed",
		"model", model,
		"prompt_tokens", resp.Usage.PromptTokens,
		"completion_tokens", resp.Usage.CompletionTokens,
		"elapsed", time.Since(start))

	return content, nil
}

func (c *OpenAIClient) buildMessage(p prompt.Rendered) openai.ChatCompletionMessage {
	parts := make([]openai.ChatMessagePart, 0, len(p.Parts))
	for _, part := range p.Parts {
		switch part.Type {
		case prompt.PartText:
			parts = append(parts, openai.ChatMessagePart{Type: openai.ChatMessagePartTypeText, Text: part.Text})
		case prompt.PartImage:
			dataURL, err := c.dataURL(part.ImageRef)
			if err != nil {
				c.logger.Warn("skipping unreadable image", "ref", part.ImageRef, logger.Err(err))
				continue
			}
			parts = append(parts, openai.ChatMessagePart{
				Type:     openai.ChatMessagePartTypeImageURL,
				ImageURL: &openai.ChatMessageImageURL{URL: dataURL, Detail: openai.ImageURLDetailAuto},
			})
		}
	}

	// Plain text goes out as a string; some compatible endpoints reject
	// content arrays without images.
	if len(parts) == 0 {
		return openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: ""}
	}
	if len(parts) == 1 && parts[0].Type == openai.ChatMessagePartTypeText {
		return openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: parts[0].Text}
	}
	return openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, MultiContent: parts}
}

func (c *OpenAIClient) dataURL(ref string) (string, error) {
	if c.images == nil {
		return "", fmt.Errorf("no image loader configured")
	}
	data, mimeType, err := c.images.Load(ref)
	if err != nil {
		return "", err
	}
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}
