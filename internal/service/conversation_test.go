package service_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/socratic-tutor/backend/internal/domain/conversation"
	"github.com/socratic-tutor/backend/internal/infrastructure/config"
	"github.com/socratic-tutor/backend/internal/llm"
	"github.com/socratic-tutor/backend/internal/prompt"
	"github.com/socratic-tutor/backend/internal/service"
	"github.com/socratic-tutor/backend/internal/store"
)

func TestCreate_FreezesPromptTemplate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.settings.set(func(s *config.Settings) { s.PromptTemplate = "A {{task}}\n{{dialogue_turns}}" })

	c, err := f.conversations.Create(ctx, service.CreateRequest{Task: "2+2"})
	require.NoError(t, err)
	assert.Equal(t, "A {{task}}\n{{dialogue_turns}}", c.PromptTemplate)

	f.settings.set(func(s *config.Settings) { s.PromptTemplate = "B" })

	_, err = f.conversations.SendTurn(ctx, c.ID, "hi")
	require.NoError(t, err)

	require.Equal(t, 1, f.gateway.Calls())
	assert.Equal(t, "A 2+2\nУченик: hi", f.gateway.Prompts[0].Text())

	got, err := f.conversations.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "A {{task}}\n{{dialogue_turns}}", got.PromptTemplate)
}

func TestCreate_StoresImages(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	c, err := f.conversations.Create(ctx, service.CreateRequest{
		Task:          "draw",
		TaskImage:     pngFile("задача.png"),
		SolutionImage: pngFile("solution.jpg"),
	})
	require.NoError(t, err)

	assert.Equal(t, c.ID+"/task.png", c.TaskImage)
	assert.Equal(t, "задача.png", c.TaskImageOriginalName)
	assert.Equal(t, c.ID+"/solution.png", c.SolutionImage)
	assert.Equal(t, "solution.jpg", c.SolutionImageOriginalName)

	data, mime, err := f.uploads.Load(c.TaskImage)
	require.NoError(t, err)
	assert.Equal(t, "image/png", mime)
	assert.Equal(t, pngHeader, data)
}

func TestCreate_RejectsNonImage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.conversations.Create(ctx, service.CreateRequest{
		TaskImage: &service.FileInput{Name: "notes.txt", Body: strings.NewReader("just text")},
	})
	require.Error(t, err)
	assert.True(t, service.IsValidation(err))

	list, err := f.conversations.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestCreate_RejectedUploadLeavesNoFiles(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.conversations.Create(ctx, service.CreateRequest{
		Task:          "draw",
		TaskImage:     pngFile("task.png"),
		SolutionImage: &service.FileInput{Name: "solution.txt", Body: strings.NewReader("not an image")},
	})
	require.Error(t, err)
	assert.True(t, service.IsValidation(err))

	list, err := f.conversations.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.Empty(t, f.storedFiles(t), "the task image saved before the rejection is removed")
}

func TestSendTurn_StoresBothTurns(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.gateway.Reply = "What do you know?"

	c, err := f.conversations.Create(ctx, service.CreateRequest{Task: "x+1=2"})
	require.NoError(t, err)

	res, err := f.conversations.SendTurn(ctx, c.ID, "  I am stuck  ")
	require.NoError(t, err)
	assert.Equal(t, conversation.RoleUser, res.User.Role)
	assert.Equal(t, "I am stuck", res.User.Content)
	require.NotNil(t, res.Assistant)
	assert.Equal(t, "What do you know?", res.Assistant.Content)

	msgs, err := f.conversations.Messages(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, conversation.RoleUser, msgs[0].Role)
	assert.Equal(t, conversation.RoleAssistant, msgs[1].Role)
}

func TestSendTurn_EmptyMessage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	c, err := f.conversations.Create(ctx, service.CreateRequest{})
	require.NoError(t, err)

	_, err = f.conversations.SendTurn(ctx, c.ID, " \n\t")
	require.Error(t, err)
	assert.True(t, service.IsValidation(err))
	assert.Zero(t, f.gateway.Calls())

	msgs, err := f.conversations.Messages(ctx, c.ID)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestSendTurn_UnknownConversation(t *testing.T) {
	f := newFixture(t)

	_, err := f.conversations.SendTurn(context.Background(), "missing", "hello")
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.Zero(t, f.gateway.Calls())
}

func TestSendTurn_GenerationFailureKeepsUserTurn(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.gateway.GenerateFunc = func(context.Context, prompt.Rendered, string) (string, error) {
		return "", llm.NewError(llm.KindTransient, "upstream timed out", context.DeadlineExceeded)
	}

	c, err := f.conversations.Create(ctx, service.CreateRequest{})
	require.NoError(t, err)

	res, err := f.conversations.SendTurn(ctx, c.ID, "hello")
	require.Error(t, err)

	var genErr *service.GenerationError
	require.True(t, errors.As(err, &genErr))
	assert.Equal(t, c.ID, genErr.ConversationID)
	assert.Equal(t, "hello", genErr.UserTurn.Content)
	assert.True(t, llm.IsTransient(err))

	require.NotNil(t, res)
	assert.Nil(t, res.Assistant)
	assert.Equal(t, "hello", res.User.Content)

	msgs, err := f.conversations.Messages(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, conversation.RoleUser, msgs[0].Role)
}

func TestSendTurn_UsesConfiguredModel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var gotModel string
	f.gateway.GenerateFunc = func(_ context.Context, _ prompt.Rendered, model string) (string, error) {
		gotModel = model
		return "ok", nil
	}

	c, err := f.conversations.Create(ctx, service.CreateRequest{})
	require.NoError(t, err)

	_, err = f.conversations.SendTurn(ctx, c.ID, "one")
	require.NoError(t, err)
	assert.Equal(t, config.DefaultModel, gotModel)

	f.settings.set(func(s *config.Settings) { s.Model.Name = "other-model" })
	_, err = f.conversations.SendTurn(ctx, c.ID, "two")
	require.NoError(t, err)
	assert.Equal(t, "other-model", gotModel)
}

// Concurrent sends to one conversation must not interleave: every user turn
// is immediately followed by the reply generated for it.
func TestSendTurn_ConcurrentExchangesStayContiguous(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.settings.set(func(s *config.Settings) { s.PromptTemplate = "{{dialogue_turns}}" })
	f.gateway.GenerateFunc = func(_ context.Context, p prompt.Rendered, _ string) (string, error) {
		text := p.Text()
		last := text[strings.LastIndex(text, "Ученик: ")+len("Ученик: "):]
		return "re " + last, nil
	}

	c, err := f.conversations.Create(ctx, service.CreateRequest{})
	require.NoError(t, err)

	const n = 10
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := f.conversations.SendTurn(ctx, c.ID, fmt.Sprintf("m%d", i))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	msgs, err := f.conversations.Messages(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 2*n)
	for i := 0; i < len(msgs); i += 2 {
		assert.Equal(t, conversation.RoleUser, msgs[i].Role)
		assert.Equal(t, conversation.RoleAssistant, msgs[i+1].Role)
		assert.Equal(t, "re "+msgs[i].Content, msgs[i+1].Content)
	}
}

func TestList_ReturnsSummaries(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a, err := f.conversations.Create(ctx, service.CreateRequest{Task: "a"})
	require.NoError(t, err)
	_, err = f.conversations.SendTurn(ctx, a.ID, "first question")
	require.NoError(t, err)
	_, err = f.conversations.Create(ctx, service.CreateRequest{Task: "b"})
	require.NoError(t, err)

	list, err := f.conversations.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)

	var found bool
	for _, s := range list {
		if s.ID == a.ID {
			found = true
			assert.Equal(t, "first question", s.Snippet)
		}
	}
	assert.True(t, found)
}
