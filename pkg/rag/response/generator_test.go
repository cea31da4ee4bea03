package response

import (
	"context"
	"errors"
	"testing"

	"kb-agent/internal/pkg/logger"
	"kb-agent/pkg/llm"
	"kb-agent/pkg/llm/llmtest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnswerBuildsGroundedPrompt(t *testing.T) {
	model := &llmtest.Scripted{Replies: []string{"Section 4 of the Animal By-law limits poultry."}}
	g := NewGenerator(model, "", logger.NewNopLogger())

	reply, err := g.Answer(context.Background(), "Can I keep chickens?", []string{"# Document 1\nA", "# Document 2\nB"})
	require.NoError(t, err)
	assert.Equal(t, llm.Message{Role: llm.RoleAssistant, Content: "Section 4 of the Animal By-law limits poultry."}, reply)

	calls := model.Calls()
	require.Len(t, calls, 1)
	history := calls[0].History
	require.Len(t, history, 3)

	assert.Equal(t, llm.RoleSystem, history[0].Role)
	assert.Contains(t, history[0].Content, "not from your background knowledge")
	assert.Contains(t, history[0].Content, "specifically about Cape Town, South Africa.")

	assert.Equal(t, llm.RoleUser, history[1].Role)
	assert.Equal(t, contextPreamble+"\n\n# Document 1\nA\n\n# Document 2\nB", history[1].Content)

	assert.Equal(t, llm.RoleUser, history[2].Role)
	assert.Equal(t, "Answer the user's legal research question: Can I keep chickens?", history[2].Content)
}

func TestAnswerWithEmptyContextStillCallsOnce(t *testing.T) {
	model := &llmtest.Scripted{Replies: []string{"I could not find relevant legislation."}}
	g := NewGenerator(model, "", logger.NewNopLogger())

	reply, err := g.Answer(context.Background(), "q", []string{})
	require.NoError(t, err)
	assert.Equal(t, llm.RoleAssistant, reply.Role)
	require.Len(t, model.Calls(), 1)
	assert.Equal(t, contextPreamble+"\n\n", model.Calls()[0].History[1].Content)
}

func TestAnswerCustomJurisdiction(t *testing.T) {
	g := NewGenerator(&llmtest.Scripted{}, "eThekwini, South Africa", logger.NewNopLogger())
	msgs := g.BuildMessages("q", nil)
	assert.Contains(t, msgs[0].Content, "specifically about eThekwini, South Africa.")
}

func TestAnswerPropagatesError(t *testing.T) {
	upstream := errors.New("rate limited")
	model := &llmtest.Scripted{Err: upstream}
	g := NewGenerator(model, "", logger.NewNopLogger())

	_, err := g.Answer(context.Background(), "q", nil)
	assert.ErrorIs(t, err, upstream)
	assert.Len(t, model.Calls(), 1)
}
