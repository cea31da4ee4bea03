package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedProvider struct {
	reply   string
	err     error
	history []Message
	options *Options
}

func (s *scriptedProvider) Chat(_ context.Context, history []Message, opts ...Option) (Message, error) {
	s.history = history
	s.options = ApplyOptions(Options{}, opts...)
	if s.err != nil {
		return Message{}, s.err
	}
	return Message{Role: RoleAssistant, Content: s.reply}, nil
}

type queryShape struct {
	SearchQuery string `json:"search_query" validate:"required"`
}

func TestGenerateStructured(t *testing.T) {
	tests := []struct {
		name    string
		reply   string
		want    string
		wantErr error
	}{
		{name: "plain json", reply: `{"search_query": "noise control by-law"}`, want: "noise control by-law"},
		{name: "json wrapped in prose", reply: "Sure:\n```json\n{\"search_query\": \"street trading\"}\n```", want: "street trading"},
		{name: "missing field", reply: `{"query": "x"}`, wantErr: ErrInvalidStructuredOutput},
		{name: "empty field", reply: `{"search_query": ""}`, wantErr: ErrInvalidStructuredOutput},
		{name: "not json", reply: "I cannot help with that", wantErr: ErrInvalidStructuredOutput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &scriptedProvider{reply: tt.reply}
			out, err := GenerateStructured[queryShape](context.Background(), p, []Message{
				{Role: RoleSystem, Content: "Generate a query."},
				{Role: RoleUser, Content: "question"},
			}, `{"search_query": "..."}`)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, out.SearchQuery)
			assert.True(t, p.options.JSONMode)
		})
	}
}

func TestGenerateStructuredAddsSchemaHintToSystemMessage(t *testing.T) {
	p := &scriptedProvider{reply: `{"search_query": "q"}`}
	_, err := GenerateStructured[queryShape](context.Background(), p, []Message{
		{Role: RoleSystem, Content: "Generate a query.\n"},
		{Role: RoleUser, Content: "question"},
	}, `{"search_query": "..."}`)
	require.NoError(t, err)

	require.Len(t, p.history, 2)
	assert.Equal(t, RoleSystem, p.history[0].Role)
	assert.Contains(t, p.history[0].Content, "Generate a query.\n\nRespond with ONLY valid JSON")
	assert.Equal(t, "question", p.history[1].Content)
}

func TestGenerateStructuredWithoutSystemMessage(t *testing.T) {
	p := &scriptedProvider{reply: `{"search_query": "q"}`}
	_, err := GenerateStructured[queryShape](context.Background(), p, []Message{
		{Role: RoleUser, Content: "question"},
	}, `{"search_query": "..."}`)
	require.NoError(t, err)

	require.Len(t, p.history, 2)
	assert.Equal(t, RoleSystem, p.history[0].Role)
}

func TestGenerateStructuredPropagatesProviderError(t *testing.T) {
	upstream := errors.New("upstream timeout")
	p := &scriptedProvider{err: upstream}
	_, err := GenerateStructured[queryShape](context.Background(), p, nil, "{}")
	assert.ErrorIs(t, err, upstream)
	assert.NotErrorIs(t, err, ErrInvalidStructuredOutput)
}
