// Package llmtest provides a scripted llm.LLMProvider for tests.
package llmtest

import (
	"context"
	"errors"
	"sync"

	"kb-agent/pkg/llm"
)

var ErrScriptExhausted = errors.New("llmtest: no scripted response available")

// Call records one Chat invocation.
type Call struct {
	History []llm.Message
	Options llm.Options
}

// Scripted replies with Replies in order and records every call. If Err is
// set, every call fails with it.
type Scripted struct {
	Replies []string
	Err     error

	mu    sync.Mutex
	calls []Call
}

var _ llm.LLMProvider = &Scripted{}

func (s *Scripted) Chat(_ context.Context, history []llm.Message, opts ...llm.Option) (llm.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := len(s.calls)
	s.calls = append(s.calls, Call{
		History: append([]llm.Message(nil), history...),
		Options: *llm.ApplyOptions(llm.Options{}, opts...),
	})

	if s.Err != nil {
		return llm.Message{}, s.Err
	}
	if idx >= len(s.Replies) {
		return llm.Message{}, ErrScriptExhausted
	}
	return llm.Message{Role: llm.RoleAssistant, Content: s.Replies[idx]}, nil
}

func (s *Scripted) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}
