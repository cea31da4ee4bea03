package mapper

import (
	"kb-agent/internal/dto"
	"kb-agent/pkg/llm"
	"kb-agent/pkg/rag/state"
)

type RunMapper struct{}

func NewRunMapper() *RunMapper {
	return &RunMapper{}
}

// StateToResponse flattens a run for the API. Answer is only set once the
// run has reached its terminal assistant message.
func (m *RunMapper) StateToResponse(s *state.State) *dto.RunResponse {
	if s == nil {
		return nil
	}

	messages := make([]dto.MessageDTO, 0, len(s.Messages))
	for _, msg := range s.Messages {
		messages = append(messages, dto.MessageDTO{Role: msg.Role, Content: msg.Content})
	}

	res := &dto.RunResponse{
		RunId:            s.ID,
		Stage:            string(s.Stage),
		Question:         s.Question,
		SearchQuery:      s.SearchQuery,
		DocumentCount:    len(s.DocumentPortions),
		DocumentPortions: s.DocumentPortions,
		Messages:         messages,
	}

	if s.IsAnswered() {
		if last, ok := s.LastMessage(); ok && last.Role == llm.RoleAssistant {
			res.Answer = last.Content
		}
	}

	return res
}
