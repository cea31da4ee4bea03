package planner

import (
	"context"
	"fmt"

	"kb-agent/internal/pkg/logger"
	"kb-agent/pkg/llm"
	"kb-agent/pkg/rag/state"
)

const systemPrompt = `Generate a concise search query for a semantic search on a document corpus to find legislation to help answer the
following legal research question. Your search query should focus on terms and phrases that are likely
to appear in relevant legislation. Avoid including unnecessary words or phrases, and don't use any boolean operators
or special search syntax.
`

const schemaHint = `{"search_query": "the search query"}`

// SearchQuery is the structured reply expected from the model.
type SearchQuery struct {
	SearchQuery string `json:"search_query" validate:"required"`
}

// Planner derives the semantic search query for a run.
type Planner struct {
	llmProvider llm.LLMProvider
	logger      logger.ILogger
}

func NewPlanner(llmProvider llm.LLMProvider, log logger.ILogger) *Planner {
	return &Planner{llmProvider: llmProvider, logger: log}
}

// Plan fills Question (from the last message) and SearchQuery when they are
// absent. An existing search query is kept as-is and no model call is made.
// Generation failures are returned unretried.
func (p *Planner) Plan(ctx context.Context, s *state.State) (state.Update, error) {
	update := state.Update{Stage: state.StageQueryPlanned}

	question, err := s.ResolveQuestion()
	if err != nil {
		return state.Update{}, err
	}
	if !s.HasQuestion() {
		update.Question = question
	}

	if s.HasSearchQuery() {
		p.logger.Debug("PLANNER", "Search query already set, skipping generation", map[string]interface{}{
			"search_query": s.SearchQuery,
		})
		return update, nil
	}

	p.logger.Info("PLANNER", "Generating search query", nil)

	out, err := llm.GenerateStructured[SearchQuery](ctx, p.llmProvider, []llm.Message{
		{Role: llm.RoleSystem, Content: systemPrompt},
		{Role: llm.RoleUser, Content: fmt.Sprintf("Legal research question: %s\nSearch query:", question)},
	}, schemaHint)
	if err != nil {
		return state.Update{}, fmt.Errorf("search query generation failed: %w", err)
	}

	update.SearchQuery = out.SearchQuery

	p.logger.Info("PLANNER", "Generated search query", map[string]interface{}{
		"search_query": out.SearchQuery,
	})

	return update, nil
}
