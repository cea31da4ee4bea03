package response

import (
	"context"
	"fmt"
	"strings"

	"kb-agent/internal/pkg/logger"
	"kb-agent/pkg/llm"
)

const DefaultJurisdiction = "Cape Town, South Africa"

const contextPreamble = `Use the following legal document portions as context to answer the user's question.
When answering, refer to the document's title and section numbers where relevant.`

// Generator produces the grounded answer from the grouped document context.
type Generator struct {
	llmProvider  llm.LLMProvider
	jurisdiction string
	logger       logger.ILogger
}

func NewGenerator(llmProvider llm.LLMProvider, jurisdiction string, log logger.ILogger) *Generator {
	if jurisdiction == "" {
		jurisdiction = DefaultJurisdiction
	}
	return &Generator{
		llmProvider:  llmProvider,
		jurisdiction: jurisdiction,
		logger:       log,
	}
}

// Answer makes exactly one chat call, even when portions is empty.
func (g *Generator) Answer(ctx context.Context, question string, portions []string) (llm.Message, error) {
	g.logger.Info("GENERATION", "Generating answer from grounded context", map[string]interface{}{
		"documents": len(portions),
	})

	reply, err := g.llmProvider.Chat(ctx, g.BuildMessages(question, portions))
	if err != nil {
		return llm.Message{}, fmt.Errorf("answer generation failed: %w", err)
	}
	if reply.Role == "" {
		reply.Role = llm.RoleAssistant
	}

	return reply, nil
}

// BuildMessages assembles the system instruction, the document context and
// the final instruction repeating the question.
func (g *Generator) BuildMessages(question string, portions []string) []llm.Message {
	return []llm.Message{
		{Role: llm.RoleSystem, Content: g.systemPrompt()},
		{Role: llm.RoleUser, Content: contextPreamble + "\n\n" + strings.Join(portions, "\n\n")},
		{Role: llm.RoleUser, Content: fmt.Sprintf("Answer the user's legal research question: %s", question)},
	}
}

func (g *Generator) systemPrompt() string {
	var prompt strings.Builder
	prompt.WriteString("You are a legal research assistant who helps users find relevant legal information based on their\n")
	prompt.WriteString("queries. Only reply with information provided here, not from your background knowledge.\n\n")
	prompt.WriteString(fmt.Sprintf("You are answering questions specifically about %s.\n", g.jurisdiction))
	return prompt.String()
}
