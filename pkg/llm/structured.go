package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrInvalidStructuredOutput is returned when a model reply cannot be
// decoded into the requested shape or fails validation.
var ErrInvalidStructuredOutput = errors.New("invalid structured output")

var validate = validator.New()

// GenerateStructured asks the model for a JSON object matching T, decodes it
// and validates it against T's `validate` tags. The schema hint is appended
// to the system message so any chat backend can serve the call.
func GenerateStructured[T any](
	ctx context.Context,
	provider LLMProvider,
	history []Message,
	schemaHint string,
	opts ...Option,
) (*T, error) {
	request := withSchemaHint(history, schemaHint)

	reply, err := provider.Chat(ctx, request, append(opts, WithJSONMode())...)
	if err != nil {
		return nil, fmt.Errorf("llm generation failed: %w", err)
	}

	var out T
	if err := json.Unmarshal([]byte(extractJSON(reply.Content)), &out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidStructuredOutput, err)
	}

	if err := validate.Struct(out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidStructuredOutput, err)
	}

	return &out, nil
}

func withSchemaHint(history []Message, schemaHint string) []Message {
	instruction := "Respond with ONLY valid JSON in this exact structure:\n" + schemaHint

	out := make([]Message, 0, len(history)+1)
	hinted := false
	for _, msg := range history {
		if msg.Role == RoleSystem && !hinted {
			msg.Content = strings.TrimRight(msg.Content, "\n") + "\n\n" + instruction
			hinted = true
		}
		out = append(out, msg)
	}
	if !hinted {
		out = append([]Message{{Role: RoleSystem, Content: instruction}}, out...)
	}
	return out
}

// extractJSON isolates JSON content from response
func extractJSON(response string) string {
	startIdx := strings.Index(response, "{")
	endIdx := strings.LastIndex(response, "}")

	if startIdx == -1 || endIdx == -1 || endIdx <= startIdx {
		return response
	}

	return response[startIdx : endIdx+1]
}
