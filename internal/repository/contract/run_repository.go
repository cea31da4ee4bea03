package contract

import (
	"context"
	"errors"

	"kb-agent/pkg/rag/state"
)

var ErrRunNotFound = errors.New("run not found")

// RunRepository stores pipeline run checkpoints keyed by run ID.
type RunRepository interface {
	Save(ctx context.Context, run *state.State) error
	FindOne(ctx context.Context, runID string) (*state.State, error)
	Delete(ctx context.Context, runID string) error
}
