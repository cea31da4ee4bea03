package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"kb-agent/internal/repository/contract"
	"kb-agent/pkg/rag/state"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "kb_agent:run:"

type RunRepository struct {
	rdb *redis.Client
	ttl time.Duration
}

var _ contract.RunRepository = &RunRepository{}

func NewRunRepository(rdb *redis.Client, ttl time.Duration) *RunRepository {
	return &RunRepository{rdb: rdb, ttl: ttl}
}

func key(runID string) string {
	return keyPrefix + runID
}

func (r *RunRepository) Save(ctx context.Context, run *state.State) error {
	data, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("failed to marshal run: %w", err)
	}
	if err := r.rdb.Set(ctx, key(run.ID), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save run %s: %w", run.ID, err)
	}
	return nil
}

func (r *RunRepository) FindOne(ctx context.Context, runID string) (*state.State, error) {
	data, err := r.rdb.Get(ctx, key(runID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, contract.ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load run %s: %w", runID, err)
	}

	var run state.State
	if err := json.Unmarshal(data, &run); err != nil {
		return nil, fmt.Errorf("failed to unmarshal run %s: %w", runID, err)
	}
	return &run, nil
}

func (r *RunRepository) Delete(ctx context.Context, runID string) error {
	return r.rdb.Del(ctx, key(runID)).Err()
}
