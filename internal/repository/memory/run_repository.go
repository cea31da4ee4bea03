package memory

import (
	"context"
	"time"

	"kb-agent/internal/repository/contract"
	"kb-agent/pkg/rag/state"

	"github.com/patrickmn/go-cache"
)

type RunRepository struct {
	cache *cache.Cache
}

var _ contract.RunRepository = &RunRepository{}

// NewRunRepository keeps runs for ttl and purges expired ones every ttl/6.
func NewRunRepository(ttl time.Duration) *RunRepository {
	return &RunRepository{
		cache: cache.New(ttl, ttl/6),
	}
}

// Save stores a copy so later changes to the live run are not visible
// through the repository.
func (r *RunRepository) Save(_ context.Context, run *state.State) error {
	r.cache.Set(run.ID, run.Clone(), cache.DefaultExpiration)
	return nil
}

func (r *RunRepository) FindOne(_ context.Context, runID string) (*state.State, error) {
	if x, found := r.cache.Get(runID); found {
		return x.(*state.State).Clone(), nil
	}
	return nil, contract.ErrRunNotFound
}

func (r *RunRepository) Delete(_ context.Context, runID string) error {
	r.cache.Delete(runID)
	return nil
}
