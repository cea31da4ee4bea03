package memory

import (
	"context"
	"testing"
	"time"

	"kb-agent/internal/repository/contract"
	"kb-agent/pkg/rag/state"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunRepositoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := NewRunRepository(time.Hour)

	run := state.New("What are the rules for street trading?")
	require.NoError(t, run.Apply(state.Update{SearchQuery: "street trading", Stage: state.StageQueryPlanned}))
	require.NoError(t, repo.Save(ctx, run))

	got, err := repo.FindOne(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, run, got)

	require.NoError(t, repo.Delete(ctx, run.ID))
	_, err = repo.FindOne(ctx, run.ID)
	assert.ErrorIs(t, err, contract.ErrRunNotFound)
}

func TestRunRepositoryIsolatesStoredCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewRunRepository(time.Hour)

	run := state.New("q")
	require.NoError(t, repo.Save(ctx, run))

	run.Messages[0].Content = "mutated after save"
	got, err := repo.FindOne(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, "q", got.Messages[0].Content)

	got.SearchQuery = "mutated after load"
	again, err := repo.FindOne(ctx, run.ID)
	require.NoError(t, err)
	assert.Empty(t, again.SearchQuery)
}

func TestRunRepositoryExpires(t *testing.T) {
	ctx := context.Background()
	repo := NewRunRepository(20 * time.Millisecond)

	run := state.New("q")
	require.NoError(t, repo.Save(ctx, run))

	assert.Eventually(t, func() bool {
		_, err := repo.FindOne(ctx, run.ID)
		return err != nil
	}, time.Second, 10*time.Millisecond)
}
