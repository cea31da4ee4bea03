package events

import (
	"context"
	"errors"
	"time"
)

const (
	TypeRunStageCompleted = "RUN_STAGE_COMPLETED"
	TypeRunFailed         = "RUN_FAILED"
)

// NewRunStageCompleted reports that a run reached stage; skipped is true when
// the stage's output was already present and no work was done.
func NewRunStageCompleted(runID, stage string, skipped bool) BaseEvent {
	return BaseEvent{
		Type: TypeRunStageCompleted,
		Data: map[string]interface{}{
			"run_id":  runID,
			"stage":   stage,
			"skipped": skipped,
		},
		OccurredAt: time.Now().UTC(),
	}
}

func NewRunFailed(runID, stage string, err error) BaseEvent {
	return BaseEvent{
		Type: TypeRunFailed,
		Data: map[string]interface{}{
			"run_id": runID,
			"stage":  stage,
			"error":  err.Error(),
		},
		OccurredAt: time.Now().UTC(),
	}
}

// MultiPublisher fans an event out to every publisher and joins the errors.
type MultiPublisher []Publisher

func (m MultiPublisher) Publish(ctx context.Context, event Event) error {
	var errs []error
	for _, p := range m {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
