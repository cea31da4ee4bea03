package nats

import (
	"testing"

	"kb-agent/pkg/events"

	"github.com/stretchr/testify/assert"
)

func TestSubject(t *testing.T) {
	assert.Equal(t, "kb_agent.events.run_stage_completed", Subject(events.TypeRunStageCompleted))
	assert.Equal(t, "kb_agent.events.run_failed", Subject(events.TypeRunFailed))
}

func TestEventTypeInvertsSubject(t *testing.T) {
	for _, eventType := range []string{events.TypeRunStageCompleted, events.TypeRunFailed} {
		assert.Equal(t, eventType, EventType(Subject(eventType)))
	}
}
