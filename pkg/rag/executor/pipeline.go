package executor

import (
	"context"
	"fmt"

	"kb-agent/internal/pkg/logger"
	"kb-agent/pkg/events"
	"kb-agent/pkg/kb"
	"kb-agent/pkg/llm"
	"kb-agent/pkg/rag/grouper"
	"kb-agent/pkg/rag/planner"
	"kb-agent/pkg/rag/response"
	"kb-agent/pkg/rag/state"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("kb-agent/pipeline")

// Checkpointer persists a run after each completed stage so a later call can
// resume it.
type Checkpointer interface {
	Save(ctx context.Context, s *state.State) error
}

// PipelineExecutor runs the three-stage pipeline
// Stage 1: Query planning → Stage 2: Retrieval + grouping → Stage 3: Answer
type PipelineExecutor struct {
	planner      *planner.Planner
	retriever    kb.Retriever
	generator    *response.Generator
	checkpointer Checkpointer
	publisher    events.Publisher
	logger       logger.ILogger
}

type Option func(*PipelineExecutor)

func WithCheckpointer(c Checkpointer) Option {
	return func(p *PipelineExecutor) { p.checkpointer = c }
}

func WithPublisher(pub events.Publisher) Option {
	return func(p *PipelineExecutor) { p.publisher = pub }
}

func NewPipelineExecutor(
	planner *planner.Planner,
	retriever kb.Retriever,
	generator *response.Generator,
	log logger.ILogger,
	opts ...Option,
) *PipelineExecutor {
	p := &PipelineExecutor{
		planner:   planner,
		retriever: retriever,
		generator: generator,
		logger:    log,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

type stage struct {
	name state.Stage
	run  func(ctx context.Context, s *state.State) (update state.Update, skipped bool, err error)
}

func (p *PipelineExecutor) stages() []stage {
	return []stage{
		{name: state.StageQueryPlanned, run: p.planQuery},
		{name: state.StageRetrievedAndGrouped, run: p.retrieveAndGroup},
		{name: state.StageAnswered, run: p.answer},
	}
}

// Execute runs the pipeline on a copy of in and returns it. Stages whose
// output is already present are skipped, so a partially completed state
// resumes at its first missing stage. On failure the partially advanced
// copy is returned together with the error; no answer is appended.
func (p *PipelineExecutor) Execute(ctx context.Context, in *state.State) (*state.State, error) {
	s := in.Clone()

	if s.IsAnswered() {
		p.logger.Debug("PIPELINE", "Run already answered, nothing to do", map[string]interface{}{"run_id": s.ID})
		return s, nil
	}

	p.logger.Info("PIPELINE", "Starting run", map[string]interface{}{
		"run_id": s.ID,
		"stage":  string(s.Stage),
	})

	for _, st := range p.stages() {
		if err := p.runStage(ctx, s, st); err != nil {
			p.logger.Error("PIPELINE", "Run aborted", map[string]interface{}{
				"run_id": s.ID,
				"stage":  string(st.name),
				"error":  err.Error(),
			})
			p.publish(ctx, events.NewRunFailed(s.ID, string(st.name), err))
			return s, err
		}
	}

	p.logger.Info("PIPELINE", "Run answered", map[string]interface{}{"run_id": s.ID})
	return s, nil
}

func (p *PipelineExecutor) runStage(ctx context.Context, s *state.State, st stage) error {
	ctx, span := tracer.Start(ctx, "pipeline."+string(st.name))
	defer span.End()
	span.SetAttributes(attribute.String("run.id", s.ID))

	update, skipped, err := st.run(ctx, s)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	span.SetAttributes(attribute.Bool("stage.skipped", skipped))

	update.Stage = st.name
	if err := s.Apply(update); err != nil {
		return fmt.Errorf("apply %s output: %w", st.name, err)
	}

	p.logger.Debug("PIPELINE", "Stage completed", map[string]interface{}{
		"run_id":  s.ID,
		"stage":   string(st.name),
		"skipped": skipped,
	})

	if p.checkpointer != nil {
		if err := p.checkpointer.Save(ctx, s); err != nil {
			p.logger.Warn("PIPELINE", "Checkpoint failed", map[string]interface{}{
				"run_id": s.ID,
				"stage":  string(st.name),
				"error":  err.Error(),
			})
		}
	}

	p.publish(ctx, events.NewRunStageCompleted(s.ID, string(st.name), skipped))
	return nil
}

func (p *PipelineExecutor) planQuery(ctx context.Context, s *state.State) (state.Update, bool, error) {
	skipped := s.HasSearchQuery()
	update, err := p.planner.Plan(ctx, s)
	return update, skipped, err
}

func (p *PipelineExecutor) retrieveAndGroup(ctx context.Context, s *state.State) (state.Update, bool, error) {
	if s.HasDocumentPortions() {
		return state.Update{}, true, nil
	}

	hits, err := p.retriever.Retrieve(ctx, s.SearchQuery)
	if err != nil {
		return state.Update{}, false, fmt.Errorf("retrieval failed: %w", err)
	}

	portions := grouper.Group(hits)
	p.logger.Info("GROUPER", "Grouped hits into documents", map[string]interface{}{
		"hits":      len(hits),
		"documents": len(portions),
	})

	return state.Update{DocumentPortions: portions}, false, nil
}

func (p *PipelineExecutor) answer(ctx context.Context, s *state.State) (state.Update, bool, error) {
	question, err := s.ResolveQuestion()
	if err != nil {
		return state.Update{}, false, err
	}

	reply, err := p.generator.Answer(ctx, question, s.DocumentPortions)
	if err != nil {
		return state.Update{}, false, err
	}

	return state.Update{Messages: []llm.Message{reply}}, false, nil
}

func (p *PipelineExecutor) publish(ctx context.Context, event events.Event) {
	if p.publisher == nil {
		return
	}
	if err := p.publisher.Publish(ctx, event); err != nil {
		p.logger.Warn("EVENTS", "Failed to publish run event", map[string]interface{}{
			"type":  event.EventType(),
			"error": err.Error(),
		})
	}
}
