package service

import (
	"context"
	"fmt"

	"kb-agent/internal/dto"
	"kb-agent/internal/mapper"
	"kb-agent/internal/pkg/logger"
	"kb-agent/internal/repository/contract"
	"kb-agent/pkg/rag/state"

	"github.com/gofiber/fiber/v2"
)

// PipelineRunner executes a run to completion, resuming at its first missing stage.
type PipelineRunner interface {
	Execute(ctx context.Context, in *state.State) (*state.State, error)
}

// PipelineError is returned when a run aborts in one of its stages. The
// partial run stays stored under RunId and can be resumed.
type PipelineError struct {
	RunId string
	Err   error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("run %s failed: %v", e.RunId, e.Err)
}

func (e *PipelineError) Unwrap() error { return e.Err }

func (e *PipelineError) HTTPStatus() int { return fiber.StatusBadGateway }

type IAskService interface {
	Ask(ctx context.Context, request *dto.AskRequest) (*dto.RunResponse, error)
	GetRun(ctx context.Context, runId string) (*dto.RunResponse, error)
}

type askService struct {
	runs     contract.RunRepository
	pipeline PipelineRunner
	mapper   *mapper.RunMapper
	logger   logger.ILogger
}

func NewAskService(runs contract.RunRepository, pipeline PipelineRunner, log logger.ILogger) IAskService {
	return &askService{
		runs:     runs,
		pipeline: pipeline,
		mapper:   mapper.NewRunMapper(),
		logger:   log,
	}
}

// Ask starts a new run for request.Question, or resumes the stored run named
// by request.RunId. When resuming, the question already recorded on the run
// is used and request.Question is ignored.
func (s *askService) Ask(ctx context.Context, request *dto.AskRequest) (*dto.RunResponse, error) {
	run, err := s.loadOrStart(ctx, request)
	if err != nil {
		return nil, err
	}

	out, err := s.pipeline.Execute(ctx, run)
	if err != nil {
		return nil, &PipelineError{RunId: run.ID, Err: err}
	}

	if err := s.runs.Save(ctx, out); err != nil {
		s.logger.Warn("ASK", "Failed to store answered run", map[string]interface{}{
			"run_id": out.ID,
			"error":  err.Error(),
		})
	}

	s.logger.Info("ASK", "Run answered", map[string]interface{}{
		"run_id":    out.ID,
		"documents": len(out.DocumentPortions),
	})

	return s.mapper.StateToResponse(out), nil
}

func (s *askService) loadOrStart(ctx context.Context, request *dto.AskRequest) (*state.State, error) {
	if request.RunId != "" {
		run, err := s.runs.FindOne(ctx, request.RunId)
		if err != nil {
			return nil, err
		}
		s.logger.Info("ASK", "Resuming run", map[string]interface{}{
			"run_id": run.ID,
			"stage":  string(run.Stage),
		})
		return run, nil
	}

	run := state.New(request.Question)
	if err := s.runs.Save(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to store new run: %w", err)
	}
	s.logger.Info("ASK", "Started run", map[string]interface{}{"run_id": run.ID})
	return run, nil
}

func (s *askService) GetRun(ctx context.Context, runId string) (*dto.RunResponse, error) {
	run, err := s.runs.FindOne(ctx, runId)
	if err != nil {
		return nil, err
	}
	return s.mapper.StateToResponse(run), nil
}
