package bootstrap

import (
	"context"
	"fmt"

	"kb-agent/internal/config"
	"kb-agent/internal/controller"
	"kb-agent/internal/pkg/logger"
	"kb-agent/internal/repository/contract"
	"kb-agent/internal/repository/memory"
	redisRepo "kb-agent/internal/repository/redis"
	"kb-agent/internal/service"
	"kb-agent/pkg/events"
	"kb-agent/pkg/kb"
	"kb-agent/pkg/llm/factory"
	"kb-agent/pkg/rag/executor"
	"kb-agent/pkg/rag/planner"
	"kb-agent/pkg/rag/response"

	pktNats "kb-agent/pkg/nats"

	"github.com/redis/go-redis/v9"
)

type Container struct {
	// Controllers
	AskController controller.IAskController

	// Background Services (Exposed for main.go to run)
	ConsumerService service.IConsumerService

	// Exposed for the interactive CLI, which drives the pipeline directly.
	Pipeline *executor.PipelineExecutor
	Logger   logger.ILogger

	closers []func() error
}

func NewContainer(cfg *config.Config, sysLogger logger.ILogger) (*Container, error) {
	c := &Container{Logger: sysLogger}

	// 1. Generation backend
	llmProvider, err := factory.NewLLMProvider(cfg.Ai.Model, factory.Credentials{
		OllamaBaseURL:   cfg.Ai.OllamaBaseURL,
		AnthropicAPIKey: cfg.Ai.AnthropicAPIKey,
		OpenAIAPIKey:    cfg.Ai.OpenAIAPIKey,
		OpenAIBaseURL:   cfg.Ai.OpenAIBaseURL,
		HuggingFaceKey:  cfg.Ai.HuggingFaceKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize LLM provider: %w", err)
	}
	sysLogger.Info("BOOTSTRAP", "Using LLM provider", map[string]interface{}{"model": cfg.Ai.Model})

	// 2. Knowledge base
	kbClient := kb.NewClient(kb.Config{
		BaseURL:  cfg.KB.BaseURL,
		KBName:   cfg.KB.Name,
		APIToken: cfg.KB.APIToken,
		Place:    cfg.KB.FRBRPlace,
	}, sysLogger)

	// 3. Run store
	runs, err := c.newRunRepository(cfg, sysLogger)
	if err != nil {
		return nil, err
	}

	// 4. Event bus
	bus := events.NewDefaultBus()
	c.closers = append(c.closers, bus.Close)
	publishers := events.MultiPublisher{bus}

	if cfg.Infra.NatsURL != "" {
		natsPub, err := pktNats.NewPublisher(cfg.Infra.NatsURL)
		if err != nil {
			sysLogger.Warn("BOOTSTRAP", "Failed to connect to NATS publisher, continuing without it", map[string]interface{}{
				"error": err.Error(),
			})
		} else {
			publishers = append(publishers, natsPub)
			c.closers = append(c.closers, func() error { natsPub.Close(); return nil })
		}
	}

	// 5. Pipeline
	c.Pipeline = executor.NewPipelineExecutor(
		planner.NewPlanner(llmProvider, sysLogger),
		kbClient,
		response.NewGenerator(llmProvider, cfg.KB.Jurisdiction, sysLogger),
		sysLogger,
		executor.WithCheckpointer(runs),
		executor.WithPublisher(publishers),
	)

	// 6. Services & controllers
	askService := service.NewAskService(runs, c.Pipeline, sysLogger)
	c.ConsumerService = service.NewConsumerService(bus, sysLogger)
	c.AskController = controller.NewAskController(askService)

	return c, nil
}

func (c *Container) newRunRepository(cfg *config.Config, sysLogger logger.ILogger) (contract.RunRepository, error) {
	if cfg.Infra.RunStore != "redis" {
		return memory.NewRunRepository(cfg.Infra.RunTTL), nil
	}

	opt, err := redis.ParseURL(cfg.Infra.RedisURL)
	if err != nil {
		sysLogger.Warn("BOOTSTRAP", "Failed to parse Redis URL, using direct Addr", map[string]interface{}{
			"error": err.Error(),
		})
		opt = &redis.Options{Addr: cfg.Infra.RedisURL}
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	c.closers = append(c.closers, rdb.Close)

	sysLogger.Info("BOOTSTRAP", "Using Redis run store", nil)
	return redisRepo.NewRunRepository(rdb, cfg.Infra.RunTTL), nil
}

// Close releases the bus and any external connections.
func (c *Container) Close() error {
	var firstErr error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
