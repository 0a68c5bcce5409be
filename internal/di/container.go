// Package di assembles the application object graph. Construction is
// explicit; each dependency is built once and handed down.
package di

import (
	"context"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"coursegraph-backend/internal/config"
	"coursegraph-backend/internal/interfaces/http/rest"
	"coursegraph-backend/internal/observability"
	"coursegraph-backend/internal/repository"
	"coursegraph-backend/internal/repository/decorators"
	dynamostore "coursegraph-backend/internal/repository/dynamodb"
	"coursegraph-backend/internal/repository/memory"
	graphservice "coursegraph-backend/internal/service/graph"
	"coursegraph-backend/internal/service/pathfinding"
	"coursegraph-backend/internal/service/prereq"
)

// Container holds the assembled application.
type Container struct {
	Config    *config.Config
	Logger    *zap.Logger
	Store     repository.GraphStore
	Collector *observability.Collector

	GraphService *graphservice.Service
	PathService  *pathfinding.Service
	PrereqSvc    *prereq.Service

	Mux *chi.Mux

	watcher *config.Watcher
	tracer  *observability.TracerProvider
}

// NewContainer builds the full application from configuration.
func NewContainer(ctx context.Context) (*Container, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return NewContainerWithConfig(ctx, cfg)
}

// NewContainerWithConfig builds the application around an existing config.
func NewContainerWithConfig(ctx context.Context, cfg *config.Config) (*Container, error) {
	logger, err := buildLogger(cfg)
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}

	var collector *observability.Collector
	if cfg.EnableMetrics {
		collector = observability.NewCollector("coursegraph")
	}

	var tracer *observability.TracerProvider
	if cfg.EnableTracing {
		tracer, err = observability.InitTracing("coursegraph-backend", cfg.Environment, cfg.OTLPEndpoint)
		if err != nil {
			return nil, fmt.Errorf("init tracing: %w", err)
		}
	}

	store, err := buildStore(ctx, cfg, collector, logger)
	if err != nil {
		return nil, fmt.Errorf("build store: %w", err)
	}

	graphSvc := graphservice.NewService(store, collector, logger, graphservice.Options{
		RejectPrerequisiteCycles: cfg.RejectPrerequisiteCycles,
	})
	pathSvc := pathfinding.NewService(store, collector, logger, cfg.MaxTraversalDepth, cfg.DefaultRecommendationLimit)
	prereqSvc := prereq.NewService(store, collector, logger)

	watcher, err := config.NewWatcher(cfg, config.OverlayPath(), logger)
	if err != nil {
		return nil, fmt.Errorf("watch config: %w", err)
	}
	watcher.OnReload(func(next *config.Config) {
		pathSvc.SetTunables(next.MaxTraversalDepth, next.DefaultRecommendationLimit)
	})

	router := rest.NewRouter(cfg, graphSvc, pathSvc, prereqSvc, collector, logger)

	return &Container{
		Config:       cfg,
		Logger:       logger,
		Store:        store,
		Collector:    collector,
		GraphService: graphSvc,
		PathService:  pathSvc,
		PrereqSvc:    prereqSvc,
		Mux:          router.Setup(),
		watcher:      watcher,
		tracer:       tracer,
	}, nil
}

// Shutdown stops the config watcher and flushes telemetry and logs.
func (c *Container) Shutdown(ctx context.Context) error {
	var firstErr error
	if c.watcher != nil {
		c.watcher.Stop()
	}
	if c.tracer != nil {
		if err := c.tracer.Shutdown(ctx); err != nil {
			firstErr = err
		}
	}
	// Sync can fail on stderr; nothing actionable.
	_ = c.Logger.Sync()
	return firstErr
}

func buildLogger(cfg *config.Config) (*zap.Logger, error) {
	var zapCfg zap.Config
	if cfg.IsProduction() {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}
	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zapcore.InfoLevel
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)
	return zapCfg.Build()
}

// buildStore selects the backend and stacks the decorators: metrics closest
// to the store so breaker rejections are not double-counted as storage
// failures.
func buildStore(ctx context.Context, cfg *config.Config, collector *observability.Collector, logger *zap.Logger) (repository.GraphStore, error) {
	var store repository.GraphStore
	switch cfg.StoreType {
	case config.StoreMemory:
		store = memory.NewStore(logger)
	case config.StoreDynamoDB:
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
		if err != nil {
			return nil, fmt.Errorf("load aws config: %w", err)
		}
		client := awsdynamodb.NewFromConfig(awsCfg)
		store = dynamostore.NewStore(client, cfg.DynamoDBTable, cfg.EdgeTargetIndex, cfg.EdgeIDIndex, logger)
	default:
		return nil, fmt.Errorf("unknown store type %q", cfg.StoreType)
	}

	if collector != nil {
		store = decorators.NewMetricsStore(store, collector)
	}
	if cfg.StoreType == config.StoreDynamoDB {
		store = decorators.NewCircuitBreakerStore(store, logger)
	}
	return store, nil
}
