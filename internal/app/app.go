package app

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/lexis/internal/common"
	"github.com/ternarybob/lexis/internal/interfaces"
	"github.com/ternarybob/lexis/internal/services/ask"
	"github.com/ternarybob/lexis/internal/services/indexer"
	"github.com/ternarybob/lexis/internal/services/llm"
	"github.com/ternarybob/lexis/internal/services/pdf"
	"github.com/ternarybob/lexis/internal/storage/badger"
)

// App holds all application components and dependencies.
type App struct {
	Config *common.Config
	Logger arbor.ILogger

	StorageManager interfaces.StorageManager
	Extractor      interfaces.PDFExtractor
	LLMService     interfaces.LLMService

	IndexerService *indexer.Service
	AskService     *ask.Service

	scheduler *cron.Cron
	ctx       context.Context
	cancelCtx context.CancelFunc
}

// New initializes the application with all dependencies.
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	ctx, cancel := context.WithCancel(context.Background())
	app := &App{
		Config:    cfg,
		Logger:    logger,
		ctx:       ctx,
		cancelCtx: cancel,
	}

	storageManager, err := badger.NewManager(logger, &cfg.Storage.Badger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	app.StorageManager = storageManager

	llmService, err := llm.NewLLMService(cfg, logger)
	if err != nil {
		storageManager.Close()
		cancel()
		return nil, fmt.Errorf("failed to initialize LLM service: %w", err)
	}
	app.LLMService = llmService

	app.Extractor = pdf.NewExtractor(logger)
	app.IndexerService = indexer.NewService(cfg, app.Extractor, llmService, storageManager, logger)
	app.AskService = ask.NewService(cfg, llmService, storageManager, logger)

	logger.Info().
		Str("provider", cfg.LLM.DefaultProvider).
		Str("knowledge_dir", cfg.Knowledge.Dir).
		Msg("Application initialized")

	return app, nil
}

// Context returns the application's run context; it is cancelled on Close.
func (a *App) Context() context.Context {
	return a.ctx
}

// StartSchedule begins periodic re-indexing when indexing.schedule is set.
// Each tick runs a full pass; unchanged documents are fingerprint-skipped,
// so a tick over a stable corpus is cheap.
func (a *App) StartSchedule() error {
	spec := a.Config.Indexing.Schedule
	if spec == "" {
		a.Logger.Debug().Msg("No indexing schedule configured")
		return nil
	}

	a.scheduler = cron.New()
	_, err := a.scheduler.AddFunc(spec, func() {
		report, err := a.IndexerService.IndexAll(a.ctx)
		if err != nil {
			a.Logger.Error().Err(err).Msg("Scheduled indexing run failed")
			return
		}
		a.Logger.Info().
			Int("documents", len(report.Documents)).
			Int("failed", len(report.Failed())).
			Msg("Scheduled indexing run complete")
	})
	if err != nil {
		return fmt.Errorf("invalid indexing schedule %q: %w", spec, err)
	}

	a.scheduler.Start()
	a.Logger.Info().Str("schedule", spec).Msg("Indexing scheduler started")
	return nil
}

// Close shuts down the application in reverse dependency order.
func (a *App) Close() error {
	if a.scheduler != nil {
		<-a.scheduler.Stop().Done()
	}
	a.cancelCtx()

	if a.LLMService != nil {
		if err := a.LLMService.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close LLM service")
		}
	}
	if a.StorageManager != nil {
		if err := a.StorageManager.Close(); err != nil {
			return fmt.Errorf("failed to close storage: %w", err)
		}
	}

	a.Logger.Debug().Msg("Application closed")
	return nil
}
