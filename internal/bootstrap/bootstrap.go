package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/stigtools/stig-rag/internal/config"
	"github.com/stigtools/stig-rag/internal/core/ports"
	"github.com/stigtools/stig-rag/internal/core/usecase"
	"github.com/stigtools/stig-rag/internal/infrastructure/corpus"
	"github.com/stigtools/stig-rag/internal/infrastructure/llm/ollama"
	"github.com/stigtools/stig-rag/internal/infrastructure/queue/nats"
	"github.com/stigtools/stig-rag/internal/infrastructure/repository/postgres"
	"github.com/stigtools/stig-rag/internal/infrastructure/resilience"
	"github.com/stigtools/stig-rag/internal/observability/metrics"
)

type App struct {
	Config  config.Config
	Logger  *slog.Logger
	Metrics *metrics.HTTPServerMetrics

	CorpusUC ports.CorpusAdmin
	SearchUC ports.ControlSearcher
	AskUC    ports.QuestionAnswerer
	Reader   ports.ControlReader
	History  ports.QueryHistoryStore

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	// Generation gets a single attempt; the breaker only shortcuts a backend
	// that keeps failing.
	executorCfg := resilience.DefaultConfig()
	executorCfg.RetryMaxAttempts = 1
	executor := resilience.NewExecutor(executorCfg)

	store := corpus.NewStore()
	codec := corpus.NewCodec()
	generator := ollama.New(cfg.OllamaURL, cfg.OllamaModel, executor)

	var closers []func()

	var history ports.QueryHistoryStore
	if cfg.PostgresDSN != "" {
		db, err := postgres.OpenDB(cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		repo := postgres.NewHistoryRepository(db)
		if err := repo.EnsureSchema(ctx); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("ensure schema: %w", err)
		}
		history = repo
		closers = append(closers, func() { _ = db.Close() })
	}

	var events ports.EventPublisher
	if cfg.NATSURL != "" {
		publisher, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
			ResilienceExecutor: executor,
		})
		if err != nil {
			return nil, fmt.Errorf("init event publisher: %w", err)
		}
		events = publisher
		closers = append(closers, publisher.Close)
	}

	corpusUC := usecase.NewCorpusUseCase(codec, store, generator, events, logger, cfg.OllamaURL, cfg.OllamaModel)
	searchUC := usecase.NewSearchUseCase(store, cfg.SearchTopK, cfg.SearchMinScore)
	composeUC := usecase.NewComposeUseCase(generator, logger, cfg.DisableAI, cfg.DisableReranking)
	askUC := usecase.NewAskUseCase(searchUC, composeUC, store, history, events, logger)
	reader := usecase.NewControlReadUseCase(store)

	app := &App{
		Config:  cfg,
		Logger:  logger,
		Metrics: metrics.NewHTTPServerMetrics("api"),

		CorpusUC: corpusUC,
		SearchUC: searchUC,
		AskUC:    askUC,
		Reader:   reader,
		History:  history,

		closeFn: func() {
			for _, closeFn := range closers {
				closeFn()
			}
		},
	}

	if cfg.AutoLoadPath != "" {
		app.autoLoadCorpus(ctx, corpusUC, cfg.AutoLoadPath)
	}
	return app, nil
}

// autoLoadCorpus seeds the store from disk at startup. Failure is logged and
// the service starts empty; uploads can still populate it.
func (a *App) autoLoadCorpus(ctx context.Context, corpusUC *usecase.CorpusUseCase, path string) {
	payload, err := os.ReadFile(path)
	if err != nil {
		a.Logger.Warn("corpus auto-load read failed", "path", path, "error", err)
		return
	}
	count, err := corpusUC.LoadCorpus(ctx, payload)
	if err != nil {
		a.Logger.Warn("corpus auto-load failed", "path", path, "error", err)
		return
	}
	corpusUC.MarkAutoLoaded()
	a.Metrics.SetCorpusControls(count)
	a.Logger.Info("corpus auto-loaded", "path", path, "controls", count)
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
