package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ternarybob/arbor"

	"github.com/senpaisaul/multimodal-rag/internal/common"
	"github.com/senpaisaul/multimodal-rag/internal/handlers"
	"github.com/senpaisaul/multimodal-rag/internal/interfaces"
	"github.com/senpaisaul/multimodal-rag/internal/services/chart"
	"github.com/senpaisaul/multimodal-rag/internal/services/chat"
	"github.com/senpaisaul/multimodal-rag/internal/services/documents"
	"github.com/senpaisaul/multimodal-rag/internal/services/embeddings"
	"github.com/senpaisaul/multimodal-rag/internal/services/events"
	"github.com/senpaisaul/multimodal-rag/internal/services/graph"
	"github.com/senpaisaul/multimodal-rag/internal/services/index"
	"github.com/senpaisaul/multimodal-rag/internal/services/index/pgvector"
	"github.com/senpaisaul/multimodal-rag/internal/services/ingest"
	"github.com/senpaisaul/multimodal-rag/internal/services/llm"
	"github.com/senpaisaul/multimodal-rag/internal/services/report"
	"github.com/senpaisaul/multimodal-rag/internal/services/scheduler"
	"github.com/senpaisaul/multimodal-rag/internal/services/vision"
	"github.com/senpaisaul/multimodal-rag/internal/session"
	"github.com/senpaisaul/multimodal-rag/internal/storage"
)

// pageEventInterval spaces page_processed broadcasts to websocket clients
const pageEventInterval = 250 * time.Millisecond

// App holds all application components and dependencies
type App struct {
	Config         *common.Config
	Logger         arbor.ILogger
	StorageManager interfaces.StorageManager // nil when persistence is disabled

	// Event-driven services
	EventService     interfaces.EventService
	SchedulerService *scheduler.Service

	// Model access
	ProviderFactory *llm.ProviderFactory
	AuditLogger     llm.AuditLogger
	Embedder        interfaces.Embedder
	pgPool          *pgxpool.Pool

	// Pipeline
	Prompts         *chat.Prompts
	Ingestor        *ingest.Ingestor
	IndexService    *index.Service
	Synthesizer     *graph.Synthesizer
	ChatService     *chat.ChatService
	SessionManager  *session.Manager
	ReportService   *report.Service
	DocumentService *documents.Service

	// HTTP handlers
	APIHandler      *handlers.APIHandler
	DocumentHandler *handlers.DocumentHandler
	ChatHandler     *handlers.ChatHandler
	WSHandler       *handlers.WebSocketHandler
}

// New initializes the application with all dependencies
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	if err := app.initDatabase(); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	app.EventService = events.NewService(app.Logger)
	if err := events.SubscribeLoggerToAllEvents(app.EventService, app.Logger); err != nil {
		app.Logger.Warn().Err(err).Msg("Failed to subscribe event logger")
	}

	if err := app.initServices(); err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	app.initHandlers()

	if err := app.initScheduler(); err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to initialize scheduler: %w", err)
	}

	logger.Info().
		Bool("persistence", app.StorageManager != nil).
		Str("embedding_model", app.Embedder.Model()).
		Str("index_backend", cfg.Index.Backend).
		Msg("Application initialization complete")

	return app, nil
}

// initDatabase opens Badger storage; a nil manager means persistence is off
func (a *App) initDatabase() error {
	storageManager, err := storage.NewStorageManager(a.Logger, a.Config)
	if err != nil {
		return fmt.Errorf("failed to create storage manager: %w", err)
	}
	a.StorageManager = storageManager

	if storageManager != nil {
		a.Logger.Debug().
			Str("storage", "badger").
			Str("path", a.Config.Storage.Badger.Path).
			Msg("Storage layer initialized")
	}
	return nil
}

// initServices builds the pipeline in dependency order:
// prompts, providers, embedder, vector store, ingest, index, graph, chat, documents
func (a *App) initServices() error {
	prompts, err := chat.LoadPrompts(a.Config.Prompts.File)
	if err != nil {
		return fmt.Errorf("failed to load prompts: %w", err)
	}
	a.Prompts = prompts

	// LLM providers and audit
	a.AuditLogger = llm.NewNullAuditLogger()
	if a.Config.Audit.Enabled && a.StorageManager != nil {
		a.AuditLogger = llm.NewStorageAuditLogger(a.StorageManager.AuditStorage(), a.Config.Audit.LogPrompts, a.Logger)
	}
	a.ProviderFactory = llm.NewProviderFactory(a.Config, a.AuditLogger, a.Logger)

	// Embeddings
	switch a.Config.Embedding.Provider {
	case "local":
		a.Embedder = embeddings.NewLocalEmbedder(a.Config.Embedding.Dimension)
	default:
		a.Embedder = embeddings.NewGeminiEmbedder(a.ProviderFactory, a.AuditLogger, a.Config.Gemini.EmbedModel, a.Config.Gemini.EmbedDimension, a.Logger)
	}
	if a.StorageManager != nil {
		a.Embedder = embeddings.NewCachedEmbedder(a.Embedder, a.StorageManager.EmbeddingCache(), a.Logger)
	}

	// Vector store
	storeFactory, err := a.vectorStoreFactory()
	if err != nil {
		return err
	}

	// Ingest
	extractor := vision.NewExtractor(a.ProviderFactory.VisionService(), &a.Config.Ingest, a.Logger)
	extractor.SetPrompt(prompts.Vision)

	a.Ingestor, err = ingest.NewIngestor(ingest.NewReader(a.Logger), extractor, &a.Config.Ingest, a.EventService, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to create ingestor: %w", err)
	}

	a.IndexService = index.NewService(a.Embedder, storeFactory, &a.Config.Retrieval, a.Logger)

	// Question answering
	text := a.ProviderFactory.TextService()
	a.Synthesizer = graph.NewSynthesizer(text, chart.NewRenderer(a.Logger), a.Logger)
	a.Synthesizer.SetPrompt(prompts.Graph)
	a.ChatService = chat.NewChatService(text, a.IndexService, a.Synthesizer, prompts, a.Logger)

	a.SessionManager = session.NewManager(a.Logger)
	a.ReportService = report.NewService(a.Logger)

	var registry interfaces.DocumentStorage
	if a.StorageManager != nil {
		registry = a.StorageManager.DocumentStorage()
	}
	a.DocumentService = documents.NewService(
		a.Ingestor,
		a.IndexService,
		a.ChatService,
		a.SessionManager,
		registry,
		a.ReportService,
		a.EventService,
		a.Logger,
	)

	a.Logger.Debug().
		Str("text_model", text.Model()).
		Str("embedding_model", a.Embedder.Model()).
		Msg("Services initialized")
	return nil
}

// vectorStoreFactory returns nil for the in-memory backend (the index service default)
func (a *App) vectorStoreFactory() (interfaces.VectorStoreFactory, error) {
	if a.Config.Index.Backend != "pgvector" {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pgvector.Connect(ctx, a.Config.Index.PGDSN, a.Config.Index.PGTable, a.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to connect vector store: %w", err)
	}
	a.pgPool = pool
	return pgvector.NewFactory(pool, a.Config.Index.PGTable, a.Logger), nil
}

// initHandlers creates the HTTP handlers and the websocket event bridge
func (a *App) initHandlers() {
	a.APIHandler = handlers.NewAPIHandler(a.Logger)
	a.DocumentHandler = handlers.NewDocumentHandler(a.DocumentService, a.Config.Server.MaxUploadMB, a.Logger)
	a.ChatHandler = handlers.NewChatHandler(a.DocumentService, a.Logger)
	a.WSHandler = handlers.NewWebSocketHandler(a.EventService, a.Logger, pageEventInterval)
	a.WSHandler.SubscribeToIngestEvents()

	a.Logger.Debug().Msg("Handlers initialized")
}

// initScheduler registers housekeeping jobs and starts the cron loop
func (a *App) initScheduler() error {
	a.SchedulerService = scheduler.NewService(a.Logger)

	if a.StorageManager != nil && a.Config.Audit.Enabled && a.Config.Audit.PruneSchedule != "" {
		job := scheduler.AuditPruneJob(a.StorageManager.AuditStorage(), a.Config.AuditRetention(), a.Logger)
		if err := a.SchedulerService.RegisterJob("audit-prune", a.Config.Audit.PruneSchedule, job); err != nil {
			return err
		}
	}

	if a.StorageManager != nil && a.Config.Storage.Badger.GCSchedule != "" {
		job := scheduler.CompactJob(a.StorageManager, 5*time.Minute)
		if err := a.SchedulerService.RegisterJob("badger-gc", a.Config.Storage.Badger.GCSchedule, job); err != nil {
			return err
		}
	}

	a.SchedulerService.Start()
	return nil
}

// Close releases all application resources. Safe to call on a partially built App.
func (a *App) Close() error {
	if a.SchedulerService != nil {
		if err := a.SchedulerService.Stop(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to stop scheduler service")
		}
	}

	// Releases the current index (and its pgvector rows)
	if a.SessionManager != nil {
		if err := a.SessionManager.Clear(); err != nil && !errors.Is(err, session.ErrNoSession) {
			a.Logger.Warn().Err(err).Msg("Failed to clear session")
		}
	}

	if a.ProviderFactory != nil {
		if err := a.ProviderFactory.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close LLM providers")
		} else {
			a.Logger.Info().Msg("LLM providers closed")
		}
	}

	if a.pgPool != nil {
		a.pgPool.Close()
		a.Logger.Info().Msg("Vector store closed")
	}

	if a.EventService != nil {
		if err := a.EventService.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close event service")
		}
	}

	if a.StorageManager != nil {
		if err := a.StorageManager.Close(); err != nil {
			return fmt.Errorf("failed to close storage: %w", err)
		}
		a.Logger.Info().Msg("Storage closed")
	}

	return nil
}
