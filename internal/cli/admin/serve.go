package admin

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/cobra"

	"github.com/inkwell-ai/inkwell/internal/api/handlers"
	"github.com/inkwell-ai/inkwell/internal/config"
	"github.com/inkwell-ai/inkwell/internal/database"
	"github.com/inkwell-ai/inkwell/internal/domain"
	"github.com/inkwell-ai/inkwell/internal/fetch"
	"github.com/inkwell-ai/inkwell/internal/jobs"
	"github.com/inkwell-ai/inkwell/internal/openai"
	"github.com/inkwell-ai/inkwell/internal/repository"
	"github.com/inkwell-ai/inkwell/internal/server"
	"github.com/inkwell-ai/inkwell/internal/service"
	"github.com/inkwell-ai/inkwell/internal/storage"
	"github.com/inkwell-ai/inkwell/internal/telemetry"
)

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long:  "Start the inkwell API server and background workers on the specified port",
		RunE:  runServe,
	}

	cmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize Sentry with tracing if SENTRY_DSN is set
	if dsn := os.Getenv("SENTRY_DSN"); dsn != "" {
		environment := os.Getenv("ENVIRONMENT")
		if environment == "" {
			environment = "development"
		}

		// Default to 10% sampling in production, 100% in development
		sampleRate := 0.1
		if environment == "development" {
			sampleRate = 1.0
		}

		shutdownTelemetry, err := telemetry.Init(telemetry.Config{
			DSN:              dsn,
			Environment:      environment,
			TracesSampleRate: sampleRate,
		})
		if err != nil {
			log.Printf("telemetry init failed (continuing without tracing): %v", err)
		} else {
			defer shutdownTelemetry()
		}
	}

	portFlag, _ := cmd.Flags().GetString("port")
	if portFlag != "" && portFlag != "8080" {
		cfg.Port = portFlag
	}

	pool, err := database.NewPoolFromURL(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()
	log.Println("connected to database")

	// Run migrations unless --no-migrate flag is set
	noMigrate, _ := cmd.Flags().GetBool("no-migrate")
	if !noMigrate {
		if err := runMigrations(cfg.DatabaseURL); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	sourceRepo := repository.NewSourceRepository(pool)
	itemRepo := repository.NewKnowledgeItemRepository(pool)
	chunkRepo := repository.NewChunkRepository(pool)
	factRepo := repository.NewBusinessFactRepository(pool)
	traitRepo := repository.NewVoiceTraitRepository(pool)
	eventRepo := repository.NewChunkEventRepository(pool)
	jobRepo := repository.NewPipelineJobRepository(pool)
	folderRepo := repository.NewFolderRepository(pool)
	orgRepo := repository.NewOrgRepository(pool)
	apiKeyRepo := repository.NewAPIKeyRepository(pool)
	txRunner := repository.NewTxRunner(pool)

	if cfg.InitOrgName != "" {
		if err := bootstrapInitialOrg(ctx, cfg, orgRepo, apiKeyRepo); err != nil {
			return fmt.Errorf("failed to bootstrap initial org: %w", err)
		}
	}

	var blobStorage service.BlobStorage
	if cfg.HasS3() {
		s3Config := storage.S3ClientConfig{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKey,
			SecretAccessKey: cfg.S3SecretKey,
			Bucket:          cfg.S3Bucket,
			UsePathStyle:    true,
		}
		s3Client, err := storage.NewS3Client(ctx, s3Config)
		if err != nil {
			return fmt.Errorf("failed to create S3 client: %w", err)
		}
		if err := s3Client.EnsureBucket(ctx); err != nil {
			return fmt.Errorf("failed to ensure S3 bucket: %w", err)
		}
		log.Printf("S3 bucket '%s' ready", cfg.S3Bucket)
		blobStorage = s3Client
	}

	var (
		extractor   service.Extractor
		embedder    service.Embedder
		transcriber service.Transcriber
	)
	if cfg.HasOpenAI() {
		client := openai.NewClient(cfg.OpenAIAPIKey)
		extractor = client
		embedder = client
		transcriber = client
	} else {
		extractor = service.NewHeuristicExtractor(service.DefaultChunkConfig())
		log.Println("no OpenAI key configured: using heuristic chunking, embed stage and vector search disabled")
	}

	pipelineCfg := service.DefaultPipelineConfig()
	pipelineCfg.MaxStageRetries = cfg.MaxStageRetries
	pipelineCfg.StageTimeout = cfg.StageTimeout

	pipelineSvc := service.NewPipelineService(service.PipelineDeps{
		SourceRepo:  sourceRepo,
		ItemRepo:    itemRepo,
		ChunkRepo:   chunkRepo,
		FactRepo:    factRepo,
		TraitRepo:   traitRepo,
		JobRepo:     jobRepo,
		Extractor:   extractor,
		Embedder:    embedder,
		Transcriber: transcriber,
		Storage:     blobStorage,
		Fetcher:     fetch.NewReadabilityFetcher(),
	}, pipelineCfg)

	pipelineProcessor, err := jobs.NewPipelineWorker(jobRepo, pipelineSvc, cfg.PipelinePoolSize, cfg.PipelineBatchSize)
	if err != nil {
		return fmt.Errorf("failed to create pipeline worker: %w", err)
	}
	defer pipelineProcessor.Release()
	pipelineWorker := jobs.NewWorker(pipelineProcessor, cfg.PipelinePollInterval)
	go pipelineWorker.Start(ctx)
	log.Println("pipeline worker started")

	folderSvc := service.NewFolderService(folderRepo)
	folderWorker := jobs.NewWorker(jobs.NewFolderWorker(folderSvc, cfg.FolderBatchSize), cfg.FolderPollInterval)
	go folderWorker.Start(ctx)
	log.Println("folder worker started")

	uuidGen := &service.DefaultUUIDGenerator{}

	authSvc := service.NewAuthService(orgRepo, apiKeyRepo, uuidGen)
	intakeSvc := service.NewIntakeService(sourceRepo, folderRepo, jobRepo, txRunner)
	governanceSvc := service.NewGovernanceService(chunkRepo, eventRepo, txRunner, authSvc)
	insightsSvc := service.NewInsightsService(factRepo, traitRepo, authSvc)

	var contextHandler *handlers.ContextHandler
	var researchHandler *handlers.ResearchHandler
	if embedder != nil {
		retrievalSvc := service.NewRetrievalService(chunkRepo, embedder, authSvc)
		contextHandler = handlers.NewContextHandler(retrievalSvc)
		researchHandler = handlers.NewResearchHandler(retrievalSvc, governanceSvc)
	} else {
		noop := &NoOpRetrievalService{}
		contextHandler = handlers.NewContextHandler(noop)
		researchHandler = handlers.NewResearchHandler(noop, governanceSvc)
	}

	routerCfg := server.RouterConfig{
		AuthValidator:   authSvc,
		SourceHandler:   handlers.NewSourceHandler(intakeSvc),
		ChunkHandler:    handlers.NewChunkHandler(governanceSvc),
		ResearchHandler: researchHandler,
		ContextHandler:  contextHandler,
		FolderHandler:   handlers.NewFolderHandler(folderSvc),
		InsightsHandler: handlers.NewInsightsHandler(insightsSvc),
		AuthHandler:     handlers.NewAuthHandler(authSvc),
	}

	router := server.NewRouter(routerCfg)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Printf("starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down...")

	pipelineWorker.Stop()
	folderWorker.Stop()

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("server exited")
	return nil
}

// NoOpRetrievalService rejects retrieval requests when no embedding provider
// is configured.
type NoOpRetrievalService struct{}

func (s *NoOpRetrievalService) GenerationContext(ctx context.Context, input service.GenerationContextInput) ([]*service.RetrievedChunk, error) {
	return nil, fmt.Errorf("retrieval not configured: OPENAI_API_KEY required")
}

func (s *NoOpRetrievalService) ResearchSearch(ctx context.Context, actor service.Actor, input service.ResearchSearchInput) ([]*service.ScoredChunk, error) {
	return nil, fmt.Errorf("retrieval not configured: OPENAI_API_KEY required")
}

func bootstrapInitialOrg(ctx context.Context, cfg *config.Config, orgRepo *repository.OrgRepository, apiKeyRepo *repository.APIKeyRepository) error {
	if cfg.InitOwnerUser == "" {
		return fmt.Errorf("INKWELL_INIT_OWNER_USER is required with INKWELL_INIT_ORG_NAME")
	}

	org, err := orgRepo.GetByName(ctx, cfg.InitOrgName)
	if err != nil && err != domain.ErrOrganizationNotFound {
		return fmt.Errorf("failed to check existing org: %w", err)
	}

	uuidGen := &service.DefaultUUIDGenerator{}
	authSvc := service.NewAuthService(orgRepo, apiKeyRepo, uuidGen)

	if org == nil {
		org, err = authSvc.CreateOrg(ctx, cfg.InitOrgName, cfg.InitOwnerUser)
		if err != nil {
			return fmt.Errorf("failed to create org: %w", err)
		}
		log.Printf("bootstrap: created organization '%s' (id: %s)", org.Name, org.ID)

		token, err := authSvc.CreateAPIKey(ctx, org.ID, cfg.InitOwnerUser, "bootstrap")
		if err != nil {
			return fmt.Errorf("failed to create API key: %w", err)
		}
		log.Printf("bootstrap: created API key: %s", token)
	} else {
		log.Printf("bootstrap: organization '%s' already exists (id: %s)", org.Name, org.ID)
	}

	return nil
}

func runMigrations(databaseURL string) error {
	// Create a sql.DB connection for golang-migrate
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database for migrations: %w", err)
	}
	defer db.Close()

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		"file://migrations",
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil && err != migrate.ErrNilVersion {
		return fmt.Errorf("failed to get migration version: %w", err)
	}

	if err == migrate.ErrNilVersion {
		log.Println("migrations: database is up to date (no migrations applied)")
	} else if dirty {
		return fmt.Errorf("migration version %d is dirty - manual intervention required", version)
	} else if err == migrate.ErrNoChange {
		log.Printf("migrations: database is up to date (version %d)", version)
	} else {
		log.Printf("migrations: applied successfully (version %d)", version)
	}

	return nil
}
