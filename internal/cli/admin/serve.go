package admin

import (
	"context"
	"database/sql"
	"errors"
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

	"github.com/cloo-solutions/corpora/internal/api/handlers"
	"github.com/cloo-solutions/corpora/internal/config"
	"github.com/cloo-solutions/corpora/internal/database"
	"github.com/cloo-solutions/corpora/internal/domain"
	"github.com/cloo-solutions/corpora/internal/jobs"
	"github.com/cloo-solutions/corpora/internal/openai"
	"github.com/cloo-solutions/corpora/internal/repository"
	"github.com/cloo-solutions/corpora/internal/server"
	"github.com/cloo-solutions/corpora/internal/service"
	"github.com/cloo-solutions/corpora/internal/storage"
	"github.com/cloo-solutions/corpora/internal/telemetry"
)

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long:  "Start the corpora API server on the specified port",
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

	if shutdown := initTelemetry(); shutdown != nil {
		defer shutdown()
	}

	if portFlag, _ := cmd.Flags().GetString("port"); portFlag != "" && portFlag != "8080" {
		cfg.Port = portFlag
	}

	pool, err := database.NewPool(ctx, database.Config{URL: cfg.DatabaseURL})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()
	log.Println("connected to database")

	if skip, _ := cmd.Flags().GetBool("no-migrate"); !skip {
		if err := runMigrations(cfg.DatabaseURL); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	itemRepo := repository.NewKnowledgeItemRepository(pool)
	fingerprintRepo := repository.NewFingerprintRepository(pool)
	projectRepo := repository.NewProjectRepository(pool)
	conversationRepo := repository.NewConversationRepository(pool)
	auditRepo := repository.NewAuditRepository(pool)
	actorRepo := repository.NewActorRepository(pool)
	apiKeyRepo := repository.NewAPIKeyRepository(pool)
	memberRepo := repository.NewProjectMemberRepository(pool)
	keyStoreRepo := repository.NewKeyStoreRepository(pool)
	txRunner := repository.NewTxRunner(pool)

	if cfg.InitActorName != "" {
		if err := bootstrapInitialActor(ctx, cfg, actorRepo, apiKeyRepo); err != nil {
			return fmt.Errorf("failed to bootstrap initial actor: %w", err)
		}
	}

	var fetcher service.ObjectFetcher
	if cfg.HasS3() {
		s3Client, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKey,
			SecretAccessKey: cfg.S3SecretKey,
			Bucket:          cfg.S3Bucket,
			UsePathStyle:    true,
		})
		if err != nil {
			return fmt.Errorf("failed to create S3 client: %w", err)
		}
		if err := s3Client.EnsureBucket(ctx); err != nil {
			return fmt.Errorf("failed to ensure S3 bucket: %w", err)
		}
		log.Printf("S3 bucket '%s' ready", cfg.S3Bucket)
		fetcher = s3Client
	}

	var embedder service.EmbeddingProvider
	if cfg.HasOpenAI() {
		embedder = openai.NewClientWithConfig(openai.Config{
			APIKey:              cfg.OpenAIAPIKey,
			EmbeddingDimensions: cfg.EmbeddingDim,
		})
		log.Println("using OpenAI embeddings")
	} else {
		embedder = service.NewDeterministicEmbedder(cfg.EmbeddingDim)
	}

	notifier, err := service.NewNotifier(cfg.NotifierPoolSize, projectRepo, nil, nil)
	if err != nil {
		return fmt.Errorf("failed to create notifier: %w", err)
	}
	defer notifier.Release()

	uuidGen := &service.DefaultUUIDGenerator{}
	metrics := telemetry.NewMetrics()

	guard := service.NewGuard(memberRepo, projectRepo, itemRepo)
	engine := service.NewEncryptionEngine(keyStoreRepo)

	ingestionSvc := service.NewIngestionService(service.IngestionServiceConfig{
		Guard:         guard,
		Engine:        engine,
		Embedder:      embedder,
		Items:         itemRepo,
		Fingerprints:  fingerprintRepo,
		Projects:      projectRepo,
		Conversations: conversationRepo,
		Audit:         auditRepo,
		Tx:            txRunner,
		Notifier:      notifier,
		Fetcher:       fetcher,
		Metrics:       metrics,
		UUIDGen:       uuidGen,
	})
	knowledgeSvc := service.NewKnowledgeService(guard, itemRepo, auditRepo)
	authSvc := service.NewAuthService(actorRepo, apiKeyRepo, uuidGen)

	var retentionWorker *jobs.Worker
	if cfg.RetentionSweepInterval > 0 {
		retentionSvc := service.NewRetentionService(itemRepo, txRunner)
		task := jobs.NewRetentionWorker(retentionSvc, metrics)
		retentionWorker = jobs.NewWorker(task, time.Duration(cfg.RetentionSweepInterval)*time.Second)
		go retentionWorker.Start(ctx)
		log.Println("retention worker started")
	}

	router := server.NewRouter(server.RouterConfig{
		AuthValidator:    authSvc,
		IngestionHandler: handlers.NewIngestionHandler(ingestionSvc),
		KnowledgeHandler: handlers.NewKnowledgeHandler(knowledgeSvc),
		AuthHandler:      handlers.NewAuthHandler(authSvc),
		ProjectHandler:   handlers.NewProjectHandler(projectRepo, memberRepo),
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Printf("starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down...")

	if retentionWorker != nil {
		retentionWorker.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("server exited")
	return nil
}

// initTelemetry enables Sentry tracing when SENTRY_DSN is set. Startup
// continues without tracing if init fails.
func initTelemetry() func() {
	dsn := os.Getenv("SENTRY_DSN")
	if dsn == "" {
		return nil
	}

	environment := os.Getenv("ENVIRONMENT")
	if environment == "" {
		environment = "development"
	}

	// Sample 10% of traces outside development.
	sampleRate := 0.1
	if environment == "development" {
		sampleRate = 1.0
	}

	shutdown, err := telemetry.Init(telemetry.Config{
		DSN:              dsn,
		Environment:      environment,
		TracesSampleRate: sampleRate,
	})
	if err != nil {
		log.Printf("telemetry init failed (continuing without tracing): %v", err)
		return nil
	}
	return shutdown
}

// bootstrapInitialActor provisions the actor named by CORPORA_INIT_ACTOR, and
// optionally a fixed API key, so a fresh deployment is usable without a
// manual apikey create step. Both operations are idempotent across restarts.
func bootstrapInitialActor(ctx context.Context, cfg *config.Config, actorRepo *repository.ActorRepository, apiKeyRepo *repository.APIKeyRepository) error {
	actor, err := actorRepo.GetByName(ctx, cfg.InitActorName)
	if err != nil && !errors.Is(err, domain.ErrActorNotFound) {
		return fmt.Errorf("failed to check existing actor: %w", err)
	}

	authSvc := service.NewAuthService(actorRepo, apiKeyRepo, &service.DefaultUUIDGenerator{})

	if actor == nil {
		actor, err = authSvc.CreateActor(ctx, cfg.InitActorName)
		if err != nil {
			return fmt.Errorf("failed to create actor: %w", err)
		}
		log.Printf("bootstrap: created actor '%s' (id: %s)", actor.Name, actor.ID)
	} else {
		log.Printf("bootstrap: actor '%s' already exists (id: %s)", actor.Name, actor.ID)
	}

	if cfg.InitAPIKey == "" {
		return nil
	}
	if !service.IsValidAPIToken(cfg.InitAPIKey) {
		return fmt.Errorf("invalid CORPORA_INIT_API_KEY format (expected 'cor_<64 hex chars>')")
	}

	if existing, err := authSvc.GetAPIKeyByHash(ctx, cfg.InitAPIKey); err == nil && existing != nil {
		log.Printf("bootstrap: API key already exists (id: %s)", existing.ID)
		return nil
	}

	if err := authSvc.CreateAPIKeyWithToken(ctx, actor.ID, "bootstrap", cfg.InitAPIKey); err != nil {
		return fmt.Errorf("failed to create API key: %w", err)
	}
	log.Printf("bootstrap: created API key")
	return nil
}

// runMigrations applies pending SQL migrations through golang-migrate. A
// dirty version aborts startup rather than serving against a half-migrated
// schema.
func runMigrations(databaseURL string) error {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database for migrations: %w", err)
	}
	defer db.Close()

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance("file://migrations", "postgres", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	upErr := m.Up()
	if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		return fmt.Errorf("failed to apply migrations: %w", upErr)
	}

	version, dirty, err := m.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		log.Println("migrations: database is up to date (no migrations applied)")
	case err != nil:
		return fmt.Errorf("failed to get migration version: %w", err)
	case dirty:
		return fmt.Errorf("migration version %d is dirty - manual intervention required", version)
	case errors.Is(upErr, migrate.ErrNoChange):
		log.Printf("migrations: database is up to date (version %d)", version)
	default:
		log.Printf("migrations: applied successfully (version %d)", version)
	}

	return nil
}
