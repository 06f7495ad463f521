package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"collab-server/internal/clients"
	"collab-server/internal/config"
	"collab-server/internal/handler"
	"collab-server/internal/ledger"
	"collab-server/internal/messaging"
	"collab-server/internal/service"
	"collab-server/pkg/ai"
	"collab-server/pkg/migration"
	"collab-server/shared/database"
	sharedLogger "collab-server/shared/logger"
	sharedMiddleware "collab-server/shared/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	amqp "github.com/rabbitmq/amqp091-go"
	redis "github.com/redis/go-redis/v9"
	ginprometheus "github.com/zsais/go-gin-prometheus"
	"go.uber.org/zap"
)

func main() {
	// .env is optional, real deployments configure through the environment.
	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := sharedLogger.New(sharedLogger.Config{
		Level:    cfg.LogLevel,
		Encoding: "json",
	})
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	zap.ReplaceGlobals(logger)
	zap.L().Info("Logger initialized", zap.String("logLevel", cfg.LogLevel))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pgPool, err := setupPostgres(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to connect to PostgreSQL", zap.Error(err))
	}
	defer pgPool.Close()
	zap.L().Info("Connected to PostgreSQL")

	migrator := migration.NewMigrator(migration.Config{
		MigrationsPath: "migrations",
		MigrationsFS:   database.MigrationsFS,
	}, pgPool)
	if err := migrator.Up(ctx); err != nil {
		zap.L().Fatal("Failed to apply migrations", zap.Error(err))
	}

	redisClient, err := setupRedis(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redisClient.Close()
	zap.L().Info("Connected to Redis")

	mqConn, err := connectRabbitMQ(cfg.RabbitMQURL, logger)
	if err != nil {
		zap.L().Fatal("Failed to connect to RabbitMQ", zap.Error(err))
	}
	defer mqConn.Close()
	zap.L().Info("Connected to RabbitMQ")

	// --- Dependency Injection ---
	collabRepo := database.NewPgCollaborationRepository(pgPool, logger.Named("PgCollabRepo"))
	budgetRepo := database.NewPgCampaignBudgetRepository(pgPool, logger.Named("PgBudgetRepo"))
	negotiationRepo := database.NewPgNegotiationRepository(pgPool, logger.Named("PgNegotiationRepo"))
	idempotencyStore := database.NewRedisIdempotencyStore(redisClient, logger.Named("RedisIdempotency"))

	budgetLedger := ledger.New(budgetRepo, logger.Named("Ledger"))
	transactor := service.NewPgxTransactor(pgPool, logger.Named("PgxTransactor"))

	replacementPub, err := messaging.NewRabbitMQPublisher(mqConn, cfg.ReplacementQueueName, logger)
	if err != nil {
		zap.L().Fatal("Failed to create replacement publisher", zap.Error(err))
	}
	defer replacementPub.Close()

	updatePub, err := messaging.NewRabbitMQPublisher(mqConn, cfg.ClientUpdatesQueueName, logger)
	if err != nil {
		zap.L().Fatal("Failed to create client update publisher", zap.Error(err))
	}
	defer updatePub.Close()

	generator, err := ai.New(ai.Config{
		APIKey:    cfg.OpenAIAPIKey,
		ModelName: cfg.OpenAIModel,
		Timeout:   int(cfg.GeneratorTimeout.Seconds()),
	})
	if err != nil {
		zap.L().Fatal("Failed to create text generator client", zap.Error(err))
	}

	candidatePool := clients.NewHTTPCandidatePoolClient(cfg.CandidatePoolURL, cfg.CandidatePoolTimeout, logger)

	collabSvc := service.NewCollaborationService(
		collabRepo, budgetRepo, negotiationRepo, budgetLedger, transactor,
		replacementPub, updatePub, logger)
	contentSvc := service.NewContentService(
		collabRepo, budgetLedger, transactor,
		idempotencyStore, cfg.IdempotencyTTL,
		generator, cfg.GeneratorTimeout, updatePub, logger)
	negotiationSvc := service.NewNegotiationService(
		collabRepo, budgetRepo, negotiationRepo, budgetLedger, transactor,
		generator, cfg.GeneratorTimeout, replacementPub, updatePub, logger)

	scheduler := messaging.NewReplacementScheduler(
		mqConn, cfg.ReplacementQueueName, cfg.ReplacementBatchSize,
		collabSvc, budgetRepo, candidatePool, logger)

	collabHandler := handler.NewCollabHandler(collabSvc, contentSvc, negotiationSvc, cfg, logger)

	// --- HTTP Server Setup (Gin) ---
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.RedirectTrailingSlash = true
	router.Use(sharedMiddleware.GinZapLogger(logger))
	router.Use(gin.Recovery())

	p := ginprometheus.NewPrometheus("gin")

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{"http://localhost:3000"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Idempotency-Key"}
	corsConfig.AllowCredentials = true
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	healthHandler := func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
	router.GET("/health", healthHandler)
	router.HEAD("/health", healthHandler)

	collabHandler.RegisterRoutes(router)

	// Prometheus middleware registers after the routes so it sees them all.
	p.Use(router)

	zap.L().Info("Starting ReplacementScheduler...")
	scheduler.StartConsuming()

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	zap.L().Info("Starting HTTP server", zap.String("port", cfg.Port))

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zap.L().Fatal("HTTP Server listen error", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zap.L().Info("Shutting down server...")

	zap.L().Info("Stopping ReplacementScheduler...")
	scheduler.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zap.L().Error("HTTP Server forced to shutdown", zap.Error(err))
	}

	zap.L().Info("Server exiting")
}

// setupPostgres initializes the PostgreSQL connection pool with retry logic.
func setupPostgres(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("unable to parse postgres config: %w", err)
	}
	poolConfig.MaxConns = int32(cfg.DBMaxConns)
	poolConfig.MaxConnIdleTime = cfg.DBIdleTimeout

	var pool *pgxpool.Pool
	var lastErr error
	maxRetries := 50
	retryDelay := 3 * time.Second

	for i := 0; i < maxRetries; i++ {
		attempt := i + 1
		connectCtx, connectCancel := context.WithTimeout(ctx, 5*time.Second)
		pool, err = pgxpool.NewWithConfig(connectCtx, poolConfig)
		connectCancel()

		if err != nil {
			lastErr = fmt.Errorf("unable to create postgres connection pool (attempt %d/%d): %w", attempt, maxRetries, err)
			zap.L().Warn("Postgres connection pool creation failed, retrying...",
				zap.Int("attempt", attempt), zap.Error(err))
			if i < maxRetries-1 {
				time.Sleep(retryDelay)
			}
			continue
		}

		pingCtx, pingCancel := context.WithTimeout(ctx, 2*time.Second)
		err = pool.Ping(pingCtx)
		pingCancel()

		if err == nil {
			zap.L().Info("Successfully connected and pinged PostgreSQL", zap.Int("attempt", attempt))
			return pool, nil
		}

		pool.Close()
		lastErr = fmt.Errorf("unable to ping postgres database (attempt %d/%d): %w", attempt, maxRetries, err)
		zap.L().Warn("Postgres ping failed, retrying...",
			zap.Int("attempt", attempt), zap.Error(err))
		if i < maxRetries-1 {
			time.Sleep(retryDelay)
		}
	}

	return nil, lastErr
}

// setupRedis initializes the Redis client used for idempotency keys.
func setupRedis(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr,
		DB:   cfg.RedisDB,
	})

	pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
	defer pingCancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("unable to ping redis: %w", err)
	}
	return client, nil
}

// connectRabbitMQ dials RabbitMQ with retry logic.
func connectRabbitMQ(url string, logger *zap.Logger) (*amqp.Connection, error) {
	var conn *amqp.Connection
	var err error
	maxRetries := 10
	retryDelay := 5 * time.Second

	for i := 0; i < maxRetries; i++ {
		conn, err = amqp.Dial(url)
		if err == nil {
			return conn, nil
		}
		logger.Warn("RabbitMQ connection failed, retrying...",
			zap.Int("attempt", i+1), zap.Int("max_retries", maxRetries), zap.Error(err))
		if i < maxRetries-1 {
			time.Sleep(retryDelay)
		}
	}
	return nil, fmt.Errorf("unable to connect to RabbitMQ after %d attempts: %w", maxRetries, err)
}
