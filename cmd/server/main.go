package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"redraft/internal/auth"
	"redraft/internal/config"
	"redraft/internal/handler"
	"redraft/internal/llm"
	"redraft/internal/lock"
	"redraft/internal/middleware"
	"redraft/internal/repository/postgres"
	authservice "redraft/internal/service/auth"
	workservice "redraft/internal/service/work"

	"github.com/joho/godotenv"
	"github.com/rs/cors"
)

func main() {
	// Load .env file (silently ignore if it doesn't exist - for production)
	_ = godotenv.Load()

	// Load configuration
	cfg := config.Load()

	// Setup structured logging
	logLevel := slog.LevelInfo
	if cfg.Environment == "dev" {
		logLevel = slog.LevelDebug
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("server starting",
		"environment", cfg.Environment,
		"port", cfg.Port,
		"table_prefix", cfg.TablePrefix,
	)

	// Token service issues the session tokens handed out at signup/login
	tokenService, err := auth.NewTokenService(cfg.JWTSecret, cfg.JWTExpiry, logger)
	if err != nil {
		log.Fatalf("Failed to create token service: %v", err)
	}

	// Tokens are verified locally by default; an external IdP's JWKS
	// endpoint can take over verification when configured.
	var verifier auth.TokenVerifier = tokenService
	if cfg.JWKSURL != "" {
		jwksVerifier, err := auth.NewJWKSVerifier(cfg.JWKSURL, logger)
		if err != nil {
			log.Fatalf("Failed to create JWKS verifier: %v", err)
		}
		verifier = jwksVerifier
	}
	defer verifier.Close()

	// Create pgx connection pool
	ctx := context.Background()
	pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to create connection pool: %v", err)
	}
	defer pool.Close()

	logger.Info("database connected",
		"max_conns", 25,
		"min_conns", 5,
	)

	// Redis-backed session lock
	sessionLock, err := lock.New(cfg.RedisURL, cfg.LockTTL)
	if err != nil {
		log.Fatalf("Failed to connect to redis: %v", err)
	}
	defer sessionLock.Close()

	if err := sessionLock.Ping(ctx); err != nil {
		log.Fatalf("Failed to ping redis: %v", err)
	}
	logger.Info("redis connected", "lock_ttl", cfg.LockTTL)

	// Create table names
	tables := postgres.NewTableNames(cfg.TablePrefix)

	// Create repositories
	repoConfig := &postgres.RepositoryConfig{
		Pool:   pool,
		Tables: tables,
		Logger: logger,
	}
	workRepo := postgres.NewWorkRepository(repoConfig)
	versionRepo := postgres.NewVersionRepository(repoConfig)
	analysisRepo := postgres.NewAnalysisRepository(repoConfig)
	resolutionRepo := postgres.NewResolutionRepository(repoConfig)
	commentRepo := postgres.NewCommentRepository(repoConfig)
	userRepo := postgres.NewUserRepository(repoConfig)
	txManager := postgres.NewTransactionManager(pool)

	// Model registry caps generation limits per provider
	registry, err := llm.NewRegistry()
	if err != nil {
		log.Fatalf("Failed to load model registry: %v", err)
	}

	analysisClient, err := llm.NewOpenAIClient(cfg.LLMAPIKey, cfg.LLMBaseURL, cfg.LLMModel, cfg.LLMTimeout, logger)
	if err != nil {
		log.Fatalf("Failed to create analysis client: %v", err)
	}

	claudeMaxTokens := cfg.ClaudeMaxTokens
	if settings, err := registry.ModelSettings("anthropic", cfg.ClaudeModel); err == nil && settings.MaxOutputTokens < claudeMaxTokens {
		claudeMaxTokens = settings.MaxOutputTokens
	}
	rubricClient, err := llm.NewClaudeClient(cfg.ClaudeAPIKey, cfg.ClaudeModel, claudeMaxTokens, cfg.ClaudeTimeout, logger)
	if err != nil {
		log.Fatalf("Failed to create rubric client: %v", err)
	}

	analyzer := llm.NewAnalyzer(analysisClient, logger)

	// Create services
	versionService := workservice.NewVersionService(versionRepo, workRepo, txManager, logger)
	workService := workservice.NewService(
		workRepo,
		versionService,
		analysisRepo,
		resolutionRepo,
		commentRepo,
		sessionLock,
		analyzer,
		rubricClient,
		logger,
	)
	authService := authservice.NewService(userRepo, tokenService, logger)

	// Create handlers
	authHandler := handler.NewAuthHandler(authService, logger)
	workHandler := handler.NewWorkHandler(workService, logger)
	versionHandler := handler.NewVersionHandler(workService, logger)
	commentHandler := handler.NewCommentHandler(workService, logger)

	logger.Info("services initialized")

	// Create HTTP router (Go 1.22+ enhanced patterns)
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("GET /health", workHandler.HealthCheck)

	// Auth routes
	mux.HandleFunc("POST /api/auth/signup", authHandler.Signup)
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)
	mux.HandleFunc("POST /api/auth/change-password", authHandler.ChangePassword)

	// Work routes
	mux.HandleFunc("GET /api/works", workHandler.List)
	mux.HandleFunc("POST /api/works", workHandler.Create)
	mux.HandleFunc("GET /api/works/stats", workHandler.Stats) // Must come before {id} route
	mux.HandleFunc("GET /api/works/{id}", workHandler.Get)
	mux.HandleFunc("DELETE /api/works/{id}", workHandler.Delete)
	mux.HandleFunc("POST /api/works/{id}/update", workHandler.Update)
	mux.HandleFunc("POST /api/works/{id}/submit", workHandler.Submit)
	mux.HandleFunc("POST /api/works/{id}/rename", workHandler.Rename)

	// Version routes
	mux.HandleFunc("GET /api/works/{id}/versions", versionHandler.List)
	mux.HandleFunc("GET /api/works/{id}/versions/{number}", versionHandler.Detail)
	mux.HandleFunc("POST /api/works/{id}/revert", versionHandler.Revert)
	mux.HandleFunc("GET /api/works/{id}/resolutions", versionHandler.ListResolutions)

	// Session lock routes
	mux.HandleFunc("GET /api/works/{id}/lock", workHandler.LockHolder)
	mux.HandleFunc("POST /api/works/{id}/lock/release", workHandler.ReleaseLock)

	// Comment routes
	mux.HandleFunc("GET /api/works/{id}/comments", commentHandler.List)
	mux.HandleFunc("POST /api/works/{id}/comments", commentHandler.Add)

	// Build middleware chain
	var httpHandler http.Handler = mux

	// Apply middleware in reverse order (they wrap each other)
	// Order: CORS → Recovery → Auth → Routes
	httpHandler = middleware.Auth(verifier)(httpHandler)
	httpHandler = middleware.Recovery(logger)(httpHandler)

	// CORS - Must be before auth to handle OPTIONS pre-flight requests
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   strings.Split(cfg.CORSOrigins, ","),
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Origin", "Content-Type", "Accept", "Authorization"},
		AllowCredentials: true,
	})
	httpHandler = corsHandler.Handler(httpHandler)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      httpHandler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second, // Submissions block on LLM analysis
		IdleTimeout:  60 * time.Second,
	}

	// Start server
	logger.Info("server listening", "port", cfg.Port)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Failed to start server: %v", err)
	}
}
