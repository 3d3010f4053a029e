package main

import (
	"context"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"campus/internal/auth"
	"campus/internal/authz"
	"campus/internal/capabilities"
	"campus/internal/config"
	"campus/internal/handler"
	"campus/internal/hierarchy"
	"campus/internal/middleware"
	"campus/internal/notify"
	"campus/internal/repository/postgres"
	serviceAuth "campus/internal/service/auth"
	"campus/internal/service/content"

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

	logOutput := io.Writer(os.Stdout)
	if cfg.LogDir != "" {
		logFile, err := config.SetupLogFile(cfg.LogDir, 10)
		if err != nil {
			log.Fatalf("Failed to set up log file: %v", err)
		}
		defer logFile.Close()
		logOutput = io.MultiWriter(os.Stdout, logFile)
	}

	logger := slog.New(slog.NewJSONHandler(logOutput, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("server starting",
		"environment", cfg.Environment,
		"port", cfg.Port,
		"table_prefix", cfg.TablePrefix,
	)

	// Create JWT verifier
	jwtVerifier, err := auth.NewJWTVerifier(cfg.JWKSURL, logger)
	if err != nil {
		log.Fatalf("Failed to create JWT verifier: %v", err)
	}
	defer jwtVerifier.Close()

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

	// Create table names
	tables := postgres.NewTableNames(cfg.TablePrefix)

	// Create repositories
	repoConfig := &postgres.RepositoryConfig{
		Pool:   pool,
		Tables: tables,
		Logger: logger,
	}
	itemRepo := postgres.NewItemRepository(repoConfig)
	grantRepo := postgres.NewGrantRepository(repoConfig)
	txManager := postgres.NewTransactionManager(pool)

	// Initialize capability registry
	capabilityRegistry, err := capabilities.NewRegistry()
	if err != nil {
		log.Fatalf("Failed to initialize capability registry: %v", err)
	}
	logger.Info("capability registry initialized")

	// Hierarchy index: fed by post-commit snapshots, serves ancestry reads
	feed := hierarchy.NewFeed()
	defer feed.Close()

	index := hierarchy.NewIndex(feed, logger)
	index.Start()
	defer index.Close()

	// Seed the index with the current tree before serving
	stubs, err := itemRepo.ListStubs(ctx)
	if err != nil {
		log.Fatalf("Failed to load initial hierarchy snapshot: %v", err)
	}
	feed.Publish(stubs)
	logger.Info("hierarchy index seeded", "items", len(stubs))

	// Redis notifier for UI fanout
	notifier, err := notify.NewRedisNotifier(cfg.RedisURL, logger)
	if err != nil {
		log.Fatalf("Failed to connect to redis: %v", err)
	}
	defer notifier.Close()

	// Authorization
	evaluator := authz.NewEvaluator(capabilityRegistry, index)
	authorizer := serviceAuth.NewGrantAuthorizer(grantRepo, itemRepo, evaluator, logger)

	// Content service
	contentService := content.NewContentService(itemRepo, txManager, feed, notifier, logger)

	// Create handlers
	itemHandler := handler.NewItemHandler(contentService, authorizer, logger)
	authzHandler := handler.NewAuthzHandler(authorizer, logger)
	grantHandler := handler.NewGrantHandler(grantRepo, authorizer, capabilityRegistry, logger)

	logger.Info("services initialized")

	// Create HTTP router (Go 1.22+ enhanced patterns)
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("GET /health", handler.HealthCheck)

	// Item routes
	mux.HandleFunc("POST /api/items", itemHandler.CreateItem)
	mux.HandleFunc("GET /api/items/roots", itemHandler.GetRoots) // Must come before {id} route
	mux.HandleFunc("GET /api/items/{id}", itemHandler.GetItem)
	mux.HandleFunc("GET /api/items/{id}/children", itemHandler.GetChildren)
	mux.HandleFunc("PATCH /api/items/{id}", itemHandler.UpdateItem)
	mux.HandleFunc("POST /api/items/{id}/copy", itemHandler.CopyItem)
	mux.HandleFunc("DELETE /api/items/{id}", itemHandler.DeleteItem)
	mux.HandleFunc("PUT /api/items/{parentID}/order", itemHandler.SetOrder)
	mux.HandleFunc("POST /api/items/{id}/visibility", itemHandler.ToggleVisibility)
	mux.HandleFunc("PATCH /api/items/{id}/metadata", itemHandler.PatchMetadata)

	// Authorization query routes
	mux.HandleFunc("GET /api/authz/can", authzHandler.Can)
	mux.HandleFunc("GET /api/authz/can-add", authzHandler.CanAdd)

	// Grant admin routes
	mux.HandleFunc("GET /api/grants", grantHandler.ListGrants)
	mux.HandleFunc("POST /api/grants", grantHandler.CreateGrant)
	mux.HandleFunc("DELETE /api/grants/{id}", grantHandler.DeleteGrant)

	// Build middleware chain
	var httpHandler http.Handler = mux

	// Apply middleware in reverse order (they wrap each other)
	// Order: CORS -> Recovery -> Auth -> Routes
	httpHandler = middleware.AuthMiddleware(jwtVerifier)(httpHandler)
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
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server
	logger.Info("server listening", "port", cfg.Port)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Failed to start server: %v", err)
	}
}
