package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"homezoo/partner-portal/onboarding-service/internal/auth"
	"homezoo/partner-portal/onboarding-service/internal/backend"
	"homezoo/partner-portal/onboarding-service/internal/config"
	"homezoo/partner-portal/onboarding-service/internal/drafts"
	"homezoo/partner-portal/onboarding-service/internal/onboarding"
	"homezoo/partner-portal/onboarding-service/internal/storage"
	objectstore "homezoo/partner-portal/onboarding-service/pkg/storage"
)

func main() {
	configPath := flag.String("config", "config.json", "path to the JSON config file")
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		bootstrap, _ := zap.NewDevelopment()
		bootstrap.Fatal("Failed to load config", zap.Error(err))
	}

	// Initialize logger
	logger, err := newLogger(cfg.Logging.Level)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	if err := cfg.Validate(); err != nil {
		logger.Fatal("Invalid configuration", zap.Error(err))
	}
	if cfg.Storage.Bucket == "" || cfg.Storage.PublicURL == "" {
		logger.Fatal("storage.bucket and storage.public_url are required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Draft store
	store, janitor, err := openDraftStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to open draft store", zap.Error(err))
	}
	if janitor != nil {
		if err := janitor.Start(cfg.Drafts.PurgeSchedule); err != nil {
			logger.Fatal("Failed to start draft janitor", zap.Error(err))
		}
		defer janitor.Stop()
	}

	// Image storage
	s3, err := objectstore.NewS3Client(ctx, objectstore.S3Options{
		Region:    cfg.Storage.Region,
		Endpoint:  cfg.Storage.Endpoint,
		AccessKey: cfg.Storage.AccessKey,
		SecretKey: cfg.Storage.SecretKey,
		PathStyle: cfg.Storage.PathStyle,
	})
	if err != nil {
		logger.Fatal("Failed to create storage client", zap.Error(err))
	}
	uploader := storage.NewUploader(s3, storage.Options{
		Bucket:       cfg.Storage.Bucket,
		PublicURL:    cfg.Storage.PublicURL,
		MaxDimension: cfg.Storage.MaxDimension,
	}, logger)

	// Backend collaborators
	client := backend.NewClient(cfg.Backend.BaseURL, cfg.Backend.Timeout, logger)
	properties := backend.NewPropertyClient(client)
	locations := backend.NewLocationClient(client, cfg.Location.RequestsPerSecond, cfg.Location.Burst, logger)

	// Onboarding module
	registry := onboarding.NewRegistry(cfg.Sessions.IdleTTL, logger)
	registry.Start(time.Minute)
	service := onboarding.NewService(registry, onboarding.Dependencies{
		Properties: properties,
		Locations:  locations,
		UploadsFor: func(owner string) onboarding.Uploads { return uploader.ForFolder(owner) },
		Drafts:     store,
		DraftDelay: cfg.Drafts.Debounce,
	}, logger)
	handler := onboarding.NewHandler(service, cfg.Server.MaxUploadBytes, logger)

	// Setup Router
	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(logger))

	// CORS Middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With, "+onboarding.NativeShellHeader)
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, PATCH, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	// Register Routes
	api := router.Group("/api/v1")
	api.Use(auth.Middleware(auth.NewVerifier(cfg.Security.JWTSecret), logger))
	{
		handler.RegisterRoutes(api)
	}

	// Health Check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":    "healthy",
			"sessions":  registry.Len(),
			"timestamp": time.Now(),
		})
	})

	// Start Server
	srv := &http.Server{
		Addr:         cfg.Server.GetServerAddr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	logger.Info("Server started",
		zap.String("addr", srv.Addr),
		zap.String("drafts", cfg.Drafts.Driver))

	// Graceful Shutdown
	<-ctx.Done()
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}
	registry.Close(shutdownCtx)

	logger.Info("Server exiting")
}

func newLogger(level string) (*zap.Logger, error) {
	if level == "debug" {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	lvl, err := zap.ParseAtomicLevel(level)
	if err == nil {
		cfg.Level = lvl
	}
	return cfg.Build()
}

// openDraftStore returns the configured store and, for stores without native
// expiry, a janitor that purges abandoned drafts
func openDraftStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (drafts.Store, *drafts.Janitor, error) {
	switch cfg.Drafts.Driver {
	case "redis":
		client, err := drafts.NewRedisClient(ctx, drafts.RedisOptions{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return nil, nil, err
		}
		return drafts.NewRedisStore(client, cfg.Drafts.TTL), nil, nil

	case "postgres":
		db, err := drafts.OpenPostgres(cfg.Database.GetDatabaseURL(), cfg.Database.MaxConnections, cfg.Database.MaxIdleConns)
		if err != nil {
			return nil, nil, err
		}
		store, err := drafts.NewPostgresStore(db)
		if err != nil {
			return nil, nil, err
		}
		return store, drafts.NewJanitor(store, cfg.Drafts.TTL, logger), nil
	}

	store := drafts.NewMemoryStore()
	return store, drafts.NewJanitor(store, cfg.Drafts.TTL, logger), nil
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("partner_id", auth.PartnerID(c)))
	}
}
