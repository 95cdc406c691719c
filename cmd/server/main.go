package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"regexp"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/tharuncoder676/CWS/internal/auth"
	"github.com/tharuncoder676/CWS/internal/capstone"
	"github.com/tharuncoder676/CWS/internal/config"
	"github.com/tharuncoder676/CWS/internal/export"
	"github.com/tharuncoder676/CWS/internal/llm"
	"github.com/tharuncoder676/CWS/internal/logging"
	"github.com/tharuncoder676/CWS/internal/middleware"
	"github.com/tharuncoder676/CWS/internal/pipeline"
	"github.com/tharuncoder676/CWS/internal/references"
	"github.com/tharuncoder676/CWS/internal/runs"
	"github.com/tharuncoder676/CWS/internal/store"
)

func main() {
	cfg := config.Load()
	logger, err := logging.New(cfg.Env, cfg.LogVerbose)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── PostgreSQL ────────────────────────────────────────────
	pgPool, err := pgxpool.New(ctx, cfg.PostgresDSN)
	if err != nil {
		return fmt.Errorf("postgres connect: %w", err)
	}
	defer pgPool.Close()
	pgStore := store.NewPostgresStore(pgPool)
	if err := pgStore.Migrate(ctx); err != nil {
		return fmt.Errorf("postgres migrate: %w", err)
	}

	// ── MongoDB ──────────────────────────────────────────────
	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return fmt.Errorf("mongo connect: %w", err)
	}
	defer func() { _ = mongoClient.Disconnect(context.Background()) }()
	mongoStore := store.NewMongoStore(mongoClient.Database(cfg.MongoDB))
	if err := mongoStore.EnsureIndexes(ctx); err != nil {
		logger.Warn("mongo indexes", zap.Error(err))
	}

	// ── Redis ────────────────────────────────────────────────
	rdb, err := store.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword)
	if err != nil {
		return err
	}
	defer rdb.Close()
	sessions := auth.NewSessionStore(rdb)
	tracker := runs.NewTracker(rdb, cfg.RunTTL, logger.Named("runs"))

	// ── MinIO ────────────────────────────────────────────────
	exports, err := store.NewExportStore(ctx, store.ExportConfig{
		Endpoint:  cfg.MinioEndpoint,
		AccessKey: cfg.MinioAccessKey,
		SecretKey: cfg.MinioSecretKey,
		Bucket:    cfg.MinioBucket,
		UseSSL:    cfg.MinioUseSSL,
	})
	if err != nil {
		return fmt.Errorf("minio connect: %w", err)
	}

	// ── Generation pipeline ──────────────────────────────────
	backends, images, err := llm.NewBackends(ctx, llm.Settings{
		Provider:     cfg.LLM.Provider,
		BaseURL:      cfg.LLM.BaseURL,
		APIKey:       cfg.LLM.APIKey,
		FastModel:    cfg.LLM.FastModel,
		ContentModel: cfg.LLM.ContentModel,
		ImageModel:   cfg.LLM.ImageModel,
		Referer:      cfg.LLM.Referer,
		Title:        cfg.LLM.Title,
		Timeout:      cfg.LLM.Timeout,
	}, logger.Named("llm"))
	if err != nil {
		return err
	}
	pcfg := pipeline.DefaultConfig()
	pcfg.SectionDelay = cfg.SectionDelay
	pcfg.RetryDelay = cfg.RetryDelay
	pcfg.LLM.Timeout = cfg.LLM.Timeout
	opts := []pipeline.Option{
		pipeline.WithConfig(pcfg),
		pipeline.WithReferences(references.NewOpenAlex(cfg.OpenAlexEmail, logger.Named("openalex"))),
		pipeline.WithLogger(logger.Named("pipeline")),
	}
	if images != nil {
		opts = append(opts, pipeline.WithImages(images))
	}
	orchestrator := pipeline.New(backends, opts...)

	// ── LaTeX client ─────────────────────────────────────────
	var compiler capstone.Compiler
	if cfg.LaTeXServiceURL != "" {
		compiler = export.NewLaTeXClient(cfg.LaTeXServiceURL)
	}

	// ── Handlers ─────────────────────────────────────────────
	var emailPattern *regexp.Regexp
	if cfg.EmailPattern != "" {
		emailPattern, err = regexp.Compile(cfg.EmailPattern)
		if err != nil {
			return fmt.Errorf("ALLOWED_EMAIL_PATTERN: %w", err)
		}
	}
	authHandler := auth.NewHandler(pgStore, sessions, emailPattern, logger.Named("auth"))
	// Background runs outlive requests but stop with the process.
	runCtx, cancelRuns := context.WithCancel(context.Background())
	defer cancelRuns()
	reportHandler := capstone.NewHandler(runCtx, mongoStore, exports, orchestrator, tracker, compiler, logger.Named("reports"))

	// ── Router ───────────────────────────────────────────────
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(logging.AccessLog(logger.Named("http")))
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Auth routes (public)
	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)
		r.Post("/logout", authHandler.Logout)
		r.With(middleware.RequireAuth(sessions)).Get("/me", authHandler.Me)
		r.With(middleware.RequireAuth(sessions)).Put("/profile", authHandler.UpdateProfile)
	})

	// Report routes (protected)
	r.Route("/api/reports", func(r chi.Router) {
		r.Use(middleware.RequireAuth(sessions))
		reportHandler.Routes(r)
	})

	// ── Server ───────────────────────────────────────────────
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       5 * time.Minute,
		WriteTimeout:      5 * time.Minute,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("backend listening", zap.String("addr", srv.Addr), zap.Bool("llm_enabled", backends.Enabled()))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errc <- err
		}
	}()

	select {
	case err := <-errc:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutCtx); err != nil {
		logger.Warn("shutdown", zap.Error(err))
	}
	cancelRuns()
	reportHandler.Wait()
	return nil
}
