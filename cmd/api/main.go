package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"nutrition-call-assistant/internal/adapters/ai/elevenlabs"
	"nutrition-call-assistant/internal/adapters/ai/groq"
	"nutrition-call-assistant/internal/adapters/ai/openai"
	dedupemem "nutrition-call-assistant/internal/adapters/dedupe/memory"
	dedupredis "nutrition-call-assistant/internal/adapters/dedupe/redis"
	"nutrition-call-assistant/internal/adapters/shortener/tinyurl"
	"nutrition-call-assistant/internal/adapters/signature/retell"
	"nutrition-call-assistant/internal/adapters/storage/local"
	mem "nutrition-call-assistant/internal/adapters/storage/memory"
	pg "nutrition-call-assistant/internal/adapters/storage/postgres"
	s3store "nutrition-call-assistant/internal/adapters/storage/s3"
	"nutrition-call-assistant/internal/domain/analysis"
	"nutrition-call-assistant/internal/domain/images"
	"nutrition-call-assistant/internal/domain/webhook"
	"nutrition-call-assistant/internal/platform/config"
	"nutrition-call-assistant/internal/platform/eventbus"
	"nutrition-call-assistant/internal/platform/logger"
	"nutrition-call-assistant/internal/platform/metrics"
	"nutrition-call-assistant/internal/ports/ai"
	"nutrition-call-assistant/internal/ports/dedupe"
	"nutrition-call-assistant/internal/ports/signature"
	"nutrition-call-assistant/internal/ports/storage"
	"nutrition-call-assistant/internal/router"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// Sin GROQ_API_KEY (u otra config inválida) no arrancamos.
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	lg, err := logger.New(logger.Options{
		Level:  logger.ParseLevel(cfg.LogLevel),
		Format: logger.ParseFormat(cfg.LogFormat),
		App:    cfg.AppName,
	})
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = lg.Sync() }()

	if err := run(cfg, lg); err != nil {
		lg.Error("server stopped with error", map[string]any{"err": err})
		_ = lg.Sync()
		os.Exit(1)
	}
}

func run(cfg config.Config, lg logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	m := metrics.NewRegistry()
	bus := eventbus.New(lg, m)

	// Dedupe: Redis si hay REDIS_ADDR (varias réplicas), si no en memoria.
	var sup dedupe.Suppressor
	if cfg.RedisAddr != "" {
		rs, err := dedupredis.New(ctx, cfg.RedisAddr, cfg.DedupeWindow, lg)
		if err != nil {
			return err
		}
		defer rs.Close()
		sup = rs
	} else {
		ms := dedupemem.New(cfg.DedupeWindow)
		g.Go(func() error { return ms.Run(gctx, 0) })
		sup = ms
	}

	// Food log: Postgres si hay DB_DSN, si no en memoria.
	var repo analysis.Repository
	if cfg.DBDSN != "" {
		db, err := openDB(ctx, cfg.DBDSN)
		if err != nil {
			return err
		}
		defer db.Close()
		repo = pg.NewAnalysesRepo(db)
	} else {
		repo = mem.NewAnalysesRepo(0)
	}

	store, uploadDir, err := newImageStore(ctx, cfg)
	if err != nil {
		return err
	}

	completer, err := groq.NewClient(groq.Config{
		BaseURL: cfg.GroqBaseURL,
		APIKey:  cfg.GroqAPIKey,
		Model:   cfg.GroqModel,
		Timeout: cfg.UpstreamTimeout,
	}, m)
	if err != nil {
		return err
	}

	var vision ai.VisionDescriber
	if cfg.OpenAIAPIKey != "" {
		c, err := openai.NewClient(openai.Config{
			BaseURL: cfg.OpenAIBaseURL,
			APIKey:  cfg.OpenAIAPIKey,
			Model:   cfg.OpenAIVisionModel,
			Timeout: cfg.UpstreamTimeout,
		}, m)
		if err != nil {
			return err
		}
		vision = c
	}

	var speech ai.SpeechSynthesizer
	if cfg.TTSAPIKey != "" {
		c, err := elevenlabs.NewClient(elevenlabs.Config{
			BaseURL: cfg.TTSBaseURL,
			APIKey:  cfg.TTSAPIKey,
			VoiceID: cfg.TTSVoiceID,
			Model:   cfg.TTSModel,
			Timeout: cfg.UpstreamTimeout,
		}, m)
		if err != nil {
			return err
		}
		speech = c
	}

	// Sin key, /webhook acepta sin firma (modo dev).
	var verifier signature.Verifier
	if cfg.RetellAPIKey != "" {
		verifier = retell.NewVerifier(cfg.RetellAPIKey)
	} else {
		lg.Warn("RETELL_API_KEY not set, webhook signatures are not verified", nil)
	}

	imagesSvc := images.NewService(store, tinyurl.NewClient(tinyurl.Config{Endpoint: cfg.ShortenerURL}, m), bus, lg)
	webhookSvc := webhook.NewService(bus, sup, webhook.Defaults{
		Age:    cfg.DefaultUserAge,
		Weight: cfg.DefaultUserWeight,
		Height: cfg.DefaultUserHeight,
		Name:   cfg.DefaultUserName,
		Gender: cfg.DefaultUserGender,
	}, lg, m)
	analysisSvc := analysis.NewService(analysis.Deps{
		Completer: completer,
		Vision:    vision,
		Speech:    speech,
		Images:    imagesSvc,
		Repo:      repo,
		Bus:       bus,
		Log:       lg,
	})

	if cfg.AutoAnalyzeUploads {
		auto := analysis.NewAutoAnalyzer(analysisSvc, bus, cfg.AutoAnalyzeDebounce, cfg.UpstreamTimeout)
		defer auto.Stop()
		lg.Info("auto analysis of uploads enabled", map[string]any{"debounce": cfg.AutoAnalyzeDebounce.String()})
	}

	srv := &http.Server{
		Addr: cfg.Addr(),
		Handler: router.NewRouter(router.Options{
			Logger:         lg,
			Metrics:        m,
			Bus:            bus,
			Webhook:        webhookSvc,
			Images:         imagesSvc,
			Analysis:       analysisSvc,
			Verifier:       verifier,
			FrontendOrigin: cfg.FrontendOrigin,
			StreamBuffer:   cfg.StreamBuffer,
			UploadDir:      uploadDir,
		}),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      cfg.UpstreamTimeout + 30*time.Second,
		// Los streams abiertos terminan al recibir la señal.
		BaseContext: func(net.Listener) context.Context { return gctx },
	}

	g.Go(func() error {
		lg.Info("starting server", map[string]any{"addr": srv.Addr, "image_store": cfg.ImageStore})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		lg.Info("shutting down", nil)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func openDB(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := pg.Open(ctx, dsn)
	if err != nil {
		return nil, err
	}
	if err := pg.Migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// newImageStore devuelve también el directorio a servir en /uploads/ (vacío con S3).
func newImageStore(ctx context.Context, cfg config.Config) (storage.ImageStore, string, error) {
	if cfg.ImageStore == "s3" {
		s, err := s3store.NewImageStore(ctx, s3store.Config{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			PublicURL: cfg.S3PublicURL,
		})
		return s, "", err
	}
	s, err := local.NewImageStore(cfg.UploadDir, cfg.PublicBaseURL)
	return s, cfg.UploadDir, err
}
