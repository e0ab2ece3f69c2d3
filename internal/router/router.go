package router

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "nutrition-call-assistant/docs"
	"nutrition-call-assistant/internal/domain/analysis"
	"nutrition-call-assistant/internal/domain/images"
	"nutrition-call-assistant/internal/domain/macros"
	"nutrition-call-assistant/internal/domain/stream"
	"nutrition-call-assistant/internal/domain/webhook"
	"nutrition-call-assistant/internal/middleware"
	"nutrition-call-assistant/internal/platform/eventbus"
	"nutrition-call-assistant/internal/platform/logger"
	"nutrition-call-assistant/internal/platform/metrics"
	"nutrition-call-assistant/internal/ports/signature"
)

type Options struct {
	Logger  logger.Logger     // puede ser nil
	Metrics *metrics.Registry // puede ser nil (sin /metrics)

	Bus      *eventbus.Bus
	Webhook  *webhook.Service
	Images   *images.Service
	Analysis *analysis.Service

	// Si es nil, /webhook no verifica firma (modo dev).
	Verifier signature.Verifier

	FrontendOrigin string
	StreamBuffer   int

	// Directorio servido en /uploads/ (store local). Vacío: no se monta.
	UploadDir string
}

func NewRouter(opts Options) http.Handler {
	log := opts.Logger
	if log == nil {
		log = logger.NewNop()
	}

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(log))
	r.Use(middleware.Recover(log))
	r.Use(cors.Handler(corsOptions(opts.FrontendOrigin)))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics.Handler())
	}
	r.Get("/swagger/*", httpSwagger.WrapHandler)

	if dir := strings.TrimSpace(opts.UploadDir); dir != "" {
		r.Handle("/uploads/*", http.StripPrefix("/uploads/", http.FileServer(http.Dir(dir))))
	}

	// Rutas por módulo
	if opts.Webhook != nil {
		webhook.RegisterRoutes(r, opts.Webhook, middleware.WebhookSignature(opts.Verifier, log))
	}
	if opts.Bus != nil {
		notifier := stream.NewNotifier(opts.Bus, log, opts.Metrics, opts.StreamBuffer)
		stream.RegisterRoutes(r, notifier, stream.RouteOptions{AllowedOrigin: opts.FrontendOrigin})
	}
	if opts.Images != nil {
		images.RegisterRoutes(r, opts.Images)
	}
	if opts.Analysis != nil {
		analysis.RegisterRoutes(r, opts.Analysis)
	}
	macros.RegisterRoutes(r)

	return r
}

func corsOptions(origin string) cors.Options {
	origin = strings.TrimRight(strings.TrimSpace(origin), "/")
	if origin == "" {
		origin = "*"
	}
	return cors.Options{
		AllowedOrigins:   []string{origin},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-Id", "X-Retell-Signature"},
		AllowCredentials: origin != "*",
		MaxAge:           300,
	}
}
