package server

import (
	"net/http"

	"github.com/cloo-solutions/rerankd/internal/api"
	"github.com/cloo-solutions/rerankd/internal/api/handlers"
	"github.com/cloo-solutions/rerankd/internal/api/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type RouterConfig struct {
	Logger          *zap.Logger
	Gatherer        prometheus.Gatherer
	RerankHandler   *handlers.RerankHandler
	SearchHandler   *handlers.SearchHandler
	FeedbackHandler *handlers.FeedbackHandler
	ResultHandler   *handlers.ResultHandler
	// MaxBodyBytes caps request bodies; zero means 5 MiB.
	MaxBodyBytes int64
}

const defaultMaxBodyBytes int64 = 5 << 20

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	maxBodyBytes := cfg.MaxBodyBytes
	if maxBodyBytes <= 0 {
		maxBodyBytes = defaultMaxBodyBytes
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog(logger))
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		api.Error(w, http.StatusNotFound, "no route for "+r.URL.Path)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		api.Error(w, http.StatusMethodNotAllowed, r.Method+" not allowed on "+r.URL.Path)
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	if cfg.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Post("/search_reranking", cfg.RerankHandler.Rerank)
	r.Post("/add_search", cfg.SearchHandler.AddSearch)
	r.Post("/add_feedback", cfg.FeedbackHandler.AddFeedback)
	r.Get("/feedback/export", cfg.FeedbackHandler.Export)
	r.Get("/results/{id}", cfg.ResultHandler.Get)

	return r
}
