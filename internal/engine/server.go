package engine

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// ScenarioPaths — корень и исторический путь serverless-функции.
var ScenarioPaths = []string{"/", "/api/process_ftx"}

// NewRouter собирает HTTP-периметр сервиса.
func NewRouter(ep *ScenarioEndpoint, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// Порядок важен: RealIP -> Recoverer -> Trace -> AccessLog
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(TracingMiddleware)
	r.Use(AccessLog(logger.Named("http")))

	for _, path := range ScenarioPaths {
		r.Post(path, ep.HandleSubmit)
		r.Options(path, ep.HandlePreflight)
	}

	// Healthcheck для балансировщика
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	return r
}
