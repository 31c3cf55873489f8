package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"codecraft-ai/internal/infra/api/apiv1"
	"codecraft-ai/internal/infra/metrics"
	"codecraft-ai/internal/infra/web"
)

type RouterConfig struct {
	CORSOrigins    []string
	RequestTimeout time.Duration
}

// NewRouter builds the gateway HTTP handler.
func NewRouter(cfg RouterConfig, srv apiv1.ServerInterface, authMgr *web.AuthManager, logger *zerolog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(
		Recover(logger),
		TraceID(),
		RequestLog(logger),
		cors.Handler(cors.Options{
			AllowedOrigins:   cfg.CORSOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"*"},
			ExposedHeaders:   []string{"X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           300,
		}),
	)

	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		web.WriteJSON(w, http.StatusOK, apiv1.MessageResponse{Message: "Welcome to CodeCraft AI Backend"})
	})
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		web.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	var jsonMWs []func(http.Handler) http.Handler
	if cfg.RequestTimeout > 0 {
		jsonMWs = append(jsonMWs, Timeout(cfg.RequestTimeout))
	}
	apiv1.RegisterAPIV1(r, srv, authMgr.Middleware, jsonMWs...)
	return r
}
