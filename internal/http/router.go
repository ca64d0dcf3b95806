package httpserver

import (
	"context"
	"log"
	"net/http"

	"github.com/iago/media-console/internal/http/handlers"
	"github.com/iago/media-console/internal/http/middleware"
)

type RouterDependencies struct {
	API            *handlers.API
	Logger         *log.Logger
	AuthToken      string
	CORSOrigins    []string
	RateLimitRPS   float64
	RateLimitBurst int

	// Context bounds background middleware work such as the rate limiter
	// sweep. Defaults to context.Background.
	Context context.Context
}

func NewRouter(deps RouterDependencies) http.Handler {
	ctx := deps.Context
	if ctx == nil {
		ctx = context.Background()
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", deps.API.Health)
	mux.HandleFunc("/v1/clients", deps.API.Clients)
	mux.HandleFunc("/v1/clients/", deps.API.ClientByID)
	mux.HandleFunc("/v1/clients/refresh", deps.API.RefreshClients)
	mux.HandleFunc("/v1/prompts", deps.API.Prompts)
	mux.HandleFunc("/v1/prompts/", deps.API.PromptByName)
	mux.HandleFunc("/v1/metrics", deps.API.Metrics)
	mux.HandleFunc("/v1/analysis", deps.API.Analysis)
	mux.HandleFunc("/v1/analysis/history", deps.API.AnalysisHistory)
	mux.HandleFunc("/v1/reports", deps.API.Reports)
	mux.HandleFunc("/v1/reports/content", deps.API.ReportContent)
	mux.HandleFunc("/v1/notifications", deps.API.Notifications)

	handler := http.Handler(mux)
	handler = middleware.Auth(deps.AuthToken)(handler)
	handler = middleware.RateLimit(ctx, deps.RateLimitRPS, deps.RateLimitBurst)(handler)
	handler = middleware.CORS(middleware.CORSConfig{
		AllowedOrigins: deps.CORSOrigins,
	})(handler)
	handler = middleware.Trace(deps.Logger)(handler)
	handler = middleware.RequestID(handler)

	return handler
}
