// cmd/server/server.go
package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/codr1/Rollcall/internal/api"
	apigames "github.com/codr1/Rollcall/internal/api/games"
	"github.com/codr1/Rollcall/internal/config"
	"github.com/codr1/Rollcall/internal/games"
	"github.com/codr1/Rollcall/internal/ratelimit"
)

// newServer builds the HTTP server. The returned limiter is nil when write
// rate limiting is disabled; callers close it on shutdown.
func newServer(cfg *config.Config, gameService *games.Service) (*http.Server, *ratelimit.Limiter) {
	router := http.NewServeMux()

	var limiter *ratelimit.Limiter
	middleware := []api.Middleware{}
	if cfg.RateLimit.Enabled {
		limiter = ratelimit.New(&ratelimit.Config{
			MaxWrites:  cfg.RateLimit.MaxWrites,
			Window:     cfg.RateLimit.Window,
			TrustProxy: cfg.RateLimit.TrustProxy,
		})
		middleware = append(middleware, limiter.Middleware)
	}

	// Setup middleware chain
	middleware = append(middleware,
		api.WithUser,
		api.WithLogging,
		api.WithRecovery,
		api.WithRequestID,
	)
	handler := api.ChainMiddleware(router, middleware...)

	apigames.InitHandlers(gameService)
	registerRoutes(router)

	return &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}, limiter
}

func registerRoutes(mux *http.ServeMux) {
	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	apigames.RegisterRoutes(mux)
}
