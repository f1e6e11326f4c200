// Package api serves colorful diagrams over HTTP and websockets.
package api

import (
	"fmt"
	"net/http"

	"github.com/FocuswithJustin/colordep/internal/logging"
)

// Start starts the API server with the given configuration.
func Start(cfg Config) error {
	handler := NewHandler(cfg)

	protocol := "http"
	logging.ServerStartup("rest_api", protocol, cfg.Port,
		"websocket_protocol", "ws",
		"rate_limit", cfg.RateLimitRequests,
		"allowed_origins", len(cfg.AllowedOrigins))

	addr := fmt.Sprintf(":%d", cfg.Port)
	return http.ListenAndServe(addr, handler)
}

// NewHandler installs cfg, starts the websocket hub and returns the full
// middleware chain around the routes.
func NewHandler(cfg Config) http.Handler {
	ServerConfig = cfg

	GlobalHub = NewHub()
	go GlobalHub.Run()

	var handler http.Handler = securityHeaders(setupRoutes())

	if cfg.RateLimitRequests > 0 {
		rl := RateLimiterConfig{
			RequestsPerMinute: cfg.RateLimitRequests,
			BurstSize:         cfg.RateLimitBurst,
		}
		if rl.BurstSize == 0 {
			rl.BurstSize = 10
		}
		handler = NewRateLimiter(rl).Middleware(handler)
		logging.Info("rate limiting enabled",
			"requests_per_minute", rl.RequestsPerMinute,
			"burst_size", rl.BurstSize)
	}

	handler = corsMiddleware(cfg, handler)
	return logging.CombinedMiddleware(handler)
}

// setupRoutes configures all HTTP routes.
func setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/", handleRoot)
	mux.HandleFunc("/health", handleHealth)
	mux.HandleFunc("/palette", handlePalette)
	mux.HandleFunc("/render", handleRender)
	mux.HandleFunc("/colorize", handleColorize)
	mux.HandleFunc("/ws", handleWebSocket)

	return mux
}

// corsMiddleware answers preflight requests and sets CORS headers. With
// an origin list, requests from other origins get no CORS headers.
func corsMiddleware(cfg Config, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		allowed := "*"
		if len(cfg.AllowedOrigins) > 0 {
			if !cfg.originAllowed(origin) {
				if r.Method == http.MethodOptions {
					w.WriteHeader(http.StatusForbidden)
					return
				}
				next.ServeHTTP(w, r)
				return
			}
			allowed = origin
		}

		w.Header().Set("Access-Control-Allow-Origin", allowed)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, If-None-Match, X-Request-ID")
		w.Header().Set("Access-Control-Expose-Headers", "ETag, X-Colorize-Status, X-Diagram-Mode, X-Request-ID")
		if allowed != "*" {
			w.Header().Set("Vary", "Origin")
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// diagramCSP lets served pages use their inline styles and nothing else.
const diagramCSP = "default-src 'none'; style-src 'unsafe-inline'; img-src data:; frame-ancestors 'none'; base-uri 'none'; form-action 'none'"

func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", diagramCSP)
		w.Header().Set("Referrer-Policy", "no-referrer")
		next.ServeHTTP(w, r)
	})
}
