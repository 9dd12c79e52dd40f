package gateway

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"tierpass/gateway/middleware"
)

// Config wires the gateway router: the RPC compatibility handler plus the
// middleware stack applied to it.
type Config struct {
	RPCHandler    http.Handler
	Authenticator *middleware.Authenticator
	RateLimiter   *middleware.RateLimiter
	Observability *middleware.Observability
}

// New assembles the gateway router. The /rpc route carries the full middleware
// stack; /healthz and /metrics stay unauthenticated for probes and scrapers.
func New(cfg Config) http.Handler {
	r := chi.NewRouter()

	obs := cfg.Observability
	if obs != nil {
		r.Use(obs.Middleware("root"))
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	if cfg.RPCHandler != nil {
		r.Route("/rpc", func(sr chi.Router) {
			if cfg.RateLimiter != nil {
				sr.Use(cfg.RateLimiter.Middleware())
			}
			if cfg.Authenticator != nil {
				sr.Use(cfg.Authenticator.Middleware())
			}
			if obs != nil {
				sr.Use(obs.Middleware("rpc"))
			}
			sr.Handle("/", cfg.RPCHandler)
		})
	}

	if obs != nil {
		r.Handle("/metrics", obs.MetricsHandler())
	}

	return r
}
