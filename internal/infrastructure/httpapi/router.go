package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/eulucasalbert/tiktok-lovable-railway/internal/infrastructure/config"
	obs "github.com/eulucasalbert/tiktok-lovable-railway/internal/infrastructure/observability"
	"github.com/eulucasalbert/tiktok-lovable-railway/internal/usecase"
)

type Deps struct {
	Cfg      config.Config
	Logger   *zerolog.Logger
	Metrics  *obs.Metrics
	Sessions usecase.SessionRepository
	Events   usecase.EventRepository
	Manager  *usecase.Manager
	Battle   *usecase.BattleMachine
}

func NewRouter(d *Deps) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	mux.Handle("/metrics", promhttp.HandlerFor(d.Metrics.Registry(), promhttp.HandlerOpts{}))

	mux.HandleFunc("/api/version", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"name":    "battle-bridge",
			"version": obs.Version,
			"time":    time.Now().UTC(),
		})
	})

	// Session rows are the external trigger surface: inserting a pending
	// session asks the watcher to connect, writing a terminal status asks
	// it to tear down.
	mux.HandleFunc("/api/sessions", d.handleSessions)
	mux.HandleFunc("/api/sessions/", d.handleSessionByID)

	mux.HandleFunc("/api/battle", d.handleBattle)

	return withCORS(d.Cfg, mux)
}

func withCORS(cfg config.Config, h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", cfg.CORSAllowOrigin)
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		h.ServeHTTP(w, r)
	})
}
