// internal/monitoring/server.go
package monitoring

import (
	"context"
	"encoding/json"
	"net/http"
	"runtime"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/propdata/agentharvest/internal/utils"
)

// ServerConfig defines the monitoring endpoint.
type ServerConfig struct {
	Address string
	Version string
}

// Server serves /metrics, /healthz and /status while a crawl runs.
type Server struct {
	httpServer *http.Server
	metrics    *Metrics
	version    string
	started    time.Time
	log        utils.Logger
}

// NewServer builds the monitoring server over the given instruments.
func NewServer(config ServerConfig, metrics *Metrics, log utils.Logger) *Server {
	if config.Address == "" {
		config.Address = ":9090"
	}
	if log == nil {
		log = utils.NewComponentLogger("monitoring")
	}

	s := &Server{
		metrics: metrics,
		version: config.Version,
		started: time.Now(),
		log:     log,
	}

	router := mux.NewRouter()
	router.HandleFunc("/healthz", s.handleHealth).Methods("GET")
	router.HandleFunc("/status", s.handleStatus).Methods("GET")
	if reg := metrics.Registry(); reg != nil {
		router.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{})).Methods("GET")
	}

	s.httpServer = &http.Server{
		Addr:         config.Address,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	return s
}

// Start serves until the context ends, then shuts down cleanly. It
// blocks and is intended to run in its own goroutine.
func (s *Server) Start(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.httpServer.Shutdown(shutdownCtx)
	}()

	s.log.WithField("address", s.httpServer.Addr).Info("monitoring server listening")

	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
	})
}

// handleStatus reports process-level information. Live crawl counters
// belong to /metrics; the crawl state itself is owned by the single
// worker and is not read from here.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"version":        s.version,
		"started":        s.started.UTC(),
		"uptime_seconds": int64(time.Since(s.started).Seconds()),
		"goroutines":     runtime.NumGoroutine(),
		"memory_alloc":   mem.Alloc,
	})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
