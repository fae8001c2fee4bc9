package metrics

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"gallon-leak-watch/internal/monitor"
)

// StatusFunc supplies the current monitor snapshot for the /status surface.
type StatusFunc func() monitor.Status

// Server serves /metrics and /status for scrapers and live displays.
type Server struct {
	srv    *http.Server
	logger zerolog.Logger
}

// statusView is the JSON shape presentation layers poll.
type statusView struct {
	Monitoring       bool    `json:"monitoring"`
	State            string  `json:"state"`
	InventoryID      string  `json:"inventory_id,omitempty"`
	CurrentPressure  float64 `json:"current_pressure"`
	BaselinePressure float64 `json:"baseline_pressure"`
	DropPct          float64 `json:"pressure_drop_pct"`
	ElapsedSeconds   float64 `json:"elapsed_seconds"`
	LeakDetected     bool    `json:"leak_detected"`
}

// NewServer builds the HTTP endpoint.
func NewServer(addr string, m *Metrics, status StatusFunc, logger zerolog.Logger) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.Registry(), promhttp.HandlerOpts{}))
	mux.HandleFunc("/status", func(w http.ResponseWriter, _ *http.Request) {
		snapshot := status()
		view := statusView{
			Monitoring:       snapshot.Monitoring,
			State:            string(snapshot.State),
			InventoryID:      snapshot.AssetID,
			CurrentPressure:  snapshot.CurrentPressure,
			BaselinePressure: snapshot.BaselinePressure,
			DropPct:          snapshot.DropPct,
			ElapsedSeconds:   snapshot.Elapsed.Seconds(),
			LeakDetected:     snapshot.LeakDetected,
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(view)
	})

	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
		logger: logger.With().Str("component", "metrics_server").Logger(),
	}
}

// Start serves in the background until Shutdown.
func (s *Server) Start() {
	go func() {
		s.logger.Info().Str("addr", s.srv.Addr).Msg("metrics endpoint listening")
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error().Err(err).Msg("metrics endpoint failed")
		}
	}()
}

// Shutdown stops the endpoint gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
