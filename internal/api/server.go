// Package api exposes the engine over HTTP and a websocket stream.
package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"trade-montecarlo-lab/internal/domain"
	"trade-montecarlo-lab/internal/observability"
	"trade-montecarlo-lab/internal/orchestrator"
	"trade-montecarlo-lab/internal/reporting"
	"trade-montecarlo-lab/internal/sweep"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// DefaultBreakevenRatios is used by /v1/breakeven when no rr is given.
var DefaultBreakevenRatios = []float64{1, 1.5, 2, 2.5, 3, 4, 5}

// Limits bounds the work a single request may ask for.
type Limits struct {
	MaxSimulations   int
	MaxTrades        int
	MaxSweepCells    int
	MaxStreamPaths   int
	MaxResponsePaths int
}

// Options contains configuration for creating a Server.
type Options struct {
	Orchestrator *orchestrator.Orchestrator
	Defaults     domain.SimulationParameters // fills fields a request leaves out
	SweepGrid    sweep.Grid                  // default grid for sweep requests
	Limits       Limits
	Logger       *zap.Logger

	// WriteTimeout bounds each websocket frame write.
	WriteTimeout time.Duration

	// AllowedOrigins lists the Origin values accepted on /v1/stream.
	// Empty accepts only same-host origins; "*" accepts any.
	AllowedOrigins []string
}

// Server serves the engine API.
type Server struct {
	orch         *orchestrator.Orchestrator
	defaults     domain.SimulationParameters
	sweepGrid    sweep.Grid
	limits       Limits
	logger       *zap.Logger
	reports      *reporting.Generator
	upgrader     websocket.Upgrader
	writeTimeout time.Duration

	// State
	mu           sync.Mutex
	started      time.Time
	simulateRuns int
	sweepRuns    int
	streamRuns   int
	lastRunID    string
	lastRunAt    time.Time
}

// New creates a new Server.
func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	orch := opts.Orchestrator
	if orch == nil {
		orch = orchestrator.New(orchestrator.Options{Logger: logger})
	}
	writeTimeout := opts.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = 10 * time.Second
	}
	return &Server{
		orch:         orch,
		defaults:     opts.Defaults,
		sweepGrid:    opts.SweepGrid,
		limits:       opts.Limits,
		logger:       logger.Named("api"),
		reports:      reporting.NewGenerator(),
		upgrader:     websocket.Upgrader{CheckOrigin: originChecker(opts.AllowedOrigins)},
		writeTimeout: writeTimeout,
		started:      time.Now(),
	}
}

// originChecker accepts requests without an Origin header, origins on the
// allowed list, and origins whose host matches the request host.
func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, a := range allowed {
			if a == "*" || strings.EqualFold(a, origin) {
				return true
			}
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return strings.EqualFold(u.Host, r.Host)
	}
}

// Handler returns the routed handler wrapped in request ID, logging and metrics middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	// Prometheus metrics
	mux.Handle("GET /metrics", observability.Handler())

	// Status endpoint
	mux.HandleFunc("GET /status", s.handleStatus)

	// Engine
	mux.HandleFunc("POST /v1/simulate", s.handleSimulate)
	mux.HandleFunc("POST /v1/sweep", s.handleSweep)
	mux.HandleFunc("GET /v1/breakeven", s.handleBreakeven)
	mux.HandleFunc("GET /v1/stream", s.handleStream)

	return s.middleware(mux)
}

// StatusResponse is the JSON response for /status endpoint.
type StatusResponse struct {
	Status       string    `json:"status"`
	Uptime       string    `json:"uptime"`
	Started      time.Time `json:"started"`
	SimulateRuns int       `json:"simulate_runs"`
	SweepRuns    int       `json:"sweep_runs"`
	StreamRuns   int       `json:"stream_runs"`
	LastRunID    string    `json:"last_run_id,omitempty"`
	LastRunAt    time.Time `json:"last_run_at,omitempty"`
}

// handleStatus returns server status as JSON.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	resp := StatusResponse{
		Status:       "running",
		Uptime:       time.Since(s.started).Round(time.Second).String(),
		Started:      s.started,
		SimulateRuns: s.simulateRuns,
		SweepRuns:    s.sweepRuns,
		StreamRuns:   s.streamRuns,
		LastRunID:    s.lastRunID,
		LastRunAt:    s.lastRunAt,
	}
	s.mu.Unlock()

	s.writeJSON(w, r, http.StatusOK, resp)
}

// SimulateRequest asks for one batch. Omitted parameters take server defaults;
// an empty body runs the defaults as they are.
type SimulateRequest struct {
	domain.SimulationParameters
	Seed  uint64 `json:"seed"`
	Paths int    `json:"paths"` // number of raw paths to return, capped by the server
}

// SimulateResponse carries the report and optionally the first paths.
type SimulateResponse struct {
	*reporting.Report
	Paths []domain.Path `json:"paths,omitempty"`
}

func (s *Server) handleSimulate(w http.ResponseWriter, r *http.Request) {
	req := SimulateRequest{SimulationParameters: s.defaults}
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	if err := s.checkSimulateLimits(req.SimulationParameters); err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}

	result, err := s.orch.Run(r.Context(), req.SimulationParameters, req.Seed)
	if err != nil {
		s.writeError(w, r, statusFor(err), err)
		return
	}
	s.recordRun(&s.simulateRuns, result.RunID)

	report := s.reports.Simulation(result)
	resp := SimulateResponse{Report: report}
	if n := min(req.Paths, s.limits.MaxResponsePaths, len(result.Batch.Paths)); n > 0 {
		resp.Paths = result.Batch.Paths[:n]
	}

	s.writeJSON(w, r, http.StatusOK, resp)
}

// SweepRequest asks for a risk × winrate grid. Omitted fields take server defaults.
type SweepRequest struct {
	StartingBalance float64 `json:"starting_balance"`
	RewardRiskRatio float64 `json:"reward_risk_ratio"`
	sweep.Grid
	Seed uint64 `json:"seed"`
}

func (s *Server) handleSweep(w http.ResponseWriter, r *http.Request) {
	req := SweepRequest{
		StartingBalance: s.defaults.StartingBalance,
		RewardRiskRatio: s.defaults.RewardRiskRatio,
		Grid: sweep.Grid{
			RiskPcts:      slices.Clone(s.sweepGrid.RiskPcts),
			WinratePcts:   slices.Clone(s.sweepGrid.WinratePcts),
			TrialsPerCell: s.sweepGrid.TrialsPerCell,
			TradesPerCell: s.sweepGrid.TradesPerCell,
		},
	}
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	if err := s.checkSweepLimits(req.Grid); err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}

	base := s.defaults
	base.StartingBalance = req.StartingBalance
	base.RewardRiskRatio = req.RewardRiskRatio

	result, err := s.orch.Sweep(r.Context(), base, req.Grid, req.Seed)
	if err != nil {
		s.writeError(w, r, statusFor(err), err)
		return
	}
	s.recordRun(&s.sweepRuns, result.SweepID)

	s.writeJSON(w, r, http.StatusOK, s.reports.Sweep(result))
}

func (s *Server) handleBreakeven(w http.ResponseWriter, r *http.Request) {
	values := r.URL.Query()["rr"]
	ratios := DefaultBreakevenRatios
	if len(values) > 0 {
		ratios = make([]float64, 0, len(values))
		for _, v := range values {
			rr, err := strconv.ParseFloat(v, 64)
			if err != nil || rr < 0 || math.IsNaN(rr) || math.IsInf(rr, 0) {
				s.writeError(w, r, http.StatusBadRequest,
					domain.NewInvalidParameter(fmt.Sprintf("rr must be a number >= 0, got %q", v)))
				return
			}
			ratios = append(ratios, rr)
		}
	}

	s.writeJSON(w, r, http.StatusOK, reporting.Breakeven(ratios))
}

func (s *Server) checkSimulateLimits(p domain.SimulationParameters) error {
	var v []string
	if p.SimulationCount > s.limits.MaxSimulations {
		v = append(v, fmt.Sprintf("simulation_count must be <= %d, got %d", s.limits.MaxSimulations, p.SimulationCount))
	}
	if p.TradeCount > s.limits.MaxTrades {
		v = append(v, fmt.Sprintf("trade_count must be <= %d, got %d", s.limits.MaxTrades, p.TradeCount))
	}
	if len(v) > 0 {
		return domain.NewInvalidParameter(v...)
	}
	return nil
}

func (s *Server) checkSweepLimits(g sweep.Grid) error {
	var v []string
	if cells := len(g.RiskPcts) * len(g.WinratePcts); cells > s.limits.MaxSweepCells {
		v = append(v, fmt.Sprintf("grid must have <= %d cells, got %d", s.limits.MaxSweepCells, cells))
	}
	if g.TrialsPerCell > s.limits.MaxSimulations {
		v = append(v, fmt.Sprintf("trials_per_cell must be <= %d, got %d", s.limits.MaxSimulations, g.TrialsPerCell))
	}
	if g.TradesPerCell > s.limits.MaxTrades {
		v = append(v, fmt.Sprintf("trades_per_cell must be <= %d, got %d", s.limits.MaxTrades, g.TradesPerCell))
	}
	if len(v) > 0 {
		return domain.NewInvalidParameter(v...)
	}
	return nil
}

func (s *Server) recordRun(counter *int, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	*counter++
	s.lastRunID = id
	s.lastRunAt = time.Now()
}

// statusFor maps engine errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidParameter):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNonFiniteResult):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// ErrorResponse is the JSON body of every error reply.
type ErrorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, err error) {
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", zap.String("request_id", RequestID(r.Context())), zap.Error(err))
	}
	s.writeJSON(w, r, status, ErrorResponse{Error: err.Error(), RequestID: RequestID(r.Context())})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode request: %w", err)
	}
	return nil
}

// writeJSON buffers the encoded body; an encoding failure is answered with a 500 ErrorResponse.
func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, status int, v interface{}) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		requestID := RequestID(r.Context())
		s.logger.Error("encode response", zap.String("request_id", requestID), zap.Error(err))

		status = http.StatusInternalServerError
		buf.Reset()
		json.NewEncoder(&buf).Encode(ErrorResponse{Error: "encode response: " + err.Error(), RequestID: requestID})
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(buf.Bytes())
}
