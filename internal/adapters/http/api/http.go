// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/okian/slumber/internal/domain/habit"
	"github.com/okian/slumber/internal/domain/model"
	"github.com/okian/slumber/pkg/logger"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// Predict classifies a record. A *habit.FieldError means bad input.
	Predict(ctx context.Context, rec habit.Record) (model.Prediction, error)

	// Read operations expose prediction history.
	Get(ctx context.Context, id string) (model.Prediction, error)
	Recent(ctx context.Context, limit int) ([]model.Prediction, error)
}

// StatsFunc returns a JSON-encodable snapshot of service statistics.
type StatsFunc func(ctx context.Context) any

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	predictHandler     *PredictHandler
	predictionsHandler *PredictionsHandler

	limiter *RateLimiter
	logger  logger.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithRateLimiter throttles POST /predict per client IP.
func WithRateLimiter(l *RateLimiter) Option {
	return func(s *Server) { s.limiter = l }
}

// WithLogger sets the logger used by the handlers.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, stats StatsFunc, opts ...Option) *Server {
	s := &Server{}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("api")
	}

	s.healthHandler = NewHealthHandler()
	s.statsHandler = NewStatsHandler(stats)
	s.predictHandler = NewPredictHandler(deps, s.logger)
	s.predictionsHandler = NewPredictionsHandler(deps, s.logger)
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}

	predict := http.Handler(http.HandlerFunc(s.predictHandler.HandlePredict))
	if s.limiter != nil {
		predict = RateLimitMiddleware(s.limiter, predict)
	}

	mux.Handle("/healthz", RequestIDMiddleware(MetricsMiddleware(s.healthHandler.HandleHealth, "healthz")))
	mux.Handle("/stats", RequestIDMiddleware(MetricsMiddleware(s.statsHandler.HandleStats, "stats")))
	mux.Handle("/predict", RequestIDMiddleware(MetricsMiddleware(predict.ServeHTTP, "predict")))
	mux.Handle("/predictions", RequestIDMiddleware(MetricsMiddleware(s.predictionsHandler.HandleList, "predictions")))
	mux.Handle("/predictions/{id}", RequestIDMiddleware(MetricsMiddleware(s.predictionsHandler.HandleGet, "prediction")))
}

// errorResponse is the body of every non-2xx reply. Clients surface Error.
type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	if msg == "" {
		msg = http.StatusText(status)
	}
	writeJSON(w, status, errorResponse{Error: msg, Code: code})
}

func methodNotAllowed(w http.ResponseWriter, allowed string) {
	w.Header().Set("Allow", allowed)
	writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, msgMethodNotAllowed)
}
