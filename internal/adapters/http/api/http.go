// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/okian/captionboard/internal/adapters/stories"
	"github.com/okian/captionboard/internal/domain/model"
	"github.com/okian/captionboard/pkg/logger"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	CaptionDependencies
	ComputeDependencies
	StoriesDependencies
	StatsProvider
}

// CaptionDependencies covers submission and leaderboard reads.
type CaptionDependencies interface {
	AddCaption(ctx context.Context, sub model.Submission) (model.CaptionRecord, error)
	TopCaptions(ctx context.Context, date string, limit int) ([]model.CaptionRecord, error)
}

// ComputeDependencies covers scoring passes and their status.
type ComputeDependencies interface {
	ComputeScores(ctx context.Context, date string) (int, error)
	Status(ctx context.Context, date string) (model.ComputedMarker, bool, error)
}

// StoriesDependencies covers the community stories feed.
type StoriesDependencies interface {
	CommunityStories(ctx context.Context) ([]stories.Story, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler   *HealthHandler
	statsHandler    *StatsHandler
	captionsHandler *CaptionsHandler
	computeHandler  *ComputeHandler
	storiesHandler  *StoriesHandler
	logger          logger.Logger
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, opts ...Option) *Server {
	cfg := defaultServerConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Server{
		healthHandler:   NewHealthHandler(),
		statsHandler:    NewStatsHandler(deps),
		captionsHandler: NewCaptionsHandler(deps, cfg.maxLimit, cfg.logger),
		computeHandler:  NewComputeHandler(deps, cfg.secretHeader, cfg.secret, cfg.logger),
		storiesHandler:  NewStoriesHandler(deps, cfg.logger),
		logger:          cfg.logger,
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	route := func(path, endpoint string, h http.HandlerFunc) {
		mux.HandleFunc(path, RequestIDMiddleware(MetricsMiddleware(h, endpoint)))
	}
	route("/healthz", "healthz", s.healthHandler.HandleHealth)
	route("/stats", "stats", s.statsHandler.HandleStats)
	route("/api/captions", "captions", s.captionsHandler.HandleCaptions)
	route("/api/captions/compute", "captions_compute", s.computeHandler.HandleCompute)
	route("/api/captions/status", "captions_status", s.computeHandler.HandleStatus)
	route("/api/stories/community", "stories_community", s.storiesHandler.HandleCommunity)
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeMethodNotAllowed answers a request whose method the route does not serve.
func writeMethodNotAllowed(w http.ResponseWriter, op string, allowed string) {
	w.Header().Set("Allow", allowed)
	writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", wrapKind(op, ErrMethod, nil))
}
