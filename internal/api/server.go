// Package api exposes the HTTP interface for the ingestion service:
// health probes, Prometheus metrics, and a small read API over the
// persisted match rows.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/crickstream/cricket-ingest/internal/ingest"
)

// MatchReader is the read-side store surface the API serves from.
type MatchReader interface {
	ListMatches(ctx context.Context, limit int) ([]ingest.MatchRow, error)
	GetMatch(ctx context.Context, id string) (ingest.MatchRow, error)
	Ping(ctx context.Context) error
}

// Server wires HTTP handlers to the match store.
type Server struct {
	router chi.Router
	store  MatchReader
	logger *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(store MatchReader, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		store:  store,
		logger: logger,
	}
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(logger))
	r.Use(recoverMiddleware(logger))
	r.Use(timeoutMiddleware(30 * time.Second))

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Route("/matches", func(r chi.Router) {
			r.Get("/", s.listMatches)
			r.Get("/{match_id}", s.getMatch)
		})
	})

	s.router = r
	return s
}

// Handler returns the router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "database unreachable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) listMatches(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > 500 {
			writeError(w, http.StatusBadRequest, "limit must be an integer in [1,500]")
			return
		}
		limit = parsed
	}
	matches, err := s.store.ListMatches(r.Context(), limit)
	if err != nil {
		s.logger.Error("list matches failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list matches")
		return
	}
	if matches == nil {
		matches = []ingest.MatchRow{}
	}
	writeJSON(w, http.StatusOK, matchListResponse{Matches: toMatchResponses(matches)})
}

func (s *Server) getMatch(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "match_id")
	match, err := s.store.GetMatch(r.Context(), id)
	if err != nil {
		if errors.Is(err, ingest.ErrMatchNotFound) {
			writeError(w, http.StatusNotFound, "match not found")
			return
		}
		s.logger.Error("get match failed", zap.String("match_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to get match")
		return
	}
	writeJSON(w, http.StatusOK, toMatchResponse(match))
}

type matchListResponse struct {
	Matches []matchResponse `json:"matches"`
}

type matchResponse struct {
	ID          string    `json:"id"`
	Team1       string    `json:"team1"`
	Team2       string    `json:"team2"`
	MatchNumber string    `json:"match_number"`
	MatchType   string    `json:"match_type"`
	Status      string    `json:"status"`
	ScoreTeam1  string    `json:"score_team1"`
	ScoreTeam2  string    `json:"score_team2"`
	Venue       string    `json:"venue"`
	City        string    `json:"city"`
	ObservedAt  time.Time `json:"observed_at"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func toMatchResponse(m ingest.MatchRow) matchResponse {
	return matchResponse{
		ID:          m.ID,
		Team1:       m.Team1,
		Team2:       m.Team2,
		MatchNumber: m.MatchNumber,
		MatchType:   m.MatchType,
		Status:      m.Status,
		ScoreTeam1:  m.ScoreTeam1,
		ScoreTeam2:  m.ScoreTeam2,
		Venue:       m.Venue,
		City:        m.City,
		ObservedAt:  m.ObservedAt,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

func toMatchResponses(ms []ingest.MatchRow) []matchResponse {
	out := make([]matchResponse, 0, len(ms))
	for _, m := range ms {
		out = append(out, toMatchResponse(m))
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
