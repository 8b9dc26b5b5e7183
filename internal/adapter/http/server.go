package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/couchcryptid/storm-exposure/internal/adapter/export"
	"github.com/couchcryptid/storm-exposure/internal/domain"
	"github.com/couchcryptid/storm-exposure/internal/exposure"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	maxBodyBytes   = 8 << 20
	requestTimeout = 60 * time.Second
	requestIDKey   = "X-Request-ID"
)

// Evaluator is the exposure model surface the API needs.
// *exposure.Evaluator implements it.
type Evaluator interface {
	Evaluate(ctx context.Context, track domain.StormTrack, points []domain.QueryPoint) ([]domain.ExposureRecord, error)
	Model(ctx context.Context, track domain.StormTrack) (*exposure.Model, error)
}

// Server exposes health, readiness, metrics, and the evaluation API.
type Server struct {
	httpServer *http.Server
	evaluator  Evaluator
	points     []domain.QueryPoint
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics, and the
// /v1 evaluation routes. points are used when a request carries none.
func NewServer(addr string, ready sharedobs.ReadinessChecker, eval Evaluator, points []domain.QueryPoint, logger *slog.Logger) *Server {
	r := chi.NewRouter()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      r,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: requestTimeout + 5*time.Second,
			IdleTimeout:  60 * time.Second,
		},
		evaluator: eval,
		points:    points,
		logger:    logger,
	}

	r.Use(middleware.Recoverer)
	r.Use(s.requestID)

	r.Get("/healthz", sharedobs.LivenessHandler())
	r.Get("/readyz", sharedobs.ReadinessHandler(ready))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Use(middleware.Timeout(requestTimeout))
		r.Post("/exposure", s.handleExposure)
		r.Post("/envelope", s.handleEnvelope)
	})

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

type exposureResponse struct {
	StormID string                  `json:"storm_id"`
	Count   int                     `json:"count"`
	Records []domain.ExposureRecord `json:"records"`
}

func (s *Server) handleExposure(w http.ResponseWriter, r *http.Request) {
	track, points, ok := s.decodeTrack(w, r)
	if !ok {
		return
	}
	if len(points) == 0 {
		points = s.points
	}
	if len(points) == 0 {
		writeError(w, http.StatusBadRequest, "no query points in request and none configured")
		return
	}

	records, err := s.evaluator.Evaluate(r.Context(), track, points)
	if err != nil {
		s.evaluationFailed(w, r, track, err)
		return
	}
	if records == nil {
		records = []domain.ExposureRecord{}
	}
	writeJSON(w, http.StatusOK, exposureResponse{StormID: track.StormID, Count: len(records), Records: records})
}

func (s *Server) handleEnvelope(w http.ResponseWriter, r *http.Request) {
	track, _, ok := s.decodeTrack(w, r)
	if !ok {
		return
	}
	m, err := s.evaluator.Model(r.Context(), track)
	if err != nil {
		s.evaluationFailed(w, r, track, err)
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	w.WriteHeader(http.StatusOK)
	if err := export.WriteGeoJSON(w, export.ModelCollection(m)); err != nil {
		s.logger.Warn("write envelope response failed", "error", err, "request_id", requestIDFrom(r))
	}
}

func (s *Server) decodeTrack(w http.ResponseWriter, r *http.Request) (domain.StormTrack, []domain.QueryPoint, bool) {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	defer body.Close()

	var msg json.RawMessage
	if err := json.NewDecoder(body).Decode(&msg); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return domain.StormTrack{}, nil, false
		}
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return domain.StormTrack{}, nil, false
	}
	track, points, err := domain.ParseTrackMessage(msg)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return domain.StormTrack{}, nil, false
	}
	return track, points, true
}

func (s *Server) evaluationFailed(w http.ResponseWriter, r *http.Request, track domain.StormTrack, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	case errors.Is(err, exposure.ErrInvalidParams), errors.Is(err, domain.ErrUnsortedTrack):
		status = http.StatusBadRequest
	}
	s.logger.Error("evaluation failed",
		"error", err,
		"storm_id", track.StormID,
		"request_id", requestIDFrom(r),
	)
	writeError(w, status, err.Error())
}

type ctxKey struct{}

// requestID tags each request with an ID, honoring one supplied by the caller.
func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDKey)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDKey, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, id)))
	})
}

func requestIDFrom(r *http.Request) string {
	id, _ := r.Context().Value(ctxKey{}).(string)
	return id
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}
