package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/google/uuid"

	"github.com/codeatlas-ai/codeatlas/application/service"
	"github.com/codeatlas-ai/codeatlas/infrastructure/git"
	"github.com/codeatlas-ai/codeatlas/internal/log"
)

// queryBody is the JSON body of POST /api/v1/query.
type queryBody struct {
	Repository string `json:"repository"`
	Text       string `json:"text"`
	Branch     string `json:"branch,omitempty"`
	MaxResults int    `json:"maxResults,omitempty"`
	Profile    string `json:"profile,omitempty"`
}

// Server is the HTTP facade over the query orchestrator.
type Server struct {
	queries *service.QueryService
	tracker *git.Tracker
	logger  *slog.Logger
	router  chi.Router
}

// NewServer creates the HTTP server.
func NewServer(queries *service.QueryService, tracker *git.Tracker, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		queries: queries,
		tracker: tracker,
		logger:  logger,
	}

	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
	}))
	r.Use(s.requestID)
	r.Use(s.requestLogger)

	r.Get("/healthz", s.handleHealth)
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/query", s.handleQuery)
		r.Get("/repositories", s.handleRepositories)
	})

	s.router = r
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var body queryBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid JSON body"})
		return
	}

	resp, err := s.queries.Query(r.Context(), service.QueryRequest{
		Repository: body.Repository,
		Text:       body.Text,
		Branch:     body.Branch,
		MaxResults: body.MaxResults,
		Profile:    body.Profile,
	})
	if err != nil {
		status, payload := errorPayload(err)
		writeJSON(w, status, payload)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRepositories(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"repositories": s.tracker.RepositoryNames(),
	})
}

// requestID attaches a request id to the context for log correlation.
func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		ctx := log.WithRequestID(r.Context(), id)
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requestLogger emits one line per request.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("http request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("request_id", log.RequestID(r.Context())),
			slog.Duration("duration", time.Since(started)),
		)
	})
}

// ListenAndServe runs the HTTP server until the context is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	s.logger.Info("http server listening", slog.String("addr", addr))

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
