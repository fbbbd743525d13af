// Package httpapi exposes the family tree operations over HTTP.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/TheWanderer12/Legacy-Family-Tree/internal/application/handlers"
	"github.com/TheWanderer12/Legacy-Family-Tree/internal/domain/entities"
	"github.com/TheWanderer12/Legacy-Family-Tree/internal/infrastructure/logging"
)

// shutdownTimeout bounds graceful shutdown.
const shutdownTimeout = 10 * time.Second

// Handlers groups the application handlers served by the API.
type Handlers struct {
	Trees   *handlers.TreeHandler
	Members *handlers.MemberHandler
	Search  *handlers.SearchHandler
}

// Server routes HTTP requests to the application handlers.
type Server struct {
	router   *mux.Router
	h        Handlers
	logger   *slog.Logger
	registry *prometheus.Registry
}

// NewServer creates a server with its own metrics registry.
func NewServer(h Handlers, logger *slog.Logger) *Server {
	if logger == nil {
		logger = logging.Discard()
	}
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	s := &Server{
		router:   mux.NewRouter(),
		h:        h,
		logger:   logger,
		registry: registry,
	}
	s.setupRoutes(NewMetrics(registry))
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serving http: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	s.logger.Info("http server shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down http server: %w", err)
	}
	return nil
}

func (s *Server) setupRoutes(metrics *Metrics) {
	s.router.Use(logging.Middleware(s.logger), metrics.Middleware)
	s.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "route not found"})
	})
	s.router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
	})

	s.router.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})).Methods("GET")
	s.router.HandleFunc("/healthz", s.handleHealth).Methods("GET")

	api := s.router.PathPrefix("/api/family-trees").Subrouter()
	api.HandleFunc("", s.handleListTrees).Methods("GET")
	api.HandleFunc("/", s.handleListTrees).Methods("GET")
	api.HandleFunc("", s.handleCreateTree).Methods("POST")
	api.HandleFunc("/", s.handleCreateTree).Methods("POST")
	api.HandleFunc("/{treeId}", s.handleGetTree).Methods("GET")
	api.HandleFunc("/{treeId}", s.handleDeleteTree).Methods("DELETE")
	api.HandleFunc("/{treeId}/history", s.handleHistory).Methods("GET")
	api.HandleFunc("/{treeId}/validate", s.handleValidate).Methods("GET")
	api.HandleFunc("/{treeId}/path", s.handlePath).Methods("GET")
	api.HandleFunc("/{treeId}/search", s.handleSearch).Methods("GET")
	api.HandleFunc("/{treeId}/members", s.handleAddMember).Methods("POST")
	api.HandleFunc("/{treeId}/members/{memberId}", s.handleUpdateMember).Methods("PUT")
	api.HandleFunc("/{treeId}/members/{memberId}", s.handleRemoveMember).Methods("DELETE")
	api.HandleFunc("/{treeId}/members/{memberId}/relation", s.handleRelate).Methods("POST")
	api.HandleFunc("/{treeId}/members/{memberId}/relation-options", s.handleRelationOptions).Methods("GET")
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListTrees(w http.ResponseWriter, r *http.Request) {
	result, err := s.h.Trees.HandleList(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleCreateTree(w http.ResponseWriter, r *http.Request) {
	var in handlers.CreateTreeInput
	if err := decodeBody(w, r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	tree, err := s.h.Trees.HandleCreate(r.Context(), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, tree)
}

func (s *Server) handleGetTree(w http.ResponseWriter, r *http.Request) {
	tree, err := s.h.Trees.HandleGet(r.Context(), mux.Vars(r)["treeId"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tree)
}

func (s *Server) handleDeleteTree(w http.ResponseWriter, r *http.Request) {
	if err := s.h.Trees.HandleDelete(r.Context(), mux.Vars(r)["treeId"]); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	entries, err := s.h.Trees.HandleHistory(r.Context(), mux.Vars(r)["treeId"], limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if entries == nil {
		entries = []entities.AuditEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	report, err := s.h.Members.HandleValidate(r.Context(), mux.Vars(r)["treeId"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"valid":          report.Valid(),
		"treeId":         report.TreeID,
		"members":        report.Members,
		"violations":     report.Violations,
		"ancestryCycles": report.AncestryCycles,
	})
}

func (s *Server) handlePath(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	steps, err := s.h.Members.HandlePath(r.Context(), mux.Vars(r)["treeId"], q.Get("from"), q.Get("to"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"steps": steps})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	result, err := s.h.Search.HandleSearch(r.Context(), mux.Vars(r)["treeId"], r.URL.Query().Get("q"), limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleAddMember(w http.ResponseWriter, r *http.Request) {
	var in handlers.MemberInput
	if err := decodeBody(w, r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	member, err := s.h.Members.HandleAdd(r.Context(), mux.Vars(r)["treeId"], in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, member)
}

func (s *Server) handleUpdateMember(w http.ResponseWriter, r *http.Request) {
	var in handlers.MemberUpdateInput
	if err := decodeBody(w, r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	vars := mux.Vars(r)
	member, err := s.h.Members.HandleUpdate(r.Context(), vars["treeId"], vars["memberId"], in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, member)
}

func (s *Server) handleRemoveMember(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	result, err := s.h.Members.HandleRemove(r.Context(), vars["treeId"], vars["memberId"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleRelate(w http.ResponseWriter, r *http.Request) {
	var in handlers.RelateInput
	if err := decodeBody(w, r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	vars := mux.Vars(r)
	result, err := s.h.Members.HandleRelate(r.Context(), vars["treeId"], vars["memberId"], in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleRelationOptions(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	result, err := s.h.Members.HandleOptions(r.Context(), vars["treeId"], vars["memberId"], r.URL.Query().Get("mode"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
