package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/perch-labs/leadscout/internal/model"
	"github.com/perch-labs/leadscout/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the lead review HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           newRouter(env),
			ReadHeaderTimeout: 10 * time.Second,
		}

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			srv.Shutdown(ctx) //nolint:errcheck
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}
		return nil
	},
}

func newRouter(env *appEnv) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/api/leads", func(w http.ResponseWriter, req *http.Request) {
		filter, err := leadFilterFromQuery(req)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		leads, err := env.Store.ListLeads(req.Context(), filter)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		if leads == nil {
			leads = []model.Lead{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"leads": leads})
	})

	r.Post("/api/leads/{id}/dismiss", func(w http.ResponseWriter, req *http.Request) {
		id := chi.URLParam(req, "id")
		if err := env.Store.DismissLead(req.Context(), id); err != nil {
			writeError(w, http.StatusNotFound, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "dismissed", "id": id})
	})

	r.Get("/api/stats", func(w http.ResponseWriter, req *http.Request) {
		total, err := env.Store.CountLeads(req.Context(), store.LeadFilter{IncludeDismissed: true})
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		active, err := env.Store.CountLeads(req.Context(), store.LeadFilter{})
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"leads_total":  total,
			"leads_active": active,
			"usage":        env.Guard.Stats(),
		})
	})

	r.Get("/api/runs", func(w http.ResponseWriter, req *http.Request) {
		limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))
		runs, err := env.Store.ListRunSummaries(req.Context(), limit)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		if runs == nil {
			runs = []model.RunSummary{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
	})

	return r
}

func leadFilterFromQuery(req *http.Request) (store.LeadFilter, error) {
	q := req.URL.Query()
	filter := store.LeadFilter{
		Platform:         model.Platform(q.Get("platform")),
		Quality:          model.LeadQuality(q.Get("quality")),
		IncludeDismissed: q.Get("include_dismissed") == "true",
	}
	if v := q.Get("min_confidence"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return filter, eris.Wrap(err, "parse min_confidence")
		}
		filter.MinConfidence = f
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return filter, eris.Wrap(err, "parse limit")
		}
		filter.Limit = n
	}
	if v := q.Get("since_hours"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return filter, eris.Wrap(err, "parse since_hours")
		}
		filter.Since = time.Now().UTC().Add(-time.Duration(n) * time.Hour)
	}
	return filter, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
