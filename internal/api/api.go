// Package api exposes the recipe cache and fetch pipeline over HTTP.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/cookdex/cookdex/internal/merge"
	"github.com/cookdex/cookdex/internal/model"
	"github.com/cookdex/cookdex/internal/pipeline"
	"github.com/cookdex/cookdex/internal/store"
)

// Deps carries the handler's collaborators.
type Deps struct {
	Store    store.Store
	Pipeline *pipeline.Pipeline
}

// NewHandler builds the HTTP API router.
func NewHandler(deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
	}))

	r.Get("/health", handleHealth)
	r.Get("/recipes", handleListRecipes(deps))
	r.Get("/recipes/{id}", handleGetRecipe(deps))
	r.Delete("/recipes", handleEraseRecipes(deps))
	r.Post("/fetch", handleFetch(deps))
	r.Get("/runs", handleListRuns(deps))

	return r
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func handleListRecipes(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		records, err := deps.Store.All(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "list recipes failed")
			zap.L().Error("api: list recipes", zap.Error(err))
			return
		}
		if records == nil {
			records = []model.Record{}
		}
		writeJSON(w, http.StatusOK, records)
	}
}

func handleGetRecipe(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		rec, err := deps.Store.Get(r.Context(), id)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "get recipe failed")
			zap.L().Error("api: get recipe", zap.String("id", id), zap.Error(err))
			return
		}
		if rec == nil {
			writeError(w, http.StatusNotFound, "recipe not found")
			return
		}
		writeJSON(w, http.StatusOK, rec)
	}
}

func handleEraseRecipes(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := deps.Store.EraseAll(r.Context()); err != nil {
			writeError(w, http.StatusInternalServerError, "erase failed")
			zap.L().Error("api: erase recipes", zap.Error(err))
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "erased"})
	}
}

func handleFetch(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			URLs []string `json:"urls"`
			Mode string   `json:"mode"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if len(req.URLs) == 0 {
			writeError(w, http.StatusBadRequest, "urls is required")
			return
		}
		if req.Mode == "" {
			req.Mode = string(merge.ModeDefault)
		}
		mode, err := merge.ParseMode(req.Mode)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		result, err := deps.Pipeline.Run(r.Context(), req.URLs, mode)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "batch failed")
			zap.L().Error("api: fetch batch", zap.Error(err))
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}

func handleListRuns(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		runs, err := deps.Store.ListRuns(r.Context(), 0)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "list runs failed")
			zap.L().Error("api: list runs", zap.Error(err))
			return
		}
		if runs == nil {
			runs = []store.Run{}
		}
		writeJSON(w, http.StatusOK, runs)
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
