// Package api exposes the JSON management and intake surface over chi.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/gaspardpetit/dispatchd/internal/directory"
	"github.com/gaspardpetit/dispatchd/internal/dispatch"
	"github.com/gaspardpetit/dispatchd/internal/store"
)

// API bundles the registries and the dispatch coordinator behind the HTTP
// handlers.
type API struct {
	Operators *directory.Operators
	Sources   *directory.Sources
	Store     *store.Store
	Coord     *dispatch.Coordinator
	Loads     dispatch.LoadAccessor
}

// RegisterRoutes mounts all API routes on router.
func (a *API) RegisterRoutes(router chi.Router) {
	router.Route("/operators", func(r chi.Router) {
		r.Post("/", a.HandleCreateOperator)
		r.Get("/", a.HandleListOperators)
		r.Get("/{operator_id}", a.HandleGetOperator)
		r.Patch("/{operator_id}", a.HandleUpdateOperator)
		r.Delete("/{operator_id}", a.HandleDeleteOperator)
		r.Get("/{operator_id}/stats", a.HandleOperatorStats)
	})
	router.Route("/sources", func(r chi.Router) {
		r.Post("/", a.HandleCreateSource)
		r.Get("/", a.HandleListSources)
		r.Get("/{source_id}", a.HandleGetSource)
		r.Delete("/{source_id}", a.HandleDeleteSource)
		r.Get("/{source_id}/weights", a.HandleGetWeights)
		r.Put("/{source_id}/weights", a.HandlePutWeights)
	})
	router.Route("/requests", func(r chi.Router) {
		r.Post("/", a.HandleCreateRequest)
		r.Get("/", a.HandleListRequests)
		r.Get("/distribution/stats", a.HandleDistributionStats)
		r.Get("/{request_id}", a.HandleGetRequest)
		r.Post("/{request_id}/status", a.HandleRequestStatus)
	})
	router.Get("/leads", a.HandleListLeads)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]any{"error": code})
}
