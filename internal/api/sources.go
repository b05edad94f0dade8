package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/gaspardpetit/dispatchd/internal/dispatch"
)

type createSourceRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (a *API) HandleCreateSource(w http.ResponseWriter, r *http.Request) {
	var body createSourceRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	if strings.TrimSpace(body.Name) == "" {
		writeError(w, http.StatusBadRequest, "missing_name")
		return
	}
	src := a.Sources.Add(body.Name, body.Description)
	writeJSON(w, http.StatusCreated, src)
}

func (a *API) HandleListSources(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, a.Sources.List())
}

func (a *API) HandleGetSource(w http.ResponseWriter, r *http.Request) {
	src, ok := a.Sources.Get(chi.URLParam(r, "source_id"))
	if !ok {
		writeError(w, http.StatusNotFound, "not_found")
		return
	}
	writeJSON(w, http.StatusOK, src)
}

func (a *API) HandleDeleteSource(w http.ResponseWriter, r *http.Request) {
	if err := a.Sources.Remove(chi.URLParam(r, "source_id")); err != nil {
		writeError(w, http.StatusNotFound, "not_found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "deleted"})
}

func (a *API) HandleGetWeights(w http.ResponseWriter, r *http.Request) {
	weights, err := a.Sources.Weights(chi.URLParam(r, "source_id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "not_found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"weights": weights})
}

type putWeightsRequest struct {
	Weights map[string]int `json:"weights"`
}

// HandlePutWeights replaces the weight table for a source. Validation
// failures leave the previous table intact.
func (a *API) HandlePutWeights(w http.ResponseWriter, r *http.Request) {
	var body putWeightsRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	err := a.Sources.Reconfigure(chi.URLParam(r, "source_id"), body.Weights)
	switch {
	case errors.Is(err, dispatch.ErrSourceNotFound):
		writeError(w, http.StatusNotFound, "not_found")
		return
	case errors.Is(err, dispatch.ErrInvalidWeight):
		writeError(w, http.StatusBadRequest, "invalid_weight")
		return
	case errors.Is(err, dispatch.ErrOperatorNotFound):
		writeError(w, http.StatusBadRequest, "unknown_operator")
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, "internal")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "configured"})
}
