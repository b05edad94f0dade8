package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/gaspardpetit/dispatchd/internal/directory"
	"github.com/gaspardpetit/dispatchd/internal/dispatch"
)

type createOperatorRequest struct {
	Name    string `json:"name"`
	MaxLoad int    `json:"max_load"`
}

// operatorView is an operator record joined with its live load.
type operatorView struct {
	directory.Operator
	CurrentLoad int `json:"current_load"`
}

func (a *API) operatorView(r *http.Request, op directory.Operator) operatorView {
	load, err := a.Loads.CurrentLoad(r.Context(), op.ID)
	if err != nil {
		load = 0
	}
	return operatorView{Operator: op, CurrentLoad: load}
}

func (a *API) HandleCreateOperator(w http.ResponseWriter, r *http.Request) {
	var body createOperatorRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	if strings.TrimSpace(body.Name) == "" {
		writeError(w, http.StatusBadRequest, "missing_name")
		return
	}
	op, err := a.Operators.Add(body.Name, body.MaxLoad)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_max_load")
		return
	}
	writeJSON(w, http.StatusCreated, a.operatorView(r, op))
}

func (a *API) HandleListOperators(w http.ResponseWriter, r *http.Request) {
	ops := a.Operators.List()
	res := make([]operatorView, 0, len(ops))
	for _, op := range ops {
		res = append(res, a.operatorView(r, op))
	}
	writeJSON(w, http.StatusOK, res)
}

func (a *API) HandleGetOperator(w http.ResponseWriter, r *http.Request) {
	op, ok := a.Operators.Get(chi.URLParam(r, "operator_id"))
	if !ok {
		writeError(w, http.StatusNotFound, "not_found")
		return
	}
	writeJSON(w, http.StatusOK, a.operatorView(r, op))
}

func (a *API) HandleUpdateOperator(w http.ResponseWriter, r *http.Request) {
	var patch directory.OperatorPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	op, err := a.Operators.Update(chi.URLParam(r, "operator_id"), patch)
	switch {
	case errors.Is(err, dispatch.ErrOperatorNotFound):
		writeError(w, http.StatusNotFound, "not_found")
		return
	case errors.Is(err, directory.ErrInvalidMaxLoad):
		writeError(w, http.StatusBadRequest, "invalid_max_load")
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, "internal")
		return
	}
	writeJSON(w, http.StatusOK, a.operatorView(r, op))
}

func (a *API) HandleDeleteOperator(w http.ResponseWriter, r *http.Request) {
	if err := a.Operators.Remove(chi.URLParam(r, "operator_id")); err != nil {
		writeError(w, http.StatusNotFound, "not_found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "deleted"})
}

// HandleOperatorStats reports historical assignment counts together with the
// operator's live load, optionally narrowed to one source.
func (a *API) HandleOperatorStats(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "operator_id")
	op, ok := a.Operators.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "not_found")
		return
	}
	sourceID := r.URL.Query().Get("source_id")
	load, err := a.Loads.CurrentLoad(r.Context(), id)
	if err != nil {
		load = 0
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"operator_id":    op.ID,
		"operator_name":  op.Name,
		"total_requests": a.Store.CountAssigned(id, sourceID),
		"current_load":   load,
		"max_load":       op.MaxLoad,
	})
}
