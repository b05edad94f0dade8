package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/gaspardpetit/dispatchd/internal/dispatch"
	"github.com/gaspardpetit/dispatchd/internal/logx"
	"github.com/gaspardpetit/dispatchd/internal/metrics"
	"github.com/gaspardpetit/dispatchd/internal/store"
)

type createRequestBody struct {
	LeadExternalID string `json:"lead_external_id"`
	LeadName       string `json:"lead_name"`
	LeadEmail      string `json:"lead_email"`
	LeadPhone      string `json:"lead_phone"`
	SourceID       string `json:"source_id"`
	Message        string `json:"message"`
}

// requestView joins a request with its operator's display name.
type requestView struct {
	store.Request
	OperatorName string `json:"operator_name,omitempty"`
}

func (a *API) requestView(req store.Request) requestView {
	view := requestView{Request: req}
	if req.OperatorID != "" {
		if op, ok := a.Operators.Get(req.OperatorID); ok {
			view.OperatorName = op.Name
		}
	}
	return view
}

// HandleCreateRequest registers a new request from a lead: the lead is found
// or created by external ID, an operator is assigned through the dispatch
// coordinator, and the request is recorded. When no operator is available the
// request is still created, unassigned.
func (a *API) HandleCreateRequest(w http.ResponseWriter, r *http.Request) {
	var body createRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	if strings.TrimSpace(body.LeadExternalID) == "" {
		writeError(w, http.StatusBadRequest, "missing_lead_external_id")
		return
	}
	if _, ok := a.Sources.Get(body.SourceID); !ok {
		writeError(w, http.StatusNotFound, "source_not_found")
		return
	}

	lead := a.Store.FindOrCreateLead(body.LeadExternalID, body.LeadName, body.LeadEmail, body.LeadPhone)

	assignment, err := a.Coord.Assign(r.Context(), body.SourceID)
	if errors.Is(err, dispatch.ErrSourceNotFound) {
		writeError(w, http.StatusNotFound, "source_not_found")
		return
	}
	if err != nil {
		logx.Log.Error().Err(err).Str("source_id", body.SourceID).Msg("assign operator")
		writeError(w, http.StatusInternalServerError, "internal")
		return
	}
	metrics.RecordAssignment(assignment.Assigned)
	metrics.RecordRequest(store.StatusActive)

	req := a.Store.AddRequest(lead.ID, body.SourceID, assignment.OperatorID, body.Message)
	writeJSON(w, http.StatusCreated, a.requestView(req))
}

func (a *API) HandleListRequests(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	reqs := a.Store.ListRequests(store.RequestFilter{
		SourceID:   q.Get("source_id"),
		OperatorID: q.Get("operator_id"),
		LeadID:     q.Get("lead_id"),
	})
	res := make([]requestView, 0, len(reqs))
	for _, req := range reqs {
		res = append(res, a.requestView(req))
	}
	writeJSON(w, http.StatusOK, res)
}

func (a *API) HandleGetRequest(w http.ResponseWriter, r *http.Request) {
	req, ok := a.Store.GetRequest(chi.URLParam(r, "request_id"))
	if !ok {
		writeError(w, http.StatusNotFound, "not_found")
		return
	}
	writeJSON(w, http.StatusOK, a.requestView(req))
}

type statusUpdateBody struct {
	Status string `json:"status"`
}

// HandleRequestStatus transitions a request. Leaving the active state
// releases the assigned operator's reserved slot exactly once; a request
// cannot be moved back into the active state once it has left it.
func (a *API) HandleRequestStatus(w http.ResponseWriter, r *http.Request) {
	var body statusUpdateBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	status := strings.TrimSpace(body.Status)
	if status == "" {
		writeError(w, http.StatusBadRequest, "missing_status")
		return
	}
	req, prev, err := a.Store.SetStatus(chi.URLParam(r, "request_id"), status)
	switch {
	case errors.Is(err, store.ErrInvalidTransition):
		writeError(w, http.StatusConflict, "cannot_reactivate")
		return
	case err != nil:
		writeError(w, http.StatusNotFound, "not_found")
		return
	}
	if prev == store.StatusActive && status != store.StatusActive && req.OperatorID != "" {
		if err := a.Coord.Release(r.Context(), req.OperatorID); err != nil {
			logx.Log.Warn().Err(err).Str("operator_id", req.OperatorID).Msg("release operator load")
		}
	}
	metrics.RecordRequest(status)
	writeJSON(w, http.StatusOK, a.requestView(req))
}

// distributionOperator counts one operator's share of a source's requests.
type distributionOperator struct {
	OperatorID   string `json:"operator_id"`
	OperatorName string `json:"operator_name,omitempty"`
	RequestCount int    `json:"request_count"`
}

// distributionStats shows how one source's requests spread across operators.
type distributionStats struct {
	SourceID      string                 `json:"source_id"`
	SourceName    string                 `json:"source_name"`
	TotalRequests int                    `json:"total_requests"`
	Operators     []distributionOperator `json:"operators"`
}

// HandleDistributionStats reports, for every source, how its requests were
// distributed among operators. Unassigned requests count toward the source
// total only.
func (a *API) HandleDistributionStats(w http.ResponseWriter, _ *http.Request) {
	srcs := a.Sources.List()
	res := make([]distributionStats, 0, len(srcs))
	for _, src := range srcs {
		reqs := a.Store.ListRequests(store.RequestFilter{SourceID: src.ID})
		counts := make(map[string]int)
		var order []string
		for _, req := range reqs {
			if req.OperatorID == "" {
				continue
			}
			if _, seen := counts[req.OperatorID]; !seen {
				order = append(order, req.OperatorID)
			}
			counts[req.OperatorID]++
		}
		ops := make([]distributionOperator, 0, len(order))
		for _, id := range order {
			entry := distributionOperator{OperatorID: id, RequestCount: counts[id]}
			if op, ok := a.Operators.Get(id); ok {
				entry.OperatorName = op.Name
			}
			ops = append(ops, entry)
		}
		res = append(res, distributionStats{
			SourceID:      src.ID,
			SourceName:    src.Name,
			TotalRequests: len(reqs),
			Operators:     ops,
		})
	}
	writeJSON(w, http.StatusOK, res)
}

// leadView joins a lead with its requests, showing that one lead can reach
// out through several sources.
type leadView struct {
	store.Lead
	Requests []requestView `json:"requests"`
}

func (a *API) HandleListLeads(w http.ResponseWriter, _ *http.Request) {
	leads := a.Store.Leads()
	res := make([]leadView, 0, len(leads))
	for _, lead := range leads {
		reqs := a.Store.ListRequests(store.RequestFilter{LeadID: lead.ID})
		views := make([]requestView, 0, len(reqs))
		for _, req := range reqs {
			views = append(views, a.requestView(req))
		}
		res = append(res, leadView{Lead: lead, Requests: views})
	}
	writeJSON(w, http.StatusOK, res)
}
