// Package store keeps the lead and request records surrounding the dispatch
// core. It is bookkeeping only: the capacity invariant lives entirely in the
// dispatch package.
package store

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Request statuses. StatusActive is the only status that holds a reserved
// slot on its operator; any other status is terminal for load purposes.
const (
	StatusActive = "active"
	StatusClosed = "closed"
)

// ErrRequestNotFound is returned for lookups of unknown request IDs.
var ErrRequestNotFound = errors.New("request not found")

// ErrInvalidTransition is returned when a status change is not allowed.
var ErrInvalidTransition = errors.New("invalid status transition")

// Lead identifies a person reaching out through one or more sources. Leads
// are deduplicated by ExternalID.
type Lead struct {
	ID         string    `json:"id"`
	ExternalID string    `json:"external_id"`
	Name       string    `json:"name,omitempty"`
	Email      string    `json:"email,omitempty"`
	Phone      string    `json:"phone,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Request records one incoming work item. OperatorID is empty when no
// operator was available at assignment time.
type Request struct {
	ID         string    `json:"id"`
	LeadID     string    `json:"lead_id"`
	SourceID   string    `json:"source_id"`
	OperatorID string    `json:"operator_id,omitempty"`
	Status     string    `json:"status"`
	Message    string    `json:"message,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Store is an in-memory lead and request store.
type Store struct {
	mu         sync.Mutex
	leads      map[string]*Lead
	byExternal map[string]string
	requests   map[string]*Request
	order      []string
}

// New returns an empty store.
func New() *Store {
	return &Store{
		leads:      make(map[string]*Lead),
		byExternal: make(map[string]string),
		requests:   make(map[string]*Request),
	}
}

// FindOrCreateLead returns the lead with the given external ID, creating it
// with the provided contact details if it does not exist yet.
func (s *Store) FindOrCreateLead(externalID, name, email, phone string) Lead {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.byExternal[externalID]; ok {
		return *s.leads[id]
	}
	lead := &Lead{
		ID:         uuid.NewString(),
		ExternalID: externalID,
		Name:       name,
		Email:      email,
		Phone:      phone,
		CreatedAt:  time.Now().UTC(),
	}
	s.leads[lead.ID] = lead
	s.byExternal[externalID] = lead.ID
	return *lead
}

// Leads returns all leads ordered by creation time.
func (s *Store) Leads() []Lead {
	s.mu.Lock()
	defer s.mu.Unlock()
	res := make([]Lead, 0, len(s.leads))
	for _, l := range s.leads {
		res = append(res, *l)
	}
	sort.Slice(res, func(i, j int) bool {
		if res[i].CreatedAt.Equal(res[j].CreatedAt) {
			return res[i].ID < res[j].ID
		}
		return res[i].CreatedAt.Before(res[j].CreatedAt)
	})
	return res
}

// AddRequest records a new request in the active state.
func (s *Store) AddRequest(leadID, sourceID, operatorID, message string) Request {
	now := time.Now().UTC()
	req := &Request{
		ID:         uuid.NewString(),
		LeadID:     leadID,
		SourceID:   sourceID,
		OperatorID: operatorID,
		Status:     StatusActive,
		Message:    message,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	s.mu.Lock()
	s.requests[req.ID] = req
	s.order = append(s.order, req.ID)
	s.mu.Unlock()
	return *req
}

// GetRequest returns a copy of the request.
func (s *Store) GetRequest(id string) (Request, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.requests[id]
	if !ok {
		return Request{}, false
	}
	return *req, true
}

// RequestFilter narrows ListRequests; empty fields match everything.
type RequestFilter struct {
	SourceID   string
	OperatorID string
	LeadID     string
}

// ListRequests returns requests matching the filter in insertion order.
func (s *Store) ListRequests(f RequestFilter) []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	res := make([]Request, 0, len(s.order))
	for _, id := range s.order {
		req := s.requests[id]
		if f.SourceID != "" && req.SourceID != f.SourceID {
			continue
		}
		if f.OperatorID != "" && req.OperatorID != f.OperatorID {
			continue
		}
		if f.LeadID != "" && req.LeadID != f.LeadID {
			continue
		}
		res = append(res, *req)
	}
	return res
}

// SetStatus transitions a request to the given status and returns the
// updated record along with the previous status, so the caller can release
// the operator's slot exactly once when the request leaves the active state.
// A request that has left the active state cannot return to it: the reserved
// slot is held from intake until the first transition out of active, and
// re-entering active would put load on the operator that was never reserved.
func (s *Store) SetStatus(id, status string) (Request, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.requests[id]
	if !ok {
		return Request{}, "", ErrRequestNotFound
	}
	if status == StatusActive && req.Status != StatusActive {
		return Request{}, req.Status, ErrInvalidTransition
	}
	prev := req.Status
	req.Status = status
	req.UpdatedAt = time.Now().UTC()
	return *req, prev, nil
}

// CountAssigned returns the number of requests ever assigned to the operator,
// optionally narrowed to one source. Historical counts are independent of the
// reservation mechanism: closed requests still count.
func (s *Store) CountAssigned(operatorID, sourceID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, req := range s.requests {
		if req.OperatorID != operatorID {
			continue
		}
		if sourceID != "" && req.SourceID != sourceID {
			continue
		}
		n++
	}
	return n
}
