package store

import "testing"

func TestFindOrCreateLeadDeduplicates(t *testing.T) {
	s := New()
	first := s.FindOrCreateLead("tg-42", "Ann", "ann@example.com", "")
	second := s.FindOrCreateLead("tg-42", "ignored", "", "")
	if first.ID != second.ID {
		t.Fatalf("lead IDs differ: %q vs %q", first.ID, second.ID)
	}
	if second.Name != "Ann" {
		t.Fatalf("second lookup name = %q; want original %q", second.Name, "Ann")
	}
	if n := len(s.Leads()); n != 1 {
		t.Fatalf("leads = %d; want 1", n)
	}
}

func TestRequestLifecycle(t *testing.T) {
	s := New()
	lead := s.FindOrCreateLead("tg-1", "", "", "")
	req := s.AddRequest(lead.ID, "src", "op", "hello")
	if req.Status != StatusActive {
		t.Fatalf("new request status = %q; want %q", req.Status, StatusActive)
	}

	got, ok := s.GetRequest(req.ID)
	if !ok || got.OperatorID != "op" {
		t.Fatalf("GetRequest = %+v, %v", got, ok)
	}

	updated, prev, err := s.SetStatus(req.ID, StatusClosed)
	if err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	if prev != StatusActive || updated.Status != StatusClosed {
		t.Fatalf("transition = %q -> %q; want active -> closed", prev, updated.Status)
	}

	if _, _, err := s.SetStatus("nope", StatusClosed); err != ErrRequestNotFound {
		t.Fatalf("SetStatus unknown err = %v; want %v", err, ErrRequestNotFound)
	}
}

func TestSetStatusRejectsReactivation(t *testing.T) {
	s := New()
	lead := s.FindOrCreateLead("tg-1", "", "", "")
	req := s.AddRequest(lead.ID, "src", "op", "")

	// Active to active is a no-op update, not a reactivation.
	if _, _, err := s.SetStatus(req.ID, StatusActive); err != nil {
		t.Fatalf("SetStatus active->active: %v", err)
	}

	if _, _, err := s.SetStatus(req.ID, StatusClosed); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	if _, _, err := s.SetStatus(req.ID, StatusActive); err != ErrInvalidTransition {
		t.Fatalf("SetStatus closed->active err = %v; want %v", err, ErrInvalidTransition)
	}

	got, ok := s.GetRequest(req.ID)
	if !ok || got.Status != StatusClosed {
		t.Fatalf("request after rejected transition = %+v, %v; want still closed", got, ok)
	}
}

func TestListRequestsFilters(t *testing.T) {
	s := New()
	lead := s.FindOrCreateLead("tg-1", "", "", "")
	s.AddRequest(lead.ID, "s1", "a", "")
	s.AddRequest(lead.ID, "s1", "b", "")
	s.AddRequest(lead.ID, "s2", "a", "")
	s.AddRequest(lead.ID, "s2", "", "")

	if n := len(s.ListRequests(RequestFilter{})); n != 4 {
		t.Fatalf("unfiltered = %d; want 4", n)
	}
	if n := len(s.ListRequests(RequestFilter{SourceID: "s1"})); n != 2 {
		t.Fatalf("source filter = %d; want 2", n)
	}
	if n := len(s.ListRequests(RequestFilter{OperatorID: "a"})); n != 2 {
		t.Fatalf("operator filter = %d; want 2", n)
	}
	if n := len(s.ListRequests(RequestFilter{SourceID: "s2", OperatorID: "a"})); n != 1 {
		t.Fatalf("combined filter = %d; want 1", n)
	}
}

func TestCountAssigned(t *testing.T) {
	s := New()
	lead := s.FindOrCreateLead("tg-1", "", "", "")
	r1 := s.AddRequest(lead.ID, "s1", "a", "")
	s.AddRequest(lead.ID, "s2", "a", "")
	s.AddRequest(lead.ID, "s1", "b", "")

	// Historical counts survive status transitions.
	if _, _, err := s.SetStatus(r1.ID, StatusClosed); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}

	if n := s.CountAssigned("a", ""); n != 2 {
		t.Fatalf("CountAssigned(a) = %d; want 2", n)
	}
	if n := s.CountAssigned("a", "s1"); n != 1 {
		t.Fatalf("CountAssigned(a, s1) = %d; want 1", n)
	}
	if n := s.CountAssigned("c", ""); n != 0 {
		t.Fatalf("CountAssigned(c) = %d; want 0", n)
	}
}
