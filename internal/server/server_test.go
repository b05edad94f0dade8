package server

import (
	"math/rand"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gaspardpetit/dispatchd/internal/api"
	"github.com/gaspardpetit/dispatchd/internal/config"
	"github.com/gaspardpetit/dispatchd/internal/directory"
	"github.com/gaspardpetit/dispatchd/internal/dispatch"
	"github.com/gaspardpetit/dispatchd/internal/store"
)

func newHandler(cfg config.ServerConfig) http.Handler {
	operators := directory.NewOperators()
	sources := directory.NewSources(operators)
	selector := dispatch.NewSelector(rand.New(rand.NewSource(1)))
	coord := dispatch.NewCoordinator(sources, operators, operators, selector)
	return New(cfg, &api.API{
		Operators: operators,
		Sources:   sources,
		Store:     store.New(),
		Coord:     coord,
		Loads:     operators,
	})
}

func TestHealthz(t *testing.T) {
	var cfg config.ServerConfig
	cfg.SetDefaults()
	h := newHandler(cfg)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("healthz status = %d; want 200", w.Code)
	}
}

func TestMetricsMountedOnSamePort(t *testing.T) {
	var cfg config.ServerConfig
	cfg.SetDefaults()
	h := newHandler(cfg)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("metrics status = %d; want 200", w.Code)
	}
}

func TestAPIKeyGuardsAPIRoutes(t *testing.T) {
	var cfg config.ServerConfig
	cfg.SetDefaults()
	cfg.APIKey = "secret"
	h := newHandler(cfg)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/operators", nil))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("unauthenticated status = %d; want 401", w.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/operators", nil)
	req.Header.Set("Authorization", "Bearer secret")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("authenticated status = %d; want 200", w.Code)
	}

	// Health stays open.
	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("healthz status = %d; want 200", w.Code)
	}
}
