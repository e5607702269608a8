package capabilities

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/tradeup-ai/voxline/pkg/errorsx"
	"github.com/tradeup-ai/voxline/pkg/resilience"
)

type routeLog struct {
	mu     sync.Mutex
	routes []string
}

func (l *routeLog) add(route string) {
	l.mu.Lock()
	l.routes = append(l.routes, route)
	l.mu.Unlock()
}

func (l *routeLog) all() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.routes...)
}

func backendStub(t *testing.T, log *routeLog, responses map[string]any) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.add(r.URL.Path)
		resp, ok := responses[r.URL.Path]
		if !ok {
			http.Error(w, `{"message":"route not stubbed"}`, http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

func newTestClient(srv *httptest.Server) *Client {
	return NewClient(Config{BaseURL: srv.URL}, nil)
}

func TestSearchFallsBackToWebOnThinCatalogResult(t *testing.T) {
	log := &routeLog{}
	srv := backendStub(t, log, map[string]any{
		"/catalog/search": map[string]any{"text": "no results"},
		"/web/search":     map[string]any{"text": "The PlayStation 5 Slim retails for $449 and is in stock at most stores."},
	})
	defer srv.Close()

	c := newTestClient(srv)
	got, err := c.SearchProducts(context.Background(), "playstation 5 price", DefaultSearchPolicy())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(got, "PlayStation 5 Slim") {
		t.Fatalf("expected web result, got %q", got)
	}
	want := []string{"/catalog/search", "/web/search"}
	if routes := log.all(); len(routes) != 2 || routes[0] != want[0] || routes[1] != want[1] {
		t.Fatalf("expected catalog then web, got %v", routes)
	}
}

func TestSearchKeepsUsefulCatalogResult(t *testing.T) {
	log := &routeLog{}
	srv := backendStub(t, log, map[string]any{
		"/catalog/search": map[string]any{"text": "We carry three PlayStation 5 bundles: Slim Digital, Slim Disc, and Pro, from $449 to $699."},
	})
	defer srv.Close()

	c := newTestClient(srv)
	got, err := c.SearchProducts(context.Background(), "playstation bundles", DefaultSearchPolicy())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(got, "three PlayStation 5 bundles") {
		t.Fatalf("expected catalog result, got %q", got)
	}
	for _, route := range log.all() {
		if route == "/web/search" {
			t.Fatalf("web search must not run when the catalog answers")
		}
	}
}

func TestTradeInQueryNeverFallsBackToWeb(t *testing.T) {
	log := &routeLog{}
	srv := backendStub(t, log, map[string]any{
		"/catalog/search": map[string]any{"text": ""},
		"/web/search":     map[string]any{"text": "should never be seen"},
	})
	defer srv.Close()

	c := newTestClient(srv)
	got, err := c.SearchProducts(context.Background(), "trade-in value for an iPhone 13", DefaultSearchPolicy())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(got, "staff member") {
		t.Fatalf("expected escalation text, got %q", got)
	}
	for _, route := range log.all() {
		if route == "/web/search" {
			t.Fatalf("trade-in query must never reach web search, routes %v", log.all())
		}
	}
}

func TestTradeInValueMissReturnsEscalationText(t *testing.T) {
	log := &routeLog{}
	srv := backendStub(t, log, map[string]any{
		"/trade-in/value": map[string]any{"text": "no matches found"},
	})
	defer srv.Close()

	c := newTestClient(srv)
	got, err := c.GetTradeInValue(context.Background(), "iPhone 13", "good", DefaultSearchPolicy())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(got, "staff member") {
		t.Fatalf("expected escalation text, got %q", got)
	}
	for _, route := range log.all() {
		if route == "/web/search" || route == "/catalog/search" {
			t.Fatalf("trade-in value lookup must stay on the trade-in store, routes %v", log.all())
		}
	}
}

func TestBackendFailureIsRecoverableToolError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := newTestClient(srv)
	_, err := c.PriceLookup(context.Background(), "PS5")
	if err == nil {
		t.Fatalf("expected error on 502")
	}
	if !errorsx.HasReason(err, errorsx.ReasonToolBackend) {
		t.Fatalf("expected tool_backend reason, got %v", errorsx.Reason(err))
	}
	if !resilience.IsBackendError(err) {
		t.Fatalf("expected a BackendError, got %T", err)
	}
}

func TestPolicyUseful(t *testing.T) {
	p := DefaultSearchPolicy()
	long := strings.Repeat("inventory detail ", 10)
	cases := []struct {
		result string
		want   bool
	}{
		{"", false},
		{"short", false},
		{long, true},
		{long + " no results", false},
		{"We could not find that item anywhere in the catalog today.", false},
	}
	for _, tc := range cases {
		if got := p.Useful(tc.result); got != tc.want {
			t.Fatalf("Useful(%q) = %v, want %v", tc.result, got, tc.want)
		}
	}
}

func TestIsTradeInQuery(t *testing.T) {
	if !IsTradeInQuery("what's the Trade-In value of a Switch") {
		t.Fatalf("expected trade-in classification")
	}
	if IsTradeInQuery("is the PS5 in stock") {
		t.Fatalf("retail query misclassified as trade-in")
	}
}

func TestReducePrefersSalientField(t *testing.T) {
	if got := reduce(map[string]any{"text": "hello", "extra": 1}); got != "hello" {
		t.Fatalf("reduce = %q", got)
	}
	if got := reduce(map[string]any{"result": []any{"a", "b"}}); got != "a\nb" {
		t.Fatalf("reduce list = %q", got)
	}
	got := reduce(map[string]any{"price": 449})
	if !strings.Contains(got, "449") {
		t.Fatalf("reduce fallback = %q", got)
	}
	if got := reduce(map[string]any{}); got != "" {
		t.Fatalf("reduce empty = %q", got)
	}
}

func TestRegistryRoutesAndRequiresArgs(t *testing.T) {
	log := &routeLog{}
	srv := backendStub(t, log, map[string]any{
		"/commerce/inventory": map[string]any{"text": "3 units at the downtown store"},
		"/leads/update":       map[string]any{"text": "lead updated"},
	})
	defer srv.Close()

	reg := NewRegistry(newTestClient(srv), DefaultSearchPolicy(), "sess_1")

	got, err := reg.Handle(context.Background(), "check_inventory", map[string]any{"product": "PS5"})
	if err != nil {
		t.Fatalf("check_inventory: %v", err)
	}
	if !strings.Contains(got, "3 units") {
		t.Fatalf("check_inventory = %q", got)
	}

	if _, err := reg.Handle(context.Background(), "check_price", map[string]any{}); err == nil {
		t.Fatalf("missing required arg must fail")
	} else if !errorsx.HasReason(err, errorsx.ReasonToolArgs) {
		t.Fatalf("expected tool_args reason, got %v", errorsx.Reason(err))
	}

	if _, err := reg.Handle(context.Background(), "no_such_tool", nil); err == nil {
		t.Fatalf("unknown tool must fail")
	}

	if _, err := reg.Handle(context.Background(), "update_lead", map[string]any{"name": "Sam"}); err != nil {
		t.Fatalf("update_lead: %v", err)
	}

	if len(reg.Tools()) != 11 {
		t.Fatalf("expected 11 tools, got %d", len(reg.Tools()))
	}
}
