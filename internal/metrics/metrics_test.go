package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
)

func scrape(t *testing.T, c *Collector) string {
	t.Helper()
	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("scrape status = %d", rec.Code)
	}
	return rec.Body.String()
}

func TestMiddlewareCountsByRoute(t *testing.T) {
	c := New()
	r := chi.NewRouter()
	r.Use(c.Middleware)
	r.Get("/api/graph/{kind}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})

	for _, path := range []string{"/api/graph/a", "/api/graph/b"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	want := `starfield_http_requests_total{method="GET",route="/api/graph/{kind}",status="202"} 2`
	if out := scrape(t, c); !strings.Contains(out, want) {
		t.Errorf("missing %q in:\n%s", want, out)
	}
}

func TestObserveLayout(t *testing.T) {
	c := New()
	c.ObserveLayout(5*time.Millisecond, 12, 3)
	c.ObserveLayout(time.Millisecond, 7, 1)

	out := scrape(t, c)
	for _, want := range []string{
		"starfield_layout_nodes 7",
		"starfield_layout_dropped_edges_total 4",
		"starfield_layout_duration_seconds_count 2",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q", want)
		}
	}
}

func TestFallbackCounter(t *testing.T) {
	c := New()
	c.Fallbacks.Inc()
	if out := scrape(t, c); !strings.Contains(out, "starfield_gateway_fallbacks_total 1") {
		t.Errorf("metrics output missing fallback counter:\n%s", out)
	}
}
