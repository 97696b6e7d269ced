package cli

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/fatih/color"
	"go.uber.org/zap"

	"github.com/lazypower/starfield/internal/config"
	"github.com/lazypower/starfield/internal/gateway"
	"github.com/lazypower/starfield/internal/graph"
	"github.com/lazypower/starfield/internal/layout"
	"github.com/lazypower/starfield/internal/metrics"
	"github.com/lazypower/starfield/internal/scene"
	"github.com/lazypower/starfield/internal/store"
)

func init() {
	color.NoColor = true
}

type staticGateway struct {
	snap graph.Snapshot
	err  error
}

func (g staticGateway) FetchGraph(ctx context.Context, userID string) (graph.Snapshot, error) {
	return g.snap, g.err
}

func (g staticGateway) UploadGraphFragment(ctx context.Context, userID string, f gateway.Fragment) error {
	return nil
}

func sample() graph.Snapshot {
	one := 1
	return graph.Snapshot{
		Nodes: []graph.ConceptNode{
			{ID: "a", Name: "Probability"},
			{ID: "b", Name: "Bayes Rule", Level: &one},
		},
		Edges: []graph.ConceptEdge{{Source: "a", Target: "b", Type: graph.Prereq}},
	}
}

func TestFragmentTextYAML(t *testing.T) {
	yml := []byte(`
nodes:
  - name: Probability
    level: 0
  - title: Bayes Rule
edges:
  - from: Probability
    to: Bayes Rule
    type: prereq
`)
	text, err := fragmentText("frag.yaml", yml)
	if err != nil {
		t.Fatalf("fragmentText: %v", err)
	}
	f, err := gateway.ParseFragment(text)
	if err != nil {
		t.Fatalf("ParseFragment(%s): %v", text, err)
	}
	if len(f.Nodes) != 2 || f.Nodes[1].Name != "Bayes Rule" {
		t.Errorf("nodes = %+v", f.Nodes)
	}
	if len(f.Edges) != 1 || f.Edges[0].Type != graph.Prereq {
		t.Errorf("edges = %+v", f.Edges)
	}

	raw := []byte(`{"nodes":[],"edges":[]}`)
	if got, _ := fragmentText("frag.json", raw); !bytes.Equal(got, raw) {
		t.Errorf("json passthrough = %s", got)
	}
	_, err = fragmentText("bad.yml", []byte("nodes: [\n"))
	if !gateway.IsValidation(err) {
		t.Fatalf("bad yaml: err = %v, want a validation error", err)
	}
	var out bytes.Buffer
	describeError(&out, err)
	if !strings.Contains(out.String(), "fragment rejected") || !strings.Contains(out.String(), "malformed YAML") {
		t.Errorf("describeError output = %q", out.String())
	}
}

func TestFormatFor(t *testing.T) {
	tests := map[string]string{
		"out.png":       "png",
		"OUT.PNG":       "png",
		"starfield.svg": "svg",
		"-":             "svg",
	}
	for in, want := range tests {
		if got := formatFor(in); got != want {
			t.Errorf("formatFor(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestRenderStarfield(t *testing.T) {
	var buf bytes.Buffer
	opts := renderOptions{Format: "svg", Width: 400, Height: 300, Scale: 1, Selected: "bayes rule"}
	frame, err := renderStarfield(context.Background(), staticGateway{snap: sample()}, "u", layout.New(layout.DefaultConfig()), scene.DefaultZoom(), opts, &buf)
	if err != nil {
		t.Fatalf("renderStarfield: %v", err)
	}
	if len(frame.Nodes) != 2 {
		t.Errorf("frame nodes = %d, want 2", len(frame.Nodes))
	}
	n, ok := frame.Node("b")
	if !ok || !n.Selected {
		t.Errorf("selection by name did not select b: %+v", n)
	}
	if !strings.Contains(buf.String(), "<svg") {
		t.Errorf("output is not svg")
	}

	opts.Format = "gif"
	if _, err := renderStarfield(context.Background(), staticGateway{snap: sample()}, "u", layout.New(layout.DefaultConfig()), scene.DefaultZoom(), opts, &buf); err == nil {
		t.Error("expected unknown format error")
	}
	opts.Format, opts.Width = "svg", 0
	if _, err := renderStarfield(context.Background(), staticGateway{snap: sample()}, "u", layout.New(layout.DefaultConfig()), scene.DefaultZoom(), opts, &buf); err == nil {
		t.Error("expected invalid canvas error")
	}
	opts.Width = 400
	_, err = renderStarfield(context.Background(), staticGateway{err: gateway.ErrUnavailable}, "u", layout.New(layout.DefaultConfig()), scene.DefaultZoom(), opts, &buf)
	if !errors.Is(err, gateway.ErrUnavailable) {
		t.Errorf("err = %v, want ErrUnavailable", err)
	}
}

func TestPrintGraph(t *testing.T) {
	var buf bytes.Buffer
	printGraph(&buf, sample())
	out := buf.String()
	for _, want := range []string{"2 concepts, 1 edges", "Probability", "L1", "Probability → Bayes Rule PREREQ"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	buf.Reset()
	printGraph(&buf, graph.Snapshot{})
	if !strings.Contains(buf.String(), "no concepts yet") {
		t.Errorf("empty output = %q", buf.String())
	}
}

func TestDescribeError(t *testing.T) {
	var buf bytes.Buffer
	_, perr := gateway.ParseFragment([]byte(`{"nodes":[],"edges":"x"}`))
	err := describeError(&buf, perr)
	if err == nil || !strings.Contains(buf.String(), "edges: must be an array") {
		t.Errorf("describeError = %v, output %q", err, buf.String())
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("Fourier", 4); got != "Fou…" {
		t.Errorf("truncate = %q", got)
	}
	if got := truncate("Sets", 4); got != "Sets" {
		t.Errorf("truncate = %q", got)
	}
}

func TestServerGraphsFallBackToLocal(t *testing.T) {
	supa := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		io.WriteString(w, `{"code":"PGRST000","message":"down"}`)
	}))
	defer supa.Close()

	db, err := store.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	defer db.Close()
	if _, err := db.UploadGraph("u1", []store.ConceptInput{{Name: "Sets"}}, nil); err != nil {
		t.Fatalf("UploadGraph: %v", err)
	}

	c := config.Default()
	m := metrics.New()
	gw, err := serverGraphs(c, db, m, zap.NewNop())
	if err != nil || gw != nil {
		t.Fatalf("without supabase: gw = %v, err = %v; want nil, nil", gw, err)
	}

	c.Supabase.URL, c.Supabase.Key = supa.URL, "anon-key"
	gw, err = serverGraphs(c, db, m, zap.NewNop())
	if err != nil {
		t.Fatalf("serverGraphs: %v", err)
	}
	snap, err := gw.FetchGraph(context.Background(), "u1")
	if err != nil {
		t.Fatalf("FetchGraph: %v", err)
	}
	if len(snap.Nodes) != 1 || snap.Nodes[0].Name != "Sets" {
		t.Errorf("nodes = %+v, want the local Sets concept", snap.Nodes)
	}

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if !strings.Contains(rec.Body.String(), "starfield_gateway_fallbacks_total 1") {
		t.Errorf("fallback not counted:\n%s", rec.Body.String())
	}
}
