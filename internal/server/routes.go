package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/lazypower/starfield/internal/gateway"
	"github.com/lazypower/starfield/internal/render"
	"github.com/lazypower/starfield/internal/scene"
	"github.com/lazypower/starfield/internal/store"
)

const (
	defaultWidth  = 960
	defaultHeight = 640
	maxCanvas     = 4096
	maxBody       = 1 << 20
)

var validate = validator.New()

func (s *Server) handleGetGraph(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r.URL.Query())
	if !ok {
		return
	}
	snap, err := s.graphs.FetchGraph(r.Context(), user)
	if err != nil {
		s.serverError(w, "fetch graph", err)
		return
	}
	writeJSON(w, http.StatusOK, snap.Refresh(s.now()))
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "read body failed")
		return
	}
	var req struct {
		UserID string `json:"user_id"`
	}
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if strings.TrimSpace(req.UserID) == "" {
		writeError(w, http.StatusBadRequest, "user_id required")
		return
	}

	// Shape problems are rejected; blank names and endpoints are skipped
	// by the store.
	frag, err := gateway.DecodeFragment(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	nodes, edges := frag.StoreInputs()
	res, err := s.db.UploadGraph(req.UserID, nodes, edges)
	if err != nil {
		s.serverError(w, "upload graph", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"concepts": res.Concepts,
		"edges":    res.Edges,
		"skipped":  res.Skipped,
	})
}

type planRequest struct {
	UserID string     `json:"user_id" validate:"required"`
	Nodes  []planNode `json:"nodes" validate:"required,dive"`
}

type planNode struct {
	Title string `json:"title" validate:"required"`
	Order int    `json:"order" validate:"min=0"`
}

func (s *Server) handlePlan(w http.ResponseWriter, r *http.Request) {
	var req planRequest
	if !decodeValid(w, r, &req) {
		return
	}
	res, err := s.db.UpsertPlanConcepts(req.UserID, planConcepts(req.Nodes))
	if err != nil {
		s.serverError(w, "upsert plan", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"concepts": res.Concepts,
		"edges":    res.Edges,
	})
}

type practiceRequest struct {
	UserID  string `json:"user_id" validate:"required"`
	Concept string `json:"concept" validate:"required"`
	Score   *int   `json:"score" validate:"required"`
}

func (s *Server) handlePractice(w http.ResponseWriter, r *http.Request) {
	var req practiceRequest
	if !decodeValid(w, r, &req) {
		return
	}
	mastery, err := s.db.UpdatePractice(req.UserID, req.Concept, *req.Score)
	if err != nil {
		s.serverError(w, "update practice", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":        "ok",
		"mastery_score": mastery,
	})
}

func (s *Server) handleLayout(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	user, ok := requireUser(w, q)
	if !ok {
		return
	}
	width, height, err := canvasSize(q)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	snap, err := s.graphs.FetchGraph(r.Context(), user)
	if err != nil {
		s.serverError(w, "fetch graph", err)
		return
	}
	snap = snap.Refresh(s.now())

	start := time.Now()
	res := s.engine.Run(snap.Nodes, snap.Edges, width, height)
	s.metrics.ObserveLayout(time.Since(start), len(res.Nodes), res.DroppedEdges)

	writeJSON(w, http.StatusOK, map[string]any{
		"width":         width,
		"height":        height,
		"nodes":         res.Nodes,
		"edges":         res.Edges,
		"dropped_edges": res.DroppedEdges,
		"ticks":         res.Ticks,
	})
}

type format int

const (
	formatSVG format = iota
	formatPNG
)

// handleRender draws the user's starfield. Query parameters mirror what an
// interactive surface would hold: scale, tx, ty and selected.
func (s *Server) handleRender(f format) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		user, ok := requireUser(w, q)
		if !ok {
			return
		}
		width, height, err := canvasSize(q)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		scale, err := floatParam(q, "scale", 1)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		tx, err := floatParam(q, "tx", 0)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		ty, err := floatParam(q, "ty", 0)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		snap, err := s.graphs.FetchGraph(r.Context(), user)
		if err != nil {
			s.serverError(w, "fetch graph", err)
			return
		}

		v := scene.NewView(s.engine, width, height, s.zoom)
		v.SetClock(s.now)
		start := time.Now()
		v.ApplyGraph(v.BeginLoad(), snap)
		s.metrics.ObserveLayout(time.Since(start), len(v.Nodes()), v.DroppedEdges())

		v.Viewport.SetScale(scale)
		v.Viewport.TranslateX, v.Viewport.TranslateY = tx, ty
		if id := q.Get("selected"); id != "" {
			v.Select(id)
		}

		var buf bytes.Buffer
		contentType := "image/svg+xml"
		switch f {
		case formatPNG:
			contentType = "image/png"
			err = render.PNG(&buf, v.Frame())
		default:
			err = render.SVG(&buf, v.Frame())
		}
		if err != nil {
			s.serverError(w, "render", err)
			return
		}
		w.Header().Set("Content-Type", contentType)
		w.Header().Set("Cache-Control", "no-store")
		w.Write(buf.Bytes())
	}
}

func (s *Server) serverError(w http.ResponseWriter, op string, err error) {
	s.log.Error(op+" failed", zap.Error(err))
	status := http.StatusInternalServerError
	if errors.Is(err, gateway.ErrUnavailable) {
		status = http.StatusServiceUnavailable
	}
	writeError(w, status, err.Error())
}

func requireUser(w http.ResponseWriter, q url.Values) (string, bool) {
	user := strings.TrimSpace(q.Get("user_id"))
	if user == "" {
		writeError(w, http.StatusBadRequest, "user_id required")
		return "", false
	}
	return user, true
}

func decodeValid(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBody)).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return false
	}
	if err := validate.Struct(v); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

func canvasSize(q url.Values) (float64, float64, error) {
	width, err := floatParam(q, "width", defaultWidth)
	if err != nil {
		return 0, 0, err
	}
	height, err := floatParam(q, "height", defaultHeight)
	if err != nil {
		return 0, 0, err
	}
	if width < 1 || height < 1 || width > maxCanvas || height > maxCanvas {
		return 0, 0, fmt.Errorf("canvas must be between 1 and %d pixels", maxCanvas)
	}
	return width, height, nil
}

func floatParam(q url.Values, key string, def float64) (float64, error) {
	raw := q.Get(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%s: not a number", key)
	}
	return v, nil
}

func planConcepts(nodes []planNode) []store.PlanConcept {
	plan := make([]store.PlanConcept, len(nodes))
	for i, n := range nodes {
		plan[i] = store.PlanConcept{Title: n.Title, Order: n.Order}
	}
	return plan
}
