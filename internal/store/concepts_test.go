package store

import (
	"math"
	"testing"
	"time"

	"github.com/lazypower/starfield/internal/graph"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	db, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func intp(v int) *int { return &v }

func TestStableID(t *testing.T) {
	// The id must match other stores using the same scheme.
	id := StableID("Vectors")
	if len(id) != 16 {
		t.Fatalf("len = %d, want 16", len(id))
	}
	if StableID("Vectors") != id {
		t.Error("StableID not stable")
	}
	if StableID("vectors") == id {
		t.Error("StableID should be case sensitive")
	}
	if got := StableID("abc"); got != "a9993e364706816a" {
		t.Errorf("StableID(abc) = %s, want a9993e364706816a", got)
	}
}

func TestUploadGraph(t *testing.T) {
	db := testDB(t)
	res, err := db.UploadGraph("u1",
		[]ConceptInput{{Name: "Vectors", Level: intp(1)}, {Name: "Matrices", Level: intp(2)}, {Name: "  "}},
		[]EdgeInput{{From: "Vectors", To: "Matrices", Type: "PREREQ"}, {From: "Vectors", To: ""}},
	)
	if err != nil {
		t.Fatalf("UploadGraph: %v", err)
	}
	if res.Concepts != 2 || res.Edges != 1 || res.Skipped != 2 {
		t.Errorf("result = %+v, want 2 concepts, 1 edge, 2 skipped", res)
	}

	snap, err := db.GetGraph("u1")
	if err != nil {
		t.Fatalf("GetGraph: %v", err)
	}
	if len(snap.Nodes) != 2 || len(snap.Edges) != 1 {
		t.Fatalf("graph = %d nodes / %d edges, want 2 / 1", len(snap.Nodes), len(snap.Edges))
	}
	if snap.Nodes[0].Name != "Vectors" || *snap.Nodes[0].Level != 1 {
		t.Errorf("first node = %+v, want Vectors at level 1", snap.Nodes[0])
	}
	if snap.Nodes[0].LastSeenAt == nil {
		t.Error("LastSeenAt not set by upload")
	}
	e := snap.Edges[0]
	if e.Source != StableID("Vectors") || e.Target != StableID("Matrices") || e.Type != graph.Prereq {
		t.Errorf("edge = %+v", e)
	}

	other, err := db.GetGraph("u2")
	if err != nil {
		t.Fatalf("GetGraph(u2): %v", err)
	}
	if len(other.Nodes) != 0 || other.Nodes == nil {
		t.Errorf("other user sees %v, want empty non-nil", other.Nodes)
	}
}

func TestUploadGraphIdempotent(t *testing.T) {
	db := testDB(t)
	nodes := []ConceptInput{{Name: "A", Level: intp(3)}, {Name: "B"}}
	edges := []EdgeInput{{From: "A", To: "B", Type: "rel"}, {From: "A", To: "B", Type: "weird"}}

	for i := 0; i < 3; i++ {
		if _, err := db.UploadGraph("u", nodes, edges); err != nil {
			t.Fatalf("UploadGraph #%d: %v", i, err)
		}
	}
	snap, _ := db.GetGraph("u")
	if len(snap.Nodes) != 2 {
		t.Errorf("nodes = %d, want 2", len(snap.Nodes))
	}
	if len(snap.Edges) != 1 || snap.Edges[0].Type != graph.Rel {
		t.Errorf("edges = %+v, want one REL edge", snap.Edges)
	}

	// A re-upload without a level keeps the stored one.
	if _, err := db.UploadGraph("u", []ConceptInput{{Name: "A"}}, nil); err != nil {
		t.Fatalf("UploadGraph: %v", err)
	}
	snap, _ = db.GetGraph("u")
	for _, n := range snap.Nodes {
		if n.Name == "A" && (n.Level == nil || *n.Level != 3) {
			t.Errorf("A level = %v, want 3", n.Level)
		}
	}
}

func TestUpsertPlanConcepts(t *testing.T) {
	db := testDB(t)
	res, err := db.UpsertPlanConcepts("u", []PlanConcept{
		{Title: "Limits", Order: 1},
		{Title: "", Order: 2},
		{Title: "Derivatives", Order: 3},
		{Title: "Integrals", Order: 4},
	})
	if err != nil {
		t.Fatalf("UpsertPlanConcepts: %v", err)
	}
	if res.Concepts != 3 || res.Edges != 2 || res.Skipped != 1 {
		t.Errorf("result = %+v", res)
	}

	snap, _ := db.GetGraph("u")
	want := map[[2]string]bool{
		{StableID("Limits"), StableID("Derivatives")}:    true,
		{StableID("Derivatives"), StableID("Integrals")}: true,
	}
	for _, e := range snap.Edges {
		if !want[[2]string{e.Source, e.Target}] || e.Type != graph.Prereq {
			t.Errorf("unexpected edge %+v", e)
		}
	}
}

func TestUpdatePractice(t *testing.T) {
	db := testDB(t)
	at := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	db.SetClock(func() time.Time { return at })

	if _, err := db.UploadGraph("u", []ConceptInput{{Name: "Vectors"}}, nil); err != nil {
		t.Fatalf("UploadGraph: %v", err)
	}

	m1, err := db.UpdatePractice("u", "Vectors", 80)
	if err != nil {
		t.Fatalf("UpdatePractice: %v", err)
	}
	if math.Abs(m1-0.24) > 1e-9 {
		t.Errorf("mastery after 80 = %v, want 0.24", m1)
	}
	m2, _ := db.UpdatePractice("u", "Vectors", 100)
	if want := 0.24*0.7 + 0.3; math.Abs(m2-want) > 1e-9 {
		t.Errorf("mastery after 100 = %v, want %v", m2, want)
	}

	snap, _ := db.GetGraph("u")
	n := snap.Nodes[0]
	if n.LastPracticeAt == nil || !n.LastPracticeAt.Equal(at) {
		t.Errorf("LastPracticeAt = %v, want %v", n.LastPracticeAt, at)
	}
	if n.MasteryScore == nil || math.Abs(*n.MasteryScore-m2) > 1e-9 {
		t.Errorf("MasteryScore = %v, want %v", n.MasteryScore, m2)
	}

	var attempts int
	db.QueryRow(`SELECT attempts FROM user_concepts WHERE user_id='u'`).Scan(&attempts)
	if attempts != 2 {
		t.Errorf("attempts = %d, want 2", attempts)
	}

	// Uploading again refreshes last_seen_at but keeps practice state.
	if _, err := db.UploadGraph("u", []ConceptInput{{Name: "Vectors"}}, nil); err != nil {
		t.Fatalf("UploadGraph: %v", err)
	}
	snap, _ = db.GetGraph("u")
	if snap.Nodes[0].MasteryScore == nil {
		t.Error("upload cleared mastery")
	}
}

func TestUpdatePracticeCreatesConcept(t *testing.T) {
	db := testDB(t)
	m, err := db.UpdatePractice("u", "Brand New", 150)
	if err != nil {
		t.Fatalf("UpdatePractice: %v", err)
	}
	if m != 0.3 {
		t.Errorf("mastery = %v, want 0.3 (score clamped to 100)", m)
	}
	if n, _ := db.CountConcepts("u"); n != 1 {
		t.Errorf("CountConcepts = %d, want 1", n)
	}
	if _, err := db.UpdatePractice("u", " ", 50); err == nil {
		t.Error("expected error for empty concept")
	}
}
