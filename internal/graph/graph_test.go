package graph

import (
	"testing"
	"time"
)

func intp(v int) *int { return &v }

func TestParseEdgeType(t *testing.T) {
	tests := map[string]EdgeType{
		"":        Prereq,
		"PREREQ":  Prereq,
		" prereq": Prereq,
		"REL":     Rel,
		"rel":     Rel,
		"related": Rel,
	}
	for in, want := range tests {
		if got := ParseEdgeType(in); got != want {
			t.Errorf("ParseEdgeType(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFilterEdgesDropsDangling(t *testing.T) {
	nodes := []ConceptNode{{ID: "A"}, {ID: "B"}}
	edges := []ConceptEdge{
		{Source: "A", Target: "B", Type: Prereq},
		{Source: "A", Target: "Z", Type: Rel},
		{Source: "Y", Target: "B", Type: Prereq},
	}

	kept, dropped := FilterEdges(nodes, edges)
	if len(kept) != 1 || dropped != 2 {
		t.Fatalf("kept=%d dropped=%d, want 1 and 2", len(kept), dropped)
	}
	if kept[0].Source != "A" || kept[0].Target != "B" {
		t.Errorf("kept wrong edge: %+v", kept[0])
	}
}

func TestUniqueNodesKeepsFirst(t *testing.T) {
	nodes := []ConceptNode{{ID: "A", Name: "first"}, {ID: ""}, {ID: "A", Name: "second"}, {ID: "B"}}
	got := UniqueNodes(nodes)
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].Name != "first" {
		t.Errorf("kept %q, want first occurrence", got[0].Name)
	}
}

func TestRefreshUsesPracticeOverSeen(t *testing.T) {
	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	practiced := now
	seen := now.Add(-90 * 24 * time.Hour)

	snap := Snapshot{Nodes: []ConceptNode{
		{ID: "p", LastPracticeAt: &practiced, LastSeenAt: &seen, Brightness: 0.5},
		{ID: "s", LastSeenAt: &seen},
		{ID: "n", Brightness: 0.9},
	}, Edges: []ConceptEdge{{Source: "p", Target: "s", Type: "rel"}}}

	out := snap.Refresh(now)
	if out.Nodes[0].Brightness != 1 {
		t.Errorf("practiced node brightness = %v, want 1", out.Nodes[0].Brightness)
	}
	if out.Nodes[1].Brightness != 0.08 {
		t.Errorf("seen-only node brightness = %v, want floor 0.08", out.Nodes[1].Brightness)
	}
	if out.Nodes[2].Brightness != 0.12 {
		t.Errorf("unobserved node brightness = %v, want 0.12", out.Nodes[2].Brightness)
	}
	if out.Edges[0].Type != Rel {
		t.Errorf("edge type = %q, want REL", out.Edges[0].Type)
	}
	if snap.Nodes[0].Brightness != 0.5 {
		t.Error("Refresh mutated its receiver")
	}
}

func TestMasteryClamped(t *testing.T) {
	hi, lo := 1.7, -0.2
	if (ConceptNode{MasteryScore: &hi}).Mastery() != 1 {
		t.Error("mastery above 1 should clamp to 1")
	}
	if (ConceptNode{MasteryScore: &lo}).Mastery() != 0 {
		t.Error("negative mastery should clamp to 0")
	}
	if (ConceptNode{}).Mastery() != 0 {
		t.Error("missing mastery should be 0")
	}
}

func TestAdjacencySymmetric(t *testing.T) {
	nodes := []ConceptNode{{ID: "A", Level: intp(1)}, {ID: "B"}, {ID: "C"}, {ID: "D"}}
	edges := []ConceptEdge{
		{Source: "A", Target: "B", Type: Prereq},
		{Source: "C", Target: "A", Type: Rel},
		{Source: "B", Target: "missing", Type: Rel},
		{Source: "D", Target: "D", Type: Rel},
	}
	adj := NewAdjacency(nodes, edges)

	for a, set := range adj {
		for b := range set {
			if !adj[b][a] {
				t.Errorf("%s -> %s present but %s -> %s missing", a, b, b, a)
			}
		}
	}
	if got := adj.Neighbors("A"); len(got) != 2 || got[0] != "B" || got[1] != "C" {
		t.Errorf("Neighbors(A) = %v, want [B C]", got)
	}
	if adj.Degree("B") != 1 {
		t.Errorf("Degree(B) = %d, want 1 (dangling edge ignored)", adj.Degree("B"))
	}
	if adj.Degree("D") != 0 {
		t.Errorf("Degree(D) = %d, want 0 (self loop ignored)", adj.Degree("D"))
	}
	if _, ok := adj["missing"]; ok {
		t.Error("dangling endpoint must not enter the index")
	}
}
