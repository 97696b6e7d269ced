// Package graph holds the concept graph model shared by the gateway, the
// layout engine and the scene.
package graph

import (
	"strings"
	"time"

	"github.com/lazypower/starfield/internal/decay"
)

// EdgeType is the relation kind between two concepts.
type EdgeType string

const (
	// Prereq means Source should be learned before Target.
	Prereq EdgeType = "PREREQ"
	// Rel is a loose association.
	Rel EdgeType = "REL"
)

// ParseEdgeType normalizes a relation name. Empty means PREREQ; anything
// that is not PREREQ is treated as REL.
func ParseEdgeType(s string) EdgeType {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" || s == string(Prereq) {
		return Prereq
	}
	return Rel
}

// ConceptNode is one learned concept in a user's graph.
type ConceptNode struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	Level          *int       `json:"level,omitempty"`
	Brightness     float64    `json:"brightness"`
	LastPracticeAt *time.Time `json:"last_practice_at,omitempty"`
	LastSeenAt     *time.Time `json:"last_seen_at,omitempty"`
	MasteryScore   *float64   `json:"mastery_score,omitempty"`
}

// LastActive returns the timestamp brightness is derived from:
// last practice when present, otherwise last seen.
func (n ConceptNode) LastActive() *time.Time {
	if n.LastPracticeAt != nil {
		return n.LastPracticeAt
	}
	return n.LastSeenAt
}

// Mastery returns the mastery score clamped to [0,1]; missing is 0.
func (n ConceptNode) Mastery() float64 {
	if n.MasteryScore == nil {
		return 0
	}
	return decay.Clamp(*n.MasteryScore, 0, 1)
}

// ConceptEdge relates two concepts by id.
type ConceptEdge struct {
	Source string   `json:"source"`
	Target string   `json:"target"`
	Type   EdgeType `json:"type"`
}

// Snapshot is one user's graph as delivered by a gateway.
type Snapshot struct {
	Nodes []ConceptNode `json:"nodes"`
	Edges []ConceptEdge `json:"edges"`
}

// Empty reports whether the snapshot has no nodes.
func (s Snapshot) Empty() bool {
	return len(s.Nodes) == 0
}

// Refresh returns a copy of s with brightness recomputed from each node's
// activity timestamps against now. Gateway-supplied brightness is ignored.
func (s Snapshot) Refresh(now time.Time) Snapshot {
	out := Snapshot{
		Nodes: make([]ConceptNode, len(s.Nodes)),
		Edges: make([]ConceptEdge, len(s.Edges)),
	}
	for i, n := range s.Nodes {
		n.Brightness = decay.Brightness(n.LastActive(), now)
		out.Nodes[i] = n
	}
	for i, e := range s.Edges {
		e.Type = ParseEdgeType(string(e.Type))
		out.Edges[i] = e
	}
	return out
}

// UniqueNodes returns nodes with duplicate ids removed, keeping the first
// occurrence. Nodes with an empty id are dropped.
func UniqueNodes(nodes []ConceptNode) []ConceptNode {
	seen := make(map[string]bool, len(nodes))
	out := make([]ConceptNode, 0, len(nodes))
	for _, n := range nodes {
		if n.ID == "" || seen[n.ID] {
			continue
		}
		seen[n.ID] = true
		out = append(out, n)
	}
	return out
}

// FilterEdges keeps only edges whose endpoints both name a node in nodes.
// It returns the kept edges and how many were dropped.
func FilterEdges(nodes []ConceptNode, edges []ConceptEdge) ([]ConceptEdge, int) {
	ids := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		ids[n.ID] = true
	}
	kept := make([]ConceptEdge, 0, len(edges))
	for _, e := range edges {
		if !ids[e.Source] || !ids[e.Target] {
			continue
		}
		kept = append(kept, e)
	}
	return kept, len(edges) - len(kept)
}
