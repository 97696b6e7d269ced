package gateway

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/supabase-community/supabase-go"

	"github.com/lazypower/starfield/internal/graph"
	"github.com/lazypower/starfield/internal/store"
)

// Supabase reads and writes the user_concepts and user_edges tables of a
// Supabase project through PostgREST.
//
// The PostgREST client has no context support; ctx is only checked before
// each request.
type Supabase struct {
	client *supabase.Client
	now    func() time.Time
}

// NewSupabase connects with the project URL and an anon or publishable key.
func NewSupabase(url, key string) (*Supabase, error) {
	if url == "" || key == "" {
		return nil, fmt.Errorf("supabase: url and key are required")
	}
	client, err := supabase.NewClient(strings.TrimRight(url, "/"), key, nil)
	if err != nil {
		return nil, fmt.Errorf("supabase client: %w", err)
	}
	return &Supabase{client: client, now: time.Now}, nil
}

type supaConcept struct {
	UserID         string     `json:"user_id,omitempty"`
	ConceptID      string     `json:"concept_id"`
	Name           string     `json:"name"`
	Level          *int       `json:"level"`
	LastSeenAt     *time.Time `json:"last_seen_at,omitempty"`
	LastPracticeAt *time.Time `json:"last_practice_at,omitempty"`
	MasteryScore   *float64   `json:"mastery_score,omitempty"`
	UpdatedAt      *time.Time `json:"updated_at,omitempty"`
}

type supaEdge struct {
	UserID    string     `json:"user_id,omitempty"`
	SourceID  string     `json:"source_id"`
	TargetID  string     `json:"target_id"`
	Type      string     `json:"type"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// FetchGraph implements Gateway.
func (s *Supabase) FetchGraph(ctx context.Context, userID string) (graph.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return graph.Snapshot{}, err
	}
	var concepts []supaConcept
	_, err := s.client.From("user_concepts").
		Select("concept_id,name,level,last_seen_at,last_practice_at,mastery_score", "", false).
		Eq("user_id", userID).
		ExecuteTo(&concepts)
	if err != nil {
		return graph.Snapshot{}, fmt.Errorf("%w: supabase concepts: %v", ErrUnavailable, err)
	}

	if err := ctx.Err(); err != nil {
		return graph.Snapshot{}, err
	}
	var edges []supaEdge
	_, err = s.client.From("user_edges").
		Select("source_id,target_id,type", "", false).
		Eq("user_id", userID).
		ExecuteTo(&edges)
	if err != nil {
		return graph.Snapshot{}, fmt.Errorf("%w: supabase edges: %v", ErrUnavailable, err)
	}

	snap := graph.Snapshot{
		Nodes: make([]graph.ConceptNode, 0, len(concepts)),
		Edges: make([]graph.ConceptEdge, 0, len(edges)),
	}
	for _, c := range concepts {
		snap.Nodes = append(snap.Nodes, graph.ConceptNode{
			ID:             c.ConceptID,
			Name:           c.Name,
			Level:          c.Level,
			LastSeenAt:     c.LastSeenAt,
			LastPracticeAt: c.LastPracticeAt,
			MasteryScore:   c.MasteryScore,
		})
	}
	for _, e := range edges {
		snap.Edges = append(snap.Edges, graph.ConceptEdge{
			Source: e.SourceID,
			Target: e.TargetID,
			Type:   graph.ParseEdgeType(e.Type),
		})
	}
	return snap, nil
}

// UploadGraphFragment implements Gateway. Rows merge on their primary keys
// the same way the local store does, except that a missing level is written
// as 0.
func (s *Supabase) UploadGraphFragment(ctx context.Context, userID string, f Fragment) error {
	if err := f.Validate(); err != nil {
		return err
	}
	now := s.now().UTC()

	var concepts []supaConcept
	for _, n := range f.Nodes {
		level := 0
		if n.Level != nil {
			level = *n.Level
		}
		concepts = append(concepts, supaConcept{
			UserID:     userID,
			ConceptID:  store.StableID(n.Name),
			Name:       n.Name,
			Level:      &level,
			LastSeenAt: &now,
			UpdatedAt:  &now,
		})
	}
	var edges []supaEdge
	for _, e := range f.Edges {
		edges = append(edges, supaEdge{
			UserID:    userID,
			SourceID:  store.StableID(e.From),
			TargetID:  store.StableID(e.To),
			Type:      string(graph.ParseEdgeType(string(e.Type))),
			UpdatedAt: &now,
		})
	}

	if len(concepts) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, _, err := s.client.From("user_concepts").Upsert(concepts, "user_id,concept_id", "minimal", "").Execute(); err != nil {
			return fmt.Errorf("%w: supabase upsert concepts: %v", ErrUnavailable, err)
		}
	}
	if len(edges) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, _, err := s.client.From("user_edges").Upsert(edges, "user_id,source_id,target_id,type", "minimal", "").Execute(); err != nil {
			return fmt.Errorf("%w: supabase upsert edges: %v", ErrUnavailable, err)
		}
	}
	return nil
}
