package gateway

import (
	"context"
	"fmt"

	"github.com/lazypower/starfield/internal/graph"
	"github.com/lazypower/starfield/internal/store"
)

// Store serves graphs straight from a local database.
type Store struct {
	db *store.DB
}

// NewStore wraps db.
func NewStore(db *store.DB) *Store {
	return &Store{db: db}
}

// FetchGraph implements Gateway.
func (s *Store) FetchGraph(ctx context.Context, userID string) (graph.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return graph.Snapshot{}, err
	}
	snap, err := s.db.GetGraph(userID)
	if err != nil {
		return graph.Snapshot{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return snap, nil
}

// UploadGraphFragment implements Gateway.
func (s *Store) UploadGraphFragment(ctx context.Context, userID string, f Fragment) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := f.Validate(); err != nil {
		return err
	}
	nodes, edges := f.StoreInputs()
	if _, err := s.db.UploadGraph(userID, nodes, edges); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// StoreInputs converts f to the store's merge inputs.
func (f Fragment) StoreInputs() ([]store.ConceptInput, []store.EdgeInput) {
	nodes := make([]store.ConceptInput, len(f.Nodes))
	for i, n := range f.Nodes {
		nodes[i] = store.ConceptInput{Name: n.Name, Level: n.Level}
	}
	edges := make([]store.EdgeInput, len(f.Edges))
	for i, e := range f.Edges {
		edges[i] = store.EdgeInput{From: e.From, To: e.To, Type: string(e.Type)}
	}
	return nodes, edges
}
