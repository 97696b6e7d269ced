// Package gateway is the boundary between a starfield surface and wherever
// the user's concept graph lives.
package gateway

import (
	"context"
	"errors"
	"strings"

	"github.com/lazypower/starfield/internal/graph"
)

// ErrUnavailable means the backing store could not be reached. Callers may
// retry or fall back to another Gateway.
var ErrUnavailable = errors.New("graph store unavailable")

// Gateway fetches and updates one user's concept graph.
type Gateway interface {
	FetchGraph(ctx context.Context, userID string) (graph.Snapshot, error)
	UploadGraphFragment(ctx context.Context, userID string, f Fragment) error
}

// ValidationError reports a malformed upload. It is raised before anything
// is sent when parsing locally, and mapped from 400/422 responses remotely.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	if len(e.Problems) == 0 {
		return "invalid graph fragment"
	}
	return "invalid graph fragment: " + strings.Join(e.Problems, "; ")
}

func invalid(problems ...string) *ValidationError {
	return &ValidationError{Problems: problems}
}

// IsValidation reports whether err is a *ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
