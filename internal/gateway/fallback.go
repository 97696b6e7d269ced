package gateway

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/lazypower/starfield/internal/graph"
)

// Fallback reads from Primary and switches to Secondary only when Primary
// reports ErrUnavailable. Uploads go to Primary alone so a fragment is never
// split across stores.
type Fallback struct {
	Primary   Gateway
	Secondary Gateway
	Log       *zap.Logger
	// OnFallback, when set, is called each time Secondary serves a fetch.
	OnFallback func()
}

// FetchGraph implements Gateway.
func (f *Fallback) FetchGraph(ctx context.Context, userID string) (graph.Snapshot, error) {
	snap, err := f.Primary.FetchGraph(ctx, userID)
	if err == nil || !errors.Is(err, ErrUnavailable) || f.Secondary == nil {
		return snap, err
	}
	if f.Log != nil {
		f.Log.Warn("primary graph source unavailable, using fallback", zap.Error(err))
	}
	if f.OnFallback != nil {
		f.OnFallback()
	}
	return f.Secondary.FetchGraph(ctx, userID)
}

// UploadGraphFragment implements Gateway.
func (f *Fallback) UploadGraphFragment(ctx context.Context, userID string, frag Fragment) error {
	return f.Primary.UploadGraphFragment(ctx, userID, frag)
}
