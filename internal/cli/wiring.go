package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lazypower/starfield/internal/config"
	"github.com/lazypower/starfield/internal/gateway"
	"github.com/lazypower/starfield/internal/identity"
	"github.com/lazypower/starfield/internal/metrics"
	"github.com/lazypower/starfield/internal/store"
)

var (
	brand  = color.New(color.FgHiYellow, color.Bold)
	subtle = color.New(color.FgHiBlack)
	good   = color.New(color.FgGreen)
	warn   = color.New(color.FgYellow)
	bad    = color.New(color.FgRed)
)

// resolveUser returns --user, or this device's persistent id.
func resolveUser() (string, error) {
	if userFlag != "" {
		return identity.Static(userFlag).UserID()
	}
	f, err := identity.NewFile("")
	if err != nil {
		return "", err
	}
	return f.UserID()
}

func openLocal(c config.Config) (*store.DB, error) {
	path := c.Database.Path
	if path == "" {
		var err error
		path, err = store.DefaultDBPath()
		if err != nil {
			return nil, fmt.Errorf("resolve db path: %w", err)
		}
	}
	db, err := store.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return db, nil
}

// graphSource is a gateway plus whatever it holds open.
type graphSource struct {
	gateway.Gateway
	practicer gateway.Practicer
	closers   []io.Closer
}

func (g *graphSource) Close() error {
	var first error
	for _, c := range g.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// newGraphSource picks where graphs come from:
//
//	--local                 the local database
//	gateway.prefer_supabase Supabase, when configured
//	otherwise               the starfield service, with Supabase or the
//	                        local database as fallback when configured
func newGraphSource(c config.Config, local bool, log *zap.Logger) (*graphSource, error) {
	if local {
		db, err := openLocal(c)
		if err != nil {
			return nil, err
		}
		st := gateway.NewStore(db)
		return &graphSource{Gateway: st, practicer: st, closers: []io.Closer{db}}, nil
	}

	var supa *gateway.Supabase
	if c.Supabase.URL != "" && c.Supabase.Key != "" {
		s, err := gateway.NewSupabase(c.Supabase.URL, c.Supabase.Key)
		if err != nil {
			return nil, err
		}
		supa = s
	}
	if c.Gateway.PreferSupabase {
		if supa == nil {
			return nil, fmt.Errorf("gateway.prefer_supabase is set but supabase url/key are missing")
		}
		return &graphSource{Gateway: supa}, nil
	}

	h := gateway.NewHTTP(c.GatewayURL(),
		gateway.WithRateLimit(c.Gateway.RateLimit),
		gateway.WithBreaker(c.Gateway.BreakerFailures, c.Gateway.BreakerOpenFor),
		gateway.WithLogger(log),
	)
	src := &graphSource{Gateway: h, practicer: h}

	var secondary gateway.Gateway
	switch {
	case supa != nil:
		secondary = supa
	case c.Gateway.FallbackToLocal:
		db, err := openLocal(c)
		if err != nil {
			return nil, err
		}
		secondary = gateway.NewStore(db)
		src.closers = append(src.closers, db)
	}
	if secondary != nil {
		src.Gateway = &gateway.Fallback{Primary: h, Secondary: secondary, Log: log}
	}
	return src, nil
}

// serverGraphs backs the service's graph routes with Supabase when it is
// configured, reading from the local database while Supabase is down. It
// returns nil when Supabase is not configured.
func serverGraphs(c config.Config, db *store.DB, m *metrics.Collector, log *zap.Logger) (gateway.Gateway, error) {
	if c.Supabase.URL == "" || c.Supabase.Key == "" {
		return nil, nil
	}
	supa, err := gateway.NewSupabase(c.Supabase.URL, c.Supabase.Key)
	if err != nil {
		return nil, err
	}
	return &gateway.Fallback{
		Primary:    supa,
		Secondary:  gateway.NewStore(db),
		Log:        log,
		OnFallback: m.Fallbacks.Inc,
	}, nil
}

func requestContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	timeout := cfg.Gateway.RequestTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return context.WithTimeout(cmd.Context(), timeout)
}
