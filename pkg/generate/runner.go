package generate

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/roomforge/roomforge/pkg/cache"
	"github.com/roomforge/roomforge/pkg/codec"
	"github.com/roomforge/roomforge/pkg/layout"
	"github.com/roomforge/roomforge/pkg/observability"
)

// Runner encapsulates generation with caching. Both CLI and API use it
// so caching behaves the same at every entry point.
//
// The Runner is stateless except for the cache and logger; it stores no
// results. Multiple goroutines can share one Runner with different
// options.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
}

// NewRunner creates a runner with the given cache and keyer.
// A nil keyer gets the DefaultKeyer; a nil cache disables caching.
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{Cache: c, Keyer: keyer, Logger: logger}
}

// Result contains the outputs of a generation run.
type Result struct {
	// Layout is the finished floor plan.
	Layout *layout.Layout

	// RequestID uniquely identifies this run for logs and hooks.
	RequestID string

	// OptionsHash is the cache hash of the request options.
	OptionsHash string

	// Converged reports whether the optimizer converged. A false value
	// is a quality signal, not a failure; the layout is still valid.
	Converged bool

	// Stats contains timing and size information.
	Stats Stats

	// CacheInfo tracks whether the layout came from cache.
	CacheInfo CacheInfo
}

// CacheInfo tracks cache behavior for a run.
type CacheInfo struct {
	Hit bool // Whether the layout came from cache
}

// Execute runs the complete generation pipeline with caching.
// Generation is deterministic, so a cached layout for the same options
// hash is exactly what a fresh run would produce.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}

	result := &Result{
		RequestID:   uuid.NewString(),
		OptionsHash: opts.Hash(),
	}
	cacheKey := r.Keyer.LayoutKey(result.OptionsHash)
	start := time.Now()

	observability.Generation().OnGenerateStart(ctx, result.RequestID, opts.Seed)

	// Try cache first (unless refresh requested)
	if !opts.Refresh {
		if data, hit, err := r.Cache.Get(ctx, cacheKey); err == nil && hit {
			if cached, err := codec.DecodeBinary(data); err == nil {
				observability.Cache().OnCacheHit(ctx, "layout")
				result.Layout = cached
				result.Converged = true
				result.CacheInfo.Hit = true
				result.Stats.RoomCount = len(cached.Rooms)
				result.Stats.CorridorCount = len(cached.Corridors)
				result.Stats.TotalTime = time.Since(start)
				r.Logger.Debug("layout cache hit", "key", cacheKey, "request_id", result.RequestID)
				observability.Generation().OnGenerateComplete(ctx, result.RequestID,
					len(cached.Rooms), len(cached.Corridors), result.Stats.TotalTime, nil)
				return result, nil
			}
			// Corrupt entry, drop it and regenerate.
			_ = r.Cache.Delete(ctx, cacheKey)
		}
		observability.Cache().OnCacheMiss(ctx, "layout")
	}

	stepper, err := NewStepper(opts)
	if err != nil {
		return nil, err
	}
	for {
		done, err := stepper.Step(ctx)
		if err != nil {
			observability.Generation().OnGenerateComplete(ctx, result.RequestID, 0, 0, time.Since(start), err)
			return nil, err
		}
		if done {
			break
		}
	}
	l, converged, err := stepper.Result()
	if err != nil {
		return nil, err
	}
	result.Layout = l
	result.Converged = converged
	result.Stats = stepper.Stats()
	result.Stats.TotalTime = time.Since(start)

	r.Logger.Info("generated layout",
		"rooms", len(l.Rooms),
		"corridors", len(l.Corridors),
		"converged", converged,
		"duration", result.Stats.TotalTime,
		"request_id", result.RequestID)

	if data, err := codec.EncodeBinary(l); err == nil {
		if err := r.Cache.Set(ctx, cacheKey, data, cache.TTLLayout); err == nil {
			observability.Cache().OnCacheSet(ctx, "layout", len(data))
		}
	}

	observability.Generation().OnGenerateComplete(ctx, result.RequestID,
		len(l.Rooms), len(l.Corridors), result.Stats.TotalTime, nil)
	return result, nil
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}
