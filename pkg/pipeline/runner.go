package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/patchgrid/patchgrid/pkg/arrange"
	"github.com/patchgrid/patchgrid/pkg/cache"
	"github.com/patchgrid/patchgrid/pkg/layout"
	"github.com/patchgrid/patchgrid/pkg/observability"
	"github.com/patchgrid/patchgrid/pkg/patch"
	"github.com/patchgrid/patchgrid/pkg/render"
)

// Runner encapsulates pipeline execution with caching.
// Both CLI and API can use this to avoid duplicating caching logic.
//
// The Runner is stateless except for the cache and logger - it doesn't
// store pipeline results. Multiple goroutines can safely use the same
// Runner with different options.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
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
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
	}
}

// Execute runs the complete arrange → render pipeline with caching.
func (r *Runner) Execute(ctx context.Context, snap *patch.Snapshot, opts Options) (*Result, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	r.applyLogger(&opts)

	result := &Result{
		RunID:     uuid.NewString(),
		Artifacts: make(map[string][]byte),
	}
	result.Stats.GroupCount = snap.GroupCount()
	result.Stats.ConnectionCount = snap.ConnectionCount()

	logger := r.Logger.With("run_id", result.RunID)

	// Stage 1: Arrange
	arrangeStart := time.Now()
	lay, hash, layoutHit, err := r.ArrangeWithCacheInfo(ctx, snap, opts)
	if err != nil {
		return nil, fmt.Errorf("arrange: %w", err)
	}
	result.Layout = lay
	result.SnapshotHash = hash
	result.Stats.ArrangeTime = time.Since(arrangeStart)
	result.CacheInfo.LayoutHit = layoutHit

	logger.Info("arranged snapshot",
		"groups", result.Stats.GroupCount,
		"connections", result.Stats.ConnectionCount,
		"columns", lay.Columns,
		"restarts", lay.Restarts,
		"cached", layoutHit,
		"duration", result.Stats.ArrangeTime)

	// Stage 2: Render
	renderStart := time.Now()
	artifacts, renderHit, err := r.RenderWithCacheInfo(ctx, snap, lay, opts)
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	result.Artifacts = artifacts
	result.Stats.RenderTime = time.Since(renderStart)
	result.CacheInfo.RenderHit = renderHit

	logger.Info("rendered outputs",
		"formats", opts.Formats,
		"cached", renderHit,
		"duration", result.Stats.RenderTime)

	return result, nil
}

// ArrangeWithCacheInfo computes a layout with caching and returns the
// snapshot hash and cache hit info alongside it.
func (r *Runner) ArrangeWithCacheInfo(ctx context.Context, snap *patch.Snapshot, opts Options) (layout.Layout, string, bool, error) {
	if err := opts.ValidateForArrange(); err != nil {
		return layout.Layout{}, "", false, err
	}
	r.applyLogger(&opts)

	snapData, err := patch.MarshalSnapshot(snap)
	if err != nil {
		return layout.Layout{}, "", false, fmt.Errorf("serialize snapshot: %w", err)
	}
	hash := cache.Hash(snapData)
	cacheKey := r.Keyer.LayoutKey(hash, opts.LayoutKeyOpts())

	// Try cache first (unless refresh requested)
	if !opts.Refresh {
		if data, hit, err := r.Cache.Get(ctx, cacheKey); err == nil && hit {
			cached, err := layout.Unmarshal(data)
			if err == nil {
				observability.Cache().OnCacheHit(ctx, "layout")
				return cached, hash, true, nil
			}
			// If deserialization fails, fall through to recompute
		}
		observability.Cache().OnCacheMiss(ctx, "layout")
	}

	observability.Arrange().OnArrangeStart(ctx, opts.Mode, snap.GroupCount())
	start := time.Now()

	arranger := arrange.New(snap, opts.Metrics, arrange.Callbacks{}, opts.ArrangeOptions())
	var res *arrange.Result
	if opts.IsFaceToFace() {
		res = arranger.ArrangeFaceToFace()
	} else {
		res = arranger.Arrange()
	}
	lay := layout.FromResult(res, opts.Mode)
	lay.SnapshotHash = hash

	observability.Arrange().OnArrangeComplete(ctx, opts.Mode, lay.Columns, lay.Restarts, time.Since(start), nil)

	// Cache the result
	if data, err := layout.Marshal(lay); err == nil {
		_ = r.Cache.Set(ctx, cacheKey, data, cache.DefaultTTL)
		observability.Cache().OnCacheSet(ctx, "layout", len(data))
	}

	return lay, hash, false, nil
}

// ArrangeSnapshot is a convenience wrapper that discards the cache hit info.
func (r *Runner) ArrangeSnapshot(ctx context.Context, snap *patch.Snapshot, opts Options) (layout.Layout, error) {
	lay, _, _, err := r.ArrangeWithCacheInfo(ctx, snap, opts)
	return lay, err
}

// RenderWithCacheInfo generates artifacts with caching and returns cache hit info.
func (r *Runner) RenderWithCacheInfo(ctx context.Context, snap *patch.Snapshot, lay layout.Layout, opts Options) (map[string][]byte, bool, error) {
	if err := opts.ValidateForRender(); err != nil {
		return nil, false, err
	}
	r.applyLogger(&opts)

	// Artifact keys derive from the layout bytes, so a layout change
	// invalidates every cached format.
	layoutData, err := layout.Marshal(lay)
	if err != nil {
		return nil, false, fmt.Errorf("serialize layout for cache key: %w", err)
	}
	layoutHash := cache.Hash(layoutData)

	// Try to get all formats from cache
	allCached := true
	artifacts := make(map[string][]byte)

	if !opts.Refresh {
		for _, format := range opts.Formats {
			cacheKey := r.Keyer.ArtifactKey(layoutHash, opts.ArtifactKeyOpts(format))
			if data, hit, err := r.Cache.Get(ctx, cacheKey); err == nil && hit {
				artifacts[format] = data
			} else {
				allCached = false
				break
			}
		}
		if allCached && len(artifacts) == len(opts.Formats) {
			for range opts.Formats {
				observability.Cache().OnCacheHit(ctx, "artifact")
			}
			return artifacts, true, nil
		}
	}

	observability.Arrange().OnRenderStart(ctx, opts.Formats)
	start := time.Now()

	rendered, err := r.renderFormats(snap, lay, layoutData, opts)
	observability.Arrange().OnRenderComplete(ctx, opts.Formats, time.Since(start), err)
	if err != nil {
		return nil, false, err
	}

	// Cache each format
	for format, data := range rendered {
		cacheKey := r.Keyer.ArtifactKey(layoutHash, opts.ArtifactKeyOpts(format))
		_ = r.Cache.Set(ctx, cacheKey, data, cache.DefaultTTL)
		observability.Cache().OnCacheSet(ctx, "artifact", len(data))
	}

	return rendered, false, nil
}

// Render is a convenience wrapper that discards the cache hit info.
func (r *Runner) Render(ctx context.Context, snap *patch.Snapshot, lay layout.Layout, opts Options) (map[string][]byte, error) {
	artifacts, _, err := r.RenderWithCacheInfo(ctx, snap, lay, opts)
	return artifacts, err
}

// renderFormats produces every requested format from the layout.
func (r *Runner) renderFormats(snap *patch.Snapshot, lay layout.Layout, layoutData []byte, opts Options) (map[string][]byte, error) {
	out := make(map[string][]byte, len(opts.Formats))
	ropts := render.Options{Detailed: opts.Detailed}

	var dot string
	needsDOT := false
	for _, f := range opts.Formats {
		if f != FormatJSON {
			needsDOT = true
		}
	}
	if needsDOT {
		dot = render.ToDOT(snap, lay, ropts)
	}

	for _, format := range opts.Formats {
		switch format {
		case FormatJSON:
			out[format] = layoutData
		case FormatDOT:
			out[format] = []byte(dot)
		case FormatSVG:
			data, err := render.RenderSVG(dot)
			if err != nil {
				return nil, fmt.Errorf("render svg: %w", err)
			}
			out[format] = data
		case FormatPNG:
			data, err := render.RenderPNG(dot)
			if err != nil {
				return nil, fmt.Errorf("render png: %w", err)
			}
			out[format] = data
		default:
			return nil, fmt.Errorf("invalid format: %q", format)
		}
	}
	return out, nil
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
