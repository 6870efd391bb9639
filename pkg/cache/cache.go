// Package cache provides content-addressed caching for arrangement runs.
//
// Cache keys are derived from the snapshot content hash plus the options
// that influence each stage, so a canvas that has not changed never pays
// for a second arrangement or render:
//
//	snapshot bytes -> Hash -> LayoutKey(hash, opts) -> layout JSON
//	                          ArtifactKey(hash, opts) -> svg/png bytes
//
// Backends: [FileCache] for CLI use, [RedisCache] for serve deployments,
// [NullCache] to disable caching.
package cache

import (
	"context"
	"time"
)

// DefaultTTL is how long cached layouts and artifacts stay valid.
// Arrangements are deterministic, so entries only expire to bound disk
// usage, not for correctness.
const DefaultTTL = 30 * 24 * time.Hour

// Cache is a byte-oriented key/value store with TTL.
type Cache interface {
	// Get retrieves a value. The second return reports whether the key
	// was present and fresh.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a value. A non-positive ttl means no expiration.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes a value. Removing a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// LayoutKeyOpts are the arrangement options that change the computed
// layout and therefore participate in the cache key.
type LayoutKeyOpts struct {
	Mode            string  `json:"mode"`
	HardwareOnSides bool    `json:"hardware_on_sides"`
	MinColumns      int     `json:"min_columns"`
	BoxSpacing      float64 `json:"box_spacing"`
	ColumnSpacing   float64 `json:"column_spacing"`
	CellWidth       int     `json:"cell_width"`
	CellHeight      int     `json:"cell_height"`
}

// ArtifactKeyOpts are the render options that change the produced bytes.
type ArtifactKeyOpts struct {
	Format   string `json:"format"`
	Detailed bool   `json:"detailed"`
}

// Keyer generates cache keys for the pipeline stages.
type Keyer interface {
	// LayoutKey keys a computed layout by snapshot hash and options.
	LayoutKey(snapshotHash string, opts LayoutKeyOpts) string

	// ArtifactKey keys rendered bytes by snapshot hash and options.
	ArtifactKey(snapshotHash string, opts ArtifactKeyOpts) string
}

// DefaultKeyer hashes the option structs into stable keys.
type DefaultKeyer struct{}

// NewDefaultKeyer creates the standard keyer.
func NewDefaultKeyer() Keyer { return &DefaultKeyer{} }

// LayoutKey implements [Keyer].
func (k *DefaultKeyer) LayoutKey(snapshotHash string, opts LayoutKeyOpts) string {
	return hashKey("layout", snapshotHash, opts)
}

// ArtifactKey implements [Keyer].
func (k *DefaultKeyer) ArtifactKey(snapshotHash string, opts ArtifactKeyOpts) string {
	return hashKey("artifact", snapshotHash, opts)
}
