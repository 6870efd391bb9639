package cache

import "errors"

// ErrCacheUnavailable indicates the cache backend could not be reached.
// The pipeline treats this as a miss and recomputes rather than failing
// the run.
var ErrCacheUnavailable = errors.New("cache unavailable")
