// Package affinity binds shard threads to CPU cores. A shard that pins
// its thread and then allocates its book storage gets node-local pages
// through first-touch; that is the whole placement contract, no explicit
// NUMA API is assumed.
package affinity

import "errors"

// ErrUnsupported is returned where thread pinning is not available.
var ErrUnsupported = errors.New("affinity: thread pinning not supported on this platform")
