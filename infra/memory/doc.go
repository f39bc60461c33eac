// Package memory provides the object-reuse primitives for the matching
// hot path: a typed pool that hands out orders without allocating, and a
// retire ring the matcher pushes removed orders through before they
// return to the pool. Both are owned by a single shard; reuse never
// crosses a shard boundary.
package memory
