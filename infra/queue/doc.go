// Package queue provides the bounded lock-free rings that form the only
// cross-thread boundary of the engine. Ring is the multi-producer ingress
// channel in front of each shard; SPSC is the single-producer egress
// channel behind it. Both publish slots with per-slot sequence stamps, so
// a consumer never observes a torn write, and both report Full/Empty
// instead of blocking.
package queue
