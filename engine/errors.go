package engine

import "errors"

var (
	// ErrQueueFull means the target shard's ingress ring is saturated.
	// The event is handed back to the caller, never dropped silently;
	// retry or upstream backpressure is the caller's decision.
	ErrQueueFull = errors.New("engine: shard ingress queue full")

	// ErrInvalidOrder covers non-positive quantity and, for limit
	// orders, a non-positive price.
	ErrInvalidOrder = errors.New("engine: invalid order")

	// ErrUnknownInstrument means the router has no shard assignment for
	// the symbol. Rejected before reaching any shard.
	ErrUnknownInstrument = errors.New("engine: unknown instrument")

	// ErrHalted means the target shard detected a book invariant
	// violation and stopped. Other shards keep running.
	ErrHalted = errors.New("engine: shard halted")
)
