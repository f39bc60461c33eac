// Package orderbook implements the per-instrument limit order book and
// its matching pass. It maintains two red-black trees of price levels
// (bids descending, asks ascending), an intrusive FIFO of resting orders
// inside each level, and an order-id index for O(1) cancellation.
//
// A book is exclusively owned by one shard thread. Nothing in this
// package synchronizes; single ownership is the concurrency model.
package orderbook
