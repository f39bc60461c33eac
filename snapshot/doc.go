// Package snapshot persists and restores per-shard book state. A
// snapshot is taken on the shard thread between events, so it is a
// plain walk over quiescent books: no epochs, no coordination. Each
// shard writes one gob file, replaced atomically, and restore replays
// the entries through the book in snapshot order so FIFO priority
// survives a restart.
package snapshot
