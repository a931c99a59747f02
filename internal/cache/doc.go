// Package cache provides LRU caching for the byte ranges a cloudstore.Store
// fetches from a remote blob.
//
// # Block Cache (RAM)
//
// ShardedLRUBlockCache keeps recently fetched ranges in memory, sharded
// 64 ways to reduce lock contention under concurrent reads.
//
// # Disk Cache (L2)
//
// For cloud-backed stores, DiskBlockCache provides a persistent L2 cache
// keyed by blob name and offset:
//   - Async writes to avoid blocking the read path
//   - LRU eviction with configurable size limits
//   - Rebuilds its index from disk on startup
package cache
