// Package cache implements MemoryPartition: a single-lock, byte-accounted
// LRU shard. A hash table with open chaining gives O(1) lookup; a
// doubly-linked recency list with sentinel head/tail nodes (so no branch of
// the mutation code ever has to special-case an empty list) tracks
// most/least recently used. Both structures are kept in lockstep under one
// mutex.
//
// A TieredCache (see package tiered) composes several Partitions with a
// disk tier; Partition itself knows nothing about disk.
package cache
