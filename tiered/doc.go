// Package tiered composes a fixed number of cache.Partitions with a
// diskstore.Store into a two-tier cache: entries live in memory until
// their partition is full, at which point the least-recently-used entry
// spills to disk to make room; a later Get for a disk-resident key
// promotes it back into memory and removes the disk copy, so a key is
// never simultaneously resident in both tiers.
package tiered
