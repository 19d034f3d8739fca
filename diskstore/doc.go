// Package diskstore implements the disk tier: a content-addressable store
// that maps a key to a four-level directory tree derived from the hex
// SHA-256 of the key, each level a 16-character slice of the 64-character
// digest. Known leaf paths are tracked in a map[string]bool: Get and Evict
// treat a leaf missing from it as absent, and Count reports its size
// without walking the filesystem.
package diskstore
