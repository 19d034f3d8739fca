// Package hash provides the two fingerprinting functions the rest of the
// tree is built on: djb2 for partition and bucket selection, SHA-256 for
// the disk tier's content-addressable path derivation.
package hash

import (
	"crypto/sha256"
	"encoding/hex"
)

// DJB2 is the classic Bernstein hash, seeded at 5381, h = h*33 + byte. It
// is cheap and adequate for load distribution; it is never used for key
// identity, only for routing.
func DJB2(key []byte) uint32 {
	var h uint32 = 5381
	for _, b := range key {
		h = h*33 + uint32(b)
	}
	return h
}

// SHA256Hex returns the lowercase hex SHA-256 digest of key. Collision
// resistance matters here: it keeps unrelated keys from aliasing onto the
// same disk path.
func SHA256Hex(key []byte) string {
	sum := sha256.Sum256(key)
	return hex.EncodeToString(sum[:])
}

// PartitionIndex selects which of p partitions owns key.
func PartitionIndex(key []byte, p int) int {
	return int(DJB2(key) % uint32(p))
}

// BucketIndex selects which of b buckets within a partition's hash table
// owns key.
func BucketIndex(key []byte, b int) int {
	return int(DJB2(key) % uint32(b))
}
