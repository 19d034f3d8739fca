package cache

// node is owned by exactly one Partition and is reachable from both the
// bucket chain (hnext) and the recency list (prev/next). Both links are
// mutated only while the owning Partition's lock is held.
type node struct {
	key   string
	value []byte

	// recency list links. The two sentinel nodes (Partition.head,
	// Partition.tail) are never looked up by key and never appear in a
	// bucket chain; they only exist so list surgery never has to check
	// for a nil neighbour.
	prev *node
	next *node

	// hnext chains nodes that hash into the same bucket.
	hnext *node
}

func sizeOf(key string, value []byte) int64 {
	return int64(len(key) + len(value))
}

func link(a, b *node) {
	a.next = b
	b.prev = a
}
