//go:build debug

package cache

import (
	. "github.com/onsi/gomega"
)

// checkInvariants re-derives Partition's structural invariants from
// scratch after every mutating call and panics through gomega's failure
// handler if any of them is violated. Cheap enough to run only in debug
// builds, exhaustive enough to catch a broken pointer surgery the moment
// it happens rather than on the next unrelated lookup.
func (p *Partition) checkInvariants() {
	var (
		sumBytes int64
		seen     = make(map[string]bool, p.count)
		listLen  int
	)

	for n := p.head.next; n != p.tail; n = n.next {
		Expect(seen[n.key]).To(BeFalse(), "key %q appears twice in the recency list", n.key)
		seen[n.key] = true
		sumBytes += sizeOf(n.key, n.value)
		listLen++

		// invariant 4: every resident node's recorded neighbours agree
		// with each other (doubly linked, not just singly).
		Expect(n.next.prev).To(Equal(n))
	}
	Expect(p.tail.prev.next).To(Equal(p.tail))
	Expect(p.head.next.prev).To(Equal(p.head))

	// invariant 1: used_bytes is exactly the sum of resident key+value
	// sizes, never a running total that can drift from reality.
	Expect(p.usedBytes).To(Equal(sumBytes))

	// invariant 2: used_bytes never exceeds capacity_bytes.
	Expect(p.usedBytes).To(BeNumerically("<=", p.capacityBytes))

	// invariant 3: the recency list and the count field agree.
	Expect(listLen).To(Equal(p.count))

	// invariant 5: every node reachable from the recency list is also
	// reachable from its bucket chain, and vice versa (no node is
	// resident in one structure but not the other).
	bucketKeys := make(map[string]bool, p.count)
	bucketCount := 0
	for _, head := range p.buckets {
		for n := head; n != nil; n = n.hnext {
			bucketKeys[n.key] = true
			bucketCount++
		}
	}
	Expect(bucketCount).To(Equal(listLen))
	for k := range seen {
		Expect(bucketKeys[k]).To(BeTrue(), "key %q is in the recency list but not its bucket chain", k)
	}
}
