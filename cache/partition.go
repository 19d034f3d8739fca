package cache

import (
	"sync"

	"github.com/facebookgo/stackerr"

	"github.com/carlodg/podcache/hash"
	"github.com/carlodg/podcache/internal/tag"
)

// PutOutcome is the three-way result of Partition.Put.
type PutOutcome int

const (
	Inserted PutOutcome = iota
	Updated
	Full
)

func (o PutOutcome) String() string {
	switch o {
	case Inserted:
		return "Inserted"
	case Updated:
		return "Updated"
	case Full:
		return "Full"
	}
	return "PutOutcome(?)"
}

// ErrAlloc is returned if a Partition cannot allocate the bookkeeping for
// an insert. Go's allocator does not hand back a recoverable error on
// exhaustion, so in practice this path is unreachable; it is kept because
// it is a distinct, caller-visible error kind that the protocol front-end
// switches on.
var ErrAlloc = stackerr.New("cache: allocation failed")

const (
	minBuckets     = 16
	maxBuckets     = 65536
	bucketLoadFact = 0.75
)

// bucketCount estimates elements at ~1KiB each, sizes for a 0.75 load
// factor, rounds up to a power of two, and clamps to
// [minBuckets, maxBuckets].
func bucketCount(capacityBytes int64) int {
	estimatedElements := capacityBytes / 1024
	target := float64(estimatedElements) / bucketLoadFact
	n := minBuckets
	for int64(n) < int64(target) && n < maxBuckets {
		n <<= 1
	}
	return n
}

// Config configures a single Partition.
type Config struct {
	CapacityBytes int64
}

// Snapshot is an owned copy of a resident entry's key and value, returned
// by PeekTail/PopTail for the spill path.
type Snapshot struct {
	Key   string
	Value []byte
}

// Partition is a single-lock, byte-accounted LRU shard: a chained hash
// table for O(1) lookup, paired with a doubly-linked recency list. Its
// structural invariants hold after every method returns; see
// invariants_debug.go for the runtime assertions in debug builds.
type Partition struct {
	mu sync.Mutex

	capacityBytes int64
	usedBytes     int64
	count         int

	buckets []*node

	// head is the most-recently-used sentinel; head.next is the actual
	// MRU entry (or tail, if empty). tail is the least-recently-used
	// sentinel; tail.prev is the actual LRU entry (or head, if empty).
	// Sentinels are never resident entries and are never looked up.
	head *node
	tail *node
}

// NewPartition constructs an empty Partition with the given capacity.
func NewPartition(conf Config) *Partition {
	p := &Partition{
		capacityBytes: conf.CapacityBytes,
		buckets:       make([]*node, bucketCount(conf.CapacityBytes)),
	}
	p.head = &node{}
	p.tail = &node{}
	link(p.head, p.tail)
	return p
}

// CapacityBytes returns the fixed capacity this Partition was built with.
func (p *Partition) CapacityBytes() int64 { return p.capacityBytes }

// UsedBytes returns the current byte accounting, for the status reporter.
func (p *Partition) UsedBytes() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.usedBytes
}

// Put inserts or overwrites key. A Full result never mutates state: both
// the overwrite and insert paths are checked against capacity before any
// field is touched.
func (p *Partition) Put(key string, value []byte) (PutOutcome, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	defer p.checkInvariants()

	idx := bucketIndex(key, len(p.buckets))
	n := p.lookupLocked(idx, key)
	newSize := sizeOf(key, value)

	if n != nil {
		oldSize := sizeOf(n.key, n.value)
		if p.usedBytes-oldSize+newSize > p.capacityBytes {
			return Full, nil
		}
		n.value = cloneBytes(value)
		p.usedBytes += newSize - oldSize
		p.moveToHead(n)
		return Updated, nil
	}

	if p.usedBytes+newSize > p.capacityBytes {
		return Full, nil
	}

	n = &node{key: key, value: cloneBytes(value)}
	p.insertBucket(idx, n)
	p.pushHead(n)
	p.usedBytes += newSize
	p.count++
	return Inserted, nil
}

// Get returns an owned copy of the value for key, moving it to the head of
// the recency list. The zero value, false is returned on a miss.
func (p *Partition) Get(key string) ([]byte, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	defer p.checkInvariants()

	idx := bucketIndex(key, len(p.buckets))
	n := p.lookupLocked(idx, key)
	if n == nil {
		return nil, false
	}
	out := cloneBytes(n.value)
	p.moveToHead(n)
	return out, true
}

// Evict removes key if present, reporting whether it was.
func (p *Partition) Evict(key string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	defer p.checkInvariants()

	idx := bucketIndex(key, len(p.buckets))
	n := p.lookupLocked(idx, key)
	if n == nil {
		return false
	}
	p.removeBucket(idx, n)
	p.unlink(n)
	p.usedBytes -= sizeOf(n.key, n.value)
	p.count--
	p.scrub(n)
	return true
}

// PeekTail returns a copy of the least-recently-used entry without
// removing it. Used by the spill path to decide what to write to disk
// before committing to the eviction.
func (p *Partition) PeekTail() (Snapshot, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	n := p.tailNode()
	if n == nil {
		return Snapshot{}, false
	}
	return Snapshot{Key: n.key, Value: cloneBytes(n.value)}, true
}

// PopTail removes and returns the least-recently-used entry.
func (p *Partition) PopTail() (Snapshot, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	defer p.checkInvariants()

	n := p.tailNode()
	if n == nil {
		return Snapshot{}, false
	}
	snap := Snapshot{Key: n.key, Value: cloneBytes(n.value)}
	idx := bucketIndex(n.key, len(p.buckets))
	p.removeBucket(idx, n)
	p.unlink(n)
	p.usedBytes -= sizeOf(n.key, n.value)
	p.count--
	p.scrub(n)
	return snap, true
}

func (p *Partition) tailNode() *node {
	if p.tail.prev == p.head {
		return nil
	}
	return p.tail.prev
}

func (p *Partition) lookupLocked(idx int, key string) *node {
	for n := p.buckets[idx]; n != nil; n = n.hnext {
		if n.key == key {
			return n
		}
	}
	return nil
}

func (p *Partition) insertBucket(idx int, n *node) {
	n.hnext = p.buckets[idx]
	p.buckets[idx] = n
}

func (p *Partition) removeBucket(idx int, n *node) {
	var prev *node
	for cur := p.buckets[idx]; cur != nil; cur = cur.hnext {
		if cur == n {
			if prev == nil {
				p.buckets[idx] = cur.hnext
			} else {
				prev.hnext = cur.hnext
			}
			return
		}
		prev = cur
	}
}

func (p *Partition) pushHead(n *node) {
	n.prev = p.head
	n.next = p.head.next
	p.head.next.prev = n
	p.head.next = n
}

func (p *Partition) unlink(n *node) {
	n.prev.next = n.next
	n.next.prev = n.prev
}

func (p *Partition) moveToHead(n *node) {
	if p.head.next == n {
		return
	}
	p.unlink(n)
	p.pushHead(n)
}

func (p *Partition) scrub(n *node) {
	if !tag.Debug {
		return
	}
	n.prev, n.next, n.hnext, n.value = nil, nil, nil, nil
}

func bucketIndex(key string, n int) int {
	return hash.BucketIndex([]byte(key), n)
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
