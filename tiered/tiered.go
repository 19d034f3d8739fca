package tiered

import (
	"github.com/facebookgo/stackerr"

	"github.com/carlodg/podcache/cache"
	"github.com/carlodg/podcache/diskstore"
	"github.com/carlodg/podcache/hash"
	"github.com/carlodg/podcache/log"
)

// ErrTooLarge is returned when a value (plus its key) can never fit in
// its partition, even empty. Spilling the rest of the partition to disk
// cannot help; there is no smaller answer to give.
var ErrTooLarge = stackerr.New("tiered: entry too large for its partition")

// ErrSpillFailed is returned when a partition reports Full but has
// nothing left to spill, which should be unreachable given the
// ErrTooLarge check at entry, or when writing the spilled entry to disk
// itself fails.
var ErrSpillFailed = stackerr.New("tiered: spill to disk failed")

// Config configures a Cache.
type Config struct {
	// Partitions is the number of independent memory partitions to
	// create. Each gets CapacityBytes/Partitions bytes of capacity.
	Partitions int
	// CapacityBytes is the combined memory capacity across all
	// partitions.
	CapacityBytes int64
	// FSRoot is the directory under which the disk tier creates its own
	// randomly-suffixed base directory.
	FSRoot string
	Log    log.Logger
}

// Cache routes a key to one of several memory partitions by hash, and
// falls back to a shared disk tier when a partition is full or the key
// isn't resident in memory.
type Cache struct {
	partitions []*cache.Partition
	disk       *diskstore.Store
	log        log.Logger
}

// New builds a Cache per conf. It creates the disk tier's base directory
// immediately, so a misconfigured FSRoot fails at startup rather than on
// the first spill.
func New(conf Config) (*Cache, error) {
	if conf.Partitions < 1 {
		return nil, stackerr.Newf("tiered: partitions must be >= 1, got %d", conf.Partitions)
	}

	disk, err := diskstore.New(conf.FSRoot)
	if err != nil {
		return nil, stackerr.Wrap(err)
	}

	l := conf.Log
	if l == nil {
		l = log.Nop()
	}

	perPartition := conf.CapacityBytes / int64(conf.Partitions)
	partitions := make([]*cache.Partition, conf.Partitions)
	for i := range partitions {
		partitions[i] = cache.NewPartition(cache.Config{CapacityBytes: perPartition})
	}

	return &Cache{partitions: partitions, disk: disk, log: l}, nil
}

func (c *Cache) partitionFor(key string) *cache.Partition {
	idx := hash.PartitionIndex([]byte(key), len(c.partitions))
	return c.partitions[idx]
}

// Put inserts or overwrites key, spilling the partition's least-recently
// used entries to disk as many times as necessary to make room.
func (c *Cache) Put(key string, value []byte) error {
	part := c.partitionFor(key)

	if int64(len(key)+len(value)) > part.CapacityBytes() {
		return ErrTooLarge
	}

	for {
		outcome, err := part.Put(key, value)
		if err != nil {
			return stackerr.Wrap(err)
		}
		if outcome != cache.Full {
			return nil
		}

		snap, ok := part.PeekTail()
		if !ok {
			return ErrSpillFailed
		}
		if _, err := c.disk.Put(snap.Key, snap.Value); err != nil {
			c.log.WithFields(log.Fields{"key": key}).Warnf("spill of %q to disk failed: %v", snap.Key, err)
			return ErrSpillFailed
		}
		if _, ok := part.PopTail(); !ok {
			// Another goroutine already evicted the tail (e.g. via a
			// concurrent Evict); the spill we just wrote is harmless,
			// just redundant. Retry the Put; if the partition is still
			// Full, the next iteration spills again.
			continue
		}
	}
}

// Get returns the value for key, promoting it from disk into memory on a
// disk hit. Promotion retries through the same spill loop Put uses, so a
// disk hit that needs room evicts someone else's tail to make it. Once
// promotion actually succeeds, the disk copy is removed: a key is never
// resident in both tiers at once. If promotion fails for a reason other
// than needing more room, the disk-read value is still returned to the
// caller but its disk copy is left in place.
func (c *Cache) Get(key string) ([]byte, bool, error) {
	part := c.partitionFor(key)

	if v, ok := part.Get(key); ok {
		return v, true, nil
	}

	v, ok, err := c.disk.Get(key)
	if err != nil {
		return nil, false, stackerr.Wrap(err)
	}
	if !ok {
		return nil, false, nil
	}

	if !c.promote(part, key, v) {
		return v, true, nil
	}

	if _, err := c.disk.Evict(key); err != nil {
		c.log.WithFields(log.Fields{"key": key}).Warnf("evict promoted key from disk failed: %v", err)
	}
	return v, true, nil
}

// promote attempts to insert (key, value) into part, spilling its tail as
// many times as necessary to make room. It returns true iff the entry
// ended up resident in memory.
func (c *Cache) promote(part *cache.Partition, key string, value []byte) bool {
	for {
		outcome, err := part.Put(key, value)
		if err != nil {
			c.log.WithFields(log.Fields{"key": key}).Warnf("promote from disk failed: %v", err)
			return false
		}
		if outcome != cache.Full {
			return true
		}

		snap, ok := part.PeekTail()
		if !ok {
			c.log.WithFields(log.Fields{"key": key}).Warn("promote from disk skipped: nothing left to spill")
			return false
		}
		if _, err := c.disk.Put(snap.Key, snap.Value); err != nil {
			c.log.WithFields(log.Fields{"key": key}).Warnf("promote from disk: spill of %q failed: %v", snap.Key, err)
			return false
		}
		if _, ok := part.PopTail(); !ok {
			continue
		}
	}
}

// Evict removes key from whichever tier currently holds it.
func (c *Cache) Evict(key string) (bool, error) {
	part := c.partitionFor(key)
	if part.Evict(key) {
		return true, nil
	}
	removed, err := c.disk.Evict(key)
	if err != nil {
		return false, stackerr.Wrap(err)
	}
	return removed, nil
}

// PartitionCount returns the number of memory partitions, for the status
// reporter.
func (c *Cache) PartitionCount() int { return len(c.partitions) }

// PartitionStats returns a snapshot of (used, capacity) for partition i.
func (c *Cache) PartitionStats(i int) (used, capacity int64) {
	p := c.partitions[i]
	return p.UsedBytes(), p.CapacityBytes()
}

// DiskCount returns the number of keys currently resident on disk, for
// the status reporter.
func (c *Cache) DiskCount() int { return c.disk.Count() }

// Close releases the disk tier's base directory. PodCache carries no
// durability guarantee across restarts, so this is safe to call
// unconditionally on shutdown.
func (c *Cache) Close() error {
	return c.disk.Destroy()
}
