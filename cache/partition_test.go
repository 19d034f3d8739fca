package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBucketCountClampsAndPowersOfTwo(t *testing.T) {
	assert.Equal(t, minBuckets, bucketCount(0))
	assert.Equal(t, minBuckets, bucketCount(1024))
	assert.Equal(t, maxBuckets, bucketCount(1<<40))

	for _, cap := range []int64{0, 1024, 1 << 20, 1 << 30} {
		n := bucketCount(cap)
		assert.True(t, n&(n-1) == 0, "bucketCount(%d) = %d is not a power of two", cap, n)
	}
}

func TestPutGetRoundTrip(t *testing.T) {
	p := NewPartition(Config{CapacityBytes: 1 << 20})

	outcome, err := p.Put("a", []byte("1"))
	require.NoError(t, err)
	assert.Equal(t, Inserted, outcome)

	got, ok := p.Get("a")
	require.True(t, ok)
	assert.Equal(t, []byte("1"), got)

	_, ok = p.Get("missing")
	assert.False(t, ok)
}

func TestPutOverwriteReturnsUpdated(t *testing.T) {
	p := NewPartition(Config{CapacityBytes: 1 << 20})

	_, err := p.Put("a", []byte("1"))
	require.NoError(t, err)

	outcome, err := p.Put("a", []byte("two"))
	require.NoError(t, err)
	assert.Equal(t, Updated, outcome)

	got, ok := p.Get("a")
	require.True(t, ok)
	assert.Equal(t, []byte("two"), got)
	assert.Equal(t, int64(len("a")+len("two")), p.UsedBytes())
}

func TestPutFullDoesNotMutate(t *testing.T) {
	// Capacity just big enough for one small entry.
	p := NewPartition(Config{CapacityBytes: sizeOf("a", []byte("1"))})

	outcome, err := p.Put("a", []byte("1"))
	require.NoError(t, err)
	require.Equal(t, Inserted, outcome)
	before := p.UsedBytes()

	outcome, err = p.Put("b", []byte("2"))
	require.NoError(t, err)
	assert.Equal(t, Full, outcome)
	assert.Equal(t, before, p.UsedBytes())

	_, ok := p.Get("b")
	assert.False(t, ok, "a rejected Put must not leave a partial entry behind")
}

func TestOverwriteThatNoLongerFitsIsFull(t *testing.T) {
	p := NewPartition(Config{CapacityBytes: sizeOf("a", []byte("12345"))})

	_, err := p.Put("a", []byte("1"))
	require.NoError(t, err)

	outcome, err := p.Put("a", []byte("123456789"))
	require.NoError(t, err)
	assert.Equal(t, Full, outcome)

	got, ok := p.Get("a")
	require.True(t, ok)
	assert.Equal(t, []byte("1"), got, "a rejected overwrite must leave the old value intact")
}

func TestEvictRemovesEntry(t *testing.T) {
	p := NewPartition(Config{CapacityBytes: 1 << 20})
	_, err := p.Put("a", []byte("1"))
	require.NoError(t, err)

	assert.True(t, p.Evict("a"))
	assert.False(t, p.Evict("a"))

	_, ok := p.Get("a")
	assert.False(t, ok)
	assert.Equal(t, int64(0), p.UsedBytes())
}

func TestGetPromotesToHeadAheadOfPopTail(t *testing.T) {
	p := NewPartition(Config{CapacityBytes: 1 << 20})
	for _, k := range []string{"a", "b", "c"} {
		_, err := p.Put(k, []byte(k))
		require.NoError(t, err)
	}

	// "a" is the current LRU candidate; touching it via Get should move
	// it to the head, making "b" the next PopTail victim.
	_, ok := p.Get("a")
	require.True(t, ok)

	snap, ok := p.PopTail()
	require.True(t, ok)
	assert.Equal(t, "b", snap.Key)
}

func TestPeekTailDoesNotRemove(t *testing.T) {
	p := NewPartition(Config{CapacityBytes: 1 << 20})
	_, err := p.Put("a", []byte("1"))
	require.NoError(t, err)

	snap, ok := p.PeekTail()
	require.True(t, ok)
	assert.Equal(t, "a", snap.Key)

	// Still there.
	_, ok = p.Get("a")
	assert.True(t, ok)
}

func TestPopTailOnEmptyPartition(t *testing.T) {
	p := NewPartition(Config{CapacityBytes: 1 << 20})
	_, ok := p.PopTail()
	assert.False(t, ok)
	_, ok = p.PeekTail()
	assert.False(t, ok)
}

func TestLRUOrderingUnderPressure(t *testing.T) {
	// Each entry is exactly sizeOf(key,"x") bytes; size capacity for
	// exactly three residents.
	one := sizeOf("k0", []byte("x"))
	p := NewPartition(Config{CapacityBytes: 3 * one})

	for i := 0; i < 3; i++ {
		_, err := p.Put(keyN(i), []byte("x"))
		require.NoError(t, err)
	}
	// Touch k0 so k1 becomes the new LRU.
	_, ok := p.Get("k0")
	require.True(t, ok)

	snap, ok := p.PopTail()
	require.True(t, ok)
	assert.Equal(t, "k1", snap.Key)

	snap, ok = p.PopTail()
	require.True(t, ok)
	assert.Equal(t, "k2", snap.Key)

	snap, ok = p.PopTail()
	require.True(t, ok)
	assert.Equal(t, "k0", snap.Key)
}

func keyN(i int) string {
	return string([]byte{'k', byte('0' + i)})
}
