package cache_test

import (
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/carlodg/podcache/cache"
)

var _ = Describe("Partition", func() {
	var p *cache.Partition

	BeforeEach(func() {
		p = cache.NewPartition(cache.Config{CapacityBytes: 1 << 16})
	})

	Describe("Put", func() {
		It("reports Inserted for a brand new key", func() {
			outcome, err := p.Put("k", []byte("v"))
			Expect(err).NotTo(HaveOccurred())
			Expect(outcome).To(Equal(cache.Inserted))
		})

		It("reports Updated for an existing key that still fits", func() {
			_, err := p.Put("k", []byte("v"))
			Expect(err).NotTo(HaveOccurred())

			outcome, err := p.Put("k", []byte("v2"))
			Expect(err).NotTo(HaveOccurred())
			Expect(outcome).To(Equal(cache.Updated))
		})

		It("accounts used bytes as the sum of resident key and value lengths", func() {
			_, err := p.Put("k1", []byte("aaaa"))
			Expect(err).NotTo(HaveOccurred())
			_, err = p.Put("k2", []byte("bb"))
			Expect(err).NotTo(HaveOccurred())

			Expect(p.UsedBytes()).To(Equal(int64(len("k1") + len("aaaa") + len("k2") + len("bb"))))
		})
	})

	Context("when the partition is at capacity", func() {
		var capBytes int64

		BeforeEach(func() {
			capBytes = int64(len("only") + len("fits"))
			p = cache.NewPartition(cache.Config{CapacityBytes: capBytes})
			_, err := p.Put("only", []byte("fits"))
			Expect(err).NotTo(HaveOccurred())
		})

		It("rejects a new key that would exceed capacity without mutating state", func() {
			before := p.UsedBytes()
			outcome, err := p.Put("another", []byte("x"))
			Expect(err).NotTo(HaveOccurred())
			Expect(outcome).To(Equal(cache.Full))
			Expect(p.UsedBytes()).To(Equal(before))

			_, ok := p.Get("another")
			Expect(ok).To(BeFalse())
		})

		It("still accepts an overwrite that does not grow the footprint", func() {
			outcome, err := p.Put("only", []byte("fits"))
			Expect(err).NotTo(HaveOccurred())
			Expect(outcome).To(Equal(cache.Updated))
		})
	})

	Describe("eviction ordering", func() {
		It("moves a touched entry to the front, making the next-least-recent the new tail", func() {
			one := int64(len("k0") + len("x"))
			p = cache.NewPartition(cache.Config{CapacityBytes: 3 * one})
			for _, k := range []string{"k0", "k1", "k2"} {
				_, err := p.Put(k, []byte("x"))
				Expect(err).NotTo(HaveOccurred())
			}

			_, ok := p.Get("k0")
			Expect(ok).To(BeTrue())

			snap, ok := p.PopTail()
			Expect(ok).To(BeTrue())
			Expect(snap.Key).To(Equal("k1"))
		})
	})

	Describe("Evict", func() {
		It("returns false for a key that was never present", func() {
			Expect(p.Evict("nope")).To(BeFalse())
		})

		It("removes the key so a subsequent Get misses", func() {
			_, err := p.Put("k", []byte("v"))
			Expect(err).NotTo(HaveOccurred())

			Expect(p.Evict("k")).To(BeTrue())
			_, ok := p.Get("k")
			Expect(ok).To(BeFalse())
		})
	})
})
