package tiered_test

import (
	"os"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/carlodg/podcache/tiered"
)

func mustTempDir() string {
	dir, err := os.MkdirTemp("", "podcache-tiered-spec-")
	Expect(err).NotTo(HaveOccurred())
	return dir
}

var _ = Describe("Cache", func() {
	var c *tiered.Cache

	newCache := func(capacityBytes int64, partitions int, fsRoot string) *tiered.Cache {
		cc, err := tiered.New(tiered.Config{
			Partitions:    partitions,
			CapacityBytes: capacityBytes,
			FSRoot:        fsRoot,
		})
		Expect(err).NotTo(HaveOccurred())
		return cc
	}

	AfterEach(func() {
		if c != nil {
			_ = c.Close()
		}
	})

	Context("when a partition fills up", func() {
		var fsRoot string

		BeforeEach(func() {
			fsRoot = mustTempDir()
			one := int64(len("k0") + len("x"))
			c = newCache(2*one, 1, fsRoot)
		})

		It("spills the least-recently-used entry to disk to make room for a new one", func() {
			Expect(c.Put("k0", []byte("x"))).To(Succeed())
			Expect(c.Put("k1", []byte("x"))).To(Succeed())
			Expect(c.DiskCount()).To(Equal(0))

			Expect(c.Put("k2", []byte("x"))).To(Succeed())
			Expect(c.DiskCount()).To(Equal(1))

			got, ok, err := c.Get("k0")
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeTrue())
			Expect(got).To(Equal([]byte("x")))
		})

		It("never leaves a key resident in both tiers after a promotion", func() {
			Expect(c.Put("k0", []byte("x"))).To(Succeed())
			Expect(c.Put("k1", []byte("x"))).To(Succeed())
			Expect(c.Put("k2", []byte("x"))).To(Succeed()) // spills k0

			_, ok, err := c.Get("k0")
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeTrue())

			// k0 is back in memory and no longer on disk; whatever now
			// occupies the tail took its place on disk instead.
			Expect(c.DiskCount()).To(Equal(1))
		})
	})

	Context("when a single entry can never fit", func() {
		BeforeEach(func() {
			c = newCache(8, 4, mustTempDir()) // 2 bytes per partition
		})

		It("rejects it without touching disk", func() {
			err := c.Put("this-key-is-long", make([]byte, 32))
			Expect(err).To(MatchError(tiered.ErrTooLarge))
			Expect(c.DiskCount()).To(Equal(0))
		})
	})
})
