package podcache

import (
	"fmt"
	"time"

	metrics "github.com/rcrowley/go-metrics"

	"github.com/carlodg/podcache/log"
	"github.com/carlodg/podcache/tiered"
)

// statusInterval is how often the status reporter logs partition
// occupancy. This is best-effort monitoring output with no correctness
// contract on its timing.
const statusInterval = 10 * time.Second

// StatusReporter periodically logs per-partition occupancy and exposes it
// as go-metrics gauges, via a ticker loop selecting against a stop
// channel.
type StatusReporter struct {
	cache  *tiered.Cache
	log    log.Logger
	gauges []metrics.GaugeFloat64

	stop chan struct{}
	done chan struct{}
}

// NewStatusReporter builds a reporter for cache, registering one
// GaugeFloat64 per partition in the default go-metrics registry.
func NewStatusReporter(cache *tiered.Cache, l log.Logger) *StatusReporter {
	gauges := make([]metrics.GaugeFloat64, cache.PartitionCount())
	for i := range gauges {
		gauges[i] = metrics.GetOrRegisterGaugeFloat64(
			fmt.Sprintf("podcache.partition.%d.occupancy", i), metrics.DefaultRegistry)
	}
	return &StatusReporter{
		cache:  cache,
		log:    l,
		gauges: gauges,
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Start begins reporting in a background goroutine. Call Stop to end it.
func (r *StatusReporter) Start() {
	go r.run()
}

func (r *StatusReporter) run() {
	defer close(r.done)
	ticker := time.NewTicker(statusInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.report()
		case <-r.stop:
			return
		}
	}
}

func (r *StatusReporter) report() {
	for i := 0; i < r.cache.PartitionCount(); i++ {
		used, capacity := r.cache.PartitionStats(i)
		occupancy := 0.0
		if capacity > 0 {
			occupancy = float64(used) / float64(capacity)
		}
		r.gauges[i].Update(occupancy)
		r.log.WithFields(log.Fields{
			"partition": i,
			"used":      used,
			"capacity":  capacity,
		}).Infof("partition %d occupancy %.2f%%", i, occupancy*100)
	}
	r.log.WithFields(log.Fields{"disk_keys": r.cache.DiskCount()}).Info("disk tier occupancy")
}

// Stop ends the background goroutine and waits for it to exit.
func (r *StatusReporter) Stop() {
	close(r.stop)
	<-r.done
}
