package telemetry

import (
	"context"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/perimetra/sentinel/internal/model/core"
	"github.com/perimetra/sentinel/internal/queue"
	"github.com/perimetra/sentinel/internal/store"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

// Sample is one measurement queued for shipping.
type Sample struct {
	Bucket      string
	Measurement string
	Tags        map[string]string
	Fields      map[string]any
	Time        time.Time
}

// Sources are the entity stores the collector samples each interval.
type Sources struct {
	Devices  *store.Store[core.Device]
	Events   *store.Store[core.Event]
	Accounts *store.Store[*core.Account]
	Logins   *store.Store[*core.LoginRecord]
}

// Collector batches samples and ships them on a fixed interval, together
// with a per-interval snapshot of device health and cache sizes.
type Collector struct {
	manager *Manager
	sources Sources
	pending *queue.Queue[Sample]
	log     zerolog.Logger
}

// NewCollector creates a collector shipping through m.
func NewCollector(m *Manager, sources Sources, log zerolog.Logger) *Collector {
	return &Collector{
		manager: m,
		sources: sources,
		pending: queue.New[Sample](),
		log:     log.With().Str("component", "telemetry").Logger(),
	}
}

// Record queues a sample for the next flush. A zero Time is stamped now.
func (c *Collector) Record(s Sample) {
	if s.Time.IsZero() {
		s.Time = time.Now().UTC()
	}
	c.pending.Push(s)
}

// Run flushes queued samples and collects store metrics until ctx is
// canceled, then performs one final flush.
func (c *Collector) Run(ctx context.Context) {
	interval := time.Duration(viper.GetInt("telemetry.intervalSeconds")) * time.Second
	if interval <= 0 {
		interval = 30 * time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	c.log.Info().Dur("interval", interval).Msg("Telemetry collector started")

	for {
		select {
		case <-ctx.Done():
			c.flush(context.Background())
			c.log.Info().Msg("Telemetry collector stopped")
			return
		case <-ticker.C:
			c.collect()
			c.flush(ctx)
		}
	}
}

// collect samples device health and cache sizes into the pending queue.
func (c *Collector) collect() {
	now := time.Now().UTC()

	if c.sources.Devices != nil {
		counts := make(map[core.DeviceStatus]int)
		for _, d := range c.sources.Devices.Snapshot() {
			counts[d.Base().Status]++
		}
		for status, n := range counts {
			c.Record(Sample{
				Bucket:      "device_status",
				Measurement: "device_count",
				Tags:        map[string]string{"status": status.String()},
				Fields:      map[string]any{"count": n},
				Time:        now,
			})
		}
	}

	sizes := map[string]int{}
	if c.sources.Devices != nil {
		sizes["devices"] = c.sources.Devices.Len()
	}
	if c.sources.Events != nil {
		sizes["events"] = c.sources.Events.Len()
	}
	if c.sources.Accounts != nil {
		sizes["accounts"] = c.sources.Accounts.Len()
	}
	if c.sources.Logins != nil {
		sizes["logins"] = c.sources.Logins.Len()
	}
	for family, n := range sizes {
		c.Record(Sample{
			Bucket:      "cache_metrics",
			Measurement: "cache_size",
			Tags:        map[string]string{"family": family},
			Fields:      map[string]any{"entities": n},
			Time:        now,
		})
	}
}

// flush drains the pending queue into the manager.
func (c *Collector) flush(ctx context.Context) {
	samples := c.pending.GetAndEmpty()
	for _, s := range samples {
		point := influxdb2.NewPoint(s.Measurement, s.Tags, s.Fields, s.Time)
		if err := c.manager.WritePoint(ctx, s.Bucket, point); err != nil {
			c.log.Error().Err(err).Str("bucket", s.Bucket).Msg("Failed to write telemetry point")
		}
	}
	if len(samples) > 0 {
		c.log.Trace().Int("count", len(samples)).Msg("Telemetry samples flushed")
	}
}
