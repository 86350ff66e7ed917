// Package metrics exports the soak harness counters in Prometheus format
// via VictoriaMetrics. Handle-level counters come from the scenarios; the
// block gauges are read straight out of the sharedref accounting so a leak
// (allocated pulling away from freed while the table size is flat) shows up
// on a dashboard in real time.
package metrics

import (
	"github.com/Borislavv/shared-ref/pkg/sharedref"
	"github.com/VictoriaMetrics/metrics"
)

var (
	Clones     = metrics.NewCounter(`sharedref_soak_clones_total`)
	Drops      = metrics.NewCounter(`sharedref_soak_drops_total`)
	Downgrades = metrics.NewCounter(`sharedref_soak_downgrades_total`)

	UpgradesOK   = metrics.NewCounter(`sharedref_soak_upgrades_total{result="ok"}`)
	UpgradesGone = metrics.NewCounter(`sharedref_soak_upgrades_total{result="gone"}`)

	Replaces  = metrics.NewCounter(`sharedref_soak_table_replaces_total`)
	Evictions = metrics.NewCounter(`sharedref_soak_evictions_total`)
)

func init() {
	metrics.NewGauge(`sharedref_blocks_live`, func() float64 {
		return float64(sharedref.LiveBlocks())
	})
	metrics.NewGauge(`sharedref_blocks_allocated_total`, func() float64 {
		allocated, _, _ := sharedref.AllocStats()
		return float64(allocated)
	})
	metrics.NewGauge(`sharedref_payloads_destroyed_total`, func() float64 {
		_, destroyed, _ := sharedref.AllocStats()
		return float64(destroyed)
	})
	metrics.NewGauge(`sharedref_blocks_freed_total`, func() float64 {
		_, _, freed := sharedref.AllocStats()
		return float64(freed)
	})
}
