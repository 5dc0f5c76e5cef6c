// Package metrics exposes quarantine statistics in Prometheus format.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"qv-go/internal/quarantine"
)

// Source is the read side of the quarantine store that the collector needs.
type Source interface {
	Stats() quarantine.Statistics
	List() []quarantine.Record
}

// Collector computes gauges from the store on every scrape, so exported
// values are never stale.
type Collector struct {
	source Source

	files       *prometheus.Desc
	bytes       *prometheus.Desc
	threatTypes *prometheus.Desc
	byThreat    *prometheus.Desc
	oldest      *prometheus.Desc
	newest      *prometheus.Desc
}

var _ prometheus.Collector = (*Collector)(nil)

// NewCollector creates a collector reading from source.
func NewCollector(source Source) *Collector {
	return &Collector{
		source: source,
		files: prometheus.NewDesc("qv_quarantined_files",
			"Number of files currently held in the quarantine vault.", nil, nil),
		bytes: prometheus.NewDesc("qv_quarantined_bytes",
			"Total size of quarantined files in bytes.", nil, nil),
		threatTypes: prometheus.NewDesc("qv_threat_types",
			"Number of distinct threat names among quarantined files.", nil, nil),
		byThreat: prometheus.NewDesc("qv_quarantined_files_by_threat",
			"Number of quarantined files per threat name.", []string{"threat"}, nil),
		oldest: prometheus.NewDesc("qv_oldest_quarantine_timestamp_seconds",
			"Unix time of the oldest quarantine still held.", nil, nil),
		newest: prometheus.NewDesc("qv_newest_quarantine_timestamp_seconds",
			"Unix time of the most recent quarantine still held.", nil, nil),
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.files
	ch <- c.bytes
	ch <- c.threatTypes
	ch <- c.byThreat
	ch <- c.oldest
	ch <- c.newest
}

// Collect emits the timestamp gauges only when the vault is non-empty.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	stats := c.source.Stats()

	ch <- prometheus.MustNewConstMetric(c.files, prometheus.GaugeValue, float64(stats.TotalQuarantined))
	ch <- prometheus.MustNewConstMetric(c.bytes, prometheus.GaugeValue, float64(stats.TotalSize))
	ch <- prometheus.MustNewConstMetric(c.threatTypes, prometheus.GaugeValue, float64(len(stats.ThreatTypes)))

	counts := make(map[string]int)
	for _, rec := range c.source.List() {
		counts[rec.ThreatName]++
	}
	for threat, n := range counts {
		ch <- prometheus.MustNewConstMetric(c.byThreat, prometheus.GaugeValue, float64(n), threat)
	}

	if stats.OldestFile != nil {
		ch <- prometheus.MustNewConstMetric(c.oldest, prometheus.GaugeValue, float64(stats.OldestFile.Unix()))
	}
	if stats.NewestFile != nil {
		ch <- prometheus.MustNewConstMetric(c.newest, prometheus.GaugeValue, float64(stats.NewestFile.Unix()))
	}
}

// WriteTextfile writes the current metrics to path in the text exposition
// format, for the node exporter's textfile collector. The file is replaced
// atomically.
func WriteTextfile(path string, source Source) error {
	reg := prometheus.NewRegistry()
	if err := reg.Register(NewCollector(source)); err != nil {
		return fmt.Errorf("registering collector: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, reg); err != nil {
		return fmt.Errorf("writing metrics to %s: %w", path, err)
	}
	return nil
}
