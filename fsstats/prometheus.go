package fsstats

import "github.com/prometheus/client_golang/prometheus"

// Collector exposes a Registry as prometheus metrics. All values are read
// through Snapshot, so a scrape never observes a half-updated counter set.
type Collector struct {
	reg *Registry

	activeDesc   *prometheus.Desc
	peakDesc     *prometheus.Desc
	queuedDesc   *prometheus.Desc
	readsDesc    *prometheus.Desc
	writesDesc   *prometheus.Desc
	readBytes    *prometheus.Desc
	writtenBytes *prometheus.Desc
	failedDesc   *prometheus.Desc
}

var _ prometheus.Collector = (*Collector)(nil)

// NewCollector creates a prometheus collector backed by reg.
func NewCollector(reg *Registry) *Collector {
	return &Collector{
		reg: reg,
		activeDesc: prometheus.NewDesc("asyncfs_active_operations",
			"Number of filesystem operations currently in flight.", nil, nil),
		peakDesc: prometheus.NewDesc("asyncfs_peak_operations",
			"Highest number of concurrently in-flight operations seen.", nil, nil),
		queuedDesc: prometheus.NewDesc("asyncfs_queued_operations",
			"Number of operations waiting for admission.", nil, nil),
		readsDesc: prometheus.NewDesc("asyncfs_reads_total",
			"Total successful read operations.", nil, nil),
		writesDesc: prometheus.NewDesc("asyncfs_writes_total",
			"Total successful write operations.", nil, nil),
		readBytes: prometheus.NewDesc("asyncfs_read_bytes_total",
			"Total bytes read.", nil, nil),
		writtenBytes: prometheus.NewDesc("asyncfs_written_bytes_total",
			"Total bytes written.", nil, nil),
		failedDesc: prometheus.NewDesc("asyncfs_failed_operations_total",
			"Total operations that ended in a terminal failure.", nil, nil),
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.activeDesc
	ch <- c.peakDesc
	ch <- c.queuedDesc
	ch <- c.readsDesc
	ch <- c.writesDesc
	ch <- c.readBytes
	ch <- c.writtenBytes
	ch <- c.failedDesc
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	s := c.reg.Snapshot()
	ch <- prometheus.MustNewConstMetric(c.activeDesc, prometheus.GaugeValue, float64(s.ActiveOperations))
	ch <- prometheus.MustNewConstMetric(c.peakDesc, prometheus.GaugeValue, float64(s.PeakOperations))
	ch <- prometheus.MustNewConstMetric(c.queuedDesc, prometheus.GaugeValue, float64(s.QueuedOperations))
	ch <- prometheus.MustNewConstMetric(c.readsDesc, prometheus.CounterValue, float64(s.TotalReads))
	ch <- prometheus.MustNewConstMetric(c.writesDesc, prometheus.CounterValue, float64(s.TotalWrites))
	ch <- prometheus.MustNewConstMetric(c.readBytes, prometheus.CounterValue, float64(s.TotalBytesRead))
	ch <- prometheus.MustNewConstMetric(c.writtenBytes, prometheus.CounterValue, float64(s.TotalBytesWritten))
	ch <- prometheus.MustNewConstMetric(c.failedDesc, prometheus.CounterValue, float64(s.FailedOperations))
}
