// Package metrics exposes remote access connections as Prometheus metrics.
package metrics

import (
	"errors"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/yllada/goras/common"
	"github.com/yllada/goras/ras"
)

const namespace = "goras"

var connLabels = []string{"entry", "handle", "device", "device_type"}

// Collector enumerates connections at scrape time. It implements
// prometheus.Collector.
type Collector struct {
	enumerator ras.ConnectionEnumerator
	logger     common.Logger

	// Serializes scrapes so the backend is not queried concurrently.
	mu sync.Mutex

	connections   *prometheus.Desc
	up            *prometheus.Desc
	state         *prometheus.Desc
	bytesTx       *prometheus.Desc
	bytesRx       *prometheus.Desc
	framesTx      *prometheus.Desc
	framesRx      *prometheus.Desc
	errorsTotal   *prometheus.Desc
	linkSpeed     *prometheus.Desc
	duration      *prometheus.Desc
	scrapeErrors  prometheus.Counter
	terminatedErr prometheus.Counter
}

// NewCollector returns a collector for the connections of enumerator.
func NewCollector(enumerator ras.ConnectionEnumerator, logger common.Logger) *Collector {
	desc := func(name, help string, labels []string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "connection", name), help, labels, nil)
	}
	return &Collector{
		enumerator: enumerator,
		logger:     common.LoggerOrDefault(logger),
		connections: prometheus.NewDesc(prometheus.BuildFQName(namespace, "", "connections"),
			"Number of active remote access connections.", nil, nil),
		up:          desc("up", "1 if the connection is in the Connected state.", connLabels),
		state:       desc("state", "Native connection state code.", connLabels),
		bytesTx:     desc("transmitted_bytes_total", "Bytes transmitted since the statistics were last cleared.", connLabels),
		bytesRx:     desc("received_bytes_total", "Bytes received since the statistics were last cleared.", connLabels),
		framesTx:    desc("transmitted_frames_total", "Frames transmitted.", connLabels),
		framesRx:    desc("received_frames_total", "Frames received.", connLabels),
		errorsTotal: desc("errors_total", "Link errors by kind.", append(append([]string{}, connLabels...), "kind")),
		linkSpeed:   desc("link_speed_bps", "Link speed in bits per second.", connLabels),
		duration:    desc("duration_seconds", "Time since the connection was established.", connLabels),
		scrapeErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scrape_errors_total",
			Help:      "Number of scrapes that failed to enumerate connections.",
		}),
		terminatedErr: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scrape_terminated_total",
			Help:      "Number of connections that terminated while being scraped.",
		}),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.connections
	ch <- c.up
	ch <- c.state
	ch <- c.bytesTx
	ch <- c.bytesRx
	ch <- c.framesTx
	ch <- c.framesRx
	ch <- c.errorsTotal
	ch <- c.linkSpeed
	ch <- c.duration
	c.scrapeErrors.Describe(ch)
	c.terminatedErr.Describe(ch)
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.mu.Lock()
	defer c.mu.Unlock()
	defer c.scrapeErrors.Collect(ch)
	defer c.terminatedErr.Collect(ch)

	conns, err := c.enumerator.EnumerateConnections()
	if err != nil {
		c.logger.Warn("Scrape failed to enumerate connections: %v", err)
		c.scrapeErrors.Inc()
		return
	}

	collected := 0
	for _, conn := range conns {
		if c.collectConnection(ch, conn) {
			collected++
		}
	}
	ch <- prometheus.MustNewConstMetric(c.connections, prometheus.GaugeValue, float64(collected))
}

func (c *Collector) collectConnection(ch chan<- prometheus.Metric, conn ras.Conn) bool {
	status, err := conn.GetStatus()
	if err != nil {
		c.noteError(conn, err)
		return false
	}
	stats, err := conn.GetStatistics()
	if err != nil {
		c.noteError(conn, err)
		return false
	}

	labels := []string{conn.EntryName(), conn.Handle().String(), conn.Device().Name, conn.Device().Type.String()}
	up := 0.0
	if status.State == ras.StateConnected {
		up = 1
	}

	ch <- prometheus.MustNewConstMetric(c.up, prometheus.GaugeValue, up, labels...)
	ch <- prometheus.MustNewConstMetric(c.state, prometheus.GaugeValue, float64(status.State), labels...)
	ch <- prometheus.MustNewConstMetric(c.bytesTx, prometheus.CounterValue, float64(stats.BytesTransmitted), labels...)
	ch <- prometheus.MustNewConstMetric(c.bytesRx, prometheus.CounterValue, float64(stats.BytesReceived), labels...)
	ch <- prometheus.MustNewConstMetric(c.framesTx, prometheus.CounterValue, float64(stats.FramesTransmitted), labels...)
	ch <- prometheus.MustNewConstMetric(c.framesRx, prometheus.CounterValue, float64(stats.FramesReceived), labels...)
	ch <- prometheus.MustNewConstMetric(c.linkSpeed, prometheus.GaugeValue, float64(stats.LinkSpeed), labels...)
	ch <- prometheus.MustNewConstMetric(c.duration, prometheus.GaugeValue, stats.ConnectionDuration.Seconds(), labels...)

	for kind, v := range map[string]uint64{
		"crc":              stats.CrcErrors,
		"timeout":          stats.TimeoutErrors,
		"alignment":        stats.AlignmentErrors,
		"hardware_overrun": stats.HardwareOverrunErrors,
		"framing":          stats.FramingErrors,
		"buffer_overrun":   stats.BufferOverrunErrors,
	} {
		ch <- prometheus.MustNewConstMetric(c.errorsTotal, prometheus.CounterValue, float64(v), append(labels, kind)...)
	}
	return true
}

func (c *Collector) noteError(conn ras.Conn, err error) {
	if errors.Is(err, ras.ErrConnectionTerminated) {
		c.terminatedErr.Inc()
		return
	}
	c.logger.Warn("Scrape of %s failed: %v", conn.EntryName(), err)
	c.scrapeErrors.Inc()
}

// Register registers a collector for enumerator with reg, or with the
// default registerer when reg is nil.
func Register(reg prometheus.Registerer, enumerator ras.ConnectionEnumerator, logger common.Logger) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	c := NewCollector(enumerator, logger)
	if err := reg.Register(c); err != nil {
		return nil, err
	}
	return c, nil
}
