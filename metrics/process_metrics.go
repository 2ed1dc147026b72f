//go:build linux

package metrics

import (
	"bufio"
	"os"
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

type ioStats struct {
	readSyscalls  int64
	writeSyscalls int64
	readBytes     int64
	writeBytes    int64
}

// IOCollector is a prometheus.Collector reading this process's I/O
// counters out of /proc/self/io on every scrape, the way the hub
// surfaces disk pressure from message storage and the startup replay
// without shelling out to an external exporter.
type IOCollector struct {
	readSyscalls  *prometheus.Desc
	writeSyscalls *prometheus.Desc
	readBytes     *prometheus.Desc
	writeBytes    *prometheus.Desc
}

// NewIOCollector returns a ready-to-register IOCollector.
func NewIOCollector() *IOCollector {
	return &IOCollector{
		readSyscalls: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "process", "read_syscalls_total"),
			"Number of read(2)-family syscalls issued by this process.", nil, nil),
		writeSyscalls: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "process", "write_syscalls_total"),
			"Number of write(2)-family syscalls issued by this process.", nil, nil),
		readBytes: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "process", "read_bytes_total"),
			"Bytes actually fetched from storage by this process.", nil, nil),
		writeBytes: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "process", "write_bytes_total"),
			"Bytes actually sent to storage by this process.", nil, nil),
	}
}

// NewProcessCollector returns the collector the hub registers for
// process-level resource metrics. It's currently just I/O counters;
// the name is kept general so CPU/memory collectors can join it later
// without another registration point.
func NewProcessCollector() *IOCollector {
	return NewIOCollector()
}

func (c *IOCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.readSyscalls
	ch <- c.writeSyscalls
	ch <- c.readBytes
	ch <- c.writeBytes
}

func (c *IOCollector) Collect(ch chan<- prometheus.Metric) {
	stats, err := c.getIOStats()
	if err != nil {
		return
	}
	ch <- prometheus.MustNewConstMetric(c.readSyscalls, prometheus.CounterValue, float64(stats.readSyscalls))
	ch <- prometheus.MustNewConstMetric(c.writeSyscalls, prometheus.CounterValue, float64(stats.writeSyscalls))
	ch <- prometheus.MustNewConstMetric(c.readBytes, prometheus.CounterValue, float64(stats.readBytes))
	ch <- prometheus.MustNewConstMetric(c.writeBytes, prometheus.CounterValue, float64(stats.writeBytes))
}

// getIOStats parses /proc/self/io, whose lines look like:
//
//	rchar: 1234
//	wchar: 1234
//	syscr: 12
//	syscw: 12
//	read_bytes: 0
//	write_bytes: 0
//	cancelled_write_bytes: 0
func (c *IOCollector) getIOStats() (*ioStats, error) {
	f, err := os.Open("/proc/self/io")
	if err != nil {
		return nil, err
	}
	defer f.Close()

	stats := &ioStats{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		parts := strings.SplitN(line, ":", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		val, err := strconv.ParseInt(strings.TrimSpace(parts[1]), 10, 64)
		if err != nil {
			continue
		}
		switch key {
		case "syscr":
			stats.readSyscalls = val
		case "syscw":
			stats.writeSyscalls = val
		case "read_bytes":
			stats.readBytes = val
		case "write_bytes":
			stats.writeBytes = val
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return stats, nil
}
