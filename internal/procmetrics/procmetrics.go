// Package procmetrics refreshes per-child resource usage at a bounded
// minimum interval: CPU percent, resident memory, cumulative disk
// read/write bytes, and wall-clock runtime. The refresh cache keeps one
// prometheus GaugeVec per metric.
package procmetrics

import (
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shirou/gopsutil/v3/process"
	"golang.org/x/time/rate"

	"github.com/capsulenv/capsulenv/internal/runtimeenv"
)

// MinimumCPUUpdateInterval is the lower bound between CPU-percent
// refreshes. gopsutil doesn't expose a per-OS constant for it, so this
// uses a fixed ~200ms floor.
const MinimumCPUUpdateInterval = 200 * time.Millisecond

// Snapshot is one child's cached resource usage.
type Snapshot struct {
	CPUPercent     float64
	MemoryBytes    uint64
	DiskReadBytes  uint64
	DiskWriteBytes uint64
	RuntimeSeconds float64
}

// Cache holds the most recently refreshed snapshot per pid, gated to
// refresh no more often than its configured interval via rate.Sometimes
// (the supervisor calls Refresh every loop iteration; rate.Sometimes
// makes all but one per interval a no-op).
type Cache struct {
	sometimes *rate.Sometimes
	disabled  bool
	snapshots map[int]Snapshot

	cpuGauge  *prometheus.GaugeVec
	memGauge  *prometheus.GaugeVec
	diskRead  *prometheus.GaugeVec
	diskWrite *prometheus.GaugeVec
	upGauge   *prometheus.GaugeVec
}

// NewCache builds a Cache with its own unregistered prometheus gauge
// vectors, used purely as an in-process cache structure and never
// exported over HTTP. The refresh interval and whether refreshing runs
// at all can be overridden via runtimeenv (CAPSULENV_METRICS_INTERVAL_MS,
// CAPSULENV_METRICS_DISABLED).
func NewCache() *Cache {
	interval := time.Duration(runtimeenv.MetricsIntervalMillis(int(MinimumCPUUpdateInterval/time.Millisecond))) * time.Millisecond
	labels := []string{"pid"}
	return &Cache{
		sometimes: &rate.Sometimes{Interval: interval},
		disabled:  runtimeenv.MetricsDisabled(),
		snapshots: make(map[int]Snapshot),
		cpuGauge:  prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: "capsulenv_process_cpu_percent"}, labels),
		memGauge:  prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: "capsulenv_process_memory_bytes"}, labels),
		diskRead:  prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: "capsulenv_process_disk_read_bytes"}, labels),
		diskWrite: prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: "capsulenv_process_disk_write_bytes"}, labels),
		upGauge:   prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: "capsulenv_process_runtime_seconds"}, labels),
	}
}

// Refresh recomputes metrics for pids (the current supervisor's own pid
// plus every running child's pid), rate-limited to the configured
// interval. Safe to call every supervisor loop iteration; most calls
// are no-ops between refreshes. A no-op entirely when metrics were
// disabled via CAPSULENV_METRICS_DISABLED.
func (c *Cache) Refresh(pids []int) {
	if c.disabled {
		return
	}
	c.sometimes.Do(func() {
		for _, pid := range pids {
			snap, err := sample(pid)
			if err != nil {
				continue
			}
			c.snapshots[pid] = snap
			label := prometheus.Labels{"pid": itoa(pid)}
			c.cpuGauge.With(label).Set(snap.CPUPercent)
			c.memGauge.With(label).Set(float64(snap.MemoryBytes))
			c.diskRead.With(label).Set(float64(snap.DiskReadBytes))
			c.diskWrite.With(label).Set(float64(snap.DiskWriteBytes))
			c.upGauge.With(label).Set(snap.RuntimeSeconds)
		}
	})
}

// Get returns the last cached snapshot for pid, or the zero Snapshot if
// none has been captured yet.
func (c *Cache) Get(pid int) Snapshot {
	return c.snapshots[pid]
}

// SelfPID is a small convenience wrapper so callers don't need to
// import "os" just to append the supervisor's own pid to the pid list
// passed to Refresh.
func SelfPID() int { return os.Getpid() }

func sample(pid int) (Snapshot, error) {
	p, err := process.NewProcess(int32(pid))
	if err != nil {
		return Snapshot{}, err
	}
	var snap Snapshot
	if cpu, err := p.CPUPercent(); err == nil {
		snap.CPUPercent = cpu
	}
	if mem, err := p.MemoryInfo(); err == nil && mem != nil {
		snap.MemoryBytes = mem.RSS
	}
	if io, err := p.IOCounters(); err == nil && io != nil {
		snap.DiskReadBytes = io.ReadBytes
		snap.DiskWriteBytes = io.WriteBytes
	}
	if createMs, err := p.CreateTime(); err == nil {
		snap.RuntimeSeconds = time.Since(time.UnixMilli(createMs)).Seconds()
	}
	return snap, nil
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [12]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
