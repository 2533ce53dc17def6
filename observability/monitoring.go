package observability

import (
	"context"
	"log/slog"
	"maps"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
)

// ProcessStats is the last self sample taken by the heartbeat worker.
type ProcessStats struct {
	PID        int32   `json:"pid"`
	CpuPercent float64 `json:"cpu_percent"`
	RssBytes   uint64  `json:"rss_bytes"`
	Threads    int32   `json:"threads"`
}

// MonitoringStats is the document served on /debug/stats.
type MonitoringStats struct {
	OpenConnections int64          `json:"open_connections"`
	Commands        uint64         `json:"commands"`
	Errors          uint64         `json:"errors"`
	Gauges          map[string]int `json:"gauges"`
	AllocMemMb      uint64         `json:"alloc_mem_mb"`
	NumGC           uint32         `json:"num_gc"`
	NumGoroutine    int            `json:"num_goroutine"`
	Process         ProcessStats   `json:"process"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// Gauge reads a current value on demand, e.g. a queue length.
type Gauge func() int

// MonitoringManager aggregates counters fed by the hubs and gauges
// registered at wiring time. It is refreshed on a ticker by Run.
type MonitoringManager struct {
	log            *slog.Logger
	metricInterval time.Duration

	mu          sync.RWMutex
	latestStats MonitoringStats
	gauges      map[string]Gauge

	OpenConnections int64
	Commands        uint64
	ErrorCount      uint64
}

func NewMonitoringManager(log *slog.Logger, metricInterval time.Duration) *MonitoringManager {
	return &MonitoringManager{
		log:            log,
		metricInterval: metricInterval,
		gauges:         make(map[string]Gauge),
		latestStats:    MonitoringStats{Gauges: make(map[string]int)},
	}
}

func (mm *MonitoringManager) ConnectionOpened() {
	atomic.AddInt64(&mm.OpenConnections, 1)
}

func (mm *MonitoringManager) ConnectionClosed() {
	atomic.AddInt64(&mm.OpenConnections, -1)
}

func (mm *MonitoringManager) IncrCommands() {
	atomic.AddUint64(&mm.Commands, 1)
}

func (mm *MonitoringManager) IncrErrorCount() {
	atomic.AddUint64(&mm.ErrorCount, 1)
}

// RegisterGauge adds or replaces a named gauge.
func (mm *MonitoringManager) RegisterGauge(name string, gauge Gauge) {
	mm.mu.Lock()
	defer mm.mu.Unlock()
	mm.gauges[name] = gauge
}

// UpdateProcess stores the last heartbeat sample.
func (mm *MonitoringManager) UpdateProcess(stats ProcessStats) {
	mm.mu.Lock()
	defer mm.mu.Unlock()
	mm.latestStats.Process = stats
}

// Run refreshes the snapshot every metric interval until ctx is done.
func (mm *MonitoringManager) Run(ctx context.Context) error {
	ticker := time.NewTicker(mm.metricInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			mm.log.Debug("Monitoring manager stopped")
			return nil
		case <-ticker.C:
			mm.Refresh()
		}
	}
}

// Refresh recomputes the snapshot right away.
func (mm *MonitoringManager) Refresh() {
	mm.mu.RLock()
	gauges := maps.Clone(mm.gauges)
	mm.mu.RUnlock()

	// Gauges may take their own locks, they are read outside of ours.
	values := make(map[string]int, len(gauges))
	for name, gauge := range gauges {
		values[name] = gauge()
	}

	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	mm.mu.Lock()
	defer mm.mu.Unlock()
	mm.latestStats.OpenConnections = atomic.LoadInt64(&mm.OpenConnections)
	mm.latestStats.Commands = atomic.LoadUint64(&mm.Commands)
	mm.latestStats.Errors = atomic.LoadUint64(&mm.ErrorCount)
	mm.latestStats.Gauges = values
	mm.latestStats.AllocMemMb = m.Alloc / 1024 / 1024
	mm.latestStats.NumGC = m.NumGC
	mm.latestStats.NumGoroutine = runtime.NumGoroutine()
	mm.latestStats.UpdatedAt = time.Now().UTC()

	mm.log.Debug("Stats updated",
		"open_connections", mm.latestStats.OpenConnections,
		"commands", mm.latestStats.Commands,
		"errors", mm.latestStats.Errors,
		"mem_mb", mm.latestStats.AllocMemMb,
	)
}

func (mm *MonitoringManager) GetLatest() MonitoringStats {
	mm.mu.RLock()
	defer mm.mu.RUnlock()
	stats := mm.latestStats
	stats.Gauges = maps.Clone(mm.latestStats.Gauges)
	return stats
}
