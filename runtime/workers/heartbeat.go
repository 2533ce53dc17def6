package workers

import (
	"context"
	"dispatch-lab/domain"
	"dispatch-lab/domain/event"
	"dispatch-lab/observability"
	"log/slog"
	"os"
	"time"

	"github.com/shirou/gopsutil/process"
)

// HeartbeatWorker samples the CPU, memory and thread count of the server
// process and publishes them to monitoring and telemetry.
type HeartbeatWorker struct {
	log           *slog.Logger
	interval      time.Duration
	monitoring    *observability.MonitoringManager
	telemetryChan chan<- event.Event
}

func NewHeartbeatWorker(
	log *slog.Logger,
	interval time.Duration,
	monitoring *observability.MonitoringManager,
	telemetryChan chan<- event.Event,
) *HeartbeatWorker {
	return &HeartbeatWorker{
		log:           log,
		interval:      interval,
		monitoring:    monitoring,
		telemetryChan: telemetryChan,
	}
}

func (w *HeartbeatWorker) Run(ctx context.Context) error {
	w.log.Info("Starting heartbeat worker", "interval", w.interval)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			stats, err := selfStats(p)
			if err != nil {
				w.log.Error("Failed to collect self stats", "error", err)
				continue
			}
			w.monitoring.UpdateProcess(stats)
			event.Emit(w.telemetryChan, event.New(event.PIDTrackerType, event.ProcessTracker{
				PID:     domain.PID(stats.PID),
				Cpu:     stats.CpuPercent,
				Ram:     stats.RssBytes,
				Threads: stats.Threads,
			}))
		}
	}
}

func selfStats(p *process.Process) (observability.ProcessStats, error) {
	memInfo, err := p.MemoryInfo()
	if err != nil {
		return observability.ProcessStats{}, err
	}
	cpuPercent, err := p.CPUPercent()
	if err != nil {
		return observability.ProcessStats{}, err
	}
	threads, err := p.NumThreads()
	if err != nil {
		return observability.ProcessStats{}, err
	}
	return observability.ProcessStats{
		PID:        p.Pid,
		CpuPercent: cpuPercent,
		RssBytes:   memInfo.RSS,
		Threads:    threads,
	}, nil
}
