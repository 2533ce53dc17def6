package workers

import (
	"context"
	"dispatch-lab/observability"
	"log/slog"
	"time"
)

// ReporterWorker logs a one line summary of the latest monitoring snapshot.
type ReporterWorker struct {
	log        *slog.Logger
	monitoring *observability.MonitoringManager
	interval   time.Duration
}

func NewReporterWorker(log *slog.Logger, monitoring *observability.MonitoringManager, interval time.Duration) *ReporterWorker {
	return &ReporterWorker{log: log, monitoring: monitoring, interval: interval}
}

// Run reports until ctx is done, then once more.
func (w *ReporterWorker) Run(ctx context.Context) error {
	startTime := time.Now()
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.report(startTime)
			w.log.Info("Reporter stopped")
			return nil
		case <-ticker.C:
			w.report(startTime)
		}
	}
}

func (w *ReporterWorker) report(startTime time.Time) {
	stats := w.monitoring.GetLatest()
	w.log.Info("Stats",
		"uptime", time.Since(startTime).Round(time.Second).String(),
		"open_connections", stats.OpenConnections,
		"commands", stats.Commands,
		"errors", stats.Errors,
		"loop_queue", stats.Gauges["loop_queue"],
		"pending_timers", stats.Gauges["pending_timers"],
		"mem_mb", stats.AllocMemMb,
	)
}
