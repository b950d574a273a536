package workers

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/shirou/gopsutil/process"

	"chattr/contract"
	"chattr/observability"
)

// HeartbeatWorker samples the broker's own process every interval and feeds
// the measurements into monitoring, where the debug endpoint picks them up.
type HeartbeatWorker struct {
	log        *slog.Logger
	monitoring *observability.Monitoring
	interval   time.Duration
}

func NewHeartbeatWorker(log *slog.Logger, monitoring *observability.Monitoring,
	interval time.Duration) *HeartbeatWorker {
	return &HeartbeatWorker{log: log, monitoring: monitoring, interval: interval}
}

var _ contract.Worker = (*HeartbeatWorker)(nil)

func (w *HeartbeatWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			rss, cpu, err := selfStats(p)
			if err != nil {
				w.log.Error("Failed to collect self stats", "err", err)
				continue
			}
			w.monitoring.RecordProcessStats(rss, cpu)

			stats := w.monitoring.GetLatest()
			w.log.Info("Broker heartbeat",
				"rooms", stats.Rooms,
				"sessions", stats.Sessions,
				"messages", stats.MessagesPosted,
				"delivered", stats.EventsDelivered,
				"dropped", stats.EventsDropped,
				"rss_mb", stats.ProcRSSMb,
				"cpu_percent", stats.ProcCPUPercent)
		}
	}
}

// selfStats retrieves memory and CPU usage for the given process.
func selfStats(p *process.Process) (uint64, float64, error) {
	memInfo, err := p.MemoryInfo()
	if err != nil {
		return 0, 0, err
	}
	cpuPercent, err := p.CPUPercent()
	if err != nil {
		return 0, 0, err
	}
	return memInfo.RSS, cpuPercent, nil
}
