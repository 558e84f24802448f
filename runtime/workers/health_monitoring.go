package workers

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/shirou/gopsutil/process"
)

// SelfStats is the latest health snapshot of the serving process, published
// for the debug inspector's stats panel.
type SelfStats struct {
	PID         int
	Status      string
	CPUPercent  float64
	RSSBytes    uint64
	CollectedAt time.Time
}

// HealthMonitoringWorker samples the serving process on a fixed interval
// and keeps the latest snapshot readable by other components.
type HealthMonitoringWorker struct {
	mu             sync.Mutex
	log            *slog.Logger
	metricInterval time.Duration
	latest         SelfStats
}

func NewHealthMonitoringWorker(log *slog.Logger, metricInterval time.Duration) *HealthMonitoringWorker {
	return &HealthMonitoringWorker{log: log, metricInterval: metricInterval}
}

// GetLatest returns the most recent snapshot; zero value before the first tick.
func (w *HealthMonitoringWorker) GetLatest() SelfStats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.latest
}

func (w *HealthMonitoringWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.metricInterval)
	defer ticker.Stop()

	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping health monitoring")
			return nil
		case <-ticker.C:
			rss, cpu, status, err := getSelfStats(p)
			if err != nil {
				w.log.Error("Failed to collect self stats", "err", err)
				continue
			}

			w.mu.Lock()
			w.latest = SelfStats{
				PID:         os.Getpid(),
				Status:      status,
				CPUPercent:  cpu,
				RSSBytes:    rss,
				CollectedAt: time.Now().UTC(),
			}
			w.mu.Unlock()

			w.log.Debug("Self stats collected", "cpu", cpu, "rss", rss, "status", status)
		}
	}
}

// getSelfStats retrieves technical metrics (Memory, CPU, and OS Status) for the given process.
func getSelfStats(p *process.Process) (uint64, float64, string, error) {
	memInfo, err := p.MemoryInfo()
	if err != nil {
		return 0, 0, "", err
	}

	cpuPercent, err := p.CPUPercent()
	if err != nil {
		return 0, 0, "", err
	}

	status, err := p.Status()
	if err != nil {
		return 0, 0, "", err
	}
	return memInfo.RSS, cpuPercent, status, nil
}
