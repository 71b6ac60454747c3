// Package sysmon samples system CPU and memory load on a fixed interval and
// publishes each snapshot to all connected clients.
package sysmon

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/mem"

	"github.com/morenoc/imagemill/internal/protocol"
)

const bytesPerGB = 1 << 30

// Broadcaster fans one message out to every connected client.
type Broadcaster interface {
	Broadcast(msg []byte)
}

// Sampler periodically publishes cpu_stats events. It runs independently of
// batch processing and never blocks on it.
type Sampler struct {
	broadcaster Broadcaster
	logger      *slog.Logger
	interval    time.Duration
}

// New creates a Sampler that broadcasts one snapshot per interval.
func New(broadcaster Broadcaster, logger *slog.Logger, interval time.Duration) *Sampler {
	return &Sampler{
		broadcaster: broadcaster,
		logger:      logger,
		interval:    interval,
	}
}

// Available reports whether the CPU load source can be read on this system.
func Available() bool {
	_, err := cpu.Percent(0, false)
	return err == nil
}

// Run samples until ctx is cancelled. The first reading only establishes
// the baseline for the since-last-call load percentages and is discarded,
// never broadcast. If the telemetry source is unavailable the sampler logs
// once and does not run; no error surfaces to the server.
func (s *Sampler) Run(ctx context.Context) {
	if _, err := cpu.Percent(0, true); err != nil {
		s.logger.Warn("cpu telemetry unavailable", "err", err)
		return
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sample()
		}
	}
}

func (s *Sampler) sample() {
	cores, err := cpu.Percent(0, true)
	if err != nil {
		s.logger.Debug("sample per-core load", "err", err)
		return
	}

	totals, err := cpu.Percent(0, false)
	if err != nil || len(totals) == 0 {
		s.logger.Debug("sample total load", "err", err)
		return
	}

	vm, err := mem.VirtualMemory()
	if err != nil {
		s.logger.Debug("sample memory", "err", err)
		return
	}

	for i, core := range cores {
		cores[i] = round(core, 1)
	}

	msg, err := protocol.Marshal(protocol.TypeCPUStats, protocol.CPUStats{
		Cores:      cores,
		Total:      round(totals[0], 1),
		RAMPercent: round(vm.UsedPercent, 1),
		RAMUsedGB:  round(float64(vm.Used)/bytesPerGB, 2),
		RAMTotalGB: round(float64(vm.Total)/bytesPerGB, 2),
	})
	if err != nil {
		s.logger.Debug("marshal cpu stats", "err", err)
		return
	}

	s.broadcaster.Broadcast(msg)
}

func round(v float64, places int) float64 {
	factor := math.Pow(10, float64(places))
	return math.Round(v*factor) / factor
}
