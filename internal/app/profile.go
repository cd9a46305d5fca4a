package app

import (
	"fmt"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
)

// profiler appends per-section frame timings to a CSV file.
type profiler struct {
	mu      sync.Mutex
	file    *os.File
	start   time.Time
	last    time.Time
	frame   uint64
	enabled bool
}

func newProfiler(path string, logger *zap.Logger) *profiler {
	if path == "" {
		return nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		logger.Warn("profiler disabled", zap.String("path", path), zap.Error(err))
		return nil
	}
	p := &profiler{
		file:    f,
		enabled: true,
	}
	if info, err := f.Stat(); err == nil && info.Size() == 0 {
		fmt.Fprintln(p.file, "timestamp,frame,section,delta_ms")
	}
	return p
}

func (p *profiler) beginFrame() {
	if p == nil || !p.enabled {
		return
	}
	now := time.Now()
	p.frame++
	p.start = now
	p.last = now
}

func (p *profiler) markSection(name string) {
	if p == nil || !p.enabled {
		return
	}
	now := time.Now()
	delta := now.Sub(p.last).Seconds() * 1000
	p.last = now
	p.log(name, delta)
}

func (p *profiler) endFrame() {
	if p == nil || !p.enabled {
		return
	}
	p.log("frame_total", time.Since(p.start).Seconds()*1000)
}

func (p *profiler) Close() error {
	if p == nil || !p.enabled {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.enabled = false
	return p.file.Close()
}

func (p *profiler) log(section string, deltaMs float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.file == nil {
		return
	}
	timestamp := time.Now().Format(time.RFC3339Nano)
	fmt.Fprintf(p.file, "%s,%d,%s,%.3f\n", timestamp, p.frame, section, deltaMs)
}
