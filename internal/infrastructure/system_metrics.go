package infrastructure

import (
	"context"
	"runtime"
	"time"

	"go.opentelemetry.io/otel/metric"
)

// RuntimeStats is a snapshot of process statistics
type RuntimeStats struct {
	Goroutines    int64         `json:"goroutines"`
	HeapAlloc     int64         `json:"heap_alloc_bytes"`
	HeapSys       int64         `json:"heap_sys_bytes"`
	GCCount       uint32        `json:"gc_count"`
	LastGCPause   time.Duration `json:"last_gc_pause_ns"`
	CPUCount      int           `json:"cpu_count"`
	ProcessUptime time.Duration `json:"uptime_ns"`
	Timestamp     time.Time     `json:"timestamp"`
}

// SystemMetrics exports runtime statistics as observable gauges. Values are
// sampled when a reader collects, so no background goroutine is needed.
type SystemMetrics struct {
	startTime    time.Time
	registration metric.Registration
}

// NewSystemMetrics registers the runtime gauges on meter
func NewSystemMetrics(meter metric.Meter, startTime time.Time) (*SystemMetrics, error) {
	goroutines, err := meter.Int64ObservableGauge(
		"system_goroutines",
		metric.WithDescription("Number of active goroutines"),
	)
	if err != nil {
		return nil, err
	}
	heapAlloc, err := meter.Int64ObservableGauge(
		"system_memory_usage_bytes",
		metric.WithDescription("Heap bytes in use"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, err
	}
	heapSys, err := meter.Int64ObservableGauge(
		"system_memory_system_bytes",
		metric.WithDescription("Heap bytes obtained from the OS"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, err
	}
	gcCount, err := meter.Int64ObservableCounter(
		"system_gc_count_total",
		metric.WithDescription("Total number of garbage collections"),
	)
	if err != nil {
		return nil, err
	}
	uptime, err := meter.Float64ObservableGauge(
		"system_process_uptime_seconds",
		metric.WithDescription("Process uptime in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	sm := &SystemMetrics{startTime: startTime}
	sm.registration, err = meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		stats := sm.Collect()
		o.ObserveInt64(goroutines, stats.Goroutines)
		o.ObserveInt64(heapAlloc, stats.HeapAlloc)
		o.ObserveInt64(heapSys, stats.HeapSys)
		o.ObserveInt64(gcCount, int64(stats.GCCount))
		o.ObserveFloat64(uptime, stats.ProcessUptime.Seconds())
		return nil
	}, goroutines, heapAlloc, heapSys, gcCount, uptime)
	if err != nil {
		return nil, err
	}
	return sm, nil
}

// Collect samples the runtime
func (sm *SystemMetrics) Collect() RuntimeStats {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	return RuntimeStats{
		Goroutines:    int64(runtime.NumGoroutine()),
		HeapAlloc:     int64(mem.HeapAlloc),
		HeapSys:       int64(mem.HeapSys),
		GCCount:       mem.NumGC,
		LastGCPause:   time.Duration(mem.PauseNs[(mem.NumGC+255)%256]),
		CPUCount:      runtime.NumCPU(),
		ProcessUptime: time.Since(sm.startTime),
		Timestamp:     time.Now(),
	}
}

// Unregister removes the gauge callback
func (sm *SystemMetrics) Unregister() error {
	if sm.registration == nil {
		return nil
	}
	return sm.registration.Unregister()
}

// FormatStats returns the snapshot in display units
func (stats RuntimeStats) FormatStats() map[string]interface{} {
	return map[string]interface{}{
		"goroutines":       stats.Goroutines,
		"memory_usage_mb":  stats.HeapAlloc / 1024 / 1024,
		"memory_system_mb": stats.HeapSys / 1024 / 1024,
		"gc_count":         stats.GCCount,
		"last_gc_pause_ms": stats.LastGCPause.Milliseconds(),
		"cpu_count":        stats.CPUCount,
		"uptime_seconds":   stats.ProcessUptime.Seconds(),
		"go_version":       runtime.Version(),
	}
}
