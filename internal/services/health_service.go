package services

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"time"

	"turnstilecli/internal/config"
	"turnstilecli/internal/infrastructure"
	"turnstilecli/pkg/contracts"
)

// HealthService provides health check functionality
type HealthService struct {
	version   string
	paths     config.PathsConfig
	turnstile *TurnstileService
	system    *infrastructure.SystemMetrics
	startTime time.Time
	logger    *slog.Logger
}

// HealthStatus represents the health status response
type HealthStatus struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version"`
	Runtime   map[string]interface{} `json:"runtime,omitempty"`
	Services  map[string]interface{} `json:"services,omitempty"`
}

// ServiceHealth represents individual service health
type ServiceHealth struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Uptime  string `json:"uptime,omitempty"`
}

// NewHealthService creates a new health service. turnstile may be nil, in
// which case the dataset is reported as not ready.
func NewHealthService(paths config.PathsConfig, turnstile *TurnstileService, logger *slog.Logger) *HealthService {
	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("HealthService initialized",
		slog.String("version", contracts.Version),
		slog.String("data_dir", paths.DataDir))

	return &HealthService{
		version:   contracts.Version,
		paths:     paths,
		turnstile: turnstile,
		startTime: time.Now(),
		logger:    logger,
	}
}

// SetSystemMetrics makes liveness report the sampled runtime statistics
func (hs *HealthService) SetSystemMetrics(sm *infrastructure.SystemMetrics) {
	hs.system = sm
}

// HealthCheck returns overall health status
func (hs *HealthService) HealthCheck(ctx context.Context) HealthStatus {
	hs.logger.DebugContext(ctx, "HealthCheck: performing health check",
		slog.String("uptime", time.Since(hs.startTime).String()))

	return HealthStatus{
		Status:    "ok",
		Timestamp: time.Now(),
		Version:   hs.version,
	}
}

// ReadinessCheck reports ready once the data directory exists and a
// dataset has been loaded
func (hs *HealthService) ReadinessCheck(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:    "ready",
		Timestamp: time.Now(),
		Version:   hs.version,
		Services:  make(map[string]interface{}),
	}

	status.Services["data"] = hs.checkDataHealth()
	status.Services["dataset"] = hs.checkDatasetHealth()

	for _, service := range status.Services {
		if sh, ok := service.(ServiceHealth); ok && sh.Status != "ready" {
			status.Status = "not_ready"
			break
		}
	}

	return status
}

// LivenessCheck returns liveness status
func (hs *HealthService) LivenessCheck(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:    "alive",
		Timestamp: time.Now(),
		Version:   hs.version,
	}
	if hs.system != nil {
		status.Runtime = hs.system.Collect().FormatStats()
		return status
	}
	status.Runtime = map[string]interface{}{
		"uptime_seconds": time.Since(hs.startTime).Seconds(),
		"go_version":     runtime.Version(),
		"goroutines":     runtime.NumGoroutine(),
	}
	return status
}

// Version returns version information
func (hs *HealthService) Version() contracts.VersionInfo {
	return contracts.GetVersionInfo()
}

func (hs *HealthService) checkDataHealth() ServiceHealth {
	if _, err := os.Stat(hs.paths.DataDir); err != nil {
		return ServiceHealth{
			Status:  "not_ready",
			Message: fmt.Sprintf("Data directory not accessible: %s", hs.paths.DataDir),
		}
	}
	return ServiceHealth{Status: "ready"}
}

func (hs *HealthService) checkDatasetHealth() ServiceHealth {
	if hs.turnstile == nil {
		return ServiceHealth{Status: "not_ready", Message: "pipeline not configured"}
	}
	report, err := hs.turnstile.Report()
	if err != nil {
		return ServiceHealth{Status: "not_ready", Message: err.Error()}
	}
	return ServiceHealth{
		Status:  "ready",
		Message: fmt.Sprintf("load %s: %d records", report.ID, report.Clean.Kept),
		Uptime:  time.Since(report.FinishedAt).Round(time.Second).String(),
	}
}
