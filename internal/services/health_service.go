package services

import (
	"context"
	"log/slog"
	"time"

	"dealpulse/internal/dealstore"
	"dealpulse/internal/infrastructure"
	"dealpulse/pkg/contracts"
	"dealpulse/pkg/contracts/domain"
)

// QueueStatser exposes queue statistics to the health endpoint.
type QueueStatser interface {
	Stats() domain.QueueStats
}

// HubStatser exposes websocket hub counters to the health endpoint.
type HubStatser interface {
	Stats() map[string]int64
}

// HealthStatus is the health endpoint's response body.
type HealthStatus struct {
	Status    string                      `json:"status"` // healthy or degraded
	Version   contracts.VersionInfo       `json:"version"`
	Uptime    string                      `json:"uptime"`
	Timestamp time.Time                   `json:"timestamp"`
	Checks    map[string]string           `json:"checks"`
	Queue     *domain.QueueStats          `json:"queue,omitempty"`
	WebSocket map[string]int64            `json:"websocket,omitempty"`
	System    *infrastructure.SystemStats `json:"system,omitempty"`
}

// HealthService aggregates component status for the health and readiness
// endpoints. All dependencies except the logger may be nil.
type HealthService struct {
	store     *dealstore.Store
	queue     QueueStatser
	hub       HubStatser
	collector *infrastructure.SystemMetricsCollector
	startTime time.Time
	logger    *slog.Logger
}

// NewHealthService creates the service. startTime anchors the reported
// uptime.
func NewHealthService(store *dealstore.Store, queue QueueStatser, hub HubStatser, collector *infrastructure.SystemMetricsCollector, logger *slog.Logger) *HealthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthService{
		store:     store,
		queue:     queue,
		hub:       hub,
		collector: collector,
		startTime: time.Now(),
		logger:    logger.With(slog.String("component", "health_service")),
	}
}

// Health reports overall status. verbose adds queue, websocket, and
// system detail. A failing store ping degrades the status but does not
// fail the endpoint; the deal store is an optional dependency.
func (s *HealthService) Health(ctx context.Context, verbose bool) *HealthStatus {
	status := &HealthStatus{
		Status:    "healthy",
		Version:   contracts.GetVersionInfo(),
		Uptime:    time.Since(s.startTime).Round(time.Second).String(),
		Timestamp: time.Now().UTC(),
		Checks:    map[string]string{"engine": "ok"},
	}

	if s.store == nil {
		status.Checks["store"] = "disabled"
	} else if err := s.store.Ping(ctx); err != nil {
		status.Checks["store"] = "unreachable"
		status.Status = "degraded"
		s.logger.WarnContext(ctx, "store ping failed", slog.String("error", err.Error()))
	} else {
		status.Checks["store"] = "ok"
	}

	if s.queue != nil {
		status.Checks["jobs"] = "ok"
	}

	if verbose {
		if s.queue != nil {
			stats := s.queue.Stats()
			status.Queue = &stats
		}
		if s.hub != nil {
			status.WebSocket = s.hub.Stats()
		}
		if s.collector != nil {
			status.System = s.collector.GetCurrentStats(ctx)
		}
	}

	return status
}

// Readiness reports whether the application can serve traffic. The store,
// when configured, must answer a ping.
func (s *HealthService) Readiness(ctx context.Context) error {
	if s.store == nil {
		return nil
	}
	return s.store.Ping(ctx)
}

// Version returns build and API version details.
func (s *HealthService) Version() contracts.VersionInfo {
	return contracts.GetVersionInfo()
}
