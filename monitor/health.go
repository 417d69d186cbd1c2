package monitor

import (
	"context"

	"github.com/NathanNam/caltrain-commuter-app/observability"
)

// CheckHealth reports degraded before the first successful poll and while
// the most recent poll failed.
func (m *Monitor) CheckHealth(_ context.Context) observability.Health {
	h := observability.Health{Name: "realtime-feed", Status: observability.HealthStatusUp}
	snap := m.Snapshot()
	err := m.LastError()

	switch {
	case snap == nil && err != nil:
		h.Status = observability.HealthStatusDegraded
		h.Message = err.Error()
	case snap == nil:
		h.Status = observability.HealthStatusDegraded
		h.Message = "awaiting first poll"
	case err != nil:
		h.Status = observability.HealthStatusDegraded
		h.Message = err.Error()
	}
	if snap != nil {
		h.Details = map[string]any{
			"updated_at":   snap.UpdatedAt,
			"service_date": snap.ServiceDate,
			"trips":        len(snap.Statuses),
		}
	}
	return h
}
