package fetch

import (
	"context"
	"fmt"

	"github.com/NathanNam/caltrain-commuter-app/observability"
	"github.com/NathanNam/caltrain-commuter-app/resilience"
)

// CheckHealth reports degraded while any upstream circuit is not closed.
func (o *Orchestrator) CheckHealth(_ context.Context) observability.Health {
	h := observability.Health{Name: "upstreams", Status: observability.HealthStatusUp}
	snaps := o.breakers.Snapshots()
	if len(snaps) == 0 {
		return h
	}

	circuits := make(map[string]any, len(snaps))
	var tripped int
	for _, s := range snaps {
		circuits[s.Name] = s.State
		if s.State != resilience.StateClosed.String() {
			tripped++
		}
	}
	h.Details = map[string]any{"circuits": circuits}
	if tripped > 0 {
		h.Status = observability.HealthStatusDegraded
		h.Message = fmt.Sprintf("%d of %d circuits not closed", tripped, len(snaps))
	}
	return h
}
