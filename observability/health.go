package observability

import "context"

// HealthStatus is the health state of a component or of the whole layer.
type HealthStatus string

const (
	HealthStatusUp       HealthStatus = "up"
	HealthStatusDown     HealthStatus = "down"
	HealthStatusDegraded HealthStatus = "degraded"
)

// Health describes one checked component, for example the command
// interpreter or the lock directory.
type Health struct {
	Name    string            `json:"name"`
	Status  HealthStatus      `json:"status"`
	Message string            `json:"message,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

// Report aggregates component health. Its status is the worst status of
// its components.
type Report struct {
	Service    string       `json:"service"`
	Status     HealthStatus `json:"status"`
	Version    string       `json:"version,omitempty"`
	Components []Health     `json:"components,omitempty"`
}

// HealthChecker is implemented by components that can report their health.
type HealthChecker interface {
	CheckHealth(ctx context.Context) Health
}

// CheckFunc adapts a function to HealthChecker.
type CheckFunc func(ctx context.Context) Health

// CheckHealth calls f.
func (f CheckFunc) CheckHealth(ctx context.Context) Health { return f(ctx) }

// NewReport creates a report with status up.
func NewReport(service, version string) *Report {
	return &Report{
		Service: service,
		Status:  HealthStatusUp,
		Version: version,
	}
}

// Add appends a component result and degrades the overall status if needed.
func (r *Report) Add(h Health) {
	r.Components = append(r.Components, h)

	switch h.Status {
	case HealthStatusDown:
		r.Status = HealthStatusDown
	case HealthStatusDegraded:
		if r.Status != HealthStatusDown {
			r.Status = HealthStatusDegraded
		}
	}
}

// CheckAll runs every checker in order and returns the combined report.
func CheckAll(ctx context.Context, service, version string, checkers ...HealthChecker) *Report {
	r := NewReport(service, version)
	for _, c := range checkers {
		r.Add(c.CheckHealth(ctx))
	}
	return r
}
