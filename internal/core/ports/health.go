package ports

import "context"

// HealthChecker checks the health of an external dependency.
type HealthChecker interface {
	// Ping returns nil when the dependency is reachable.
	Ping(ctx context.Context) error
	// Name is the dependency name reported by /health, e.g. "postgresql".
	Name() string
}
