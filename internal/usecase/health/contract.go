package health

import "context"

// StorePinger checks page cache store availability.
type StorePinger interface {
	Ping(ctx context.Context) error
}

// ProviderChecker checks chat model provider availability.
type ProviderChecker interface {
	HealthCheck(ctx context.Context) error
}
