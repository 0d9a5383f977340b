package usecase

import (
	"context"

	domain "github.com/vmandke/vending-machine/internal/entity"
)

// EventPublisher pushes committed machine transactions onto the event stream.
// Publishing is best-effort and happens outside the transaction lock.
type EventPublisher interface {
	PublishMachineEvent(ctx context.Context, ev MachineEvent) error
}

// CatalogCache is the serving layer's fast path for public product reads.
// The catalog view is allowed to lag the engine state.
type CatalogCache interface {
	SetProduct(ctx context.Context, p domain.Product) error
	GetProduct(ctx context.Context, name string) (domain.Product, bool, error)
	Invalidate(ctx context.Context, name string) error
}

// IdempotencyStore deduplicates buy requests that carry an idempotency key.
type IdempotencyStore interface {
	TryLock(ctx context.Context, scope, key string) (bool, error)
	Remember(ctx context.Context, scope, key, value string) error
	Recall(ctx context.Context, scope, key string) (string, bool, error)
}
