package cache

import (
	"context"
	"time"

	"smartfit/backend/internal/domain"
)

// ReceiptCache stores rendered receipts by sale id. Sale records are
// immutable once committed, so a cached receipt never goes stale; the
// TTL only bounds memory on the cache side.
type ReceiptCache interface {
	Get(ctx context.Context, saleID int64) (*domain.Receipt, bool, error)
	Set(ctx context.Context, saleID int64, receipt *domain.Receipt, ttl time.Duration) error
}

type NoopReceiptCache struct{}

func (NoopReceiptCache) Get(_ context.Context, _ int64) (*domain.Receipt, bool, error) {
	return nil, false, nil
}

func (NoopReceiptCache) Set(_ context.Context, _ int64, _ *domain.Receipt, _ time.Duration) error {
	return nil
}
