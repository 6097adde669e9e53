package cache

import (
	"context"
	"time"

	"bukukas/backend/internal/domain"
)

type ReportCache interface {
	Get(ctx context.Context, key string) (*domain.PeriodSummary, bool, error)
	Set(ctx context.Context, key string, value *domain.PeriodSummary, ttl time.Duration) error
}

type NoopReportCache struct{}

func (NoopReportCache) Get(_ context.Context, _ string) (*domain.PeriodSummary, bool, error) {
	return nil, false, nil
}

func (NoopReportCache) Set(_ context.Context, _ string, _ *domain.PeriodSummary, _ time.Duration) error {
	return nil
}
