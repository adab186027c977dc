package ports

import (
	"context"
	"time"

	"fleet-dispatch/internal/admin-service/core/domain/dto"
)

type IAnalyticsService interface {
	Aggregate(ctx context.Context, start, end time.Time) (dto.AnalyticsReport, error)
}
