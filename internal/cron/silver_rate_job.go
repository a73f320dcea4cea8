package cron

import (
	"context"
	"fmt"

	"github.com/kashvicreations/kashvi-backend/internal/pricing"
	"github.com/kashvicreations/kashvi-backend/pkg/logger"
)

type rateRefresher interface {
	RefreshRate(ctx context.Context) (pricing.Rate, error)
}

// SilverRateJobParams configure the daily silver rate refresh.
type SilverRateJobParams struct {
	Logger  *logger.Logger
	Pricing rateRefresher
}

type silverRateJob struct {
	logg    *logger.Logger
	pricing rateRefresher
}

// NewSilverRateJob builds the job that pulls the day's silver rate and
// activates it for dynamic pricing.
func NewSilverRateJob(params SilverRateJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Pricing == nil {
		return nil, fmt.Errorf("pricing service required")
	}
	return &silverRateJob{logg: params.Logger, pricing: params.Pricing}, nil
}

func (j *silverRateJob) Name() string { return "silver_rate_refresh" }

func (j *silverRateJob) Run(ctx context.Context) error {
	rate, err := j.pricing.RefreshRate(ctx)
	if err != nil {
		return fmt.Errorf("refresh silver rate: %w", err)
	}
	ctx = j.logg.WithFields(ctx, map[string]any{
		"per_gram": rate.PerGram.String(),
		"source":   rate.Source,
	})
	j.logg.Info(ctx, "silver rate refreshed")
	return nil
}
