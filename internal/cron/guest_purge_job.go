package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/kashvicreations/kashvi-backend/pkg/logger"
)

type expiredGuestPurger interface {
	PurgeExpired(ctx context.Context, cutoff time.Time) (int64, error)
}

// GuestPurgeJobParams configure the expired guest order cleanup.
type GuestPurgeJobParams struct {
	Logger *logger.Logger
	Guests expiredGuestPurger
	Now    func() time.Time
}

type guestPurgeJob struct {
	logg   *logger.Logger
	guests expiredGuestPurger
	now    func() time.Time
}

// NewGuestPurgeJob builds the job that drops guest orders whose conversion
// window closed without a payment or an account claim.
func NewGuestPurgeJob(params GuestPurgeJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Guests == nil {
		return nil, fmt.Errorf("guest repository required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &guestPurgeJob{logg: params.Logger, guests: params.Guests, now: now}, nil
}

func (j *guestPurgeJob) Name() string { return "guest_order_purge" }

func (j *guestPurgeJob) Run(ctx context.Context) error {
	purged, err := j.guests.PurgeExpired(ctx, j.now().UTC())
	if err != nil {
		return fmt.Errorf("purge expired guest orders: %w", err)
	}
	ctx = j.logg.WithField(ctx, "purged", purged)
	j.logg.Info(ctx, "expired guest orders purged")
	return nil
}
