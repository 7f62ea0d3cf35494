package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/kineticlab/physio-academy-backend/pkg/enums"
	"github.com/kineticlab/physio-academy-backend/pkg/logger"
)

// SubscriptionExpiryJobName is the metrics and log label of the expiry sweep.
const SubscriptionExpiryJobName = "subscription-expiry"

type lapsedExpirer interface {
	ExpireLapsed(ctx context.Context, plan enums.PlanType, now time.Time) (int64, error)
}

type SubscriptionExpiryJobParams struct {
	Logger *logger.Logger
	Repo   lapsedExpirer
	Now    func() time.Time
}

type subscriptionExpiryJob struct {
	logg *logger.Logger
	repo lapsedExpirer
	now  func() time.Time
}

// NewSubscriptionExpiryJob builds the sweep that marks lapsed trial and monthly
// rows as expired. Stripe stays authoritative for renewals; this only catches
// rows whose period ended without a follow-up webhook.
func NewSubscriptionExpiryJob(params SubscriptionExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("subscription repository required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &subscriptionExpiryJob{logg: params.Logger, repo: params.Repo, now: now}, nil
}

func (j *subscriptionExpiryJob) Name() string { return SubscriptionExpiryJobName }

func (j *subscriptionExpiryJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	var errs error
	for _, plan := range enums.PlanTypes() {
		if plan == enums.PlanTypeLifetime {
			continue
		}
		expired, err := j.repo.ExpireLapsed(ctx, plan, now)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("expire %s: %w", plan, err))
			continue
		}
		if expired > 0 {
			logCtx := j.logg.WithFields(ctx, map[string]any{"plan_type": string(plan), "expired": expired})
			j.logg.Info(logCtx, "cron.subscription_expiry.expired")
		}
	}
	return errs
}
