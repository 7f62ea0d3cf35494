package promocodes

import (
	"context"
	"time"

	"github.com/kineticlab/physio-academy-backend/internal/plans"
	pkgerrors "github.com/kineticlab/physio-academy-backend/pkg/errors"
)

// ServiceParams configure the promo code service.
type ServiceParams struct {
	Repo    Repository
	Catalog *plans.Catalog
	Clock   func() time.Time
}

// Service previews promo discounts using the same pricing as checkout.
type Service struct {
	repo    Repository
	catalog *plans.Catalog
	now     func() time.Time
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "promo code repo required")
	}
	if params.Catalog == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "plan catalog required")
	}
	clock := params.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Service{repo: params.Repo, catalog: params.Catalog, now: clock}, nil
}

// Preview returns the quote for planType with code applied. Unknown or unusable
// codes are reported as not found so the caller can show a message.
func (s *Service) Preview(ctx context.Context, code, planType string) (plans.Quote, error) {
	plan, err := s.catalog.Lookup(planType)
	if err != nil {
		return plans.Quote{}, err
	}
	promo, err := s.repo.FindActiveByCode(ctx, code)
	if err != nil {
		return plans.Quote{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load promo code")
	}
	now := s.now().UTC()
	if promo == nil || !promo.UsableAt(plan.Type, now) {
		return plans.Quote{}, pkgerrors.New(pkgerrors.CodeNotFound, "promo code not valid for this plan")
	}
	return plans.Price(plan, promo, now), nil
}
