package courses

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/kineticlab/physio-academy-backend/internal/access"
	"github.com/kineticlab/physio-academy-backend/pkg/db/models"
	pkgerrors "github.com/kineticlab/physio-academy-backend/pkg/errors"
)

type subscriptionFinder interface {
	FindByUserID(ctx context.Context, userID uuid.UUID) (*models.Subscription, error)
}

// AccessResult lists unlock states for a sequence. Without an active
// subscription the items are withheld and UpgradeRequired is set.
type AccessResult struct {
	HasActiveSubscription bool               `json:"hasActiveSubscription"`
	UpgradeRequired       bool               `json:"upgradeRequired"`
	Items                 []access.ItemState `json:"items"`
}

type Service interface {
	LessonAccess(ctx context.Context, userID, courseID uuid.UUID, loc *time.Location) (*AccessResult, error)
	PackageAccess(ctx context.Context, userID, packageID uuid.UUID, loc *time.Location) (*AccessResult, error)
}

type ServiceParams struct {
	Repo          Repository
	Subscriptions subscriptionFinder
	// Location is used when callers pass no timezone.
	Location *time.Location
	Clock    func() time.Time
}

type service struct {
	repo  Repository
	subs  subscriptionFinder
	loc   *time.Location
	clock func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "course repo required")
	}
	if params.Subscriptions == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "subscription repo required")
	}
	loc := params.Location
	if loc == nil {
		loc = time.UTC
	}
	clock := params.Clock
	if clock == nil {
		clock = time.Now
	}
	return &service{repo: params.Repo, subs: params.Subscriptions, loc: loc, clock: clock}, nil
}

func (s *service) LessonAccess(ctx context.Context, userID, courseID uuid.UUID, loc *time.Location) (*AccessResult, error) {
	if courseID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "course id required")
	}
	return s.evaluate(ctx, userID, loc, func() ([]access.Item, error) {
		return s.repo.LessonsWithProgress(ctx, userID, courseID)
	})
}

func (s *service) PackageAccess(ctx context.Context, userID, packageID uuid.UUID, loc *time.Location) (*AccessResult, error) {
	if packageID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "package id required")
	}
	return s.evaluate(ctx, userID, loc, func() ([]access.Item, error) {
		return s.repo.PackageCoursesWithEnrollment(ctx, userID, packageID)
	})
}

func (s *service) evaluate(ctx context.Context, userID uuid.UUID, loc *time.Location, load func() ([]access.Item, error)) (*AccessResult, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authenticated user required")
	}
	sub, err := s.subs.FindByUserID(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load subscription")
	}
	if !access.HasActiveSubscription(sub) {
		return &AccessResult{UpgradeRequired: true, Items: []access.ItemState{}}, nil
	}

	items, err := load()
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load progress")
	}
	if loc == nil {
		loc = s.loc
	}
	return &AccessResult{
		HasActiveSubscription: true,
		Items:                 access.UnlockStates(items, s.clock(), loc),
	}, nil
}
