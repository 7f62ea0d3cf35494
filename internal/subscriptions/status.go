package subscriptions

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"

	"github.com/kineticlab/physio-academy-backend/internal/access"
	pkgerrors "github.com/kineticlab/physio-academy-backend/pkg/errors"
	"github.com/kineticlab/physio-academy-backend/pkg/logger"
)

// TrialSessionPrefix marks session ids minted locally for free trials.
const TrialSessionPrefix = "trial_"

type sessionLookup interface {
	Get(ctx context.Context, id string) (*stripe.CheckoutSession, error)
}

// StatusQuery identifies whose subscription to report. Either SessionID or
// UserID must be set; when both are, they must agree.
type StatusQuery struct {
	SessionID string
	UserID    uuid.UUID
}

// StatusResult is the payload for the status endpoint.
type StatusResult struct {
	Success          bool  `json:"success"`
	Subscription     *View `json:"subscription"`
	HasActivePremium bool  `json:"hasActivePremium"`
}

// StatusService answers subscription-status lookups.
type StatusService interface {
	Lookup(ctx context.Context, query StatusQuery) (*StatusResult, error)
}

type StatusServiceParams struct {
	Repo     Repository
	Sessions sessionLookup
	Logger   *logger.Logger
}

type statusService struct {
	repo     Repository
	sessions sessionLookup
	logg     *logger.Logger
}

// NewStatusService builds the lookup service. Sessions may be nil when Stripe
// is not configured; session_id lookups then fail as misconfigured.
func NewStatusService(params StatusServiceParams) (StatusService, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "subscription repo required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &statusService{repo: params.Repo, sessions: params.Sessions, logg: logg}, nil
}

func (s *statusService) Lookup(ctx context.Context, query StatusQuery) (*StatusResult, error) {
	userID, err := s.resolveUser(ctx, query)
	if err != nil {
		return nil, err
	}

	sub, err := s.repo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load subscription")
	}
	return &StatusResult{
		Success:          true,
		Subscription:     NewView(sub),
		HasActivePremium: access.HasActivePremium(sub),
	}, nil
}

func (s *statusService) resolveUser(ctx context.Context, query StatusQuery) (uuid.UUID, error) {
	sessionID := strings.TrimSpace(query.SessionID)
	if sessionID == "" || strings.HasPrefix(sessionID, TrialSessionPrefix) {
		if query.UserID == uuid.Nil {
			return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "session_id or bearer token required")
		}
		return query.UserID, nil
	}

	if s.sessions == nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeMisconfigured, "stripe is not configured")
	}
	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "retrieve checkout session")
	}

	userID, ok := SessionUserID(session)
	if !ok {
		logCtx := s.logg.WithField(ctx, "session_id", sessionID)
		s.logg.Warn(logCtx, "subscription.status.session_without_user")
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeNotFound, "checkout session has no user reference")
	}
	if query.UserID != uuid.Nil && query.UserID != userID {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeForbidden, "checkout session belongs to another user")
	}
	return userID, nil
}

// SessionUserID resolves the owning user of a Checkout Session from
// client_reference_id, falling back to metadata.userId.
func SessionUserID(session *stripe.CheckoutSession) (uuid.UUID, bool) {
	if session == nil {
		return uuid.Nil, false
	}
	candidates := []string{session.ClientReferenceID}
	if session.Metadata != nil {
		candidates = append(candidates, session.Metadata["userId"])
	}
	for _, raw := range candidates {
		if id, err := uuid.Parse(strings.TrimSpace(raw)); err == nil && id != uuid.Nil {
			return id, true
		}
	}
	return uuid.Nil, false
}
