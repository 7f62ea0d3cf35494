package checkout

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"

	"github.com/kineticlab/physio-academy-backend/internal/notifications"
	"github.com/kineticlab/physio-academy-backend/internal/plans"
	"github.com/kineticlab/physio-academy-backend/internal/subscriptions"
	"github.com/kineticlab/physio-academy-backend/pkg/config"
	"github.com/kineticlab/physio-academy-backend/pkg/db/models"
	"github.com/kineticlab/physio-academy-backend/pkg/enums"
	pkgerrors "github.com/kineticlab/physio-academy-backend/pkg/errors"
	"github.com/kineticlab/physio-academy-backend/pkg/logger"
	"github.com/kineticlab/physio-academy-backend/pkg/metrics"
)

const checkoutSessionPlaceholder = "{CHECKOUT_SESSION_ID}"

type promoFinder interface {
	FindActiveByCode(ctx context.Context, code string) (*models.PromoCode, error)
}

type trialWriter interface {
	InsertIfAbsent(ctx context.Context, sub *models.Subscription) (bool, error)
}

type sessionCreator interface {
	Create(ctx context.Context, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

// Service starts checkouts for plans.
type Service interface {
	Initiate(ctx context.Context, input Input) (*Result, error)
}

// Input is the authenticated caller plus the requested plan.
type Input struct {
	UserID    uuid.UUID
	Email     string
	Name      string
	PlanType  string
	PromoCode string
}

// Result is returned to the browser. Trials carry planType and amount; paid
// plans only the hosted session id and redirect url.
type Result struct {
	SessionID string         `json:"sessionId"`
	URL       string         `json:"url"`
	PlanType  enums.PlanType `json:"planType,omitempty"`
	Amount    *int64         `json:"amount,omitempty"`
}

type ServiceParams struct {
	Catalog       *plans.Catalog
	Billing       config.BillingConfig
	Promos        promoFinder
	Subscriptions trialWriter
	Sessions      sessionCreator
	Invoices      notifications.InvoiceSender
	Metrics       *metrics.BillingMetrics
	Logger        *logger.Logger
	Clock         func() time.Time
}

type service struct {
	catalog  *plans.Catalog
	siteURL  string
	promos   promoFinder
	subs     trialWriter
	sessions sessionCreator
	invoices notifications.InvoiceSender
	metrics  *metrics.BillingMetrics
	logg     *logger.Logger
	now      func() time.Time
}

// NewService validates dependencies. Sessions may be nil when Stripe is not
// configured; paid checkouts then fail as misconfigured while trials still work.
func NewService(params ServiceParams) (Service, error) {
	if params.Catalog == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "plan catalog required")
	}
	if params.Promos == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "promo code repo required")
	}
	if params.Subscriptions == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "subscription repo required")
	}
	siteURL := params.Billing.BaseURL()
	if siteURL == "" {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "site url required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	invoices := params.Invoices
	if invoices == nil {
		invoices = notifications.NewLogSender(logg)
	}
	clock := params.Clock
	if clock == nil {
		clock = time.Now
	}
	return &service{
		catalog:  params.Catalog,
		siteURL:  siteURL,
		promos:   params.Promos,
		subs:     params.Subscriptions,
		sessions: params.Sessions,
		invoices: invoices,
		metrics:  params.Metrics,
		logg:     logg,
		now:      clock,
	}, nil
}

func (s *service) Initiate(ctx context.Context, input Input) (*Result, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authenticated user required")
	}
	plan, err := s.catalog.Lookup(input.PlanType)
	if err != nil {
		s.metrics.IncCheckout("invalid", "rejected")
		return nil, err
	}

	ctx = s.logg.WithFields(ctx, map[string]any{
		"user_id":   input.UserID.String(),
		"plan_type": string(plan.Type),
	})

	now := s.now().UTC()
	quote, err := s.quote(ctx, plan, input.PromoCode, now)
	if err != nil {
		s.metrics.IncCheckout(string(plan.Type), "failed")
		return nil, err
	}

	var result *Result
	if plan.Type == enums.PlanTypeFreeTrial {
		result, err = s.startTrial(ctx, input, plan, now)
	} else {
		result, err = s.createSession(ctx, input, quote)
	}
	if err != nil {
		outcome := "failed"
		if pkgerrors.IsCode(err, pkgerrors.CodeConflict) {
			outcome = "rejected"
		}
		s.metrics.IncCheckout(string(plan.Type), outcome)
		return nil, err
	}
	s.metrics.IncCheckout(string(plan.Type), "started")
	return result, nil
}

func (s *service) quote(ctx context.Context, plan plans.Plan, code string, now time.Time) (plans.Quote, error) {
	if strings.TrimSpace(code) == "" {
		return plans.Price(plan, nil, now), nil
	}
	promo, err := s.promos.FindActiveByCode(ctx, code)
	if err != nil {
		return plans.Quote{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load promo code")
	}
	quote := plans.Price(plan, promo, now)
	if !quote.PromoApplied {
		s.logg.Info(s.logg.WithField(ctx, "promo_code", code), "checkout.promo.not_applied")
	}
	return quote, nil
}

func (s *service) startTrial(ctx context.Context, input Input, plan plans.Plan, now time.Time) (*Result, error) {
	sub := &models.Subscription{
		UserID:             input.UserID,
		PlanType:           plan.Type,
		Status:             enums.SubscriptionStatusTrialing,
		CurrentPeriodStart: now,
		CurrentPeriodEnd:   s.catalog.PeriodEnd(plan.Type, now),
	}
	created, err := s.subs.InsertIfAbsent(ctx, sub)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create trial subscription")
	}
	if !created {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "a subscription already exists for this account")
	}

	sessionID := subscriptions.TrialSessionPrefix + uuid.NewString()
	s.sendInvoice(ctx, notifications.Invoice{
		To:        input.Email,
		Name:      input.Name,
		PlanType:  plan.Type,
		PlanName:  plan.Name,
		Amount:    0,
		Currency:  plan.Currency,
		PeriodEnd: sub.CurrentPeriodEnd,
		Reference: sessionID,
	})
	s.logg.Info(ctx, "checkout.trial.started")

	amount := int64(0)
	return &Result{
		SessionID: sessionID,
		URL:       s.siteURL + "/payment-success?plan=" + url.QueryEscape(string(plan.Type)),
		PlanType:  plan.Type,
		Amount:    &amount,
	}, nil
}

func (s *service) createSession(ctx context.Context, input Input, quote plans.Quote) (*Result, error) {
	if s.sessions == nil {
		return nil, pkgerrors.New(pkgerrors.CodeMisconfigured, "stripe is not configured")
	}

	session, err := s.sessions.Create(ctx, s.sessionParams(input, quote))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create checkout session")
	}
	if session == nil || session.ID == "" || session.URL == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "checkout session missing id or url")
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"session_id":  session.ID,
		"final_price": quote.FinalPrice,
	})
	s.logg.Info(logCtx, "checkout.session.created")
	return &Result{SessionID: session.ID, URL: session.URL}, nil
}

// SessionMetadata is attached to every Checkout Session and read back by the
// webhook reconciler.
func SessionMetadata(input Input, quote plans.Quote) map[string]string {
	return map[string]string{
		"planType":  string(quote.Plan.Type),
		"promoCode": quote.PromoCode,
		"userEmail": input.Email,
		"userName":  input.Name,
		"userId":    input.UserID.String(),
	}
}

func (s *service) sessionParams(input Input, quote plans.Quote) *stripe.CheckoutSessionParams {
	plan := quote.Plan
	priceData := &stripe.CheckoutSessionLineItemPriceDataParams{
		Currency:   stripe.String(plan.Currency),
		UnitAmount: stripe.Int64(quote.FinalPrice),
		ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
			Name: stripe.String(plan.Name),
		},
	}

	mode := stripe.CheckoutSessionModePayment
	if plan.Recurring {
		mode = stripe.CheckoutSessionModeSubscription
		priceData.Recurring = &stripe.CheckoutSessionLineItemPriceDataRecurringParams{
			Interval: stripe.String(string(stripe.PriceRecurringIntervalMonth)),
		}
	}

	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(mode)),
		ClientReferenceID: stripe.String(input.UserID.String()),
		SuccessURL:        stripe.String(s.siteURL + "/payment-success?session_id=" + checkoutSessionPlaceholder),
		CancelURL:         stripe.String(s.siteURL + "/pricing"),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			PriceData: priceData,
			Quantity:  stripe.Int64(1),
		}},
	}
	if email := strings.TrimSpace(input.Email); email != "" {
		params.CustomerEmail = stripe.String(email)
	}
	metadata := SessionMetadata(input, quote)
	params.Metadata = metadata
	if plan.Recurring {
		params.SubscriptionData = &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: map[string]string{"userId": metadata["userId"], "planType": metadata["planType"]},
		}
	}
	return params
}

func (s *service) sendInvoice(ctx context.Context, invoice notifications.Invoice) {
	if strings.TrimSpace(invoice.To) == "" {
		s.logg.Warn(ctx, "checkout.invoice.skipped_no_email")
		return
	}
	if err := s.invoices.SendInvoice(ctx, invoice); err != nil {
		s.logg.Error(ctx, "checkout.invoice.failed", err)
	}
}
