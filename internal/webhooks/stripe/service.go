package stripewebhook

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v84"

	"github.com/kineticlab/physio-academy-backend/internal/notifications"
	"github.com/kineticlab/physio-academy-backend/internal/plans"
	"github.com/kineticlab/physio-academy-backend/internal/promocodes"
	"github.com/kineticlab/physio-academy-backend/internal/subscriptions"
	"github.com/kineticlab/physio-academy-backend/pkg/db/models"
	"github.com/kineticlab/physio-academy-backend/pkg/enums"
	pkgerrors "github.com/kineticlab/physio-academy-backend/pkg/errors"
	"github.com/kineticlab/physio-academy-backend/pkg/logger"
	"github.com/kineticlab/physio-academy-backend/pkg/metrics"
)

// OneTimeReferencePrefix marks the synthetic subscription id stored for
// one-time payments.
const OneTimeReferencePrefix = "one_time_"

type subscriptionWriter interface {
	UpsertByUser(ctx context.Context, sub *models.Subscription) error
	ApplyStripeUpdate(ctx context.Context, stripeSubscriptionID string, update subscriptions.StripeUpdate) (bool, error)
}

type promoUsage interface {
	IncrementUsage(ctx context.Context, code string) (bool, error)
}

type ServiceParams struct {
	Subscriptions subscriptionWriter
	Promos        promoUsage
	Catalog       *plans.Catalog
	Invoices      notifications.InvoiceSender
	Metrics       *metrics.BillingMetrics
	Logger        *logger.Logger
	Clock         func() time.Time
}

// Service reconciles Stripe events into subscription rows.
type Service struct {
	subs     subscriptionWriter
	promos   promoUsage
	catalog  *plans.Catalog
	invoices notifications.InvoiceSender
	metrics  *metrics.BillingMetrics
	logg     *logger.Logger
	now      func() time.Time
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Subscriptions == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "subscription repo required")
	}
	if params.Promos == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "promo code repo required")
	}
	if params.Catalog == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "plan catalog required")
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
	return &Service{
		subs:     params.Subscriptions,
		promos:   params.Promos,
		catalog:  params.Catalog,
		invoices: invoices,
		metrics:  params.Metrics,
		logg:     logg,
		now:      clock,
	}, nil
}

func (s *Service) HandleEvent(ctx context.Context, event *stripe.Event) error {
	if event == nil || event.Data == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "stripe event data required")
	}
	eventType := string(event.Type)
	ctx = s.logg.WithField(ctx, "event_type", eventType)

	outcome, err := s.dispatch(ctx, event)
	if err != nil {
		s.metrics.IncWebhookEvent(eventType, "failed")
		return err
	}
	s.metrics.IncWebhookEvent(eventType, outcome)
	return nil
}

func (s *Service) dispatch(ctx context.Context, event *stripe.Event) (string, error) {
	switch event.Type {
	case stripe.EventTypeCheckoutSessionCompleted:
		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode checkout session")
		}
		return s.checkoutCompleted(ctx, &session)
	case stripe.EventTypeCustomerSubscriptionUpdated:
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode subscription")
		}
		return s.subscriptionUpdated(ctx, &sub)
	case stripe.EventTypeCustomerSubscriptionDeleted:
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode subscription")
		}
		return s.subscriptionDeleted(ctx, &sub)
	default:
		s.logg.Debug(ctx, "stripe.webhook.ignored")
		return "ignored", nil
	}
}

func (s *Service) checkoutCompleted(ctx context.Context, session *stripe.CheckoutSession) (string, error) {
	ctx = s.logg.WithField(ctx, "session_id", session.ID)

	userID, ok := subscriptions.SessionUserID(session)
	if !ok {
		s.logg.Warn(ctx, "stripe.webhook.checkout.user_unresolved")
		return "skipped", nil
	}
	ctx = s.logg.WithUserID(ctx, userID.String())

	plan, ok := s.resolvePlan(session)
	if !ok {
		s.logg.Warn(s.logg.WithField(ctx, "plan_type", session.Metadata["planType"]), "stripe.webhook.checkout.plan_unresolved")
		return "skipped", nil
	}

	now := s.now().UTC()
	status := enums.SubscriptionStatusActive
	if plan.Type == enums.PlanTypeFreeTrial {
		status = enums.SubscriptionStatusTrialing
	}
	row := &models.Subscription{
		UserID:               userID,
		PlanType:             plan.Type,
		Status:               status,
		CurrentPeriodStart:   now,
		CurrentPeriodEnd:     s.catalog.PeriodEnd(plan.Type, now),
		StripeCustomerID:     customerID(session),
		StripeSubscriptionID: subscriptionReference(session, now),
	}
	promoCode := promocodes.Normalize(session.Metadata["promoCode"])
	if promoCode != "" {
		row.PromoCode = &promoCode
	}

	if err := s.subs.UpsertByUser(ctx, row); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "persist subscription")
	}
	s.logg.Info(s.logg.WithField(ctx, "plan_type", string(plan.Type)), "stripe.webhook.checkout.reconciled")

	s.sendInvoice(ctx, session, plan, row)
	if promoCode != "" {
		s.redeemPromo(ctx, promoCode)
	}
	return "processed", nil
}

// resolvePlan prefers the planType metadata written at checkout and falls
// back to the session mode.
func (s *Service) resolvePlan(session *stripe.CheckoutSession) (plans.Plan, bool) {
	if raw := strings.TrimSpace(session.Metadata["planType"]); raw != "" {
		plan, err := s.catalog.Lookup(raw)
		return plan, err == nil
	}
	var fallback enums.PlanType
	switch session.Mode {
	case stripe.CheckoutSessionModeSubscription:
		fallback = enums.PlanTypeMonthly
	case stripe.CheckoutSessionModePayment:
		fallback = enums.PlanTypeLifetime
	default:
		return plans.Plan{}, false
	}
	plan, err := s.catalog.Lookup(string(fallback))
	return plan, err == nil
}

func customerID(session *stripe.CheckoutSession) *string {
	if session.Customer == nil || session.Customer.ID == "" {
		return nil
	}
	id := session.Customer.ID
	return &id
}

func subscriptionReference(session *stripe.CheckoutSession, now time.Time) *string {
	ref := fmt.Sprintf("%s%d", OneTimeReferencePrefix, now.Unix())
	if session.Subscription != nil && session.Subscription.ID != "" {
		ref = session.Subscription.ID
	}
	return &ref
}

func (s *Service) sendInvoice(ctx context.Context, session *stripe.CheckoutSession, plan plans.Plan, row *models.Subscription) {
	to, name := session.Metadata["userEmail"], session.Metadata["userName"]
	if session.CustomerDetails != nil {
		if to == "" {
			to = session.CustomerDetails.Email
		}
		if name == "" {
			name = session.CustomerDetails.Name
		}
	}
	if to == "" {
		to = session.CustomerEmail
	}
	if strings.TrimSpace(to) == "" {
		s.logg.Warn(ctx, "stripe.webhook.invoice.skipped_no_email")
		return
	}

	currency := string(session.Currency)
	if currency == "" {
		currency = plan.Currency
	}
	promo := ""
	if row.PromoCode != nil {
		promo = *row.PromoCode
	}
	err := s.invoices.SendInvoice(ctx, notifications.Invoice{
		To:        to,
		Name:      name,
		PlanType:  plan.Type,
		PlanName:  plan.Name,
		Amount:    session.AmountTotal,
		Currency:  currency,
		PromoCode: promo,
		PeriodEnd: row.CurrentPeriodEnd,
		Reference: session.ID,
	})
	if err != nil {
		s.logg.Error(ctx, "stripe.webhook.invoice.failed", err)
	}
}

func (s *Service) redeemPromo(ctx context.Context, code string) {
	ctx = s.logg.WithField(ctx, "promo_code", code)
	redeemed, err := s.promos.IncrementUsage(ctx, code)
	switch {
	case err != nil:
		s.metrics.IncPromoUsage("failed")
		s.logg.Error(ctx, "stripe.webhook.promo.increment_failed", err)
	case !redeemed:
		s.metrics.IncPromoUsage("exhausted")
		s.logg.Warn(ctx, "stripe.webhook.promo.limit_reached")
	default:
		s.metrics.IncPromoUsage("redeemed")
	}
}

func (s *Service) subscriptionUpdated(ctx context.Context, sub *stripe.Subscription) (string, error) {
	ctx = s.logg.WithField(ctx, "stripe_subscription_id", sub.ID)

	update := subscriptions.StripeUpdate{CancelAtPeriodEnd: &sub.CancelAtPeriodEnd}
	if status, ok := MapStripeStatus(sub.Status); ok {
		update.Status = &status
	} else {
		s.logg.Info(s.logg.WithField(ctx, "stripe_status", string(sub.Status)), "stripe.webhook.subscription.status_kept")
	}
	if end := currentPeriodEnd(sub); end != nil {
		update.CurrentPeriodEnd = end
	}
	return s.apply(ctx, sub.ID, update)
}

func (s *Service) subscriptionDeleted(ctx context.Context, sub *stripe.Subscription) (string, error) {
	ctx = s.logg.WithField(ctx, "stripe_subscription_id", sub.ID)
	status := enums.SubscriptionStatusCancelled
	return s.apply(ctx, sub.ID, subscriptions.StripeUpdate{Status: &status})
}

func (s *Service) apply(ctx context.Context, stripeSubscriptionID string, update subscriptions.StripeUpdate) (string, error) {
	if stripeSubscriptionID == "" {
		s.logg.Warn(ctx, "stripe.webhook.subscription.missing_id")
		return "skipped", nil
	}
	found, err := s.subs.ApplyStripeUpdate(ctx, stripeSubscriptionID, update)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update subscription")
	}
	if !found {
		s.logg.Info(ctx, "stripe.webhook.subscription.unknown")
		return "skipped", nil
	}
	return "processed", nil
}

// currentPeriodEnd reads the period end from the first subscription item.
func currentPeriodEnd(sub *stripe.Subscription) *time.Time {
	if sub.Items == nil {
		return nil
	}
	for _, item := range sub.Items.Data {
		if item != nil && item.CurrentPeriodEnd > 0 {
			end := time.Unix(item.CurrentPeriodEnd, 0).UTC()
			return &end
		}
	}
	return nil
}
