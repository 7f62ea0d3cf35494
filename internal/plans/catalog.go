package plans

import (
	"strings"
	"time"

	"github.com/kineticlab/physio-academy-backend/pkg/config"
	"github.com/kineticlab/physio-academy-backend/pkg/enums"
	pkgerrors "github.com/kineticlab/physio-academy-backend/pkg/errors"
)

// lifetimeYears is the sentinel horizon stored for plans that never expire.
const lifetimeYears = 100

// Plan describes one purchasable offering. Prices are in minor currency units.
type Plan struct {
	Type      enums.PlanType `json:"planType"`
	Name      string         `json:"name"`
	BasePrice int64          `json:"basePrice"`
	Currency  string         `json:"currency"`
	Recurring bool           `json:"recurring"`
	TrialDays int            `json:"trialDays,omitempty"`
}

// Catalog is the fixed plan table.
type Catalog struct {
	plans    map[enums.PlanType]Plan
	currency string
}

// NewCatalog builds the plan table from billing configuration.
func NewCatalog(cfg config.BillingConfig) *Catalog {
	currency := strings.ToLower(strings.TrimSpace(cfg.Currency))
	if currency == "" {
		currency = "eur"
	}
	trialDays := cfg.TrialDays
	if trialDays <= 0 {
		trialDays = 3
	}
	return &Catalog{
		currency: currency,
		plans: map[enums.PlanType]Plan{
			enums.PlanTypeFreeTrial: {
				Type:      enums.PlanTypeFreeTrial,
				Name:      "Free Trial",
				BasePrice: 0,
				Currency:  currency,
				TrialDays: trialDays,
			},
			enums.PlanTypeMonthly: {
				Type:      enums.PlanTypeMonthly,
				Name:      "Monthly",
				BasePrice: cfg.MonthlyPrice,
				Currency:  currency,
				Recurring: true,
			},
			enums.PlanTypeLifetime: {
				Type:      enums.PlanTypeLifetime,
				Name:      "Lifetime",
				BasePrice: cfg.LifetimePrice,
				Currency:  currency,
			},
		},
	}
}

// Lookup resolves a raw plan identifier.
func (c *Catalog) Lookup(raw string) (Plan, error) {
	planType, err := enums.ParsePlanType(strings.TrimSpace(raw))
	if err != nil {
		return Plan{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "Invalid plan type")
	}
	plan, ok := c.plans[planType]
	if !ok {
		return Plan{}, pkgerrors.New(pkgerrors.CodeValidation, "Invalid plan type")
	}
	return plan, nil
}

// List returns every plan in catalog order.
func (c *Catalog) List() []Plan {
	out := make([]Plan, 0, len(c.plans))
	for _, planType := range enums.PlanTypes() {
		if plan, ok := c.plans[planType]; ok {
			out = append(out, plan)
		}
	}
	return out
}

// Currency returns the ISO currency all plans are priced in.
func (c *Catalog) Currency() string {
	return c.currency
}

// PeriodEnd returns when a period that starts at start should end for plan.
func (c *Catalog) PeriodEnd(planType enums.PlanType, start time.Time) time.Time {
	switch planType {
	case enums.PlanTypeFreeTrial:
		days := 3
		if plan, ok := c.plans[planType]; ok && plan.TrialDays > 0 {
			days = plan.TrialDays
		}
		return start.AddDate(0, 0, days)
	case enums.PlanTypeMonthly:
		return start.AddDate(0, 1, 0)
	default:
		return start.AddDate(lifetimeYears, 0, 0)
	}
}
