package enums

import "fmt"

// PlanType identifies a purchasable plan.
type PlanType string

const (
	PlanTypeFreeTrial PlanType = "free_trial"
	PlanTypeMonthly   PlanType = "monthly"
	PlanTypeLifetime  PlanType = "lifetime"
)

var validPlanTypes = []PlanType{
	PlanTypeFreeTrial,
	PlanTypeMonthly,
	PlanTypeLifetime,
}

// String implements fmt.Stringer.
func (p PlanType) String() string {
	return string(p)
}

// IsValid reports whether the value is known.
func (p PlanType) IsValid() bool {
	for _, candidate := range validPlanTypes {
		if candidate == p {
			return true
		}
	}
	return false
}

// IsPaid reports whether the plan goes through a hosted payment.
func (p PlanType) IsPaid() bool {
	return p == PlanTypeMonthly || p == PlanTypeLifetime
}

// PlanTypes returns every known plan in catalog order.
func PlanTypes() []PlanType {
	out := make([]PlanType, len(validPlanTypes))
	copy(out, validPlanTypes)
	return out
}

// ParsePlanType converts raw input into a PlanType.
func ParsePlanType(value string) (PlanType, error) {
	for _, candidate := range validPlanTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid plan type %q", value)
}
