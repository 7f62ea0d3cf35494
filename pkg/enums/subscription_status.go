package enums

import "fmt"

// SubscriptionStatus is the stored lifecycle state of a user's subscription.
type SubscriptionStatus string

const (
	SubscriptionStatusActive    SubscriptionStatus = "active"
	SubscriptionStatusTrialing  SubscriptionStatus = "trialing"
	SubscriptionStatusCancelled SubscriptionStatus = "cancelled"
	SubscriptionStatusExpired   SubscriptionStatus = "expired"
)

func (s SubscriptionStatus) String() string {
	return string(s)
}

func (s SubscriptionStatus) IsValid() bool {
	switch s {
	case SubscriptionStatusActive, SubscriptionStatusTrialing, SubscriptionStatusCancelled, SubscriptionStatusExpired:
		return true
	}
	return false
}

// GrantsAccess reports whether the status unlocks paid content. Lapsed periods
// are moved to expired by the cron sweep.
func (s SubscriptionStatus) GrantsAccess() bool {
	return s == SubscriptionStatusActive || s == SubscriptionStatusTrialing
}

// ParseSubscriptionStatus converts raw input into a SubscriptionStatus.
func ParseSubscriptionStatus(value string) (SubscriptionStatus, error) {
	if s := SubscriptionStatus(value); s.IsValid() {
		return s, nil
	}
	return "", fmt.Errorf("invalid subscription status %q", value)
}
