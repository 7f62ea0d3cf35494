package access

import (
	"time"

	"github.com/google/uuid"

	"github.com/kineticlab/physio-academy-backend/pkg/db/models"
	"github.com/kineticlab/physio-academy-backend/pkg/enums"
)

// HasActiveSubscription reports whether sub unlocks paid course content.
func HasActiveSubscription(sub *models.Subscription) bool {
	return sub != nil && sub.Status.GrantsAccess()
}

// HasActivePremium reports whether sub is a paid plan backed by Stripe. Trials
// grant content access but never premium.
func HasActivePremium(sub *models.Subscription) bool {
	return HasActiveSubscription(sub) &&
		sub.PlanType != enums.PlanTypeFreeTrial &&
		sub.HasExternalReference()
}

// Item is one entry of an ordered sequence (lessons of a course, courses of a package).
type Item struct {
	ID          uuid.UUID
	Title       string
	Completed   bool
	CompletedAt *time.Time
}

// ItemState is the computed unlock state of an Item.
type ItemState struct {
	ID          uuid.UUID         `json:"id"`
	Title       string            `json:"title"`
	Position    int               `json:"position"`
	State       enums.UnlockState `json:"state"`
	CanOpen     bool              `json:"canOpen"`
	CompletedAt *time.Time        `json:"completedAt,omitempty"`
}

// UnlockStates applies the one-item-per-day pacing rule to an ordered sequence.
//
// The first item is never locked. Any later incomplete item is locked until its
// predecessor is complete, and stays daily_locked until the calendar day (in loc)
// after the predecessor's completion.
func UnlockStates(items []Item, now time.Time, loc *time.Location) []ItemState {
	if loc == nil {
		loc = time.UTC
	}
	today := localDay(now, loc)

	out := make([]ItemState, len(items))
	for i, item := range items {
		state := enums.UnlockStateAvailable
		switch {
		case item.Completed:
			state = enums.UnlockStateCompleted
		case i == 0:
			state = enums.UnlockStateAvailable
		case !items[i-1].Completed:
			state = enums.UnlockStateLocked
		case completedOnOrAfter(items[i-1].CompletedAt, today, loc):
			state = enums.UnlockStateDailyLocked
		}
		out[i] = ItemState{
			ID:          item.ID,
			Title:       item.Title,
			Position:    i + 1,
			State:       state,
			CanOpen:     state.CanOpen(),
			CompletedAt: item.CompletedAt,
		}
	}
	return out
}

// completedOnOrAfter reports whether completedAt falls on today or later. A
// completion without a timestamp is treated as long past.
func completedOnOrAfter(completedAt *time.Time, today time.Time, loc *time.Location) bool {
	if completedAt == nil {
		return false
	}
	return !localDay(*completedAt, loc).Before(today)
}

func localDay(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}
