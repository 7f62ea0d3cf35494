package enums

// UnlockState is the navigability of one item in an ordered course sequence.
type UnlockState string

const (
	UnlockStateCompleted   UnlockState = "completed"
	UnlockStateAvailable   UnlockState = "available"
	UnlockStateDailyLocked UnlockState = "daily_locked"
	UnlockStateLocked      UnlockState = "locked"
)

// String implements fmt.Stringer.
func (u UnlockState) String() string {
	return string(u)
}

// CanOpen reports whether an item in this state may be opened.
func (u UnlockState) CanOpen() bool {
	return u == UnlockStateCompleted || u == UnlockStateAvailable
}
