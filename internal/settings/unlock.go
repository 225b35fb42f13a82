package settings

import (
	"fmt"
	"time"
)

const (
	// UnlockTaps is how many taps on the version unlock developer options.
	UnlockTaps = 7
	// UnlockWindow is the longest allowed gap between two taps.
	UnlockWindow = time.Second
)

// TapOutcome is what a tap on the version row did.
type TapOutcome int

const (
	TapIgnored TapOutcome = iota
	TapCounted
	TapHint
	TapUnlock
)

// TapResult reports a tap. Remaining is set for TapHint.
type TapResult struct {
	Outcome   TapOutcome
	Remaining int
}

// Message is the toast shown for the tap, empty when nothing is shown.
func (r TapResult) Message() string {
	switch r.Outcome {
	case TapHint:
		if r.Remaining == 1 {
			return "You are 1 step away from enabling developer options"
		}
		return fmt.Sprintf("You are %d steps away from enabling developer options", r.Remaining)
	case TapUnlock:
		return "Developer options enabled"
	default:
		return ""
	}
}

// Unlocker counts rapid taps on the version row.
type Unlocker struct {
	now   func() time.Time
	count int
	last  time.Time
}

// NewUnlocker creates an Unlocker reading time from now, or the wall clock
// when now is nil.
func NewUnlocker(now func() time.Time) *Unlocker {
	if now == nil {
		now = time.Now
	}
	return &Unlocker{now: now}
}

// Tap registers a tap. Taps while developer options are already enabled
// are ignored. A gap of UnlockWindow or more restarts the count at one.
// The UnlockTaps-th tap returns TapUnlock once and restarts the count.
func (u *Unlocker) Tap(unlocked bool) TapResult {
	if unlocked {
		return TapResult{Outcome: TapIgnored}
	}

	now := u.now()
	if u.count == 0 || now.Sub(u.last) >= UnlockWindow {
		u.count = 1
	} else {
		u.count++
	}
	u.last = now

	switch {
	case u.count >= UnlockTaps:
		u.count = 0
		return TapResult{Outcome: TapUnlock}
	case u.count > 1:
		return TapResult{Outcome: TapHint, Remaining: UnlockTaps - u.count}
	default:
		return TapResult{Outcome: TapCounted}
	}
}
