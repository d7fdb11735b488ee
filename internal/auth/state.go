package auth

import "time"

// State tracks repeated-attempt abuse for the identity currently being
// tried. One value per run; the counter restarts whenever the tracked
// username changes.
type State struct {
	Username       string
	FailedAttempts int
	LockoutUntil   time.Time // zero = no lockout
}
