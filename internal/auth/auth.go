package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/hnrobert/ldmgr/internal/config"
	"github.com/hnrobert/ldmgr/internal/logger"
)

var (
	ErrMissingInput = errors.New("missing username or password")
	ErrLockedOut    = errors.New("too many failed attempts")
)

// Authenticator binds the lockout policy to an identity provider. It never
// stores or logs the secret; the password slice is read-only for the
// duration of one call and wiping it is the caller's job.
type Authenticator struct {
	provider Provider
	log      *logger.Logger

	// Injection points for tests.
	now    func() time.Time
	lockVT func() (func(), error)
}

func New(p Provider, log *logger.Logger) *Authenticator {
	return &Authenticator{
		provider: p,
		log:      log,
		now:      time.Now,
		lockVT:   lockVTSwitch,
	}
}

// IsLockedOut reports whether the tracked identity is inside a lockout
// window. An expired window is cleared here, together with the failure
// counter: expiry is lazy, there is no timer.
func (a *Authenticator) IsLockedOut(st *State) bool {
	if st == nil || st.LockoutUntil.IsZero() {
		return false
	}
	if !a.now().Before(st.LockoutUntil) {
		st.LockoutUntil = time.Time{}
		st.FailedAttempts = 0
		return false
	}
	return true
}

// Authenticate evaluates one credential pair against the identity provider
// and updates the lockout state. Empty input is rejected without policy
// side effects. A locked-out identity is rejected without contacting the
// provider at all.
func (a *Authenticator) Authenticate(username string, password []byte, cfg *config.Config, st *State) error {
	if username == "" || len(password) == 0 || cfg == nil || st == nil {
		return ErrMissingInput
	}

	if a.IsLockedOut(st) {
		remaining := st.LockoutUntil.Sub(a.now()).Round(time.Second)
		a.log.Warn("user locked out", "user", username, "remaining", remaining.String())
		return ErrLockedOut
	}

	// A fresh identity always gets a clean counter, even when this very
	// attempt fails. Cycling usernames therefore evades the process-local
	// lockout; that matches the specified policy.
	if st.Username != username {
		st.Username = username
		st.FailedAttempts = 0
		st.LockoutUntil = time.Time{}
	}

	// Hold the console: no VT switch while the provider sees the secret.
	// Failing to get the lock is logged but does not block authentication.
	if release, err := a.lockVT(); err != nil {
		a.log.Warn("failed to lock VT switching", "error", err)
	} else {
		defer release()
	}

	err := a.provider.Authenticate(username, password)
	if err == nil {
		err = a.provider.ValidateAccount(username)
	}
	if err == nil {
		a.ResetAttempts(st)
		a.log.Info("user authenticated", "user", username)
		return nil
	}

	st.FailedAttempts++
	a.log.Error("authentication failed",
		"user", username, "attempt", st.FailedAttempts, "max", cfg.MaxAttempts)
	if st.FailedAttempts >= cfg.MaxAttempts {
		st.LockoutUntil = a.now().Add(time.Duration(cfg.LockoutDuration) * time.Second)
		a.log.Warn("user locked out after repeated failures",
			"user", username, "attempts", st.FailedAttempts)
	}
	return fmt.Errorf("authenticate %s: %w", username, err)
}

// ResetAttempts unconditionally clears the counter and any lockout.
// Idempotent and safe on a nil state.
func (a *Authenticator) ResetAttempts(st *State) {
	if st == nil {
		return
	}
	st.FailedAttempts = 0
	st.LockoutUntil = time.Time{}
}
