package auth

// Package auth authenticates local users and enforces the per-run lockout
// policy.
//
// Design:
// - Credentials verify against the host shadow database; hash formats the
//   crypt library cannot check fall back to su(1) behind a PTY.
// - Lockout state lives in memory for one run only. Expiry is evaluated
//   lazily on the next call, never by a timer.
// - VT switching is locked for the duration of a provider call so the
//   console cannot be hijacked mid-authentication.
