package userdb

// Package userdb reads the local account database.
//
// It parses /etc/passwd and /etc/shadow for lookups only; this program never
// writes to either file. Malformed lines are skipped rather than rejected so
// one broken entry cannot take the login manager down.
