package secure

// Package secure holds the credential-handling primitives: fixed-capacity
// input buffers and a wipe that survives dead-store elimination.

import "runtime"

// Zero overwrites b with zero bytes. The KeepAlive fence keeps the compiler
// from treating the stores as dead when b is about to go out of scope.
func Zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
	runtime.KeepAlive(b)
}
