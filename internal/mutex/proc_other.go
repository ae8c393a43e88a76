//go:build !unix

package mutex

// Without a portable liveness probe every owner is treated as alive.
func processAlive(int) bool { return true }
